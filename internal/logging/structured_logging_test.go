package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredLogger(t *testing.T) {
	t.Run("creates JSON logger with proper configuration", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		logger.Info("test message",
			slog.String("component", "test"),
			slog.Int("count", 42))

		output := buf.String()

		assert.Contains(t, output, `"level":"INFO"`)
		assert.Contains(t, output, `"msg":"test message"`)
		assert.Contains(t, output, `"component":"test"`)
		assert.Contains(t, output, `"count":42`)
		assert.Contains(t, output, `"time":`)
	})

	t.Run("respects log level configuration", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelWarn)

		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warning message")

		output := buf.String()
		assert.NotContains(t, output, "debug message")
		assert.NotContains(t, output, "info message")
		assert.Contains(t, output, "warning message")
	})
}

func TestLoggerHelpers(t *testing.T) {
	t.Run("LogError creates structured error log", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		err := assert.AnError
		LogError(logger, "failed to load schedule", err,
			slog.String("route_id", "C51"),
			slog.String("component", "schedule_manager"))

		output := buf.String()
		assert.Contains(t, output, `"level":"ERROR"`)
		assert.Contains(t, output, `"msg":"failed to load schedule"`)
		assert.Contains(t, output, `"error":"assert.AnError general error for testing"`)
		assert.Contains(t, output, `"route_id":"C51"`)
		assert.Contains(t, output, `"component":"schedule_manager"`)
	})

	t.Run("LogError tolerates nil logger", func(t *testing.T) {
		LogError(nil, "should not panic", assert.AnError)
	})

	t.Run("LogOperation logs structured operation info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogOperation(logger, "aggregation_run_started",
			slog.Int("routes", 12),
			slog.Int("units", 84),
			slog.Duration("duration", 0)) // Will be ignored if zero

		output := buf.String()
		assert.Contains(t, output, `"level":"INFO"`)
		assert.Contains(t, output, `"msg":"aggregation_run_started"`)
		assert.Contains(t, output, `"routes":12`)
		assert.Contains(t, output, `"units":84`)
		assert.NotContains(t, output, `"duration"`)
	})

	t.Run("LogUnitOutcome logs unit terminal state", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogUnitOutcome(logger, "C51", "2025-06-03", "persisted", "",
			slog.Int64("samples_seen", 940),
			slog.Int64("events_produced", 210))

		output := buf.String()
		assert.Contains(t, output, `"msg":"aggregation_unit"`)
		assert.Contains(t, output, `"route_id":"C51"`)
		assert.Contains(t, output, `"day":"2025-06-03"`)
		assert.Contains(t, output, `"status":"persisted"`)
		assert.Contains(t, output, `"samples_seen":940`)
		assert.NotContains(t, output, `"reason"`)
	})

	t.Run("LogUnitOutcome includes reason when present", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogUnitOutcome(logger, "X51", "2025-06-03", "failed", "no_schedule (stage: matching)")

		output := buf.String()
		assert.Contains(t, output, `"status":"failed"`)
		assert.Contains(t, output, `"reason":"no_schedule (stage: matching)"`)
	})
}

func TestContextLogger(t *testing.T) {
	t.Run("stores and retrieves logger from context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		ctx := WithLogger(context.Background(), logger)
		got := FromContext(ctx)

		got.Info("from context")
		assert.Contains(t, buf.String(), `"msg":"from context"`)
	})

	t.Run("returns default logger when none stored", func(t *testing.T) {
		got := FromContext(context.Background())
		assert.NotNil(t, got)
	})
}

func TestReplaceLogFatal(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	err := ReplaceLogFatal(logger, "schedule ingest failed", assert.AnError)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "schedule ingest failed")
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}
