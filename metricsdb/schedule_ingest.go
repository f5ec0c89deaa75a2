package metricsdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jamespfennell/gtfs"

	"busmetrics.transitwatch.org/internal/logging"
)

// LoadSchedule replaces the schedule reference tables with the contents of a
// GTFS static feed. The source can be either a URL or a local file path; the
// feed is refreshed out-of-band (typically weekly) and is read-only for the
// aggregation pipeline.
func (c *Client) LoadSchedule(ctx context.Context, source string) error {
	isLocalFile := !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://")

	var b []byte
	var err error
	if isLocalFile {
		b, err = os.ReadFile(source)
	} else {
		b, err = downloadFeed(ctx, source)
	}
	if err != nil {
		return fmt.Errorf("error reading GTFS feed from %s: %w", source, err)
	}

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return fmt.Errorf("error parsing GTFS feed: %w", err)
	}

	return c.storeScheduleData(ctx, staticData)
}

func downloadFeed(ctx context.Context, url string) (b []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer logging.HandleDeferredError(&err, resp.Body.Close, logging.FromContext(ctx), "close feed response")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s fetching feed", resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// storeScheduleData replaces the reference tables within a single transaction
// so a half-applied refresh can never be observed.
func (c *Client) storeScheduleData(ctx context.Context, staticData *gtfs.Static) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, logging.FromContext(ctx), "store_schedule")

	for _, table := range []string{"stop_times", "shapes", "calendar_dates", "trips", "stops", "routes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("error clearing %s: %w", table, err)
		}
	}

	singleAgencyID := ""
	if len(staticData.Agencies) == 1 {
		singleAgencyID = staticData.Agencies[0].Id
	}

	routeStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO routes (route_id, agency_id, short_name, long_name, type)
		VALUES (?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("error preparing route insert: %w", err)
	}
	defer routeStmt.Close() // nolint:errcheck

	for _, r := range staticData.Routes {
		agencyID := singleAgencyID
		if r.Agency != nil && r.Agency.Id != "" {
			agencyID = r.Agency.Id
		}
		_, err := routeStmt.ExecContext(ctx, r.Id, agencyID,
			toNullString(r.ShortName), toNullString(r.LongName), int64(r.Type))
		if err != nil {
			return fmt.Errorf("error inserting route %s: %w", r.Id, err)
		}
	}

	stopStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO stops (stop_id, name, lat, lon) VALUES (?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("error preparing stop insert: %w", err)
	}
	defer stopStmt.Close() // nolint:errcheck

	for _, s := range staticData.Stops {
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		_, err := stopStmt.ExecContext(ctx, s.Id, toNullString(s.Name), *s.Latitude, *s.Longitude)
		if err != nil {
			return fmt.Errorf("error inserting stop %s: %w", s.Id, err)
		}
	}

	tripStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO trips (trip_id, route_id, service_id, direction_id, shape_id)
		VALUES (?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("error preparing trip insert: %w", err)
	}
	defer tripStmt.Close() // nolint:errcheck

	stopTimeStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO stop_times (trip_id, stop_id, arrival_seconds, stop_sequence)
		VALUES (?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("error preparing stop_time insert: %w", err)
	}
	defer stopTimeStmt.Close() // nolint:errcheck

	for _, t := range staticData.Trips {
		shapeID := ""
		if t.Shape != nil {
			shapeID = t.Shape.ID
		}
		_, err := tripStmt.ExecContext(ctx, t.ID, t.Route.Id, t.Service.Id,
			int64(t.DirectionId), toNullString(shapeID))
		if err != nil {
			return fmt.Errorf("error inserting trip %s: %w", t.ID, err)
		}

		for _, st := range t.StopTimes {
			_, err := stopTimeStmt.ExecContext(ctx, t.ID, st.Stop.Id,
				int64(st.ArrivalTime/time.Second), int64(st.StopSequence))
			if err != nil {
				return fmt.Errorf("error inserting stop_time for trip %s: %w", t.ID, err)
			}
		}
	}

	shapeStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO shapes (shape_id, lat, lon, pt_sequence) VALUES (?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("error preparing shape insert: %w", err)
	}
	defer shapeStmt.Close() // nolint:errcheck

	for _, s := range staticData.Shapes {
		for idx, pt := range s.Points {
			_, err := shapeStmt.ExecContext(ctx, s.ID, pt.Latitude, pt.Longitude, int64(idx))
			if err != nil {
				return fmt.Errorf("error inserting shape %s: %w", s.ID, err)
			}
		}
	}

	calStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO calendar_dates (service_id, date, exception_type)
		VALUES (?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("error preparing calendar_date insert: %w", err)
	}
	defer calStmt.Close() // nolint:errcheck

	for _, svc := range staticData.Services {
		for _, d := range svc.AddedDates {
			if _, err := calStmt.ExecContext(ctx, svc.Id, d.Format("20060102"), 1); err != nil {
				return fmt.Errorf("error inserting calendar_date for %s: %w", svc.Id, err)
			}
		}
		for _, d := range svc.RemovedDates {
			if _, err := calStmt.ExecContext(ctx, svc.Id, d.Format("20060102"), 2); err != nil {
				return fmt.Errorf("error inserting calendar_date for %s: %w", svc.Id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing schedule data: %w", err)
	}

	return nil
}
