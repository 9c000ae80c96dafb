package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/rs/zerolog/log"

	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/project"
	"github.com/soilledger/soilmap/internal/registry"
)

const (
	createShapes = `CREATE OR REPLACE TABLE shapes (
	id VARCHAR PRIMARY KEY,
	seq INTEGER,
	kind VARCHAR,
	area_m2 DOUBLE,
	area_acres DOUBLE,
	centroid_lat DOUBLE,
	centroid_lon DOUBLE,
	wkt VARCHAR
)`
	createMarkers = `CREATE OR REPLACE TABLE markers (
	id VARCHAR PRIMARY KEY,
	status VARCHAR,
	lat DOUBLE,
	lon DOUBLE,
	name VARCHAR,
	location VARCHAR
)`
)

// Snapshot returns the current shapes and markers.
type Snapshot func() ([]geometry.Shape, []project.Marker)

// Mirror rebuilds the shapes and markers tables from a snapshot.
type Mirror struct {
	conn *sql.DB
	mu   sync.Mutex
}

// NewMirror wraps an open connection.
func NewMirror(conn *sql.DB) *Mirror {
	return &Mirror{conn: conn}
}

// DB returns the underlying connection.
func (m *Mirror) DB() *sql.DB {
	return m.conn
}

// Sync replaces both tables with the given rows in one transaction.
func (m *Mirror) Sync(ctx context.Context, shapes []geometry.Shape, markers []project.Marker) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{createShapes, createMarkers} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}

	for i, s := range shapes {
		c := geometry.Centroid(s.Vertices)
		_, err := tx.ExecContext(ctx,
			"INSERT INTO shapes VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			s.ID, i, string(s.Kind), s.AreaSquareMeters, s.AreaAcres(), c.Lat, c.Lon,
			wkt.MarshalString(orb.Polygon{s.Ring()}),
		)
		if err != nil {
			return fmt.Errorf("inserting shape %s: %w", s.ID, err)
		}
	}
	for _, mk := range markers {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO markers VALUES (?, ?, ?, ?, ?, ?)",
			mk.ID, mk.Status.String(), mk.Coordinates.Lat, mk.Coordinates.Lon,
			mk.Field("name"), mk.Field("location"),
		)
		if err != nil {
			return fmt.Errorf("inserting marker %s: %w", mk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync: %w", err)
	}
	return nil
}

// Watch resyncs after registry events until ctx is done or events is
// closed. Subscribe before starting it so no change is missed. Events that
// queue up while a sync runs are folded into the next one, which reads a
// fresh snapshot.
func (m *Mirror) Watch(ctx context.Context, events <-chan registry.Event, snapshot Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			n, open := drain(events)
			shapes, markers := snapshot()
			if err := m.Sync(ctx, shapes, markers); err != nil {
				log.Error().Err(err).Str("action", string(ev.Action)).Int("events", n+1).Msg("Mirror sync failed")
			} else if n > 0 {
				log.Debug().Int("events", n+1).Msg("Mirror synced a burst")
			}
			if !open {
				return
			}
		}
	}
}

// drain discards the events already queued on ch. It reports how many it
// took and whether ch is still open.
func drain(ch <-chan registry.Event) (int, bool) {
	n := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return n, false
			}
			n++
		default:
			return n, true
		}
	}
}
