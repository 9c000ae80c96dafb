package db_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soilledger/soilmap/internal/db"
	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/project"
	"github.com/soilledger/soilmap/internal/registry"
)

var field = []geometry.LatLng{
	{Lat: 37.0, Lon: -122.0},
	{Lat: 37.0, Lon: -122.001},
	{Lat: 37.001, Lon: -122.001},
	{Lat: 37.001, Lon: -122.0},
}

func openMirror(t *testing.T) *db.Mirror {
	t.Helper()
	conn, err := db.Open(context.Background(), db.Config{Extensions: []string{}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return db.NewMirror(conn)
}

func count(t *testing.T, m *db.Mirror, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, m.DB().QueryRow("SELECT count(*) FROM "+table).Scan(&n))
	return n
}

func TestSyncBuildsTables(t *testing.T) {
	ctx := context.Background()
	m := openMirror(t)

	reg := registry.New(registry.Config{})
	_, err := reg.Add(geometry.Shape{Kind: geometry.Rectangle, Vertices: field})
	require.NoError(t, err)

	require.NoError(t, m.Sync(ctx, reg.List(), project.Sample()))

	tables, err := db.Tables(ctx, m.DB())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"markers", "shapes"}, tables)
	assert.EqualValues(t, 1, count(t, m, "shapes"))
	assert.EqualValues(t, 4, count(t, m, "markers"))

	res, err := db.Query(ctx, m.DB(), "SELECT kind, area_acres, wkt FROM shapes")
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, []string{"kind", "area_acres", "wkt"}, res.Columns)
	assert.Equal(t, "rectangle", res.Rows[0]["kind"])
	assert.InEpsilon(t, 2.441, res.Rows[0]["area_acres"], 0.01)
	assert.Contains(t, res.Rows[0]["wkt"], "POLYGON((")

	res, err = db.Query(ctx, m.DB(), "SELECT name FROM markers WHERE status = ? ORDER BY id", "Active")
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, "Farm A Carbon Project", res.Rows[0]["name"])
}

func TestSyncReplaces(t *testing.T) {
	ctx := context.Background()
	m := openMirror(t)
	s := geometry.Shape{ID: "a", Kind: geometry.Rectangle, Vertices: field}

	require.NoError(t, m.Sync(ctx, []geometry.Shape{s}, nil))
	require.NoError(t, m.Sync(ctx, nil, nil))
	assert.EqualValues(t, 0, count(t, m, "shapes"))
}

func TestQueryError(t *testing.T) {
	m := openMirror(t)
	_, err := db.Query(context.Background(), m.DB(), "SELECT * FROM nowhere")
	assert.Error(t, err)
}

func TestWatchFollowsRegistry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := openMirror(t)

	bus := registry.NewEventBus()
	reg := registry.New(registry.Config{Bus: bus})
	events := bus.Subscribe()
	defer bus.Unsubscribe(events)
	done := make(chan struct{})
	go func() {
		m.Watch(ctx, events, func() ([]geometry.Shape, []project.Marker) { return reg.List(), project.Sample() })
		close(done)
	}()

	_, err := reg.Add(geometry.Shape{Kind: geometry.Rectangle, Vertices: field})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		var n int64
		err := m.DB().QueryRow("SELECT count(*) FROM shapes").Scan(&n)
		return err == nil && n == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestWatchCatchesUpAfterBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := openMirror(t)

	bus := registry.NewEventBus()
	reg := registry.New(registry.Config{Bus: bus})
	events := bus.Subscribe()
	defer bus.Unsubscribe(events)

	// more adds than the subscription buffers, before anyone reads
	const burst = 40
	for i := 0; i < burst; i++ {
		lon := float64(i) * 0.01
		_, err := reg.Add(geometry.Shape{Kind: geometry.Polygon, Vertices: []geometry.LatLng{
			{Lat: 1, Lon: lon}, {Lat: 1, Lon: lon + 0.005}, {Lat: 1.005, Lon: lon + 0.005},
		}})
		require.NoError(t, err)
	}

	var syncs atomic.Int32
	done := make(chan struct{})
	go func() {
		m.Watch(ctx, events, func() ([]geometry.Shape, []project.Marker) {
			syncs.Add(1)
			return reg.List(), nil
		})
		close(done)
	}()

	assert.Eventually(t, func() bool {
		var n int64
		err := m.DB().QueryRow("SELECT count(*) FROM shapes").Scan(&n)
		return err == nil && n == burst
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(1), syncs.Load(), "queued events should fold into one sync")

	cancel()
	<-done
}

func TestWatchSyncsPendingBeforeClose(t *testing.T) {
	m := openMirror(t)
	reg := registry.New(registry.Config{})
	_, err := reg.Add(geometry.Shape{Kind: geometry.Rectangle, Vertices: field})
	require.NoError(t, err)

	events := make(chan registry.Event, 2)
	events <- registry.Event{Action: registry.Added}
	events <- registry.Event{Action: registry.Added}
	close(events)

	m.Watch(context.Background(), events, func() ([]geometry.Shape, []project.Marker) { return reg.List(), nil })
	assert.Equal(t, int64(1), count(t, m, "shapes"))
}
