package project_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/project"
	"github.com/soilledger/soilmap/internal/theme"
)

func TestStaticLoaderReturnsCopies(t *testing.T) {
	l := project.NewStaticLoader(project.Sample())

	first, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 4)
	first[0].DisplayFields["name"] = "changed"
	first[1].Status = theme.StatusCompleted

	second, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Farm A Carbon Project", second[0].Field("name"))
	assert.Equal(t, theme.StatusPending, second[1].Status)
}

func TestStaticLoaderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := project.NewStaticLoader(project.Sample()).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSampleStatuses(t *testing.T) {
	var got []theme.Status
	for _, m := range project.Sample() {
		got = append(got, m.Status)
	}
	assert.Equal(t, []theme.Status{theme.StatusActive, theme.StatusPending, theme.StatusCompleted, theme.StatusActive}, got)
}

func TestMarkerArea(t *testing.T) {
	m := project.Sample()[0]
	ring := m.Area()
	require.NotEmpty(t, ring)

	c := geometry.Centroid(ring)
	assert.InDelta(t, m.Coordinates.Lat, c.Lat, 1e-4)
	assert.InDelta(t, m.Coordinates.Lon, c.Lon, 1e-4)

	m2, err := geometry.ComputeArea(geometry.Shape{Kind: geometry.Polygon, Vertices: ring})
	require.NoError(t, err)
	assert.InDelta(t, 194, geometry.ToAcres(m2), 3)
}
