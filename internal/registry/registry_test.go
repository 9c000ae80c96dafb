package registry_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/registry"
)

func square(lat, lon float64) geometry.Shape {
	return geometry.Shape{
		Kind: geometry.Rectangle,
		Vertices: []geometry.LatLng{
			{Lat: lat, Lon: lon},
			{Lat: lat, Lon: lon + 0.001},
			{Lat: lat + 0.001, Lon: lon + 0.001},
			{Lat: lat + 0.001, Lon: lon},
		},
	}
}

func TestAddThenGet(t *testing.T) {
	r := registry.New(registry.Config{})

	added, err := r.Add(square(37, -122))
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.Greater(t, added.AreaSquareMeters, 0.0)

	got, err := r.Get(added.ID)
	require.NoError(t, err)
	assert.Equal(t, added, got)
}

func TestAddIgnoresCallerIDAndArea(t *testing.T) {
	r := registry.New(registry.Config{})
	in := square(0, 0)
	in.ID = "mine"
	in.AreaSquareMeters = 42

	added, err := r.Add(in)
	require.NoError(t, err)
	assert.NotEqual(t, "mine", added.ID)
	assert.NotEqual(t, 42.0, added.AreaSquareMeters)
}

func TestAddRejectsInvalidGeometry(t *testing.T) {
	r := registry.New(registry.Config{})
	_, err := r.Add(geometry.Shape{Kind: geometry.Polygon, Vertices: []geometry.LatLng{{Lat: 1, Lon: 1}}})
	require.ErrorIs(t, err, geometry.ErrInvalidGeometry)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.List())
}

func TestRemoveThenGet(t *testing.T) {
	r := registry.New(registry.Config{})
	added, err := r.Add(square(1, 1))
	require.NoError(t, err)

	ok, err := r.Remove(added.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = r.Get(added.ID)
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestRemoveTwice(t *testing.T) {
	t.Run("lenient", func(t *testing.T) {
		r := registry.New(registry.Config{})
		keep, _ := r.Add(square(2, 2))
		gone, _ := r.Add(square(3, 3))

		ok, err := r.Remove(gone.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.Remove(gone.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		assert.Equal(t, []geometry.Shape{keep}, r.List())
	})

	t.Run("strict", func(t *testing.T) {
		r := registry.New(registry.Config{StrictRemove: true})
		keep, _ := r.Add(square(2, 2))
		gone, _ := r.Add(square(3, 3))

		ok, err := r.Remove(gone.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.Remove(gone.ID)
		assert.ErrorIs(t, err, registry.ErrNotFound)
		assert.False(t, ok)

		assert.Equal(t, []geometry.Shape{keep}, r.List())
	})
}

func TestListKeepsInsertionOrder(t *testing.T) {
	r := registry.New(registry.Config{})
	var ids []string
	for _, lat := range []float64{30, 10, 20} {
		s, err := r.Add(square(lat, 0))
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}

	var got []string
	for _, s := range r.List() {
		got = append(got, s.ID)
	}
	assert.Equal(t, ids, got)
}

func TestReturnedShapesAreCopies(t *testing.T) {
	r := registry.New(registry.Config{})
	added, _ := r.Add(square(5, 5))
	added.Vertices[0].Lat = 80

	got, err := r.Get(added.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Vertices[0].Lat)
}

func TestClear(t *testing.T) {
	r := registry.New(registry.Config{})
	r.Add(square(5, 5))
	r.Add(square(6, 6))
	r.Clear()
	assert.Equal(t, 0, r.Len())
}

func TestEventsArePublished(t *testing.T) {
	bus := registry.NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	r := registry.New(registry.Config{Bus: bus})
	s, err := r.Add(square(1, 2))
	require.NoError(t, err)
	_, err = r.Remove(s.ID)
	require.NoError(t, err)
	r.Clear()

	assert.Equal(t, registry.Event{Action: registry.Added, ID: s.ID}, <-ch)
	assert.Equal(t, registry.Event{Action: registry.Removed, ID: s.ID}, <-ch)
	assert.Equal(t, registry.Event{Action: registry.Cleared}, <-ch)
}

func TestConcurrentAdds(t *testing.T) {
	r := registry.New(registry.Config{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Add(square(float64(i%60), float64(i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	shapes := r.List()
	require.Len(t, shapes, 50)
	seen := map[string]bool{}
	for _, s := range shapes {
		assert.False(t, seen[s.ID])
		seen[s.ID] = true
	}
}
