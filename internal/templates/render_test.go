package templates_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/project"
	"github.com/soilledger/soilmap/internal/templates"
	"github.com/soilledger/soilmap/internal/theme"
)

func TestShapePopup(t *testing.T) {
	r := templates.Must(templates.New())
	html, err := r.Render("shape-popup", struct {
		Kind      geometry.Kind
		AreaAcres float64
	}{geometry.Rectangle, 2.44096})
	require.NoError(t, err)
	assert.Equal(t, "<b>Rectangle</b><br>Area: 2.44 acres", html)
}

func TestMarkerPopupEscapesFields(t *testing.T) {
	r := templates.Must(templates.New())
	m := project.Sample()[0]
	m.DisplayFields["name"] = "<script>x</script>"

	html, err := r.Render("marker-popup", map[string]any{"Marker": m, "Dark": true})
	require.NoError(t, err)
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "Status: Active")
	assert.Contains(t, html, `href="/projects/1"`)
	assert.Contains(t, html, "dark:bg-gray-800")
}

func TestLegend(t *testing.T) {
	r := templates.Must(templates.New())
	html, err := r.Render("legend", theme.Legend())
	require.NoError(t, err)
	for _, item := range theme.Legend() {
		assert.Contains(t, html, item.Label)
		assert.Contains(t, html, item.Color)
	}
}

func TestReload(t *testing.T) {
	r := templates.Must(templates.New())
	require.NoError(t, r.Reload(fstest.MapFS{
		"x.html": {Data: []byte(`{{define "shape-popup"}}custom{{end}}`)},
	}, "*.html"))

	html, err := r.Render("shape-popup", nil)
	require.NoError(t, err)
	assert.Equal(t, "custom", html)

	_, err = r.Render("legend", nil)
	assert.Error(t, err)
}
