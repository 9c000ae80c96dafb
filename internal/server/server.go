package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog/log"

	"github.com/soilledger/soilmap/internal/annotate"
	"github.com/soilledger/soilmap/internal/api"
	"github.com/soilledger/soilmap/internal/api/editor"
	"github.com/soilledger/soilmap/internal/config"
	"github.com/soilledger/soilmap/internal/db"
	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/humastar"
	"github.com/soilledger/soilmap/internal/mapview"
	"github.com/soilledger/soilmap/internal/project"
	"github.com/soilledger/soilmap/internal/registry"
	"github.com/soilledger/soilmap/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host string
	Port string
	// App holds the map defaults; Default is used when nil.
	App *config.Config
	// StrictRemove overrides App.StrictRemove when true.
	StrictRemove bool
	// DB controls the SQL mirror. Nil disables it.
	DB *db.Config
}

// Server is the soilmap HTTP server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	humaAPI huma.API
	session *annotate.Session
	links   *humastar.Links

	db     *sql.DB
	mirror *db.Mirror
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new server with a fresh annotation session.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.App == nil {
		cfg.App = config.Default()
	}
	if err := cfg.App.Validate(); err != nil {
		return nil, err
	}

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	layers, err := cfg.App.BaseLayers()
	if err != nil {
		return nil, err
	}

	reg := registry.New(registry.Config{StrictRemove: cfg.StrictRemove || cfg.App.StrictRemove})
	session, err := annotate.NewSession(ctx, annotate.Options{
		Registry: reg,
		Markers:  cfg.App.MarkerLoader(),
		Adapter:  mapview.NewAdapter(layers, renderer),
		OnAreaDraw: func(a annotate.AreaDrawn) {
			log.Info().
				Str("id", a.ID).
				Str("kind", string(a.Kind)).
				Str("acres", fmt.Sprintf("%.2f", a.AreaAcres)).
				Msg("Area drawn")
		},
	})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	links := humastar.NewLinks()
	humaConfig := huma.DefaultConfig("soilmap API", api.Version)
	humaConfig.Info.Description = "Draw field boundaries over project markers and read back their geodesic area."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humago.New(mux, humaConfig),
		session: session,
		links:   links,
		cancel:  func() {},
	}
	s.done = make(chan struct{})
	close(s.done)
	s.handler = RequestLogger(mux)

	if cfg.DB != nil {
		if err := s.openMirror(ctx, *cfg.DB); err != nil {
			log.Warn().Err(err).Msg("SQL mirror unavailable")
		}
	}

	s.routes(renderer)
	return s, nil
}

// openMirror starts the in-memory DuckDB copy of the session and keeps it in
// step with the registry.
func (s *Server) openMirror(ctx context.Context, cfg db.Config) error {
	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	mirror := db.NewMirror(conn)
	snapshot := func() ([]geometry.Shape, []project.Marker) {
		return s.session.Shapes(), s.session.Markers()
	}
	shapes, markers := snapshot()
	if err := mirror.Sync(ctx, shapes, markers); err != nil {
		conn.Close()
		return err
	}

	bus := s.session.Registry().Bus()
	events := bus.Subscribe()
	watchCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer bus.Unsubscribe(events)
		mirror.Watch(watchCtx, events, snapshot)
	}()

	s.db = conn
	s.mirror = mirror
	s.cancel = cancel
	s.done = done
	return nil
}

func (s *Server) routes(renderer *templates.Renderer) {
	app := s.config.App
	api.RegisterRoutes(s.humaAPI, &api.Services{
		Session: s.session,
		Mirror:  s.mirror,
		Viewport: mapview.Viewport{
			Center: app.Center,
			Zoom:   app.Zoom,
			Width:  1024,
			Height: 768,
		},
		DefaultMode: app.ThemeMode(),
	})

	// Editor SSE routes using Huma + Datastar SDK
	editor.NewShapeHandler(s.session, renderer).RegisterRoutes(s.humaAPI)
	editor.NewEventHandler(s.session, renderer).RegisterRoutes(s.humaAPI)

	s.links.Build(s.humaAPI)

	s.mux.HandleFunc("/", s.handleRoot)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Session returns the server's annotation session.
func (s *Server) Session() *annotate.Session {
	return s.session
}

// Close tears down the session and closes server resources.
func (s *Server) Close() error {
	s.cancel()
	<-s.done
	s.session.Teardown()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Add("Link", fmt.Sprintf(`<%s>; rel="start"`, humastar.EntryPoint))
	json.NewEncoder(w).Encode(map[string]string{
		"service": "soilmap",
		"status":  "running",
	})
}
