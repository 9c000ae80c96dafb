package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soilledger/soilmap/internal/api"
	"github.com/soilledger/soilmap/internal/config"
	"github.com/soilledger/soilmap/internal/db"
	"github.com/soilledger/soilmap/internal/logger"
	"github.com/soilledger/soilmap/internal/server"
)

// Options defines all CLI flags and env vars for the soilmap server.
// Flags: --host, --port, --config, --log-level, --log-format, --strict-remove, --no-db
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_CONFIG, ...
type Options struct {
	Host         string `doc:"Host to bind to" default:"0.0.0.0"`
	Port         int    `doc:"Port to listen on" short:"p" default:"8086"`
	Config       string `doc:"Path to YAML config file" short:"c" default:"soilmap.yaml"`
	LogLevel     string `doc:"Log level: trace, debug, info, warn, error" default:"info"`
	LogFormat    string `doc:"Log format: console or json" default:"console"`
	StrictRemove bool   `doc:"Fail when deleting an unknown shape"`
	NoDB         bool   `doc:"Disable the in-memory DuckDB mirror"`
}

func newServer(ctx context.Context, opts *Options) (*server.Server, error) {
	if err := (logger.Options{Level: opts.LogLevel, Format: opts.LogFormat}).Setup(); err != nil {
		return nil, err
	}
	app, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	cfg := server.Config{
		Host:         opts.Host,
		Port:         fmt.Sprintf("%d", opts.Port),
		App:          app,
		StrictRemove: opts.StrictRemove,
	}
	if !opts.NoDB {
		cfg.DB = &db.Config{Extensions: db.DefaultExtensions}
	}
	return server.New(ctx, cfg)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		srv, err := newServer(context.Background(), opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			log.Info().
				Str("url", baseURL).
				Str("config", opts.Config).
				Str("docs", baseURL+"/docs").
				Str("openapi", baseURL+"/openapi.json").
				Msg("soilmap API server starting")

			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server error")
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("Shutdown failed")
			}
			if err := srv.Close(); err != nil {
				log.Error().Err(err).Msg("Closing server resources failed")
			}
		})
	})

	cli.Root().Use = "soilmap"
	cli.Root().Short = "Draw field boundaries on a project map and measure their area"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.NoDB = true
			srv, err := newServer(context.Background(), opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Root().AddCommand(newAreaCmd())

	cli.Run()
}
