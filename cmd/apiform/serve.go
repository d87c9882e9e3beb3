package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	config "github.com/hanpama/apiform/internal/config"
	coreapi "github.com/hanpama/apiform/internal/coreapi"
	eventbus "github.com/hanpama/apiform/internal/eventbus"
	logging "github.com/hanpama/apiform/internal/logging"
	metrics "github.com/hanpama/apiform/internal/metrics"
	otel "github.com/hanpama/apiform/internal/otel"
	sdl "github.com/hanpama/apiform/internal/sdl"
	server "github.com/hanpama/apiform/internal/server"
)

const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		pretty     bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if pretty {
				cfg.Server.Pretty = true
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, overrides server.addr")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON responses")
	return cmd
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	bus := eventbus.New()
	shutdownTracing, err := otel.Setup(ctx, bus, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	h, err := buildHandler(cfg, logger, bus)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(sctx)
}

// buildHandler assembles the API server described by cfg.
func buildHandler(cfg config.Config, logger *zap.Logger, bus *eventbus.Bus) (*server.Server, error) {
	tokens := make(map[string]coreapi.Token, len(cfg.Auth.Tokens))
	for cred, t := range cfg.Auth.Tokens {
		tokens[cred] = coreapi.Token{Identity: t.Identity, Scopes: t.Scopes}
	}
	api, err := coreapi.New(coreapi.WithTokens(tokens))
	if err != nil {
		return nil, err
	}
	reg := api.Registry()
	if len(cfg.Schema.Files) > 0 {
		doc, err := sdl.ParseFiles(cfg.Schema.Files...)
		if err != nil {
			return nil, err
		}
		reg.Add(doc.Definitions()...)
	}

	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithFieldSpecHeader(cfg.Server.FieldSpecHeader),
		server.WithLogger(logger),
		server.WithBus(bus),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	if cfg.Metrics.Enabled {
		m := metrics.New(bus)
		opts = append(opts, server.WithHandler(cfg.Metrics.Path, m.Handler()))
	}
	s, err := server.New(reg, api.Endpoints(), opts...)
	if err != nil {
		return nil, fmt.Errorf("server init: %w", err)
	}
	return s, nil
}
