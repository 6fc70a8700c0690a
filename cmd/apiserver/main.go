// Command helmkit-apiserver serves the notation engine over HTTP and gRPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/helmkit/internal/bootstrap"
	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	grpcserver "github.com/turtacn/helmkit/internal/interfaces/grpc"
	"github.com/turtacn/helmkit/internal/interfaces/grpc/services"
	httpserver "github.com/turtacn/helmkit/internal/interfaces/http"
	"github.com/turtacn/helmkit/internal/interfaces/http/handlers"
	"github.com/turtacn/helmkit/internal/interfaces/http/middleware"
	"github.com/turtacn/helmkit/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: HELMKIT_* environment)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "helmkit-apiserver: %v\n", err)
		os.Exit(1)
	}
	if cfg.Log.Service == "" {
		cfg.Log.Service = "helmkit-apiserver"
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "helmkit-apiserver: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *configPath != "" {
		watchConfig(*configPath, logger)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("apiserver exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("apiserver stopped")
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	logger.Info("starting helmkit apiserver",
		logging.String("version", version.String()),
		logging.String("http_addr", cfg.Server.HTTP.Addr),
		logging.Bool("grpc_enabled", cfg.Server.GRPC.Enabled))

	infra, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{Component: "api"})
	if err != nil {
		return err
	}
	defer func() {
		if err := infra.Close(); err != nil {
			logger.Warn("failed to close infrastructure", logging.Err(err))
		}
	}()

	checks := infra.HealthChecks()
	checkers := make([]handlers.HealthChecker, len(checks))
	for i, c := range checks {
		checkers[i] = c
	}

	routerCfg := httpserver.RouterConfig{
		NotationHandler:  handlers.NewNotationHandler(infra.Notation, logger.Named("http"), cfg.Server.HTTP.MaxBodySize),
		MonomerHandler:   handlers.NewMonomerHandler(infra.Catalog, logger.Named("http")),
		HealthHandler:    handlers.NewHealthHandler(version.Version, checkers...),
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           logger.Named("http"),
		Metrics:          infra.Metrics,
		MetricsCollector: infra.Collector,
		MetricsPath:      cfg.Metrics.Path,
	}
	if len(cfg.Server.HTTP.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.HTTP.CORSOrigins
		routerCfg.CORS = &cors
	}

	g, gctx := errgroup.WithContext(ctx)

	httpSrv := httpserver.NewServer(cfg.Server.HTTP, httpserver.NewRouter(routerCfg), logger.Named("http"))
	g.Go(func() error { return httpSrv.Start(gctx) })

	if cfg.Server.GRPC.Enabled {
		grpcSrv, err := grpcserver.NewServer(cfg.Server.GRPC,
			grpcserver.WithLogger(logger.Named("grpc")),
			grpcserver.WithMetrics(infra.Metrics),
			grpcserver.WithGracefulTimeout(cfg.Server.HTTP.ShutdownTimeout),
		)
		if err != nil {
			return err
		}
		grpcSrv.RegisterService(&services.NotationServiceDesc, services.NewNotationService(infra.Notation, logger.Named("grpc")))
		g.Go(func() error { return grpcSrv.Start(gctx) })
	}

	return g.Wait()
}

// watchConfig logs edits of the config file. Listener and store settings
// take effect on restart.
func watchConfig(path string, logger logging.Logger) {
	err := config.Watch(path, func(c *config.Config) {
		logger.Info("configuration file changed; restart to apply",
			logging.String("path", path),
			logging.Strings("monomer_sources", c.Monomers.Sources))
	}, func(err error) {
		logger.Warn("configuration file changed but is invalid", logging.String("path", path), logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}
