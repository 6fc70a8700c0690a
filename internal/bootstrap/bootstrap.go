// Package bootstrap assembles the infrastructure and application services
// shared by the CLI, the API server and the worker from a Config.
package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/helmkit/internal/application/catalog"
	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/database/postgres"
	"github.com/turtacn/helmkit/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/helmkit/internal/infrastructure/database/redis"
	"github.com/turtacn/helmkit/internal/infrastructure/database/sqlite"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/internal/infrastructure/storage/minio"
)

// Options tunes what New connects.
type Options struct {
	// Component labels metrics and logs: "cli", "api" or "worker".
	Component string
	// NeedRedis connects Redis even when the report cache is disabled.
	NeedRedis bool
	// SkipRegistryLoad leaves the registry unloaded.
	SkipRegistryLoad bool
}

// HealthCheck is a named dependency probe.
type HealthCheck struct {
	name  string
	check func(ctx context.Context) error
}

func (h HealthCheck) Name() string                    { return h.name }
func (h HealthCheck) Check(ctx context.Context) error { return h.check(ctx) }

type closer struct {
	name  string
	close func() error
}

// Infrastructure holds every connected component. Optional components are
// nil when the configuration does not use them.
type Infrastructure struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Registry *monomer.Registry
	Notation notation.Service
	Catalog  catalog.Service

	Redis    *redis.Client
	Postgres *postgres.Connection
	SQLite   *sqlite.Store
	MinIO    *minio.MinIOClient
	Library  *minio.LibraryStore
	Archive  *minio.ReportArchive

	// ImportStore names the store catalog imports are written to.
	ImportStore string

	checks  []HealthCheck
	closers []closer
}

// New connects the components cfg asks for and loads the monomer registry.
// On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts Options) (_ *Infrastructure, err error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.Component == "" {
		opts.Component = "api"
	}
	infra := &Infrastructure{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = infra.Close()
		}
	}()

	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
			ConstLabels:          map[string]string{"component": opts.Component},
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		infra.Collector = collector
		infra.Metrics = prometheus.NewAppMetrics(collector)
	}

	sources, repos, err := infra.openSources(ctx, cfg)
	if err != nil {
		return nil, err
	}
	infra.Registry = monomer.NewRegistry(logger.Named("registry"), sources...)
	if !opts.SkipRegistryLoad {
		if err := infra.LoadRegistry(ctx); err != nil {
			return nil, err
		}
	}

	svcOpts := []notation.Option{
		notation.WithMetrics(infra.Metrics),
		notation.WithMetricsSource(opts.Component),
		notation.WithMaxPermutations(cfg.HELM.MaxPermutations),
		notation.WithStrictSequences(cfg.HELM.StrictSequences),
	}
	if cfg.Cache.Enabled || opts.NeedRedis {
		if err := infra.openRedis(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Cache.Enabled {
		cache := redis.NewRedisCache(infra.Redis, logger, redis.WithPrefix(cfg.Cache.KeyPrefix), redis.WithDefaultTTL(cfg.Cache.TTL))
		svcOpts = append(svcOpts, notation.WithCache(cache, cfg.Cache.TTL))
	}
	if cfg.Storage.MinIO.ArchiveReports {
		if err := infra.openMinIO(cfg); err != nil {
			return nil, err
		}
		infra.Archive = minio.NewReportArchive(infra.MinIO)
		svcOpts = append(svcOpts, notation.WithArchive(infra.Archive))
	}
	infra.Notation = notation.NewService(infra.Registry, logger.Named("notation"), svcOpts...)

	var catOpts []catalog.Option
	if n := len(repos); n > 0 {
		last := repos[n-1]
		infra.ImportStore = last.name
		catOpts = append(catOpts, catalog.WithStore(last.name, last.repo))
	}
	if infra.Library != nil {
		catOpts = append(catOpts, catalog.WithPublisher(infra.Library))
	}
	infra.Catalog = catalog.NewService(infra.Registry, logger.Named("catalog"), catOpts...)

	logger.Info("infrastructure initialized",
		logging.String("component", opts.Component),
		logging.String("sources", strings.Join(cfg.Monomers.Sources, ",")),
		logging.Int("monomers", infra.Registry.Len()))
	return infra, nil
}

type namedRepo struct {
	name string
	repo monomer.Repository
}

func (i *Infrastructure) openSources(ctx context.Context, cfg *config.Config) ([]monomer.Source, []namedRepo, error) {
	var (
		sources []monomer.Source
		repos   []namedRepo
	)
	for _, name := range cfg.Monomers.Sources {
		switch strings.ToLower(name) {
		case config.SourceBuiltin:
			sources = append(sources, monomer.NewBuiltinSource())
		case config.SourceFile:
			sources = append(sources, monomer.NewFileSource(cfg.Monomers.File))
		case config.SourcePostgres:
			if err := i.openPostgres(cfg); err != nil {
				return nil, nil, err
			}
			repo := repositories.NewMonomerRepo(i.Postgres.DB(), i.Logger, repositories.WithRepoMetrics(i.Metrics))
			sources = append(sources, monomer.NewRepositorySource(config.SourcePostgres, repo))
			repos = append(repos, namedRepo{config.SourcePostgres, repo})
		case config.SourceSQLite:
			store, err := sqlite.Open(cfg.Database.SQLite.Path, i.Logger)
			if err != nil {
				return nil, nil, fmt.Errorf("sqlite: %w", err)
			}
			i.SQLite = store
			i.addCloser("sqlite", store.Close)
			i.addCheck("sqlite", store.HealthCheck)
			repo := store.Monomers(i.Metrics)
			sources = append(sources, monomer.NewRepositorySource(config.SourceSQLite, repo))
			repos = append(repos, namedRepo{config.SourceSQLite, repo})
		case config.SourceMinIO:
			if err := i.openMinIO(cfg); err != nil {
				return nil, nil, err
			}
			sources = append(sources, i.Library)
		default:
			return nil, nil, fmt.Errorf("unknown monomer source %q", name)
		}
	}
	return sources, repos, nil
}

// LoadRegistry loads the registry within the configured timeout and records
// the per-type sizes.
func (i *Infrastructure) LoadRegistry(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, i.Config.Monomers.LoadTimeout)
	defer cancel()

	start := time.Now()
	err := i.Registry.Load(ctx)
	perType := make(map[string]int)
	if err == nil {
		for _, t := range monomer.PolymerTypes {
			ms, lerr := i.Registry.List(t)
			if lerr == nil {
				perType[string(t)] = len(ms)
			}
		}
	}
	prometheus.RecordRegistryLoad(i.Metrics, perType, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("monomer registry: %w", err)
	}
	return nil
}

func (i *Infrastructure) openPostgres(cfg *config.Config) error {
	if i.Postgres != nil {
		return nil
	}
	p := cfg.Database.Postgres
	conn, err := postgres.NewConnection(postgres.PostgresConfig{
		Host:            p.Host,
		Port:            p.Port,
		Database:        p.DBName,
		Username:        p.User,
		Password:        p.Password,
		SSLMode:         p.SSLMode,
		MaxOpenConns:    p.MaxOpenConns,
		MaxIdleConns:    p.MaxIdleConns,
		ConnMaxLifetime: p.ConnMaxLifetime,
	}, i.Logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	i.Postgres = conn
	i.addCloser("postgres", conn.Close)
	i.addCheck("postgres", conn.HealthCheck)
	if p.AutoMigrate {
		if err := conn.RunMigrations(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	return nil
}

func (i *Infrastructure) openMinIO(cfg *config.Config) error {
	if i.MinIO != nil {
		return nil
	}
	m := cfg.Storage.MinIO
	client, err := minio.NewMinIOClient(minio.MinIOConfig{
		Endpoint:      m.Endpoint,
		AccessKey:     m.AccessKey,
		SecretKey:     m.SecretKey,
		UseSSL:        m.UseSSL,
		Region:        m.Region,
		Bucket:        m.Bucket,
		LibraryObject: m.LibraryObject,
		ReportPrefix:  m.ReportPrefix,
	}, i.Logger)
	if err != nil {
		return fmt.Errorf("minio: %w", err)
	}
	i.MinIO = client
	i.Library = minio.NewLibraryStore(client, i.Logger)
	i.addCloser("minio", client.Close)
	i.addCheck("minio", client.HealthCheck)
	return nil
}

func (i *Infrastructure) openRedis(cfg *config.Config) error {
	r := cfg.Cache.Redis
	client, err := redis.NewClient(&redis.RedisConfig{
		Mode:         r.Mode,
		Addr:         r.Addr,
		Addrs:        r.Addrs,
		MasterName:   r.MasterName,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
	}, i.Logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	i.Redis = client
	i.addCloser("redis", client.Close)
	i.addCheck("redis", client.Ping)
	return nil
}

func (i *Infrastructure) addCheck(name string, fn func(ctx context.Context) error) {
	i.checks = append(i.checks, HealthCheck{name: name, check: fn})
}

func (i *Infrastructure) addCloser(name string, fn func() error) {
	i.closers = append(i.closers, closer{name: name, close: fn})
}

// HealthChecks returns a probe per connected dependency plus the registry.
func (i *Infrastructure) HealthChecks() []HealthCheck {
	out := make([]HealthCheck, 0, len(i.checks)+1)
	out = append(out, HealthCheck{name: "monomer_registry", check: func(context.Context) error {
		if i.Registry == nil || !i.Registry.Loaded() {
			return fmt.Errorf("monomer registry is not loaded")
		}
		return nil
	}})
	return append(out, i.checks...)
}

// Close releases components in reverse opening order.
func (i *Infrastructure) Close() error {
	var errs []error
	for n := len(i.closers) - 1; n >= 0; n-- {
		c := i.closers[n]
		if err := c.close(); err != nil {
			i.Logger.Warn("failed to close component", logging.String("component", c.name), logging.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	i.closers = nil
	return stderrors.Join(errs...)
}
