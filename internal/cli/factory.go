package cli

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/internal/logging"
	intakehttp "github.com/aretw0/intake/pkg/adapters/http"
	"github.com/aretw0/intake/pkg/adapters/file"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/adapters/postgres"
	"github.com/aretw0/intake/pkg/adapters/process"
	redisadapter "github.com/aretw0/intake/pkg/adapters/redis"
	"github.com/aretw0/intake/pkg/adapters/sqlite"
	"github.com/aretw0/intake/pkg/access"
	"github.com/aretw0/intake/pkg/catalog"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/observability"
	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// records is what every records driver provides.
type records interface {
	ports.SubmissionGateway
	ports.CompanyDirectory
}

// App is the fully wired service built from a Config.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Engine    *intake.Engine
	Sessions  *session.Manager
	Directory *access.Directory
	Streams   *intakehttp.StreamManager
	Metrics   *prometheus.Registry

	closers []func() error
}

// NewLogger builds the application logger on stderr.
func NewLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(os.Stderr, level, cfg.Format), nil
}

// connections shares database handles between the drafts and records drivers.
type connections struct {
	ctx     context.Context
	sqlite  map[string]*sql.DB
	pg      map[string]*pgxpool.Pool
	closers *[]func() error
}

func (c *connections) sqliteDB(dsn string) (*sql.DB, error) {
	if db, ok := c.sqlite[dsn]; ok {
		return db, nil
	}
	db, err := sqlite.Open(c.ctx, dsn)
	if err != nil {
		return nil, err
	}
	c.sqlite[dsn] = db
	*c.closers = append(*c.closers, db.Close)
	return db, nil
}

func (c *connections) pool(dsn string) (*pgxpool.Pool, error) {
	if p, ok := c.pg[dsn]; ok {
		return p, nil
	}
	p, err := postgres.Connect(c.ctx, dsn)
	if err != nil {
		return nil, err
	}
	c.pg[dsn] = p
	*c.closers = append(*c.closers, func() error { p.Close(); return nil })
	return p, nil
}

// Build wires the engine, stores, hooks and session manager described by cfg.
// Close the App to release connections.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	app := &App{Config: cfg, Logger: logger}
	conns := &connections{ctx: ctx, sqlite: map[string]*sql.DB{}, pg: map[string]*pgxpool.Pool{}, closers: &app.closers}

	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	drafts, redisStore, err := openDrafts(cfg, conns)
	if err != nil {
		return nil, err
	}
	drafts, err = wrapDrafts(drafts, cfg)
	if err != nil {
		return nil, err
	}

	gateway, err := openRecords(cfg, conns)
	if err != nil {
		return nil, err
	}

	steps, err := catalog.New(catalog.WithDirectory(gateway))
	if err != nil {
		return nil, err
	}

	app.Directory, err = access.NewDirectory(cfg.Users...)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}

	app.Streams = intakehttp.NewStreamManager(logger)
	combined := []domain.LifecycleHooks{observability.LogHooks(logger), app.Streams.Hooks()}
	if cfg.Server.Metrics {
		app.Metrics = prometheus.NewRegistry()
		app.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		combined = append(combined, observability.NewMetrics(app.Metrics).Hooks())
	}

	app.Engine, err = intake.New(steps,
		intake.WithDraftStore(drafts),
		intake.WithGateway(gateway),
		intake.WithLogger(logger),
		intake.WithName("companies"),
		intake.WithLifecycleHooks(observability.Combine(combined...)),
	)
	if err != nil {
		return nil, err
	}

	var mgrOpts []session.Option
	mgrOpts = append(mgrOpts, session.WithLogger(logger))
	if redisStore != nil && cfg.Drafts.Redis.Lock {
		locker := redisadapter.NewLocker(redisStore.Client(), cfg.Drafts.Redis.Prefix)
		mgrOpts = append(mgrOpts, session.WithLocker(locker, 0, 0))
	}
	app.Sessions = session.NewManager(app.Engine, mgrOpts...)

	logger.Info("intake wired",
		"drafts", cfg.Drafts.Driver,
		"records", cfg.Records.Driver,
		"encrypted", cfg.Encryption.ActiveKey != "",
		"users", app.Directory.Len(),
	)
	ok = true
	return app, nil
}

// OpenDrafts opens only the configured draft store, with its middleware.
// The returned func releases it.
func OpenDrafts(ctx context.Context, cfg config.Config) (ports.DraftStore, func() error, error) {
	var closers []func() error
	closeAll := func() error { return closeInReverse(closers) }
	conns := &connections{ctx: ctx, sqlite: map[string]*sql.DB{}, pg: map[string]*pgxpool.Pool{}, closers: &closers}

	store, _, err := openDrafts(cfg, conns)
	if err == nil {
		store, err = wrapDrafts(store, cfg)
	}
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}
	return store, closeAll, nil
}

func openDrafts(cfg config.Config, conns *connections) (ports.DraftStore, *redisadapter.Store, error) {
	d := cfg.Drafts
	switch d.Driver {
	case "memory":
		return memory.NewStore(), nil, nil
	case "file":
		return file.New(d.Path), nil, nil
	case "redis":
		store := redisadapter.New(d.Redis.Addr, d.Redis.Password, d.Redis.DB,
			redisadapter.WithPrefix(d.Redis.Prefix),
			redisadapter.WithTTL(d.TTL),
		)
		*conns.closers = append(*conns.closers, store.Close)
		return store, store, nil
	case "sqlite":
		db, err := conns.sqliteDB(d.DSN)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewStore(db), nil, nil
	case "postgres":
		pool, err := conns.pool(d.DSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStore(pool), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown drafts driver %q", d.Driver)
}

// wrapDrafts applies PII masking and then encryption, so masked values are
// what gets encrypted.
func wrapDrafts(store ports.DraftStore, cfg config.Config) (ports.DraftStore, error) {
	var mws []middleware.Middleware
	if len(cfg.PII.Patterns) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.PII.Patterns)
		if err != nil {
			return nil, fmt.Errorf("pii: %w", err)
		}
		mws = append(mws, pii)
	}
	if cfg.Encryption.ActiveKey != "" {
		enc, err := encryptionMiddleware(cfg.Encryption)
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), nil
}

func encryptionMiddleware(cfg config.EncryptionConfig) (middleware.Middleware, error) {
	active, err := base64.StdEncoding.DecodeString(cfg.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("encryption.active_key: %w", err)
	}
	ec := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("encryption.fallback_keys[%d]: %w", i, err)
		}
		ec.FallbackKeys = append(ec.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(ec)
}

func openRecords(cfg config.Config, conns *connections) (records, error) {
	r := cfg.Records
	switch r.Driver {
	case "memory":
		return memory.NewGateway(memory.WithKeyExtractor(catalog.Keys)), nil
	case "sqlite":
		db, err := conns.sqliteDB(r.DSN)
		if err != nil {
			return nil, err
		}
		return sqlite.NewGateway(db, catalog.Keys), nil
	case "postgres":
		pool, err := conns.pool(r.DSN)
		if err != nil {
			return nil, err
		}
		return postgres.NewGateway(pool, catalog.Keys), nil
	case "process":
		return process.NewGateway(r.Process, catalog.Keys)
	}
	return nil, fmt.Errorf("unknown records driver %q", r.Driver)
}

// Close releases every connection the App opened.
func (a *App) Close() error {
	err := closeInReverse(a.closers)
	a.closers = nil
	return err
}

func closeInReverse(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
