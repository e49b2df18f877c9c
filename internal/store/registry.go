package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"southerniot.dev/erp/pkg/metrics"
)

// Params holds the connection target for one logical database.
type Params struct {
	Host     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Port     int
}

// DSN builds the postgres connection string for these parameters.
func (p Params) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Config holds the registry configuration: one connection target per logical
// database plus shared pool tuning. Pool sizes are kept modest because five
// independent pools run in one process.
type Config struct {
	Logger    *slog.Logger
	Metrics   *metrics.StoreMetrics // optional
	Databases map[LogicalDatabase]Params

	// MaxOpenConns bounds concurrently open connections per pool (0 = default 25).
	MaxOpenConns int
	// MaxIdleConns keeps warm connections around for reuse (0 = default 25).
	MaxIdleConns int
	// ConnMaxLifetime recycles connections to avoid stale-connection errors
	// (0 = default 30m).
	ConnMaxLifetime time.Duration

	// InitAttempts bounds schema initialization retries per database
	// (0 = default 5).
	InitAttempts int
	// InitDelay is the fixed wait between initialization attempts
	// (0 = default 5s).
	InitDelay time.Duration
}

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 30 * time.Minute
)

// Registry owns one gorm.DB (and its underlying connection pool) per logical
// database. Pools open lazily on first use, so an unreachable backing store
// does not fail construction; connectivity problems surface at schema
// initialization or first session acquisition instead.
//
// A Registry is safe for concurrent use and is meant to be constructed once
// at startup and handed to request handlers explicitly.
type Registry struct {
	log     *slog.Logger
	metrics *metrics.StoreMetrics

	mu         sync.Mutex
	dbs        map[LogicalDatabase]*gorm.DB
	dialectors map[LogicalDatabase]gorm.Dialector

	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration

	initAttempts int
	initDelay    time.Duration
}

// NewRegistry creates a Registry from postgres connection parameters.
// It does not dial any database.
func NewRegistry(cfg *Config) (*Registry, error) {
	if cfg == nil {
		return nil, errors.New("registry config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if len(cfg.Databases) == 0 {
		return nil, errors.New("at least one database must be configured")
	}

	dialectors := make(map[LogicalDatabase]gorm.Dialector, len(cfg.Databases))
	for db, params := range cfg.Databases {
		if !db.Valid() {
			return nil, fmt.Errorf("unknown logical database %q", string(db))
		}
		dialectors[db] = postgres.Open(params.DSN())
	}

	r := NewRegistryFromDialectors(cfg.Logger, dialectors)
	r.metrics = cfg.Metrics
	if cfg.MaxOpenConns > 0 {
		r.maxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		r.maxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		r.connMaxLifetime = cfg.ConnMaxLifetime
	}
	if cfg.InitAttempts > 0 {
		r.initAttempts = cfg.InitAttempts
	}
	if cfg.InitDelay > 0 {
		r.initDelay = cfg.InitDelay
	}
	return r, nil
}

// NewRegistryFromDialectors creates a Registry from prebuilt gorm dialectors,
// one per logical database. Used directly by tests to substitute backends.
func NewRegistryFromDialectors(log *slog.Logger, dialectors map[LogicalDatabase]gorm.Dialector) *Registry {
	return &Registry{
		log:             log,
		dbs:             make(map[LogicalDatabase]*gorm.DB, len(dialectors)),
		dialectors:      dialectors,
		maxOpenConns:    defaultMaxOpenConns,
		maxIdleConns:    defaultMaxIdleConns,
		connMaxLifetime: defaultConnMaxLifetime,
		initAttempts:    schemaInitAttempts,
		initDelay:       schemaInitDelay,
	}
}

// Metrics returns the store metrics bundle, or nil when none was configured.
func (r *Registry) Metrics() *metrics.StoreMetrics {
	return r.metrics
}

// DB returns the handle for db, opening its pool on first use.
func (r *Registry) DB(db LogicalDatabase) (*gorm.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openLocked(db)
}

func (r *Registry) openLocked(db LogicalDatabase) (*gorm.DB, error) {
	if gdb, ok := r.dbs[db]; ok {
		return gdb, nil
	}

	dialector, ok := r.dialectors[db]
	if !ok {
		return nil, fmt.Errorf("no connection target configured for database %q", string(db))
	}

	r.log.Info("opening database pool", "database", db.String())

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent), // slog is used instead
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", db.String(), err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s database instance: %w", db.String(), err)
	}

	sqlDB.SetMaxOpenConns(r.maxOpenConns)
	sqlDB.SetMaxIdleConns(r.maxIdleConns)
	sqlDB.SetConnMaxLifetime(r.connMaxLifetime)

	r.dbs[db] = gdb
	r.log.Info("database pool opened", "database", db.String())

	return gdb, nil
}

// Close tears down every open pool. Called once at shutdown.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for db, gdb := range r.dbs {
		sqlDB, err := gdb.DB()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", db.String(), err))
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s pool: %w", db.String(), err))
			continue
		}
		r.log.Info("database pool closed", "database", db.String())
	}
	clear(r.dbs)
	return errors.Join(errs...)
}
