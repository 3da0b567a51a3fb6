package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/docforge/backend/internal/infrastructure/config"
	"github.com/docforge/backend/internal/infrastructure/logger"
	"github.com/docforge/backend/internal/infrastructure/persistence/models"
	"github.com/docforge/backend/internal/infrastructure/telemetry"
)

const sqliteBusyTimeoutMS = 5000

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB     *gorm.DB
	driver string
}

// Option configures NewDatabase
type Option func(*dbOptions)

type dbOptions struct {
	logger   *zap.Logger
	logLevel string
	slow     time.Duration
	tracing  *telemetry.DBTracingPlugin
}

// WithLogger routes GORM logs through zap at the given application log level
func WithLogger(l *zap.Logger, level string) Option {
	return func(o *dbOptions) {
		o.logger = l
		o.logLevel = level
	}
}

// WithSlowThreshold sets the duration above which queries are logged as slow
func WithSlowThreshold(d time.Duration) Option {
	return func(o *dbOptions) {
		o.slow = d
	}
}

// WithTracing registers otelgorm and slow-query span annotation
func WithTracing(p *telemetry.DBTracingPlugin) Option {
	return func(o *dbOptions) {
		o.tracing = p
	}
}

// NewDatabase opens a postgres or sqlite connection according to cfg.Driver
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := &dbOptions{logger: zap.NewNop(), logLevel: "silent"}
	for _, opt := range opts {
		opt(o)
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewSQLLogger(o.logger, logger.SQLLogConfig{
			Level:         logger.MapGormLogLevel(o.logLevel),
			SlowThreshold: o.slow,
		}),
		SkipDefaultTransaction: true,
		PrepareStmt:            cfg.Driver == "postgres",
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	configurePool(sqlDB, cfg)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if o.tracing != nil {
		if err := o.tracing.RegisterOtelGorm(db); err != nil {
			return nil, fmt.Errorf("failed to register database tracing: %w", err)
		}
	}

	return &Database{DB: db, driver: cfg.Driver}, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(cfg.DSN()), nil
	case "sqlite", "":
		return sqlite.Open(fmt.Sprintf("%s?_busy_timeout=%d", cfg.Path, sqliteBusyTimeoutMS)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func configurePool(sqlDB *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.Driver != "postgres" {
		// sqlite serialises writers, and an in-memory database exists per connection
		sqlDB.SetMaxOpenConns(1)
		return
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

// Driver returns the configured driver name
func (d *Database) Driver() string {
	return d.driver
}

// AutoMigrate creates or updates the template tables from the GORM models.
// Used for sqlite; postgres schemas are owned by the SQL migrations.
func (d *Database) AutoMigrate(ctx context.Context) error {
	return d.DB.WithContext(ctx).AutoMigrate(
		&models.DocumentTemplateModel{},
		&models.TemplateAssetModel{},
	)
}

// SQLDB returns the underlying *sql.DB
func (d *Database) SQLDB() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.SQLDB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.SQLDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// Stats returns database connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.SQLDB()
	if err != nil {
		return ConnectionStats{}, err
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// Transaction executes fn within a database transaction
func (d *Database) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.DB.WithContext(ctx).Transaction(fn)
}
