package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// SQLLogConfig controls how statements issued by the repositories are logged
type SQLLogConfig struct {
	Level gormlogger.LogLevel
	// SlowThreshold marks statements as slow; zero uses 200ms, negative disables
	SlowThreshold time.Duration
	// LogNotFound reports ErrRecordNotFound as an error. Template lookups
	// by id miss routinely, so it is off by default.
	LogNotFound bool
}

// SQLLogger bridges GORM's logger onto zap. Statement lines carry the
// request and trace ids of the generation run that issued them.
type SQLLogger struct {
	log *zap.Logger
	cfg SQLLogConfig
}

var _ gormlogger.Interface = (*SQLLogger)(nil)

// NewSQLLogger creates the bridge; a nil logger discards everything
func NewSQLLogger(log *zap.Logger, cfg SQLLogConfig) *SQLLogger {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SlowThreshold == 0 {
		cfg.SlowThreshold = defaultSlowQuery
	}
	return &SQLLogger{log: log.Named("sql"), cfg: cfg}
}

// LogMode returns a copy at level
func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.cfg.Level = level
	return &cp
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Info {
		WithTraceContext(ctx, l.log).Sugar().Infof(msg, data...)
	}
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Warn {
		WithTraceContext(ctx, l.log).Sugar().Warnf(msg, data...)
	}
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Error {
		WithTraceContext(ctx, l.log).Sugar().Errorf(msg, data...)
	}
}

// Trace logs one executed statement: failures at error, slow statements at
// warn, everything else at debug when the level is Info.
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	slow := l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold

	var level gormlogger.LogLevel
	switch {
	case err != nil:
		if errors.Is(err, gormlogger.ErrRecordNotFound) && !l.cfg.LogNotFound {
			return
		}
		level = gormlogger.Error
	case slow:
		level = gormlogger.Warn
	default:
		level = gormlogger.Info
	}
	if l.cfg.Level < level {
		return
	}

	statement, rows := fc()
	log := WithTraceContext(ctx, l.log).With(
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("statement", statement))

	switch level {
	case gormlogger.Error:
		log.Error("statement failed", zap.Error(err))
	case gormlogger.Warn:
		log.Warn("slow statement", zap.Duration("threshold", l.cfg.SlowThreshold))
	default:
		log.Debug("statement")
	}
}

// MapGormLogLevel maps the application log level onto GORM's.
// Statements are only traced at debug.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
