package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func statement(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestSQLLogger_Trace(t *testing.T) {
	lookup := statement("SELECT * FROM document_templates WHERE id = ?", 1)

	tests := []struct {
		name    string
		cfg     SQLLogConfig
		begin   time.Time
		err     error
		wantLvl zapcore.Level
		wantMsg string
	}{
		{"failure", SQLLogConfig{Level: gormlogger.Error}, time.Now(), errors.New("database is locked"), zapcore.ErrorLevel, "statement failed"},
		{"slow", SQLLogConfig{Level: gormlogger.Warn, SlowThreshold: time.Millisecond}, time.Now().Add(-time.Second), nil, zapcore.WarnLevel, "slow statement"},
		{"plain at info", SQLLogConfig{Level: gormlogger.Info}, time.Now(), nil, zapcore.DebugLevel, "statement"},
		{"not found when asked", SQLLogConfig{Level: gormlogger.Error, LogNotFound: true}, time.Now(), gormlogger.ErrRecordNotFound, zapcore.ErrorLevel, "statement failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			l := NewSQLLogger(zap.New(core), tt.cfg)

			l.Trace(context.Background(), tt.begin, lookup, tt.err)

			require.Len(t, recorded.All(), 1)
			entry := recorded.All()[0]
			assert.Equal(t, tt.wantLvl, entry.Level)
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, "sql", entry.LoggerName)
			assert.Equal(t, "SELECT * FROM document_templates WHERE id = ?", entry.ContextMap()["statement"])
		})
	}
}

func TestSQLLogger_Trace_Suppressed(t *testing.T) {
	tests := []struct {
		name  string
		cfg   SQLLogConfig
		begin time.Time
		err   error
	}{
		{"silent", SQLLogConfig{Level: gormlogger.Silent}, time.Now(), errors.New("boom")},
		{"not found by default", SQLLogConfig{Level: gormlogger.Info}, time.Now(), gormlogger.ErrRecordNotFound},
		{"plain below info", SQLLogConfig{Level: gormlogger.Warn}, time.Now(), nil},
		{"slow below warn", SQLLogConfig{Level: gormlogger.Error, SlowThreshold: time.Millisecond}, time.Now().Add(-time.Second), nil},
		{"slow detection disabled", SQLLogConfig{Level: gormlogger.Warn, SlowThreshold: -1}, time.Now().Add(-time.Hour), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			l := NewSQLLogger(zap.New(core), tt.cfg)

			l.Trace(context.Background(), tt.begin, statement("SELECT 1", 1), tt.err)

			assert.Empty(t, recorded.All())
		})
	}
}

func TestSQLLogger_Trace_RunIDs(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	l := NewSQLLogger(zap.New(core), SQLLogConfig{Level: gormlogger.Info})

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "repository")
	defer span.End()
	ctx, _ = WithRequestID(ctx, zap.NewNop(), "run-9")

	l.Trace(ctx, time.Now(), statement("SELECT * FROM template_assets", 2), nil)

	require.Len(t, recorded.All(), 1)
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "run-9", fields["request_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.EqualValues(t, 2, fields["rows"])
}

func TestSQLLogger_Messages(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	l := NewSQLLogger(zap.New(core), SQLLogConfig{Level: gormlogger.Warn})

	l.Info(context.Background(), "migrating %s", "document_templates")
	l.Warn(context.Background(), "column %s renamed", "title")
	l.Error(context.Background(), "constraint %d", 7)

	require.Len(t, recorded.All(), 2)
	assert.Equal(t, "column title renamed", recorded.All()[0].Message)
	assert.Equal(t, "constraint 7", recorded.All()[1].Message)
}

func TestSQLLogger_LogMode(t *testing.T) {
	l := NewSQLLogger(nil, SQLLogConfig{Level: gormlogger.Warn})

	debug, ok := l.LogMode(gormlogger.Info).(*SQLLogger)

	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, debug.cfg.Level)
	assert.Equal(t, gormlogger.Warn, l.cfg.Level)
	assert.Equal(t, defaultSlowQuery, l.cfg.SlowThreshold)
	assert.NotPanics(t, func() { l.Warn(context.Background(), "ignored") })
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Warn},
		{"debug", gormlogger.Info},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
