package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fieldMap(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestFromContext(t *testing.T) {
	t.Run("attached logger", func(t *testing.T) {
		log := zap.NewExample()
		ctx := WithContext(context.Background(), log)
		assert.Same(t, log, FromContext(ctx))
	})

	t.Run("missing logger is a no-op", func(t *testing.T) {
		log := FromContext(context.Background())
		require.NotNil(t, log)
		assert.NotPanics(t, func() { log.Info("ignored") })
	})
}

func TestWithRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx, log := WithRequestID(context.Background(), zap.New(core), "req-42")
	log.Info("rendering")
	FromContext(ctx).Info("stored")

	assert.Equal(t, "req-42", GetRequestID(ctx))
	require.Len(t, recorded.All(), 2)
	for _, entry := range recorded.All() {
		assert.Equal(t, "req-42", fieldMap(entry)["request_id"])
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestWithTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "generate")
	defer span.End()

	t.Run("WithTraceContext adds ids", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		ctx, _ := WithRequestID(ctx, zap.NewNop(), "req-7")

		WithTraceContext(ctx, zap.New(core)).Info("encoded")

		require.Len(t, recorded.All(), 1)
		fields := fieldMap(recorded.All()[0])
		assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
		assert.Equal(t, "req-7", fields["request_id"])
	})

	t.Run("WithTraceContext without span or request", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)

		WithTraceContext(context.Background(), zap.New(core)).Info("plain")

		require.Len(t, recorded.All(), 1)
		assert.Empty(t, recorded.All()[0].Context)
	})

	t.Run("WithTraceContext nil logger", func(t *testing.T) {
		assert.NotPanics(t, func() { WithTraceContext(ctx, nil).Info("ignored") })
	})
}
