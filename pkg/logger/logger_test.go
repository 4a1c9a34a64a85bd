package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appctx "tradeflow/internal/core/context"
)

func TestWithContext_AddsTraceFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := &Logger{zap.New(core).Sugar()}

	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{
		TraceID:   "trace-1",
		RequestID: "req-1",
		Operation: "refresh_analysis",
	})
	ctx = WithLogger(ctx, log)

	Warn(ctx, "cache document corrupt", "namespace", "analysis")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "trace-1", fields["trace_id"])
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "refresh_analysis", fields["operation"])
		assert.Equal(t, "analysis", fields["namespace"])
	}
}

func TestWithContext_NoTrace(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := &Logger{zap.New(core).Sugar()}

	log.WithContext(context.Background()).WithComponent("cache").Infow("loaded")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "cache", fields["component"])
		assert.NotContains(t, fields, "trace_id")
	}
}

func TestWithContext_AddsSpanID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := &Logger{zap.New(core).Sugar()}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.WithContext(ctx).Infow("refresh started")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, sc.SpanID().String(), entries[0].ContextMap()["span_id"])
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "loud", OutputPaths: []string{"stderr"}, Service: "tradeflow"})
	if assert.NoError(t, err) {
		assert.True(t, log.Desugar().Core().Enabled(zap.InfoLevel))
		assert.False(t, log.Desugar().Core().Enabled(zap.DebugLevel))
	}
}
