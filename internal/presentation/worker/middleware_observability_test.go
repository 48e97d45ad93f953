package workerpresentation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/outbox"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/artisanmart/internal/observability/logctx"
	workerpresentation "github.com/Zhima-Mochi/artisanmart/internal/presentation/worker"
)

type namedEvent string

func (e namedEvent) EventName() string { return string(e) }

func TestEventLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zaplogger.Wrap(zap.New(core))

	h := outbox.Chain(func(ctx context.Context, _ outbox.Event) error {
		logctx.From(ctx).Info("handled")
		return nil
	}, workerpresentation.EventLogger(base))

	require.NoError(t, h(context.Background(), namedEvent("order.status_changed")))
	require.NoError(t, h(context.Background(), namedEvent("order.status_changed")))

	entries := logs.FilterMessage("handled").All()
	require.Len(t, entries, 2)
	first, second := entries[0].ContextMap(), entries[1].ContextMap()
	assert.Equal(t, "order.status_changed", first["event"])
	assert.NotEmpty(t, first["event_id"])
	assert.NotEqual(t, first["event_id"], second["event_id"])
}

func TestWithEventContext_KeepsProvidedID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := workerpresentation.WithEventContext(context.Background(), zaplogger.Wrap(zap.New(core)), map[string]string{
		"event_id": "evt-1",
		"use_case": "sales_count",
		"empty":    "",
	})
	logctx.From(ctx).Info("x")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, "sales_count", fields["use_case"])
	assert.NotContains(t, fields, "empty")
}
