package logctx_test

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"github.com/Zhima-Mochi/artisanmart/internal/observability/logctx"
	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	observability.Logger
	fields []observability.Field
}

func (r *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return &recordingLogger{Logger: observability.NopLogger(), fields: append(append([]observability.Field(nil), r.fields...), fields...)}
}

func TestFromOr(t *testing.T) {
	fallback := &recordingLogger{Logger: observability.NopLogger()}

	assert.Same(t, fallback, logctx.FromOr(context.Background(), fallback))
	assert.NotNil(t, logctx.FromOr(context.Background(), nil))

	scoped := &recordingLogger{Logger: observability.NopLogger()}
	ctx := logctx.With(context.Background(), scoped)
	assert.Same(t, scoped, logctx.FromOr(ctx, fallback))
}

func TestEnrich(t *testing.T) {
	base := &recordingLogger{Logger: observability.NopLogger()}
	ctx := logctx.Enrich(context.Background(), base, observability.F("order_id", "o-1"))

	got, ok := logctx.From(ctx).(*recordingLogger)
	assert.True(t, ok)
	assert.Equal(t, []observability.Field{observability.F("order_id", "o-1")}, got.fields)
}
