package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New returns a tracer bound to the global otel TracerProvider.
// Exporters are a deployment concern: set otel.SetTracerProvider before serving.
func New(name string) observability.Tracer {
	if name == "" {
		name = "artisanmart"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
