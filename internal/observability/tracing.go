package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Tracing installs the global tracer provider for the lifetime of the process.
type Tracing struct {
	mu sync.Mutex
	tp *sdktrace.TracerProvider
}

func NewTracing() *Tracing {
	return &Tracing{}
}

func (t *Tracing) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tp != nil {
		return nil
	}
	t.tp = sdktrace.NewTracerProvider()
	otel.SetTracerProvider(t.tp)
	return nil
}

func (t *Tracing) Stop(ctx context.Context) error {
	t.mu.Lock()
	tp := t.tp
	t.tp = nil
	t.mu.Unlock()
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
