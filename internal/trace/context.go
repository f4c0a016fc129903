package trace

import "context"

type tracerKey struct{}

type parentKey struct{}

// FromContext returns the tracer carried by ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx. A nil t attaches Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// WithSpan makes s the parent of spans begun from the returned context.
// Inert spans leave ctx unchanged.
func WithSpan(ctx context.Context, s *Span) context.Context {
	if ctx == nil || s.ID() == 0 {
		return ctx
	}
	return context.WithValue(ctx, parentKey{}, s.ID())
}

// ParentID returns the span attached with WithSpan, or 0 for a root.
func ParentID(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(parentKey{}).(uint64)
	return id
}
