package qorus

// forwardOptions collects per-call Forward configuration, following
// the same closure-option pattern as LoadOption (modelfile.go).
type forwardOptions struct {
	tracer *Tracer
}

// ForwardOption configures a single Forward call.
type ForwardOption func(*forwardOptions)

// WithTracer attaches a Tracer that records one TraceRecord per layer
// evaluated during the call, per trace.go's bounded diagnostic
// recorder.
func WithTracer(t *Tracer) ForwardOption {
	return func(o *forwardOptions) { o.tracer = t }
}
