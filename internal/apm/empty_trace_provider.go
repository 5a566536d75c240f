package apm

type emptyTraceProvider struct{}

// NewEmptyTraceProvider returns a provider whose Stop does nothing.
func NewEmptyTraceProvider() TraceProvider {
	return emptyTraceProvider{}
}

func (emptyTraceProvider) Stop() error {
	return nil
}
