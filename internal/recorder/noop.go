package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordProfile(_ *ProfileSnapshot) error { return nil }
func (n *NoopRecorder) RecordGrowth(_ *GrowthReading) error    { return nil }
func (n *NoopRecorder) GrowthHistory(_ string, _ int) ([]GrowthReading, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
