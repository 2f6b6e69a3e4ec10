package telemetry

import "context"

// NoopLog discards every write; used when telemetry.Config.Enabled is
// false, which is the default (spec.md's ambient stack carries an audit
// log, it never forces one on by default).
type NoopLog struct{}

func (l *NoopLog) RecordStart(ctx context.Context, rec RequestRecord) error { return nil }

func (l *NoopLog) RecordEnd(ctx context.Context, id string, status RequestStatus, errorKind string, numTurns, toolUseCount int, totalCostUSD float64) error {
	return nil
}

func (l *NoopLog) List(ctx context.Context, opts ListOptions) ([]RequestRecord, error) {
	return nil, nil
}

func (l *NoopLog) Summarize(ctx context.Context, opts ListOptions) (Summary, error) {
	return Summary{}, nil
}

func (l *NoopLog) Close() error { return nil }
