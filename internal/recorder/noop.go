package recorder

import "context"

// NoopRecorder discards snapshots. Used when snapshot history is disabled.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSnapshot(_ context.Context, _ SnapshotRecord) error { return nil }
