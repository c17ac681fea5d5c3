package otel

import "context"

// NoopExporter discards all engine metrics. Used when OTEL export is
// disabled.
type NoopExporter struct{}

func NewNoopExporter() *NoopExporter { return &NoopExporter{} }

func (*NoopExporter) AssignmentCreated(context.Context, string, string) {}

func (*NoopExporter) SubjectExcluded(context.Context, string) {}

func (*NoopExporter) ObservationRecorded(context.Context, string, string) {}

func (*NoopExporter) Close(context.Context) error { return nil }
