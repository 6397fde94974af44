// Package otel provides OpenTelemetry metric exporter bindings for goBiometric
// counters and histograms.
//
// [NewOTelExporter] registers Int64ObservableCounter instruments for each goBiometric
// metric and Int64ObservableGauge per histogram bucket. A single callback reads
// [goBiometric.Broker.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate broker state.
package otel
