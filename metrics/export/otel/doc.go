// Package otel publishes engine counters through an OpenTelemetry Meter.
//
// [NewExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per latency bucket. One callback reads the snapshot
// on each collection cycle. Callers own the MeterProvider.
package otel
