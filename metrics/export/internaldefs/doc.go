// Package internaldefs holds the metric names, help strings and bucket
// layout shared by the exporters, so Prometheus and OpenTelemetry publish
// identical series.
//
// It performs no I/O and never imports an exporter package.
package internaldefs
