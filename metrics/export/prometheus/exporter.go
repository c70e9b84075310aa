package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	credgate "github.com/MrEthical07/credgate"
	"github.com/MrEthical07/credgate/metrics/export/internaldefs"
)

// MetricsSource is the read side of an engine. *credgate.Engine satisfies
// it.
type MetricsSource interface {
	MetricsSnapshot() credgate.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   credgate.MetricID
	desc *prometheus.Desc
}

type histogramDesc struct {
	id   credgate.MetricID
	desc *prometheus.Desc
}

// Collector is a prometheus.Collector that reads a fresh snapshot on every
// scrape.
type Collector struct {
	source     MetricsSource
	counters   []counterDesc
	histograms []histogramDesc
	dropped    *prometheus.Desc
	bounds     []float64
}

// NewCollector returns a Collector over source.
func NewCollector(source MetricsSource) *Collector {
	c := &Collector{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		dropped:    prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
		bounds:     internaldefs.UpperBounds(),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	for _, hd := range c.histograms {
		ch <- hd.desc
	}
	ch <- c.dropped
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for _, cd := range c.counters {
		ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(snapshot.Counters[cd.id]))
	}
	for _, hd := range c.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[hd.id]))
		buckets := make(map[float64]uint64, len(c.bounds))
		for i, le := range c.bounds {
			buckets[le] = cumulative[i]
		}
		// Snapshots carry no sample sum.
		ch <- prometheus.MustNewConstHistogram(hd.desc, cumulative[len(cumulative)-1], 0, buckets)
	}
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
}

// NewRegistry returns a registry holding only a Collector over source.
func NewRegistry(source MetricsSource) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(source))
	return reg
}

// Handler serves source in the Prometheus exposition format.
func Handler(source MetricsSource) http.Handler {
	return promhttp.HandlerFor(NewRegistry(source), promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values to path for the node_exporter
// textfile collector.
func WriteTextfile(path string, source MetricsSource) error {
	return prometheus.WriteToTextfile(path, NewRegistry(source))
}
