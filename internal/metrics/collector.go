// Package metrics exports publisher counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cloudpico-telemetry/internal/publisher"
)

const namespace = "cloudpico"

// Source yields the current publisher snapshot at scrape time.
type Source interface {
	Snapshot() publisher.Snapshot
}

// Collector reads snapshots on every scrape instead of mirroring each
// counter update.
type Collector struct {
	sources []Source

	ticks          *prometheus.Desc
	sampleFailures *prometheus.Desc
	encodeFailures *prometheus.Desc
	delivered      *prometheus.Desc
	sendFailures   *prometheus.Desc
	gated          *prometheus.Desc
	connected      *prometheus.Desc
	interval       *prometheus.Desc
}

func NewCollector(sources ...Source) *Collector {
	labels := []string{"publisher"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "publisher", name), help, labels, nil)
	}
	return &Collector{
		sources:        sources,
		ticks:          desc("ticks_total", "Timer ticks handled."),
		sampleFailures: desc("sample_failures_total", "Ticks skipped because the source failed."),
		encodeFailures: desc("encode_failures_total", "Ticks skipped because encoding failed."),
		delivered:      desc("delivered_total", "Frames accepted by the transport."),
		sendFailures:   desc("send_failures_total", "Frames the transport rejected."),
		gated:          desc("gated_total", "Frames dropped while no peer was connected."),
		connected:      desc("connected", "1 while a peer is connected."),
		interval:       desc("interval_seconds", "Configured tick interval."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ticks
	ch <- c.sampleFailures
	ch <- c.encodeFailures
	ch <- c.delivered
	ch <- c.sendFailures
	ch <- c.gated
	ch <- c.connected
	ch <- c.interval
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, src := range c.sources {
		s := src.Snapshot()
		counter := func(d *prometheus.Desc, v uint64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), s.Name)
		}
		counter(c.ticks, s.Stats.Ticks)
		counter(c.sampleFailures, s.Stats.SampleFailures)
		counter(c.encodeFailures, s.Stats.EncodeFailures)
		counter(c.delivered, s.Stats.Delivered)
		counter(c.sendFailures, s.Stats.SendFailures)
		counter(c.gated, s.Stats.Gated)

		connected := 0.0
		if s.State == publisher.StateConnected.String() {
			connected = 1
		}
		ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, connected, s.Name)
		ch <- prometheus.MustNewConstMetric(c.interval, prometheus.GaugeValue, s.Interval.Seconds(), s.Name)
	}
}

// Handler serves the publisher metrics plus the Go runtime collectors from
// a private registry.
func Handler(sources ...Source) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(sources...),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
