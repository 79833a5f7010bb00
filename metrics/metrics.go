package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the gauges describing a single conversion run. Each
// Collector has its own registry so runs never share state.
type Collector struct {
	registry *prometheus.Registry

	records      *prometheus.GaugeVec
	payloadBytes prometheus.Gauge
	paddingBytes prometheus.Gauge
	pages        prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "avrbootjack",
			Name:      "hex_records",
			Help:      "Intel HEX records read, by disposition",
		}, []string{"disposition"}),
		payloadBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "avrbootjack",
			Name:      "payload_bytes",
			Help:      "Data record bytes before padding",
		}),
		paddingBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "avrbootjack",
			Name:      "padding_bytes",
			Help:      "Fill bytes appended to reach a page boundary",
		}),
		pages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "avrbootjack",
			Name:      "pages",
			Help:      "Flash pages in the generated image",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "avrbootjack",
			Name:      "last_success_timestamp_seconds",
			Help:      "Last successful conversion (unix time in seconds)",
		}),
	}

	c.registry.MustRegister(c.records, c.payloadBytes, c.paddingBytes, c.pages, c.lastSuccess)
	return c
}

// Observe records the outcome of a conversion that finished at ts.
func (c *Collector) Observe(dataRecords, skipped uint, payload, padding, pages int, ts time.Time) {
	c.records.WithLabelValues("data").Set(float64(dataRecords))
	c.records.WithLabelValues("skipped").Set(float64(skipped))
	c.payloadBytes.Set(float64(payload))
	c.paddingBytes.Set(float64(padding))
	c.pages.Set(float64(pages))
	c.lastSuccess.Set(float64(ts.Unix()))
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile dumps the gauges in the text exposition format for the
// node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return errors.Wrapf(prometheus.WriteToTextfile(path, c.registry), "write metrics to %s", path)
}
