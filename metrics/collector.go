package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ardnew/softnoc/noc"
	"github.com/ardnew/softnoc/pkg"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "noc"

// Source provides adapter statistics. *noc.Adapter implements it.
type Source interface {
	Stats() noc.Stats
}

// Collector exports adapter statistics as Prometheus metrics. Values are
// read from the source on every scrape.
type Collector struct {
	source Source

	rxPackets *prometheus.Desc
	rxWords   *prometheus.Desc
	txPackets *prometheus.Desc
	txWords   *prometheus.Desc
	dropped   *prometheus.Desc
	queued    *prometheus.Desc
	open      *prometheus.Desc

	polls        *prometheus.Desc
	passes       *prometheus.Desc
	capHits      *prometheus.Desc
	malformed    *prometheus.Desc
	unregistered *prometheus.Desc
	control      *prometheus.Desc
}

// NewCollector creates a collector for source. An empty namespace selects
// DefaultNamespace.
func NewCollector(source Source, namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		source: source,

		rxPackets: desc("rx_packets_total", "Packets routed to an open endpoint.", "endpoint"),
		rxWords:   desc("rx_words_total", "Words queued on an endpoint receive ring.", "endpoint"),
		txPackets: desc("tx_packets_total", "Packets sent on an endpoint.", "endpoint"),
		txWords:   desc("tx_words_total", "Payload words sent on an endpoint.", "endpoint"),
		dropped:   desc("dropped_words_total", "Received words discarded, by reason.", "endpoint", "reason"),
		queued:    desc("queued_words", "Words waiting in an endpoint receive ring.", "endpoint"),
		open:      desc("endpoint_open", "Whether an endpoint has an opener.", "endpoint"),

		polls:        desc("polls_total", "Multiplexer invocations."),
		passes:       desc("passes_total", "Multiplexer scans over all endpoints."),
		capHits:      desc("pass_limit_hits_total", "Multiplexer invocations stopped by the pass limit."),
		malformed:    desc("malformed_packets_total", "Oversize packets drained and discarded."),
		unregistered: desc("unregistered_packets_total", "Classified packets dropped for lack of a handler."),
		control:      desc("control_packets_total", "Control-class packets received."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.rxPackets, c.rxWords, c.txPackets, c.txWords, c.dropped, c.queued, c.open,
		c.polls, c.passes, c.capHits, c.malformed, c.unregistered, c.control,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.source.Stats()

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	for _, ep := range st.Endpoints {
		id := strconv.Itoa(ep.Index)
		counter(c.rxPackets, ep.RxPackets, id)
		counter(c.rxWords, ep.RxWords, id)
		counter(c.txPackets, ep.TxPackets, id)
		counter(c.txWords, ep.TxWords, id)
		for r := pkg.DropMalformed; r < pkg.NumDropReasons; r++ {
			counter(c.dropped, ep.Dropped[r], id, r.String())
		}
		gauge(c.queued, float64(ep.Queued), id)
		open := 0.0
		if ep.Open {
			open = 1
		}
		gauge(c.open, open, id)
	}

	counter(c.polls, st.Polls)
	counter(c.passes, st.Passes)
	counter(c.capHits, st.CapHits)
	counter(c.malformed, st.Malformed)
	counter(c.unregistered, st.Unregistered)
	counter(c.control, st.Control)
}

var _ prometheus.Collector = (*Collector)(nil)
