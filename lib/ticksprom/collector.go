// Package ticksprom exports ticks.Tracker state as Prometheus metrics.
package ticksprom

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/lib/ticks"
)

// Collector is a prometheus.Collector that reads each registered Tracker's
// Data snapshot at scrape time.
type Collector struct {
	registry *ticks.Registry

	countDesc    *prometheus.Desc
	rateDesc     *prometheus.Desc
	advancesDesc *prometheus.Desc
	droppedDesc  *prometheus.Desc

	mu       sync.Mutex
	trackers []namedTracker
}

type namedTracker struct {
	name    string
	tracker *ticks.Tracker
}

// NewCollector returns a Collector reporting dropped notifications for every
// channel of reg.  An empty namespace means constants.MetricNamespace.
func NewCollector(namespace string, reg *ticks.Registry) *Collector {
	if reg == nil {
		panic(errors.New("*ticks.Registry is nil"))
	}
	if namespace == "" {
		namespace = constants.MetricNamespace
	}

	return &Collector{
		registry: reg,
		countDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "count"),
			"current value of the wrapping pulse counter",
			[]string{"tracker", "channel"},
			nil,
		),
		rateDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "rate_per_second"),
			"pulses per second over the given window, in base periods",
			[]string{"tracker", "channel", "window"},
			nil,
		),
		advancesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "buffer_advances_total"),
			"number of samples recorded into each sample buffer",
			[]string{"tracker", "channel", "buffer"},
			nil,
		),
		droppedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "dropped_notifications_total"),
			"number of notifications that arrived on a channel with no tracker bound",
			[]string{"channel"},
			nil,
		),
	}
}

// Add starts exporting t under the given name.
func (c *Collector) Add(name string, t *ticks.Tracker) {
	if t == nil {
		panic(errors.New("*ticks.Tracker is nil"))
	}
	c.mu.Lock()
	c.trackers = append(c.trackers, namedTracker{name: name, tracker: t})
	c.mu.Unlock()
}

// Describe fulfills prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.countDesc
	ch <- c.rateDesc
	ch <- c.advancesDesc
	ch <- c.droppedDesc
}

// Collect fulfills prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	trackers := c.trackers
	c.mu.Unlock()

	for _, nt := range trackers {
		data := nt.tracker.Data()
		channel := strconv.FormatUint(uint64(data.Channel), 10)

		ch <- prometheus.MustNewConstMetric(c.countDesc, prometheus.GaugeValue, float64(data.Count), nt.name, channel)

		ch <- prometheus.MustNewConstMetric(c.rateDesc, prometheus.GaugeValue, data.InstantRate, nt.name, channel, "instant")
		ch <- prometheus.MustNewConstMetric(c.rateDesc, prometheus.GaugeValue, data.Rate1Period, nt.name, channel, "1")
		ch <- prometheus.MustNewConstMetric(c.rateDesc, prometheus.GaugeValue, data.Rate5Periods, nt.name, channel, "5")
		ch <- prometheus.MustNewConstMetric(c.rateDesc, prometheus.GaugeValue, data.Rate25Periods, nt.name, channel, "25")

		ch <- prometheus.MustNewConstMetric(c.advancesDesc, prometheus.CounterValue, float64(data.ShortAdvances), nt.name, channel, "short")
		ch <- prometheus.MustNewConstMetric(c.advancesDesc, prometheus.CounterValue, float64(data.LongAdvances), nt.name, channel, "long")
	}

	for index, length := uint(0), c.registry.Len(); index < length; index++ {
		channel := strconv.FormatUint(uint64(index), 10)
		dropped := c.registry.Dropped(ticks.Channel(index))
		ch <- prometheus.MustNewConstMetric(c.droppedDesc, prometheus.CounterValue, float64(dropped), channel)
	}
}

var _ prometheus.Collector = (*Collector)(nil)
