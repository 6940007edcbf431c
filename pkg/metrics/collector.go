// Package metrics exposes the core's operational counters as a Prometheus
// text-format handler, built directly on client_model's generated types and
// common/expfmt's encoder rather than a full client library, matching how
// the host application's own aggregated metrics handler is built.
package metrics

import (
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Collector accumulates counters describing how vector reads were resolved:
// how many HTTP round trips were issued and how each call's multirange
// attempt was ultimately settled. RecordRoundTrip and RecordOutcome are
// no-ops on a nil *Collector, so wiring one into an Orchestrator is
// optional; WriteText and Handler need a non-nil Collector.
type Collector struct {
	roundTrips int64

	mu       sync.Mutex
	outcomes map[string]int64
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{outcomes: make(map[string]int64)}
}

// RecordRoundTrip increments the HTTP round-trip counter.
func (c *Collector) RecordRoundTrip() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.roundTrips, 1)
}

// RecordOutcome increments the counter for the given outcome label (the
// MultirangeOutcome's String() form).
func (c *Collector) RecordOutcome(label string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[label]++
}

// snapshot returns the current counters as Prometheus metric families.
func (c *Collector) snapshot() map[string]*dto.MetricFamily {
	families := make(map[string]*dto.MetricFamily)

	families["rangehttp_round_trips_total"] = counterFamily(
		"rangehttp_round_trips_total",
		"Total HTTP round trips issued by vector reads.",
		float64(atomic.LoadInt64(&c.roundTrips)),
		nil,
	)

	c.mu.Lock()
	labels := make([]string, 0, len(c.outcomes))
	values := make(map[string]int64, len(c.outcomes))
	for label, n := range c.outcomes {
		labels = append(labels, label)
		values[label] = n
	}
	c.mu.Unlock()
	sort.Strings(labels)

	family := &dto.MetricFamily{
		Name: strPtr("rangehttp_call_outcomes_total"),
		Help: strPtr("Total vector read calls by how their multirange attempt resolved."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, label := range labels {
		v := float64(values[label])
		family.Metric = append(family.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: strPtr("outcome"), Value: strPtr(label)}},
			Counter: &dto.Counter{Value: &v},
		})
	}
	families["rangehttp_call_outcomes_total"] = family

	return families
}

func counterFamily(name, help string, value float64, labels []*dto.LabelPair) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: strPtr(name),
		Help: strPtr(help),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{
			{Label: labels, Counter: &dto.Counter{Value: &value}},
		},
	}
}

func strPtr(s string) *string { return &s }

// WriteText encodes the Collector's counters in Prometheus text exposition
// format to w. Shared by Handler and by one-shot callers (the CLI prints a
// snapshot after a single fetch rather than standing up a scrape endpoint
// for a process that is about to exit).
func (c *Collector) WriteText(w io.Writer) error {
	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	families := c.snapshot()
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := encoder.Encode(families[name]); err != nil {
			return err
		}
	}
	return nil
}

// Handler is an http.Handler that serves the Collector's counters in
// Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = c.WriteText(w)
	})
}
