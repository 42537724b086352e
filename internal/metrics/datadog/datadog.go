// Package datadog sends copy-run metrics to a DogStatsD agent.
//
// Metric names are mapped onto Datadog's dotted style under the configured
// namespace: table and row counters become "tables", "rows" and "batches",
// and table durations are sent as timings named "table.duration". The job is
// a global tag; the remaining labels become sorted "key:value" tags.
package datadog

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/samber/lo"

	"dbstream/internal/metrics"
)

// Config holds Datadog backend configuration.
type Config struct {
	// Addr is the DogStatsD address, e.g. "127.0.0.1:8125" or "unix:///path/to/socket".
	Addr string
	// Namespace prefixes every metric name, e.g. "dbstream.".
	Namespace string
	// Job is sent as the "job" tag on every metric.
	Job string
	// GlobalTags are extra tags for every metric, e.g. "env:prod".
	GlobalTags []string
}

// Backend is a metrics.Backend over a statsd client.
type Backend struct {
	client *statsd.Client
}

// NewBackend connects a statsd client for cfg. Addr is required.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}

	tags := slices.Clone(cfg.GlobalTags)
	if cfg.Job != "" {
		tags = append(tags, "job:"+cfg.Job)
	}
	opts := []statsd.Option{statsd.WithTags(tags)}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter sends a count. Row and batch deltas are whole numbers.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Count(metricName(name), int64(delta), labelsToTags(labels), 1)
}

// ObserveHistogram sends durations (names ending in "_seconds") as timings
// and anything else as a histogram sample.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	tags := labelsToTags(labels)
	if strings.HasSuffix(name, "_seconds") {
		d := time.Duration(value * float64(time.Second))
		_ = b.client.Timing(metricName(name), d, tags, 1)
		return
	}
	_ = b.client.Histogram(metricName(name), value, tags, 1)
}

// Flush closes the client, sending anything still buffered. Call it once at
// the end of the run.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

var names = map[string]string{
	metrics.TableTotal:    "tables",
	metrics.TableDuration: "table.duration",
	metrics.RowsTotal:     "rows",
	metrics.BatchesTotal:  "batches",
}

// metricName maps a metrics constant to its Datadog name. Unknown names keep
// their words, dotted.
func metricName(name string) string {
	if n, ok := names[name]; ok {
		return n
	}
	n := strings.TrimPrefix(name, "dbstream_")
	return strings.ReplaceAll(n, "_", ".")
}

// labelsToTags converts labels into sorted "key:value" tags. The job label is
// dropped since it travels as a global tag.
func labelsToTags(lbls metrics.Labels) []string {
	out := lo.FilterMap(lo.Entries(lbls), func(e lo.Entry[string, string], _ int) (string, bool) {
		return e.Key + ":" + e.Value, e.Key != "job"
	})
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return out
}
