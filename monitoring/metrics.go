package monitoring

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"
)

// Outcome classifies a finished prediction.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

var outcomes = []Outcome{OutcomeOK, OutcomeRejected, OutcomeFailed}

// AppStats is a point-in-time copy of one app's counters.
type AppStats struct {
	App          string            `json:"app"`
	Outcomes     map[Outcome]int64 `json:"outcomes"`
	Count        int64             `json:"count"`
	AvgLatencyMS float64           `json:"avg_latency_ms"`
	MaxLatencyMS float64           `json:"max_latency_ms"`
	LastAt       time.Time         `json:"last_at"`
}

type appCounters struct {
	outcomes map[Outcome]int64
	count    int64
	total    time.Duration
	max      time.Duration
	last     time.Time
}

// MetricsCollector counts predictions per app and outcome and tracks model
// latency. Safe for concurrent use.
type MetricsCollector struct {
	mu        sync.RWMutex
	apps      map[string]*appCounters
	startTime time.Time
}

// NewMetricsCollector starts the uptime clock at the time of the call.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		apps:      make(map[string]*appCounters),
		startTime: time.Now(),
	}
}

// Observe counts one finished prediction of app and its latency.
func (mc *MetricsCollector) Observe(app string, outcome Outcome, took time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	c, ok := mc.apps[app]
	if !ok {
		c = &appCounters{outcomes: make(map[Outcome]int64, len(outcomes))}
		mc.apps[app] = c
	}
	c.outcomes[outcome]++
	c.count++
	c.total += took
	c.max = max(c.max, took)
	c.last = time.Now()
}

// Snapshot returns the per-app stats sorted by app name.
func (mc *MetricsCollector) Snapshot() []AppStats {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	out := make([]AppStats, 0, len(mc.apps))
	for name, c := range mc.apps {
		s := AppStats{
			App:          name,
			Outcomes:     make(map[Outcome]int64, len(outcomes)),
			Count:        c.count,
			MaxLatencyMS: milliseconds(c.max),
			LastAt:       c.last,
		}
		for _, o := range outcomes {
			s.Outcomes[o] = c.outcomes[o]
		}
		if c.count > 0 {
			s.AvgLatencyMS = milliseconds(c.total) / float64(c.count)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].App < out[j].App })
	return out
}

// Uptime is the time since the collector was created.
func (mc *MetricsCollector) Uptime() time.Duration {
	return time.Since(mc.startTime)
}

// SystemStats reports process level numbers next to the prediction stats.
func (mc *MetricsCollector) SystemStats() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]any{
		"uptime":     mc.Uptime().String(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]any{
			"alloc":      m.Alloc,
			"sys":        m.Sys,
			"heap_alloc": m.HeapAlloc,
			"heap_inuse": m.HeapInuse,
			"gc_count":   m.NumGC,
		},
		"num_cpu": runtime.NumCPU(),
	}
}

// ExportPrometheus writes the counters in the Prometheus text format.
func (mc *MetricsCollector) ExportPrometheus(w io.Writer) error {
	stats := mc.Snapshot()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	ew := &errWriter{w: w}
	ew.printf("# HELP modeldemos_predictions_total Predictions served, by app and outcome.\n")
	ew.printf("# TYPE modeldemos_predictions_total counter\n")
	for _, s := range stats {
		for _, o := range outcomes {
			ew.printf("modeldemos_predictions_total{app=%q,outcome=%q} %d\n", s.App, o, s.Outcomes[o])
		}
	}
	ew.printf("# HELP modeldemos_prediction_latency_avg_ms Mean model latency in milliseconds.\n")
	ew.printf("# TYPE modeldemos_prediction_latency_avg_ms gauge\n")
	for _, s := range stats {
		ew.printf("modeldemos_prediction_latency_avg_ms{app=%q} %g\n", s.App, s.AvgLatencyMS)
	}
	ew.printf("# HELP modeldemos_uptime_seconds Process uptime.\n")
	ew.printf("# TYPE modeldemos_uptime_seconds gauge\n")
	ew.printf("modeldemos_uptime_seconds %g\n", mc.Uptime().Seconds())
	ew.printf("# HELP modeldemos_goroutines Number of goroutines.\n")
	ew.printf("# TYPE modeldemos_goroutines gauge\n")
	ew.printf("modeldemos_goroutines %d\n", runtime.NumGoroutine())
	ew.printf("# HELP modeldemos_heap_alloc_bytes Heap bytes allocated.\n")
	ew.printf("# TYPE modeldemos_heap_alloc_bytes gauge\n")
	ew.printf("modeldemos_heap_alloc_bytes %d\n", m.HeapAlloc)
	return ew.err
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
