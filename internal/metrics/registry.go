// Package metrics keeps in-process counters, histograms and timers for the
// location store and the HTTP surface, and reports them periodically.
package metrics

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Names of the metrics recorded by the location store.
const (
	NotFound      = "location-store.not-found"
	BadRequest    = "location-store.bad-request"
	ListSize      = "location-store.list-size"
	ListSortTimer = "location-store.list-sort-timer"
)

// Counter is a monotonically increasing count.
type Counter struct {
	n atomic.Int64
}

// Inc adds one.
func (c *Counter) Inc() { c.n.Add(1) }

// Count returns the current value.
func (c *Counter) Count() int64 { return c.n.Load() }

// Histogram tracks the distribution of a series of values.
type Histogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

// HistogramSnapshot is a point-in-time copy of a Histogram.
type HistogramSnapshot struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Sum   float64 `json:"sum"`
}

// Update records one value.
func (h *Histogram) Update(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		h.min, h.max = v, v
	} else {
		h.min = math.Min(h.min, v)
		h.max = math.Max(h.max, v)
	}
	h.count++
	h.sum += v
}

// Snapshot returns the current distribution.
func (h *Histogram) Snapshot() HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := HistogramSnapshot{Count: h.count, Min: h.min, Max: h.max, Sum: h.sum}
	if h.count > 0 {
		s.Mean = h.sum / float64(h.count)
	}
	return s
}

// Timer is a Histogram of durations, kept in nanoseconds.
type Timer struct {
	Histogram
}

// Update records one duration.
func (t *Timer) Update(d time.Duration) {
	t.Histogram.Update(float64(d.Nanoseconds()))
}

// Time runs fn and records how long it took.
func (t *Timer) Time(fn func()) {
	began := time.Now()
	defer func() { t.Update(time.Since(began)) }()
	fn()
}

// Registry owns named metrics. Metrics are created on first use.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	histograms map[string]*Histogram
	timers     map[string]*Timer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		histograms: make(map[string]*Histogram),
		timers:     make(map[string]*Timer),
	}
}

// Counter returns the named counter, creating it if needed.
func (r *Registry) Counter(name string) *Counter {
	return getOrCreate(r, r.counters, name)
}

// Histogram returns the named histogram, creating it if needed.
func (r *Registry) Histogram(name string) *Histogram {
	return getOrCreate(r, r.histograms, name)
}

// Timer returns the named timer, creating it if needed.
func (r *Registry) Timer(name string) *Timer {
	return getOrCreate(r, r.timers, name)
}

func getOrCreate[M any](r *Registry, metrics map[string]*M, name string) *M {
	r.mu.RLock()
	m, ok := metrics[name]
	r.mu.RUnlock()
	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok = metrics[name]; !ok {
		m = new(M)
		metrics[name] = m
	}
	return m
}

// Snapshot is a point-in-time copy of every metric in a Registry.
type Snapshot struct {
	Counters   map[string]int64             `json:"counters"`
	Histograms map[string]HistogramSnapshot `json:"histograms"`
	Timers     map[string]HistogramSnapshot `json:"timers"`
}

// Snapshot copies the current value of every metric.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Snapshot{
		Counters:   make(map[string]int64, len(r.counters)),
		Histograms: make(map[string]HistogramSnapshot, len(r.histograms)),
		Timers:     make(map[string]HistogramSnapshot, len(r.timers)),
	}
	for name, c := range r.counters {
		s.Counters[name] = c.Count()
	}
	for name, h := range r.histograms {
		s.Histograms[name] = h.Snapshot()
	}
	for name, t := range r.timers {
		s.Timers[name] = t.Snapshot()
	}
	return s
}

// Names returns every registered metric name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.counters)+len(r.histograms)+len(r.timers))
	for name := range r.counters {
		names = append(names, name)
	}
	for name := range r.histograms {
		names = append(names, name)
	}
	for name := range r.timers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StoreMetrics records location store measurements into a Registry.
type StoreMetrics struct {
	notFound   *Counter
	badRequest *Counter
	listSize   *Histogram
	listSort   *Timer
}

// NewStoreMetrics registers the store metrics in r.
func NewStoreMetrics(r *Registry) *StoreMetrics {
	return &StoreMetrics{
		notFound:   r.Counter(NotFound),
		badRequest: r.Counter(BadRequest),
		listSize:   r.Histogram(ListSize),
		listSort:   r.Timer(ListSortTimer),
	}
}

func (m *StoreMetrics) NotFound()                { m.notFound.Inc() }
func (m *StoreMetrics) BadRequest()              { m.badRequest.Inc() }
func (m *StoreMetrics) ListSize(n int)           { m.listSize.Update(float64(n)) }
func (m *StoreMetrics) ListSort(d time.Duration) { m.listSort.Update(d) }
