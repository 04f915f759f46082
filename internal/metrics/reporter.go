package metrics

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/process"
)

// SizeFunc reports a gauge-like value sampled at each report, such as the
// number of stored locations.
type SizeFunc func() int

// Reporter periodically logs a snapshot of a Registry together with process
// statistics.
type Reporter struct {
	registry *Registry
	interval time.Duration
	size     SizeFunc
	logger   zerolog.Logger
	proc     *process.Process

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReporter creates a Reporter. size may be nil.
func NewReporter(registry *Registry, interval time.Duration, size SizeFunc, logger zerolog.Logger) *Reporter {
	r := &Reporter{
		registry: registry,
		interval: interval,
		size:     size,
		logger:   logger.With().Str("component", "metrics-reporter").Logger(),
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		r.logger.Warn().Err(err).Msg("Process statistics unavailable")
	} else {
		r.proc = proc
	}
	return r
}

// Start begins periodic reporting until Stop is called or ctx is cancelled.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return errors.New("metrics reporter is already running")
	}
	if r.interval <= 0 {
		return errors.New("metrics reporter needs a positive interval")
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.run(ctx)

	r.logger.Info().Dur("interval", r.interval).Msg("Metrics reporter started")
	return nil
}

// Stop halts reporting and emits a final report.
func (r *Reporter) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
	r.Report()
	r.logger.Info().Msg("Metrics reporter stopped")
}

func (r *Reporter) run(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Report()
		}
	}
}

// Report logs one snapshot.
func (r *Reporter) Report() {
	snap := r.registry.Snapshot()

	event := r.logger.Info()
	for _, name := range sortedKeys(snap.Counters) {
		event = event.Int64(name, snap.Counters[name])
	}
	for _, name := range sortedKeys(snap.Histograms) {
		event = event.Dict(name, histogramDict(snap.Histograms[name]))
	}
	for _, name := range sortedKeys(snap.Timers) {
		event = event.Dict(name, histogramDict(snap.Timers[name]))
	}
	if r.size != nil {
		event = event.Int("locations", r.size())
	}
	event = event.Int("goroutines", runtime.NumGoroutine())
	if r.proc != nil {
		if mem, err := r.proc.MemoryInfo(); err == nil {
			event = event.Uint64("rss_bytes", mem.RSS)
		}
		if cpu, err := r.proc.CPUPercent(); err == nil {
			event = event.Float64("cpu_percent", cpu)
		}
	}
	event.Msg("Metrics report")
}

func histogramDict(h HistogramSnapshot) *zerolog.Event {
	return zerolog.Dict().
		Int64("count", h.Count).
		Float64("min", h.Min).
		Float64("max", h.Max).
		Float64("mean", h.Mean)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
