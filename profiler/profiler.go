// Package profiler - Operation timing and metric aggregation for detection runs.
package profiler

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxSamples bounds the rolling window kept per metric.
const DefaultMaxSamples = 600

// MetricTracker tracks statistics for a custom metric.
type MetricTracker struct {
	values []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// MetricStats is a snapshot of one metric over its rolling window.
type MetricStats struct {
	Name    string  `json:"name"`
	Avg     float64 `json:"avg"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Total   int64   `json:"total"`
	Samples int     `json:"samples"`
}

// TimingStats is a snapshot of one operation over its rolling window.
type TimingStats struct {
	Name    string        `json:"name"`
	Avg     time.Duration `json:"avg"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	Total   int64         `json:"total"`
	Samples int           `json:"samples"`
}

// Snapshot is a point-in-time view of every tracked metric and operation, sorted by name.
type Snapshot struct {
	Uptime     time.Duration `json:"uptime"`
	Metrics    []MetricStats `json:"metrics"`
	Operations []TimingStats `json:"operations"`
}

// Profiler aggregates operation durations and custom metric values.
//
// Min and max cover every recorded value; averages cover the last maxSamples values.
// It is safe for concurrent use.
type Profiler struct {
	mu             sync.RWMutex
	startTime      time.Time
	maxSamples     int
	customMetrics  map[string]*MetricTracker
	operationTimes map[string]*TimeTracker
}

// New creates a profiler keeping at most maxSamples values per metric.
// A maxSamples <= 0 uses DefaultMaxSamples.
func New(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Profiler{
		startTime:      time.Now(),
		maxSamples:     maxSamples,
		customMetrics:  make(map[string]*MetricTracker),
		operationTimes: make(map[string]*TimeTracker),
	}
}

// RecordMetric records a custom metric value.
//
// Arguments:
// - name: The name of the metric
// - value: The metric value to record
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.customMetrics[name]
	if !exists {
		tracker = &MetricTracker{
			values: make([]float64, 0, min(p.maxSamples, 64)),
			min:    value,
			max:    value,
		}
		p.customMetrics[name] = tracker
	}

	tracker.values = append(tracker.values, value)
	tracker.sum += value
	if len(tracker.values) > p.maxSamples {
		// Remove oldest sample
		tracker.sum -= tracker.values[0]
		tracker.values = tracker.values[1:]
	}
	tracker.count++
	tracker.min = min(tracker.min, value)
	tracker.max = max(tracker.max, value)
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.RecordDuration(name, time.Since(start))
	}
}

// RecordDuration records the completion time of an operation.
func (p *Profiler) RecordDuration(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{
			minTime: duration,
			maxTime: duration,
		}
		p.operationTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	tracker.totalTime += duration
	if len(tracker.durations) > p.maxSamples {
		// Remove oldest sample
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}
	tracker.count++
	tracker.minTime = min(tracker.minTime, duration)
	tracker.maxTime = max(tracker.maxTime, duration)
}

// Snapshot returns the current statistics.
func (p *Profiler) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := Snapshot{
		Uptime:     time.Since(p.startTime),
		Metrics:    make([]MetricStats, 0, len(p.customMetrics)),
		Operations: make([]TimingStats, 0, len(p.operationTimes)),
	}

	for name, tracker := range p.customMetrics {
		if len(tracker.values) == 0 {
			continue
		}
		snap.Metrics = append(snap.Metrics, MetricStats{
			Name:    name,
			Avg:     tracker.sum / float64(len(tracker.values)),
			Min:     tracker.min,
			Max:     tracker.max,
			Total:   tracker.count,
			Samples: len(tracker.values),
		})
	}
	for name, tracker := range p.operationTimes {
		if len(tracker.durations) == 0 {
			continue
		}
		snap.Operations = append(snap.Operations, TimingStats{
			Name:    name,
			Avg:     tracker.totalTime / time.Duration(len(tracker.durations)),
			Min:     tracker.minTime,
			Max:     tracker.maxTime,
			Total:   tracker.count,
			Samples: len(tracker.durations),
		})
	}

	sort.Slice(snap.Metrics, func(i, j int) bool { return snap.Metrics[i].Name < snap.Metrics[j].Name })
	sort.Slice(snap.Operations, func(i, j int) bool { return snap.Operations[i].Name < snap.Operations[j].Name })
	return snap
}

// Report logs the current statistics at info level.
func (p *Profiler) Report(logger *zap.Logger) {
	snap := p.Snapshot()
	for _, m := range snap.Metrics {
		logger.Info("metric",
			zap.String("name", m.Name),
			zap.Float64("avg", m.Avg),
			zap.Float64("min", m.Min),
			zap.Float64("max", m.Max),
			zap.Int64("total", m.Total),
		)
	}
	for _, op := range snap.Operations {
		logger.Info("operation timing",
			zap.String("name", op.Name),
			zap.Duration("avg", op.Avg.Truncate(time.Microsecond)),
			zap.Duration("min", op.Min.Truncate(time.Microsecond)),
			zap.Duration("max", op.Max.Truncate(time.Microsecond)),
			zap.Int64("count", op.Total),
		)
	}
}

// Reset clears all metrics and restarts the uptime clock.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.customMetrics = make(map[string]*MetricTracker)
	p.operationTimes = make(map[string]*TimeTracker)
}
