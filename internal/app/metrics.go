package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks loop timing: actions, idle callbacks and repaints.
type Metrics struct {
	// Actions
	actionCount   atomic.Uint64
	actionTotalNs atomic.Int64
	actionMaxNs   atomic.Int64
	actionErrors  atomic.Uint64

	// Idle callbacks (end-of-action flushes)
	idleCount   atomic.Uint64
	idleTotalNs atomic.Int64
	idleErrors  atomic.Uint64

	repaintCount atomic.Uint64

	startTime atomic.Int64
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.startTime.Store(time.Now().UnixNano())
	return m
}

// RecordAction records the duration of one action and whether it failed.
func (m *Metrics) RecordAction(duration time.Duration, err error) {
	ns := duration.Nanoseconds()
	m.actionCount.Add(1)
	m.actionTotalNs.Add(ns)
	if err != nil {
		m.actionErrors.Add(1)
	}

	// Update max (atomic compare-and-swap loop)
	for {
		old := m.actionMaxNs.Load()
		if ns <= old {
			break
		}
		if m.actionMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordIdle records the duration of one idle callback and whether it failed.
func (m *Metrics) RecordIdle(duration time.Duration, err error) {
	m.idleCount.Add(1)
	m.idleTotalNs.Add(duration.Nanoseconds())
	if err != nil {
		m.idleErrors.Add(1)
	}
}

// RecordRepaint records a repaint.
func (m *Metrics) RecordRepaint() {
	m.repaintCount.Add(1)
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	actionCount := m.actionCount.Load()
	idleCount := m.idleCount.Load()

	var avgActionNs int64
	if actionCount > 0 {
		avgActionNs = m.actionTotalNs.Load() / int64(actionCount)
	}

	var avgIdleNs int64
	if idleCount > 0 {
		avgIdleNs = m.idleTotalNs.Load() / int64(idleCount)
	}

	return MetricsSnapshot{
		Uptime:       time.Since(time.Unix(0, m.startTime.Load())),
		Actions:      actionCount,
		AvgActionNs:  avgActionNs,
		MaxActionNs:  m.actionMaxNs.Load(),
		ActionErrors: m.actionErrors.Load(),
		IdleRuns:     idleCount,
		AvgIdleNs:    avgIdleNs,
		IdleErrors:   m.idleErrors.Load(),
		Repaints:     m.repaintCount.Load(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.actionCount.Store(0)
	m.actionTotalNs.Store(0)
	m.actionMaxNs.Store(0)
	m.actionErrors.Store(0)
	m.idleCount.Store(0)
	m.idleTotalNs.Store(0)
	m.idleErrors.Store(0)
	m.repaintCount.Store(0)
	m.startTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime       time.Duration
	Actions      uint64
	AvgActionNs  int64
	MaxActionNs  int64
	ActionErrors uint64
	IdleRuns     uint64
	AvgIdleNs    int64
	IdleErrors   uint64
	Repaints     uint64
}

// IdleErrorRate returns the percentage of idle callbacks that failed.
func (s MetricsSnapshot) IdleErrorRate() float64 {
	if s.IdleRuns == 0 {
		return 0
	}
	return float64(s.IdleErrors) / float64(s.IdleRuns) * 100
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop returns the elapsed time and resets the timer.
func (t *Timer) Stop() time.Duration {
	elapsed := t.Elapsed()
	t.start = time.Now()
	return elapsed
}
