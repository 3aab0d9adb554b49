// Copyright (c) 2026 by Koanworks.

package presence

import (
	"sync"
	"time"
)

const defaultMonitorWindow = 32

// Monitor tracks the arrival quality of the snapshot stream over a
// sliding window of inter-arrival intervals. The wire carries nothing
// but snapshots, so receipt timing is the only signal available.
type Monitor struct {
	mx        sync.Mutex
	intervals []time.Duration
	idx       int
	filled    int
	last      time.Time
	arrivals  int
}

func NewMonitor(window int) *Monitor {
	if window <= 0 {
		window = defaultMonitorWindow
	}
	return &Monitor{
		intervals: make([]time.Duration, window),
	}
}

// Observe records one arrival. Call it once per inbound payload,
// malformed or not; a broken snapshot still tells us the link is alive.
func (m *Monitor) Observe(at time.Time) {
	m.mx.Lock()
	defer m.mx.Unlock()

	m.arrivals++

	if !m.last.IsZero() {
		if d := at.Sub(m.last); d > 0 {
			m.intervals[m.idx] = d
			m.idx = (m.idx + 1) % len(m.intervals)
			if m.filled < len(m.intervals) {
				m.filled++
			}
		}
	}
	m.last = at
}

// Rate returns the average arrivals per second over the window, or
// zero before two arrivals have been seen.
func (m *Monitor) Rate() float64 {
	m.mx.Lock()
	defer m.mx.Unlock()

	total := m.sumLocked()
	if total == 0 {
		return 0
	}

	return float64(m.filled) / total.Seconds()
}

// Jitter returns the mean absolute deviation of the inter-arrival
// intervals from their window average. Zero means a perfectly steady
// stream.
func (m *Monitor) Jitter() time.Duration {
	m.mx.Lock()
	defer m.mx.Unlock()

	if m.filled == 0 {
		return 0
	}

	mean := m.sumLocked() / time.Duration(m.filled)

	var total time.Duration
	for i := 0; i < m.filled; i++ {
		d := m.intervals[i] - mean
		if d < 0 {
			d = -d
		}
		total += d
	}

	return total / time.Duration(m.filled)
}

// Arrivals returns the total number of observed payloads.
func (m *Monitor) Arrivals() int {
	m.mx.Lock()
	defer m.mx.Unlock()

	return m.arrivals
}

func (m *Monitor) sumLocked() time.Duration {
	var total time.Duration
	for i := 0; i < m.filled; i++ {
		total += m.intervals[i]
	}
	return total
}
