// Copyright (c) 2026 by Koanworks.

package presence

import (
	"math"
	"testing"
	"time"
)

func TestMonitorSteadyStream(t *testing.T) {
	m := NewMonitor(16)

	at := time.Unix(0, 0)
	for n := 0; n < 10; n++ {
		m.Observe(at)
		at = at.Add(10 * time.Millisecond)
	}

	if rate := m.Rate(); math.Abs(rate-100) > 0.01 {
		t.Errorf("rate=%v, expected 100/s", rate)
	}
	if jitter := m.Jitter(); jitter != 0 {
		t.Errorf("jitter=%v, expected 0 for a steady stream", jitter)
	}
	if m.Arrivals() != 10 {
		t.Errorf("arrivals=%d, expected 10", m.Arrivals())
	}
}

func TestMonitorUnevenStream(t *testing.T) {
	m := NewMonitor(16)

	at := time.Unix(0, 0)
	intervals := []time.Duration{
		10 * time.Millisecond,
		50 * time.Millisecond,
		10 * time.Millisecond,
		50 * time.Millisecond,
	}
	m.Observe(at)
	for _, d := range intervals {
		at = at.Add(d)
		m.Observe(at)
	}

	// Mean interval is 30ms, each sample deviates by 20ms.
	if jitter := m.Jitter(); jitter != 20*time.Millisecond {
		t.Errorf("jitter=%v, expected 20ms", jitter)
	}
}

func TestMonitorEmpty(t *testing.T) {
	m := NewMonitor(8)

	if m.Rate() != 0 || m.Jitter() != 0 {
		t.Error("expected zero rate and jitter before any arrivals")
	}

	m.Observe(time.Unix(0, 0))
	if m.Rate() != 0 {
		t.Error("expected zero rate after a single arrival")
	}
}

func TestMonitorWindowSlides(t *testing.T) {
	m := NewMonitor(4)

	at := time.Unix(0, 0)
	m.Observe(at)

	// Old slow intervals are pushed out by fast recent ones.
	for n := 0; n < 4; n++ {
		at = at.Add(100 * time.Millisecond)
		m.Observe(at)
	}
	for n := 0; n < 4; n++ {
		at = at.Add(10 * time.Millisecond)
		m.Observe(at)
	}

	if rate := m.Rate(); math.Abs(rate-100) > 0.01 {
		t.Errorf("rate=%v, expected 100/s from the recent window", rate)
	}
}
