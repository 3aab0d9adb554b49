// Copyright (c) 2026 by Koanworks

package sched

import (
	"reflect"
	"testing"
	"time"
)

func TestAdvanceFiresInDeadlineOrder(t *testing.T) {
	q := NewQueue()

	var fired []string
	q.Schedule(30*time.Millisecond, func() { fired = append(fired, "c") })
	q.Schedule(10*time.Millisecond, func() { fired = append(fired, "a") })
	q.Schedule(20*time.Millisecond, func() { fired = append(fired, "b") })

	q.Advance(50 * time.Millisecond)

	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(fired, want) {
		t.Errorf("fired %v, want %v", fired, want)
	}
	if q.Len() != 0 {
		t.Errorf("pending tasks left: %d", q.Len())
	}
}

func TestAdvancePartial(t *testing.T) {
	q := NewQueue()

	var fired []string
	q.Schedule(10*time.Millisecond, func() { fired = append(fired, "a") })
	q.Schedule(100*time.Millisecond, func() { fired = append(fired, "b") })

	q.Advance(20 * time.Millisecond)

	if want := []string{"a"}; !reflect.DeepEqual(fired, want) {
		t.Errorf("fired %v, want %v", fired, want)
	}
	if q.Len() != 1 {
		t.Errorf("pending = %d, want 1", q.Len())
	}

	q.Advance(80 * time.Millisecond)
	if want := []string{"a", "b"}; !reflect.DeepEqual(fired, want) {
		t.Errorf("fired %v, want %v", fired, want)
	}
}

func TestSameDeadlineFiresInScheduleOrder(t *testing.T) {
	q := NewQueue()

	var fired []int
	for i := 0; i < 5; i++ {
		i := i
		q.Schedule(time.Millisecond, func() { fired = append(fired, i) })
	}

	q.Advance(time.Millisecond)

	if want := []int{0, 1, 2, 3, 4}; !reflect.DeepEqual(fired, want) {
		t.Errorf("fired %v, want %v", fired, want)
	}
}

func TestCancelledTaskNeverFires(t *testing.T) {
	q := NewQueue()

	fired := false
	h := q.Schedule(time.Millisecond, func() { fired = true })

	if !h.Cancel() {
		t.Fatal("cancel reported no removal")
	}
	if h.Cancel() {
		t.Error("second cancel reported removal")
	}

	q.Advance(time.Second)
	if fired {
		t.Error("cancelled task fired")
	}
}

func TestCancelAfterFireIsNoOp(t *testing.T) {
	q := NewQueue()

	h := q.Schedule(time.Millisecond, func() {})
	q.Advance(time.Millisecond)

	if h.Cancel() {
		t.Error("cancel after fire reported removal")
	}
}

func TestCancelAllLeavesQueueEmpty(t *testing.T) {
	q := NewQueue()

	fired := false
	q.Schedule(time.Millisecond, func() { fired = true })
	q.Schedule(2*time.Millisecond, func() { fired = true })

	q.CancelAll()
	q.Advance(time.Second)

	if fired {
		t.Error("task fired after CancelAll")
	}
	if q.Len() != 0 {
		t.Errorf("pending = %d", q.Len())
	}
}

func TestTaskSchedulingDuringAdvance(t *testing.T) {
	q := NewQueue()

	var fired []string
	q.Schedule(10*time.Millisecond, func() {
		fired = append(fired, "outer")
		q.Schedule(0, func() { fired = append(fired, "inner") })
	})

	q.Advance(10 * time.Millisecond)

	if want := []string{"outer", "inner"}; !reflect.DeepEqual(fired, want) {
		t.Errorf("fired %v, want %v", fired, want)
	}
}

func TestNonPositiveDelayFiresNext(t *testing.T) {
	q := NewQueue()

	fired := false
	q.Schedule(-time.Second, func() { fired = true })

	q.Advance(0)
	if !fired {
		t.Error("task with non-positive delay did not fire")
	}
}

func TestPending(t *testing.T) {
	q := NewQueue()
	q.Schedule(30*time.Millisecond, func() {})
	q.Schedule(10*time.Millisecond, func() {})

	want := []time.Duration{10 * time.Millisecond, 30 * time.Millisecond}
	if got := q.Pending(); !reflect.DeepEqual(got, want) {
		t.Errorf("pending = %v, want %v", got, want)
	}
}
