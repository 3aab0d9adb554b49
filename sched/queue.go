// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package sched

import (
	"sort"
	"time"
)

// Queue is a deferred-task queue driven by its owner's tick. Tasks fire in
// deadline order when Advance moves the queue's clock past them, and every
// task can be cancelled explicitly, so teardown ordering is deterministic
// instead of racing detached timers.
//
// A queue is owned by a single goroutine; it is not safe for concurrent use.
type Queue struct {
	now    time.Duration
	nextID uint64
	tasks  []*task
}

type task struct {
	id  uint64
	due time.Duration
	fn  func()
}

// Handle identifies one scheduled task.
type Handle struct {
	queue *Queue
	id    uint64
}

func NewQueue() *Queue {
	return &Queue{}
}

// Schedule runs fn once the queue's clock has advanced by delay. A
// non-positive delay is already due, so it fires as soon as Advance runs,
// including the Advance call that is currently firing tasks. A task that
// keeps rescheduling itself with zero delay therefore never lets that
// Advance call return.
func (q *Queue) Schedule(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}

	q.nextID++
	q.tasks = append(q.tasks, &task{
		id:  q.nextID,
		due: q.now + delay,
		fn:  fn,
	})

	return Handle{queue: q, id: q.nextID}
}

// Advance moves the clock forward by dt and runs every task that has come
// due, in deadline order; tasks sharing a deadline run in scheduling order.
// Tasks scheduled by a running task are honored within the same call when
// their deadline has already passed.
func (q *Queue) Advance(dt time.Duration) {
	if dt < 0 {
		return
	}
	q.now += dt

	for {
		next := q.takeDue()
		if next == nil {
			return
		}
		next.fn()
	}
}

func (q *Queue) takeDue() *task {
	idx := -1
	for i, tsk := range q.tasks {
		if tsk.due > q.now {
			continue
		}
		if idx == -1 || tsk.due < q.tasks[idx].due ||
			(tsk.due == q.tasks[idx].due && tsk.id < q.tasks[idx].id) {
			idx = i
		}
	}

	if idx == -1 {
		return nil
	}

	tsk := q.tasks[idx]
	q.tasks = append(q.tasks[:idx], q.tasks[idx+1:]...)
	return tsk
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Pending returns the deadlines of all pending tasks, soonest first.
func (q *Queue) Pending() []time.Duration {
	due := make([]time.Duration, len(q.tasks))
	for i, tsk := range q.tasks {
		due[i] = tsk.due
	}
	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })
	return due
}

// CancelAll drops every pending task without running it. Used on entity
// disposal so no cleanup task fires against a torn-down scene.
func (q *Queue) CancelAll() {
	q.tasks = nil
}

// Cancel drops the task if it is still pending. Cancelling an already-fired
// or already-cancelled task is a no-op, so it reports whether the task was
// actually removed.
func (h Handle) Cancel() bool {
	if h.queue == nil {
		return false
	}

	for i, tsk := range h.queue.tasks {
		if tsk.id == h.id {
			h.queue.tasks = append(h.queue.tasks[:i], h.queue.tasks[i+1:]...)
			return true
		}
	}

	return false
}
