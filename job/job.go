// Package job implements the daemon's deferred-work queue: jobs keyed
// by (waitfor pid, not_before time), extracted in a tail-to-head scan
// that preserves original ordering, with successor chaining on a
// spawned or absent child.
package job

import (
	"time"

	"svcd/clock"
)

// Unbound is the waitfor value for jobs that run on every loop tick
// regardless of any child exit.
const Unbound = -1

// Callback runs when a Job is extracted. exitCode is the reaped
// child's translated exit status for a pid-bound Job, or 0 for an
// Unbound job. It returns the pid of a newly spawned child (for
// successor chaining), or 0 if none was spawned.
type Callback func(exitCode int) (spawnedPID int)

// Job is a single deferred work item.
type Job struct {
	id        int
	waitfor   int
	notBefore time.Time
	immediate bool
	callback  Callback
	successor *Job
}

// New builds a Job bound to waitfor (Unbound for "any tick"). If
// notBefore is the zero Time, the job is eligible immediately.
func New(waitfor int, notBefore time.Time, cb Callback) *Job {
	return &Job{waitfor: waitfor, notBefore: notBefore, immediate: notBefore.IsZero(), callback: cb}
}

// WithSuccessor attaches a successor Job, returning the receiver for
// chaining construction.
func (j *Job) WithSuccessor(successor *Job) *Job {
	j.successor = successor
	return j
}

// ready reports whether j is eligible for extraction against pid p at
// time now.
func (j *Job) ready(p int, now time.Time) bool {
	if j.waitfor != p {
		return false
	}
	return j.immediate || !j.notBefore.After(now)
}

// Queue is the arena of Job slots the daemon schedules work into.
// Slots are addressed by a stable id so extraction can be a cheap
// compaction rather than list surgery; a secondary waitfor index
// would pay off only once N (in-flight requests) grows well past
// what this daemon sees.
type Queue struct {
	clock clock.Clock
	nextID int
	slots  map[int]*Job
	order  []int // insertion order, head at index 0
}

// NewQueue builds an empty Queue using clk for "now" in Extract.
func NewQueue(clk clock.Clock) *Queue {
	return &Queue{clock: clk, slots: make(map[int]*Job)}
}

// Append enqueues j at the tail.
func (q *Queue) Append(j *Job) {
	q.nextID++
	j.id = q.nextID
	q.slots[j.id] = j
	q.order = append(q.order, j.id)
}

// Prepend enqueues j at the head. Prepending is load-bearing for
// successor jobs: it guarantees a successor registered for a
// just-spawned pid sits ahead of any other entry
// that might also await that pid, so a rapid exit cannot be harvested
// by the wrong waiter.
func (q *Queue) Prepend(j *Job) {
	q.nextID++
	j.id = q.nextID
	q.slots[j.id] = j
	q.order = append([]int{j.id}, q.order...)
}

// Len returns the number of jobs currently queued.
func (q *Queue) Len() int {
	return len(q.order)
}

// Extract scans from the tail toward the head for every Job whose
// waitfor matches p and whose not_before has elapsed, removes them
// from the queue, and returns them in original (head-to-tail) order.
// Jobs whose delay has not elapsed are left in place.
func (q *Queue) Extract(p int, now time.Time) []*Job {
	var hitIDs []int
	for i := len(q.order) - 1; i >= 0; i-- {
		id := q.order[i]
		j := q.slots[id]
		if j.ready(p, now) {
			hitIDs = append(hitIDs, id)
		}
	}
	if len(hitIDs) == 0 {
		return nil
	}

	hitSet := make(map[int]bool, len(hitIDs))
	for _, id := range hitIDs {
		hitSet[id] = true
	}

	remaining := q.order[:0:0]
	var out []*Job
	for _, id := range q.order {
		if hitSet[id] {
			out = append(out, q.slots[id])
			delete(q.slots, id)
			continue
		}
		remaining = append(remaining, id)
	}
	q.order = remaining
	return out
}

// ExtractUnbound is a convenience for draining every ready Unbound
// job, using the Queue's own clock for "now".
func (q *Queue) ExtractUnbound() []*Job {
	return q.Extract(Unbound, q.clock.Now())
}

// ExtractReady is Extract against pid p using the Queue's own clock.
func (q *Queue) ExtractReady(p int) []*Job {
	return q.Extract(p, q.clock.Now())
}

// Run invokes j's callback and schedules its successor (if any): if
// the callback spawned a child (spawnedPID > 0), the successor's
// waitfor becomes that pid and it is prepended; if no child was
// spawned, the successor's waitfor becomes Unbound instead.
func Run(q *Queue, j *Job, exitCode int) {
	spawned := j.callback(exitCode)
	if j.successor == nil {
		return
	}
	if spawned > 0 {
		j.successor.waitfor = spawned
	} else {
		j.successor.waitfor = Unbound
	}
	j.successor.immediate = true
	j.successor.notBefore = time.Time{}
	q.Prepend(j.successor)
}

// Immediate is the zero time.Time, meaning "eligible right away."
var Immediate = time.Time{}
