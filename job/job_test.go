package job

import (
	"testing"
	"time"

	"svcd/clock"
)

func TestExtractMatchesPidAndElapsedDelay(t *testing.T) {
	fc := clock.NewFake(time.Unix(1000, 0))
	q := NewQueue(fc)

	var ran []string
	mk := func(name string, waitfor int, notBefore time.Time) *Job {
		return New(waitfor, notBefore, func(int) int {
			ran = append(ran, name)
			return 0
		})
	}

	q.Append(mk("immediate-42", 42, Immediate))
	q.Append(mk("delayed-42", 42, fc.Now().Add(5*time.Second)))
	q.Append(mk("other-pid", 7, Immediate))

	hits := q.Extract(42, fc.Now())
	if len(hits) != 1 {
		t.Fatalf("Extract(42, now) returned %d jobs, want 1 (delayed one not yet elapsed)", len(hits))
	}

	fc.Advance(6 * time.Second)
	hits = q.Extract(42, fc.Now())
	if len(hits) != 1 {
		t.Fatalf("Extract after advancing clock returned %d jobs, want 1", len(hits))
	}

	if q.Len() != 1 {
		t.Fatalf("queue should retain only the pid-7 job, has %d", q.Len())
	}
}

func TestExtractPreservesOriginalOrder(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := NewQueue(fc)

	var order []int
	for i := 0; i < 5; i++ {
		n := i
		q.Append(New(9, Immediate, func(int) int { order = append(order, n); return 0 }))
	}

	hits := q.Extract(9, fc.Now())
	if len(hits) != 5 {
		t.Fatalf("expected all 5 jobs extracted, got %d", len(hits))
	}
	for i, j := range hits {
		Run(q, j, 0)
		if order[i] != i {
			t.Fatalf("extraction order[%d] = %d, want %d (head-to-tail preserved)", i, order[i], i)
		}
	}
}

func TestSuccessorPrependsOnSpawn(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := NewQueue(fc)

	successorRan := false
	successor := New(Unbound, Immediate, func(int) int { successorRan = true; return 0 })

	pred := New(100, Immediate, func(int) int { return 555 }).WithSuccessor(successor)
	q.Append(pred)

	// A decoy job also waiting on the about-to-be-spawned pid 555,
	// registered before the successor exists.
	decoyRan := false
	q.Append(New(555, Immediate, func(int) int { decoyRan = true; return 0 }))

	hits := q.Extract(100, fc.Now())
	if len(hits) != 1 {
		t.Fatalf("expected to extract the predecessor job")
	}
	Run(q, hits[0], 0)

	// Successor now waits on 555 and must be ahead of the decoy.
	hits = q.Extract(555, fc.Now())
	if len(hits) != 2 {
		t.Fatalf("expected both the successor and decoy to match pid 555, got %d", len(hits))
	}
	Run(q, hits[0], 0)
	Run(q, hits[1], 0)

	if !successorRan || !decoyRan {
		t.Fatalf("both jobs should have run: successor=%v decoy=%v", successorRan, decoyRan)
	}
	if hits[0] != pred.successor {
		t.Fatalf("successor job should have been extracted ahead of the decoy (prepend ordering)")
	}
}

func TestSuccessorDropsToUnboundWhenNoSpawn(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := NewQueue(fc)

	successor := New(999, Immediate, func(int) int { return 0 })
	pred := New(200, Immediate, func(int) int { return 0 }).WithSuccessor(successor)
	q.Append(pred)

	hits := q.Extract(200, fc.Now())
	Run(q, hits[0], 0)

	if successor.waitfor != Unbound {
		t.Fatalf("successor waitfor = %d, want Unbound after a no-spawn callback", successor.waitfor)
	}

	unbound := q.ExtractUnbound()
	if len(unbound) != 1 {
		t.Fatalf("expected the dropped-to-unbound successor to be extractable on the next tick")
	}
}

func TestExtractReadyUsesQueueClock(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := NewQueue(fc)
	ran := false
	q.Append(New(5, fc.Now().Add(time.Second), func(int) int { ran = true; return 0 }))

	if hits := q.ExtractReady(5); len(hits) != 0 {
		t.Fatalf("job should not be ready before its delay elapses")
	}
	fc.Advance(2 * time.Second)
	hits := q.ExtractReady(5)
	if len(hits) != 1 {
		t.Fatalf("job should be ready once delay elapses")
	}
	Run(q, hits[0], 0)
	if !ran {
		t.Fatalf("callback should have run")
	}
}
