// ABOUTME: Tests for the decoded frame queue
// ABOUTME: Tests FIFO order, drop-oldest overflow and concurrent access
package ltc

import (
	"sync"
	"testing"
)

func queuedFrame(n int64) FrameExt {
	return FrameExt{OffStart: n, OffEnd: n + 1}
}

func TestFrameQueueFIFO(t *testing.T) {
	q := NewFrameQueue(4)

	for i := int64(0); i < 3; i++ {
		q.Push(queuedFrame(i))
	}
	if q.Len() != 3 {
		t.Fatalf("expected length 3, got %d", q.Len())
	}

	for i := int64(0); i < 3; i++ {
		fe, ok := q.Pop()
		if !ok {
			t.Fatalf("expected frame %d", i)
		}
		if fe.OffStart != i {
			t.Errorf("expected frame %d, got %d", i, fe.OffStart)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("expected empty queue")
	}
}

func TestFrameQueueOverflow(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushed   int
	}{
		{"exact", 4, 4},
		{"one over", 4, 5},
		{"many over", 4, 23},
		{"single slot", 1, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewFrameQueue(tt.capacity)
			for i := 0; i < tt.pushed; i++ {
				q.Push(queuedFrame(int64(i)))
			}

			if q.Len() != tt.capacity {
				t.Errorf("expected length %d, got %d", tt.capacity, q.Len())
			}
			if want := uint64(tt.pushed - tt.capacity); q.Dropped() != want {
				t.Errorf("expected %d dropped, got %d", want, q.Dropped())
			}

			// survivors are the most recent frames, oldest first
			for want := int64(tt.pushed - tt.capacity); want < int64(tt.pushed); want++ {
				fe, ok := q.Pop()
				if !ok {
					t.Fatalf("queue ran dry before frame %d", want)
				}
				if fe.OffStart != want {
					t.Errorf("expected frame %d, got %d", want, fe.OffStart)
				}
			}
		})
	}
}

func TestFrameQueueFlush(t *testing.T) {
	q := NewFrameQueue(8)
	for i := 0; i < 5; i++ {
		q.Push(queuedFrame(int64(i)))
	}

	q.Flush()
	if q.Len() != 0 {
		t.Errorf("expected empty queue after flush, got %d", q.Len())
	}

	q.Push(queuedFrame(42))
	fe, ok := q.Pop()
	if !ok || fe.OffStart != 42 {
		t.Errorf("expected frame 42 after flush, got %v %v", fe.OffStart, ok)
	}
}

func TestFrameQueueMinimumCapacity(t *testing.T) {
	q := NewFrameQueue(0)
	if q.Cap() != 1 {
		t.Errorf("expected capacity 1, got %d", q.Cap())
	}
}

func TestFrameQueueConcurrent(t *testing.T) {
	q := NewFrameQueue(16)
	const total = 5000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			q.Push(queuedFrame(int64(i)))
		}
	}()

	var mu sync.Mutex
	popped := 0
	last := make([]int64, 3)
	for r := 0; r < 3; r++ {
		last[r] = -1
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; i < total; i++ {
				fe, ok := q.Pop()
				if !ok {
					q.Len()
					continue
				}
				if fe.OffEnd != fe.OffStart+1 {
					t.Errorf("torn frame: %d %d", fe.OffStart, fe.OffEnd)
				}
				// each reader sees increasing positions
				if fe.OffStart <= last[r] {
					t.Errorf("reader %d: frame %d after %d", r, fe.OffStart, last[r])
				}
				last[r] = fe.OffStart
				mu.Lock()
				popped++
				mu.Unlock()
			}
		}(r)
	}
	wg.Wait()

	remaining := q.Len()
	if uint64(popped+remaining)+q.Dropped() != total {
		t.Errorf("frames lost: popped %d, remaining %d, dropped %d", popped, remaining, q.Dropped())
	}
}
