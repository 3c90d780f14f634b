// ABOUTME: Bounded FIFO of decoded frames shared between decoder and reader
// ABOUTME: When full, the oldest unread frame is dropped to make room
package ltc

import "sync"

// FrameQueue holds decoded frames until the caller reads them.
//
// Overflow policy: Push never blocks. When the queue is full the oldest
// unread frame is discarded and counted in Dropped. Callers that must not
// lose frames have to drain the queue at least once per Cap frames.
type FrameQueue struct {
	mu      sync.Mutex
	frames  []FrameExt
	head    int
	count   int
	dropped uint64
}

// NewFrameQueue creates a queue holding at most capacity frames (minimum 1)
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameQueue{frames: make([]FrameExt, capacity)}
}

// Push appends a copy of fe, evicting the oldest frame when full
func (q *FrameQueue) Push(fe FrameExt) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.frames) {
		q.head = (q.head + 1) % len(q.frames)
		q.count--
		q.dropped++
	}
	q.frames[(q.head+q.count)%len(q.frames)] = fe
	q.count++
}

// Pop removes and returns the oldest frame
func (q *FrameQueue) Pop() (FrameExt, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return FrameExt{}, false
	}
	fe := q.frames[q.head]
	q.head = (q.head + 1) % len(q.frames)
	q.count--
	return fe, true
}

// Flush discards every unread frame
func (q *FrameQueue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.head = 0
	q.count = 0
}

func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *FrameQueue) Cap() int {
	return len(q.frames)
}

// Dropped returns how many frames were evicted by overflow
func (q *FrameQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
