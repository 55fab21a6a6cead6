package insertion

import (
	"sync"
	"time"
)

// Queue carries insert payloads from asset producers (upload, crop,
// signature) to one canvas. Producers may call Send from any goroutine.
type Queue struct {
	mu     sync.Mutex
	ch     chan Payload
	last   int64
	closed bool
}

func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan Payload, size)}
}

// Send stamps p with a strictly increasing timestamp and enqueues it. It
// returns false when the queue is closed or full.
func (q *Queue) Send(p Payload) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	ts := time.Now().UnixMilli()
	if ts <= q.last {
		ts = q.last + 1
	}
	p.Timestamp = ts
	select {
	case q.ch <- p:
		q.last = ts
		return true
	default:
		return false
	}
}

// C is drained by the canvas owner.
func (q *Queue) C() <-chan Payload {
	return q.ch
}

func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
