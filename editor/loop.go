package editor

import (
	"context"
	"errors"
	"idcard-designer/editor/insertion"

	"github.com/sirupsen/logrus"
)

var ErrLoopClosed = errors.New("editor loop is closed")

// Loop owns a Session and runs every access to it on one goroutine.
// Socket events are posted with Do; asset producers post inserts through
// the queue returned by Inserts.
type Loop struct {
	session *Session
	events  chan func(*Session)
	inserts *insertion.Queue
	done    chan struct{}

	// OnInsert is called on the loop goroutine after an insert was applied.
	OnInsert func(*Session)
}

func NewLoop(s *Session, queueSize int) *Loop {
	return &Loop{
		session: s,
		events:  make(chan func(*Session)),
		inserts: insertion.NewQueue(queueSize),
		done:    make(chan struct{}),
	}
}

// Inserts is the queue handed to asset producers.
func (l *Loop) Inserts() *insertion.Queue {
	return l.inserts
}

// Run drains events and inserts until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	defer l.inserts.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.events:
			fn(l.session)
		case p, ok := <-l.inserts.C():
			if !ok {
				return
			}
			if _, err := l.session.Insert(p); err != nil {
				logrus.WithError(err).Debug("Insert not applied")
				continue
			}
			if l.OnInsert != nil {
				l.OnInsert(l.session)
			}
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func(*Session)) error {
	finished := make(chan struct{})
	wrapped := func(s *Session) {
		defer close(finished)
		fn(s)
	}
	select {
	case l.events <- wrapped:
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
