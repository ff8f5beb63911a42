package refresh

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Task is a handle on a scheduled function. Cancel is idempotent and once
// it returns the function is not started again.
type Task struct {
	lock      sync.Mutex
	cancelled bool
	timer     clockwork.Timer
	done      chan struct{}
}

// After runs fn once, d from now on clock
func After(clock clockwork.Clock, d time.Duration, fn func()) *Task {
	t := &Task{}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.timer = clock.AfterFunc(d, func() {
		if t.active() {
			fn()
		}
	})
	return t
}

// Every runs fn each interval until cancelled. Ticks missed while fn is
// running collapse into one. interval must be positive.
func Every(clock clockwork.Clock, interval time.Duration, fn func()) *Task {
	t := &Task{done: make(chan struct{})}
	ticker := clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.Chan():
				if !t.active() {
					return
				}
				fn()
			}
		}
	}()
	return t
}

func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.done != nil {
		close(t.done)
	}
}

func (t *Task) active() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return !t.cancelled
}
