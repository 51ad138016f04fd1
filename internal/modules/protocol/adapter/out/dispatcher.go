package out

import (
	"sync"
	"time"

	protocolout "dansprotocol/internal/modules/protocol/port/out"
)

// QueueDispatcher collects posted work until Drain is called from the
// caller's loop.
type QueueDispatcher struct {
	mu    sync.Mutex
	queue []func()
}

func NewQueueDispatcher() *QueueDispatcher {
	return &QueueDispatcher{}
}

func (d *QueueDispatcher) Post(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
}

// Drain runs queued work, including work posted while draining, and reports
// how many functions ran.
func (d *QueueDispatcher) Drain() int {
	ran := 0
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		d.mu.Unlock()
		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			fn()
			ran++
		}
	}
}

func (d *QueueDispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// TimerDispatcher runs posted work on its own goroutine after delay.
type TimerDispatcher struct {
	delay time.Duration
}

func NewTimerDispatcher(delay time.Duration) protocolout.Dispatcher {
	return TimerDispatcher{delay: delay}
}

func (d TimerDispatcher) Post(fn func()) {
	if fn == nil {
		return
	}
	time.AfterFunc(d.delay, fn)
}
