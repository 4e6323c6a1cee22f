package sync

import (
	"sync"
)

// progress counts completed units of a pass and reports them in order, so
// observers never see the count go backwards.
type progress struct {
	mu       sync.Mutex
	current  int
	total    int
	observer Observer
}

func newProgress(total int, observer Observer) *progress {
	return &progress{total: total, observer: observer}
}

func (p *progress) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer.progress(p.current, p.total)
}

func (p *progress) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current < p.total {
		p.current++
	}
	p.observer.progress(p.current, p.total)
}

// serialize wraps o so that none of its callbacks run concurrently.
func serialize(o Observer) Observer {
	mu := &sync.Mutex{}
	out := Observer{}
	if o.OnProgress != nil {
		out.OnProgress = func(current, total int) {
			mu.Lock()
			defer mu.Unlock()
			o.OnProgress(current, total)
		}
	}
	if o.OnLog != nil {
		out.OnLog = func(message string, color Color) {
			mu.Lock()
			defer mu.Unlock()
			o.OnLog(message, color)
		}
	}
	return out
}
