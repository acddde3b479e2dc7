package traymenu

import "sync"

// uiGoroutine tracks the goroutine serving as the UI thread for toolkits
// that run their own loop on the calling thread and report readiness on
// another goroutine.
//
// The toolkit loop may return before the UI goroutine started, or while it
// is still running a command. stop makes sure the goroutine either never
// starts or has returned.
type uiGoroutine struct {
	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
}

func newUIGoroutine() *uiGoroutine {
	return &uiGoroutine{done: make(chan struct{})}
}

// enter reports whether the UI goroutine may run. When it returns true the
// caller must call exit once it is done.
func (g *uiGoroutine) enter() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return false
	}

	g.started = true
	return true
}

func (g *uiGoroutine) exit() {
	close(g.done)
}

// stop prevents the UI goroutine from starting and waits for it to exit if
// it already started. The caller must have told the goroutine to return.
func (g *uiGoroutine) stop() {
	g.mu.Lock()
	g.stopped = true
	started := g.started
	g.mu.Unlock()

	if started {
		<-g.done
	}
}
