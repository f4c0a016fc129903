package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat periodically emits heartbeat events while the build blocks on a
// compiler subprocess. Heartbeats without a following SpanEnd mean the
// toolchain is stuck.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	started  time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// StartHeartbeat starts a goroutine emitting a heartbeat every interval.
// It returns nil when tracing is disabled or interval is not positive.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}

	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		started:  time.Now(),
		stopCh:   make(chan struct{}),
	}

	h.wg.Add(1)
	go h.run()

	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	seq := uint64(0)
	for {
		select {
		case <-ticker.C:
			seq++
			h.tracer.Emit(&Event{
				Time:   time.Now(),
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				GID:    goroutineID(),
				Name:   "heartbeat",
				Detail: fmt.Sprintf("#%d after %s", seq, time.Since(h.started).Round(time.Millisecond)),
			})
		case <-h.stopCh:
			return
		}
	}
}

// Stop stops the heartbeat goroutine and waits for it to finish. Safe to call
// on a nil Heartbeat and more than once.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		close(h.stopCh)
		h.wg.Wait()
	})
}
