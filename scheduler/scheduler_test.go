package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/raventerm/termengine/config"
	"github.com/raventerm/termengine/pool"
	"github.com/raventerm/termengine/state"
	"github.com/raventerm/termengine/terminal"
)

type countingRenderer struct {
	mu    sync.Mutex
	count int
}

func (r *countingRenderer) RenderTerminal(terminal.ID, state.TerminalState, pool.Rect) {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func (r *countingRenderer) Present() {}

func (r *countingRenderer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSchedulerRendersDirtyTerminalOnTick(t *testing.T) {
	p := pool.New(config.PoolConfig{Cache: config.DefaultCacheBudget()})
	id, err := p.Create(24, 80)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer p.Remove(id)

	source := NewTickerSource(5 * time.Millisecond)
	sched := New(source)
	r := &countingRenderer{}
	sched.BindToPool(p, r)
	sched.Start()
	defer sched.Stop()

	waitUntil(t, time.Second, func() bool { return r.Count() >= 1 })
}

func TestSchedulerSkipsCleanTicks(t *testing.T) {
	p := pool.New(config.PoolConfig{Cache: config.DefaultCacheBudget()})
	id, err := p.Create(24, 80)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer p.Remove(id)

	source := NewTickerSource(2 * time.Millisecond)
	sched := New(source)
	r := &countingRenderer{}
	sched.BindToPool(p, r)
	sched.Start()

	waitUntil(t, time.Second, func() bool { return r.Count() >= 1 })
	sched.Stop()

	settled := r.Count()
	time.Sleep(20 * time.Millisecond)
	if r.Count() != settled {
		t.Fatalf("expected render count to stay at %d once the pool is clean and stopped, got %d", settled, r.Count())
	}
}

func TestSchedulerRequestRenderForcesRedraw(t *testing.T) {
	p := pool.New(config.PoolConfig{Cache: config.DefaultCacheBudget()})
	id, err := p.Create(24, 80)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer p.Remove(id)

	source := NewTickerSource(5 * time.Millisecond)
	sched := New(source)
	r := &countingRenderer{}
	sched.BindToPool(p, r)
	sched.Start()
	defer sched.Stop()

	waitUntil(t, time.Second, func() bool { return r.Count() >= 1 })
	base := r.Count()

	waitUntil(t, time.Second, func() bool { return !p.NeedsRenderFlag().IsDirty() })

	sched.RequestRender()
	waitUntil(t, time.Second, func() bool { return r.Count() > base })
}

func TestSchedulerStopIsIdempotentAndJoins(t *testing.T) {
	source := NewTickerSource(5 * time.Millisecond)
	sched := New(source)
	sched.Start()

	sched.Stop()
	sched.Stop()
}
