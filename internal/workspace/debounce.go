package workspace

import (
	"sync"
	"time"

	"github.com/shinyvision/poxref/internal/config"
)

// DefaultDebounce is the quiet period before catalog analysis runs.
const DefaultDebounce = 300 * time.Millisecond

type pendingAnalysis struct {
	scopes []config.Scope
	timer  *time.Timer
	gen    uint64
}

// debouncer coalesces analysis requests per workspace. Arming a key again
// stops the previous timer and only the latest scope list is kept.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]*pendingAnalysis
	gen     uint64
	stopped bool
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		pending: make(map[string]*pendingAnalysis),
	}
}

func (d *debouncer) schedule(key string, scopes []config.Scope, run func(key string, scopes []config.Scope)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	d.gen++
	gen := d.gen
	p := &pendingAnalysis{scopes: scopes, gen: gen}
	p.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		cur, ok := d.pending[key]
		if !ok || cur.gen != gen {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()
		run(key, cur.scopes)
	})
	d.pending[key] = p
}

// pendingKeys reports the keys with an armed timer.
func (d *debouncer) pendingKeys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	return keys
}

// cancel drops every armed timer. Later calls to schedule still work.
func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, k)
	}
}

// stop cancels every timer and refuses new ones.
func (d *debouncer) stop() {
	d.cancel()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}
