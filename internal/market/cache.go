package market

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rickgao/pairs-data/internal/model"
)

// LastTickCache maps symbol to the most recently received tick.
// Writes are last-writer-wins; reads never block writers.
type LastTickCache struct {
	ticks   sync.Map // symbol -> model.Tick
	updates atomic.Int64
}

// NewLastTickCache creates an empty cache.
func NewLastTickCache() *LastTickCache {
	return &LastTickCache{}
}

// Put records tick as the latest for its symbol.
func (c *LastTickCache) Put(tick model.Tick) {
	c.ticks.Store(tick.Symbol, tick)
	c.updates.Add(1)
}

// HandleTick lets the cache act as a router sink.
func (c *LastTickCache) HandleTick(_ context.Context, tick model.Tick) error {
	c.Put(tick)
	return nil
}

// Get returns the latest tick for symbol.
func (c *LastTickCache) Get(symbol string) (model.Tick, bool) {
	v, ok := c.ticks.Load(symbol)
	if !ok {
		return model.Tick{}, false
	}
	return v.(model.Tick), true
}

// Snapshot copies the current contents.
func (c *LastTickCache) Snapshot() map[string]model.Tick {
	out := make(map[string]model.Tick)
	c.ticks.Range(func(k, v any) bool {
		out[k.(string)] = v.(model.Tick)
		return true
	})
	return out
}

// Symbols returns the cached symbols in sorted order.
func (c *LastTickCache) Symbols() []string {
	var out []string
	c.ticks.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}

// Len returns the number of cached symbols.
func (c *LastTickCache) Len() int {
	n := 0
	c.ticks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Updates returns the number of Put calls since creation.
func (c *LastTickCache) Updates() int64 {
	return c.updates.Load()
}
