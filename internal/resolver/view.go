package resolver

import (
	"context"
	"sync"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
)

// View is the open chart: one metric over one window. Every load is tagged
// with a generation and a response for a superseded load is dropped.
type View struct {
	resolver *Resolver
	onResult func(Result)

	mu      sync.Mutex
	key     models.SensorKey
	window  Window
	gen     uint64
	current *Result
}

// NewView starts on window with no metric selected. onResult may be nil.
func NewView(r *Resolver, window Window, onResult func(Result)) *View {
	return &View{resolver: r, window: window, onResult: onResult}
}

// Open selects a metric and loads it over the current window
func (v *View) Open(ctx context.Context, key models.SensorKey) (Result, bool) {
	v.mu.Lock()
	v.key = key
	v.mu.Unlock()
	return v.load(ctx)
}

// SetWindow changes the lookback and reloads. Selecting the window already
// shown does nothing and reports false.
func (v *View) SetWindow(ctx context.Context, w Window) (Result, bool) {
	v.mu.Lock()
	if w == v.window {
		var cur Result
		if v.current != nil {
			cur = *v.current
		}
		v.mu.Unlock()
		return cur, false
	}
	v.window = w
	v.mu.Unlock()
	return v.load(ctx)
}

// Select opens key over w with a single load. Selecting what is already
// shown does nothing and reports false.
func (v *View) Select(ctx context.Context, key models.SensorKey, w Window) (Result, bool) {
	v.mu.Lock()
	if key == v.key && w == v.window && v.current != nil {
		cur := *v.current
		v.mu.Unlock()
		return cur, false
	}
	v.key, v.window = key, w
	v.mu.Unlock()
	return v.load(ctx)
}

// Current returns the last applied result
func (v *View) Current() (Result, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil {
		return Result{}, false
	}
	return *v.current, true
}

// Key is the open metric, empty before the first Open
func (v *View) Key() models.SensorKey {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.key
}

func (v *View) Window() Window {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.window
}

// load reports false when no metric is open or a newer load superseded it
func (v *View) load(ctx context.Context) (Result, bool) {
	v.mu.Lock()
	if v.key == "" {
		v.mu.Unlock()
		return Result{}, false
	}
	v.gen++
	gen, key, window := v.gen, v.key, v.window
	v.mu.Unlock()

	res := v.resolver.Resolve(ctx, key, window)

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		v.resolver.logger.Debug("Discarding superseded range result")
		return res, false
	}
	v.current = &res
	v.mu.Unlock()

	if v.onResult != nil {
		v.onResult(res)
	}
	return res, true
}
