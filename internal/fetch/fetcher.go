// Package fetch implements the per-view data loaders. Each view owns a
// Fetcher keyed by its parameters; a response is applied only if it belongs
// to the most recent request, so out-of-order replies never overwrite newer
// data.
package fetch

import (
	"context"
	"log/slog"
	"sync"
)

// Status is a fetcher's lifecycle phase.
type Status int

const (
	Idle Status = iota
	Loading
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// LoadFunc performs one request for key.
type LoadFunc[K comparable, T any] func(ctx context.Context, key K) (T, error)

// State is a copy of a fetcher's current view.
type State[K comparable, T any] struct {
	Status Status
	Key    K
	Data   T // zero unless Status is Ready
	Err    error
	Seq    uint64 // sequence number of the request that produced this state
}

// Fetcher runs LoadFunc on mount and on parameter change. Superseded
// requests are not aborted; their responses are dropped on arrival.
type Fetcher[K comparable, T any] struct {
	name string
	load LoadFunc[K, T]
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	seq     uint64
	hasKey  bool
	state   State[K, T]
	stale   int
	closed  bool
	changed chan struct{} // closed and replaced on every state change
	wg      sync.WaitGroup
}

// NewFetcher creates an Idle fetcher. Requests run under ctx until Close.
func NewFetcher[K comparable, T any](ctx context.Context, name string, load LoadFunc[K, T], log *slog.Logger) *Fetcher[K, T] {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Fetcher[K, T]{
		name:    name,
		load:    load,
		log:     log.With("view", name),
		ctx:     ctx,
		cancel:  cancel,
		changed: make(chan struct{}),
	}
}

// Set switches to key. A new key starts exactly one request and clears the
// previous data while it loads. The same key while Loading or Ready is a
// no-op. It returns the sequence number to wait on and whether a request
// started.
func (f *Fetcher[K, T]) Set(key K) (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return f.seq, false
	}
	if f.hasKey && f.state.Key == key && (f.state.Status == Loading || f.state.Status == Ready) {
		return f.seq, false
	}
	return f.startLocked(key), true
}

// Reload starts a new request for the current key. It is a no-op before the
// first Set.
func (f *Fetcher[K, T]) Reload() (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || !f.hasKey {
		return f.seq, false
	}
	return f.startLocked(f.state.Key), true
}

func (f *Fetcher[K, T]) startLocked(key K) uint64 {
	f.seq++
	seq := f.seq
	f.hasKey = true
	var zero T
	f.state = State[K, T]{Status: Loading, Key: key, Data: zero, Seq: seq}
	f.notifyLocked()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		data, err := f.load(f.ctx, key)
		f.resolve(seq, key, data, err)
	}()
	return seq
}

func (f *Fetcher[K, T]) resolve(seq uint64, key K, data T, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || seq != f.seq {
		f.stale++
		f.log.Debug("stale response dropped", "seq", seq, "current", f.seq)
		return
	}
	if err != nil {
		f.state = State[K, T]{Status: Failed, Key: key, Err: err, Seq: seq}
		f.log.Warn("fetch failed", "error", err)
	} else {
		f.state = State[K, T]{Status: Ready, Key: key, Data: data, Seq: seq}
	}
	f.notifyLocked()
}

func (f *Fetcher[K, T]) notifyLocked() {
	close(f.changed)
	f.changed = make(chan struct{})
}

// State returns the current state.
func (f *Fetcher[K, T]) State() State[K, T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Stale returns how many responses were discarded as superseded or late.
func (f *Fetcher[K, T]) Stale() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stale
}

// Wait blocks until request seq has resolved, been superseded, or the
// fetcher is closed, and returns the state at that moment.
func (f *Fetcher[K, T]) Wait(ctx context.Context, seq uint64) (State[K, T], error) {
	for {
		f.mu.Lock()
		st := f.state
		done := f.closed || f.seq != seq || st.Status != Loading
		ch := f.changed
		f.mu.Unlock()
		if done {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ch:
		}
	}
}

// Close tears the view down. Responses arriving afterwards are ignored.
func (f *Fetcher[K, T]) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.notifyLocked()
	f.mu.Unlock()

	f.cancel()
	f.wg.Wait()
}
