// Package poll keeps the commodity list and market summary fresh on a fixed
// interval, independently of which view is active, and fans updates out to
// subscribers.
package poll

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"commodash/internal/domain"
)

// DefaultInterval is the refresh cadence when none is configured.
const DefaultInterval = 30 * time.Second

// Source is the subset of the API client the store polls.
type Source interface {
	ListCommodities(ctx context.Context) ([]domain.Commodity, error)
	MarketSummary(ctx context.Context) (*domain.MarketSummary, error)
}

// State is the store's lifecycle phase.
type State int

const (
	Loading State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "loading"
}

// Snapshot is a copy of the store's data at one point in time.
type Snapshot struct {
	State       State
	Commodities []domain.Commodity
	Summary     *domain.MarketSummary
	Tick        int       // completed fetch cycles
	UpdatedAt   time.Time // zero until the first cycle completes
	Seeded      bool      // data came from Seed, not from a completed cycle

	// Errors from the most recent cycle; nil on success.
	CommoditiesErr error
	SummaryErr     error
}

// Observer is called after every cycle whose commodity fetch succeeded.
// Observers run on a single goroutine, one snapshot at a time, in Tick
// order.
type Observer func(ctx context.Context, snap Snapshot)

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("poll store stopped")

// Store polls a Source. Concurrent cycles may overlap when a fetch outlasts
// the interval; whichever finishes last wins.
type Store struct {
	src       Source
	interval  time.Duration
	log       *slog.Logger
	observers []Observer

	mu          sync.RWMutex
	state       State
	commodities []domain.Commodity
	summary     *domain.MarketSummary
	tick        int
	updatedAt   time.Time
	seeded      bool
	listErr     error
	summaryErr  error
	started     bool
	stopped     bool

	// Snapshots waiting for observers, in apply order. Guarded by mu.
	pending []Snapshot
	observe chan struct{}

	cancel  context.CancelFunc
	refresh chan struct{}
	wg      sync.WaitGroup

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Snapshot
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithObserver registers fn to run after each successful commodity fetch.
func WithObserver(fn Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, fn) }
}

// New creates a store in the Loading state. interval <= 0 means
// DefaultInterval.
func New(src Source, interval time.Duration, opts ...Option) *Store {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Store{
		src:      src,
		interval: interval,
		log:      slog.Default(),
		refresh:  make(chan struct{}, 1),
		observe:  make(chan struct{}, 1),
		subs:     make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed installs last-known data before the first cycle completes, so views
// have something to show while Loading. It is ignored once a cycle has
// landed.
func (s *Store) Seed(commodities []domain.Commodity, summary *domain.MarketSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tick > 0 || s.stopped {
		return
	}
	s.commodities = commodities
	s.summary = summary
	s.seeded = true
}

// Start issues the first fetch cycle immediately and then one per interval
// until ctx is done or Stop is called.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	if len(s.observers) > 0 {
		s.wg.Add(1)
		go s.notifyObservers(ctx)
	}
	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop cancels the schedule and waits for in-flight cycles to return. Their
// results are discarded. Stop is idempotent.
func (s *Store) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.subsMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subsMu.Unlock()
}

// Refresh requests an immediate cycle. It never blocks; a pending request
// absorbs further ones.
func (s *Store) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

func (s *Store) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.spawn(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.spawn(ctx)
		case <-s.refresh:
			s.spawn(ctx)
		}
	}
}

func (s *Store) spawn(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cycle(ctx)
	}()
}

// cycle fetches commodities and summary in parallel. Each request resolves
// independently; neither failure cancels the other.
func (s *Store) cycle(ctx context.Context) {
	var (
		list    []domain.Commodity
		summary *domain.MarketSummary
		listErr error
		sumErr  error
	)
	var g errgroup.Group
	g.Go(func() error {
		list, listErr = s.src.ListCommodities(ctx)
		return nil
	})
	g.Go(func() error {
		summary, sumErr = s.src.MarketSummary(ctx)
		return nil
	})
	_ = g.Wait()

	snap, ok := s.apply(ctx, list, summary, listErr, sumErr)
	if !ok {
		s.log.Debug("poll result discarded after stop")
		return
	}
	if listErr != nil {
		s.log.Warn("poll commodities failed", "error", listErr)
	}
	if sumErr != nil {
		s.log.Warn("poll market summary failed", "error", sumErr)
	}
	s.log.Debug("poll complete", "tick", snap.Tick, "commodities", len(snap.Commodities))

	s.broadcast(snap)
}

// notifyObservers drains pending snapshots until ctx is done.
func (s *Store) notifyObservers(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.observe:
		}

		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, snap := range batch {
			if ctx.Err() != nil {
				return
			}
			for _, fn := range s.observers {
				fn(ctx, snap)
			}
		}
	}
}

func (s *Store) apply(ctx context.Context, list []domain.Commodity, summary *domain.MarketSummary, listErr, sumErr error) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || ctx.Err() != nil {
		return Snapshot{}, false
	}
	if listErr == nil {
		s.commodities = list
	}
	if sumErr == nil {
		s.summary = summary
	}
	if listErr == nil || sumErr == nil {
		s.seeded = false
	}
	s.listErr = listErr
	s.summaryErr = sumErr
	s.state = Ready
	s.tick++
	s.updatedAt = time.Now()
	snap := s.snapshotLocked()
	if listErr == nil && len(s.observers) > 0 {
		s.pending = append(s.pending, snap)
		select {
		case s.observe <- struct{}{}:
		default:
		}
	}
	return snap, true
}

// Snapshot returns a copy of the current data.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:          s.state,
		Tick:           s.tick,
		UpdatedAt:      s.updatedAt,
		Seeded:         s.seeded,
		CommoditiesErr: s.listErr,
		SummaryErr:     s.summaryErr,
	}
	if s.commodities != nil {
		snap.Commodities = make([]domain.Commodity, len(s.commodities))
		copy(snap.Commodities, s.commodities)
	}
	if s.summary != nil {
		sum := *s.summary
		snap.Summary = &sum
	}
	return snap
}

// State returns the current lifecycle phase.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stopped reports whether Stop has been called.
func (s *Store) Stopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

// ---------------------------------------------------------------------------
// Subscriptions
// ---------------------------------------------------------------------------

// Subscribe returns a channel receiving a Snapshot after every applied
// cycle. Slow subscribers miss updates rather than block the store.
func (s *Store) Subscribe(bufSize int) (id int, ch <-chan Snapshot) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id = s.nextSubID
	s.nextSubID++
	c := make(chan Snapshot, bufSize)
	s.subs[id] = c
	return id, c
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(id int) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Store) broadcast(snap Snapshot) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Slow subscriber, drop update.
		}
	}
}
