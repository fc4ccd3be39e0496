// Package storefront keeps the live page state of every browser session: the
// product board and the checkout wizard, both subscribed to the session's
// cart broadcasts.
package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/checkout"
	"github.com/noah-isme/toko-storefront/internal/events"
	"github.com/noah-isme/toko-storefront/internal/lock"
	"github.com/noah-isme/toko-storefront/internal/productcard"
	"github.com/noah-isme/toko-storefront/internal/submit"
)

const (
	defaultIdleTTL     = 24 * time.Hour
	defaultSubmitLease = 30 * time.Second
)

// Page is the in-memory state of one session. All access goes through the
// page mutex, and bus deliveries for the session run while it is held.
type Page struct {
	mu         sync.Mutex
	board      *productcard.Board
	checkout   *checkout.Controller
	submitting bool
	lease      *lock.Lease

	// guarded by Registry.mu
	refs     int
	lastSeen time.Time
	unsub    []func()
}

// Registry owns the pages of every active session.
type Registry struct {
	Bus    *events.Bus
	Cart   *cart.Service
	Lines  func() []cart.Item
	Steps  int
	Logger zerolog.Logger

	// IdleTTL evicts pages not touched for this long.
	IdleTTL time.Duration
	// Locker fences submissions of the same session across replicas when set.
	Locker      *lock.Locker
	SubmitLease time.Duration
	// Shared means other replicas write the same cart store, so a cached page
	// is reconciled from the store each time it is reused.
	Shared bool

	now   func() time.Time
	mu    sync.Mutex
	pages map[string]*Page
}

func (r *Registry) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Registry) idleTTL() time.Duration {
	if r.IdleTTL <= 0 {
		return defaultIdleTTL
	}
	return r.IdleTTL
}

func (r *Registry) submitLease() time.Duration {
	if r.SubmitLease <= 0 {
		return defaultSubmitLease
	}
	return r.SubmitLease
}

// acquire returns the page for sessionID, creating and subscribing it on
// first use. created reports whether this call built the page. Every acquire
// must be paired with release.
func (r *Registry) acquire(ctx context.Context, sessionID string) (p *Page, created bool, err error) {
	if sessionID == "" {
		return nil, false, errors.New("storefront: session id is required")
	}
	r.mu.Lock()
	if p, ok := r.pages[sessionID]; ok {
		p.refs++
		p.lastSeen = r.clock()
		r.mu.Unlock()
		return p, false, nil
	}
	r.mu.Unlock()

	snapshot, err := r.Cart.Get(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pages[sessionID]; ok {
		p.refs++
		p.lastSeen = r.clock()
		return p, false, nil
	}
	p = r.newPage(sessionID, snapshot)
	p.refs = 1
	p.lastSeen = r.clock()
	if r.pages == nil {
		r.pages = make(map[string]*Page)
	}
	r.pages[sessionID] = p
	r.Logger.Debug().Str("session_id", sessionID).Int("items", len(snapshot)).Msg("page opened")
	return p, true, nil
}

// enter acquires the page and takes its mutex. A reused page of a Shared
// registry is first brought up to date with the stored cart. On success the
// caller must unlock p.mu and release p.
func (r *Registry) enter(ctx context.Context, sessionID string) (*Page, error) {
	p, created, err := r.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	if created || !r.Shared {
		return p, nil
	}
	if err := r.refresh(ctx, sessionID, p); err != nil {
		p.mu.Unlock()
		r.release(p)
		return nil, err
	}
	return p, nil
}

// refresh replays the stored cart into the page subscribers. Callers hold p.mu.
func (r *Registry) refresh(ctx context.Context, sessionID string, p *Page) error {
	snapshot, err := r.Cart.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	ev := events.Event{Topic: events.TopicCartUpdated, Scope: sessionID, Payload: cart.Updated{Carrito: snapshot}}
	if err := p.board.HandleCartUpdated(ctx, ev); err != nil {
		return err
	}
	return p.checkout.HandleCartUpdated(ctx, ev)
}

func (r *Registry) newPage(sessionID string, snapshot cart.Cart) *Page {
	var lines []cart.Item
	if r.Lines != nil {
		lines = r.Lines()
	}
	board := productcard.NewBoard(sessionID, lines, r.Cart)
	board.Logger = r.Logger
	board.Reconcile(snapshot)
	steps := r.Steps
	if steps <= 0 {
		steps = 3
	}
	p := &Page{board: board, checkout: checkout.NewController(steps, snapshot)}
	if r.Bus != nil {
		p.unsub = append(p.unsub,
			r.Bus.Subscribe(events.TopicCartUpdated, sessionID, board.HandleCartUpdated),
			r.Bus.Subscribe(events.TopicCartUpdated, sessionID, p.checkout.HandleCartUpdated),
		)
	}
	return p
}

func (r *Registry) release(p *Page) {
	r.mu.Lock()
	p.refs--
	p.lastSeen = r.clock()
	r.mu.Unlock()
}

// Run executes fn while holding the session page lock, so cart writes and
// the broadcasts they trigger are serialized with every other page action.
func (r *Registry) Run(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	p, err := r.enter(ctx, sessionID)
	if err != nil {
		return err
	}
	defer r.release(p)
	defer p.mu.Unlock()
	return fn(ctx)
}

// WithBoard runs fn against the product board of the session.
func (r *Registry) WithBoard(ctx context.Context, sessionID string, fn func(context.Context, *productcard.Board) error) error {
	p, err := r.enter(ctx, sessionID)
	if err != nil {
		return err
	}
	defer r.release(p)
	defer p.mu.Unlock()
	return fn(ctx, p.board)
}

// WithCheckout runs fn against the checkout controller of the session.
func (r *Registry) WithCheckout(ctx context.Context, sessionID string, fn func(context.Context, *checkout.Controller) error) error {
	p, err := r.enter(ctx, sessionID)
	if err != nil {
		return err
	}
	defer r.release(p)
	defer p.mu.Unlock()
	return fn(ctx, p.checkout)
}

// BeginSubmit marks the page as submitting and returns the form state to
// send. A page that is already submitting yields submit.ErrSubmitInFlight.
// The page stays pinned until EndSubmit.
func (r *Registry) BeginSubmit(ctx context.Context, sessionID string) (submit.Draft, error) {
	p, err := r.enter(ctx, sessionID)
	if err != nil {
		return submit.Draft{}, err
	}
	defer p.mu.Unlock()
	if p.submitting {
		r.release(p)
		return submit.Draft{}, submit.ErrSubmitInFlight
	}
	if r.Locker != nil {
		lease, err := r.Locker.TryAcquire(ctx, sessionID, r.submitLease())
		if err != nil {
			r.release(p)
			if errors.Is(err, lock.ErrHeld) {
				return submit.Draft{}, submit.ErrSubmitInFlight
			}
			return submit.Draft{}, err
		}
		p.lease = lease
	}
	p.submitting = true
	return submit.Draft{Form: p.checkout.Form(), Option: p.checkout.Option()}, nil
}

// EndSubmit re-enables submission for the page.
func (r *Registry) EndSubmit(sessionID string) {
	r.mu.Lock()
	p, ok := r.pages[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}
	p.mu.Lock()
	wasSubmitting := p.submitting
	p.submitting = false
	lease := p.lease
	p.lease = nil
	p.mu.Unlock()
	if lease != nil {
		lease.Release(context.Background())
	}
	if wasSubmitting {
		r.release(p)
	}
}

// Sweep evicts pages idle for longer than IdleTTL and returns how many were
// removed. Pages with a request in progress are kept.
func (r *Registry) Sweep() int {
	cutoff := r.clock().Add(-r.idleTTL())
	var evicted []*Page
	r.mu.Lock()
	for sid, p := range r.pages {
		if p.refs > 0 || p.lastSeen.After(cutoff) {
			continue
		}
		delete(r.pages, sid)
		evicted = append(evicted, p)
	}
	r.mu.Unlock()
	for _, p := range evicted {
		for _, unsub := range p.unsub {
			unsub()
		}
	}
	if len(evicted) > 0 {
		r.Logger.Debug().Int("evicted", len(evicted)).Msg("idle pages swept")
	}
	return len(evicted)
}

// Len reports the number of live pages.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

// Janitor sweeps idle pages every interval until ctx is done.
func (r *Registry) Janitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
