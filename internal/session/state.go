// Package session keeps per-browser storefront state behind a signed cookie.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fastpix01-lab/fruitamruth/internal/cart"
	"github.com/fastpix01-lab/fruitamruth/internal/checkout"
)

// State is everything the storefront remembers about one browser.
type State struct {
	ID        string           `json:"id"`
	Cart      cart.Snapshot    `json:"cart"`
	Checkout  checkout.Session `json:"checkout"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`

	mu    sync.Mutex
	store *cart.Store
	dirty bool
}

// NewState starts an empty state for id.
func NewState(id string, now time.Time) *State {
	now = now.UTC()
	return &State{ID: id, CreatedAt: now, UpdatedAt: now}
}

// CartStore returns the live cart bound to this state, hydrating it on first use.
func (s *State) CartStore() *cart.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = cart.Restore(s.Cart)
	}
	return s.store
}

// CheckoutSession returns the checkout data for in-place mutation.
func (s *State) CheckoutSession() *checkout.Session {
	return &s.Checkout
}

// MarkDirty flags the state for persistence at the end of the request.
func (s *State) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Dirty reports whether the state changed during the request.
func (s *State) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// sync copies the live cart back into the serialisable snapshot.
func (s *State) sync(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		s.Cart = s.store.Snapshot()
	}
	s.UpdatedAt = now.UTC()
}

func (s *State) encode() ([]byte, error) {
	return json.Marshal(s)
}

func decodeState(data []byte) (*State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

type stateContextKey struct{}

// WithState stores state on ctx.
func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateContextKey{}, state)
}

// FromContext returns the state attached by the middleware.
func FromContext(ctx context.Context) (*State, bool) {
	if ctx == nil {
		return nil, false
	}
	state, ok := ctx.Value(stateContextKey{}).(*State)
	return state, ok && state != nil
}
