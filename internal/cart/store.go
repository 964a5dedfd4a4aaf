package cart

import (
	"fmt"
	"sync"
)

type Store struct {
	mu    sync.Mutex
	carts map[int64]Cart
	limit int
}

// NewStore returns an empty store. limit caps the quantity of a single
// line; zero means no cap.
func NewStore(limit int) *Store {
	return &Store{carts: make(map[int64]Cart), limit: limit}
}

// Get returns a copy of the user's cart, empty if there is none.
func (s *Store) Get(user int64) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[user].Clone()
}

// AddItem increments the line by qty and returns the new quantity.
func (s *Store) AddItem(user int64, product, tier string, qty int) (int, error) {
	if qty < 1 {
		return 0, ErrInvalidQuantity
	}
	k := Key{Product: product, Tier: tier}
	if _, err := k.MarshalText(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[user]
	if !ok {
		c = Cart{}
		s.carts[user] = c
	}
	next := c[k] + qty
	if s.limit > 0 && next > s.limit {
		return c[k], fmt.Errorf("%w: at most %d per item", ErrQuantityLimit, s.limit)
	}
	c[k] = next
	return next, nil
}

// Clear leaves the user with an empty cart.
func (s *Store) Clear(user int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[user] = Cart{}
}

func (s *Store) Snapshot() map[int64]Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]Cart, len(s.carts))
	for u, c := range s.carts {
		out[u] = c.Clone()
	}
	return out
}

// Restore replaces every cart. Non-positive quantities are dropped.
func (s *Store) Restore(carts map[int64]Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts = make(map[int64]Cart, len(carts))
	for u, c := range carts {
		clean := Cart{}
		for k, q := range c {
			if q > 0 {
				clean[k] = q
			}
		}
		s.carts[u] = clean
	}
}
