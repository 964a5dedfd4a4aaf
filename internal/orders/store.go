package orders

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store holds every order grouped by owner. Items and totals are
// snapshots taken at creation and are never repriced.
type Store struct {
	mu     sync.RWMutex
	byUser map[int64][]Order
	owner  map[string]int64
}

func NewStore() *Store {
	return &Store{
		byUser: make(map[int64][]Order),
		owner:  make(map[string]int64),
	}
}

func (s *Store) Append(o Order) error {
	if err := o.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owner[o.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, o.ID)
	}
	s.byUser[o.UserID] = append(s.byUser[o.UserID], o.clone())
	s.owner[o.ID] = o.UserID
	return nil
}

func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.owner[id]
	return ok
}

func (s *Store) Find(id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, user, err := s.locate(id)
	if err != nil {
		return Order{}, err
	}
	return s.byUser[user][i].clone(), nil
}

// ByUser returns the user's orders, newest first.
func (s *Store) ByUser(user int64) []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.byUser[user])
}

// All returns every order across users, newest first.
func (s *Store) All() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []Order
	for _, os := range s.byUser {
		all = append(all, os...)
	}
	return newestFirst(all)
}

// Update applies fn to a copy of the order and stores the copy only if fn
// succeeds.
func (s *Store) Update(id string, fn func(*Order) error) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, user, err := s.locate(id)
	if err != nil {
		return Order{}, err
	}
	o := s.byUser[user][i].clone()
	if err := fn(&o); err != nil {
		return Order{}, err
	}
	o.ID, o.UserID = id, user
	s.byUser[user][i] = o
	return o.clone(), nil
}

func (s *Store) SetStatus(id string, st Status) (Order, error) {
	return s.Update(id, func(o *Order) error {
		if !CanTransition(o.Status, st) {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, st)
		}
		o.Status = st
		return nil
	})
}

// UpdateShippingAddress is allowed only while the order is pending or
// processing.
func (s *Store) UpdateShippingAddress(id, address string) (Order, error) {
	return s.Update(id, func(o *Order) error {
		if !o.Status.Editable() {
			return fmt.Errorf("%w: %s is %s", ErrNotEditable, o.ID, o.Status)
		}
		o.ShippingAddress = address
		return nil
	})
}

// SetPaymentMethod changes the method of a pending order whose payment has
// not been claimed yet.
func (s *Store) SetPaymentMethod(id string, m PaymentMethod) (Order, error) {
	return s.Update(id, func(o *Order) error {
		if o.Status != StatusPending || o.PaymentClaimedAt != nil {
			return fmt.Errorf("%w: %s", ErrNotEditable, o.ID)
		}
		o.PaymentMethod = m
		return nil
	})
}

func (s *Store) ClaimPayment(id string, at time.Time) (Order, error) {
	return s.Update(id, func(o *Order) error {
		ts := NewTimestamp(at)
		o.PaymentClaimedAt = &ts
		return nil
	})
}

func (s *Store) DeleteOne(id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, user, err := s.locate(id)
	if err != nil {
		return Order{}, err
	}
	os := s.byUser[user]
	o := os[i]
	s.byUser[user] = append(os[:i:i], os[i+1:]...)
	delete(s.owner, id)
	return o, nil
}

// DeleteAll removes every order and returns how many there were.
func (s *Store) DeleteAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.owner)
	s.byUser = make(map[int64][]Order)
	s.owner = make(map[string]int64)
	return n
}

func (s *Store) Snapshot() map[int64][]Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64][]Order, len(s.byUser))
	for user, os := range s.byUser {
		cp := make([]Order, len(os))
		for i, o := range os {
			cp[i] = o.clone()
		}
		out[user] = cp
	}
	return out
}

// Restore replaces every order. The owning user comes from the map key.
// Orders with a repeated id are dropped.
func (s *Store) Restore(byUser map[int64][]Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser = make(map[int64][]Order, len(byUser))
	s.owner = make(map[string]int64)
	for user, os := range byUser {
		kept := make([]Order, 0, len(os))
		for _, o := range os {
			if _, dup := s.owner[o.ID]; dup || o.ID == "" {
				continue
			}
			o.UserID = user
			kept = append(kept, o.clone())
			s.owner[o.ID] = user
		}
		s.byUser[user] = kept
	}
}

func (s *Store) locate(id string) (int, int64, error) {
	user, ok := s.owner[id]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for i, o := range s.byUser[user] {
		if o.ID == id {
			return i, user, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// newestFirst copies os sorted by creation time, latest first. Orders
// created in the same second keep reverse insertion order.
func newestFirst(os []Order) []Order {
	out := make([]Order, len(os))
	for i, o := range os {
		out[len(os)-1-i] = o.clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt.Time)
	})
	return out
}
