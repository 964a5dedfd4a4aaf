package flow

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Sessions idle for longer
// than ttl are dropped on read; a zero ttl keeps them forever.
type MemoryStore[D any] struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[int64]Session[D]
}

func NewMemoryStore[D any](ttl time.Duration) *MemoryStore[D] {
	return &MemoryStore[D]{ttl: ttl, now: time.Now, m: make(map[int64]Session[D])}
}

func (s *MemoryStore[D]) Get(_ context.Context, user int64) (Session[D], bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[user]
	if !ok {
		return Session[D]{}, false, nil
	}
	if s.ttl > 0 && s.now().Sub(sess.UpdatedAt) > s.ttl {
		delete(s.m, user)
		return Session[D]{}, false, nil
	}
	return sess, true, nil
}

func (s *MemoryStore[D]) Put(_ context.Context, user int64, sess Session[D]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[user] = sess
	return nil
}

func (s *MemoryStore[D]) Delete(_ context.Context, user int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, user)
	return nil
}
