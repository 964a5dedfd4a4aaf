// Package flow drives per-user multi-step conversations. A Machine maps
// each step to a transition that consumes one input, updates the session
// data and names the next step. Checkout and the admin wizards are
// configurations of the same Machine.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoSession      = errors.New("no active session")
	ErrUnexpectedStep = errors.New("session is at a different step")
)

type Step string

// Done ends a session. A transition returning Done deletes it.
const Done Step = "done"

type Session[D any] struct {
	Step      Step      `json:"step"`
	Data      D         `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps at most one session per user.
type Store[D any] interface {
	Get(ctx context.Context, user int64) (Session[D], bool, error)
	Put(ctx context.Context, user int64, s Session[D]) error
	Delete(ctx context.Context, user int64) error
}

// Transition validates input for one step. It mutates data and returns
// the next step. On error the stored session is left untouched.
type Transition[D any] func(ctx context.Context, user int64, data *D, input string) (Step, error)

type Machine[D any] struct {
	Name  string
	Store Store[D]
	Steps map[Step]Transition[D]
	Now   func() time.Time
}

func (m *Machine[D]) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Begin starts (or replaces) the user's session at step first.
func (m *Machine[D]) Begin(ctx context.Context, user int64, first Step, data D) (Session[D], error) {
	if _, ok := m.Steps[first]; !ok {
		return Session[D]{}, fmt.Errorf("%s: unknown step %q", m.Name, first)
	}
	s := Session[D]{Step: first, Data: data, UpdatedAt: m.now()}
	if err := m.Store.Put(ctx, user, s); err != nil {
		return Session[D]{}, fmt.Errorf("%s: save session: %w", m.Name, err)
	}
	return s, nil
}

// Current returns the user's session or ErrNoSession.
func (m *Machine[D]) Current(ctx context.Context, user int64) (Session[D], error) {
	s, ok, err := m.Store.Get(ctx, user)
	if err != nil {
		return Session[D]{}, fmt.Errorf("%s: load session: %w", m.Name, err)
	}
	if !ok {
		return Session[D]{}, ErrNoSession
	}
	return s, nil
}

// Active reports whether the user has a session.
func (m *Machine[D]) Active(ctx context.Context, user int64) bool {
	_, err := m.Current(ctx, user)
	return err == nil
}

// Advance feeds input to the current step. When expect is non-empty the
// session must be at that step, which rejects stale buttons.
func (m *Machine[D]) Advance(ctx context.Context, user int64, expect Step, input string) (Session[D], error) {
	s, err := m.Current(ctx, user)
	if err != nil {
		return Session[D]{}, err
	}
	if expect != "" && s.Step != expect {
		return s, fmt.Errorf("%w: at %s, not %s", ErrUnexpectedStep, s.Step, expect)
	}
	tr, ok := m.Steps[s.Step]
	if !ok {
		return s, fmt.Errorf("%w: %s has no handler", ErrUnexpectedStep, s.Step)
	}

	data := s.Data
	next, err := tr(ctx, user, &data, input)
	if err != nil {
		return s, err
	}
	out := Session[D]{Step: next, Data: data, UpdatedAt: m.now()}
	if next == Done {
		if err := m.Store.Delete(ctx, user); err != nil {
			return out, fmt.Errorf("%s: end session: %w", m.Name, err)
		}
		return out, nil
	}
	if err := m.Store.Put(ctx, user, out); err != nil {
		return s, fmt.Errorf("%s: save session: %w", m.Name, err)
	}
	return out, nil
}

// Goto moves the session to step without consuming input.
func (m *Machine[D]) Goto(ctx context.Context, user int64, step Step) (Session[D], error) {
	s, err := m.Current(ctx, user)
	if err != nil {
		return Session[D]{}, err
	}
	if _, ok := m.Steps[step]; !ok {
		return s, fmt.Errorf("%w: unknown step %q", ErrUnexpectedStep, step)
	}
	s.Step, s.UpdatedAt = step, m.now()
	if err := m.Store.Put(ctx, user, s); err != nil {
		return Session[D]{}, fmt.Errorf("%s: save session: %w", m.Name, err)
	}
	return s, nil
}

// Cancel deletes the session. It is not an error if there is none.
func (m *Machine[D]) Cancel(ctx context.Context, user int64) error {
	if err := m.Store.Delete(ctx, user); err != nil {
		return fmt.Errorf("%s: cancel session: %w", m.Name, err)
	}
	return nil
}
