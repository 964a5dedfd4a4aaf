package admin

import (
	"errors"
	"log/slog"
)

var ErrForbidden = errors.New("access denied")

// Gate admits exactly one configured username.
type Gate struct {
	username string
	log      *slog.Logger
}

func NewGate(username string, log *slog.Logger) *Gate {
	return &Gate{username: username, log: log}
}

func (g *Gate) IsAdmin(username string) bool {
	return g.username != "" && username == g.username
}

// Check returns ErrForbidden for anyone but the admin and logs the attempt.
func (g *Gate) Check(user int64, username, op string) error {
	if g.IsAdmin(username) {
		return nil
	}
	g.log.Warn("admin access denied", "user_id", user, "username", username, "op", op)
	return ErrForbidden
}
