// Package session owns the client's top-level lifecycle: the password gate,
// the persisted unlocked flag and the sync controller behind them.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukerupert/freeday/internal/gate"
)

// Runner is the part of the sync controller a session drives.
type Runner interface {
	Start(ctx context.Context)
	Stop()
}

// Flag persists the unlocked state. *prefs.Store satisfies it.
type Flag interface {
	Unlocked() bool
	SetUnlocked(bool)
}

type Session struct {
	gate   *gate.Gate
	flag   Flag
	runner Runner
	logger *slog.Logger

	mu       sync.Mutex
	unlocked bool
}

func New(g *gate.Gate, flag Flag, runner Runner, logger *slog.Logger) *Session {
	return &Session{gate: g, flag: flag, runner: runner, logger: logger}
}

// Unlocked reports whether the session is past the gate.
func (s *Session) Unlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked
}

// Restore resumes a session unlocked earlier, or any session when the gate
// has no secret. It reports whether the session is now unlocked.
func (s *Session) Restore(ctx context.Context) bool {
	if s.gate.Enabled() && !s.flag.Unlocked() {
		return false
	}
	s.open(ctx)
	return true
}

// Unlock checks password, persists the unlocked flag and starts syncing.
func (s *Session) Unlock(ctx context.Context, password string) error {
	if err := s.gate.Check(password); err != nil {
		s.logger.Info("unlock rejected", "error", err)
		return err
	}
	s.flag.SetUnlocked(true)
	s.open(ctx)
	return nil
}

func (s *Session) open(ctx context.Context) {
	s.mu.Lock()
	if s.unlocked {
		s.mu.Unlock()
		return
	}
	s.unlocked = true
	s.mu.Unlock()

	s.runner.Start(ctx)
}

// Lock stops syncing and forgets the unlocked flag.
func (s *Session) Lock() {
	s.Close()
	s.flag.SetUnlocked(false)
}

// Close stops syncing and keeps the unlocked flag for the next Restore.
// It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	s.unlocked = false
	s.mu.Unlock()

	s.runner.Stop()
}
