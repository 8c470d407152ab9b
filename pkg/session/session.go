// Package session holds an explicit client session and decides when it must
// be refreshed. Callers pass the session (or a Manager) to every outgoing
// request instead of reading ambient state.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultLeeway refreshes a token one minute before it expires.
const DefaultLeeway = 60 * time.Second

var ErrNoSession = errors.New("session: not logged in")

type Session struct {
	AccessToken  string    `yaml:"access_token" json:"access_token"`
	RefreshToken string    `yaml:"refresh_token" json:"refresh_token"`
	ExpiresAt    time.Time `yaml:"expires_at" json:"expires_at"`
	UserID       string    `yaml:"user_id,omitempty" json:"user_id,omitempty"`
}

// Valid reports whether the session holds any credentials at all.
func (s Session) Valid() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// NeedsRefresh is true once now is past ExpiresAt minus leeway.
func NeedsRefresh(now time.Time, s Session, leeway time.Duration) bool {
	if s.AccessToken == "" {
		return true
	}
	return now.After(s.ExpiresAt.Add(-leeway))
}

// Refresher exchanges a refresh token for a new session.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Session, error)
}

// Manager owns one session and refreshes it on demand.
type Manager struct {
	mu        sync.Mutex
	current   Session
	refresher Refresher
	leeway    time.Duration
	onChange  func(Session)
}

type Option func(*Manager)

// WithLeeway overrides DefaultLeeway.
func WithLeeway(d time.Duration) Option {
	return func(m *Manager) { m.leeway = d }
}

// WithOnChange is called with every refreshed session, e.g. to persist it.
func WithOnChange(fn func(Session)) Option {
	return func(m *Manager) { m.onChange = fn }
}

func NewManager(s Session, refresher Refresher, opts ...Option) *Manager {
	m := &Manager{current: s, refresher: refresher, leeway: DefaultLeeway}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns a copy of the current session.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set replaces the current session, e.g. after a login.
func (m *Manager) Set(s Session) {
	m.mu.Lock()
	m.current = s
	onChange := m.onChange
	m.mu.Unlock()
	if onChange != nil {
		onChange(s)
	}
}

// Token returns an access token valid at now, refreshing first if needed.
func (m *Manager) Token(ctx context.Context, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.current.Valid() {
		return "", ErrNoSession
	}
	if !NeedsRefresh(now, m.current, m.leeway) {
		return m.current.AccessToken, nil
	}
	if m.current.RefreshToken == "" || m.refresher == nil {
		return "", ErrNoSession
	}

	next, err := m.refresher.Refresh(ctx, m.current.RefreshToken)
	if err != nil {
		return "", err
	}
	if next.RefreshToken == "" {
		next.RefreshToken = m.current.RefreshToken
	}
	m.current = next
	if m.onChange != nil {
		m.onChange(next)
	}
	return next.AccessToken, nil
}
