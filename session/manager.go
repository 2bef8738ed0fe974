package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/crypto/bcrypt"

	"trippin/database"
)

// Manager hands out the live Session for a token so every wizard and
// handler of one visitor shares the same identity.
type Manager struct {
	users    database.UserStore
	orders   database.OrderStore
	sessions database.SessionStore
	logger   *slog.Logger

	hashCost int
	idleTTL  time.Duration
	maxLive  uint64

	mu   sync.Mutex
	live *ttlcache.Cache[string, *Session]
}

type Option func(*Manager)

// WithHashCost sets the bcrypt cost for new passwords.
func WithHashCost(cost int) Option {
	return func(m *Manager) { m.hashCost = cost }
}

// WithIdleTTL drops live sessions not used for ttl. Signed-in sessions
// are restored from the store on their next use.
func WithIdleTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.idleTTL = ttl }
}

// WithMaxSessions bounds the live sessions. The least recently used one
// is dropped first.
func WithMaxSessions(n uint64) Option {
	return func(m *Manager) { m.maxLive = n }
}

func NewManager(b *database.Backend, opts ...Option) *Manager {
	m := &Manager{
		users:    b.Users,
		orders:   b.Orders,
		sessions: b.Sessions,
		logger:   slog.Default().With("component", "session"),
		hashCost: bcrypt.DefaultCost,
		idleTTL:  24 * time.Hour,
		maxLive:  10000,
	}
	for _, o := range opts {
		o(m)
	}
	m.live = ttlcache.New[string, *Session](
		ttlcache.WithTTL[string, *Session](m.idleTTL),
		ttlcache.WithCapacity[string, *Session](m.maxLive),
	)
	return m
}

// Open returns the session for token. An empty or unknown token yields a
// new anonymous session with a fresh token.
func (m *Manager) Open(ctx context.Context, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live.DeleteExpired()

	if token != "" {
		if item := m.live.Get(token); item != nil {
			return item.Value(), nil
		}

		userID, err := m.sessions.GetSession(ctx, token)
		switch {
		case err == nil:
			user, err := m.users.GetUserByID(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("restore session user: %w", err)
			}
			s := &Session{token: token, user: user, m: m}
			m.live.Set(token, s, ttlcache.DefaultTTL)
			return s, nil
		case !errors.Is(err, database.ErrNotFound):
			return nil, fmt.Errorf("restore session: %w", err)
		}
		m.logger.DebugContext(ctx, "unknown session token, issuing a new one")
	}

	s := &Session{token: newToken(), m: m}
	m.live.Set(s.token, s, ttlcache.DefaultTTL)
	return s, nil
}

// Live is the number of sessions held in memory.
func (m *Manager) Live() int {
	m.live.DeleteExpired()
	return m.live.Len()
}
