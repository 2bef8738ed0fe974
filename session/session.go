// Package session holds the optional signed-in identity of a visitor and
// its order history. Every mutation is written through to the store
// before the call returns.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"trippin/database"
	"trippin/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotSignedIn        = errors.New("not signed in")
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Session is one visitor. It is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *model.User

	m *Manager
}

func (s *Session) Token() string {
	return s.token
}

// User returns a copy of the signed-in user without credential material,
// or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Public()
}

func (s *Session) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// Login signs the session in. The first login for an email registers the
// account; later logins must present the same password.
func (s *Session) Login(ctx context.Context, c Credentials) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" || c.Password == "" {
		return nil, &model.ValidationError{Key: "validation.email_password", Fields: []string{"email", "password"}}
	}
	if !model.Valid(email, "email") {
		return nil, &model.ValidationError{Key: "validation.email_password", Fields: []string{"email"}}
	}

	user, err := s.m.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, database.ErrNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.m.hashCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = email[:strings.Index(email, "@")]
		}
		user = &model.User{Email: email, PasswordHash: hash, Profile: model.Profile{Name: name}}
		if err := s.m.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("lookup user: %w", err)
	default:
		if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(c.Password)); err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	if err := s.m.sessions.SaveSession(ctx, s.token, user.ID); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return user.Public(), nil
}

// Logout forgets the signed-in user. Logging out an anonymous session is
// a no-op.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	if err := s.m.sessions.DeleteSession(ctx, s.token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.user = nil
	return nil
}

// UpdateProfile replaces the profile of the signed-in user.
func (s *Session) UpdateProfile(ctx context.Context, p model.Profile) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, ErrNotSignedIn
	}
	updated := *s.user
	updated.Profile = p
	if strings.TrimSpace(updated.Profile.Name) == "" {
		updated.Profile.Name = s.user.Profile.Name
	}
	if err := s.m.users.UpdateUser(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.user = &updated
	return updated.Public(), nil
}

// AppendOrder adds order to the history of the signed-in user.
func (s *Session) AppendOrder(ctx context.Context, order *model.Order) error {
	s.mu.RLock()
	user := s.user
	s.mu.RUnlock()
	if user == nil {
		return ErrNotSignedIn
	}
	order.UserID = user.ID
	if err := s.m.orders.AppendOrder(ctx, order); err != nil {
		return fmt.Errorf("append order: %w", err)
	}
	return nil
}

// Orders lists the history of the signed-in user, oldest first.
func (s *Session) Orders(ctx context.Context) ([]*model.Order, error) {
	s.mu.RLock()
	user := s.user
	s.mu.RUnlock()
	if user == nil {
		return nil, ErrNotSignedIn
	}
	return s.m.orders.ListOrders(ctx, user.ID)
}

// Order returns one order of the signed-in user.
func (s *Session) Order(ctx context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	user := s.user
	s.mu.RUnlock()
	if user == nil {
		return nil, ErrNotSignedIn
	}
	o, err := s.m.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != user.ID {
		return nil, database.ErrNotFound
	}
	return o, nil
}

func newToken() string {
	return uuid.NewString()
}
