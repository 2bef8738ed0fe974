// Package database declares the persistence interfaces. Implementations
// live in the kvdb (bbolt) and postgres sub packages.
package database

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"trippin/model"
)

// ErrNotFound is returned by every store when a record does not exist.
var ErrNotFound = errors.New("not found")

type UserStore interface {
	CreateUser(context.Context, *model.User) error
	UpdateUser(context.Context, *model.User) error
	GetUserByID(context.Context, uuid.UUID) (*model.User, error)
	GetUserByEmail(context.Context, string) (*model.User, error)
}

// OrderStore keeps the append-only order history of signed-in users.
type OrderStore interface {
	AppendOrder(context.Context, *model.Order) error
	ListOrders(context.Context, uuid.UUID) ([]*model.Order, error)
	GetOrder(context.Context, string) (*model.Order, error)
}

// SessionStore maps session tokens to signed-in users.
type SessionStore interface {
	SaveSession(ctx context.Context, token string, userID uuid.UUID) error
	GetSession(ctx context.Context, token string) (uuid.UUID, error)
	DeleteSession(ctx context.Context, token string) error
}

// SearchStore persists runs of the flight/hotel search demo.
type SearchStore interface {
	SaveSearch(context.Context, *model.Search) error
	GetSearch(context.Context, string) (*model.Search, error)
}

// Backend bundles the stores of one storage engine.
type Backend struct {
	Users    UserStore
	Orders   OrderStore
	Sessions SessionStore
	Searches SearchStore
	Close    func() error
	Ping     func(context.Context) error
}
