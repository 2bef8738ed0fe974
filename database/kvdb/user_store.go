package kvdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trippin/database"
	"trippin/model"
)

const (
	bucketUser        = "user_store"
	bucketUserByEmail = "user_by_email"
)

func NewUserStore(db *bolt.DB) (*UserStore, error) {
	return &UserStore{db: db}, createBuckets(db, bucketUser, bucketUserByEmail)
}

type UserStore struct {
	db *bolt.DB
}

func (u *UserStore) CreateUser(ctx context.Context, user *model.User) error {
	var span trace.Span
	_, span = tracer.Start(ctx, "CreateUser")
	defer span.End()

	if user.ID == uuid.Nil {
		span.AddEvent("uuid is nil, generate a new id")
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = &now
	user.UpdatedAt = &now
	email := normalizeEmail(user.Email)

	j, err := json.Marshal(user)
	if err != nil {
		return err
	}

	span.AddEvent("Update bucket")
	return u.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket([]byte(bucketUserByEmail))
		if index.Get([]byte(email)) != nil {
			err := fmt.Errorf("user with email %q already exists", email)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if err := index.Put([]byte(email), user.ID[:]); err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketUser)).Put(user.ID[:], j)
	})
}

func (u *UserStore) UpdateUser(ctx context.Context, user *model.User) error {
	var span trace.Span
	_, span = tracer.Start(ctx, "UpdateUser")
	defer span.End()

	if user.ID == uuid.Nil {
		err := errors.New("user ID is required for updating")
		span.RecordError(err)
		return err
	}
	now := time.Now()
	user.UpdatedAt = &now

	j, err := json.Marshal(user)
	if err != nil {
		return err
	}

	span.AddEvent("Update bucket")
	return u.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketUser))
		if bucket.Get(user.ID[:]) == nil {
			return database.ErrNotFound
		}
		return bucket.Put(user.ID[:], j)
	})
}

func (u *UserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var span trace.Span
	_, span = tracer.Start(ctx, "GetUserByID")
	defer span.End()

	span.AddEvent("View bucket")
	user := &model.User{}
	return user, u.db.View(func(tx *bolt.Tx) error {
		res := tx.Bucket([]byte(bucketUser)).Get(id[:])
		if res == nil {
			span.RecordError(database.ErrNotFound)
			return database.ErrNotFound
		}
		return json.Unmarshal(res, user)
	})
}

func (u *UserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var span trace.Span
	_, span = tracer.Start(ctx, "GetUserByEmail")
	defer span.End()

	span.AddEvent("View bucket")
	user := &model.User{}
	return user, u.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket([]byte(bucketUserByEmail)).Get([]byte(normalizeEmail(email)))
		if id == nil {
			return database.ErrNotFound
		}
		res := tx.Bucket([]byte(bucketUser)).Get(id)
		if res == nil {
			err := fmt.Errorf("dangling email index for %q: %w", email, database.ErrNotFound)
			span.RecordError(err)
			return err
		}
		return json.Unmarshal(res, user)
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
