package kvdb

import (
	"context"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"go.opentelemetry.io/otel/trace"

	"trippin/database"
)

const bucketSession = "session_store"

func NewSessionStore(db *bolt.DB) (*SessionStore, error) {
	return &SessionStore{db: db}, createBuckets(db, bucketSession)
}

type SessionStore struct {
	db *bolt.DB
}

func (s *SessionStore) SaveSession(ctx context.Context, token string, userID uuid.UUID) error {
	var span trace.Span
	_, span = tracer.Start(ctx, "SaveSession")
	defer span.End()

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSession)).Put([]byte(token), userID[:])
	})
}

func (s *SessionStore) GetSession(ctx context.Context, token string) (uuid.UUID, error) {
	var span trace.Span
	_, span = tracer.Start(ctx, "GetSession")
	defer span.End()

	var id uuid.UUID
	return id, s.db.View(func(tx *bolt.Tx) error {
		res := tx.Bucket([]byte(bucketSession)).Get([]byte(token))
		if res == nil {
			return database.ErrNotFound
		}
		var err error
		id, err = uuid.FromBytes(res)
		return err
	})
}

func (s *SessionStore) DeleteSession(ctx context.Context, token string) error {
	var span trace.Span
	_, span = tracer.Start(ctx, "DeleteSession")
	defer span.End()

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSession)).Delete([]byte(token))
	})
}
