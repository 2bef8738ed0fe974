package kvdb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trippin/database"
	"trippin/model"
)

const bucketSearch = "search_store"

func NewSearchStore(db *bolt.DB) (*SearchStore, error) {
	return &SearchStore{db: db}, createBuckets(db, bucketSearch)
}

type SearchStore struct {
	db *bolt.DB
}

func (s *SearchStore) SaveSearch(ctx context.Context, search *model.Search) error {
	var span trace.Span
	_, span = tracer.Start(ctx, "SaveSearch")
	defer span.End()

	if search.ID == "" {
		err := errors.New("search ID is required")
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if search.CreatedAt.IsZero() {
		search.CreatedAt = time.Now()
	}
	j, err := json.Marshal(search)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSearch)).Put([]byte(search.ID), j)
	})
}

func (s *SearchStore) GetSearch(ctx context.Context, id string) (*model.Search, error) {
	var span trace.Span
	_, span = tracer.Start(ctx, "GetSearch")
	defer span.End()

	search := &model.Search{}
	return search, s.db.View(func(tx *bolt.Tx) error {
		res := tx.Bucket([]byte(bucketSearch)).Get([]byte(id))
		if res == nil {
			return database.ErrNotFound
		}
		return json.Unmarshal(res, search)
	})
}
