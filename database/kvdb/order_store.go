package kvdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trippin/database"
	"trippin/model"
)

const (
	bucketOrder      = "order_store"
	bucketOrderIndex = "order_index"
)

func NewOrderStore(db *bolt.DB) (*OrderStore, error) {
	return &OrderStore{db: db}, createBuckets(db, bucketOrder, bucketOrderIndex)
}

// OrderStore keys orders by user id, creation time and order id so a
// prefix scan yields one user's history in creation order.
type OrderStore struct {
	db *bolt.DB
}

func orderKey(o *model.Order) []byte {
	key := make([]byte, 0, 16+8+len(o.ID))
	key = append(key, o.UserID[:]...)
	key = binary.BigEndian.AppendUint64(key, uint64(o.CreatedAt.UnixNano()))
	return append(key, o.ID...)
}

func (s *OrderStore) AppendOrder(ctx context.Context, order *model.Order) error {
	var span trace.Span
	_, span = tracer.Start(ctx, "AppendOrder")
	defer span.End()

	if order.ID == "" || order.UserID == uuid.Nil {
		err := errors.New("order ID and user ID are required")
		span.RecordError(err)
		return err
	}

	j, err := json.Marshal(order)
	if err != nil {
		return err
	}
	key := orderKey(order)

	span.AddEvent("Update bucket")
	return s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket([]byte(bucketOrderIndex))
		if index.Get([]byte(order.ID)) != nil {
			return errors.New("order already exists")
		}
		if err := index.Put([]byte(order.ID), key); err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketOrder)).Put(key, j)
	})
}

func (s *OrderStore) ListOrders(ctx context.Context, userID uuid.UUID) ([]*model.Order, error) {
	var span trace.Span
	_, span = tracer.Start(ctx, "ListOrders")
	defer span.End()

	span.AddEvent("View bucket")
	orders := make([]*model.Order, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketOrder)).Cursor()
		prefix := userID[:]
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			o := &model.Order{}
			if err := json.Unmarshal(v, o); err != nil {
				span.RecordError(err)
				return err
			}
			orders = append(orders, o)
		}
		return nil
	})
	span.SetAttributes(attribute.Int("count", len(orders)))
	return orders, err
}

func (s *OrderStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var span trace.Span
	_, span = tracer.Start(ctx, "GetOrder")
	defer span.End()

	order := &model.Order{}
	return order, s.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket([]byte(bucketOrderIndex)).Get([]byte(id))
		if key == nil {
			return database.ErrNotFound
		}
		res := tx.Bucket([]byte(bucketOrder)).Get(key)
		if res == nil {
			return database.ErrNotFound
		}
		return json.Unmarshal(res, order)
	})
}
