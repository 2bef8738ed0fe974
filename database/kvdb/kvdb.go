// Package kvdb implements the database stores on top of a bbolt file.
package kvdb

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"trippin/database"
)

// Open opens (or creates) the bbolt file at path and initializes every
// bucket the stores need.
func Open(path string) (*database.Backend, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt file %q: %w", path, err)
	}

	users, err := NewUserStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize user bucket: %w", err)
	}
	orders, err := NewOrderStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize order bucket: %w", err)
	}
	sessions, err := NewSessionStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize session bucket: %w", err)
	}
	searches, err := NewSearchStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize search bucket: %w", err)
	}

	return &database.Backend{
		Users:    users,
		Orders:   orders,
		Sessions: sessions,
		Searches: searches,
		Close:    db.Close,
		Ping: func(context.Context) error {
			return db.View(func(*bolt.Tx) error { return nil })
		},
	}, nil
}

func createBuckets(db *bolt.DB, names ...string) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, n := range names {
			if _, err := tx.CreateBucketIfNotExists([]byte(n)); err != nil {
				return err
			}
		}
		return nil
	})
}
