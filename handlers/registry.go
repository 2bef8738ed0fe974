package handlers

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type entry[T any] struct {
	value T
	owner string
}

// registry keeps live wizards in memory, keyed by id and bound to the
// session token that created them. Entries idle for longer than ttl are
// dropped, and past capacity the least recently used one goes first.
type registry[T any] struct {
	cache *ttlcache.Cache[string, entry[T]]
}

func newRegistry[T any](ttl time.Duration, capacity uint64) *registry[T] {
	return &registry[T]{cache: ttlcache.New[string, entry[T]](
		ttlcache.WithTTL[string, entry[T]](ttl),
		ttlcache.WithCapacity[string, entry[T]](capacity),
	)}
}

func (r *registry[T]) put(id, owner string, v T) {
	r.cache.DeleteExpired()
	r.cache.Set(id, entry[T]{value: v, owner: owner}, ttlcache.DefaultTTL)
}

// get returns the wizard if it exists and belongs to owner.
func (r *registry[T]) get(id, owner string) (T, bool) {
	r.cache.DeleteExpired()
	item := r.cache.Get(id)
	if item == nil || item.Value().owner != owner {
		var zero T
		return zero, false
	}
	return item.Value().value, true
}

func (r *registry[T]) len() int {
	r.cache.DeleteExpired()
	return r.cache.Len()
}
