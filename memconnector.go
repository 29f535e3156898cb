package cnx

import (
	"context"
	"errors"
	"sync"
)

// MemConnector is a map-backed connector implementing the full contract. It
// is safe for concurrent use and keeps insertion order for List. Removing a
// missing id succeeds, so Remove is idempotent here.
type MemConnector[T any, V comparable] struct {
	mu      sync.RWMutex
	items   map[V]T
	order   []V
	matcher func(filter V, item T) bool
}

// MemOption mutates a MemConnector during construction.
type MemOption[T any, V comparable] func(*MemConnector[T, V]) error

// WithMatcher installs the predicate List uses to apply a filter value.
// Without a matcher, List rejects filtered calls.
func WithMatcher[T any, V comparable](match func(filter V, item T) bool) MemOption[T, V] {
	return func(c *MemConnector[T, V]) error {
		if match == nil {
			return errors.New("nil matcher provided")
		}
		c.matcher = match
		return nil
	}
}

// WithSeed preloads entries before the connector is handed out.
func WithSeed[T any, V comparable](seed map[V]T) MemOption[T, V] {
	return func(c *MemConnector[T, V]) error {
		for id, item := range seed {
			c.put(id, item)
		}
		return nil
	}
}

func NewMemConnector[T any, V comparable](opts ...MemOption[T, V]) (*MemConnector[T, V], error) {
	c := &MemConnector[T, V]{items: make(map[V]T)}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *MemConnector[T, V]) Fetch(ctx context.Context, id V) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok {
		return zero, false, nil
	}
	return item, true, nil
}

func (c *MemConnector[T, V]) List(ctx context.Context, filter ...V) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(filter) > 1 {
		return nil, errors.New("mem connector: at most one filter value is accepted")
	}
	if len(filter) == 1 && c.matcher == nil {
		return nil, errors.New("mem connector: filtered list requires a matcher")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]T, 0, len(c.order))
	for _, id := range c.order {
		item := c.items[id]
		if len(filter) == 1 && !c.matcher(filter[0], item) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *MemConnector[T, V]) Save(ctx context.Context, id V, value T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.put(id, value)
	c.mu.Unlock()
	return nil
}

func (c *MemConnector[T, V]) Remove(ctx context.Context, id V) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return nil
	}
	delete(c.items, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len reports the number of stored entities.
func (c *MemConnector[T, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// put assumes the write lock is held (or the connector is not yet shared).
func (c *MemConnector[T, V]) put(id V, value T) {
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = value
}
