package cnx

import (
	"context"
	"errors"
)

// Operation names used by unimplemented-capability errors.
const (
	OpFetch  = "fetch"
	OpList   = "list"
	OpSave   = "save"
	OpRemove = "remove"
)

// ErrUnimplemented matches every default failure produced by Base, letting
// generic callers tell "this connector does not support this operation" apart
// from a backend failure. Use errors.Is(err, ErrUnimplemented).
var ErrUnimplemented = errors.New("method has not been implemented")

// UnimplementedError is the error a default (non-overridden) optional
// operation returns. Op names the missing capability.
type UnimplementedError struct {
	Op string
}

func (e *UnimplementedError) Error() string {
	return e.Op + " method has not been implemented."
}

func (e *UnimplementedError) Is(target error) bool {
	return target == ErrUnimplemented
}

// Connector is the minimum contract generic consumers depend on for
// key-addressed entity access. T is the entity type returned by Fetch and
// List, U the payload accepted by Save, and V the key or filter type.
//
// Fetch is the only mandatory operation. The other three have inert defaults
// supplied by Base; implementations that support them override the embedded
// method. The contract holds no state, performs no I/O, and gives no ordering
// guarantee between concurrent calls. Implementations own and serialize
// access to their backing stores.
type Connector[T, U, V any] interface {
	// Fetch resolves the entity stored under id. A missing entity is not an
	// error: Fetch returns the zero T, false and a nil error. Any other
	// failure surfaces through the error return.
	Fetch(ctx context.Context, id V) (T, bool, error)

	// List resolves entities matching the optional filter. At most one
	// filter value is accepted. No matches resolve to an empty slice, not an
	// error. Ordering is implementation-defined.
	List(ctx context.Context, filter ...V) ([]T, error)

	// Save durably stores value under id.
	Save(ctx context.Context, id V, value U) error

	// Remove deletes the entity stored under id. Whether removing a missing
	// id succeeds is an implementation choice.
	Remove(ctx context.Context, id V) error
}

// Keyed is the common instantiation of Connector: entities saved in their
// retrieved form under string keys.
type Keyed[T any] = Connector[T, T, string]

// Base supplies default bodies for the three optional operations, each
// failing with a fixed UnimplementedError. A connector embeds Base and
// implements Fetch; List, Save and Remove reject until overridden.
//
// Base has no Fetch on purpose: a type embedding it without a Fetch of its
// own does not satisfy Connector, so a missing mandatory operation is a
// compile-time error rather than a runtime surprise.
type Base[T, U, V any] struct{}

func (Base[T, U, V]) List(context.Context, ...V) ([]T, error) {
	return nil, &UnimplementedError{Op: OpList}
}

func (Base[T, U, V]) Save(context.Context, V, U) error {
	return &UnimplementedError{Op: OpSave}
}

func (Base[T, U, V]) Remove(context.Context, V) error {
	return &UnimplementedError{Op: OpRemove}
}

// KeyedBase mirrors Keyed for embedding.
type KeyedBase[T any] = Base[T, T, string]
