package cnx

import (
	"context"
	"errors"
	"time"
)

// LoggedConnector decorates a Connector, logging every operation with its
// outcome and duration. Unimplemented capabilities log at debug level since
// they are a property of the wrapped connector, not a fault.
type LoggedConnector[T, U, V any] struct {
	next   Connector[T, U, V]
	logger Logger
}

func NewLoggedConnector[T, U, V any](next Connector[T, U, V], logger Logger) (*LoggedConnector[T, U, V], error) {
	if next == nil {
		return nil, errors.New("logged connector: wrapped connector is required")
	}
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &LoggedConnector[T, U, V]{next: next, logger: logger}, nil
}

func (c *LoggedConnector[T, U, V]) Fetch(ctx context.Context, id V) (T, bool, error) {
	start := time.Now()
	item, found, err := c.next.Fetch(ctx, id)
	c.log(ctx, OpFetch, start, err, "found", found)
	return item, found, err
}

func (c *LoggedConnector[T, U, V]) List(ctx context.Context, filter ...V) ([]T, error) {
	start := time.Now()
	items, err := c.next.List(ctx, filter...)
	c.log(ctx, OpList, start, err, "count", len(items), "filtered", len(filter) > 0)
	return items, err
}

func (c *LoggedConnector[T, U, V]) Save(ctx context.Context, id V, value U) error {
	start := time.Now()
	err := c.next.Save(ctx, id, value)
	c.log(ctx, OpSave, start, err)
	return err
}

func (c *LoggedConnector[T, U, V]) Remove(ctx context.Context, id V) error {
	start := time.Now()
	err := c.next.Remove(ctx, id)
	c.log(ctx, OpRemove, start, err)
	return err
}

func (c *LoggedConnector[T, U, V]) log(ctx context.Context, op string, start time.Time, err error, extra ...any) {
	args := append([]any{
		"op", op,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"request_id", RequestIDFrom(ctx),
	}, extra...)

	switch {
	case err == nil:
		c.logger.Debug("connector operation", args...)
	case errors.Is(err, ErrUnimplemented):
		c.logger.Debug("connector capability unimplemented", args...)
	default:
		c.logger.Error("connector operation failed", append(args, "error", err.Error())...)
	}
}
