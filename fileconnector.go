package cnx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileConnector stores one encoded file per key under a root directory. Keys
// become file names, so they must be plain path segments. Saves go through a
// temp file plus rename to stay atomic on the same filesystem. Remove is
// idempotent: a missing file is a success.
type FileConnector[T any] struct {
	dir   string
	codec Codec
}

// FileOption mutates a FileConnector during construction.
type FileOption[T any] func(*FileConnector[T]) error

// WithFileCodec replaces the default JSON codec.
func WithFileCodec[T any](codec Codec) FileOption[T] {
	return func(c *FileConnector[T]) error {
		if codec == nil {
			return errors.New("nil codec provided")
		}
		c.codec = codec
		return nil
	}
}

func NewFileConnector[T any](dir string, opts ...FileOption[T]) (*FileConnector[T], error) {
	if dir == "" {
		return nil, errors.New("file connector: directory is required")
	}
	c := &FileConnector[T]{dir: dir, codec: JSONCodec{}}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file connector: create %s: %w", dir, err)
	}
	return c, nil
}

func (c *FileConnector[T]) Fetch(ctx context.Context, id string) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	path, err := c.pathFor(id)
	if err != nil {
		return zero, false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("file connector: read %s: %w", id, err)
	}
	var out T
	if err := c.codec.Unmarshal(data, &out); err != nil {
		return zero, false, fmt.Errorf("file connector: decode %s: %w", id, err)
	}
	return out, true, nil
}

// List enumerates every stored entity in file-name order. Filters are not
// supported by this backend.
func (c *FileConnector[T]) List(ctx context.Context, filter ...string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(filter) > 0 {
		return nil, errors.New("file connector: filters are not supported")
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("file connector: read dir: %w", err)
	}

	items := make([]T, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), c.codec.Ext()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("file connector: read %s: %w", entry.Name(), err)
		}
		var item T
		if err := c.codec.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("file connector: decode %s: %w", entry.Name(), err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *FileConnector[T]) Save(ctx context.Context, id string, value T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := c.pathFor(id)
	if err != nil {
		return err
	}
	data, err := c.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("file connector: encode %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(c.dir, ".save-*")
	if err != nil {
		return fmt.Errorf("file connector: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file connector: write %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file connector: close %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("file connector: rename %s: %w", id, err)
	}
	return nil
}

func (c *FileConnector[T]) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := c.pathFor(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file connector: remove %s: %w", id, err)
	}
	return nil
}

func (c *FileConnector[T]) pathFor(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("file connector: invalid key %q", id)
	}
	return filepath.Join(c.dir, id+c.codec.Ext()), nil
}
