package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// FileStore writes one file per key under Dir and one JSON document per
// order under Dir/orders. Files are created with mode 0600.
type FileStore struct {
	dir string
}

func NewFile(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, eris.New("file store: directory is required")
	}
	return &FileStore{dir: filepath.Clean(dir)}, nil
}

func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) keyPath(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *FileStore) orderPath(number string) string {
	return filepath.Join(f.dir, "orders", url.PathEscape(number)+".json")
}

func (f *FileStore) Migrate(context.Context) error {
	if err := os.MkdirAll(filepath.Join(f.dir, "orders"), 0o700); err != nil {
		return eris.Wrapf(err, "file store: create %s", f.dir)
	}
	return nil
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.keyPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file store: read %s", key)
	}
	return data, nil
}

func (f *FileStore) Put(_ context.Context, key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	return writeFileAtomic(f.keyPath(key), value)
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(f.keyPath(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "file store: delete %s", key)
	}
	return nil
}

func (f *FileStore) SaveOrder(_ context.Context, order Order) error {
	if err := validOrder(order); err != nil {
		return err
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(order, "", "  ")
	if err != nil {
		return eris.Wrap(err, "file store: marshal order")
	}
	return writeFileAtomic(f.orderPath(order.Number), data)
}

func (f *FileStore) GetOrder(_ context.Context, number string) (Order, error) {
	data, err := os.ReadFile(f.orderPath(number))
	if errors.Is(err, os.ErrNotExist) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, eris.Wrapf(err, "file store: read order %s", number)
	}
	var o Order
	if err := json.Unmarshal(data, &o); err != nil {
		return Order{}, eris.Wrapf(err, "file store: decode order %s", number)
	}
	return o, nil
}

func (f *FileStore) ListOrders(ctx context.Context, limit int) ([]Order, error) {
	entries, err := os.ReadDir(filepath.Join(f.dir, "orders"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "file store: list orders")
	}
	var out []Order
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		number, err := url.PathUnescape(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		o, err := f.GetOrder(ctx, number)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FileStore) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return eris.Wrapf(err, "file store: create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return eris.Wrap(err, "file store: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return eris.Wrap(err, "file store: chmod")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrap(err, "file store: write")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "file store: close")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "file store: rename to %s", path)
	}
	return nil
}
