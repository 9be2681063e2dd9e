package recommend

import (
	"context"
	"fmt"
)

// KV is the slice of a key/value store the snapshot contract needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Save encodes s and writes it under key.
func Save(ctx context.Context, kv KV, key string, s Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save quiz snapshot: %w", err)
	}
	return nil
}

// Restore reads the snapshot under key. The returned snapshot is always
// usable; a non-nil error only explains why Default was substituted.
func Restore(ctx context.Context, kv KV, key string) (Snapshot, error) {
	data, err := kv.Get(ctx, key)
	if err != nil {
		return Default(), fmt.Errorf("read quiz snapshot: %w", err)
	}
	s, err := Decode(data)
	if err != nil {
		return Default(), err
	}
	return s, nil
}
