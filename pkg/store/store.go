// Package store persists the quiz snapshot between screens and the orders
// placed at checkout.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned for keys and orders that were never written.
var ErrNotFound = errors.New("not found")

// Order is a confirmed checkout. Payload is the order document as JSON.
type Order struct {
	Number    string          `json:"number"`
	Email     string          `json:"email"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Store defines the persistence interface for snapshots and orders.
type Store interface {
	// Key/value
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Orders
	SaveOrder(ctx context.Context, order Order) error
	GetOrder(ctx context.Context, number string) (Order, error)
	ListOrders(ctx context.Context, limit int) ([]Order, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Driver     string `mapstructure:"driver"`
	Dir        string `mapstructure:"dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Open builds the configured backend and migrates it.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		st  Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverFile, "":
		st, err = NewFile(cfg.Dir)
	case DriverSQLite:
		st, err = NewSQLite(cfg.SQLitePath)
	case DriverMemory:
		st = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key is required")
	}
	return nil
}

func validOrder(o Order) error {
	if strings.TrimSpace(o.Number) == "" {
		return errors.New("order number is required")
	}
	if len(o.Payload) == 0 {
		return errors.New("order payload is required")
	}
	if !json.Valid(o.Payload) {
		return errors.New("order payload is not valid JSON")
	}
	return nil
}
