package store

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory. State is lost on exit,
// which matches a single browser session.
type MemoryStore struct {
	mu     sync.RWMutex
	kv     map[string][]byte
	orders map[string]Order
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		kv:     make(map[string][]byte),
		orders: make(map[string]Order),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.kv[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = bytes.Clone(value)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, key)
	return nil
}

func (m *MemoryStore) SaveOrder(_ context.Context, order Order) error {
	if err := validOrder(order); err != nil {
		return err
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.Payload = bytes.Clone(order.Payload)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.Number] = order
	return nil
}

func (m *MemoryStore) GetOrder(_ context.Context, number string) (Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[number]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Payload = bytes.Clone(o.Payload)
	return o, nil
}

func (m *MemoryStore) ListOrders(_ context.Context, limit int) ([]Order, error) {
	m.mu.RLock()
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		o.Payload = bytes.Clone(o.Payload)
		out = append(out, o)
	}
	m.mu.RUnlock()
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func sortNewestFirst(orders []Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].Number < orders[j].Number
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
