package store

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtomtong/comfyTrade/errors"
)

// KV is the minimal key-value surface the application persists through.
// Both backends treat values as opaque bytes; callers own serialization.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// MemoryKV is an in-process KV used when no NATS URL is configured, and in
// tests. Safe for concurrent use.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// Get returns the value for key, or ErrKeyNotFound.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "MemoryKV", "Get", "key "+key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores value under key, replacing any prior value.
func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys lists all keys in sorted order.
func (m *MemoryKV) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// JetStreamKV adapts a JetStream key-value bucket to the KV interface.
type JetStreamKV struct {
	bucket jetstream.KeyValue
}

// NewJetStreamKV wraps an open bucket.
func NewJetStreamKV(bucket jetstream.KeyValue) *JetStreamKV {
	return &JetStreamKV{bucket: bucket}
}

func (j *JetStreamKV) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := j.bucket.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "JetStreamKV", "Get", "key "+key)
		}
		return nil, errors.WrapTransient(err, "JetStreamKV", "Get", "read key "+key)
	}
	return entry.Value(), nil
}

func (j *JetStreamKV) Put(ctx context.Context, key string, value []byte) error {
	if _, err := j.bucket.Put(ctx, key, value); err != nil {
		return errors.WrapTransient(err, "JetStreamKV", "Put", "write key "+key)
	}
	return nil
}

func (j *JetStreamKV) Delete(ctx context.Context, key string) error {
	err := j.bucket.Delete(ctx, key)
	if err != nil && !stderrors.Is(err, jetstream.ErrKeyNotFound) {
		return errors.WrapTransient(err, "JetStreamKV", "Delete", "delete key "+key)
	}
	return nil
}

func (j *JetStreamKV) Keys(ctx context.Context) ([]string, error) {
	lister, err := j.bucket.ListKeys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "JetStreamKV", "Keys", "list keys")
	}

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
