// Package storagetest provides an in-memory ObjectStore for tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/beamdash/backend/internal/storage"
)

var ErrInjected = errors.New("injected storage failure")

type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps objects in a map. Puts whose key starts with FailPrefix
// fail with ErrInjected, and every Delete fails when FailDeletes is set.
type MemoryStore struct {
	mu          sync.Mutex
	objects     map[string]Object
	FailPrefix  string
	FailDeletes bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]Object{}}
}

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPrefix != "" && strings.HasPrefix(key, m.FailPrefix) {
		return fmt.Errorf("put %s: %w", key, ErrInjected)
	}
	m.objects[key] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrObjectNotFound)
	}
	return obj.Data, nil
}

func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDeletes {
		return fmt.Errorf("delete %v: %w", keys, ErrInjected)
	}
	for _, k := range keys {
		delete(m.objects, k)
	}
	return nil
}

func (m *MemoryStore) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	return "https://cdn.test/" + key
}

// Object returns the stored object and whether it exists.
func (m *MemoryStore) Object(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys lists every stored key in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ storage.ObjectStore = (*MemoryStore)(nil)
