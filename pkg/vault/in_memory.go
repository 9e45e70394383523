package vault

import (
	"context"
	"sync"
)

// InMemorySecretStore is used by tests and local development.
type InMemorySecretStore struct {
	mu   sync.RWMutex
	data map[string]map[string]any
}

func NewInMemorySecretStore() *InMemorySecretStore {
	return &InMemorySecretStore{
		data: make(map[string]map[string]any),
	}
}

func (v *InMemorySecretStore) Create(_ context.Context, secretID string, payload map[string]any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[secretID] = payload
	return nil
}

func (v *InMemorySecretStore) Read(_ context.Context, secretID string) (map[string]any, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	payload, ok := v.data[secretID]
	if !ok {
		return nil, ErrSecretNotFound
	}
	return payload, nil
}

func (v *InMemorySecretStore) Update(_ context.Context, secretID string, payload map[string]any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.data[secretID]; !ok {
		return ErrSecretNotFound
	}
	v.data[secretID] = payload
	return nil
}

func (v *InMemorySecretStore) Delete(_ context.Context, secretID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.data, secretID)
	return nil
}

func (v *InMemorySecretStore) List(_ context.Context) ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.data))
	for k := range v.data {
		keys = append(keys, k)
	}
	return keys, nil
}
