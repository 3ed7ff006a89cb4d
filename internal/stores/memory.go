package stores

import (
	"context"
	"fmt"
	"sync"

	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/errors"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// MemoryStore keeps namespaces and secrets in process memory. It backs the
// "memory" store type used for demos, local experiments, and the test suite;
// nothing survives process exit.
type MemoryStore struct {
	name string

	mu         sync.RWMutex
	namespaces map[string]bool
	secrets    map[string]map[string]secretstore.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name:       name,
		namespaces: make(map[string]bool),
		secrets:    make(map[string]map[string]secretstore.Record),
	}
}

// NewMemoryStoreFromConfig creates an in-memory store pre-seeded with the
// namespaces listed in the store entry. Each process gets a fresh store, so
// seeding is the only way a single command invocation sees existing
// namespaces.
func NewMemoryStoreFromConfig(name string, cfg config.StoreConfig) (*MemoryStore, error) {
	store := NewMemoryStore(name)
	raw, ok := cfg.Config["namespaces"]
	if !ok {
		return store, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, errors.ConfigError{
			Field:      "namespaces",
			Value:      raw,
			Message:    "namespaces must be a list of names",
			Suggestion: "Use a YAML sequence, for example: namespaces: [dev, staging]",
		}
	}
	for _, entry := range list {
		namespace, ok := entry.(string)
		if !ok {
			return nil, errors.ConfigError{
				Field:      "namespaces",
				Value:      fmt.Sprintf("%v", entry),
				Message:    "namespace names must be strings",
				Suggestion: "Quote the entry if YAML parses it as another type",
			}
		}
		store.namespaces[namespace] = true
		store.secrets[namespace] = make(map[string]secretstore.Record)
	}
	return store, nil
}

var _ secretstore.Store = (*MemoryStore)(nil)

// Name returns the store's configured identifier.
func (s *MemoryStore) Name() string {
	return s.name
}

// NamespaceExists reports whether the namespace exists.
func (s *MemoryStore) NamespaceExists(_ context.Context, namespace string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.namespaces[namespace], nil
}

// EnsureNamespace creates the namespace if missing.
func (s *MemoryStore) EnsureNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.namespaces[namespace] {
		s.namespaces[namespace] = true
		s.secrets[namespace] = make(map[string]secretstore.Record)
	}
	return nil
}

// ListNamespaces returns all namespace names.
func (s *MemoryStore) ListNamespaces(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.namespaces))
	for namespace := range s.namespaces {
		names = append(names, namespace)
	}
	return names, nil
}

// SecretExists reports whether the qualified name exists in the namespace.
func (s *MemoryStore) SecretExists(_ context.Context, namespace, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.secrets[namespace]
	if !ok {
		return false, nil
	}
	_, ok = ns[name]
	return ok, nil
}

// CreateSecret stores a new secret record.
func (s *MemoryStore) CreateSecret(_ context.Context, namespace, name, group string, data map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.secrets[namespace]
	if !ok {
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace}
	}
	if _, exists := ns[name]; exists {
		return secretstore.ValidationError{Store: s.name, Message: "secret already exists: " + name}
	}
	ns[name] = secretstore.Record{Name: name, Group: group, Data: cloneData(data)}
	return nil
}

// UpdateSecret replaces the payload of an existing secret.
func (s *MemoryStore) UpdateSecret(_ context.Context, namespace, name string, data map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.secrets[namespace]
	if !ok {
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace}
	}
	rec, ok := ns[name]
	if !ok {
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace, Name: name}
	}
	rec.Data = cloneData(data)
	ns[name] = rec
	return nil
}

// DeleteSecret removes the secret from the namespace.
func (s *MemoryStore) DeleteSecret(_ context.Context, namespace, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.secrets[namespace]
	if !ok {
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace}
	}
	if _, ok := ns[name]; !ok {
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace, Name: name}
	}
	delete(ns, name)
	return nil
}

// ListSecrets returns the namespace's records, filtered by group when set.
// Records are deep-copied so callers cannot mutate store state.
func (s *MemoryStore) ListSecrets(_ context.Context, namespace, group string) (map[string]secretstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.secrets[namespace]
	if !ok {
		return nil, secretstore.NotFoundError{Store: s.name, Namespace: namespace}
	}
	out := make(map[string]secretstore.Record, len(ns))
	for name, rec := range ns {
		if group != "" && rec.Group != group {
			continue
		}
		out[name] = secretstore.Record{Name: rec.Name, Group: rec.Group, Data: cloneData(rec.Data)}
	}
	return out, nil
}

// Validate always succeeds; memory needs no credentials.
func (s *MemoryStore) Validate(_ context.Context) error {
	return nil
}

func cloneData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
