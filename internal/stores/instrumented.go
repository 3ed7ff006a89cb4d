package stores

import (
	"context"
	"time"

	"github.com/systmms/secretctl/internal/metrics"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// InstrumentedStore decorates a store with Prometheus operation metrics.
// Every call is recorded with its duration and outcome under the inner
// store's name; the decorator adds no behavior of its own.
type InstrumentedStore struct {
	inner   secretstore.Store
	metrics *metrics.StoreMetrics
}

// NewInstrumentedStore wraps a store with metrics recording.
func NewInstrumentedStore(inner secretstore.Store) *InstrumentedStore {
	return &InstrumentedStore{
		inner:   inner,
		metrics: metrics.NewStoreMetrics(),
	}
}

var _ secretstore.Store = (*InstrumentedStore)(nil)

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RecordOperation(s.inner.Name(), operation, outcome, time.Since(start).Seconds())
}

// Name returns the inner store's identifier.
func (s *InstrumentedStore) Name() string {
	return s.inner.Name()
}

// NamespaceExists implements secretstore.Store.
func (s *InstrumentedStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	start := time.Now()
	exists, err := s.inner.NamespaceExists(ctx, namespace)
	s.observe("namespace_exists", start, err)
	return exists, err
}

// EnsureNamespace implements secretstore.Store.
func (s *InstrumentedStore) EnsureNamespace(ctx context.Context, namespace string) error {
	start := time.Now()
	err := s.inner.EnsureNamespace(ctx, namespace)
	s.observe("ensure_namespace", start, err)
	return err
}

// ListNamespaces implements secretstore.Store.
func (s *InstrumentedStore) ListNamespaces(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := s.inner.ListNamespaces(ctx)
	s.observe("list_namespaces", start, err)
	return names, err
}

// SecretExists implements secretstore.Store.
func (s *InstrumentedStore) SecretExists(ctx context.Context, namespace, name string) (bool, error) {
	start := time.Now()
	exists, err := s.inner.SecretExists(ctx, namespace, name)
	s.observe("secret_exists", start, err)
	return exists, err
}

// CreateSecret implements secretstore.Store.
func (s *InstrumentedStore) CreateSecret(ctx context.Context, namespace, name, group string, data map[string]string) error {
	start := time.Now()
	err := s.inner.CreateSecret(ctx, namespace, name, group, data)
	s.observe("create_secret", start, err)
	return err
}

// UpdateSecret implements secretstore.Store.
func (s *InstrumentedStore) UpdateSecret(ctx context.Context, namespace, name string, data map[string]string) error {
	start := time.Now()
	err := s.inner.UpdateSecret(ctx, namespace, name, data)
	s.observe("update_secret", start, err)
	return err
}

// DeleteSecret implements secretstore.Store.
func (s *InstrumentedStore) DeleteSecret(ctx context.Context, namespace, name string) error {
	start := time.Now()
	err := s.inner.DeleteSecret(ctx, namespace, name)
	s.observe("delete_secret", start, err)
	return err
}

// ListSecrets implements secretstore.Store.
func (s *InstrumentedStore) ListSecrets(ctx context.Context, namespace, group string) (map[string]secretstore.Record, error) {
	start := time.Now()
	records, err := s.inner.ListSecrets(ctx, namespace, group)
	s.observe("list_secrets", start, err)
	return records, err
}

// Validate implements secretstore.Store.
func (s *InstrumentedStore) Validate(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Validate(ctx)
	s.observe("validate", start, err)
	return err
}

// Close releases the inner store's resources when it holds any. Backends
// disagree on whether Close reports an error, so both shapes are accepted.
func (s *InstrumentedStore) Close() {
	switch closer := s.inner.(type) {
	case interface{ Close() }:
		closer.Close()
	case interface{ Close() error }:
		_ = closer.Close()
	}
}
