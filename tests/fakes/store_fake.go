package fakes

import (
	"context"
	"fmt"

	"github.com/systmms/secretctl/pkg/secretstore"
)

// FakeStore is an in-memory implementation of secretstore.Store for unit
// tests. State is held in exported maps so tests can seed and inspect it
// directly; the Calls log records every operation so tests can assert that a
// call did or did not happen.
type FakeStore struct {
	// StoreName is returned by Name. Defaults to "fake".
	StoreName string

	// Namespaces holds the existing namespace names.
	Namespaces map[string]bool

	// Secrets maps namespace to qualified secret name to record.
	Secrets map[string]map[string]secretstore.Record

	// Errors maps an operation name ("NamespaceExists", "CreateSecret", ...)
	// to an error that operation should return.
	Errors map[string]error

	// Calls records operations in order, formatted as "Op(arg1,arg2)".
	Calls []string

	// NamespaceExistsFunc allows custom behavior for NamespaceExists
	NamespaceExistsFunc func(ctx context.Context, namespace string) (bool, error)
	// SecretExistsFunc allows custom behavior for SecretExists
	SecretExistsFunc func(ctx context.Context, namespace, name string) (bool, error)
	// ListSecretsFunc allows custom behavior for ListSecrets
	ListSecretsFunc func(ctx context.Context, namespace, group string) (map[string]secretstore.Record, error)
	// ValidateFunc allows custom behavior for Validate
	ValidateFunc func(ctx context.Context) error
}

// NewFakeStore creates an empty fake store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		StoreName:  "fake",
		Namespaces: make(map[string]bool),
		Secrets:    make(map[string]map[string]secretstore.Record),
		Errors:     make(map[string]error),
	}
}

// AddNamespace registers a namespace as existing.
func (f *FakeStore) AddNamespace(namespace string) {
	f.Namespaces[namespace] = true
	if f.Secrets[namespace] == nil {
		f.Secrets[namespace] = make(map[string]secretstore.Record)
	}
}

// AddSecret seeds a secret record. The namespace is created implicitly.
func (f *FakeStore) AddSecret(namespace, qualified, group string, data map[string]string) {
	f.AddNamespace(namespace)
	f.Secrets[namespace][qualified] = secretstore.Record{
		Name:  qualified,
		Group: group,
		Data:  data,
	}
}

// CallsTo counts recorded calls to the named operation.
func (f *FakeStore) CallsTo(op string) int {
	count := 0
	for _, call := range f.Calls {
		if len(call) >= len(op) && call[:len(op)] == op {
			count++
		}
	}
	return count
}

func (f *FakeStore) record(op string, args ...interface{}) {
	call := op + "("
	for i, arg := range args {
		if i > 0 {
			call += ","
		}
		call += fmt.Sprintf("%v", arg)
	}
	call += ")"
	f.Calls = append(f.Calls, call)
}

// Name implements secretstore.Store.
func (f *FakeStore) Name() string {
	if f.StoreName == "" {
		return "fake"
	}
	return f.StoreName
}

// NamespaceExists implements secretstore.Store.
func (f *FakeStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	f.record("NamespaceExists", namespace)
	if f.NamespaceExistsFunc != nil {
		return f.NamespaceExistsFunc(ctx, namespace)
	}
	if err := f.Errors["NamespaceExists"]; err != nil {
		return false, err
	}
	return f.Namespaces[namespace], nil
}

// EnsureNamespace implements secretstore.Store.
func (f *FakeStore) EnsureNamespace(_ context.Context, namespace string) error {
	f.record("EnsureNamespace", namespace)
	if err := f.Errors["EnsureNamespace"]; err != nil {
		return err
	}
	f.AddNamespace(namespace)
	return nil
}

// ListNamespaces implements secretstore.Store.
func (f *FakeStore) ListNamespaces(_ context.Context) ([]string, error) {
	f.record("ListNamespaces")
	if err := f.Errors["ListNamespaces"]; err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.Namespaces))
	for namespace := range f.Namespaces {
		names = append(names, namespace)
	}
	return names, nil
}

// SecretExists implements secretstore.Store.
func (f *FakeStore) SecretExists(ctx context.Context, namespace, name string) (bool, error) {
	f.record("SecretExists", namespace, name)
	if f.SecretExistsFunc != nil {
		return f.SecretExistsFunc(ctx, namespace, name)
	}
	if err := f.Errors["SecretExists"]; err != nil {
		return false, err
	}
	ns, ok := f.Secrets[namespace]
	if !ok {
		return false, nil
	}
	_, ok = ns[name]
	return ok, nil
}

// CreateSecret implements secretstore.Store.
func (f *FakeStore) CreateSecret(_ context.Context, namespace, name, group string, data map[string]string) error {
	f.record("CreateSecret", namespace, name)
	if err := f.Errors["CreateSecret"]; err != nil {
		return err
	}
	if !f.Namespaces[namespace] {
		return secretstore.NotFoundError{Store: f.Name(), Namespace: namespace}
	}
	if _, exists := f.Secrets[namespace][name]; exists {
		return secretstore.ValidationError{Store: f.Name(), Message: "secret already exists: " + name}
	}
	f.Secrets[namespace][name] = secretstore.Record{Name: name, Group: group, Data: copyData(data)}
	return nil
}

// UpdateSecret implements secretstore.Store.
func (f *FakeStore) UpdateSecret(_ context.Context, namespace, name string, data map[string]string) error {
	f.record("UpdateSecret", namespace, name)
	if err := f.Errors["UpdateSecret"]; err != nil {
		return err
	}
	ns, ok := f.Secrets[namespace]
	if !ok {
		return secretstore.NotFoundError{Store: f.Name(), Namespace: namespace}
	}
	rec, ok := ns[name]
	if !ok {
		return secretstore.NotFoundError{Store: f.Name(), Namespace: namespace, Name: name}
	}
	rec.Data = copyData(data)
	ns[name] = rec
	return nil
}

// DeleteSecret implements secretstore.Store.
func (f *FakeStore) DeleteSecret(_ context.Context, namespace, name string) error {
	f.record("DeleteSecret", namespace, name)
	if err := f.Errors["DeleteSecret"]; err != nil {
		return err
	}
	ns, ok := f.Secrets[namespace]
	if !ok {
		return secretstore.NotFoundError{Store: f.Name(), Namespace: namespace}
	}
	delete(ns, name)
	return nil
}

// ListSecrets implements secretstore.Store.
func (f *FakeStore) ListSecrets(ctx context.Context, namespace, group string) (map[string]secretstore.Record, error) {
	f.record("ListSecrets", namespace, group)
	if f.ListSecretsFunc != nil {
		return f.ListSecretsFunc(ctx, namespace, group)
	}
	if err := f.Errors["ListSecrets"]; err != nil {
		return nil, err
	}
	ns, ok := f.Secrets[namespace]
	if !ok {
		return nil, secretstore.NotFoundError{Store: f.Name(), Namespace: namespace}
	}
	out := make(map[string]secretstore.Record, len(ns))
	for name, rec := range ns {
		if group != "" && rec.Group != group {
			continue
		}
		out[name] = rec
	}
	return out, nil
}

// Validate implements secretstore.Store.
func (f *FakeStore) Validate(ctx context.Context) error {
	f.record("Validate")
	if f.ValidateFunc != nil {
		return f.ValidateFunc(ctx)
	}
	return f.Errors["Validate"]
}

func copyData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
