package stores

import (
	"fmt"
	"sort"

	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// Factory creates a store instance from its configuration entry. The name is
// the entry's key in secretctl.yaml, not the backend type.
type Factory func(name string, cfg config.StoreConfig) (secretstore.Store, error)

// Registry manages store factories keyed by backend type.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry with all built-in store types registered.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
	}
	r.registerBuiltinStores()
	return r
}

// Register adds a factory for a store type, replacing any existing one.
func (r *Registry) Register(storeType string, factory Factory) {
	r.factories[storeType] = factory
}

// Create builds a store of the given type from its configuration entry.
func (r *Registry) Create(storeType, name string, cfg config.StoreConfig) (secretstore.Store, error) {
	factory, exists := r.factories[storeType]
	if !exists {
		return nil, fmt.Errorf("unknown store type: %s", storeType)
	}
	return factory(name, cfg)
}

// SupportedTypes returns the registered store types in sorted order.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for storeType := range r.factories {
		types = append(types, storeType)
	}
	sort.Strings(types)
	return types
}

// IsSupported reports whether the store type has a registered factory.
func (r *Registry) IsSupported(storeType string) bool {
	_, exists := r.factories[storeType]
	return exists
}

// registerBuiltinStores wires every backend this build ships with.
func (r *Registry) registerBuiltinStores() {
	r.Register("memory", func(name string, cfg config.StoreConfig) (secretstore.Store, error) {
		return NewMemoryStoreFromConfig(name, cfg)
	})

	r.Register("cluster", func(name string, cfg config.StoreConfig) (secretstore.Store, error) {
		return NewClusterStore(name, cfg)
	})

	r.Register("aws.secretsmanager", func(name string, cfg config.StoreConfig) (secretstore.Store, error) {
		return NewAWSSecretsManagerStore(name, cfg)
	})

	r.Register("aws.ssm", func(name string, cfg config.StoreConfig) (secretstore.Store, error) {
		return NewAWSSSMStore(name, cfg)
	})

	r.Register("gcp.secretmanager", func(name string, cfg config.StoreConfig) (secretstore.Store, error) {
		return NewGCPSecretManagerStore(name, cfg)
	})

	r.Register("azure.keyvault", func(name string, cfg config.StoreConfig) (secretstore.Store, error) {
		return NewAzureKeyVaultStore(name, cfg)
	})

	r.Register("akeyless", func(name string, cfg config.StoreConfig) (secretstore.Store, error) {
		return NewAkeylessStore(name, cfg)
	})

	r.Register("sql", func(name string, cfg config.StoreConfig) (secretstore.Store, error) {
		return NewSQLStore(name, cfg)
	})
}

// Open resolves a named store entry from the configuration, builds it, and
// wraps it with operation metrics. This is the constructor commands use.
func Open(cfg *config.Config, name string) (secretstore.Store, error) {
	storeCfg, err := cfg.GetStore(name)
	if err != nil {
		return nil, err
	}
	store, err := NewRegistry().Create(storeCfg.Type, name, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store %s: %w", name, err)
	}
	return NewInstrumentedStore(store), nil
}
