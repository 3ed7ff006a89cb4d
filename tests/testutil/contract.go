// Package testutil provides shared helpers for secretctl's integration
// tests: the store contract suite and environment gating.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// StoreTestCase describes a store under contract test.
type StoreTestCase struct {
	// Name labels the test output (usually the backend type).
	Name string

	// Store is the implementation to test.
	Store secretstore.Store

	// Namespace is where the suite writes. It is created if missing; the
	// secrets the suite writes are removed again, but the namespace itself
	// stays (flat backends cannot always remove one).
	Namespace string

	// SkipValidate skips the Validate probe, for stores whose Validate
	// needs credentials the test environment does not have.
	SkipValidate bool

	// SkipConcurrency skips the parallel-clients test.
	SkipConcurrency bool
}

const contractTimeout = 30 * time.Second

// RunStoreContractTests asserts the behavior every Store implementation must
// share: namespace lifecycle, secret round trips, group filtering, and clean
// not-found reads. A backend that diverges here breaks the manager's
// check-before-act contract.
//
// Example usage:
//
//	testutil.RunStoreContractTests(t, testutil.StoreTestCase{
//	    Name:      "memory",
//	    Store:     stores.NewMemoryStore("contract"),
//	    Namespace: "contract",
//	})
func RunStoreContractTests(t *testing.T, tc StoreTestCase) {
	t.Helper()

	if tc.Namespace == "" {
		tc.Namespace = "contract"
	}
	store := tc.Store

	t.Run("name_is_stable", func(t *testing.T) {
		require.NotEmpty(t, store.Name())
		assert.Equal(t, store.Name(), store.Name())
	})

	t.Run("validate", func(t *testing.T) {
		if tc.SkipValidate {
			t.Skip("validation skipped for this store")
		}
		require.NoError(t, store.Validate(contractContext(t)))
	})

	t.Run("namespace_lifecycle", func(t *testing.T) {
		ctx := contractContext(t)

		require.NoError(t, store.EnsureNamespace(ctx, tc.Namespace))

		exists, err := store.NamespaceExists(ctx, tc.Namespace)
		require.NoError(t, err)
		assert.True(t, exists)

		// Idempotent
		require.NoError(t, store.EnsureNamespace(ctx, tc.Namespace))

		names, err := store.ListNamespaces(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, tc.Namespace)

		exists, err = store.NamespaceExists(ctx, "contract-absent")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("secret_round_trip", func(t *testing.T) {
		ctx := contractContext(t)
		require.NoError(t, store.EnsureNamespace(ctx, tc.Namespace))

		qualified := "contract-dbcreds"
		first := map[string]string{"USERNAME": "admin", "PASSWORD": "first"}
		second := map[string]string{"USERNAME": "admin", "PASSWORD": "second"}

		require.NoError(t, store.CreateSecret(ctx, tc.Namespace, qualified, "contract", first))
		t.Cleanup(func() {
			_ = store.DeleteSecret(context.Background(), tc.Namespace, qualified)
		})

		exists, err := store.SecretExists(ctx, tc.Namespace, qualified)
		require.NoError(t, err)
		assert.True(t, exists)

		records, err := store.ListSecrets(ctx, tc.Namespace, "")
		require.NoError(t, err)
		rec, ok := records[qualified]
		require.True(t, ok, "created secret must be listed")
		assert.Equal(t, "contract", rec.Group)
		assert.Equal(t, first, rec.Data)

		require.NoError(t, store.UpdateSecret(ctx, tc.Namespace, qualified, second))

		records, err = store.ListSecrets(ctx, tc.Namespace, "")
		require.NoError(t, err)
		rec, ok = records[qualified]
		require.True(t, ok)
		assert.Equal(t, second, rec.Data)
		// Updates must not lose the group
		assert.Equal(t, "contract", rec.Group)

		require.NoError(t, store.DeleteSecret(ctx, tc.Namespace, qualified))

		exists, err = store.SecretExists(ctx, tc.Namespace, qualified)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("group_filtering", func(t *testing.T) {
		ctx := contractContext(t)
		require.NoError(t, store.EnsureNamespace(ctx, tc.Namespace))

		alpha := "contract-alpha"
		beta := "extra-beta"
		require.NoError(t, store.CreateSecret(ctx, tc.Namespace, alpha, "contract", map[string]string{"A": "1"}))
		require.NoError(t, store.CreateSecret(ctx, tc.Namespace, beta, "extra", map[string]string{"B": "2"}))
		t.Cleanup(func() {
			_ = store.DeleteSecret(context.Background(), tc.Namespace, alpha)
			_ = store.DeleteSecret(context.Background(), tc.Namespace, beta)
		})

		records, err := store.ListSecrets(ctx, tc.Namespace, "contract")
		require.NoError(t, err)
		assert.Contains(t, records, alpha)
		assert.NotContains(t, records, beta)

		records, err = store.ListSecrets(ctx, tc.Namespace, "extra")
		require.NoError(t, err)
		assert.Contains(t, records, beta)
		assert.NotContains(t, records, alpha)

		records, err = store.ListSecrets(ctx, tc.Namespace, "")
		require.NoError(t, err)
		assert.Contains(t, records, alpha)
		assert.Contains(t, records, beta)
	})

	t.Run("missing_reads_are_clean", func(t *testing.T) {
		ctx := contractContext(t)
		require.NoError(t, store.EnsureNamespace(ctx, tc.Namespace))

		exists, err := store.SecretExists(ctx, tc.Namespace, "contract-neverwritten")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("concurrent_clients", func(t *testing.T) {
		if tc.SkipConcurrency {
			t.Skip("concurrency skipped for this store")
		}

		ctx := contractContext(t)
		require.NoError(t, store.EnsureNamespace(ctx, tc.Namespace))

		const workers = 4
		errs := make(chan error, workers*3)
		var wg sync.WaitGroup

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				name := fmt.Sprintf("contract-worker%d", i)
				data := map[string]string{"ID": fmt.Sprintf("%d", i)}

				errs <- store.CreateSecret(ctx, tc.Namespace, name, "contract", data)
				_, err := store.SecretExists(ctx, tc.Namespace, name)
				errs <- err
				errs <- store.DeleteSecret(ctx, tc.Namespace, name)
			}(i)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
	})
}

// contractContext returns a context bounded by the contract timeout, canceled
// when the test ends.
func contractContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), contractTimeout)
	t.Cleanup(cancel)
	return ctx
}
