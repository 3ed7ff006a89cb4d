package stores_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/stores"
	"github.com/systmms/secretctl/pkg/secretstore"
	"github.com/systmms/secretctl/tests/fakes"
)

func newAkeylessStore(t *testing.T, client *fakes.FakeAkeylessClient) *stores.AkeylessStore {
	t.Helper()
	store, err := stores.NewAkeylessStore("akeyless-test", config.StoreConfig{
		Config: map[string]interface{}{"access_id": "p-1234"},
	}, stores.WithAkeylessClient(client))
	require.NoError(t, err)
	return store
}

func TestAkeylessStoreName(t *testing.T) {
	t.Parallel()

	store := newAkeylessStore(t, fakes.NewFakeAkeylessClient())
	assert.Equal(t, "akeyless-test", store.Name())
}

func TestAkeylessNamespaceLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeAkeylessClient()
	store := newAkeylessStore(t, fake)

	exists, err := store.NamespaceExists(ctx, "staging")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.EnsureNamespace(ctx, "staging"))

	exists, err = store.NamespaceExists(ctx, "staging")
	require.NoError(t, err)
	assert.True(t, exists)

	marker := fake.Items["/secretctl/staging/.secretctl"]
	require.NotNil(t, marker)
	assert.Equal(t, "{}", marker.Value)
	assert.Contains(t, marker.Tags, "secretctl-namespace:staging")

	require.NoError(t, store.EnsureNamespace(ctx, "staging"))
}

func TestAkeylessListNamespaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeAkeylessClient()
	fake.AddStaticSecret("/secretctl/staging/db-password", `{"value":"a"}`)
	fake.AddStaticSecret("/secretctl/staging/api-token", `{"value":"b"}`)
	fake.AddStaticSecret("/secretctl/production/.secretctl", "{}")
	fake.AddStaticSecret("/secretctl/loose-item", "not a folder")

	store := newAkeylessStore(t, fake)

	names, err := store.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"staging", "production"}, names)
}

func TestAkeylessCreateSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setupFake func(f *fakes.FakeAkeylessClient)
		wantErr   bool
		errType   string
	}{
		{
			name:      "success",
			setupFake: func(f *fakes.FakeAkeylessClient) {},
		},
		{
			name: "duplicate_name",
			setupFake: func(f *fakes.FakeAkeylessClient) {
				f.AddStaticSecret("/secretctl/staging/db-password", `{"value":"old"}`)
			},
			wantErr: true,
			errType: "validation",
		},
		{
			name: "auth_failure",
			setupFake: func(f *fakes.FakeAkeylessClient) {
				f.AddError("/secretctl/staging/db-password", fakes.ErrFakeAkeylessUnauthorized)
			},
			wantErr: true,
			errType: "auth",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			fake := fakes.NewFakeAkeylessClient()
			tt.setupFake(fake)
			store := newAkeylessStore(t, fake)

			err := store.CreateSecret(ctx, "staging", "db-password", "db", map[string]string{"value": "hunter2"})

			if tt.wantErr {
				require.Error(t, err)
				switch tt.errType {
				case "validation":
					var validation secretstore.ValidationError
					require.ErrorAs(t, err, &validation)
					assert.Contains(t, validation.Message, "already exists")
				case "auth":
					var auth secretstore.AuthError
					require.ErrorAs(t, err, &auth)
					assert.Equal(t, "akeyless-test", auth.Store)
				}
				return
			}

			require.NoError(t, err)
			stored := fake.Items["/secretctl/staging/db-password"]
			require.NotNil(t, stored)
			assert.JSONEq(t, `{"value":"hunter2"}`, stored.Value)
			assert.Equal(t, "STATIC_SECRET", stored.ItemType)
			assert.Contains(t, stored.Tags, "secretctl-namespace:staging")
			assert.Contains(t, stored.Tags, "secretctl-group:db")
		})
	}
}

func TestAkeylessCustomPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeAkeylessClient()

	store, err := stores.NewAkeylessStore("akeyless-test", config.StoreConfig{
		Config: map[string]interface{}{"prefix": "/infra/secrets/"},
	}, stores.WithAkeylessClient(fake))
	require.NoError(t, err)

	require.NoError(t, store.CreateSecret(ctx, "staging", "db-password", "db", map[string]string{"value": "x"}))
	assert.Contains(t, fake.Items, "/infra/secrets/staging/db-password")
}

func TestAkeylessSecretExists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeAkeylessClient()
	fake.AddStaticSecret("/secretctl/staging/db-password", `{"value":"x"}`)
	store := newAkeylessStore(t, fake)

	exists, err := store.SecretExists(ctx, "staging", "db-password")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.SecretExists(ctx, "staging", "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAkeylessUpdateSecret(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeAkeylessClient()
	fake.AddStaticSecret("/secretctl/staging/db-password", `{"value":"old"}`,
		"secretctl-namespace:staging", "secretctl-group:db")
	store := newAkeylessStore(t, fake)

	require.NoError(t, store.UpdateSecret(ctx, "staging", "db-password", map[string]string{"value": "new"}))

	stored := fake.Items["/secretctl/staging/db-password"]
	assert.JSONEq(t, `{"value":"new"}`, stored.Value)
	assert.Contains(t, stored.Tags, "secretctl-group:db")

	var notFound secretstore.NotFoundError
	err := store.UpdateSecret(ctx, "staging", "missing", map[string]string{"value": "x"})
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Name)
}

func TestAkeylessDeleteSecret(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeAkeylessClient()
	fake.AddStaticSecret("/secretctl/staging/db-password", `{"value":"x"}`)
	store := newAkeylessStore(t, fake)

	require.NoError(t, store.DeleteSecret(ctx, "staging", "db-password"))
	assert.NotContains(t, fake.Items, "/secretctl/staging/db-password")

	var notFound secretstore.NotFoundError
	err := store.DeleteSecret(ctx, "staging", "db-password")
	require.ErrorAs(t, err, &notFound)
}

func TestAkeylessListSecrets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setupFake func(f *fakes.FakeAkeylessClient)
		namespace string
		group     string
		wantNames []string
		wantErr   bool
	}{
		{
			name: "all_groups",
			setupFake: func(f *fakes.FakeAkeylessClient) {
				f.AddStaticSecret("/secretctl/staging/.secretctl", "{}")
				f.AddStaticSecret("/secretctl/staging/db-password", `{"value":"a"}`,
					"secretctl-namespace:staging", "secretctl-group:db")
				f.AddStaticSecret("/secretctl/staging/db-username", `{"value":"b"}`,
					"secretctl-namespace:staging", "secretctl-group:db")
				f.AddStaticSecret("/secretctl/staging/api-token", `{"value":"c"}`,
					"secretctl-namespace:staging", "secretctl-group:api")
				f.AddStaticSecret("/secretctl/production/db-password", `{"value":"d"}`,
					"secretctl-namespace:production", "secretctl-group:db")
			},
			namespace: "staging",
			wantNames: []string{"db-password", "db-username", "api-token"},
		},
		{
			name: "group_filter",
			setupFake: func(f *fakes.FakeAkeylessClient) {
				f.AddStaticSecret("/secretctl/staging/db-password", `{"value":"a"}`,
					"secretctl-namespace:staging", "secretctl-group:db")
				f.AddStaticSecret("/secretctl/staging/api-token", `{"value":"c"}`,
					"secretctl-namespace:staging", "secretctl-group:api")
			},
			namespace: "staging",
			group:     "db",
			wantNames: []string{"db-password"},
		},
		{
			name: "non_static_items_skipped",
			setupFake: func(f *fakes.FakeAkeylessClient) {
				f.AddStaticSecret("/secretctl/staging/db-password", `{"value":"a"}`,
					"secretctl-namespace:staging", "secretctl-group:db")
				f.AddItem("/secretctl/staging/signing-key", "CLASSIC_KEY")
			},
			namespace: "staging",
			wantNames: []string{"db-password"},
		},
		{
			name: "empty_namespace_with_marker",
			setupFake: func(f *fakes.FakeAkeylessClient) {
				f.AddStaticSecret("/secretctl/staging/.secretctl", "{}")
			},
			namespace: "staging",
			wantNames: []string{},
		},
		{
			name:      "missing_namespace",
			setupFake: func(f *fakes.FakeAkeylessClient) {},
			namespace: "staging",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			fake := fakes.NewFakeAkeylessClient()
			tt.setupFake(fake)
			store := newAkeylessStore(t, fake)

			records, err := store.ListSecrets(ctx, tt.namespace, tt.group)

			if tt.wantErr {
				require.Error(t, err)
				var notFound secretstore.NotFoundError
				require.ErrorAs(t, err, &notFound)
				assert.Equal(t, tt.namespace, notFound.Namespace)
				return
			}

			require.NoError(t, err)
			names := make([]string, 0, len(records))
			for name := range records {
				names = append(names, name)
			}
			assert.ElementsMatch(t, tt.wantNames, names)
		})
	}
}

func TestAkeylessListSecretsPayloads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeAkeylessClient()
	fake.AddStaticSecret("/secretctl/staging/db-password",
		`{"username":"admin","password":"hunter2"}`,
		"secretctl-namespace:staging", "secretctl-group:db")

	store := newAkeylessStore(t, fake)

	records, err := store.ListSecrets(ctx, "staging", "")
	require.NoError(t, err)

	rec := records["db-password"]
	assert.Equal(t, "db-password", rec.Name)
	assert.Equal(t, "db", rec.Group)
	assert.Equal(t, map[string]string{"username": "admin", "password": "hunter2"}, rec.Data)
}

func TestAkeylessTokenReuse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeAkeylessClient()
	fake.AddStaticSecret("/secretctl/staging/db-password", `{"value":"x"}`,
		"secretctl-namespace:staging", "secretctl-group:db")
	store := newAkeylessStore(t, fake)

	_, err := store.ListSecrets(ctx, "staging", "")
	require.NoError(t, err)
	exists, err := store.SecretExists(ctx, "staging", "db-password")
	require.NoError(t, err)
	assert.True(t, exists)

	// The cached token serves every call after the first
	assert.Equal(t, 1, fake.AuthCallCount)
}

func TestAkeylessAuthenticationFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeAkeylessClient()
	fake.AuthErr = fakes.ErrFakeAkeylessUnauthorized
	store := newAkeylessStore(t, fake)

	_, err := store.NamespaceExists(ctx, "staging")
	require.Error(t, err)

	var auth secretstore.AuthError
	require.ErrorAs(t, err, &auth)
	assert.Equal(t, "akeyless-test", auth.Store)
}

func TestAkeylessValidate(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeAkeylessClient()
	store := newAkeylessStore(t, fake)

	require.NoError(t, store.Validate(context.Background()))
	assert.Equal(t, 1, fake.AuthCallCount)

	failing := fakes.NewFakeAkeylessClient()
	failing.AuthErr = fakes.ErrFakeAkeylessUnauthorized
	store = newAkeylessStore(t, failing)

	var auth secretstore.AuthError
	err := store.Validate(context.Background())
	require.ErrorAs(t, err, &auth)
}
