package stores_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/stores"
	"github.com/systmms/secretctl/pkg/secretstore"
	"github.com/systmms/secretctl/tests/fakes"
)

func newSecretsManagerStore(t *testing.T, client *fakes.FakeSecretsManagerClient) *stores.AWSSecretsManagerStore {
	t.Helper()
	store, err := stores.NewAWSSecretsManagerStore("aws-test", config.StoreConfig{
		Config: map[string]interface{}{"region": "us-east-1"},
	}, stores.WithSecretsManagerClient(client))
	require.NoError(t, err)
	return store
}

func namespaceTags(namespace string) []types.Tag {
	return []types.Tag{
		{Key: aws.String("secretctl-namespace"), Value: aws.String(namespace)},
	}
}

func secretTags(namespace, group string) []types.Tag {
	return []types.Tag{
		{Key: aws.String("secretctl-namespace"), Value: aws.String(namespace)},
		{Key: aws.String("secretctl-group"), Value: aws.String(group)},
	}
}

func awsTagValue(tags []types.Tag, key string) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == key {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}

func TestAWSSecretsManagerStoreName(t *testing.T) {
	t.Parallel()

	store, err := stores.NewAWSSecretsManagerStore("aws-prod", config.StoreConfig{
		Config: map[string]interface{}{"region": "eu-west-1"},
	}, stores.WithSecretsManagerClient(fakes.NewFakeSecretsManagerClient()))
	require.NoError(t, err)
	assert.Equal(t, "aws-prod", store.Name())
}

func TestAWSSecretsManagerNamespaceLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeSecretsManagerClient()
	store := newSecretsManagerStore(t, fake)

	exists, err := store.NamespaceExists(ctx, "staging")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.EnsureNamespace(ctx, "staging"))

	exists, err = store.NamespaceExists(ctx, "staging")
	require.NoError(t, err)
	assert.True(t, exists)

	// The marker secret carries the namespace tag
	marker := fake.Secrets["staging/.secretctl"]
	require.NotNil(t, marker)
	assert.Equal(t, "staging", awsTagValue(marker.Tags, "secretctl-namespace"))

	// Repeating is a no-op
	require.NoError(t, store.EnsureNamespace(ctx, "staging"))
}

func TestAWSSecretsManagerListNamespaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeSecretsManagerClient()
	fake.AddSecretWithTags("staging/.secretctl", "{}", namespaceTags("staging"))
	fake.AddSecretWithTags("production/.secretctl", "{}", namespaceTags("production"))
	fake.AddSecretWithTags("staging/db-password", `{"value":"x"}`, secretTags("staging", "db"))
	fake.AddSecretString("unrelated-object", "foreign")

	store := newSecretsManagerStore(t, fake)

	names, err := store.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"staging", "production"}, names)
}

func TestAWSSecretsManagerCreateSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setupFake func(f *fakes.FakeSecretsManagerClient)
		wantErr   bool
		errType   string
	}{
		{
			name:      "success",
			setupFake: func(f *fakes.FakeSecretsManagerClient) {},
		},
		{
			name: "duplicate_name",
			setupFake: func(f *fakes.FakeSecretsManagerClient) {
				f.AddSecretWithTags("staging/db-password", `{"value":"old"}`, secretTags("staging", "db"))
			},
			wantErr: true,
			errType: "validation",
		},
		{
			name: "auth_failure",
			setupFake: func(f *fakes.FakeSecretsManagerClient) {
				f.AddError("staging/db-password", errors.New("operation error Secrets Manager: CreateSecret, UnrecognizedClientException"))
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
			fake := fakes.NewFakeSecretsManagerClient()
			tt.setupFake(fake)
			store := newSecretsManagerStore(t, fake)

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
					assert.Equal(t, "aws-test", auth.Store)
				}
				return
			}

			require.NoError(t, err)
			stored := fake.Secrets["staging/db-password"]
			require.NotNil(t, stored)
			assert.JSONEq(t, `{"value":"hunter2"}`, aws.ToString(stored.SecretString))
			assert.Equal(t, "staging", awsTagValue(stored.Tags, "secretctl-namespace"))
			assert.Equal(t, "db", awsTagValue(stored.Tags, "secretctl-group"))
		})
	}
}

func TestAWSSecretsManagerSecretExists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeSecretsManagerClient()
	fake.AddSecretWithTags("staging/db-password", `{"value":"x"}`, secretTags("staging", "db"))
	store := newSecretsManagerStore(t, fake)

	exists, err := store.SecretExists(ctx, "staging", "db-password")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.SecretExists(ctx, "staging", "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAWSSecretsManagerSecretExistsScheduledForDeletion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeSecretsManagerClient()
	fake.AddSecretWithTags("staging/db-password", `{"value":"x"}`, secretTags("staging", "db"))

	// Soft delete without force leaves the object with a deletion date
	_, err := fake.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId: aws.String("staging/db-password"),
	})
	require.NoError(t, err)

	store := newSecretsManagerStore(t, fake)

	exists, err := store.SecretExists(ctx, "staging", "db-password")
	require.NoError(t, err)
	assert.False(t, exists, "a secret scheduled for deletion is not addressable")
}

func TestAWSSecretsManagerUpdateSecret(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeSecretsManagerClient()
	fake.AddSecretWithTags("staging/db-password", `{"value":"old"}`, secretTags("staging", "db"))
	store := newSecretsManagerStore(t, fake)

	require.NoError(t, store.UpdateSecret(ctx, "staging", "db-password", map[string]string{"value": "new"}))
	assert.JSONEq(t, `{"value":"new"}`, aws.ToString(fake.Secrets["staging/db-password"].SecretString))

	// Tags are untouched by updates
	assert.Equal(t, "db", awsTagValue(fake.Secrets["staging/db-password"].Tags, "secretctl-group"))

	var notFound secretstore.NotFoundError
	err := store.UpdateSecret(ctx, "staging", "missing", map[string]string{"value": "x"})
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Name)
}

func TestAWSSecretsManagerDeleteSecret(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeSecretsManagerClient()
	fake.AddSecretWithTags("staging/db-password", `{"value":"x"}`, secretTags("staging", "db"))
	store := newSecretsManagerStore(t, fake)

	require.NoError(t, store.DeleteSecret(ctx, "staging", "db-password"))

	// Force delete frees the name immediately
	assert.NotContains(t, fake.Secrets, "staging/db-password")

	var notFound secretstore.NotFoundError
	err := store.DeleteSecret(ctx, "staging", "db-password")
	require.ErrorAs(t, err, &notFound)
}

func TestAWSSecretsManagerListSecrets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setupFake func(f *fakes.FakeSecretsManagerClient)
		namespace string
		group     string
		wantNames []string
		wantErr   bool
	}{
		{
			name: "all_groups",
			setupFake: func(f *fakes.FakeSecretsManagerClient) {
				f.AddSecretWithTags("staging/.secretctl", "{}", namespaceTags("staging"))
				f.AddSecretWithTags("staging/db-password", `{"value":"a"}`, secretTags("staging", "db"))
				f.AddSecretWithTags("staging/db-username", `{"value":"b"}`, secretTags("staging", "db"))
				f.AddSecretWithTags("staging/api-token", `{"value":"c"}`, secretTags("staging", "api"))
				f.AddSecretWithTags("production/db-password", `{"value":"d"}`, secretTags("production", "db"))
			},
			namespace: "staging",
			wantNames: []string{"db-password", "db-username", "api-token"},
		},
		{
			name: "group_filter",
			setupFake: func(f *fakes.FakeSecretsManagerClient) {
				f.AddSecretWithTags("staging/.secretctl", "{}", namespaceTags("staging"))
				f.AddSecretWithTags("staging/db-password", `{"value":"a"}`, secretTags("staging", "db"))
				f.AddSecretWithTags("staging/api-token", `{"value":"c"}`, secretTags("staging", "api"))
			},
			namespace: "staging",
			group:     "db",
			wantNames: []string{"db-password"},
		},
		{
			name: "empty_namespace_with_marker",
			setupFake: func(f *fakes.FakeSecretsManagerClient) {
				f.AddSecretWithTags("staging/.secretctl", "{}", namespaceTags("staging"))
			},
			namespace: "staging",
			wantNames: []string{},
		},
		{
			name:      "missing_namespace",
			setupFake: func(f *fakes.FakeSecretsManagerClient) {},
			namespace: "staging",
			wantErr:   true,
		},
		{
			name: "untagged_foreign_object_included",
			setupFake: func(f *fakes.FakeSecretsManagerClient) {
				f.AddSecretWithTags("staging/.secretctl", "{}", namespaceTags("staging"))
				f.AddSecretString("staging/legacy-entry", "plain-text")
			},
			namespace: "staging",
			wantNames: []string{"legacy-entry"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			fake := fakes.NewFakeSecretsManagerClient()
			tt.setupFake(fake)
			store := newSecretsManagerStore(t, fake)

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

func TestAWSSecretsManagerListSecretsPayloads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := fakes.NewFakeSecretsManagerClient()
	fake.AddSecretWithTags("staging/.secretctl", "{}", namespaceTags("staging"))
	fake.AddSecretWithTags("staging/db-password", `{"username":"admin","password":"hunter2"}`, secretTags("staging", "db"))
	fake.AddSecretString("staging/legacy-entry", "plain-text")

	store := newSecretsManagerStore(t, fake)

	records, err := store.ListSecrets(ctx, "staging", "")
	require.NoError(t, err)

	rec := records["db-password"]
	assert.Equal(t, "db-password", rec.Name)
	assert.Equal(t, "db", rec.Group)
	assert.Equal(t, map[string]string{"username": "admin", "password": "hunter2"}, rec.Data)

	legacy := records["legacy-entry"]
	assert.Empty(t, legacy.Group, "objects written by other tools have no group")
	assert.Equal(t, map[string]string{"value": "plain-text"}, legacy.Data)
}

func TestAWSSecretsManagerValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setupFake func(f *fakes.FakeSecretsManagerClient)
		wantErr   bool
		wantAuth  bool
	}{
		{
			name:      "success",
			setupFake: func(f *fakes.FakeSecretsManagerClient) {},
		},
		{
			name: "auth_failure",
			setupFake: func(f *fakes.FakeSecretsManagerClient) {
				f.ValidateErr = errors.New("operation error Secrets Manager: ListSecrets, https response error StatusCode: 400, InvalidSignatureException")
			},
			wantErr:  true,
			wantAuth: true,
		},
		{
			name: "other_failure",
			setupFake: func(f *fakes.FakeSecretsManagerClient) {
				f.ValidateErr = errors.New("connection reset by peer")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := fakes.NewFakeSecretsManagerClient()
			tt.setupFake(fake)
			store := newSecretsManagerStore(t, fake)

			err := store.Validate(context.Background())

			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			var auth secretstore.AuthError
			if tt.wantAuth {
				assert.ErrorAs(t, err, &auth)
			} else {
				assert.False(t, errors.As(err, &auth))
				assert.Contains(t, err.Error(), "validation failed")
			}
		})
	}
}
