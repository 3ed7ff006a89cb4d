package stores_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/stores"
	"github.com/systmms/secretctl/tests/testutil"
)

// TestAWSSecretsManagerStore runs the contract suite against an AWS
// Secrets Manager endpoint, normally LocalStack. Gate:
// SECRETCTL_TEST_AWS_ENDPOINT. Credentials come from the SDK's environment
// chain; LocalStack accepts the static test pair.
func TestAWSSecretsManagerStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	endpoint := testutil.RequireEnv(t, "SECRETCTL_TEST_AWS_ENDPOINT")

	testutil.SetupTestEnv(t, map[string]string{
		"AWS_ACCESS_KEY_ID":     "test",
		"AWS_SECRET_ACCESS_KEY": "test",
	})

	store, err := stores.NewAWSSecretsManagerStore("aws-contract", config.StoreConfig{
		Type: "aws.secretsmanager",
		Config: map[string]interface{}{
			"region":   testutil.EnvOr("SECRETCTL_TEST_AWS_REGION", "us-east-1"),
			"endpoint": endpoint,
		},
	})
	require.NoError(t, err)

	testutil.RunStoreContractTests(t, testutil.StoreTestCase{
		Name:      "aws.secretsmanager",
		Store:     store,
		Namespace: "contract-sm",
	})
}

// TestAWSSSMStore runs the contract suite against a Parameter Store
// endpoint, with credentials given as static config keys.
func TestAWSSSMStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	endpoint := testutil.RequireEnv(t, "SECRETCTL_TEST_AWS_ENDPOINT")

	store, err := stores.NewAWSSSMStore("ssm-contract", config.StoreConfig{
		Type: "aws.ssm",
		Config: map[string]interface{}{
			"region":            testutil.EnvOr("SECRETCTL_TEST_AWS_REGION", "us-east-1"),
			"endpoint":          endpoint,
			"access_key_id":     "test",
			"secret_access_key": "test",
		},
	})
	require.NoError(t, err)

	testutil.RunStoreContractTests(t, testutil.StoreTestCase{
		Name:      "aws.ssm",
		Store:     store,
		Namespace: "contract-ssm",
	})
}
