package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// awsMarkerSecret is the reserved per-namespace object name. Qualified
// secret names cannot start with a dot, so it never collides.
const awsMarkerSecret = ".secretctl"

// SecretsManagerClientAPI is the subset of the Secrets Manager client the
// store uses. Narrow on purpose so tests can substitute a fake.
type SecretsManagerClientAPI interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// AWSSecretsManagerStore keeps secrets in AWS Secrets Manager. Objects are
// named "<namespace>/<qualified>" with the namespace and group recorded as
// tags; each namespace owns a marker secret "<namespace>/.secretctl" that
// makes the namespace itself discoverable.
type AWSSecretsManagerStore struct {
	name     string
	settings awsSettings
	client   SecretsManagerClientAPI
}

// AWSSecretsManagerOption configures an AWSSecretsManagerStore.
type AWSSecretsManagerOption func(*AWSSecretsManagerStore)

// WithSecretsManagerClient sets a custom client. This is primarily for
// testing, allowing the SDK client to be mocked.
func WithSecretsManagerClient(client SecretsManagerClientAPI) AWSSecretsManagerOption {
	return func(s *AWSSecretsManagerStore) {
		s.client = client
	}
}

// NewAWSSecretsManagerStore creates a Secrets Manager backed store.
func NewAWSSecretsManagerStore(name string, cfg config.StoreConfig, opts ...AWSSecretsManagerOption) (*AWSSecretsManagerStore, error) {
	settings, err := parseAWSSettings(cfg)
	if err != nil {
		return nil, err
	}

	s := &AWSSecretsManagerStore{
		name:     name,
		settings: settings,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		awsCfg, err := loadAWSConfig(context.Background(), settings)
		if err != nil {
			return nil, err
		}
		s.client = secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
			if settings.Endpoint != "" {
				o.BaseEndpoint = aws.String(settings.Endpoint)
			}
		})
	}

	return s, nil
}

var _ secretstore.Store = (*AWSSecretsManagerStore)(nil)

// Name returns the store's configured identifier.
func (s *AWSSecretsManagerStore) Name() string {
	return s.name
}

func (s *AWSSecretsManagerStore) secretID(namespace, name string) string {
	return namespace + "/" + name
}

func (s *AWSSecretsManagerStore) markerID(namespace string) string {
	return namespace + "/" + awsMarkerSecret
}

// NamespaceExists checks for the namespace's marker secret.
func (s *AWSSecretsManagerStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	_, err := s.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(s.markerID(namespace)),
	})
	if err != nil {
		if isResourceNotFound(err) {
			return false, nil
		}
		return false, s.mapError(err, namespace, "")
	}
	return true, nil
}

// EnsureNamespace creates the marker secret when missing.
func (s *AWSSecretsManagerStore) EnsureNamespace(ctx context.Context, namespace string) error {
	exists, err := s.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(s.markerID(namespace)),
		SecretString: aws.String("{}"),
		Tags: []types.Tag{
			{Key: aws.String(namespaceLabel), Value: aws.String(namespace)},
		},
	})
	if err != nil {
		var alreadyExists *types.ResourceExistsException
		if errors.As(err, &alreadyExists) {
			// lost a create race, the namespace is there
			return nil
		}
		return s.mapError(err, namespace, "")
	}
	return nil
}

// ListNamespaces finds marker secrets via their namespace tag.
func (s *AWSSecretsManagerStore) ListNamespaces(ctx context.Context) ([]string, error) {
	var namespaces []string

	input := &secretsmanager.ListSecretsInput{
		MaxResults: aws.Int32(100),
		Filters: []types.Filter{
			{Key: types.FilterNameStringTypeTagKey, Values: []string{namespaceLabel}},
		},
	}

	for {
		page, err := s.client.ListSecrets(ctx, input)
		if err != nil {
			return nil, s.mapError(err, "", "")
		}

		for _, entry := range page.SecretList {
			name := aws.ToString(entry.Name)
			if strings.HasSuffix(name, "/"+awsMarkerSecret) {
				namespaces = append(namespaces, strings.TrimSuffix(name, "/"+awsMarkerSecret))
			}
		}

		if page.NextToken == nil {
			break
		}
		input.NextToken = page.NextToken
	}

	return namespaces, nil
}

// SecretExists reports whether the qualified name resolves to a live secret.
func (s *AWSSecretsManagerStore) SecretExists(ctx context.Context, namespace, name string) (bool, error) {
	out, err := s.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(s.secretID(namespace, name)),
	})
	if err != nil {
		if isResourceNotFound(err) {
			return false, nil
		}
		return false, s.mapError(err, namespace, name)
	}
	// A secret scheduled for deletion is no longer addressable
	if out.DeletedDate != nil {
		return false, nil
	}
	return true, nil
}

// CreateSecret stores the payload as a JSON document with namespace and
// group tags.
func (s *AWSSecretsManagerStore) CreateSecret(ctx context.Context, namespace, name, group string, data map[string]string) error {
	payload, err := encodeSecretData(data)
	if err != nil {
		return err
	}

	_, err = s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(s.secretID(namespace, name)),
		SecretString: aws.String(payload),
		Tags: []types.Tag{
			{Key: aws.String(namespaceLabel), Value: aws.String(namespace)},
			{Key: aws.String(groupLabel), Value: aws.String(group)},
		},
	})
	if err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// UpdateSecret replaces the payload, leaving tags untouched.
func (s *AWSSecretsManagerStore) UpdateSecret(ctx context.Context, namespace, name string, data map[string]string) error {
	payload, err := encodeSecretData(data)
	if err != nil {
		return err
	}

	_, err = s.client.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
		SecretId:     aws.String(s.secretID(namespace, name)),
		SecretString: aws.String(payload),
	})
	if err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// DeleteSecret removes the secret without a recovery window so the name is
// immediately reusable.
func (s *AWSSecretsManagerStore) DeleteSecret(ctx context.Context, namespace, name string) error {
	_, err := s.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(s.secretID(namespace, name)),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// ListSecrets pages through the namespace prefix and fetches each payload.
func (s *AWSSecretsManagerStore) ListSecrets(ctx context.Context, namespace, group string) (map[string]secretstore.Record, error) {
	records := make(map[string]secretstore.Record)
	prefix := namespace + "/"

	input := &secretsmanager.ListSecretsInput{
		MaxResults: aws.Int32(100),
		Filters: []types.Filter{
			{Key: types.FilterNameStringTypeName, Values: []string{prefix}},
		},
	}

	for {
		page, err := s.client.ListSecrets(ctx, input)
		if err != nil {
			return nil, s.mapError(err, namespace, "")
		}

		for _, entry := range page.SecretList {
			fullName := aws.ToString(entry.Name)
			if !strings.HasPrefix(fullName, prefix) {
				continue
			}
			qualified := strings.TrimPrefix(fullName, prefix)
			if qualified == awsMarkerSecret {
				continue
			}

			entryGroup := tagValue(entry.Tags, groupLabel)
			if group != "" && entryGroup != group {
				continue
			}

			value, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
				SecretId: aws.String(fullName),
			})
			if err != nil {
				if isResourceNotFound(err) {
					// deleted between list and fetch
					continue
				}
				return nil, s.mapError(err, namespace, qualified)
			}

			records[qualified] = secretstore.Record{
				Name:  qualified,
				Group: entryGroup,
				Data:  decodeSecretData(aws.ToString(value.SecretString)),
			}
		}

		if page.NextToken == nil {
			break
		}
		input.NextToken = page.NextToken
	}

	if len(records) == 0 {
		exists, err := s.NamespaceExists(ctx, namespace)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, secretstore.NotFoundError{Store: s.name, Namespace: namespace}
		}
	}

	return records, nil
}

// Validate performs the cheapest authenticated call.
func (s *AWSSecretsManagerStore) Validate(ctx context.Context) error {
	_, err := s.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		if isAWSAuthError(err) {
			return secretstore.AuthError{Store: s.name, Message: err.Error()}
		}
		return fmt.Errorf("aws.secretsmanager validation failed: %w", err)
	}
	return nil
}

// mapError converts SDK failures into store errors.
func (s *AWSSecretsManagerStore) mapError(err error, namespace, name string) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace, Name: name}
	}

	var alreadyExists *types.ResourceExistsException
	if errors.As(err, &alreadyExists) {
		return secretstore.ValidationError{Store: s.name, Message: "secret already exists: " + name}
	}

	if isAWSAuthError(err) {
		return secretstore.AuthError{Store: s.name, Message: err.Error()}
	}

	return fmt.Errorf("aws.secretsmanager request failed: %w", err)
}

func isResourceNotFound(err error) bool {
	var notFound *types.ResourceNotFoundException
	return errors.As(err, &notFound)
}

// isAWSAuthError detects credential and signing failures across the AWS
// services. The SDK models these inconsistently, so this matches on the
// error codes that survive wrapping.
func isAWSAuthError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UnrecognizedClientException") ||
		strings.Contains(errStr, "InvalidSignatureException") ||
		strings.Contains(errStr, "InvalidClientTokenId") ||
		strings.Contains(errStr, "ExpiredToken") ||
		strings.Contains(errStr, "AccessDenied") ||
		strings.Contains(errStr, "UnauthorizedOperation") ||
		strings.Contains(errStr, "no EC2 IMDS role found") ||
		strings.Contains(errStr, "failed to retrieve credentials")
}

func tagValue(tags []types.Tag, key string) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == key {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}
