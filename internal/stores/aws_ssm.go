package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// ssmMarkerParameter keeps an otherwise empty namespace hierarchy visible.
const ssmMarkerParameter = ".secretctl"

// SSMClientAPI is the subset of the SSM client the store uses.
type SSMClientAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
	DeleteParameter(ctx context.Context, params *ssm.DeleteParameterInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParameterOutput, error)
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
	DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error)
	ListTagsForResource(ctx context.Context, params *ssm.ListTagsForResourceInput, optFns ...func(*ssm.Options)) (*ssm.ListTagsForResourceOutput, error)
}

// AWSSSMStore keeps secrets as SecureString parameters under the path
// "/<namespace>/<qualified>". The path hierarchy is the namespace; group
// membership is recorded as a parameter tag.
type AWSSSMStore struct {
	name     string
	settings awsSettings
	kmsKeyID string
	client   SSMClientAPI
}

// AWSSSMOption configures an AWSSSMStore.
type AWSSSMOption func(*AWSSSMStore)

// WithSSMClient sets a custom client. This is primarily for testing,
// allowing the SDK client to be mocked.
func WithSSMClient(client SSMClientAPI) AWSSSMOption {
	return func(s *AWSSSMStore) {
		s.client = client
	}
}

// NewAWSSSMStore creates a Parameter Store backed store.
func NewAWSSSMStore(name string, cfg config.StoreConfig, opts ...AWSSSMOption) (*AWSSSMStore, error) {
	settings, err := parseAWSSettings(cfg)
	if err != nil {
		return nil, err
	}

	s := &AWSSSMStore{
		name:     name,
		settings: settings,
	}

	if kmsKeyID, ok := cfg.Config["kms_key_id"].(string); ok {
		s.kmsKeyID = kmsKeyID
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		awsCfg, err := loadAWSConfig(context.Background(), settings)
		if err != nil {
			return nil, err
		}
		s.client = ssm.NewFromConfig(awsCfg, func(o *ssm.Options) {
			if settings.Endpoint != "" {
				o.BaseEndpoint = aws.String(settings.Endpoint)
			}
		})
	}

	return s, nil
}

var _ secretstore.Store = (*AWSSSMStore)(nil)

// Name returns the store's configured identifier.
func (s *AWSSSMStore) Name() string {
	return s.name
}

func (s *AWSSSMStore) namespacePath(namespace string) string {
	return "/" + namespace
}

func (s *AWSSSMStore) parameterPath(namespace, name string) string {
	return "/" + namespace + "/" + name
}

// NamespaceExists reports whether any parameter lives under the namespace
// path. Pages can legally come back empty mid-pagination, so it walks until
// it sees a parameter or runs out of pages.
func (s *AWSSSMStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	input := &ssm.GetParametersByPathInput{
		Path:       aws.String(s.namespacePath(namespace)),
		Recursive:  aws.Bool(true),
		MaxResults: aws.Int32(1),
	}

	for {
		page, err := s.client.GetParametersByPath(ctx, input)
		if err != nil {
			return false, s.mapError(err, namespace, "")
		}
		if len(page.Parameters) > 0 {
			return true, nil
		}
		if page.NextToken == nil {
			return false, nil
		}
		input.NextToken = page.NextToken
	}
}

// EnsureNamespace writes the marker parameter so an empty namespace stays
// discoverable.
func (s *AWSSSMStore) EnsureNamespace(ctx context.Context, namespace string) error {
	exists, err := s.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:  aws.String(s.parameterPath(namespace, ssmMarkerParameter)),
		Value: aws.String("{}"),
		Type:  ssmtypes.ParameterTypeString,
	})
	if err != nil {
		var alreadyExists *ssmtypes.ParameterAlreadyExists
		if errors.As(err, &alreadyExists) {
			return nil
		}
		return s.mapError(err, namespace, "")
	}
	return nil
}

// ListNamespaces collects the top-level path segments of all hierarchical
// parameters.
func (s *AWSSSMStore) ListNamespaces(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	input := &ssm.DescribeParametersInput{
		MaxResults: aws.Int32(50),
		ParameterFilters: []ssmtypes.ParameterStringFilter{
			{Key: aws.String("Path"), Option: aws.String("Recursive"), Values: []string{"/"}},
		},
	}

	for {
		page, err := s.client.DescribeParameters(ctx, input)
		if err != nil {
			return nil, s.mapError(err, "", "")
		}

		for _, param := range page.Parameters {
			trimmed := strings.TrimPrefix(aws.ToString(param.Name), "/")
			if idx := strings.Index(trimmed, "/"); idx > 0 {
				seen[trimmed[:idx]] = true
			}
		}

		if page.NextToken == nil {
			break
		}
		input.NextToken = page.NextToken
	}

	namespaces := make([]string, 0, len(seen))
	for namespace := range seen {
		namespaces = append(namespaces, namespace)
	}
	return namespaces, nil
}

// SecretExists reports whether the parameter exists.
func (s *AWSSSMStore) SecretExists(ctx context.Context, namespace, name string) (bool, error) {
	_, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(s.parameterPath(namespace, name)),
	})
	if err != nil {
		if isParameterNotFound(err) {
			return false, nil
		}
		return false, s.mapError(err, namespace, name)
	}
	return true, nil
}

// CreateSecret writes a SecureString parameter with namespace and group
// tags.
func (s *AWSSSMStore) CreateSecret(ctx context.Context, namespace, name, group string, data map[string]string) error {
	payload, err := encodeSecretData(data)
	if err != nil {
		return err
	}

	input := &ssm.PutParameterInput{
		Name:  aws.String(s.parameterPath(namespace, name)),
		Value: aws.String(payload),
		Type:  ssmtypes.ParameterTypeSecureString,
		Tags: []ssmtypes.Tag{
			{Key: aws.String(namespaceLabel), Value: aws.String(namespace)},
			{Key: aws.String(groupLabel), Value: aws.String(group)},
		},
	}
	if s.kmsKeyID != "" {
		input.KeyId = aws.String(s.kmsKeyID)
	}

	if _, err := s.client.PutParameter(ctx, input); err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// UpdateSecret overwrites the parameter value. PutParameter with Overwrite
// would silently create a missing parameter, so existence is checked first.
func (s *AWSSSMStore) UpdateSecret(ctx context.Context, namespace, name string, data map[string]string) error {
	exists, err := s.SecretExists(ctx, namespace, name)
	if err != nil {
		return err
	}
	if !exists {
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace, Name: name}
	}

	payload, err := encodeSecretData(data)
	if err != nil {
		return err
	}

	// Tags cannot be combined with Overwrite; they were set at create.
	input := &ssm.PutParameterInput{
		Name:      aws.String(s.parameterPath(namespace, name)),
		Value:     aws.String(payload),
		Type:      ssmtypes.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	}
	if s.kmsKeyID != "" {
		input.KeyId = aws.String(s.kmsKeyID)
	}

	if _, err := s.client.PutParameter(ctx, input); err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// DeleteSecret removes the parameter.
func (s *AWSSSMStore) DeleteSecret(ctx context.Context, namespace, name string) error {
	_, err := s.client.DeleteParameter(ctx, &ssm.DeleteParameterInput{
		Name: aws.String(s.parameterPath(namespace, name)),
	})
	if err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// ListSecrets pages through the namespace's direct children with decryption
// and resolves each parameter's group tag.
func (s *AWSSSMStore) ListSecrets(ctx context.Context, namespace, group string) (map[string]secretstore.Record, error) {
	records := make(map[string]secretstore.Record)
	prefix := s.namespacePath(namespace) + "/"

	input := &ssm.GetParametersByPathInput{
		Path:           aws.String(s.namespacePath(namespace)),
		WithDecryption: aws.Bool(true),
		MaxResults:     aws.Int32(10),
	}

	for {
		page, err := s.client.GetParametersByPath(ctx, input)
		if err != nil {
			return nil, s.mapError(err, namespace, "")
		}

		for _, param := range page.Parameters {
			full := aws.ToString(param.Name)
			if !strings.HasPrefix(full, prefix) {
				continue
			}
			qualified := strings.TrimPrefix(full, prefix)
			if qualified == ssmMarkerParameter {
				continue
			}

			tags, err := s.client.ListTagsForResource(ctx, &ssm.ListTagsForResourceInput{
				ResourceType: ssmtypes.ResourceTypeForTaggingParameter,
				ResourceId:   aws.String(full),
			})
			if err != nil {
				return nil, s.mapError(err, namespace, qualified)
			}
			entryGroup := ssmTagValue(tags.TagList, groupLabel)
			if group != "" && entryGroup != group {
				continue
			}

			records[qualified] = secretstore.Record{
				Name:  qualified,
				Group: entryGroup,
				Data:  decodeSecretData(aws.ToString(param.Value)),
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
func (s *AWSSSMStore) Validate(ctx context.Context) error {
	_, err := s.client.DescribeParameters(ctx, &ssm.DescribeParametersInput{
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		if isAWSAuthError(err) {
			return secretstore.AuthError{Store: s.name, Message: err.Error()}
		}
		return fmt.Errorf("aws.ssm validation failed: %w", err)
	}
	return nil
}

// mapError converts SDK failures into store errors.
func (s *AWSSSMStore) mapError(err error, namespace, name string) error {
	if isParameterNotFound(err) {
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace, Name: name}
	}

	var alreadyExists *ssmtypes.ParameterAlreadyExists
	if errors.As(err, &alreadyExists) {
		return secretstore.ValidationError{Store: s.name, Message: "secret already exists: " + name}
	}

	if isAWSAuthError(err) {
		return secretstore.AuthError{Store: s.name, Message: err.Error()}
	}

	return fmt.Errorf("aws.ssm request failed: %w", err)
}

func isParameterNotFound(err error) bool {
	var notFound *ssmtypes.ParameterNotFound
	return errors.As(err, &notFound)
}

func ssmTagValue(tags []ssmtypes.Tag, key string) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == key {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}
