package fakes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/systmms/secretctl/internal/stores"
)

// FakeSecretsManagerClient is a test double for stores.SecretsManagerClientAPI
type FakeSecretsManagerClient struct {
	// Secrets maps secret names to their data
	Secrets map[string]*SecretData
	// Errors maps secret names to errors to return
	Errors map[string]error
	// CreateSecretFunc allows custom behavior for CreateSecret
	CreateSecretFunc func(ctx context.Context, params *secretsmanager.CreateSecretInput) (*secretsmanager.CreateSecretOutput, error)
	// GetSecretValueFunc allows custom behavior for GetSecretValue
	GetSecretValueFunc func(ctx context.Context, params *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error)
	// UpdateSecretFunc allows custom behavior for UpdateSecret
	UpdateSecretFunc func(ctx context.Context, params *secretsmanager.UpdateSecretInput) (*secretsmanager.UpdateSecretOutput, error)
	// DeleteSecretFunc allows custom behavior for DeleteSecret
	DeleteSecretFunc func(ctx context.Context, params *secretsmanager.DeleteSecretInput) (*secretsmanager.DeleteSecretOutput, error)
	// DescribeSecretFunc allows custom behavior for DescribeSecret
	DescribeSecretFunc func(ctx context.Context, params *secretsmanager.DescribeSecretInput) (*secretsmanager.DescribeSecretOutput, error)
	// ListSecretsFunc allows custom behavior for ListSecrets
	ListSecretsFunc func(ctx context.Context, params *secretsmanager.ListSecretsInput) (*secretsmanager.ListSecretsOutput, error)
	// ValidateErr is returned by the unfiltered ListSecrets call if set
	ValidateErr error
}

// SecretData holds the data for a mock secret
type SecretData struct {
	SecretString *string
	Tags         []types.Tag
	CreatedDate  *time.Time
	DeletedDate  *time.Time
}

// NewFakeSecretsManagerClient creates a new mock Secrets Manager client
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets: make(map[string]*SecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecretString adds a string secret to the mock client
func (f *FakeSecretsManagerClient) AddSecretString(name, value string) {
	now := time.Now()
	f.Secrets[name] = &SecretData{
		SecretString: aws.String(value),
		CreatedDate:  &now,
	}
}

// AddSecretWithTags adds a string secret with tags to the mock client
func (f *FakeSecretsManagerClient) AddSecretWithTags(name, value string, tags []types.Tag) {
	now := time.Now()
	f.Secrets[name] = &SecretData{
		SecretString: aws.String(value),
		Tags:         tags,
		CreatedDate:  &now,
	}
}

// AddError configures the mock to return an error for a specific secret
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.Errors[name] = err
}

// CreateSecret mocks the CreateSecret operation
func (f *FakeSecretsManagerClient) CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	if f.CreateSecretFunc != nil {
		return f.CreateSecretFunc(ctx, params)
	}

	secretName := aws.ToString(params.Name)

	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	if _, exists := f.Secrets[secretName]; exists {
		return nil, &types.ResourceExistsException{
			Message: aws.String(fmt.Sprintf("The operation failed because the secret %s already exists", secretName)),
		}
	}

	now := time.Now()
	f.Secrets[secretName] = &SecretData{
		SecretString: params.SecretString,
		Tags:         params.Tags,
		CreatedDate:  &now,
	}

	return &secretsmanager.CreateSecretOutput{
		ARN:  aws.String(fmt.Sprintf("arn:aws:secretsmanager:us-east-1:123456789012:secret:%s", secretName)),
		Name: params.Name,
	}, nil
}

// GetSecretValue mocks the GetSecretValue operation
func (f *FakeSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.GetSecretValueFunc != nil {
		return f.GetSecretValueFunc(ctx, params)
	}

	secretName := aws.ToString(params.SecretId)

	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	data, exists := f.Secrets[secretName]
	if !exists || data.DeletedDate != nil {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", secretName)),
		}
	}

	return &secretsmanager.GetSecretValueOutput{
		ARN:          aws.String(fmt.Sprintf("arn:aws:secretsmanager:us-east-1:123456789012:secret:%s", secretName)),
		Name:         params.SecretId,
		SecretString: data.SecretString,
		CreatedDate:  data.CreatedDate,
	}, nil
}

// UpdateSecret mocks the UpdateSecret operation
func (f *FakeSecretsManagerClient) UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error) {
	if f.UpdateSecretFunc != nil {
		return f.UpdateSecretFunc(ctx, params)
	}

	secretName := aws.ToString(params.SecretId)

	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	data, exists := f.Secrets[secretName]
	if !exists || data.DeletedDate != nil {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", secretName)),
		}
	}

	if params.SecretString != nil {
		data.SecretString = params.SecretString
	}

	return &secretsmanager.UpdateSecretOutput{
		ARN:  aws.String(fmt.Sprintf("arn:aws:secretsmanager:us-east-1:123456789012:secret:%s", secretName)),
		Name: params.SecretId,
	}, nil
}

// DeleteSecret mocks the DeleteSecret operation
func (f *FakeSecretsManagerClient) DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	if f.DeleteSecretFunc != nil {
		return f.DeleteSecretFunc(ctx, params)
	}

	secretName := aws.ToString(params.SecretId)

	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	data, exists := f.Secrets[secretName]
	if !exists || data.DeletedDate != nil {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", secretName)),
		}
	}

	if aws.ToBool(params.ForceDeleteWithoutRecovery) {
		delete(f.Secrets, secretName)
	} else {
		now := time.Now()
		data.DeletedDate = &now
	}

	return &secretsmanager.DeleteSecretOutput{
		ARN:  aws.String(fmt.Sprintf("arn:aws:secretsmanager:us-east-1:123456789012:secret:%s", secretName)),
		Name: params.SecretId,
	}, nil
}

// DescribeSecret mocks the DescribeSecret operation
func (f *FakeSecretsManagerClient) DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	if f.DescribeSecretFunc != nil {
		return f.DescribeSecretFunc(ctx, params)
	}

	secretName := aws.ToString(params.SecretId)

	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	data, exists := f.Secrets[secretName]
	if !exists {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", secretName)),
		}
	}

	return &secretsmanager.DescribeSecretOutput{
		ARN:         aws.String(fmt.Sprintf("arn:aws:secretsmanager:us-east-1:123456789012:secret:%s", secretName)),
		Name:        params.SecretId,
		Tags:        data.Tags,
		CreatedDate: data.CreatedDate,
		DeletedDate: data.DeletedDate,
	}, nil
}

// ListSecrets mocks the ListSecrets operation. Name filters are prefix
// matches and tag-key filters require the key to be present, matching the
// real service.
func (f *FakeSecretsManagerClient) ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	if f.ListSecretsFunc != nil {
		return f.ListSecretsFunc(ctx, params)
	}
	if f.ValidateErr != nil && len(params.Filters) == 0 {
		return nil, f.ValidateErr
	}

	var entries []types.SecretListEntry
	for name, data := range f.Secrets {
		if data.DeletedDate != nil {
			continue
		}
		if !matchesSecretFilters(name, data, params.Filters) {
			continue
		}
		entries = append(entries, types.SecretListEntry{
			Name: aws.String(name),
			Tags: data.Tags,
		})
	}

	return &secretsmanager.ListSecretsOutput{SecretList: entries}, nil
}

func matchesSecretFilters(name string, data *SecretData, filters []types.Filter) bool {
	for _, filter := range filters {
		switch filter.Key {
		case types.FilterNameStringTypeName:
			matched := false
			for _, value := range filter.Values {
				if strings.HasPrefix(name, value) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		case types.FilterNameStringTypeTagKey:
			matched := false
			for _, value := range filter.Values {
				for _, tag := range data.Tags {
					if aws.ToString(tag.Key) == value {
						matched = true
						break
					}
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}

// Ensure FakeSecretsManagerClient implements stores.SecretsManagerClientAPI
var _ stores.SecretsManagerClientAPI = (*FakeSecretsManagerClient)(nil)

// FakeSSMClient is a test double for stores.SSMClientAPI
type FakeSSMClient struct {
	// Parameters maps parameter names to their data
	Parameters map[string]*ParameterData
	// Errors maps parameter names to errors to return
	Errors map[string]error
	// GetParameterFunc allows custom behavior for GetParameter
	GetParameterFunc func(ctx context.Context, params *ssm.GetParameterInput) (*ssm.GetParameterOutput, error)
	// PutParameterFunc allows custom behavior for PutParameter
	PutParameterFunc func(ctx context.Context, params *ssm.PutParameterInput) (*ssm.PutParameterOutput, error)
	// DeleteParameterFunc allows custom behavior for DeleteParameter
	DeleteParameterFunc func(ctx context.Context, params *ssm.DeleteParameterInput) (*ssm.DeleteParameterOutput, error)
	// GetParametersByPathFunc allows custom behavior for GetParametersByPath
	GetParametersByPathFunc func(ctx context.Context, params *ssm.GetParametersByPathInput) (*ssm.GetParametersByPathOutput, error)
	// DescribeParametersFunc allows custom behavior for DescribeParameters
	DescribeParametersFunc func(ctx context.Context, params *ssm.DescribeParametersInput) (*ssm.DescribeParametersOutput, error)
	// ListTagsForResourceFunc allows custom behavior for ListTagsForResource
	ListTagsForResourceFunc func(ctx context.Context, params *ssm.ListTagsForResourceInput) (*ssm.ListTagsForResourceOutput, error)
	// ValidateErr is returned by the unfiltered DescribeParameters call if set
	ValidateErr error
}

// ParameterData holds the data for a mock SSM parameter
type ParameterData struct {
	Name             *string
	Type             ssmtypes.ParameterType
	Value            *string
	Tags             []ssmtypes.Tag
	Version          int64
	LastModifiedDate *time.Time
}

// NewFakeSSMClient creates a new mock SSM client
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		Parameters: make(map[string]*ParameterData),
		Errors:     make(map[string]error),
	}
}

// AddStringParameter adds a String parameter to the mock client
func (f *FakeSSMClient) AddStringParameter(name, value string) {
	now := time.Now()
	f.Parameters[name] = &ParameterData{
		Name:             aws.String(name),
		Type:             ssmtypes.ParameterTypeString,
		Value:            aws.String(value),
		Version:          1,
		LastModifiedDate: &now,
	}
}

// AddSecureStringParameter adds a SecureString parameter to the mock client
func (f *FakeSSMClient) AddSecureStringParameter(name, value string) {
	now := time.Now()
	f.Parameters[name] = &ParameterData{
		Name:             aws.String(name),
		Type:             ssmtypes.ParameterTypeSecureString,
		Value:            aws.String(value),
		Version:          1,
		LastModifiedDate: &now,
	}
}

// AddParameterWithTags adds a SecureString parameter with tags
func (f *FakeSSMClient) AddParameterWithTags(name, value string, tags []ssmtypes.Tag) {
	f.AddSecureStringParameter(name, value)
	f.Parameters[name].Tags = tags
}

// AddError configures the mock to return an error for a specific parameter
func (f *FakeSSMClient) AddError(name string, err error) {
	f.Errors[name] = err
}

// GetParameter mocks the GetParameter operation
func (f *FakeSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if f.GetParameterFunc != nil {
		return f.GetParameterFunc(ctx, params)
	}

	paramName := aws.ToString(params.Name)

	if err, exists := f.Errors[paramName]; exists {
		return nil, err
	}

	data, exists := f.Parameters[paramName]
	if !exists {
		return nil, &ssmtypes.ParameterNotFound{
			Message: aws.String(fmt.Sprintf("Parameter %s not found", paramName)),
		}
	}

	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:             data.Name,
			Type:             data.Type,
			Value:            data.Value,
			Version:          data.Version,
			LastModifiedDate: data.LastModifiedDate,
		},
	}, nil
}

// PutParameter mocks the PutParameter operation. Without Overwrite an
// existing parameter is rejected, matching the real service.
func (f *FakeSSMClient) PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	if f.PutParameterFunc != nil {
		return f.PutParameterFunc(ctx, params)
	}

	paramName := aws.ToString(params.Name)

	if err, exists := f.Errors[paramName]; exists {
		return nil, err
	}

	data, exists := f.Parameters[paramName]
	if exists {
		if !aws.ToBool(params.Overwrite) {
			return nil, &ssmtypes.ParameterAlreadyExists{
				Message: aws.String(fmt.Sprintf("Parameter %s already exists", paramName)),
			}
		}
		data.Value = params.Value
		data.Version++
		now := time.Now()
		data.LastModifiedDate = &now
		return &ssm.PutParameterOutput{Version: data.Version}, nil
	}

	now := time.Now()
	f.Parameters[paramName] = &ParameterData{
		Name:             params.Name,
		Type:             params.Type,
		Value:            params.Value,
		Tags:             params.Tags,
		Version:          1,
		LastModifiedDate: &now,
	}
	return &ssm.PutParameterOutput{Version: 1}, nil
}

// DeleteParameter mocks the DeleteParameter operation
func (f *FakeSSMClient) DeleteParameter(ctx context.Context, params *ssm.DeleteParameterInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParameterOutput, error) {
	if f.DeleteParameterFunc != nil {
		return f.DeleteParameterFunc(ctx, params)
	}

	paramName := aws.ToString(params.Name)

	if err, exists := f.Errors[paramName]; exists {
		return nil, err
	}

	if _, exists := f.Parameters[paramName]; !exists {
		return nil, &ssmtypes.ParameterNotFound{
			Message: aws.String(fmt.Sprintf("Parameter %s not found", paramName)),
		}
	}

	delete(f.Parameters, paramName)
	return &ssm.DeleteParameterOutput{}, nil
}

// GetParametersByPath mocks the GetParametersByPath operation
func (f *FakeSSMClient) GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	if f.GetParametersByPathFunc != nil {
		return f.GetParametersByPathFunc(ctx, params)
	}

	path := aws.ToString(params.Path)
	if err, exists := f.Errors[path]; exists {
		return nil, err
	}

	prefix := strings.TrimSuffix(path, "/") + "/"
	recursive := aws.ToBool(params.Recursive)

	var parameters []ssmtypes.Parameter
	for name, data := range f.Parameters {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if !recursive && strings.Contains(strings.TrimPrefix(name, prefix), "/") {
			continue
		}
		parameters = append(parameters, ssmtypes.Parameter{
			Name:             data.Name,
			Type:             data.Type,
			Value:            data.Value,
			Version:          data.Version,
			LastModifiedDate: data.LastModifiedDate,
		})
	}

	return &ssm.GetParametersByPathOutput{Parameters: parameters}, nil
}

// DescribeParameters mocks the DescribeParameters operation
func (f *FakeSSMClient) DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error) {
	if f.DescribeParametersFunc != nil {
		return f.DescribeParametersFunc(ctx, params)
	}
	if f.ValidateErr != nil && len(params.ParameterFilters) == 0 {
		return nil, f.ValidateErr
	}

	prefix := ""
	for _, filter := range params.ParameterFilters {
		if aws.ToString(filter.Key) == "Path" && len(filter.Values) > 0 {
			prefix = strings.TrimSuffix(filter.Values[0], "/")
		}
	}

	var metadata []ssmtypes.ParameterMetadata
	for name, data := range f.Parameters {
		if prefix != "" && !strings.HasPrefix(name, prefix+"/") {
			continue
		}
		metadata = append(metadata, ssmtypes.ParameterMetadata{
			Name:             data.Name,
			Type:             data.Type,
			Version:          data.Version,
			LastModifiedDate: data.LastModifiedDate,
		})
	}

	return &ssm.DescribeParametersOutput{Parameters: metadata}, nil
}

// ListTagsForResource mocks the ListTagsForResource operation
func (f *FakeSSMClient) ListTagsForResource(ctx context.Context, params *ssm.ListTagsForResourceInput, optFns ...func(*ssm.Options)) (*ssm.ListTagsForResourceOutput, error) {
	if f.ListTagsForResourceFunc != nil {
		return f.ListTagsForResourceFunc(ctx, params)
	}

	resourceID := aws.ToString(params.ResourceId)

	data, exists := f.Parameters[resourceID]
	if !exists {
		return nil, &ssmtypes.ParameterNotFound{
			Message: aws.String(fmt.Sprintf("Parameter %s not found", resourceID)),
		}
	}

	return &ssm.ListTagsForResourceOutput{TagList: data.Tags}, nil
}

// Ensure FakeSSMClient implements stores.SSMClientAPI
var _ stores.SSMClientAPI = (*FakeSSMClient)(nil)
