package fakes

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/secretctl/internal/stores"
)

const fakeVaultURL = "https://test-vault.vault.azure.net"

// FakeAzureKeyVaultClient is a test double for stores.AzureKeyVaultClientAPI
type FakeAzureKeyVaultClient struct {
	// Secrets maps object names to their data
	Secrets map[string]*AzureSecretData
	// Deleted holds soft-deleted secrets awaiting purge
	Deleted map[string]*AzureSecretData
	// Errors maps object names to errors to return
	Errors map[string]error
	// ListErr is returned by the secret properties pager if set
	ListErr error
	// GetSecretFunc allows custom behavior for GetSecret
	GetSecretFunc func(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	// SetSecretFunc allows custom behavior for SetSecret
	SetSecretFunc func(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
}

// AzureSecretData holds the data for a mock Key Vault secret
type AzureSecretData struct {
	Value       *string
	ContentType *string
	Tags        map[string]*string
	Attributes  *azsecrets.SecretAttributes
}

// NewFakeAzureKeyVaultClient creates a new mock Azure Key Vault client
func NewFakeAzureKeyVaultClient() *FakeAzureKeyVaultClient {
	return &FakeAzureKeyVaultClient{
		Secrets: make(map[string]*AzureSecretData),
		Deleted: make(map[string]*AzureSecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecret adds a tagged secret to the mock client
func (f *FakeAzureKeyVaultClient) AddSecret(name, value string, tags map[string]string) {
	ptrTags := make(map[string]*string, len(tags))
	for k, v := range tags {
		ptrTags[k] = to.Ptr(v)
	}
	f.Secrets[name] = &AzureSecretData{
		Value: to.Ptr(value),
		Tags:  ptrTags,
	}
}

// AddError configures the mock to return an error for a specific object name
func (f *FakeAzureKeyVaultClient) AddError(name string, err error) {
	f.Errors[name] = err
}

// GetSecret mocks fetching the latest version of a secret
func (f *FakeAzureKeyVaultClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	if f.GetSecretFunc != nil {
		return f.GetSecretFunc(ctx, name, version, options)
	}

	if err, exists := f.Errors[name]; exists {
		return azsecrets.GetSecretResponse{}, err
	}

	data, exists := f.Secrets[name]
	if !exists {
		return azsecrets.GetSecretResponse{}, AzureNotFoundError(name)
	}

	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{
			ID:          fakeSecretID(name),
			Value:       data.Value,
			ContentType: data.ContentType,
			Tags:        data.Tags,
			Attributes:  data.Attributes,
		},
	}, nil
}

// SetSecret mocks creating or replacing a secret
func (f *FakeAzureKeyVaultClient) SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error) {
	if f.SetSecretFunc != nil {
		return f.SetSecretFunc(ctx, name, parameters, options)
	}

	if err, exists := f.Errors[name]; exists {
		return azsecrets.SetSecretResponse{}, err
	}

	f.Secrets[name] = &AzureSecretData{
		Value:       parameters.Value,
		ContentType: parameters.ContentType,
		Tags:        parameters.Tags,
	}

	return azsecrets.SetSecretResponse{
		Secret: azsecrets.Secret{
			ID:    fakeSecretID(name),
			Value: parameters.Value,
			Tags:  parameters.Tags,
		},
	}, nil
}

// DeleteSecret mocks soft-deleting a secret
func (f *FakeAzureKeyVaultClient) DeleteSecret(ctx context.Context, name string, options *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error) {
	if err, exists := f.Errors[name]; exists {
		return azsecrets.DeleteSecretResponse{}, err
	}

	data, exists := f.Secrets[name]
	if !exists {
		return azsecrets.DeleteSecretResponse{}, AzureNotFoundError(name)
	}

	delete(f.Secrets, name)
	f.Deleted[name] = data

	return azsecrets.DeleteSecretResponse{
		DeletedSecret: azsecrets.DeletedSecret{
			ID:          fakeSecretID(name),
			RecoveryID:  to.Ptr(fakeVaultURL + "/deletedsecrets/" + name),
			DeletedDate: to.Ptr(time.Now()),
		},
	}, nil
}

// PurgeDeletedSecret mocks permanently removing a soft-deleted secret
func (f *FakeAzureKeyVaultClient) PurgeDeletedSecret(ctx context.Context, name string, options *azsecrets.PurgeDeletedSecretOptions) (azsecrets.PurgeDeletedSecretResponse, error) {
	if _, exists := f.Deleted[name]; !exists {
		return azsecrets.PurgeDeletedSecretResponse{}, AzureNotFoundError(name)
	}

	delete(f.Deleted, name)
	return azsecrets.PurgeDeletedSecretResponse{}, nil
}

// NewListSecretPropertiesPager mocks listing secret properties as a single
// page containing every live secret.
func (f *FakeAzureKeyVaultClient) NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse] {
	return runtime.NewPager(runtime.PagingHandler[azsecrets.ListSecretPropertiesResponse]{
		More: func(page azsecrets.ListSecretPropertiesResponse) bool {
			return false
		},
		Fetcher: func(ctx context.Context, page *azsecrets.ListSecretPropertiesResponse) (azsecrets.ListSecretPropertiesResponse, error) {
			if f.ListErr != nil {
				return azsecrets.ListSecretPropertiesResponse{}, f.ListErr
			}

			var props []*azsecrets.SecretProperties
			for name, data := range f.Secrets {
				props = append(props, &azsecrets.SecretProperties{
					ID:         fakeSecretID(name),
					Tags:       data.Tags,
					Attributes: data.Attributes,
				})
			}

			return azsecrets.ListSecretPropertiesResponse{
				SecretPropertiesListResult: azsecrets.SecretPropertiesListResult{Value: props},
			}, nil
		},
	})
}

func fakeSecretID(name string) *azsecrets.ID {
	return (*azsecrets.ID)(to.Ptr(fakeVaultURL + "/secrets/" + name))
}

// Azure error helpers

// AzureNotFoundError creates a mock Azure secret not found error
func AzureNotFoundError(secretName string) error {
	return &azcore.ResponseError{
		StatusCode: 404,
		ErrorCode:  "SecretNotFound",
	}
}

// AzureForbiddenError creates a mock Azure access denied error
func AzureForbiddenError() error {
	return &azcore.ResponseError{
		StatusCode: 403,
		ErrorCode:  "Forbidden",
	}
}

// AzureUnauthorizedError creates a mock Azure authentication error
func AzureUnauthorizedError() error {
	return &azcore.ResponseError{
		StatusCode: 401,
		ErrorCode:  "Unauthorized",
	}
}

// AzureConflictError creates a mock error for operations on objects that
// conflict with a soft-deleted secret
func AzureConflictError(secretName string) error {
	return &azcore.ResponseError{
		StatusCode: 409,
		ErrorCode:  "Conflict",
	}
}

// Ensure FakeAzureKeyVaultClient implements stores.AzureKeyVaultClientAPI
var _ stores.AzureKeyVaultClientAPI = (*FakeAzureKeyVaultClient)(nil)
