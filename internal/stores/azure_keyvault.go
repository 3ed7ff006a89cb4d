package stores

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/secretctl/internal/config"
	cfgerrors "github.com/systmms/secretctl/internal/errors"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// azureSeparator joins namespace and qualified name into a vault object
// name. Namespaces may themselves contain "--", so listings never parse
// object names; the tags are authoritative.
const azureSeparator = "--"

// azureMarkerSuffix names the per-namespace marker secret.
const azureMarkerSuffix = "secretctl"

// AzureKeyVaultClientAPI is the subset of the azsecrets client the store
// uses. The pager type is concrete, but fakes can construct one with
// runtime.NewPager.
type AzureKeyVaultClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
	DeleteSecret(ctx context.Context, name string, options *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error)
	PurgeDeletedSecret(ctx context.Context, name string, options *azsecrets.PurgeDeletedSecretOptions) (azsecrets.PurgeDeletedSecretResponse, error)
	NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse]
}

// AzureKeyVaultStore keeps secrets in an Azure Key Vault. Objects are named
// "<namespace>--<qualified>" with namespace and group recorded as tags; each
// namespace owns a marker secret "<namespace>--secretctl".
type AzureKeyVaultStore struct {
	name     string
	vaultURL string
	client   AzureKeyVaultClientAPI
}

// AzureKeyVaultOption configures an AzureKeyVaultStore.
type AzureKeyVaultOption func(*AzureKeyVaultStore)

// WithAzureClient sets a custom client. This is primarily for testing,
// allowing the SDK client to be mocked.
func WithAzureClient(client AzureKeyVaultClientAPI) AzureKeyVaultOption {
	return func(s *AzureKeyVaultStore) {
		s.client = client
	}
}

// NewAzureKeyVaultStore creates a Key Vault backed store.
func NewAzureKeyVaultStore(name string, cfg config.StoreConfig, opts ...AzureKeyVaultOption) (*AzureKeyVaultStore, error) {
	configMap := cfg.Config

	vaultURL := ""
	if v, ok := configMap["vault_url"].(string); ok {
		vaultURL = v
	}
	if vaultURL == "" {
		return nil, cfgerrors.ConfigError{
			Field:      "vault_url",
			Value:      "",
			Message:    "azure.keyvault requires a vault_url",
			Suggestion: "Set vault_url to the vault endpoint, like https://myvault.vault.azure.net",
		}
	}

	s := &AzureKeyVaultStore{
		name:     name,
		vaultURL: vaultURL,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		var timeout time.Duration
		if cfg.TimeoutMs > 0 {
			timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
		}
		client, err := newAzureClient(vaultURL, configMap, timeout)
		if err != nil {
			return nil, err
		}
		s.client = client
	}

	return s, nil
}

// newAzureClient builds the SDK client with the configured credential:
// managed identity, service principal, or the default chain.
func newAzureClient(vaultURL string, configMap map[string]interface{}, timeout time.Duration) (*azsecrets.Client, error) {
	clientID, _ := configMap["client_id"].(string)
	tenantID, _ := configMap["tenant_id"].(string)
	clientSecret, _ := configMap["client_secret"].(string)
	useManagedIdentity, _ := configMap["use_managed_identity"].(bool)

	var cred azcore.TokenCredential
	var err error

	switch {
	case useManagedIdentity:
		mopts := &azidentity.ManagedIdentityCredentialOptions{}
		if clientID != "" {
			mopts.ID = azidentity.ClientID(clientID)
		}
		cred, err = azidentity.NewManagedIdentityCredential(mopts)
	case clientSecret != "":
		if tenantID == "" || clientID == "" {
			return nil, cfgerrors.ConfigError{
				Field:      "client_secret",
				Value:      "",
				Message:    "client_secret auth requires tenant_id and client_id",
				Suggestion: "Set tenant_id and client_id for the service principal",
			}
		}
		cred, err = azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	default:
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	clientOpts := &azsecrets.ClientOptions{}
	if timeout > 0 {
		clientOpts.ClientOptions = azcore.ClientOptions{
			Transport: &http.Client{Timeout: timeout},
		}
	}

	client, err := azsecrets.NewClient(vaultURL, cred, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}
	return client, nil
}

var _ secretstore.Store = (*AzureKeyVaultStore)(nil)

// Name returns the store's configured identifier.
func (s *AzureKeyVaultStore) Name() string {
	return s.name
}

func (s *AzureKeyVaultStore) objectName(namespace, name string) string {
	return namespace + azureSeparator + name
}

func (s *AzureKeyVaultStore) markerName(namespace string) string {
	return namespace + azureSeparator + azureMarkerSuffix
}

// NamespaceExists checks for the namespace's marker secret.
func (s *AzureKeyVaultStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	_, err := s.client.GetSecret(ctx, s.markerName(namespace), "", nil)
	if err != nil {
		if isAzureNotFound(err) {
			return false, nil
		}
		return false, s.mapError(err, namespace, "")
	}
	return true, nil
}

// EnsureNamespace writes the marker secret. SetSecret upserts, so racing
// creators converge.
func (s *AzureKeyVaultStore) EnsureNamespace(ctx context.Context, namespace string) error {
	exists, err := s.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	value := "{}"
	_, err = s.client.SetSecret(ctx, s.markerName(namespace), azsecrets.SetSecretParameters{
		Value: &value,
		Tags: map[string]*string{
			namespaceLabel: &namespace,
		},
	}, nil)
	if err != nil {
		return s.mapError(err, namespace, "")
	}
	return nil
}

// ListNamespaces collects the distinct namespace tag values across the
// vault.
func (s *AzureKeyVaultStore) ListNamespaces(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	pager := s.client.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, s.mapError(err, "", "")
		}
		for _, props := range page.Value {
			if props.Tags == nil {
				continue
			}
			if namespace := derefString(props.Tags[namespaceLabel]); namespace != "" {
				seen[namespace] = true
			}
		}
	}

	namespaces := make([]string, 0, len(seen))
	for namespace := range seen {
		namespaces = append(namespaces, namespace)
	}
	return namespaces, nil
}

// SecretExists reports whether the qualified name exists in the namespace.
func (s *AzureKeyVaultStore) SecretExists(ctx context.Context, namespace, name string) (bool, error) {
	_, err := s.client.GetSecret(ctx, s.objectName(namespace, name), "", nil)
	if err != nil {
		if isAzureNotFound(err) {
			return false, nil
		}
		return false, s.mapError(err, namespace, name)
	}
	return true, nil
}

// CreateSecret writes the tagged secret. SetSecret upserts, so creation
// checks for an existing object first to keep create-on-existing an error.
func (s *AzureKeyVaultStore) CreateSecret(ctx context.Context, namespace, name, group string, data map[string]string) error {
	exists, err := s.SecretExists(ctx, namespace, name)
	if err != nil {
		return err
	}
	if exists {
		return secretstore.ValidationError{Store: s.name, Message: "secret already exists: " + name}
	}

	payload, err := encodeSecretData(data)
	if err != nil {
		return err
	}

	contentType := "application/json"
	_, err = s.client.SetSecret(ctx, s.objectName(namespace, name), azsecrets.SetSecretParameters{
		Value:       &payload,
		ContentType: &contentType,
		Tags: map[string]*string{
			namespaceLabel: &namespace,
			groupLabel:     &group,
		},
	}, nil)
	if err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// UpdateSecret writes a new version carrying the previous version's tags;
// tags live per version in Key Vault and would otherwise be dropped.
func (s *AzureKeyVaultStore) UpdateSecret(ctx context.Context, namespace, name string, data map[string]string) error {
	current, err := s.client.GetSecret(ctx, s.objectName(namespace, name), "", nil)
	if err != nil {
		return s.mapError(err, namespace, name)
	}

	payload, err := encodeSecretData(data)
	if err != nil {
		return err
	}

	contentType := "application/json"
	_, err = s.client.SetSecret(ctx, s.objectName(namespace, name), azsecrets.SetSecretParameters{
		Value:       &payload,
		ContentType: &contentType,
		Tags:        current.Tags,
	}, nil)
	if err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// DeleteSecret removes the secret and purges the soft-deleted remnant so
// the name is immediately reusable. Purge is best effort; it needs its own
// permission and the vault may still be propagating the delete.
func (s *AzureKeyVaultStore) DeleteSecret(ctx context.Context, namespace, name string) error {
	objectName := s.objectName(namespace, name)
	if _, err := s.client.DeleteSecret(ctx, objectName, nil); err != nil {
		return s.mapError(err, namespace, name)
	}

	_, _ = s.client.PurgeDeletedSecret(ctx, objectName, nil)
	return nil
}

// ListSecrets walks the vault filtering on the namespace tag and fetches
// each matching secret's payload.
func (s *AzureKeyVaultStore) ListSecrets(ctx context.Context, namespace, group string) (map[string]secretstore.Record, error) {
	records := make(map[string]secretstore.Record)

	pager := s.client.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, s.mapError(err, namespace, "")
		}

		for _, props := range page.Value {
			if props.Tags == nil || derefString(props.Tags[namespaceLabel]) != namespace {
				continue
			}
			if props.Attributes != nil && props.Attributes.Enabled != nil && !*props.Attributes.Enabled {
				// disabled secrets reject get operations
				continue
			}

			objectName := props.ID.Name()
			qualified := strings.TrimPrefix(objectName, namespace+azureSeparator)
			if qualified == azureMarkerSuffix {
				continue
			}

			entryGroup := derefString(props.Tags[groupLabel])
			if group != "" && entryGroup != group {
				continue
			}

			value, err := s.client.GetSecret(ctx, objectName, "", nil)
			if err != nil {
				if isAzureNotFound(err) {
					// deleted between list and fetch
					continue
				}
				return nil, s.mapError(err, namespace, qualified)
			}

			records[qualified] = secretstore.Record{
				Name:  qualified,
				Group: entryGroup,
				Data:  decodeSecretData(derefString(value.Value)),
			}
		}
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

// Validate fetches the first page of the secret list.
func (s *AzureKeyVaultStore) Validate(ctx context.Context) error {
	pager := s.client.NewListSecretPropertiesPager(nil)
	if _, err := pager.NextPage(ctx); err != nil {
		if isAzureAuthError(err) {
			return secretstore.AuthError{Store: s.name, Message: err.Error()}
		}
		return fmt.Errorf("azure.keyvault validation failed: %w", err)
	}
	return nil
}

// mapError converts Key Vault response errors into store errors.
func (s *AzureKeyVaultStore) mapError(err error, namespace, name string) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return secretstore.NotFoundError{Store: s.name, Namespace: namespace, Name: name}
		case http.StatusConflict:
			return secretstore.ValidationError{Store: s.name, Message: "a deleted secret named " + name + " is awaiting purge"}
		case http.StatusUnauthorized, http.StatusForbidden:
			return secretstore.AuthError{Store: s.name, Message: err.Error()}
		}
	}
	return fmt.Errorf("azure.keyvault request failed: %w", err)
}

func isAzureNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

func isAzureAuthError(err error) bool {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return false
	}
	return respErr.StatusCode == http.StatusUnauthorized || respErr.StatusCode == http.StatusForbidden
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
