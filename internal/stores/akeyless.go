package stores

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// DefaultAkeylessGateway is the public Akeyless API endpoint.
const DefaultAkeylessGateway = "https://api.akeyless.io"

// defaultAkeylessPrefix roots all secretctl items in the vault.
const defaultAkeylessPrefix = "secretctl"

// akeylessMarkerItem keeps an otherwise empty namespace folder alive;
// Akeyless folders only exist while they hold items.
const akeylessMarkerItem = ".secretctl"

// ErrAkeylessSecretNotFound indicates a path with no secret behind it.
var ErrAkeylessSecretNotFound = errors.New("akeyless secret not found")

// AkeylessItem is the item metadata subset the store uses.
type AkeylessItem struct {
	Path     string
	ItemType string
	Tags     []string
}

// AkeylessListing holds one level of the folder hierarchy.
type AkeylessListing struct {
	Items   []AkeylessItem
	Folders []string
}

// AkeylessClientAPI abstracts the Akeyless SDK operations for testing.
type AkeylessClientAPI interface {
	// Authenticate obtains an access token and its lifetime.
	Authenticate(ctx context.Context) (token string, expiresIn time.Duration, err error)

	// GetSecret retrieves a static secret's value by path.
	GetSecret(ctx context.Context, token, path string) (string, error)

	// CreateSecret creates a static secret with item tags.
	CreateSecret(ctx context.Context, token, path, value string, tags []string) error

	// UpdateSecret replaces a static secret's value.
	UpdateSecret(ctx context.Context, token, path, value string) error

	// DeleteItem removes an item immediately.
	DeleteItem(ctx context.Context, token, path string) error

	// DescribeItem gets item metadata without the value.
	DescribeItem(ctx context.Context, token, path string) (*AkeylessItem, error)

	// ListItems lists one level of items and folders.
	ListItems(ctx context.Context, token, path string) (*AkeylessListing, error)
}

// akeylessSettings collects the configuration keys for the akeyless store.
type akeylessSettings struct {
	GatewayURL string
	AccessID   string
	Prefix     string
	Timeout    time.Duration
	Auth       akeylessAuthSettings
}

type akeylessAuthSettings struct {
	Method          string
	AccessKey       string
	AzureADObjectID string
	GCPAudience     string
}

func parseAkeylessSettings(cfg config.StoreConfig) akeylessSettings {
	s := akeylessSettings{
		GatewayURL: DefaultAkeylessGateway,
		Prefix:     defaultAkeylessPrefix,
	}

	if cfg.TimeoutMs > 0 {
		s.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	configMap := cfg.Config
	if configMap == nil {
		return s
	}

	if accessID, ok := configMap["access_id"].(string); ok {
		s.AccessID = accessID
	}
	if gatewayURL, ok := configMap["gateway_url"].(string); ok && gatewayURL != "" {
		s.GatewayURL = gatewayURL
	}
	if prefix, ok := configMap["prefix"].(string); ok && prefix != "" {
		s.Prefix = strings.Trim(prefix, "/")
	}

	if auth, ok := configMap["auth"].(map[string]interface{}); ok {
		if method, ok := auth["method"].(string); ok {
			s.Auth.Method = method
		}
		if accessKey, ok := auth["access_key"].(string); ok {
			s.Auth.AccessKey = accessKey
		}
		if azureADObjectID, ok := auth["azure_ad_object_id"].(string); ok {
			s.Auth.AzureADObjectID = azureADObjectID
		}
		if gcpAudience, ok := auth["gcp_audience"].(string); ok {
			s.Auth.GCPAudience = gcpAudience
		}
	}

	return s
}

// AkeylessStore keeps secrets in an Akeyless vault under
// "/<prefix>/<namespace>/<qualified>". The folder level below the prefix is
// the namespace; group membership is recorded as an item tag.
type AkeylessStore struct {
	name       string
	settings   akeylessSettings
	client     AkeylessClientAPI
	tokenCache *TokenCache
}

// AkeylessOption configures an AkeylessStore.
type AkeylessOption func(*AkeylessStore)

// WithAkeylessClient sets a custom client. This is primarily for testing,
// allowing the SDK client to be mocked.
func WithAkeylessClient(client AkeylessClientAPI) AkeylessOption {
	return func(s *AkeylessStore) {
		s.client = client
	}
}

// NewAkeylessStore creates an Akeyless backed store.
func NewAkeylessStore(name string, cfg config.StoreConfig, opts ...AkeylessOption) (*AkeylessStore, error) {
	s := &AkeylessStore{
		name:       name,
		settings:   parseAkeylessSettings(cfg),
		tokenCache: NewTokenCache(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		s.client = newAkeylessSDKClient(s.settings)
	}

	return s, nil
}

var _ secretstore.Store = (*AkeylessStore)(nil)

// Name returns the store's configured identifier.
func (s *AkeylessStore) Name() string {
	return s.name
}

func (s *AkeylessStore) rootPath() string {
	return "/" + s.settings.Prefix
}

func (s *AkeylessStore) namespacePath(namespace string) string {
	return s.rootPath() + "/" + namespace
}

func (s *AkeylessStore) secretPath(namespace, name string) string {
	return s.namespacePath(namespace) + "/" + name
}

// getToken returns a cached token or authenticates for a new one.
func (s *AkeylessStore) getToken(ctx context.Context) (string, error) {
	if token, ok := s.tokenCache.Get(); ok {
		return token, nil
	}

	token, ttl, err := s.client.Authenticate(ctx)
	if err != nil {
		return "", secretstore.AuthError{Store: s.name, Message: err.Error()}
	}

	s.tokenCache.Set(token, ttl)
	return token, nil
}

// NamespaceExists reports whether the namespace folder holds anything.
func (s *AkeylessStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	token, err := s.getToken(ctx)
	if err != nil {
		return false, err
	}

	listing, err := s.client.ListItems(ctx, token, s.namespacePath(namespace))
	if err != nil {
		if isAkeylessNotFound(err) {
			return false, nil
		}
		return false, s.mapError(err, namespace, "")
	}
	return len(listing.Items) > 0 || len(listing.Folders) > 0, nil
}

// EnsureNamespace writes the marker item so an empty namespace folder
// persists.
func (s *AkeylessStore) EnsureNamespace(ctx context.Context, namespace string) error {
	exists, err := s.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	token, err := s.getToken(ctx)
	if err != nil {
		return err
	}

	markerPath := s.secretPath(namespace, akeylessMarkerItem)
	tags := []string{namespaceLabel + ":" + namespace}
	if err := s.client.CreateSecret(ctx, token, markerPath, "{}", tags); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exist") {
			return nil
		}
		return s.mapError(err, namespace, "")
	}
	return nil
}

// ListNamespaces returns the folders directly under the prefix.
func (s *AkeylessStore) ListNamespaces(ctx context.Context) ([]string, error) {
	token, err := s.getToken(ctx)
	if err != nil {
		return nil, err
	}

	listing, err := s.client.ListItems(ctx, token, s.rootPath())
	if err != nil {
		if isAkeylessNotFound(err) {
			return nil, nil
		}
		return nil, s.mapError(err, "", "")
	}

	namespaces := make([]string, 0, len(listing.Folders))
	for _, folder := range listing.Folders {
		namespaces = append(namespaces, path.Base(strings.TrimSuffix(folder, "/")))
	}
	return namespaces, nil
}

// SecretExists reports whether an item exists at the secret's path.
func (s *AkeylessStore) SecretExists(ctx context.Context, namespace, name string) (bool, error) {
	token, err := s.getToken(ctx)
	if err != nil {
		return false, err
	}

	_, err = s.client.DescribeItem(ctx, token, s.secretPath(namespace, name))
	if err != nil {
		if isAkeylessNotFound(err) {
			return false, nil
		}
		return false, s.mapError(err, namespace, name)
	}
	return true, nil
}

// CreateSecret stores the payload as a tagged static secret.
func (s *AkeylessStore) CreateSecret(ctx context.Context, namespace, name, group string, data map[string]string) error {
	payload, err := encodeSecretData(data)
	if err != nil {
		return err
	}

	token, err := s.getToken(ctx)
	if err != nil {
		return err
	}

	tags := []string{
		namespaceLabel + ":" + namespace,
		groupLabel + ":" + group,
	}
	if err := s.client.CreateSecret(ctx, token, s.secretPath(namespace, name), payload, tags); err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// UpdateSecret replaces the item's value, leaving its tags untouched.
func (s *AkeylessStore) UpdateSecret(ctx context.Context, namespace, name string, data map[string]string) error {
	payload, err := encodeSecretData(data)
	if err != nil {
		return err
	}

	token, err := s.getToken(ctx)
	if err != nil {
		return err
	}

	if err := s.client.UpdateSecret(ctx, token, s.secretPath(namespace, name), payload); err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// DeleteSecret removes the item immediately.
func (s *AkeylessStore) DeleteSecret(ctx context.Context, namespace, name string) error {
	token, err := s.getToken(ctx)
	if err != nil {
		return err
	}

	if err := s.client.DeleteItem(ctx, token, s.secretPath(namespace, name)); err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// ListSecrets lists the namespace folder and fetches each static secret's
// payload.
func (s *AkeylessStore) ListSecrets(ctx context.Context, namespace, group string) (map[string]secretstore.Record, error) {
	token, err := s.getToken(ctx)
	if err != nil {
		return nil, err
	}

	records := make(map[string]secretstore.Record)

	listing, err := s.client.ListItems(ctx, token, s.namespacePath(namespace))
	if err != nil {
		if isAkeylessNotFound(err) {
			return nil, secretstore.NotFoundError{Store: s.name, Namespace: namespace}
		}
		return nil, s.mapError(err, namespace, "")
	}

	for _, item := range listing.Items {
		qualified := path.Base(item.Path)
		if qualified == akeylessMarkerItem {
			continue
		}
		if item.ItemType != "" && item.ItemType != "STATIC_SECRET" {
			// keys and certificates reject get-secret-value
			continue
		}

		entryGroup := akeylessTagValue(item.Tags, groupLabel)
		if group != "" && entryGroup != group {
			continue
		}

		value, err := s.client.GetSecret(ctx, token, item.Path)
		if err != nil {
			if isAkeylessNotFound(err) {
				// deleted between list and fetch
				continue
			}
			return nil, s.mapError(err, namespace, qualified)
		}

		records[qualified] = secretstore.Record{
			Name:  qualified,
			Group: entryGroup,
			Data:  decodeSecretData(value),
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

// Validate authenticates against the gateway.
func (s *AkeylessStore) Validate(ctx context.Context) error {
	if _, err := s.getToken(ctx); err != nil {
		return err
	}
	return nil
}

// mapError converts SDK failures into store errors. The SDK surfaces server
// errors as strings, so matching is textual.
func (s *AkeylessStore) mapError(err error, namespace, name string) error {
	if isAkeylessNotFound(err) {
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace, Name: name}
	}

	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "already exist") {
		return secretstore.ValidationError{Store: s.name, Message: "secret already exists: " + name}
	}
	if strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "invalid token") ||
		strings.Contains(lower, "authentication") {
		return secretstore.AuthError{Store: s.name, Message: err.Error()}
	}

	return fmt.Errorf("akeyless request failed: %w", err)
}

func isAkeylessNotFound(err error) bool {
	if errors.Is(err, ErrAkeylessSecretNotFound) {
		return true
	}
	// The SDK surfaces HTTP statuses ("404 Not Found") as well as gateway
	// error codes ("itemNotFound"); match both case-insensitively.
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "not found") || strings.Contains(errStr, "itemnotfound")
}

func akeylessTagValue(tags []string, key string) string {
	for _, tag := range tags {
		if strings.HasPrefix(tag, key+":") {
			return strings.TrimPrefix(tag, key+":")
		}
	}
	return ""
}
