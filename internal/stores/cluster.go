package stores

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/systmms/secretctl/internal/config"
	cfgerrors "github.com/systmms/secretctl/internal/errors"
	"github.com/systmms/secretctl/internal/secure"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// KeyringService is the OS keyring service name under which login stores
// cluster API tokens, keyed by store name.
const KeyringService = "secretctl"

// defaultClusterTimeout bounds cluster API calls when timeout_ms is unset.
const defaultClusterTimeout = 30 * time.Second

// ClusterError reports a cluster API failure.
type ClusterError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ClusterError) Error() string {
	return fmt.Sprintf("cluster API %s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
}

// clusterSettings collects the configuration keys for the cluster store.
type clusterSettings struct {
	URL                string
	Token              string
	CACert             string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

func parseClusterSettings(cfg config.StoreConfig) (clusterSettings, error) {
	s := clusterSettings{Timeout: defaultClusterTimeout}

	if cfg.TimeoutMs > 0 {
		s.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	configMap := cfg.Config
	if u, ok := configMap["url"].(string); ok {
		s.URL = u
	}
	if s.URL == "" {
		return s, cfgerrors.ConfigError{
			Field:      "url",
			Value:      "",
			Message:    "cluster store requires a url",
			Suggestion: "Set url to the cluster secret API endpoint, like https://secrets.example.com",
		}
	}

	if token, ok := configMap["token"].(string); ok {
		s.Token = token
	}
	if caCert, ok := configMap["ca_cert"].(string); ok {
		s.CACert = caCert
	}
	if skip, ok := configMap["insecure_skip_verify"].(bool); ok {
		s.InsecureSkipVerify = skip
	}

	return s, nil
}

// newClusterTransport builds the TLS transport, loading a custom CA bundle
// when configured.
func newClusterTransport(settings clusterSettings) (*http.Transport, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{},
	}

	if settings.CACert != "" {
		caCert, err := os.ReadFile(settings.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}

		transport.TLSClientConfig.RootCAs = caCertPool
	}

	if settings.InsecureSkipVerify {
		transport.TLSClientConfig.InsecureSkipVerify = true
	}

	return transport, nil
}

// ClusterStore talks to the cluster secret API over REST. Namespaces and
// secrets are first-class resources under /api/v1/namespaces.
type ClusterStore struct {
	name       string
	baseURL    string
	httpClient *http.Client
	settings   clusterSettings

	tokenOnce  sync.Once
	token      *secure.Buffer
	keyringGet func(service, user string) (string, error)
}

// ClusterOption configures a ClusterStore.
type ClusterOption func(*ClusterStore)

// WithClusterKeyring sets a custom keyring lookup. This is primarily for
// testing, keeping unit tests off the OS keyring.
func WithClusterKeyring(get func(service, user string) (string, error)) ClusterOption {
	return func(s *ClusterStore) {
		s.keyringGet = get
	}
}

// NewClusterStore creates a store backed by the cluster secret API.
func NewClusterStore(name string, cfg config.StoreConfig, opts ...ClusterOption) (*ClusterStore, error) {
	settings, err := parseClusterSettings(cfg)
	if err != nil {
		return nil, err
	}

	transport, err := newClusterTransport(settings)
	if err != nil {
		return nil, err
	}

	s := &ClusterStore{
		name:    name,
		baseURL: strings.TrimRight(settings.URL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   settings.Timeout,
		},
		settings:   settings,
		keyringGet: keyring.Get,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

var _ secretstore.Store = (*ClusterStore)(nil)

// Name returns the store's configured identifier.
func (s *ClusterStore) Name() string {
	return s.name
}

// bearerToken resolves the API token once: inline config first, then the OS
// keyring entry written by login. An empty result sends unauthenticated
// requests and lets the server answer 401.
func (s *ClusterStore) bearerToken() string {
	s.tokenOnce.Do(func() {
		if s.settings.Token != "" {
			s.token = secure.NewBuffer([]byte(s.settings.Token))
			return
		}
		if value, err := s.keyringGet(KeyringService, s.name); err == nil && value != "" {
			s.token = secure.NewBuffer([]byte(value))
		}
	})

	if s.token == nil {
		return ""
	}
	value, err := s.token.Reveal()
	if err != nil {
		return ""
	}
	return value
}

func (s *ClusterStore) namespaceURL(namespace string) string {
	return s.baseURL + "/api/v1/namespaces/" + url.PathEscape(namespace)
}

func (s *ClusterStore) secretsURL(namespace string) string {
	return s.namespaceURL(namespace) + "/secrets"
}

func (s *ClusterStore) secretURL(namespace, name string) string {
	return s.secretsURL(namespace) + "/" + url.PathEscape(name)
}

// doRequest sends one API call and returns the response. The caller owns the
// response body.
func (s *ClusterStore) doRequest(ctx context.Context, method, requestURL string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := s.bearerToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cluster API request failed: %w", err)
	}
	return resp, nil
}

// apiError drains the response body into a store error.
func (s *ClusterStore) apiError(op string, resp *http.Response, namespace, name string) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace, Name: name}
	case http.StatusConflict:
		return secretstore.ValidationError{Store: s.name, Message: "secret already exists: " + name}
	case http.StatusUnauthorized, http.StatusForbidden:
		message := fmt.Sprintf("cluster API returned status %d, run 'secretctl login %s' to authenticate", resp.StatusCode, s.name)
		return secretstore.AuthError{Store: s.name, Message: message}
	default:
		return &ClusterError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    string(bodyBytes),
		}
	}
}

// clusterSecret is the wire shape of one secret resource.
type clusterSecret struct {
	Name  string            `json:"name"`
	Group string            `json:"group"`
	Data  map[string]string `json:"data"`
}

// NamespaceExists checks the namespace resource.
func (s *ClusterStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, s.namespaceURL(namespace), nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, s.apiError("get namespace", resp, namespace, "")
	}
}

// EnsureNamespace creates the namespace resource; PUT is idempotent.
func (s *ClusterStore) EnsureNamespace(ctx context.Context, namespace string) error {
	resp, err := s.doRequest(ctx, http.MethodPut, s.namespaceURL(namespace), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		return s.apiError("put namespace", resp, namespace, "")
	}
}

// ListNamespaces lists the namespace collection.
func (s *ClusterStore) ListNamespaces(ctx context.Context) ([]string, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, s.baseURL+"/api/v1/namespaces", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.apiError("list namespaces", resp, "", "")
	}

	var listResp struct {
		Namespaces []string `json:"namespaces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return listResp.Namespaces, nil
}

// SecretExists checks the secret resource without fetching its payload into
// the caller.
func (s *ClusterStore) SecretExists(ctx context.Context, namespace, name string) (bool, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, s.secretURL(namespace, name), nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, s.apiError("get secret", resp, namespace, name)
	}
}

// CreateSecret posts a new secret into the namespace collection. The server
// rejects duplicates with 409 and missing namespaces with 404.
func (s *ClusterStore) CreateSecret(ctx context.Context, namespace, name, group string, data map[string]string) error {
	body := clusterSecret{Name: name, Group: group, Data: data}

	resp, err := s.doRequest(ctx, http.MethodPost, s.secretsURL(namespace), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusNotFound:
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace}
	default:
		return s.apiError("create secret", resp, namespace, name)
	}
}

// UpdateSecret replaces the secret's payload.
func (s *ClusterStore) UpdateSecret(ctx context.Context, namespace, name string, data map[string]string) error {
	body := struct {
		Data map[string]string `json:"data"`
	}{Data: data}

	resp, err := s.doRequest(ctx, http.MethodPut, s.secretURL(namespace, name), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	default:
		return s.apiError("update secret", resp, namespace, name)
	}
}

// DeleteSecret removes the secret resource.
func (s *ClusterStore) DeleteSecret(ctx context.Context, namespace, name string) error {
	resp, err := s.doRequest(ctx, http.MethodDelete, s.secretURL(namespace, name), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	default:
		return s.apiError("delete secret", resp, namespace, name)
	}
}

// ListSecrets lists the namespace's secrets, optionally filtered by group on
// the server side.
func (s *ClusterStore) ListSecrets(ctx context.Context, namespace, group string) (map[string]secretstore.Record, error) {
	requestURL := s.secretsURL(namespace)
	if group != "" {
		requestURL += "?group=" + url.QueryEscape(group)
	}

	resp, err := s.doRequest(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.apiError("list secrets", resp, namespace, "")
	}

	var listResp struct {
		Secrets []clusterSecret `json:"secrets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	records := make(map[string]secretstore.Record, len(listResp.Secrets))
	for _, entry := range listResp.Secrets {
		records[entry.Name] = secretstore.Record{
			Name:  entry.Name,
			Group: entry.Group,
			Data:  entry.Data,
		}
	}
	return records, nil
}

// Validate lists namespaces, the cheapest call that exercises auth.
func (s *ClusterStore) Validate(ctx context.Context) error {
	if _, err := s.ListNamespaces(ctx); err != nil {
		return err
	}
	return nil
}

// Close releases the token buffer.
func (s *ClusterStore) Close() {
	if s.token != nil {
		s.token.Destroy()
	}
}
