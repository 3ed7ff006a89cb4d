package stores

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/errors"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// gcpSeparator joins namespace and qualified name into a secret id. Resource
// names cannot contain underscores, so splitting on the first "__" is
// unambiguous.
const gcpSeparator = "__"

// gcpMarkerSuffix names the per-namespace marker secret. Qualified names
// always contain a dash, so "secretctl" cannot collide.
const gcpMarkerSuffix = "secretctl"

// SecretIterator yields secrets from a list call until iterator.Done.
type SecretIterator interface {
	Next() (*secretmanagerpb.Secret, error)
}

// GCPSecretManagerAPI is the subset of the Secret Manager client the store
// uses, without the gax call-option variadics so fakes only depend on the
// generated protobuf types.
type GCPSecretManagerAPI interface {
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error)
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest) (*secretmanagerpb.Secret, error)
	DeleteSecret(ctx context.Context, req *secretmanagerpb.DeleteSecretRequest) error
	ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) SecretIterator
	Close() error
}

// gcpClientAdapter narrows *secretmanager.Client to GCPSecretManagerAPI.
type gcpClientAdapter struct {
	client *secretmanager.Client
}

func (a *gcpClientAdapter) CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error) {
	return a.client.CreateSecret(ctx, req)
}

func (a *gcpClientAdapter) AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error) {
	return a.client.AddSecretVersion(ctx, req)
}

func (a *gcpClientAdapter) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return a.client.AccessSecretVersion(ctx, req)
}

func (a *gcpClientAdapter) GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest) (*secretmanagerpb.Secret, error) {
	return a.client.GetSecret(ctx, req)
}

func (a *gcpClientAdapter) DeleteSecret(ctx context.Context, req *secretmanagerpb.DeleteSecretRequest) error {
	return a.client.DeleteSecret(ctx, req)
}

func (a *gcpClientAdapter) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) SecretIterator {
	return a.client.ListSecrets(ctx, req)
}

func (a *gcpClientAdapter) Close() error {
	return a.client.Close()
}

// GCPSecretManagerStore keeps secrets in Google Cloud Secret Manager. Secret
// Manager has no folders, so objects are named "<namespace>__<qualified>"
// with the namespace and group recorded as labels; listings filter on the
// labels rather than parsing ids.
type GCPSecretManagerStore struct {
	name      string
	projectID string
	timeout   time.Duration
	client    GCPSecretManagerAPI
}

// GCPSecretManagerOption configures a GCPSecretManagerStore.
type GCPSecretManagerOption func(*GCPSecretManagerStore)

// WithGCPClient sets a custom client. This is primarily for testing,
// allowing the SDK client to be mocked.
func WithGCPClient(client GCPSecretManagerAPI) GCPSecretManagerOption {
	return func(s *GCPSecretManagerStore) {
		s.client = client
	}
}

// NewGCPSecretManagerStore creates a Secret Manager backed store.
func NewGCPSecretManagerStore(name string, cfg config.StoreConfig, opts ...GCPSecretManagerOption) (*GCPSecretManagerStore, error) {
	configMap := cfg.Config

	projectID := ""
	if v, ok := configMap["project_id"].(string); ok {
		projectID = v
	}
	if projectID == "" {
		projectID = defaultGCPProject()
	}
	if projectID == "" {
		return nil, errors.ConfigError{
			Field:      "project_id",
			Value:      "",
			Message:    "gcp.secretmanager requires a project_id",
			Suggestion: "Set project_id in the store entry or export GOOGLE_CLOUD_PROJECT",
		}
	}

	s := &GCPSecretManagerStore{
		name:      name,
		projectID: projectID,
	}
	if cfg.TimeoutMs > 0 {
		s.timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		client, err := newGCPClient(context.Background(), configMap)
		if err != nil {
			return nil, err
		}
		s.client = &gcpClientAdapter{client: client}
	}

	return s, nil
}

// newGCPClient builds the concrete SDK client with optional credentials file
// and service account impersonation.
func newGCPClient(ctx context.Context, configMap map[string]interface{}) (*secretmanager.Client, error) {
	var clientOpts []option.ClientOption

	if credFile, ok := configMap["credentials_file"].(string); ok && credFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(expandHomePath(credFile)))
	}

	if target, ok := configMap["impersonate_service_account"].(string); ok && target != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: target,
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to impersonate %s: %w", target, err)
		}
		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	}

	client, err := secretmanager.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return client, nil
}

func defaultGCPProject() string {
	for _, env := range []string{"GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT", "GCP_PROJECT"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

var _ secretstore.Store = (*GCPSecretManagerStore)(nil)

// Name returns the store's configured identifier.
func (s *GCPSecretManagerStore) Name() string {
	return s.name
}

func (s *GCPSecretManagerStore) secretID(namespace, name string) string {
	return namespace + gcpSeparator + name
}

func (s *GCPSecretManagerStore) markerID(namespace string) string {
	return namespace + gcpSeparator + gcpMarkerSuffix
}

func (s *GCPSecretManagerStore) parent() string {
	return "projects/" + s.projectID
}

func (s *GCPSecretManagerStore) secretPath(id string) string {
	return s.parent() + "/secrets/" + id
}

func (s *GCPSecretManagerStore) versionPath(id string) string {
	return s.secretPath(id) + "/versions/latest"
}

// opContext applies the store's configured timeout; gRPC calls honor the
// context deadline.
func (s *GCPSecretManagerStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

// NamespaceExists checks for the namespace's marker secret.
func (s *GCPSecretManagerStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{
		Name: s.secretPath(s.markerID(namespace)),
	})
	if err != nil {
		if isGCPNotFound(err) {
			return false, nil
		}
		return false, s.mapError(err, namespace, "")
	}
	return true, nil
}

// EnsureNamespace creates the marker secret when missing. The marker never
// gets a version; its existence is the whole point.
func (s *GCPSecretManagerStore) EnsureNamespace(ctx context.Context, namespace string) error {
	exists, err := s.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err = s.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   s.parent(),
		SecretId: s.markerID(namespace),
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
			Labels: map[string]string{
				namespaceLabel: namespace,
			},
		},
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			// lost a create race, the namespace is there
			return nil
		}
		return s.mapError(err, namespace, "")
	}
	return nil
}

// ListNamespaces collects the distinct namespace label values.
func (s *GCPSecretManagerStore) ListNamespaces(ctx context.Context) ([]string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	it := s.client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent: s.parent(),
		Filter: "labels." + namespaceLabel + ":*",
	})

	seen := make(map[string]bool)
	for {
		secret, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, s.mapError(err, "", "")
		}
		if namespace := secret.Labels[namespaceLabel]; namespace != "" {
			seen[namespace] = true
		}
	}

	namespaces := make([]string, 0, len(seen))
	for namespace := range seen {
		namespaces = append(namespaces, namespace)
	}
	return namespaces, nil
}

// SecretExists reports whether the qualified name exists in the namespace.
func (s *GCPSecretManagerStore) SecretExists(ctx context.Context, namespace, name string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{
		Name: s.secretPath(s.secretID(namespace, name)),
	})
	if err != nil {
		if isGCPNotFound(err) {
			return false, nil
		}
		return false, s.mapError(err, namespace, name)
	}
	return true, nil
}

// CreateSecret creates the labeled secret and adds its first version.
func (s *GCPSecretManagerStore) CreateSecret(ctx context.Context, namespace, name, group string, data map[string]string) error {
	payload, err := encodeSecretData(data)
	if err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	id := s.secretID(namespace, name)
	_, err = s.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   s.parent(),
		SecretId: id,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
			Labels: map[string]string{
				namespaceLabel: namespace,
				groupLabel:     group,
			},
		},
	})
	if err != nil {
		return s.mapError(err, namespace, name)
	}

	_, err = s.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  s.secretPath(id),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(payload)},
	})
	if err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// UpdateSecret adds a new version; "latest" resolves to it from then on.
func (s *GCPSecretManagerStore) UpdateSecret(ctx context.Context, namespace, name string, data map[string]string) error {
	payload, err := encodeSecretData(data)
	if err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err = s.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  s.secretPath(s.secretID(namespace, name)),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(payload)},
	})
	if err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// DeleteSecret removes the secret with all its versions.
func (s *GCPSecretManagerStore) DeleteSecret(ctx context.Context, namespace, name string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	err := s.client.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{
		Name: s.secretPath(s.secretID(namespace, name)),
	})
	if err != nil {
		return s.mapError(err, namespace, name)
	}
	return nil
}

// ListSecrets filters on the namespace label, optionally narrowed by group,
// and fetches each secret's latest payload.
func (s *GCPSecretManagerStore) ListSecrets(ctx context.Context, namespace, group string) (map[string]secretstore.Record, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	filter := "labels." + namespaceLabel + "=" + namespace
	if group != "" {
		filter += " AND labels." + groupLabel + "=" + group
	}

	it := s.client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent: s.parent(),
		Filter: filter,
	})

	records := make(map[string]secretstore.Record)
	for {
		secret, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, s.mapError(err, namespace, "")
		}

		id := secret.Name[strings.LastIndex(secret.Name, "/")+1:]
		qualified := strings.TrimPrefix(id, namespace+gcpSeparator)
		if qualified == gcpMarkerSuffix {
			continue
		}

		access, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: s.versionPath(id),
		})
		if err != nil {
			if isGCPNotFound(err) {
				// no live version, or deleted between list and fetch
				continue
			}
			return nil, s.mapError(err, namespace, qualified)
		}

		records[qualified] = secretstore.Record{
			Name:  qualified,
			Group: secret.Labels[groupLabel],
			Data:  decodeSecretData(string(access.Payload.Data)),
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

// Validate performs the cheapest authenticated call.
func (s *GCPSecretManagerStore) Validate(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	it := s.client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent:   s.parent(),
		PageSize: 1,
	})
	if _, err := it.Next(); err != nil && err != iterator.Done {
		if isGCPAuthError(err) {
			return secretstore.AuthError{Store: s.name, Message: err.Error()}
		}
		return fmt.Errorf("gcp.secretmanager validation failed: %w", err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (s *GCPSecretManagerStore) Close() {
	_ = s.client.Close()
}

// mapError converts gRPC status codes into store errors.
func (s *GCPSecretManagerStore) mapError(err error, namespace, name string) error {
	switch status.Code(err) {
	case codes.NotFound:
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace, Name: name}
	case codes.AlreadyExists:
		return secretstore.ValidationError{Store: s.name, Message: "secret already exists: " + name}
	case codes.PermissionDenied, codes.Unauthenticated:
		return secretstore.AuthError{Store: s.name, Message: err.Error()}
	}
	return fmt.Errorf("gcp.secretmanager request failed: %w", err)
}

func isGCPNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isGCPAuthError(err error) bool {
	code := status.Code(err)
	return code == codes.PermissionDenied || code == codes.Unauthenticated
}
