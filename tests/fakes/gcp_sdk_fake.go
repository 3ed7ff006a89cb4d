package fakes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/systmms/secretctl/internal/stores"
)

// FakeGCPSecretManagerClient is a test double for stores.GCPSecretManagerAPI
type FakeGCPSecretManagerClient struct {
	// Secrets maps full resource names (projects/X/secrets/Y) to their data
	Secrets map[string]*GCPSecretData
	// Payloads maps full resource names to their latest version payload
	Payloads map[string][]byte
	// Errors maps resource names to errors to return
	Errors map[string]error
	// ListErr is returned by every ListSecrets iterator if set
	ListErr error
	// CreateSecretFunc allows custom behavior for CreateSecret
	CreateSecretFunc func(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error)
	// AccessSecretVersionFunc allows custom behavior for AccessSecretVersion
	AccessSecretVersionFunc func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	// Closed records whether Close was called
	Closed bool
}

// GCPSecretData holds the data for a mock GCP secret
type GCPSecretData struct {
	Name       string
	CreateTime *timestamppb.Timestamp
	Labels     map[string]string
}

// NewFakeGCPSecretManagerClient creates a new mock GCP Secret Manager client
func NewFakeGCPSecretManagerClient() *FakeGCPSecretManagerClient {
	return &FakeGCPSecretManagerClient{
		Secrets:  make(map[string]*GCPSecretData),
		Payloads: make(map[string][]byte),
		Errors:   make(map[string]error),
	}
}

// AddSecret adds a labeled secret with a payload to the mock client
func (f *FakeGCPSecretManagerClient) AddSecret(projectID, secretID string, labels map[string]string, payload string) {
	fullName := fmt.Sprintf("projects/%s/secrets/%s", projectID, secretID)
	f.Secrets[fullName] = &GCPSecretData{
		Name:       fullName,
		CreateTime: timestamppb.New(time.Now()),
		Labels:     labels,
	}
	if payload != "" {
		f.Payloads[fullName] = []byte(payload)
	}
}

// AddError configures the mock to return an error for a specific resource
func (f *FakeGCPSecretManagerClient) AddError(resourceName string, err error) {
	f.Errors[resourceName] = err
}

// CreateSecret mocks the CreateSecret operation
func (f *FakeGCPSecretManagerClient) CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error) {
	if f.CreateSecretFunc != nil {
		return f.CreateSecretFunc(ctx, req)
	}

	fullName := req.Parent + "/secrets/" + req.SecretId

	if err, exists := f.Errors[fullName]; exists {
		return nil, err
	}

	if _, exists := f.Secrets[fullName]; exists {
		return nil, status.Errorf(codes.AlreadyExists, "Secret %s already exists", fullName)
	}

	data := &GCPSecretData{
		Name:       fullName,
		CreateTime: timestamppb.New(time.Now()),
	}
	if req.Secret != nil {
		data.Labels = req.Secret.Labels
	}
	f.Secrets[fullName] = data

	return &secretmanagerpb.Secret{
		Name:       data.Name,
		CreateTime: data.CreateTime,
		Labels:     data.Labels,
	}, nil
}

// AddSecretVersion mocks the AddSecretVersion operation
func (f *FakeGCPSecretManagerClient) AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error) {
	if err, exists := f.Errors[req.Parent]; exists {
		return nil, err
	}

	if _, exists := f.Secrets[req.Parent]; !exists {
		return nil, status.Errorf(codes.NotFound, "Secret %s not found", req.Parent)
	}

	f.Payloads[req.Parent] = req.Payload.Data

	return &secretmanagerpb.SecretVersion{
		Name:       req.Parent + "/versions/1",
		CreateTime: timestamppb.New(time.Now()),
		State:      secretmanagerpb.SecretVersion_ENABLED,
	}, nil
}

// AccessSecretVersion mocks the AccessSecretVersion operation for the latest
// version
func (f *FakeGCPSecretManagerClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	if f.AccessSecretVersionFunc != nil {
		return f.AccessSecretVersionFunc(ctx, req)
	}

	if err, exists := f.Errors[req.Name]; exists {
		return nil, err
	}

	secretName := strings.TrimSuffix(req.Name, "/versions/latest")
	payload, exists := f.Payloads[secretName]
	if !exists {
		return nil, status.Errorf(codes.NotFound, "Secret version %s not found", req.Name)
	}

	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.Name,
		Payload: &secretmanagerpb.SecretPayload{Data: payload},
	}, nil
}

// GetSecret mocks the GetSecret operation
func (f *FakeGCPSecretManagerClient) GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest) (*secretmanagerpb.Secret, error) {
	if err, exists := f.Errors[req.Name]; exists {
		return nil, err
	}

	data, exists := f.Secrets[req.Name]
	if !exists {
		return nil, status.Errorf(codes.NotFound, "Secret %s not found", req.Name)
	}

	return &secretmanagerpb.Secret{
		Name:       data.Name,
		CreateTime: data.CreateTime,
		Labels:     data.Labels,
	}, nil
}

// DeleteSecret mocks the DeleteSecret operation
func (f *FakeGCPSecretManagerClient) DeleteSecret(ctx context.Context, req *secretmanagerpb.DeleteSecretRequest) error {
	if err, exists := f.Errors[req.Name]; exists {
		return err
	}

	if _, exists := f.Secrets[req.Name]; !exists {
		return status.Errorf(codes.NotFound, "Secret %s not found", req.Name)
	}

	delete(f.Secrets, req.Name)
	delete(f.Payloads, req.Name)
	return nil
}

// ListSecrets mocks the ListSecrets operation, honoring label equality and
// label presence filters ("labels.k=v" and "labels.k:*" joined by AND).
func (f *FakeGCPSecretManagerClient) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) stores.SecretIterator {
	if f.ListErr != nil {
		return &FakeSecretIterator{err: f.ListErr}
	}

	prefix := req.Parent + "/secrets/"

	var secrets []*secretmanagerpb.Secret
	for name, data := range f.Secrets {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if !matchesLabelFilter(data.Labels, req.Filter) {
			continue
		}
		secrets = append(secrets, &secretmanagerpb.Secret{
			Name:       data.Name,
			CreateTime: data.CreateTime,
			Labels:     data.Labels,
		})
	}

	return &FakeSecretIterator{secrets: secrets}
}

// Close mocks closing the client connection
func (f *FakeGCPSecretManagerClient) Close() error {
	f.Closed = true
	return nil
}

func matchesLabelFilter(labels map[string]string, filter string) bool {
	if filter == "" {
		return true
	}

	for _, clause := range strings.Split(filter, " AND ") {
		clause = strings.TrimSpace(strings.TrimPrefix(clause, "labels."))
		switch {
		case strings.HasSuffix(clause, ":*"):
			key := strings.TrimSuffix(clause, ":*")
			if _, ok := labels[key]; !ok {
				return false
			}
		case strings.Contains(clause, "="):
			key, value, _ := strings.Cut(clause, "=")
			if labels[key] != value {
				return false
			}
		}
	}
	return true
}

// FakeSecretIterator is a mock implementation of stores.SecretIterator
type FakeSecretIterator struct {
	secrets []*secretmanagerpb.Secret
	index   int
	err     error
}

// NewFakeSecretIterator creates a new fake secret iterator
func NewFakeSecretIterator(secrets []*secretmanagerpb.Secret, err error) *FakeSecretIterator {
	return &FakeSecretIterator{secrets: secrets, err: err}
}

// Next returns the next secret in the iteration
func (it *FakeSecretIterator) Next() (*secretmanagerpb.Secret, error) {
	if it.err != nil {
		return nil, it.err
	}

	if it.index >= len(it.secrets) {
		return nil, iterator.Done
	}

	secret := it.secrets[it.index]
	it.index++
	return secret, nil
}

// GCP error helpers

// GCPNotFoundError creates a mock GCP not found error
func GCPNotFoundError(resourceName string) error {
	return status.Errorf(codes.NotFound, "Resource %s not found", resourceName)
}

// GCPPermissionDeniedError creates a mock GCP permission denied error
func GCPPermissionDeniedError(message string) error {
	return status.Error(codes.PermissionDenied, message)
}

// GCPUnauthenticatedError creates a mock GCP unauthenticated error
func GCPUnauthenticatedError(message string) error {
	return status.Error(codes.Unauthenticated, message)
}

// Ensure FakeGCPSecretManagerClient implements stores.GCPSecretManagerAPI
var _ stores.GCPSecretManagerAPI = (*FakeGCPSecretManagerClient)(nil)
