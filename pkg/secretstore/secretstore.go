package secretstore

import (
	"context"
	"fmt"
	"regexp"
)

// Store defines the interface every secret store backend implements.
//
// All methods take a context and must honor its cancellation; the lifecycle
// manager itself sets no deadlines, so per-store timeouts are applied by the
// implementation's transport. Implementations must be safe for concurrent
// use.
//
// Example usage:
//
//	store, err := stores.Open(ctx, cfg, "aws-prod")
//	if err != nil {
//	    return err
//	}
//
//	ok, err := store.NamespaceExists(ctx, "staging")
//	if err != nil {
//	    return err
//	}
type Store interface {
	// Name returns the store's configured identifier, used in error
	// messages, logs, and metrics labels. Examples: "aws-prod", "cluster",
	// "local".
	Name() string

	// NamespaceExists reports whether the namespace exists in the store.
	// A false return with nil error means "definitely absent"; errors are
	// reserved for failures to determine existence.
	NamespaceExists(ctx context.Context, namespace string) (bool, error)

	// EnsureNamespace creates the namespace if it does not already exist.
	// Calling it on an existing namespace is a no-op, not an error.
	EnsureNamespace(ctx context.Context, namespace string) error

	// ListNamespaces returns the names of all namespaces known to the
	// store, in no particular order.
	ListNamespaces(ctx context.Context) ([]string, error)

	// SecretExists reports whether the named secret exists in the
	// namespace. The name is the fully qualified name composed by the
	// lifecycle manager.
	SecretExists(ctx context.Context, namespace, name string) (bool, error)

	// CreateSecret stores a new secret. Creation of a name that already
	// exists is a backend-level error and passes through unchanged: the
	// lifecycle manager deliberately does not pre-check this case.
	//
	// The group is persisted as a label so ListSecrets can filter by it.
	CreateSecret(ctx context.Context, namespace, name, group string, data map[string]string) error

	// UpdateSecret replaces the payload of an existing secret. The group
	// label is left untouched.
	UpdateSecret(ctx context.Context, namespace, name string, data map[string]string) error

	// DeleteSecret removes the secret from the namespace.
	DeleteSecret(ctx context.Context, namespace, name string) error

	// ListSecrets returns the namespace's secrets keyed by qualified name.
	// When group is non-empty only secrets carrying that group label are
	// returned. Payload data is included: callers render it, so a second
	// round trip per secret would only widen the race window.
	ListSecrets(ctx context.Context, namespace, group string) (map[string]Record, error)

	// Validate checks that the store is reachable and its credentials
	// work. Called by 'secretctl doctor' and at store construction when
	// the configuration requests it.
	Validate(ctx context.Context) error
}

// Record is a read-only view of a stored secret.
type Record struct {
	// Name is the fully qualified secret name ("<group>-<name>").
	Name string

	// Group is the group label the secret was created with. Empty when
	// the backend object predates secretctl or was written by another
	// tool.
	Group string

	// Data is the secret's key-value payload. Values may contain any
	// bytes including newlines; rendering concerns stay with the caller.
	Data map[string]string
}

// NotFoundError indicates that a requested secret or namespace does not
// exist in the store.
type NotFoundError struct {
	// Store is the name of the secret store.
	Store string

	// Namespace is the namespace that was searched.
	Namespace string

	// Name is the qualified secret name that could not be found. Empty
	// when the namespace itself was not found.
	Name string
}

// Error implements the error interface.
func (e NotFoundError) Error() string {
	if e.Name == "" {
		return "namespace not found: " + e.Namespace + " in store " + e.Store
	}
	return "secret not found: " + e.Name + " in namespace " + e.Namespace + " of store " + e.Store
}

// AuthError indicates that authentication to the secret store failed.
type AuthError struct {
	// Store is the name of the secret store that failed authentication.
	Store string

	// Message provides details about the authentication failure.
	Message string
}

// Error implements the error interface.
func (e AuthError) Error() string {
	return "authentication failed for store " + e.Store + ": " + e.Message
}

// ValidationError indicates that a request or a store configuration is
// invalid.
type ValidationError struct {
	// Store is the name of the secret store where validation failed.
	// May be empty for general validation errors.
	Store string

	// Message provides details about what validation failed.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Store == "" {
		return "validation failed: " + e.Message
	}
	return "validation failed for store " + e.Store + ": " + e.Message
}

// resourceNamePattern is the lexical rule for namespaces, groups, and short
// names: lowercase alphanumerics and dashes, starting and ending with an
// alphanumeric. The same rule the cluster store's API enforces server-side.
var resourceNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// MaxResourceNameLength bounds namespace, group, and name tokens. Backends
// commonly cap object names at 253 characters; group and name share one
// qualified name, so each token gets less than half.
const MaxResourceNameLength = 126

// ValidateResourceName checks that a namespace, group, or name token is
// legal. Dashes are allowed: qualified names join group and name with a dash
// by convention, and splitting them back apart is never required.
func ValidateResourceName(kind, value string) error {
	if value == "" {
		return ValidationError{Message: kind + " must not be empty"}
	}
	if len(value) > MaxResourceNameLength {
		return ValidationError{Message: fmt.Sprintf("%s %q exceeds %d characters", kind, value, MaxResourceNameLength)}
	}
	if !resourceNamePattern.MatchString(value) {
		return ValidationError{Message: fmt.Sprintf("%s %q must consist of lowercase alphanumerics and dashes and start and end with an alphanumeric", kind, value)}
	}
	return nil
}
