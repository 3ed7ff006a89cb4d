// Package secretstore defines the storage contract behind secretctl's
// lifecycle operations.
//
// A secret store holds namespaced, named credential objects whose payload is
// a flat key-value mapping. The package specifies what every backend must
// provide; the implementations live in internal/stores.
//
// # Architecture Overview
//
// The secretstore package sits between the lifecycle manager and the
// backend-specific clients:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                     Command Layer                           │
//	│                (cmd/secretctl/commands)                     │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                  Lifecycle Manager                          │
//	│                 (internal/secrets)                          │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                   Store Interface                           │
//	│                 (pkg/secretstore)              ◄────────────┤
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│               Store Implementations                         │
//	│                 (internal/stores)                           │
//	│                                                             │
//	│  ┌─────────┐ ┌─────────┐ ┌─────────┐ ┌─────────┐            │
//	│  │   AWS   │ │   GCP   │ │  Azure  │ │ Cluster │  ...       │
//	│  └─────────┘ └─────────┘ └─────────┘ └─────────┘            │
//	└─────────────────────────────────────────────────────────────┘
//
// # Namespace Model
//
// Every secret lives in exactly one namespace. Namespaces partition
// environments (staging, production) and are first-class: existence is
// queryable, and stores that have no native namespace concept emulate one
// with name prefixes and marker objects. The lifecycle manager checks
// namespace existence before every operation and reports missing namespaces
// to the user instead of failing.
//
// # Qualified Names
//
// Within a namespace, secrets are addressed by a qualified name composed by
// the lifecycle manager from a group and a short name ("<group>-<name>").
// Stores treat the qualified name as opaque: composition and decomposition
// happen above this interface, so a store never needs to know which part is
// the group. Stores do persist the group label alongside the payload so that
// listings can filter by group.
//
// # Error Handling
//
// Use the standardized error types:
//   - NotFoundError: the secret or namespace does not exist
//   - AuthError: authentication to the backend failed
//   - ValidationError: the request or the store configuration is invalid
//
// Transport and backend failures that fit none of these pass through
// unwrapped; the lifecycle manager adds no retries and surfaces them to the
// command layer unchanged.
//
// # Security Considerations
//
// Store implementations must:
//   - Never log payload values (use logging.Secret when a value must appear
//     in a format string)
//   - Use secure transport for network operations
//   - Honor context cancellation on every call
//   - Be safe for concurrent use
package secretstore
