// Package secrets implements the lifecycle operations behind the create,
// update, delete, and display commands.
//
// Every operation re-checks existence against the store immediately before
// acting. There is no transactional guarantee spanning the check and the
// action: another actor may mutate the store in between, in which case the
// store call's own error surfaces to the caller. Missing namespaces and
// missing secrets are expected operator states, reported through the printer
// and followed by a nil return; store failures propagate unchanged.
package secrets

import (
	"context"
	"fmt"
	"sort"
	"strings"

	dserrors "github.com/systmms/secretctl/internal/errors"
	"github.com/systmms/secretctl/internal/kv"
	"github.com/systmms/secretctl/internal/logging"
	"github.com/systmms/secretctl/internal/term"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// QualifiedName composes the store-level secret name from a group and a
// short name. Every write and every read goes through this one function;
// composing the name any other way is a correctness bug.
func QualifiedName(group, name string) string {
	return group + "-" + name
}

// ShortName recovers the short name from a store-level qualified name. It is
// the inverse of QualifiedName for records that carry their group; qualified
// names from another group pass through unchanged.
func ShortName(group, qualified string) string {
	return strings.TrimPrefix(qualified, group+"-")
}

// Manager orchestrates secret lifecycle operations against a single store.
// It holds no state between calls.
type Manager struct {
	store   secretstore.Store
	printer term.Printer
	logger  *logging.Logger
}

// NewManager creates a manager reporting through the given printer.
func NewManager(store secretstore.Store, printer term.Printer, logger *logging.Logger) *Manager {
	return &Manager{
		store:   store,
		printer: printer,
		logger:  logger,
	}
}

// Create stores a new secret in the namespace. A missing namespace is
// reported and the call returns nil; an existing secret of the same name is
// not pre-checked, so the store's own rejection surfaces as an error.
func (m *Manager) Create(ctx context.Context, namespace, group, name string, data map[string]string) error {
	ok, err := m.store.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if !ok {
		m.reportMissingNamespace(namespace)
		return nil
	}

	qualified := QualifiedName(group, name)
	m.logger.Debug("creating secret %s in namespace %s of store %s", qualified, namespace, m.store.Name())

	if err := m.store.CreateSecret(ctx, namespace, qualified, group, data); err != nil {
		return err
	}

	m.printer.Line(term.StyleInfo, "secret=%s created in group=%s", name, group)
	return nil
}

// Update replaces the payload of an existing secret. Missing namespaces and
// missing secrets are reported and the call returns nil.
func (m *Manager) Update(ctx context.Context, namespace, group, name string, data map[string]string) error {
	ok, err := m.store.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if !ok {
		m.reportMissingNamespace(namespace)
		return nil
	}

	qualified := QualifiedName(group, name)
	ok, err = m.store.SecretExists(ctx, namespace, qualified)
	if err != nil {
		return err
	}
	if !ok {
		m.reportMissingSecret(name, group)
		return nil
	}

	if err := m.store.UpdateSecret(ctx, namespace, qualified, data); err != nil {
		return err
	}

	m.printer.Line(term.StyleInfo, "secret=%s in group=%s updated", name, group)
	return nil
}

// Delete removes a secret from the namespace. Missing namespaces and missing
// secrets are reported and the call returns nil.
func (m *Manager) Delete(ctx context.Context, namespace, group, name string) error {
	ok, err := m.store.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if !ok {
		m.reportMissingNamespace(namespace)
		return nil
	}

	qualified := QualifiedName(group, name)
	ok, err = m.store.SecretExists(ctx, namespace, qualified)
	if err != nil {
		return err
	}
	if !ok {
		m.reportMissingSecret(name, group)
		return nil
	}

	if err := m.store.DeleteSecret(ctx, namespace, qualified); err != nil {
		return err
	}

	m.printer.Line(term.StyleInfo, "secret=%s in group=%s deleted from namespace=%s", name, group, namespace)
	return nil
}

// Display renders the secrets selected by the request. A missing namespace
// is reported and the call returns nil; a missing single secret renders the
// cannot-find line under its header.
func (m *Manager) Display(ctx context.Context, req DisplayRequest) error {
	ok, err := m.store.NamespaceExists(ctx, req.namespace)
	if err != nil {
		return err
	}
	if !ok {
		m.reportMissingNamespace(req.namespace)
		return nil
	}

	records, err := m.store.ListSecrets(ctx, req.namespace, req.group)
	if err != nil {
		return err
	}

	if req.name != "" {
		m.printer.Line(term.StylePlain, "\n-- %s:", req.name)
		rec, ok := records[QualifiedName(req.group, req.name)]
		if !ok {
			m.printer.Line(term.StylePlain, "cannot find secret=%s in namespace=%s", req.name, req.namespace)
			return nil
		}
		m.renderData(rec.Data)
		return nil
	}

	for _, qualified := range sortedRecordNames(records) {
		m.printer.Line(term.StylePlain, "\n-- %s:", qualified)
		m.renderData(records[qualified].Data)
	}
	return nil
}

// Apply creates the secret when absent and updates it when present. The
// namespace precondition behaves as in Create.
func (m *Manager) Apply(ctx context.Context, namespace, group, name string, data map[string]string) error {
	ok, err := m.store.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if !ok {
		m.reportMissingNamespace(namespace)
		return nil
	}

	qualified := QualifiedName(group, name)
	exists, err := m.store.SecretExists(ctx, namespace, qualified)
	if err != nil {
		return err
	}

	if exists {
		err = m.store.UpdateSecret(ctx, namespace, qualified, data)
	} else {
		err = m.store.CreateSecret(ctx, namespace, qualified, group, data)
	}
	if err != nil {
		return err
	}

	m.printer.Line(term.StyleInfo, "secret=%s in group=%s applied", name, group)
	return nil
}

// Export returns the records a Display of the same request would render,
// sorted by qualified name. Unlike the interactive operations it fails loud:
// a missing namespace or secret is an error, because exports feed pipelines
// where a silent empty result hides mistakes.
func (m *Manager) Export(ctx context.Context, req DisplayRequest) ([]secretstore.Record, error) {
	if err := m.RequireNamespace(ctx, req.namespace); err != nil {
		return nil, err
	}

	records, err := m.store.ListSecrets(ctx, req.namespace, req.group)
	if err != nil {
		return nil, err
	}

	if req.name != "" {
		qualified := QualifiedName(req.group, req.name)
		rec, ok := records[qualified]
		if !ok {
			return nil, dserrors.UserError{
				Message:    fmt.Sprintf("Secret '%s' could not be found in group '%s' of namespace '%s'", req.name, req.group, req.namespace),
				Suggestion: fmt.Sprintf("Run 'secretctl display -n %s' to see what exists", req.namespace),
			}
		}
		return []secretstore.Record{rec}, nil
	}

	out := make([]secretstore.Record, 0, len(records))
	for _, qualified := range sortedRecordNames(records) {
		out = append(out, records[qualified])
	}
	return out, nil
}

// RequireNamespace returns a user-facing error when the namespace does not
// exist. Batch operations use it where the interactive report-and-return
// policy would hide failures.
func (m *Manager) RequireNamespace(ctx context.Context, namespace string) error {
	ok, err := m.store.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if !ok {
		return dserrors.UserError{
			Message:    fmt.Sprintf("Namespace '%s' could not be found in store '%s'", namespace, m.store.Name()),
			Suggestion: fmt.Sprintf("Run 'secretctl namespaces init %s' to create it", namespace),
		}
	}
	return nil
}

// InitNamespace creates the namespace if needed. Safe to repeat.
func (m *Manager) InitNamespace(ctx context.Context, namespace string) error {
	if err := m.store.EnsureNamespace(ctx, namespace); err != nil {
		return err
	}
	m.printer.Line(term.StyleInfo, "namespace=%s ready", namespace)
	return nil
}

// Namespaces prints the store's namespaces, one per line, sorted.
func (m *Manager) Namespaces(ctx context.Context) error {
	names, err := m.store.ListNamespaces(ctx)
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, namespace := range names {
		m.printer.Line(term.StylePlain, "%s", namespace)
	}
	return nil
}

func (m *Manager) reportMissingNamespace(namespace string) {
	m.printer.Line(term.StyleWarn, "namespace=%s could not be found in the secret store", namespace)
}

func (m *Manager) reportMissingSecret(name, group string) {
	m.printer.Line(term.StyleWarn, "secret=%s could not be found in group=%s", name, group)
}

// renderData prints one key=value line per payload entry in key order.
// Embedded newlines are stripped after formatting so multi-line values
// cannot break the line-oriented output.
func (m *Manager) renderData(data map[string]string) {
	for _, key := range kv.SortedKeys(data) {
		line := strings.ReplaceAll(fmt.Sprintf("%s=%s", key, data[key]), "\n", "")
		m.printer.Line(term.StylePlain, "-> %s", line)
	}
}

func sortedRecordNames(records map[string]secretstore.Record) []string {
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
