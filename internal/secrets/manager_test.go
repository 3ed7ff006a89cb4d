package secrets_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretctl/internal/logging"
	"github.com/systmms/secretctl/internal/secrets"
	"github.com/systmms/secretctl/internal/term"
	"github.com/systmms/secretctl/pkg/secretstore"
	"github.com/systmms/secretctl/tests/fakes"
)

func newManager(store *fakes.FakeStore) (*secrets.Manager, *fakes.FakePrinter) {
	printer := fakes.NewFakePrinter()
	logger := logging.NewWithWriter(nopWriter{}, false, true)
	return secrets.NewManager(store, printer, logger), printer
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestQualifiedName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ssl-certs", secrets.QualifiedName("ssl", "certs"))
	assert.Equal(t, "g-n", secrets.QualifiedName("g", "n"))
}

func TestShortName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "certs", secrets.ShortName("ssl", "ssl-certs"))
	assert.Equal(t, "api-token", secrets.ShortName("ssl", "api-token"))
	assert.Equal(t, "n", secrets.ShortName("g", secrets.QualifiedName("g", "n")))
}

func TestCreate(t *testing.T) {
	t.Parallel()

	t.Run("missing_namespace_is_reported_without_store_write", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		mgr, printer := newManager(store)

		err := mgr.Create(context.Background(), "staging", "ssl", "certs", map[string]string{"CERT": "pem"})

		require.NoError(t, err)
		assert.Equal(t, []string{"namespace=staging could not be found in the secret store"}, printer.Styled(term.StyleWarn))
		assert.Equal(t, 0, store.CallsTo("CreateSecret"))
	})

	t.Run("creates_with_qualified_name", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddNamespace("staging")
		mgr, printer := newManager(store)

		err := mgr.Create(context.Background(), "staging", "ssl", "certs", map[string]string{"CERT": "pem"})

		require.NoError(t, err)
		assert.Equal(t, []string{"secret=certs created in group=ssl"}, printer.Styled(term.StyleInfo))

		rec, ok := store.Secrets["staging"]["ssl-certs"]
		require.True(t, ok, "secret should be stored under the qualified name")
		assert.Equal(t, "ssl", rec.Group)
		assert.Equal(t, map[string]string{"CERT": "pem"}, rec.Data)
	})

	t.Run("store_error_propagates_unchanged", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddNamespace("staging")
		boom := errors.New("backend rejected the write")
		store.Errors["CreateSecret"] = boom
		mgr, printer := newManager(store)

		err := mgr.Create(context.Background(), "staging", "ssl", "certs", map[string]string{"K": "V"})

		assert.Equal(t, boom, err)
		assert.Empty(t, printer.Styled(term.StyleInfo))
	})

	t.Run("namespace_check_error_propagates", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		boom := errors.New("store unreachable")
		store.Errors["NamespaceExists"] = boom
		mgr, _ := newManager(store)

		err := mgr.Create(context.Background(), "staging", "ssl", "certs", nil)

		assert.Equal(t, boom, err)
		assert.Equal(t, 0, store.CallsTo("CreateSecret"))
	})
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	t.Run("missing_namespace_is_reported", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		mgr, printer := newManager(store)

		err := mgr.Update(context.Background(), "staging", "ssl", "certs", map[string]string{"K": "V"})

		require.NoError(t, err)
		assert.Equal(t, []string{"namespace=staging could not be found in the secret store"}, printer.Styled(term.StyleWarn))
		assert.Equal(t, 0, store.CallsTo("SecretExists"))
		assert.Equal(t, 0, store.CallsTo("UpdateSecret"))
	})

	t.Run("missing_secret_is_reported_without_mutation", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddNamespace("staging")
		mgr, printer := newManager(store)

		err := mgr.Update(context.Background(), "staging", "ssl", "certs", map[string]string{"K": "V"})

		require.NoError(t, err)
		assert.Equal(t, []string{"secret=certs could not be found in group=ssl"}, printer.Styled(term.StyleWarn))
		assert.Equal(t, 0, store.CallsTo("UpdateSecret"))
	})

	t.Run("replaces_payload", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddSecret("staging", "ssl-certs", "ssl", map[string]string{"CERT": "old"})
		mgr, printer := newManager(store)

		err := mgr.Update(context.Background(), "staging", "ssl", "certs", map[string]string{"CERT": "new"})

		require.NoError(t, err)
		assert.Equal(t, []string{"secret=certs in group=ssl updated"}, printer.Styled(term.StyleInfo))
		assert.Equal(t, map[string]string{"CERT": "new"}, store.Secrets["staging"]["ssl-certs"].Data)
	})

	t.Run("store_error_propagates_unchanged", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddSecret("staging", "ssl-certs", "ssl", map[string]string{"CERT": "old"})
		boom := errors.New("write conflict")
		store.Errors["UpdateSecret"] = boom
		mgr, _ := newManager(store)

		err := mgr.Update(context.Background(), "staging", "ssl", "certs", map[string]string{"CERT": "new"})

		assert.Equal(t, boom, err)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	t.Run("missing_namespace_is_reported", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		mgr, printer := newManager(store)

		err := mgr.Delete(context.Background(), "staging", "ssl", "certs")

		require.NoError(t, err)
		assert.Equal(t, []string{"namespace=staging could not be found in the secret store"}, printer.Styled(term.StyleWarn))
		assert.Equal(t, 0, store.CallsTo("DeleteSecret"))
	})

	t.Run("missing_secret_is_reported_without_mutation", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddNamespace("staging")
		mgr, printer := newManager(store)

		err := mgr.Delete(context.Background(), "staging", "ssl", "certs")

		require.NoError(t, err)
		assert.Equal(t, []string{"secret=certs could not be found in group=ssl"}, printer.Styled(term.StyleWarn))
		assert.Equal(t, 0, store.CallsTo("DeleteSecret"))
	})

	t.Run("deletes_by_qualified_name", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddSecret("staging", "ssl-certs", "ssl", map[string]string{"CERT": "pem"})
		mgr, printer := newManager(store)

		err := mgr.Delete(context.Background(), "staging", "ssl", "certs")

		require.NoError(t, err)
		assert.Equal(t, []string{"secret=certs in group=ssl deleted from namespace=staging"}, printer.Styled(term.StyleInfo))
		assert.NotContains(t, store.Secrets["staging"], "ssl-certs")
	})
}

func TestDisplay(t *testing.T) {
	t.Parallel()

	t.Run("missing_namespace_is_reported_without_listing", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		mgr, printer := newManager(store)

		err := mgr.Display(context.Background(), secrets.DisplayAll("staging"))

		require.NoError(t, err)
		assert.Equal(t, []string{"namespace=staging could not be found in the secret store"}, printer.Styled(term.StyleWarn))
		assert.Equal(t, 0, store.CallsTo("ListSecrets"))
	})

	t.Run("lists_every_secret_sorted_by_qualified_name", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddSecret("staging", "ssl-certs", "ssl", map[string]string{"CERT": "pem"})
		store.AddSecret("staging", "db-login", "db", map[string]string{"USER": "admin", "PASSWORD": "pw"})
		mgr, printer := newManager(store)

		err := mgr.Display(context.Background(), secrets.DisplayAll("staging"))

		require.NoError(t, err)
		assert.Equal(t,
			"\n-- db-login:\n-> PASSWORD=pw\n-> USER=admin\n\n-- ssl-certs:\n-> CERT=pem\n",
			printer.Output())
	})

	t.Run("filters_by_group", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddSecret("staging", "ssl-certs", "ssl", map[string]string{"CERT": "pem"})
		store.AddSecret("staging", "db-login", "db", map[string]string{"USER": "admin"})
		mgr, printer := newManager(store)

		err := mgr.Display(context.Background(), secrets.DisplayGroup("staging", "db"))

		require.NoError(t, err)
		out := printer.Output()
		assert.Contains(t, out, "-- db-login:")
		assert.NotContains(t, out, "ssl-certs")
	})

	t.Run("single_secret_prints_short_name_header", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddSecret("staging", "ssl-certs", "ssl", map[string]string{"CERT": "pem"})
		mgr, printer := newManager(store)

		err := mgr.Display(context.Background(), secrets.DisplayOne("staging", "ssl", "certs"))

		require.NoError(t, err)
		assert.Equal(t, "\n-- certs:\n-> CERT=pem\n", printer.Output())
	})

	t.Run("missing_single_secret_reports_cannot_find", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddNamespace("staging")
		mgr, printer := newManager(store)

		err := mgr.Display(context.Background(), secrets.DisplayOne("staging", "ssl", "certs"))

		require.NoError(t, err)
		assert.Equal(t, "\n-- certs:\ncannot find secret=certs in namespace=staging\n", printer.Output())
	})

	t.Run("strips_newlines_from_values", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddSecret("staging", "ssl-certs", "ssl", map[string]string{
			"CERT": "-----BEGIN-----\nMIIB\n-----END-----\n",
		})
		mgr, printer := newManager(store)

		err := mgr.Display(context.Background(), secrets.DisplayOne("staging", "ssl", "certs"))

		require.NoError(t, err)
		assert.Contains(t, printer.Output(), "-> CERT=-----BEGIN-----MIIB-----END-----\n")
	})

	t.Run("list_error_propagates", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddNamespace("staging")
		boom := errors.New("list failed")
		store.Errors["ListSecrets"] = boom
		mgr, _ := newManager(store)

		err := mgr.Display(context.Background(), secrets.DisplayAll("staging"))

		assert.Equal(t, boom, err)
	})
}

// TestCreateDisplayRoundTrip guards the composition consistency between the
// write and read paths: a secret created via group and short name must be
// found again through the same pair.
func TestCreateDisplayRoundTrip(t *testing.T) {
	t.Parallel()

	store := fakes.NewFakeStore()
	store.AddNamespace("staging")
	mgr, printer := newManager(store)

	ctx := context.Background()
	require.NoError(t, mgr.Create(ctx, "staging", "g", "n", map[string]string{"K": "V"}))
	require.NoError(t, mgr.Display(ctx, secrets.DisplayOne("staging", "g", "n")))

	assert.Contains(t, printer.Output(), "K=V")
}

func TestNewDisplayRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		group     string
		shortName string
		wantErr   error
		wantGroup string
		wantName  string
	}{
		{name: "all", wantGroup: "", wantName: ""},
		{name: "group_only", group: "ssl", wantGroup: "ssl"},
		{name: "group_and_name", group: "ssl", shortName: "certs", wantGroup: "ssl", wantName: "certs"},
		{name: "name_without_group", shortName: "certs", wantErr: secrets.ErrGroupRequired},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req, err := secrets.NewDisplayRequest("staging", tt.group, tt.shortName)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "staging", req.Namespace())
			assert.Equal(t, tt.wantGroup, req.Group())
			assert.Equal(t, tt.wantName, req.Name())
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("creates_when_absent", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddNamespace("staging")
		mgr, printer := newManager(store)

		err := mgr.Apply(context.Background(), "staging", "ssl", "certs", map[string]string{"CERT": "pem"})

		require.NoError(t, err)
		assert.Equal(t, 1, store.CallsTo("CreateSecret"))
		assert.Equal(t, 0, store.CallsTo("UpdateSecret"))
		assert.Equal(t, []string{"secret=certs in group=ssl applied"}, printer.Styled(term.StyleInfo))
	})

	t.Run("updates_when_present", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddSecret("staging", "ssl-certs", "ssl", map[string]string{"CERT": "old"})
		mgr, _ := newManager(store)

		err := mgr.Apply(context.Background(), "staging", "ssl", "certs", map[string]string{"CERT": "new"})

		require.NoError(t, err)
		assert.Equal(t, 0, store.CallsTo("CreateSecret"))
		assert.Equal(t, 1, store.CallsTo("UpdateSecret"))
		assert.Equal(t, map[string]string{"CERT": "new"}, store.Secrets["staging"]["ssl-certs"].Data)
	})

	t.Run("missing_namespace_is_reported", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		mgr, printer := newManager(store)

		err := mgr.Apply(context.Background(), "staging", "ssl", "certs", nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"namespace=staging could not be found in the secret store"}, printer.Styled(term.StyleWarn))
	})
}

func TestExport(t *testing.T) {
	t.Parallel()

	t.Run("returns_sorted_records", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddSecret("staging", "ssl-certs", "ssl", map[string]string{"CERT": "pem"})
		store.AddSecret("staging", "db-login", "db", map[string]string{"USER": "admin"})
		mgr, _ := newManager(store)

		records, err := mgr.Export(context.Background(), secrets.DisplayAll("staging"))

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "db-login", records[0].Name)
		assert.Equal(t, "ssl-certs", records[1].Name)
	})

	t.Run("missing_namespace_is_an_error", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		mgr, _ := newManager(store)

		_, err := mgr.Export(context.Background(), secrets.DisplayAll("staging"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "could not be found in store")
	})

	t.Run("missing_single_secret_is_an_error", func(t *testing.T) {
		t.Parallel()

		store := fakes.NewFakeStore()
		store.AddNamespace("staging")
		mgr, _ := newManager(store)

		_, err := mgr.Export(context.Background(), secrets.DisplayOne("staging", "ssl", "certs"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "could not be found in group 'ssl'")
	})
}

func TestRequireNamespace(t *testing.T) {
	t.Parallel()

	store := fakes.NewFakeStore()
	store.AddNamespace("prod")
	mgr, _ := newManager(store)

	require.NoError(t, mgr.RequireNamespace(context.Background(), "prod"))

	err := mgr.RequireNamespace(context.Background(), "staging")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespaces init staging")
}

func TestInitNamespace(t *testing.T) {
	t.Parallel()

	store := fakes.NewFakeStore()
	mgr, printer := newManager(store)

	require.NoError(t, mgr.InitNamespace(context.Background(), "staging"))
	assert.True(t, store.Namespaces["staging"])
	assert.Equal(t, []string{"namespace=staging ready"}, printer.Styled(term.StyleInfo))

	// Idempotent: a second init succeeds and leaves the namespace in place.
	require.NoError(t, mgr.InitNamespace(context.Background(), "staging"))
	assert.True(t, store.Namespaces["staging"])
}

func TestNamespaces(t *testing.T) {
	t.Parallel()

	store := fakes.NewFakeStore()
	store.AddNamespace("prod")
	store.AddNamespace("dev")
	store.AddNamespace("staging")
	mgr, printer := newManager(store)

	require.NoError(t, mgr.Namespaces(context.Background()))

	assert.Equal(t, []string{"dev", "prod", "staging"}, printer.Styled(term.StylePlain))
}

// TestPayloadValuesNeverReachTheLogger guards the logging contract: payload
// values flow to the printer only, never to log output.
func TestPayloadValuesNeverReachTheLogger(t *testing.T) {
	t.Parallel()

	var logBuf captureWriter
	store := fakes.NewFakeStore()
	store.AddNamespace("staging")
	printer := fakes.NewFakePrinter()
	logger := logging.NewWithWriter(&logBuf, true, true)
	mgr := secrets.NewManager(store, printer, logger)

	secretValue := "hunter2-super-secret"
	err := mgr.Create(context.Background(), "staging", "db", "login", map[string]string{"PASSWORD": secretValue})

	require.NoError(t, err)
	assert.NotContains(t, logBuf.String(), secretValue)
}

type captureWriter struct {
	data []byte
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *captureWriter) String() string { return string(w.data) }

var _ secretstore.Store = (*fakes.FakeStore)(nil)
