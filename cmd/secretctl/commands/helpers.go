package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/systmms/secretctl/internal/config"
	dserrors "github.com/systmms/secretctl/internal/errors"
	"github.com/systmms/secretctl/internal/kv"
	"github.com/systmms/secretctl/internal/metrics"
	"github.com/systmms/secretctl/internal/secrets"
	"github.com/systmms/secretctl/internal/stores"
	"github.com/systmms/secretctl/internal/term"
	"github.com/systmms/secretctl/internal/validation"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// printerFor returns the printer report lines go through. Tests inject
// cfg.Printer; the default writes to stdout.
func printerFor(cfg *config.Config) term.Printer {
	if cfg.Printer != nil {
		return cfg.Printer
	}
	return term.NewConsolePrinter(cfg.NoColor)
}

// resolveStoreName picks the store entry a command operates on: the global
// --store flag first, then defaults.store, then the sole configured entry.
func resolveStoreName(cfg *config.Config) (string, error) {
	if cfg.StoreOverride != "" {
		return cfg.StoreOverride, nil
	}
	if name := cfg.DefaultStore(); name != "" {
		return name, nil
	}
	return "", dserrors.UserError{
		Message:    "No store selected",
		Suggestion: fmt.Sprintf("Pass --store or set defaults.store. Available stores: %s", strings.Join(cfg.StoreNames(), ", ")),
	}
}

// resolveNamespace picks the namespace: the -n flag first, then
// defaults.namespace.
func resolveNamespace(cfg *config.Config, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if namespace := cfg.DefaultNamespace(); namespace != "" {
		return namespace, nil
	}
	return "", dserrors.UserError{
		Message:    "Namespace is required",
		Suggestion: "Use -n <namespace> or set defaults.namespace in " + config.DefaultPath,
	}
}

// newManager opens the selected store and wraps it in a lifecycle manager.
// The caller closes the store with closeStore when done.
func newManager(cfg *config.Config) (*secrets.Manager, secretstore.Store, error) {
	name, err := resolveStoreName(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := stores.Open(cfg, name)
	if err != nil {
		return nil, nil, err
	}
	return secrets.NewManager(store, printerFor(cfg), cfg.Logger), store, nil
}

// closeStore releases store resources for backends that hold any. Backends
// disagree on whether Close reports an error, so both shapes are accepted.
func closeStore(store secretstore.Store) {
	switch closer := store.(type) {
	case interface{ Close() }:
		closer.Close()
	case interface{ Close() error }:
		_ = closer.Close()
	}
}

// storeContext bounds store calls with the selected entry's timeout_ms.
func storeContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	name, _ := resolveStoreName(cfg)
	return context.WithTimeout(context.Background(), cfg.GetStoreTimeout(name))
}

// collectData merges --from-file mappings with positional KEY=VALUE args.
// Args win on duplicate keys, the same last-write-wins rule the parser
// applies within each source.
func collectData(args []string, fromFile string) (map[string]string, error) {
	var mappings []map[string]string
	if fromFile != "" {
		fileData, err := kv.LoadMappingFile(fromFile)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, fileData)
	}
	argData, err := kv.ParseMapping(args)
	if err != nil {
		return nil, err
	}
	mappings = append(mappings, argData)
	return kv.Merge(mappings...), nil
}

// validateSecretCoordinates checks the namespace, group, and name a
// lifecycle command received before any store traffic happens.
func validateSecretCoordinates(namespace, group, name string) error {
	if err := validation.ResourceName("namespace", namespace); err != nil {
		return err
	}
	if err := validation.GroupName(group); err != nil {
		return err
	}
	return validation.ResourceName("secret name", name)
}

// startMetricsServer starts the Prometheus scrape endpoint for batch
// commands when metrics.enabled is set. Returns nil when disabled.
func startMetricsServer(cfg *config.Config) *metrics.Server {
	serverCfg := metrics.DefaultServerConfig()
	serverCfg.Enabled = cfg.Definition.Metrics.Enabled
	if cfg.Definition.Metrics.Listen != "" {
		serverCfg.Listen = cfg.Definition.Metrics.Listen
	}
	srv := metrics.NewServer(serverCfg, cfg.Logger)
	if err := srv.Start(); err != nil {
		cfg.Logger.Warn("Metrics server failed to start: %v", err)
		return nil
	}
	return srv
}

func stopMetricsServer(srv *metrics.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}
