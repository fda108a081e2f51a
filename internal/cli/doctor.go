package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/warehouse/internal/config"
	"github.com/cadre-oss/warehouse/internal/event"
	"github.com/cadre-oss/warehouse/internal/storage"
	"github.com/cadre-oss/warehouse/internal/telemetry"
	"github.com/cadre-oss/warehouse/pkg/warehouse"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and storage",
	Long:  "Validate that configuration loads, the storage backend is writable and hooks are well formed.",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "warehouse doctor: checking your environment")
	fmt.Fprintln(out)
	allOK := true

	fmt.Fprintf(out, "  Go version: %s ✓\n", runtime.Version())
	fmt.Fprintf(out, "  Platform:   %s/%s ✓\n", runtime.GOOS, runtime.GOARCH)

	// cgo sqlite is optional; sqlite-pure always works.
	if scratch, err := storage.NewSQLiteBackend(storage.DriverCGo, ":memory:"); err != nil {
		fmt.Fprintln(out, "  SQLite cgo: unavailable (use driver sqlite-pure)")
	} else {
		scratch.Close()
		fmt.Fprintln(out, "  SQLite cgo: available ✓")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(out, "  Config:     INVALID (%v) ✗\n", err)
		fmt.Fprintln(out, "    → Run 'warehouse init' or fix warehouse.yaml")
		return fmt.Errorf("some checks failed")
	}
	fmt.Fprintf(out, "  Config:     %s v%s ✓\n", cfg.Name, cfg.Version)

	if _, err := event.BuildHooks(cfg.Hooks, telemetry.Discard()); err != nil {
		fmt.Fprintf(out, "  Hooks:      INVALID (%v) ✗\n", err)
		allOK = false
	} else {
		fmt.Fprintf(out, "  Hooks:      %d configured ✓\n", len(cfg.Hooks.Hooks))
	}

	storageCfg := cfg.Storage
	if storageCfg.Driver != "memory" && storageCfg.Path != ":memory:" {
		storageCfg.Path = warehouse.ResolvePath(projectDir(), storageCfg.Path)
	}
	if err := checkStorage(cmd.Context(), storageCfg, cfg.Storage.KeyPrefix); err != nil {
		fmt.Fprintf(out, "  Storage:    FAILED (%v) ✗\n", err)
		allOK = false
	} else {
		fmt.Fprintf(out, "  Storage:    %s (%s) ✓\n", storageCfg.Driver, storageCfg.Path)
	}

	fmt.Fprintln(out)
	if !allOK {
		fmt.Fprintln(out, "Some checks failed. See above for details.")
		return fmt.Errorf("some checks failed")
	}
	fmt.Fprintln(out, "All checks passed!")
	return nil
}

// checkStorage writes, reads back and removes a scratch key.
func checkStorage(ctx context.Context, cfg config.StorageConfig, prefix string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	backend, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	adapter := storage.NewAdapter(backend)
	defer adapter.Close()

	key := prefix + "doctor_check"
	if err := adapter.Set(ctx, key, "ok"); err != nil {
		return err
	}
	var got string
	if !adapter.Get(ctx, key, &got) || got != "ok" {
		return fmt.Errorf("read back of %s failed", key)
	}
	return adapter.Remove(ctx, key)
}
