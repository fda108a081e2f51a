package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	werrors "github.com/cadre-oss/warehouse/internal/errors"
	"github.com/cadre-oss/warehouse/pkg/warehouse"
)

var (
	storageJSON bool
	clearYes    bool
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect or reset the storage backend",
}

var storageInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show stored keys and usage",
	Args:  cobra.NoArgs,
	RunE:  runStorageInfo,
}

var storageClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored key",
	Args:  cobra.NoArgs,
	RunE:  runStorageClear,
}

func init() {
	storageInfoCmd.Flags().BoolVar(&storageJSON, "json", false, "output JSON")
	storageClearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deletion")

	storageCmd.AddCommand(storageInfoCmd)
	storageCmd.AddCommand(storageClearCmd)
}

func runStorageInfo(cmd *cobra.Command, args []string) error {
	return withWarehouse(cmd, func(ctx context.Context, w *warehouse.Warehouse) error {
		info, err := w.Adapter().Info(ctx)
		if err != nil {
			return err
		}
		if storageJSON {
			return writeJSON(cmd.OutOrStdout(), info)
		}

		out := cmd.OutOrStdout()
		cfg := w.Config().Storage
		fmt.Fprintf(out, "Driver: %s\n", cfg.Driver)
		if cfg.Path != "" {
			fmt.Fprintf(out, "Path:   %s\n", cfg.Path)
		}
		if info.LimitSize > 0 {
			fmt.Fprintf(out, "Usage:  %d / %d bytes\n", info.CurrentSize, info.LimitSize)
		} else {
			fmt.Fprintf(out, "Usage:  %d bytes (no limit)\n", info.CurrentSize)
		}
		fmt.Fprintf(out, "Keys:   %d\n", len(info.Keys))
		for _, k := range info.Keys {
			fmt.Fprintf(out, "  - %s\n", k)
		}
		return nil
	})
}

func runStorageClear(cmd *cobra.Command, args []string) error {
	if !clearYes {
		return werrors.New(werrors.CodeInvalidInput, "refusing to clear storage without confirmation").
			WithSuggestion("Re-run with --yes")
	}
	return withWarehouse(cmd, func(ctx context.Context, w *warehouse.Warehouse) error {
		if err := w.Adapter().Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Storage cleared.")
		return nil
	})
}
