package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/warehouse/pkg/warehouse"
)

var (
	tagDerived bool
	tagJSON    bool
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage the tag registry",
	Long: `Manage the tag registry.

The registry is independent of the tags on entries: entries may carry tags
that were never added here. Removing a registry tag also strips it from
every entry.`,
}

var tagAddCmd = &cobra.Command{
	Use:   "add <tag>",
	Short: "Add a tag to the registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagAdd,
}

var tagRmCmd = &cobra.Command{
	Use:   "rm <tag>",
	Short: "Remove a tag from the registry and from all entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagRm,
}

var tagLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List registry tags",
	Args:  cobra.NoArgs,
	RunE:  runTagLs,
}

func init() {
	tagLsCmd.Flags().BoolVar(&tagDerived, "derived", false, "list tags used by entries instead of the registry")
	tagLsCmd.Flags().BoolVar(&tagJSON, "json", false, "output JSON")

	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRmCmd)
	tagCmd.AddCommand(tagLsCmd)
}

func runTagAdd(cmd *cobra.Command, args []string) error {
	return withWarehouse(cmd, func(ctx context.Context, w *warehouse.Warehouse) error {
		out := w.Store().AddTag(ctx, args[0])
		if !out.Applied {
			fmt.Fprintf(cmd.OutOrStdout(), "Tag %q already registered\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added tag %q\n", args[0])
		return outcomeError(out)
	})
}

func runTagRm(cmd *cobra.Command, args []string) error {
	return withWarehouse(cmd, func(ctx context.Context, w *warehouse.Warehouse) error {
		out := w.Store().RemoveTag(ctx, args[0])
		if !out.Applied {
			fmt.Fprintf(cmd.OutOrStdout(), "Tag %q not registered\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed tag %q\n", args[0])
		return outcomeError(out)
	})
}

func runTagLs(cmd *cobra.Command, args []string) error {
	return withWarehouse(cmd, func(ctx context.Context, w *warehouse.Warehouse) error {
		tags := w.Store().Tags()
		if tagDerived {
			tags = w.Store().AllTags()
		}
		if tagJSON {
			return writeJSON(cmd.OutOrStdout(), tags)
		}
		if len(tags) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tags.")
			return nil
		}
		for _, t := range tags {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", t, len(w.Store().ByTag(t)))
		}
		return nil
	})
}
