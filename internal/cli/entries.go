package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	werrors "github.com/cadre-oss/warehouse/internal/errors"
	"github.com/cadre-oss/warehouse/internal/memory"
	"github.com/cadre-oss/warehouse/pkg/warehouse"
)

var (
	addTitle   string
	addContent string
	addTags    []string

	editTitle     string
	editContent   string
	editTags      []string
	editClearTags bool

	showJSON bool

	listTag  string
	listJSON bool

	searchJSON bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an entry",
	Long: `Add a new entry. An empty title becomes the configured default title.

Examples:
  warehouse add --title "Standup" --content "Ship the release" --tag work
  echo "long text" | warehouse add --title Notes --content -`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Update fields of an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an entry",
	Args:    cobra.ExactArgs(1),
	RunE:    runRm,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List entries, most recently updated first",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var searchCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Search titles, content and tags (case-insensitive)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearch,
}

func init() {
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "entry title")
	addCmd.Flags().StringVarP(&addContent, "content", "c", "", "entry content (- reads stdin)")
	addCmd.Flags().StringArrayVar(&addTags, "tag", nil, "tag (repeatable, commas are kept)")

	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "new title")
	editCmd.Flags().StringVarP(&editContent, "content", "c", "", "new content (- reads stdin)")
	editCmd.Flags().StringArrayVar(&editTags, "tag", nil, "replace tags (repeatable, commas are kept)")
	editCmd.Flags().BoolVar(&editClearTags, "clear-tags", false, "remove all tags")

	showCmd.Flags().BoolVar(&showJSON, "json", false, "output JSON")

	listCmd.Flags().StringVar(&listTag, "tag", "", "only entries with this tag")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output JSON")

	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output JSON")
}

func readContent(cmd *cobra.Command, v string) (string, error) {
	if v != "-" {
		return v, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// outcomeError turns an unsaved outcome into a command error.
func outcomeError(out memory.Outcome) error {
	if !out.Unsaved() {
		return nil
	}
	return werrors.Wrap(werrors.AsCode(out.Err), "change applied but not saved", out.Err).
		WithSuggestion("Check storage with 'warehouse doctor' and retry")
}

// resolveID expands a unique id prefix to a full id.
func resolveID(s *memory.Store, id string) (string, error) {
	if _, ok := s.GetByID(id); ok {
		return id, nil
	}
	var match string
	for _, e := range s.Entries() {
		if strings.HasPrefix(e.ID, id) {
			if match != "" {
				return "", werrors.New(werrors.CodeInvalidInput, "ambiguous id prefix "+id).
					WithSuggestion("Use more characters of the id")
			}
			match = e.ID
		}
	}
	if match == "" {
		return "", werrors.EntryNotFound(id)
	}
	return match, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	content, err := readContent(cmd, addContent)
	if err != nil {
		return err
	}

	return withWarehouse(cmd, func(ctx context.Context, w *warehouse.Warehouse) error {
		e, out := w.Store().AddEntry(ctx, memory.NewEntry{
			Title:   addTitle,
			Content: content,
			Tags:    addTags,
		})
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", e.ID, e.Title)
		return outcomeError(out)
	})
}

func runEdit(cmd *cobra.Command, args []string) error {
	var patch memory.Patch
	flags := cmd.Flags()
	if flags.Changed("title") {
		patch.Title = &editTitle
	}
	if flags.Changed("content") {
		content, err := readContent(cmd, editContent)
		if err != nil {
			return err
		}
		patch.Content = &content
	}
	if flags.Changed("tag") {
		patch.Tags = &editTags
	}
	if editClearTags {
		empty := []string{}
		patch.Tags = &empty
	}
	if patch.IsEmpty() {
		return werrors.New(werrors.CodeInvalidInput, "nothing to update").
			WithSuggestion("Pass at least one of --title, --content, --tag, --clear-tags")
	}

	return withWarehouse(cmd, func(ctx context.Context, w *warehouse.Warehouse) error {
		id, err := resolveID(w.Store(), args[0])
		if err != nil {
			return err
		}
		e, out := w.Store().UpdateEntry(ctx, id, patch)
		if !out.Applied {
			return werrors.EntryNotFound(id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", e.ID, e.Title)
		return outcomeError(out)
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	return withWarehouse(cmd, func(ctx context.Context, w *warehouse.Warehouse) error {
		id, err := resolveID(w.Store(), args[0])
		if err != nil {
			return err
		}
		out := w.Store().DeleteEntry(ctx, id)
		if !out.Applied {
			return werrors.EntryNotFound(id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
		return outcomeError(out)
	})
}

func runShow(cmd *cobra.Command, args []string) error {
	return withWarehouse(cmd, func(ctx context.Context, w *warehouse.Warehouse) error {
		id, err := resolveID(w.Store(), args[0])
		if err != nil {
			return err
		}
		e, _ := w.Store().GetByID(id)
		if showJSON {
			return writeJSON(cmd.OutOrStdout(), e)
		}
		printEntry(cmd.OutOrStdout(), e)
		return nil
	})
}

func runList(cmd *cobra.Command, args []string) error {
	return withWarehouse(cmd, func(ctx context.Context, w *warehouse.Warehouse) error {
		entries := w.Store().SortedByRecency()
		if listTag != "" {
			tagged := entries[:0]
			for _, e := range entries {
				if e.HasTag(listTag) {
					tagged = append(tagged, e)
				}
			}
			entries = tagged
		}
		if listJSON {
			return writeJSON(cmd.OutOrStdout(), entries)
		}
		printEntries(cmd.OutOrStdout(), entries)
		return nil
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	keyword := ""
	if len(args) > 0 {
		keyword = args[0]
	}

	return withWarehouse(cmd, func(ctx context.Context, w *warehouse.Warehouse) error {
		results := w.Store().Search(keyword)
		if searchJSON {
			return writeJSON(cmd.OutOrStdout(), results)
		}
		printEntries(cmd.OutOrStdout(), results)
		return nil
	})
}
