package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/warehouse/pkg/warehouse"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show warehouse statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output JSON")
}

// Stats summarizes the store.
type Stats struct {
	Entries      int            `json:"entries"`
	RegistryTags int            `json:"registry_tags"`
	DerivedTags  int            `json:"derived_tags"`
	TagCounts    map[string]int `json:"tag_counts"`
	Newest       *time.Time     `json:"newest,omitempty"`
	Oldest       *time.Time     `json:"oldest,omitempty"`
	StorageBytes int64          `json:"storage_bytes"`
	LimitBytes   int64          `json:"limit_bytes"`
}

func collectStats(ctx context.Context, w *warehouse.Warehouse) (Stats, error) {
	s := w.Store()
	sorted := s.SortedByRecency()
	derived := s.AllTags()

	st := Stats{
		Entries:      len(sorted),
		RegistryTags: len(s.Tags()),
		DerivedTags:  len(derived),
		TagCounts:    make(map[string]int, len(derived)),
	}
	for _, t := range derived {
		st.TagCounts[t] = len(s.ByTag(t))
	}
	if len(sorted) > 0 {
		newest := sorted[0].UpdateTime
		oldest := sorted[len(sorted)-1].UpdateTime
		st.Newest, st.Oldest = &newest, &oldest
	}

	info, err := w.Adapter().Info(ctx)
	if err != nil {
		return Stats{}, err
	}
	st.StorageBytes = info.CurrentSize
	st.LimitBytes = info.LimitSize
	return st, nil
}

func runStats(cmd *cobra.Command, args []string) error {
	return withWarehouse(cmd, func(ctx context.Context, w *warehouse.Warehouse) error {
		st, err := collectStats(ctx, w)
		if err != nil {
			return err
		}
		if statsJSON {
			return writeJSON(cmd.OutOrStdout(), st)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Entries:        %d\n", st.Entries)
		fmt.Fprintf(out, "Registry tags:  %d\n", st.RegistryTags)
		fmt.Fprintf(out, "Tags in use:    %d\n", st.DerivedTags)
		if st.Newest != nil {
			fmt.Fprintf(out, "Last updated:   %s\n", st.Newest.Format(time.RFC3339))
			fmt.Fprintf(out, "Least recent:   %s\n", st.Oldest.Format(time.RFC3339))
		}
		fmt.Fprintf(out, "Storage bytes:  %d\n", st.StorageBytes)

		if len(st.TagCounts) > 0 {
			names := make([]string, 0, len(st.TagCounts))
			for t := range st.TagCounts {
				names = append(names, t)
			}
			sort.Slice(names, func(i, j int) bool {
				if st.TagCounts[names[i]] != st.TagCounts[names[j]] {
					return st.TagCounts[names[i]] > st.TagCounts[names[j]]
				}
				return names[i] < names[j]
			})
			fmt.Fprintln(out, "\nTop tags:")
			for i, t := range names {
				if i == 10 {
					break
				}
				fmt.Fprintf(out, "  %-20s %d\n", t, st.TagCounts[t])
			}
		}

		if verbose {
			fmt.Fprintln(out, "\nSession metrics:")
			summary := w.Metrics().GetSummary()
			keys := make([]string, 0, len(summary))
			for k := range summary {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "  %-24s %v\n", k, summary[k])
			}
		}
		return nil
	})
}
