package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cadre-oss/warehouse/internal/memory"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printEntries(w io.Writer, entries []memory.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTAGS\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			shortID(e.ID),
			truncate(e.Title, 40),
			strings.Join(e.Tags, ","),
			e.UpdateTime.Local().Format(time.DateTime),
		)
	}
	tw.Flush()
}

func printEntry(w io.Writer, e memory.Entry) {
	fmt.Fprintf(w, "ID:      %s\n", e.ID)
	fmt.Fprintf(w, "Title:   %s\n", e.Title)
	if len(e.Tags) > 0 {
		fmt.Fprintf(w, "Tags:    %s\n", strings.Join(e.Tags, ", "))
	}
	fmt.Fprintf(w, "Created: %s\n", e.CreateTime.Format(time.RFC3339))
	fmt.Fprintf(w, "Updated: %s\n", e.UpdateTime.Format(time.RFC3339))
	if e.Content != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, e.Content)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
