package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/cadre-oss/warehouse/internal/config"
	werrors "github.com/cadre-oss/warehouse/internal/errors"
	"github.com/cadre-oss/warehouse/internal/memory"
)

// resetFlags restores every flag to its default between invocations of
// the shared command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

type cliEnv struct {
	t   *testing.T
	dir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	return &cliEnv{t: t, dir: t.TempDir()}
}

// run executes the CLI against the env's config file with a file backend.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))

	full := append([]string{
		"--config", filepath.Join(e.dir, config.FileName),
		"--driver", "file",
		"--path", filepath.Join(e.dir, "data"),
	}, args...)
	rootCmd.SetArgs(full)

	err := rootCmd.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "warehouse %v", args)
	return out
}

func (e *cliEnv) list() []memory.Entry {
	e.t.Helper()
	var entries []memory.Entry
	require.NoError(e.t, json.Unmarshal([]byte(e.mustRun("list", "--json")), &entries))
	return entries
}

func TestCLI_AddListShow(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("add", "--title", "Standup", "--content", "ship it", "--tag", "work", "--tag", "daily")
	require.Contains(t, out, "Added ")

	env.mustRun("add", "--content", "untitled body")

	entries := env.list()
	require.Len(t, entries, 2)
	require.Equal(t, config.DefaultTitle, entries[0].Title)
	require.Equal(t, "Standup", entries[1].Title)
	require.Equal(t, []string{"work", "daily"}, entries[1].Tags)

	out = env.mustRun("show", entries[1].ID[:8])
	require.Contains(t, out, "Title:   Standup")
	require.Contains(t, out, "ship it")

	out = env.mustRun("list")
	require.Contains(t, out, "TITLE")
	require.Contains(t, out, "Standup")
}

func TestCLI_EditAndRemove(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("add", "--title", "Draft", "--tag", "a")
	id := env.list()[0].ID

	env.mustRun("edit", id, "--title", "Final", "--tag", "b", "--tag", "c")
	e := env.list()[0]
	require.Equal(t, "Final", e.Title)
	require.Equal(t, []string{"b", "c"}, e.Tags)
	require.True(t, e.UpdateTime.After(e.CreateTime))

	env.mustRun("edit", id, "--clear-tags")
	require.Empty(t, env.list()[0].Tags)

	_, err := env.run("edit", id)
	require.Equal(t, werrors.CodeInvalidInput, werrors.AsCode(err))

	env.mustRun("rm", id)
	require.Empty(t, env.list())

	_, err = env.run("rm", id)
	require.Equal(t, werrors.CodeEntryNotFound, werrors.AsCode(err))
}

func TestCLI_Search(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("add", "--title", "Groceries", "--content", "Milk and eggs")
	env.mustRun("add", "--title", "Reading", "--tag", "books")

	var results []memory.Entry
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("search", "MILK", "--json")), &results))
	require.Len(t, results, 1)
	require.Equal(t, "Groceries", results[0].Title)

	require.NoError(t, json.Unmarshal([]byte(env.mustRun("search", "--json")), &results))
	require.Len(t, results, 2)
}

func TestCLI_Tags(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("tag", "add", "x")
	env.mustRun("add", "--title", "n", "--tag", "x", "--tag", "y")

	var tags []string
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("tag", "ls", "--json")), &tags))
	require.Equal(t, []string{"x"}, tags)

	require.NoError(t, json.Unmarshal([]byte(env.mustRun("tag", "ls", "--derived", "--json")), &tags))
	require.Equal(t, []string{"x", "y"}, tags)

	out := env.mustRun("tag", "add", "x")
	require.Contains(t, out, "already registered")

	env.mustRun("tag", "rm", "x")
	require.Equal(t, []string{"y"}, env.list()[0].Tags)

	var entries []memory.Entry
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("list", "--tag", "y", "--json")), &entries))
	require.Len(t, entries, 1)
}

func TestCLI_ListByTagKeepsRecencyOrder(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("add", "--title", "A", "--tag", "t")
	env.mustRun("add", "--title", "B", "--tag", "t")
	env.mustRun("add", "--title", "C", "--tag", "t")
	env.mustRun("add", "--title", "other")

	ids := map[string]string{}
	for _, e := range env.list() {
		ids[e.Title] = e.ID
	}
	// A is stored last but updated most recently.
	env.mustRun("edit", ids["A"], "--content", "touched")

	var entries []memory.Entry
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("list", "--tag", "t", "--json")), &entries))
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.Title
	}
	require.Equal(t, []string{"A", "C", "B"}, got)
}

func TestCLI_TagWithComma(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("add", "--title", "place", "--tag", "Paris, France", "--tag", "travel")

	entries := env.list()
	require.Len(t, entries, 1)
	require.Equal(t, []string{"Paris, France", "travel"}, entries[0].Tags)

	env.mustRun("edit", entries[0].ID, "--tag", "a,b")
	require.Equal(t, []string{"a,b"}, env.list()[0].Tags)
}

func TestCLI_StorageInfoAndClear(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("add", "--title", "n")

	out := env.mustRun("storage", "info")
	require.Contains(t, out, "Driver: file")
	require.Contains(t, out, config.DefaultKeyPrefix+"memories")

	_, err := env.run("storage", "clear")
	require.Equal(t, werrors.CodeInvalidInput, werrors.AsCode(err))

	env.mustRun("storage", "clear", "--yes")
	require.Empty(t, env.list())
}

func TestCLI_Stats(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("add", "--title", "a", "--tag", "x")
	env.mustRun("add", "--title", "b", "--tag", "x", "--tag", "y")

	var st Stats
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("stats", "--json")), &st))
	require.Equal(t, 2, st.Entries)
	require.Equal(t, 2, st.DerivedTags)
	require.Equal(t, 2, st.TagCounts["x"])
	require.Positive(t, st.StorageBytes)
}

func TestCLI_InitAndConfig(t *testing.T) {
	env := newCLIEnv(t)
	project := filepath.Join(env.dir, "proj")

	out := env.mustRun("init", project)
	require.Contains(t, out, "Initialized warehouse")
	require.FileExists(t, filepath.Join(project, config.FileName))
	require.DirExists(t, filepath.Join(project, ".warehouse"))

	gitignore, err := os.ReadFile(filepath.Join(project, ".gitignore"))
	require.NoError(t, err)
	require.Contains(t, string(gitignore), ".warehouse/")

	cfg, err := config.Load(project)
	require.NoError(t, err)
	require.Equal(t, "file", cfg.Storage.Driver)

	_, err = env.run("init", project)
	require.Error(t, err, "second init without --force")
	env.mustRun("init", project, "--force")

	out = env.mustRun("config", "validate")
	require.Contains(t, out, "OK")

	out = env.mustRun("config", "show")
	require.Contains(t, out, "driver: file")
}

func TestCLI_ConfigSet(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("config", "set", "memory.default_title", "Scratch")
	require.Contains(t, out, "Set memory.default_title = Scratch")

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("config", "show", "--json")), &cfg))
	require.Equal(t, "Scratch", cfg.Memory.DefaultTitle)

	env.mustRun("add", "--content", "no title given")
	require.Equal(t, "Scratch", env.list()[0].Title)

	_, err := env.run("config", "set", "storage.driver", "redis")
	require.Error(t, err)
	require.Equal(t, werrors.CodeConfigInvalid, werrors.AsCode(err))
}

func TestCLI_VersionAndCompletion(t *testing.T) {
	env := newCLIEnv(t)
	require.Contains(t, env.mustRun("version"), "warehouse dev")
	require.Contains(t, env.mustRun("completion", "bash"), "warehouse")
}

func TestCLI_Doctor(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun("doctor")
	require.Contains(t, out, "Storage:    file")
	require.Contains(t, out, "All checks passed!")
}

func TestPrintError_Suggestion(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, werrors.EntryNotFound("abc"))
	require.Contains(t, buf.String(), "ENTRY_NOT_FOUND")
	require.Contains(t, buf.String(), "warehouse list")
}
