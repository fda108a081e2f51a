package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/warehouse/internal/config"
	werrors "github.com/cadre-oss/warehouse/internal/errors"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a warehouse in a directory",
	Long: `Write warehouse.yaml and create the .warehouse data directory.

The storage driver defaults to sqlite; pass --driver to choose another
(memory, file, sqlite, sqlite-pure).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing warehouse.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	driver := driverFlag
	if driver == "" {
		driver = config.DefaultDriver
	}
	cfg := &config.Config{Storage: config.StorageConfig{Driver: driver, Path: pathFlag}}
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil && !initForce {
		return werrors.New(werrors.CodeInvalidInput, cfgPath+" already exists").
			WithSuggestion("Re-run with --force to overwrite it")
	}

	if err := os.MkdirAll(filepath.Join(dir, ".warehouse"), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, []byte(configTemplate(filepath.Base(absDir(dir)), cfg.Storage)), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := createGitignore(dir); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized warehouse in %s (driver: %s)\n", dir, driver)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. warehouse add --title \"First note\" --content \"...\"")
	fmt.Fprintln(out, "  2. warehouse list")
	return nil
}

func absDir(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

func configTemplate(name string, storage config.StorageConfig) string {
	path := storage.Path
	if storage.Driver == "memory" {
		path = `""`
	}
	return fmt.Sprintf(`# warehouse.yaml - memory warehouse configuration
name: %s
version: "1.0"

# Key-value storage behind the store
storage:
  driver: %s        # memory | file | sqlite | sqlite-pure
  path: %s
  key_prefix: %s
  # limit_bytes: 5242880

memory:
  default_title: %s

# Logging
logging:
  level: info
  format: text  # text | json

# metrics:
#   path: .warehouse/metrics.jsonl

# Change hooks. events are globs over: entry.added, entry.updated,
# entry.deleted, tag.added, tag.removed, store.loaded, store.persist_failed
# e.g. events: ["entry.*"]. shell and webhook hooks accept timeout: 5s
hooks:
  enabled: false
  hooks: []
`, name, storage.Driver, path, config.DefaultKeyPrefix, config.DefaultTitle)
}

// createGitignore adds the data directory to .gitignore, keeping any
// existing content.
func createGitignore(dir string) error {
	path := filepath.Join(dir, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read .gitignore: %w", err)
	}
	if strings.Contains(string(existing), ".warehouse/") {
		return nil
	}

	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += "# warehouse\n.warehouse/\n"
	return os.WriteFile(path, []byte(content), 0644)
}
