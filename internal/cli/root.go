package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cadre-oss/warehouse/internal/config"
	werrors "github.com/cadre-oss/warehouse/internal/errors"
	"github.com/cadre-oss/warehouse/internal/telemetry"
	"github.com/cadre-oss/warehouse/pkg/warehouse"
)

var (
	cfgFile    string
	verbose    bool
	driverFlag string
	pathFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "warehouse",
	Short: "A local warehouse for notes and memories",
	Long: `warehouse - keep short notes ("memories") with titles, content and tags.

Entries are stored through a key-value backend (sqlite, sqlite-pure,
file or memory) configured in warehouse.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any error with its suggestion.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if s := werrors.Suggestion(err); s != "" {
		fmt.Fprintf(w, "  → %s\n", s)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./warehouse.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "storage driver override (memory, file, sqlite, sqlite-pure)")
	rootCmd.PersistentFlags().StringVar(&pathFlag, "path", "", "storage path override")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

// initConfig resets viper for this invocation and binds the override
// flags and WAREHOUSE_* environment variables.
func initConfig() {
	viper.Reset()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("warehouse")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WAREHOUSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("driver", flags.Lookup("driver"))
	_ = viper.BindPFlag("path", flags.Lookup("path"))
	_ = viper.BindEnv("log_level")

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// configPath returns the config file this invocation uses.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return config.FileName
}

// projectDir is the directory relative storage paths resolve against.
func projectDir() string {
	return filepath.Dir(configPath())
}

func overrides(cmd *cobra.Command) warehouse.Options {
	opts := warehouse.Options{
		ConfigFile: configPath(),
		Driver:     viper.GetString("driver"),
		Path:       viper.GetString("path"),
		LogLevel:   viper.GetString("log_level"),
		LogOutput:  cmd.ErrOrStderr(),
	}
	if verbose {
		opts.LogLevel = "debug"
	}
	return opts
}

// loadConfig loads the config file with flag and environment overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(configPath())
	if err != nil {
		return nil, err
	}
	if err := warehouse.ApplyOverrides(cfg, overrides(cmd)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withWarehouse opens the warehouse, runs fn under a fresh trace and
// flushes metrics labelled with the command name.
func withWarehouse(cmd *cobra.Command, fn func(ctx context.Context, w *warehouse.Warehouse) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = telemetry.ContextWithTrace(ctx, telemetry.NewTraceContext(cmd.CommandPath()))

	w, err := warehouse.OpenWithOptions(ctx, projectDir(), overrides(cmd))
	if err != nil {
		return err
	}
	defer w.Close()

	err = fn(ctx, w)
	w.Flush(cmd.Name())
	return err
}
