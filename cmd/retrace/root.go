// Root command for the retrace CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/graphmorph/retrace/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
)

// Values loaded from config.yaml by PersistentPreRunE, so every
// subcommand can use them.
var (
	configDataDir    string
	configNamePrefix string
)

var rootCmd = &cobra.Command{
	Use:     "retrace",
	Short:   "Retrace replays recorded graph-program traces",
	Version: version,
	Long: `Retrace works with tracefiles recorded by graph-transformation
program runs. It can list the decoded steps of a trace, replay the trace
against a host graph in either direction, and index traces into a SQLite
database for SQL inspection.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		configDataDir = cfg.GetString(cfgKeyDataDir)
		configNamePrefix = cfg.GetString(cfgKeyNamePrefix)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.retrace-db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// resolveConfigDir returns the configuration directory:
// --config-dir flag > RETRACE_CONFIG_DIR env > platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// resolveDataDir returns the data directory:
// --data-dir flag > config.yaml data_dir > RETRACE_DATA_DIR env >
// default $(CWD)/.retrace-db.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}
