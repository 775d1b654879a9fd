package main

import (
	"github.com/spf13/cobra"

	"repoedit/internal/version"
)

var (
	// configPath is the --config flag; empty searches .repoedit/
	configPath string
	verbosity  int
	quiet      bool
	formatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "repoedit",
	Short: "repoedit - AI-assisted line edits for GitHub repositories",
	Long: `repoedit applies line-based edits (insert, delete, write, delete_file) to
files in a GitHub repository, committing each file through the contents API.
Edits come from an AI assistant over HTTP or from a JSON/YAML edits file.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("repoedit version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default: .repoedit/config.{json,yaml,toml})")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", string(FormatHuman), "Output format (human, json)")
}
