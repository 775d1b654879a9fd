package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"repoedit/internal/config"
)

var (
	configInitPath  string
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage repoedit configuration",
	Long:  "Create and inspect configuration stored in .repoedit/",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the default configuration. The format follows the extension:
.toml (default), .yaml/.yml, or .json.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  "Display the configuration after file, environment and defaults are merged. Secrets are masked.",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	Run:   runConfigEnv,
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", filepath.Join(config.Dir, "config.toml"), "Where to write the file")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configInitPath); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configInitPath)
	}
	if err := config.DefaultConfig().Save(configInitPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configInitPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
	return nil
}

// envVars documents the bare variable names accepted next to REPOEDIT_*.
var envVars = []struct {
	name string
	key  string
}{
	{"PORT", "server.port"},
	{"GITHUB_ACCESS_TOKEN", "github.token"},
	{"GITHUB_TOKEN", "github.token"},
	{"GITHUB_REPO_OWNER", "github.owner"},
	{"GITHUB_REPO_NAME", "github.repo"},
	{"DEEPSEEK_API_KEY", "ai.apiKey"},
	{"GEMINI_API_KEY", "ai.geminiApiKey"},
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VARIABLE\tCONFIG KEY")
	for _, v := range envVars {
		fmt.Fprintf(w, "%s\t%s\n", v.name, v.key)
	}
	fmt.Fprintln(w, "REPOEDIT_<SECTION>_<KEY>\tany key, e.g. REPOEDIT_AI_PROVIDER=gemini")
	_ = w.Flush()
}
