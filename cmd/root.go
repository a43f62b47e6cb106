package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iksnae/persona-sft/internal"
)

var (
	verbose bool
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"
)

// Default locations for adapter outputs and incremental state.
const (
	defaultDatasetDir = "dataset"
	defaultStateDir   = "state"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "persona-sft",
	Short: "Build personalized SFT datasets from personal data archives",
	Long: `A toolkit for turning personal data archives into a unified
supervised-fine-tuning dataset for a personalized language model.

Import adapters convert each source into per-source JSONL files:

  import-archive   one-shot conversion of a social-media export
  sync-api         incremental sync from the live social API
  import-sql       thread reconstruction from a forum database
  import-docs      incremental chunking of a document folder

The unify stage merges, normalizes and deduplicates those files into one
dataset, and split carves out an eval set for a downstream trainer:

  persona-sft unify --in dataset/archive.jsonl --in dataset/docs.jsonl
  persona-sft split dataset/unified.jsonl`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// envOr returns the environment value for key, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
