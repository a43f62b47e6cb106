package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iksnae/persona-sft/internal"
	"github.com/iksnae/persona-sft/internal/archive"
)

var (
	archiveOut            string
	archiveEvalFraction   float64
	archiveIncludeReplies bool
	archiveNoQuotes       bool
	archiveDialog         bool
	archiveContextDepth   int
	archiveRole           string
	archiveStylePrompt    string
)

var importArchiveCmd = &cobra.Command{
	Use:   "import-archive <path>",
	Short: "Convert a one-time social-media export",
	Long: `Convert an unzipped social-media export folder (or a single .js/.json
export file) into SFT examples.

Reposts are always dropped. Replies become multi-turn dialog examples when
--dialog is enabled and the parent posts exist in the same archive; every
other post becomes a single-turn style example.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := archive.Options{
			Out:            archiveOut,
			EvalFraction:   archiveEvalFraction,
			IncludeReplies: archiveIncludeReplies,
			ExcludeQuotes:  archiveNoQuotes,
			Dialog:         archiveDialog,
			ContextDepth:   archiveContextDepth,
			AssistantRole:  archiveRole,
			StylePrompt:    archiveStylePrompt,
		}
		stats, err := archive.Process(args[0], opts)
		if err != nil {
			return err
		}
		internal.LogInfo("Loaded %d items, kept %d after filtering (%d dialogs)",
			stats.Loaded, stats.Kept, stats.Dialogs)
		fmt.Printf("Wrote %d training examples to %s\n", stats.Train, archiveOut)
		if stats.Eval > 0 {
			fmt.Printf("Wrote %d evaluation examples alongside\n", stats.Eval)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importArchiveCmd)

	importArchiveCmd.Flags().StringVar(&archiveOut, "out",
		filepath.Join(defaultDatasetDir, "archive.jsonl"), "Output JSONL file path")
	importArchiveCmd.Flags().Float64Var(&archiveEvalFraction, "eval-fraction", 0,
		"Trailing fraction carved into a separate _eval file (0 disables)")
	importArchiveCmd.Flags().BoolVar(&archiveIncludeReplies, "include-replies", true,
		"Include replies")
	importArchiveCmd.Flags().BoolVar(&archiveNoQuotes, "no-quotes", false,
		"Exclude quote posts")
	importArchiveCmd.Flags().BoolVar(&archiveDialog, "dialog", true,
		"Build dialog examples from reply chains")
	importArchiveCmd.Flags().IntVar(&archiveContextDepth, "context", 1,
		"Max parent turns to include in a dialog example")
	importArchiveCmd.Flags().StringVar(&archiveRole, "role-assistant", "model",
		"Role label for your own turns ('model' or 'assistant')")
	importArchiveCmd.Flags().StringVar(&archiveStylePrompt, "style-prompt",
		internal.DefaultStylePrompt, "Prompt paired with standalone posts")
}
