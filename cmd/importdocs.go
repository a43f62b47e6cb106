package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iksnae/persona-sft/internal/docs"
)

var (
	docsOut          string
	docsStatePath    string
	docsMinChars     int
	docsMaxChars     int
	docsLang         string
	docsPruneMissing bool
	docsRole         string
)

var importDocsCmd = &cobra.Command{
	Use:   "import-docs <path>",
	Short: "Incrementally chunk a folder of documents",
	Long: `Ingest a directory of documents (.txt, .md, .html, .docx, .pdf) into
paragraph-level style examples.

Runs are incremental: files whose modification time and size are unchanged
are skipped without re-reading, and paragraphs already emitted in a prior
run are never appended again. Files in formats with no available reader are
reported and skipped; the rest of the run continues.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := docs.Options{
			Out:           docsOut,
			StatePath:     docsStatePath,
			MinChars:      docsMinChars,
			MaxChars:      docsMaxChars,
			LangTag:       docsLang,
			PruneMissing:  docsPruneMissing,
			AssistantRole: docsRole,
		}
		stats, err := docs.Process(args[0], opts)
		if err != nil {
			return err
		}
		fmt.Printf("Scanned %d files (%d unchanged, %d unreadable), appended %d new chunks to %s\n",
			stats.Scanned, stats.Skipped, stats.Failed, stats.Appended, docsOut)
		if stats.Pruned > 0 {
			fmt.Printf("Pruned %d missing files from state\n", stats.Pruned)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importDocsCmd)

	importDocsCmd.Flags().StringVar(&docsOut, "out",
		filepath.Join(defaultDatasetDir, "docs.jsonl"), "Output JSONL file to append to")
	importDocsCmd.Flags().StringVar(&docsStatePath, "state",
		filepath.Join(defaultStateDir, "docs_sync.json"), "Path to the state file")
	importDocsCmd.Flags().IntVar(&docsMinChars, "min-chars", 80,
		"Minimum character length for a paragraph chunk")
	importDocsCmd.Flags().IntVar(&docsMaxChars, "max-chars", 1200,
		"Maximum character length for a paragraph chunk")
	importDocsCmd.Flags().StringVar(&docsLang, "lang", "",
		"Language tag added to each record (e.g. 'en')")
	importDocsCmd.Flags().BoolVar(&docsPruneMissing, "prune-missing", false,
		"Drop state entries for files no longer on disk")
	importDocsCmd.Flags().StringVar(&docsRole, "role-assistant", "model",
		"Role label for your own turns ('model' or 'assistant')")
}
