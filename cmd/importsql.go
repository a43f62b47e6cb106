package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iksnae/persona-sft/internal/sqlthread"
)

var (
	sqlOut              string
	sqlNick             string
	sqlMaxContext       int
	sqlStripSelfContext bool
	sqlRole             string
)

var importSQLCmd = &cobra.Command{
	Use:   "import-sql <path>",
	Short: "Reconstruct conversation threads from a forum database",
	Long: `Reconstruct reply threads from a relational database (.db/.sqlite
file, or a .sql dump replayed into memory) and emit the turns authored by
--nick as assistant responses with their ancestor posts as context.

The table and column names are not hard-coded: a YAML sidecar file next to
the database (same base name, .yaml extension) must declare them:

  schema_mapping:
    table_name: posts
    column_names:
      id: post_id
      parent_id: reply_to
      root_id: thread_id
      author_nick: author
      created_at: posted_at
      content_title: subject
      content_body: body`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := sqlthread.Options{
			Out:              sqlOut,
			AuthorNick:       sqlNick,
			MaxContext:       sqlMaxContext,
			StripSelfContext: sqlStripSelfContext,
			AssistantRole:    sqlRole,
		}
		stats, err := sqlthread.Process(args[0], opts)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d examples from %d rows to %s\n", stats.Written, stats.Rows, sqlOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importSQLCmd)

	importSQLCmd.Flags().StringVar(&sqlOut, "out",
		filepath.Join(defaultDatasetDir, "sql_threads.jsonl"), "Output JSONL file path")
	importSQLCmd.Flags().StringVar(&sqlNick, "nick", "",
		"Your author nickname in the database (required)")
	importSQLCmd.Flags().IntVar(&sqlMaxContext, "context", 8,
		"Max prior turns to include as context")
	importSQLCmd.Flags().BoolVar(&sqlStripSelfContext, "strip-self-context", false,
		"Drop your own earlier replies from context")
	importSQLCmd.Flags().StringVar(&sqlRole, "role-assistant", "model",
		"Role label for your own turns ('model' or 'assistant')")
	importSQLCmd.MarkFlagRequired("nick")
}
