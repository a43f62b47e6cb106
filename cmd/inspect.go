package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iksnae/persona-sft/internal/dataset"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.jsonl>",
	Short: "Print the quality report for a dataset file",
	Long: `Read a single dataset file and print the same data quality report the
unify stage produces, without normalizing or rewriting anything. Useful for
checking what an adapter produced before unification.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := dataset.ReadJSONL(args[0:1])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("no readable records in %s", args[0])
		}
		fmt.Printf("%d records in %s\n\n", len(records), args[0])
		fmt.Println(dataset.RenderReport(dataset.Analyze(records)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
