package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iksnae/persona-sft/internal/dataset"
)

var (
	splitTrainOut     string
	splitEvalOut      string
	splitEvalFraction float64
	splitSeed         int64
)

var splitCmd = &cobra.Command{
	Use:   "split <unified.jsonl>",
	Short: "Split a unified dataset into train and eval sets",
	Long: `Deterministically shuffle a unified dataset with the given seed and
carve the trailing fraction into an eval set. The same seed and fraction
always produce the same partition. Both outputs are overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := dataset.Split(args[0], splitTrainOut, splitEvalOut, splitEvalFraction, splitSeed)
		if err != nil {
			return err
		}
		fmt.Printf("Split %d rows into %d train and %d eval\n", res.Total, res.Train, res.Eval)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)

	splitCmd.Flags().StringVar(&splitTrainOut, "train-out",
		filepath.Join(defaultDatasetDir, "train.jsonl"), "Output file for the training set")
	splitCmd.Flags().StringVar(&splitEvalOut, "eval-out",
		filepath.Join(defaultDatasetDir, "eval.jsonl"), "Output file for the evaluation set")
	splitCmd.Flags().Float64Var(&splitEvalFraction, "eval-fraction", 0.05,
		"Fraction of rows for the evaluation set")
	splitCmd.Flags().Int64Var(&splitSeed, "seed", 42,
		"Seed for the deterministic shuffle")
}
