package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iksnae/persona-sft/internal/dataset"
)

var (
	unifyInputs      []string
	unifyOut         string
	unifyShuffle     bool
	unifySeed        int64
	unifyKeep        string
	unifyDropGeneric bool
)

var unifyCmd = &cobra.Command{
	Use:   "unify",
	Short: "Merge per-source JSONL files into one normalized dataset",
	Long: `Merge the per-source JSONL files into a single normalized,
deduplicated dataset and print a data quality report.

Roles are folded onto user/assistant/system, turn alternation is repaired,
repost leftovers are rejected, and records whose final assistant content is
a duplicate (after case, entity and whitespace normalization) are dropped,
first occurrence winning.

When no --in files are given, every *.jsonl in the dataset directory is
unified, excluding the output itself and any *_eval or train files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs := unifyInputs
		if len(inputs) == 0 {
			var err error
			inputs, err = defaultUnifyInputs(unifyOut)
			if err != nil {
				return err
			}
		}
		if len(inputs) == 0 {
			return fmt.Errorf("no input files found to unify")
		}
		fmt.Println("Unifying:")
		for _, p := range inputs {
			fmt.Printf("  - %s\n", p)
		}

		var keep []string
		for _, k := range strings.Split(unifyKeep, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keep = append(keep, k)
			}
		}

		res, err := dataset.Unify(inputs, unifyOut, dataset.UnifyOptions{
			Shuffle:            unifyShuffle,
			Seed:               unifySeed,
			KeepKeys:           keep,
			DropGenericPrompts: unifyDropGeneric,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Unified %d of %d rows into %s\n", res.Kept, res.TotalRead, unifyOut)
		if report := dataset.RenderReport(res.Metrics); report != "" {
			fmt.Println()
			fmt.Println(report)
		}
		return nil
	},
}

// defaultUnifyInputs globs the dataset directory, excluding the unify output
// itself and files that belong to a previous split.
func defaultUnifyInputs(out string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(defaultDatasetDir, "*.jsonl"))
	if err != nil {
		return nil, err
	}
	outAbs, _ := filepath.Abs(out)
	var inputs []string
	for _, m := range matches {
		mAbs, _ := filepath.Abs(m)
		if mAbs == outAbs {
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(m), ".jsonl")
		if strings.Contains(stem, "_eval") || strings.Contains(stem, "train") {
			continue
		}
		inputs = append(inputs, m)
	}
	return inputs, nil
}

func init() {
	rootCmd.AddCommand(unifyCmd)

	unifyCmd.Flags().StringArrayVar(&unifyInputs, "in", nil,
		"Input JSONL file (repeatable; defaults to the dataset directory)")
	unifyCmd.Flags().StringVar(&unifyOut, "out",
		filepath.Join(defaultDatasetDir, "unified.jsonl"), "Unified output JSONL file path")
	unifyCmd.Flags().BoolVar(&unifyShuffle, "shuffle", true,
		"Shuffle the unified dataset")
	unifyCmd.Flags().Int64Var(&unifySeed, "seed", 42,
		"Seed for the deterministic shuffle")
	unifyCmd.Flags().StringVar(&unifyKeep, "keep", "created_at",
		"Comma-separated metadata keys to keep in the output")
	unifyCmd.Flags().BoolVar(&unifyDropGeneric, "drop-generic-prompts", false,
		"Drop records whose final user turn is a generic placeholder")
}
