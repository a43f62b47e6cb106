package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// SplitResult reports the partition sizes of a split run.
type SplitResult struct {
	Total int
	Train int
	Eval  int
}

// Split deterministically shuffles the records of input with the given seed
// and carves the trailing evalFraction into evalOut; the remainder goes to
// trainOut. A non-trivial input always yields at least one eval row, and the
// train set always retains at least one row. Both outputs are overwritten.
func Split(input, trainOut, evalOut string, evalFraction float64, seed int64) (*SplitResult, error) {
	rows, err := ReadJSONL([]string{input})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows found in %s to split", input)
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(rows), func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
	})

	nEval := int(math.Round(float64(len(rows)) * evalFraction))
	if nEval < 1 {
		nEval = 1
	}
	if nEval > len(rows)-1 {
		nEval = len(rows) - 1
	}
	if len(rows) == 1 {
		nEval = 0
	}

	train := rows[:len(rows)-nEval]
	eval := rows[len(rows)-nEval:]

	if err := WriteJSONL(trainOut, train); err != nil {
		return nil, err
	}
	if err := WriteJSONL(evalOut, eval); err != nil {
		return nil, err
	}
	return &SplitResult{Total: len(rows), Train: len(train), Eval: len(eval)}, nil
}
