package metrics

import (
	"math"

	"github.com/rawblock/splitscore/internal/entropy"
	"github.com/rawblock/splitscore/pkg/models"
)

// AdjustedRandIndex compares the partition induced by predicted categories
// with the one induced by true categories.
//
// ARI = (Index - Expected) / (Max - Expected), computed from the pair counts
// of the contingency table. 1 is perfect agreement, 0 is what random
// labelling achieves, negative is worse than random.
func AdjustedRandIndex(predicted, truth []int) float64 {
	n := len(predicted)
	if n != len(truth) || n < 2 {
		return 0.0
	}

	table := contingency(predicted, truth)
	rows, cols, _ := table.Marginals()

	sumCells := 0.0
	for _, row := range table {
		for _, v := range row {
			sumCells += comb2(v)
		}
	}
	sumRows := 0.0
	for _, a := range rows {
		sumRows += comb2(a)
	}
	sumCols := 0.0
	for _, b := range cols {
		sumCols += comb2(b)
	}

	nC2 := comb2(float64(n))
	expected := sumRows * sumCols / nC2
	maxIndex := 0.5 * (sumRows + sumCols)

	denominator := maxIndex - expected
	if math.Abs(denominator) < 1e-12 {
		return 1.0 // both partitions are trivial
	}
	return (sumCells - expected) / denominator
}

// VariationOfInformation is H(truth|predicted) + H(predicted|truth), in bits.
// 0 means the partitions are identical up to relabelling.
func VariationOfInformation(predicted, truth []int) float64 {
	n := len(predicted)
	if n != len(truth) || n < 2 {
		return 0.0
	}

	// Rows follow truth, columns follow predictions.
	table := contingency(predicted, truth)
	_, predDist, total := table.Marginals()
	truthGivenPred := entropy.ConditionalEntropy(table, predDist, total)

	flipped := transpose(table)
	_, truthDist, _ := flipped.Marginals()
	predGivenTruth := entropy.ConditionalEntropy(flipped, truthDist, total)

	return truthGivenPred + predGivenTruth
}

// contingency builds a [truth][predicted] count table over the distinct
// values seen, in order of first appearance.
func contingency(predicted, truth []int) models.SplitMatrix {
	predIdx := indexLabels(predicted)
	truthIdx := indexLabels(truth)

	table := models.NewSplitMatrix(len(truthIdx), len(predIdx))
	for k := range predicted {
		table[truthIdx[truth[k]]][predIdx[predicted[k]]]++
	}
	return table
}

func transpose(m models.SplitMatrix) models.SplitMatrix {
	out := models.NewSplitMatrix(m.NumColumns(), m.NumLabels())
	for y, row := range m {
		for x, v := range row {
			out[x][y] = v
		}
	}
	return out
}

// comb2 computes C(n, 2) = n*(n-1)/2
func comb2(n float64) float64 {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2.0
}

// indexLabels maps each distinct label to a dense index in order of first
// appearance.
func indexLabels(labels []int) map[int]int {
	idx := make(map[int]int)
	for _, l := range labels {
		if _, ok := idx[l]; !ok {
			idx[l] = len(idx)
		}
	}
	return idx
}
