package metrics

import (
	"github.com/pkg/errors"

	"github.com/rawblock/splitscore/pkg/models"
)

// Evaluation summarises a batch of predictions against known categories.
type Evaluation struct {
	Instances int `json:"instances"`
	Correct   int `json:"correct"`
	// Accuracy is the fraction of predictions equal to the truth.
	Accuracy float64 `json:"accuracy"`
	// MeanLoss is the average loss(true, predicted); nil without a loss matrix.
	MeanLoss *float64 `json:"meanLoss,omitempty"`
	// Confusion is indexed [true][predicted], unknown at 0.
	Confusion [][]int `json:"confusion"`
	ARI       float64 `json:"ari"`
	VI        float64 `json:"vi"`
}

// Evaluate compares predicted with truth over categories 0..numCategories.
// Instances whose true category is unknown are skipped for loss but still
// counted in the confusion table.
func Evaluate(predicted, truth []int, numCategories int, loss *models.LossMatrix) (Evaluation, error) {
	if len(predicted) != len(truth) {
		return Evaluation{}, errors.Errorf("got %d predictions for %d labels", len(predicted), len(truth))
	}
	if numCategories < 1 {
		return Evaluation{}, errors.Errorf("need at least one category, got %d", numCategories)
	}
	if loss != nil && loss.NumCategories() != numCategories {
		return Evaluation{}, errors.Errorf("loss matrix covers %d categories, want %d", loss.NumCategories(), numCategories)
	}

	ev := Evaluation{
		Instances: len(truth),
		Confusion: make([][]int, numCategories+1),
	}
	for i := range ev.Confusion {
		ev.Confusion[i] = make([]int, numCategories+1)
	}

	var lossSum float64
	lossCount := 0
	for k := range truth {
		t, p := truth[k], predicted[k]
		if t < 0 || t > numCategories || p < 0 || p > numCategories {
			return Evaluation{}, errors.Errorf("instance %d: category out of range (true %d, predicted %d)", k, t, p)
		}
		ev.Confusion[t][p]++
		if t == p {
			ev.Correct++
		}
		if loss != nil && t != models.UnknownIndex && p != models.UnknownIndex {
			lossSum += loss.At(t, p)
			lossCount++
		}
	}

	if ev.Instances > 0 {
		ev.Accuracy = float64(ev.Correct) / float64(ev.Instances)
	}
	if loss != nil && lossCount > 0 {
		mean := lossSum / float64(lossCount)
		ev.MeanLoss = &mean
	}
	ev.ARI = AdjustedRandIndex(predicted, truth)
	ev.VI = VariationOfInformation(predicted, truth)
	return ev, nil
}
