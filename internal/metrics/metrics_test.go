package metrics

import (
	"math"
	"testing"

	"github.com/rawblock/splitscore/pkg/models"
)

func TestAdjustedRandIndex_PerfectAgreement(t *testing.T) {
	predicted := []int{1, 1, 2, 2, 3, 3}
	truth := []int{1, 1, 2, 2, 3, 3}

	ari := AdjustedRandIndex(predicted, truth)

	if math.Abs(ari-1.0) > 0.01 {
		t.Errorf("Expected ARI=1.0 for perfect agreement. Got: %f", ari)
	}
}

func TestAdjustedRandIndex_Relabelled(t *testing.T) {
	// Same partition under different category numbers is still perfect.
	predicted := []int{2, 2, 1, 1}
	truth := []int{1, 1, 2, 2}

	if ari := AdjustedRandIndex(predicted, truth); math.Abs(ari-1.0) > 1e-9 {
		t.Errorf("Expected ARI=1.0 for relabelled partition. Got: %f", ari)
	}
}

func TestAdjustedRandIndex_Dissimilar(t *testing.T) {
	predicted := []int{1, 1, 1, 2, 2, 2}
	truth := []int{1, 2, 1, 2, 1, 2}

	ari := AdjustedRandIndex(predicted, truth)

	if ari > 0.5 {
		t.Errorf("Expected ARI near 0 for dissimilar partitions. Got: %f", ari)
	}
}

func TestVariationOfInformation(t *testing.T) {
	tests := []struct {
		name      string
		predicted []int
		truth     []int
		expected  float64
	}{
		{"Identical", []int{1, 1, 2, 2, 3, 3}, []int{1, 1, 2, 2, 3, 3}, 0},
		{"Relabelled", []int{3, 3, 1, 1}, []int{1, 1, 2, 2}, 0},
		// Each side leaves exactly one bit about the other undetermined.
		{"Independent Halves", []int{1, 1, 2, 2}, []int{1, 2, 1, 2}, 2},
		{"Length Mismatch", []int{1, 2}, []int{1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vi := VariationOfInformation(tt.predicted, tt.truth)
			if math.Abs(vi-tt.expected) > 1e-9 {
				t.Errorf("VariationOfInformation() = %v, want %v", vi, tt.expected)
			}
		})
	}
}

func TestEvaluate_AccuracyAndConfusion(t *testing.T) {
	predicted := []int{1, 2, 2, 1}
	truth := []int{1, 2, 1, 1}

	ev, err := Evaluate(predicted, truth, 2, nil)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if ev.Correct != 3 || math.Abs(ev.Accuracy-0.75) > 1e-9 {
		t.Errorf("Expected 3 correct (0.75). Got: %d (%f)", ev.Correct, ev.Accuracy)
	}
	if ev.Confusion[1][2] != 1 || ev.Confusion[1][1] != 2 || ev.Confusion[2][2] != 1 {
		t.Errorf("Unexpected confusion table: %v", ev.Confusion)
	}
	if ev.MeanLoss != nil {
		t.Errorf("Expected no mean loss without a loss matrix")
	}
}

func TestEvaluate_MeanLoss(t *testing.T) {
	loss := &models.LossMatrix{Loss: [][]float64{
		{0, 1},
		{4, 0},
	}}
	predicted := []int{1, 1, 2, 0}
	truth := []int{1, 2, 2, 2}

	ev, err := Evaluate(predicted, truth, 2, loss)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	// The unknown prediction carries no loss entry: (0 + 4 + 0) / 3.
	if ev.MeanLoss == nil || math.Abs(*ev.MeanLoss-4.0/3) > 1e-9 {
		t.Errorf("Expected mean loss 4/3. Got: %v", ev.MeanLoss)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	if _, err := Evaluate([]int{1}, []int{1, 2}, 2, nil); err == nil {
		t.Error("Expected error for length mismatch")
	}
	if _, err := Evaluate([]int{3}, []int{1}, 2, nil); err == nil {
		t.Error("Expected error for out-of-range category")
	}
	if _, err := Evaluate([]int{1}, []int{1}, 2, &models.LossMatrix{Loss: [][]float64{{0}}}); err == nil {
		t.Error("Expected error for loss matrix dimension mismatch")
	}
}
