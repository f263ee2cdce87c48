package catdist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/rawblock/splitscore/internal/contract"
	"github.com/rawblock/splitscore/pkg/models"
)

const tol = 1e-9

func requireViolation(t *testing.T, fn func()) {
	t.Helper()
	err := contract.Catch(fn)
	require.Error(t, err)
	assert.True(t, contract.IsViolation(err), "expected contract violation, got %v", err)
}

func TestFromCountsNoCorrection(t *testing.T) {
	d := NewFromCounts(models.CountDist{0, 0, 3, 1}, Options{})
	assert.InDeltaSlice(t, []float64{0, 0, 0.75, 0.25}, d.Scores(), tol)

	cat, probs := d.BestCategory(false)
	assert.Equal(t, 2, cat)
	assert.InDelta(t, 0.75, probs[cat], tol)
}

func TestFromCountsAllZeroIsEven(t *testing.T) {
	for _, c := range []Correction{NoCorrection, Laplace, EvidenceProjection} {
		t.Run(c.String(), func(t *testing.T) {
			d := NewFromCounts(models.CountDist{0, 0, 0}, Options{Correction: c})
			assert.InDeltaSlice(t, []float64{0, 0.5, 0.5}, d.Scores(), tol)
		})
	}
}

func TestFromCountsLaplace(t *testing.T) {
	d := NewFromCounts(models.CountDist{0, 0, 3, 1}, Options{Correction: Laplace, LaplaceK: 1})
	assert.InDeltaSlice(t, []float64{0, 1.0 / 7, 4.0 / 7, 2.0 / 7}, d.Scores(), tol)

	// k defaults to 1/total.
	d = NewFromCounts(models.CountDist{0, 0, 3, 1}, Options{Correction: Laplace})
	denom := 4 + 3*0.25
	assert.InDeltaSlice(t, []float64{0, 0.25 / denom, 3.25 / denom, 1.25 / denom}, d.Scores(), tol)

	// Unknown counts are kept but not smoothed.
	d = NewFromCounts(models.CountDist{2, 1, 1}, Options{Correction: Laplace, LaplaceK: 1})
	assert.InDeltaSlice(t, []float64{2.0 / 6, 2.0 / 6, 2.0 / 6}, d.Scores(), tol)
}

func TestFromCountsEvidenceProjection(t *testing.T) {
	d := NewFromCounts(models.CountDist{0, 0, 3, 1}, Options{Correction: EvidenceProjection, EvidenceFactor: 1})
	p := d.Scores()
	assert.InDelta(t, 0, p[Unknown], tol)
	assert.InDelta(t, 1, floats.Sum(p), SumTolerance)
	assert.Greater(t, p[2], p[3])
	assert.Greater(t, p[3], p[1])
	// An unseen category keeps a floor of 2^-log₂(1+total) = 1/5 before
	// normalisation, so it is never ruled out.
	assert.Greater(t, p[1], 0.1)
	// Confidence is pulled toward uniform relative to the raw frequencies.
	assert.Less(t, p[2], 0.75)

	// A single observed category stays certain.
	d = NewFromCounts(models.CountDist{0, 5}, Options{Correction: EvidenceProjection})
	assert.InDeltaSlice(t, []float64{0, 1}, d.Scores(), tol)
}

func TestEvidenceProjectionUnknownTakesRemainder(t *testing.T) {
	d := NewFromCounts(models.CountDist{2, 1, 1}, Options{Correction: EvidenceProjection, EvidenceFactor: 1})
	p := d.Scores()
	assert.Greater(t, p[Unknown], SumTolerance)
	assert.InDelta(t, p[1], p[2], tol)
	assert.InDelta(t, 1, floats.Sum(p), SumTolerance)
}

func TestEvidenceProjectionMonotonic(t *testing.T) {
	bases := []models.CountDist{
		{0, 1, 1},
		{0, 0, 3, 1},
		{0, 1, 100},
		{0, 1, 1000},
		{0, 5, 2, 7},
		{0, 10, 10, 10},
	}
	for _, factor := range []float64{0.5, 1, 4} {
		opts := Options{Correction: EvidenceProjection, EvidenceFactor: factor}
		for _, base := range bases {
			before := NewFromCounts(base, opts)
			for cat := 1; cat < len(base); cat++ {
				bumped := base.Clone()
				bumped[cat]++
				after := NewFromCounts(bumped, opts)
				assert.GreaterOrEqual(t, after.Probability(cat), before.Probability(cat)-tol,
					"factor %g counts %v category %d", factor, base, cat)
			}
		}
	}
}

func TestProbabilitiesSumToOne(t *testing.T) {
	counts := []models.CountDist{
		{0, 0, 3, 1},
		{1, 2, 3, 4},
		{0, 0.25, 0.5},
		{3, 0, 0},
		{0, 1e-3, 1e3},
	}
	modes := []Options{
		{Correction: NoCorrection},
		{Correction: Laplace},
		{Correction: Laplace, LaplaceK: 2},
		{Correction: EvidenceProjection},
		{Correction: EvidenceProjection, EvidenceFactor: 0.1},
	}
	for _, c := range counts {
		for _, o := range modes {
			d := NewFromCounts(c, o)
			assert.InDelta(t, 1, floats.Sum(d.Scores()), SumTolerance, "counts %v mode %v", c, o)
		}
	}
}

func TestFromWeights(t *testing.T) {
	d := NewFromWeights(models.CountDist{9, 1, 3}, 0.2)
	assert.InDeltaSlice(t, []float64{0.2, 0.2, 0.6}, d.Scores(), tol)

	d = NewFromWeights(models.CountDist{0, 0, 0}, 0.5)
	assert.InDeltaSlice(t, []float64{0.5, 0.25, 0.25}, d.Scores(), tol)

	requireViolation(t, func() { NewFromWeights(models.CountDist{0, 1, 1}, 1.5) })
	requireViolation(t, func() { NewFromWeights(models.CountDist{0, -1, 1}, 0) })
}

func TestCertain(t *testing.T) {
	d := NewCertain(3, 2)
	assert.Equal(t, []float64{0, 0, 1, 0}, d.Scores())
	assert.Equal(t, []int{3, 1, 0, 2}, d.TiebreakingOrder())

	cat, _ := d.BestCategory(false)
	assert.Equal(t, 2, cat)
}

func TestConstructionContractViolations(t *testing.T) {
	requireViolation(t, func() { NewFromCounts(models.CountDist{0}, Options{}) })
	requireViolation(t, func() { NewFromCounts(models.CountDist{0, -2, 1}, Options{}) })
	requireViolation(t, func() { NewFromCounts(models.CountDist{0, 2, 1}, Options{Correction: Laplace, LaplaceK: -1}) })
	requireViolation(t, func() {
		NewFromCounts(models.CountDist{0, 2, 1}, Options{Correction: EvidenceProjection, EvidenceFactor: -1})
	})
	requireViolation(t, func() { NewCertain(2, 3) })

	d := NewFromCounts(models.CountDist{0, 2, 1}, Options{})
	requireViolation(t, func() { d.SetFrequencyScores(models.CountDist{0, 1}, Options{}) })
}

func TestParseCorrection(t *testing.T) {
	for _, c := range []Correction{NoCorrection, Laplace, EvidenceProjection} {
		got, err := ParseCorrection(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	got, err := ParseCorrection("")
	require.NoError(t, err)
	assert.Equal(t, NoCorrection, got)

	_, err = ParseCorrection("m-estimate")
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	d := NewFromCounts(models.CountDist{0, 1, 3}, Options{})
	assert.Equal(t, "?: 0.0000, cat1: 0.2500, cat2: 0.7500", d.String())

	d.SetCategoryNames([]string{"low", "high"})
	assert.Equal(t, "?: 0.0000, low: 0.2500, high: 0.7500", d.String())
	requireViolation(t, func() { d.SetCategoryNames([]string{"only"}) })
}
