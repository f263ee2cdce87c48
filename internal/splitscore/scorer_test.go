package splitscore

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/splitscore/internal/contract"
	"github.com/rawblock/splitscore/internal/entropy"
	"github.com/rawblock/splitscore/pkg/models"
)

const tol = 1e-9

var (
	perfect = models.SplitMatrix{
		{0, 0, 0},
		{0, 2, 0},
		{0, 0, 2},
	}
	partial = models.SplitMatrix{
		{0, 0, 0},
		{0, 3, 1},
		{0, 1, 3},
	}
	h3to1 = -(0.75*math.Log2(0.75) + 0.25*math.Log2(0.25))
)

func requireViolation(t *testing.T, fn func()) {
	t.Helper()
	err := contract.Catch(fn)
	require.Error(t, err)
	assert.True(t, contract.IsViolation(err), "expected contract violation, got %v", err)
}

func TestScorerStatistics(t *testing.T) {
	s := New(MutualInfo)
	s.SetDistribution(partial)

	assert.InDelta(t, 8.0, s.TotalWeight(), tol)
	assert.Equal(t, models.CountDist{0, 4, 4}, s.LabelDist())
	assert.Equal(t, models.CountDist{0, 4, 4}, s.SplitDist())
	assert.Equal(t, 2, s.NumSplits())

	h, ok := s.Entropy()
	require.True(t, ok)
	assert.InDelta(t, 1.0, h, tol)

	cond, ok := s.CondEntropy()
	require.True(t, ok)
	assert.InDelta(t, h3to1, cond, tol)

	mi, ok := s.MutualInfo(false)
	require.True(t, ok)
	assert.InDelta(t, 1-h3to1, mi, tol)

	se, ok := s.SplitEntropy()
	require.True(t, ok)
	assert.InDelta(t, 1.0, se, tol)

	gr, ok := s.GainRatio()
	require.True(t, ok)
	assert.InDelta(t, mi/se, gr, tol)

	score, ok := s.Score()
	require.True(t, ok)
	assert.InDelta(t, mi, score, tol)
}

func TestScorerCriteria(t *testing.T) {
	fourWay := models.NewSplitMatrix(5, 5)
	for i := 1; i <= 4; i++ {
		fourWay[i][i] = 1
	}

	tests := []struct {
		name      string
		criterion Criterion
		matrix    models.SplitMatrix
		want      float64
	}{
		{"Mutual Info Perfect", MutualInfo, perfect, 1},
		{"Mutual Info Four Way", MutualInfo, fourWay, 2},
		{"Normalized Four Way", NormalizedMutualInfo, fourWay, 1},
		{"Normalized Two Way Skips Division", NormalizedMutualInfo, partial, 1 - h3to1},
		{"Gain Ratio Four Way", GainRatio, fourWay, 1},
		{"Gain Ratio Partial", GainRatio, partial, 1 - h3to1},
		{"Mutual Info Ratio Partial", MutualInfoRatio, partial, 1 - h3to1},
		{"Mutual Info Ratio Perfect", MutualInfoRatio, perfect, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.criterion)
			s.SetDistribution(tt.matrix)
			got, ok := s.Score()
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, tol)
		})
	}
}

func TestScorerCacheInvalidatedOnNewDistribution(t *testing.T) {
	s := New(MutualInfo)
	s.SetDistribution(partial)
	gen := s.Generation()
	first, _ := s.Score()

	s.SetDistribution(perfect)
	assert.NotEqual(t, gen, s.Generation())
	second, ok := s.Score()
	require.True(t, ok)
	assert.InDelta(t, 1.0, second, tol)
	assert.NotEqual(t, first, second)
}

func TestScorerCachesUntilNewDistribution(t *testing.T) {
	s := New(MutualInfo)
	s.SetDistribution(partial)
	score, ok := s.Score()
	require.True(t, ok)
	h, ok := s.Entropy()
	require.True(t, ok)

	// Writes behind the scorer's back are not seen until the next
	// SetDistribution.
	s.matrix[1][1] = 100
	got, _ := s.Score()
	assert.Equal(t, score, got)
	got, _ = s.Entropy()
	assert.Equal(t, h, got)

	s.SetDistribution(s.matrix)
	got, ok = s.Score()
	require.True(t, ok)
	assert.NotEqual(t, score, got)
	got, ok = s.Entropy()
	require.True(t, ok)
	assert.NotEqual(t, h, got)
}

func TestScorerCopiesDistribution(t *testing.T) {
	m := partial.Clone()
	s := New(MutualInfo)
	s.SetDistribution(m)
	before, _ := s.Score()

	m[1][1] = 100
	after, _ := s.Score()
	assert.Equal(t, before, after)

	out := s.Distribution()
	out[2][2] = 100
	assert.InDelta(t, 8.0, s.TotalWeight(), tol)
}

func TestScorerUndefinedOnEmptyDistribution(t *testing.T) {
	s := New(GainRatio)
	s.SetDistribution(models.NewSplitMatrix(3, 3))

	_, ok := s.Entropy()
	assert.False(t, ok)
	_, ok = s.CondEntropy()
	assert.False(t, ok)
	_, ok = s.Score()
	assert.False(t, ok)
	_, ok = s.JMeasure(1)
	assert.False(t, ok)
}

func TestScorerMutualInfoRatioUndefinedWhenPure(t *testing.T) {
	s := New(MutualInfoRatio)
	s.SetDistribution(models.SplitMatrix{{0, 0, 0}, {0, 2, 3}})
	_, ok := s.Score()
	assert.False(t, ok)
}

func TestScorerGainRatioZeroSplitEntropyIsViolation(t *testing.T) {
	s := New(GainRatio)
	s.SetDistribution(models.SplitMatrix{{0, 0, 0}, {0, 2, 0}, {0, 1, 0}})
	requireViolation(t, func() { s.Score() })
}

func TestScorerExternalScore(t *testing.T) {
	s := New(External)
	requireViolation(t, func() { s.SetExternalScore(1) })

	s.SetDistribution(partial)
	requireViolation(t, func() { s.Score() })

	s.SetExternalScore(0.42)
	got, ok := s.Score()
	require.True(t, ok)
	assert.Equal(t, 0.42, got)

	s.SetDistribution(perfect)
	requireViolation(t, func() { s.Score() })
}

func TestScorerContractViolations(t *testing.T) {
	s := New(MutualInfo)
	requireViolation(t, func() { s.Score() })
	requireViolation(t, func() { s.SetDistribution(nil) })
	requireViolation(t, func() { s.SetDistribution(models.SplitMatrix{{0, 1}, {0}}) })
	requireViolation(t, func() { s.SetDistribution(models.SplitMatrix{{0, -1}}) })
}

func TestScorerMutualInfoBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := New(MutualInfo)
	for i := 0; i < 50; i++ {
		m := models.NewSplitMatrix(1+rng.Intn(4)+1, 1+rng.Intn(4)+1)
		for y := 1; y < len(m); y++ {
			for x := 1; x < len(m[y]); x++ {
				m[y][x] = math.Floor(rng.Float64()*10) / 2
			}
		}
		s.SetDistribution(m)
		h, ok := s.Entropy()
		if !ok {
			continue
		}
		mi, _ := s.MutualInfo(false)
		assert.GreaterOrEqual(t, mi, 0.0)
		assert.LessOrEqual(t, mi, h+tol)
	}
}

func TestScoreCandidateRestoresState(t *testing.T) {
	s := New(GainRatio)
	s.SetDistribution(partial)
	gen := s.Generation()
	before, _ := s.Score()

	sorted := []models.LabeledValue{
		{Value: 1.0, Label: 1, Weight: 1},
		{Value: 2.0, Label: 1, Weight: 1},
		{Value: 3.0, Label: 2, Weight: 1},
		{Value: 4.0, Label: 2, Weight: 1},
	}
	res, ok := s.FindBestThreshold(sorted, 2, entropy.SearchOptions{MinSplit: 1})
	require.True(t, ok)
	assert.InDelta(t, 2.5, res.Threshold, tol)
	assert.InDelta(t, 1.0, res.Score, tol)

	assert.Equal(t, gen, s.Generation())
	after, _ := s.Score()
	assert.Equal(t, before, after)
	assert.Equal(t, models.CountDist{0, 4, 4}, s.LabelDist())
}

func TestFindBestThresholdGainRatioSkipsEmptySide(t *testing.T) {
	s := New(GainRatio)
	sorted := []models.LabeledValue{
		{Value: 0.5, Label: 1, Weight: 0},
		{Value: 1.0, Label: 1, Weight: 1},
		{Value: 2.0, Label: 1, Weight: 1},
		{Value: 3.0, Label: 2, Weight: 1},
		{Value: 4.0, Label: 2, Weight: 1},
	}

	var (
		res entropy.ThresholdResult
		ok  bool
	)
	err := contract.Catch(func() {
		res, ok = s.FindBestThreshold(sorted, 2, entropy.SearchOptions{MinSplit: 0})
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2.5, res.Threshold, tol)
	assert.InDelta(t, 1.0, res.Score, tol)
}

func TestScoreCandidateRejectsExternal(t *testing.T) {
	s := New(External)
	requireViolation(t, func() { s.ScoreCandidate(&entropy.Candidate{}) })
}

func TestParseCriterion(t *testing.T) {
	for _, c := range Criteria() {
		got, err := ParseCriterion(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	got, err := ParseCriterion(" Gain_Ratio ")
	require.NoError(t, err)
	assert.Equal(t, GainRatio, got)

	_, err = ParseCriterion("gini")
	assert.Error(t, err)
	assert.Equal(t, "unknown", Criterion(42).String())
}
