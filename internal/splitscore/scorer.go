package splitscore

import (
	"math"

	"github.com/rawblock/splitscore/internal/contract"
	"github.com/rawblock/splitscore/internal/entropy"
	"github.com/rawblock/splitscore/pkg/models"
)

// Scorer owns one split×label count matrix and lazily derives the entropy
// family of statistics from it.
//
// Each derived value is computed on first read and then served from a cache
// tagged with the generation of the matrix it came from. SetDistribution
// starts a new generation, so nothing computed for an older matrix is ever
// returned. A Scorer is not safe for concurrent use; give each goroutine its
// own.
type Scorer struct {
	criterion  Criterion
	matrix     models.SplitMatrix
	generation uint64
	lastGen    uint64
	cache      scoreCache

	external    float64
	externalGen uint64
}

// scoreCache is valid only while its generation matches the scorer's.
type scoreCache struct {
	generation uint64

	// The marginals and the total come from one pass and are either all
	// present or all absent.
	marginals bool
	labels    models.CountDist
	splits    models.CountDist
	total     float64

	entropy      lazy
	condEntropy  lazy
	splitEntropy lazy
	mutualInfo   lazy
	gainRatio    lazy
}

type lazy struct {
	value   float64
	defined bool
	done    bool
}

func (l *lazy) set(v float64, ok bool) (float64, bool) {
	*l = lazy{value: v, defined: ok, done: true}
	return v, ok
}

// New returns a Scorer with no distribution.
func New(c Criterion) *Scorer {
	return &Scorer{criterion: c}
}

// Criterion returns the active criterion.
func (s *Scorer) Criterion() Criterion { return s.criterion }

// SetCriterion switches criterion. Cached statistics stay valid.
func (s *Scorer) SetCriterion(c Criterion) { s.criterion = c }

// SetDistribution replaces the owned matrix with a copy of m and invalidates
// every cached statistic. The caller keeps ownership of m; later edits to it
// are not seen by the scorer.
func (s *Scorer) SetDistribution(m models.SplitMatrix) {
	const op = "SetDistribution"
	contract.Require(len(m) > 0, op, "matrix has no label rows")
	cols := len(m[0])
	contract.Require(cols > 0, op, "matrix has no split columns")
	for y, row := range m {
		contract.Require(len(row) == cols, op, "row %d has %d columns, want %d", y, len(row), cols)
		for x, w := range row {
			if w < 0 || math.IsNaN(w) {
				contract.Fail(op, "invalid weight %g at (%d,%d)", w, y, x)
			}
		}
	}
	s.matrix = m.Clone()
	s.lastGen++
	s.generation = s.lastGen
}

// HasDistribution reports whether a matrix has been set.
func (s *Scorer) HasDistribution() bool { return s.matrix != nil }

// Distribution returns a copy of the owned matrix.
func (s *Scorer) Distribution() models.SplitMatrix { return s.matrix.Clone() }

// Generation identifies the current matrix. It changes on every
// SetDistribution.
func (s *Scorer) Generation() uint64 { return s.generation }

func (s *Scorer) sync(op string) *scoreCache {
	contract.Require(s.matrix != nil, op, "no distribution set")
	if s.cache.generation != s.generation {
		s.cache = scoreCache{generation: s.generation}
	}
	if !s.cache.marginals {
		s.cache.labels, s.cache.splits, s.cache.total = s.matrix.Marginals()
		s.cache.marginals = true
	}
	return &s.cache
}

// TotalWeight is the sum of every cell.
func (s *Scorer) TotalWeight() float64 { return s.sync("TotalWeight").total }

// LabelDist returns the row sums.
func (s *Scorer) LabelDist() models.CountDist { return s.sync("LabelDist").labels.Clone() }

// SplitDist returns the column sums.
func (s *Scorer) SplitDist() models.CountDist { return s.sync("SplitDist").splits.Clone() }

// NumSplits is the number of split buckets, the unknown bucket excluded.
func (s *Scorer) NumSplits() int {
	contract.Require(s.matrix != nil, "NumSplits", "no distribution set")
	return s.matrix.NumColumns() - 1
}

// Entropy returns H(Y) of the label marginal.
func (s *Scorer) Entropy() (float64, bool) {
	c := s.sync("Entropy")
	if c.entropy.done {
		return c.entropy.value, c.entropy.defined
	}
	if c.total < entropy.Epsilon {
		return c.entropy.set(0, false)
	}
	return c.entropy.set(entropy.EntropyWithTotal(c.labels, c.total), true)
}

// CondEntropy returns H(Y|X).
func (s *Scorer) CondEntropy() (float64, bool) {
	c := s.sync("CondEntropy")
	if c.condEntropy.done {
		return c.condEntropy.value, c.condEntropy.defined
	}
	if c.total < entropy.Epsilon {
		return c.condEntropy.set(0, false)
	}
	return c.condEntropy.set(entropy.ConditionalEntropy(s.matrix, c.splits, c.total), true)
}

// SplitEntropy returns H(X), the entropy of the split marginal.
func (s *Scorer) SplitEntropy() (float64, bool) {
	c := s.sync("SplitEntropy")
	if c.splitEntropy.done {
		return c.splitEntropy.value, c.splitEntropy.defined
	}
	if c.total < entropy.Epsilon {
		return c.splitEntropy.set(0, false)
	}
	return c.splitEntropy.set(entropy.EntropyWithTotal(c.splits, c.total), true)
}

// MutualInfo returns I(X;Y) = H(Y) - H(Y|X). With normalize set and at
// least three splits, the result is divided by log₂(NumSplits()).
func (s *Scorer) MutualInfo(normalize bool) (float64, bool) {
	mi, ok := s.mutualInfo()
	if !ok || !normalize {
		return mi, ok
	}
	if n := s.NumSplits(); n >= 3 {
		mi /= math.Log2(float64(n))
	}
	return mi, true
}

func (s *Scorer) mutualInfo() (float64, bool) {
	c := s.sync("MutualInfo")
	if c.mutualInfo.done {
		return c.mutualInfo.value, c.mutualInfo.defined
	}
	h, ok := s.Entropy()
	if !ok {
		return c.mutualInfo.set(0, false)
	}
	cond, ok := s.CondEntropy()
	if !ok {
		return c.mutualInfo.set(0, false)
	}
	return c.mutualInfo.set(entropy.ClampNonNegative("MutualInfo", h-cond), true)
}

// GainRatio returns I(X;Y)/H(X). A split entropy of ≈0 (all weight in one
// bucket) is a contract violation; callers filter such splits beforehand.
func (s *Scorer) GainRatio() (float64, bool) {
	c := s.sync("GainRatio")
	if c.gainRatio.done {
		return c.gainRatio.value, c.gainRatio.defined
	}
	mi, ok := s.mutualInfo()
	if !ok {
		return c.gainRatio.set(0, false)
	}
	se, _ := s.SplitEntropy()
	contract.Require(se > entropy.Epsilon, "GainRatio", "split entropy %g is zero", se)
	return c.gainRatio.set(mi/se, true)
}

// MutualInfoRatio returns I(X;Y)/H(Y) clamped to [0,1]. Undefined for a
// pure label distribution.
func (s *Scorer) MutualInfoRatio() (float64, bool) {
	mi, ok := s.mutualInfo()
	if !ok {
		return 0, false
	}
	h, _ := s.Entropy()
	if h < entropy.Epsilon {
		return 0, false
	}
	return math.Min(1, math.Max(0, mi/h)), true
}

// JMeasure returns the weighted J-measure of split bucket x.
func (s *Scorer) JMeasure(x int) (float64, bool) {
	c := s.sync("JMeasure")
	if c.total < entropy.Epsilon {
		return 0, false
	}
	return entropy.JMeasure(s.matrix, c.splits, c.labels, c.total, x), true
}

// SetExternalScore supplies the score used by the External criterion. It is
// tied to the current distribution and discarded by the next
// SetDistribution.
func (s *Scorer) SetExternalScore(v float64) {
	contract.Require(s.matrix != nil, "SetExternalScore", "no distribution set")
	s.external = v
	s.externalGen = s.generation
}

// Score rates the current distribution with the active criterion.
func (s *Scorer) Score() (float64, bool) {
	switch s.criterion {
	case MutualInfo:
		return s.MutualInfo(false)
	case NormalizedMutualInfo:
		return s.MutualInfo(true)
	case GainRatio:
		return s.GainRatio()
	case MutualInfoRatio:
		return s.MutualInfoRatio()
	case External:
		contract.Require(s.matrix != nil, "Score", "no distribution set")
		contract.Require(s.externalGen == s.generation && s.generation != 0, "Score",
			"no external score for the current distribution")
		return s.external, true
	}
	contract.Fail("Score", "unknown criterion %d", int(s.criterion))
	return 0, false
}

// ScoreCandidate scores a borrowed partition without disturbing the
// scorer's own distribution or cache. The candidate's marginals are used as
// given and a supplied entropy skips recomputation, which keeps the
// per-threshold cost of FindBestThreshold down to one conditional entropy.
func (s *Scorer) ScoreCandidate(c *entropy.Candidate) (float64, bool) {
	contract.Require(s.criterion != External, "ScoreCandidate", "external criterion cannot score candidates")

	savedMatrix, savedGen, savedCache := s.matrix, s.generation, s.cache
	defer func() {
		s.matrix, s.generation, s.cache = savedMatrix, savedGen, savedCache
	}()

	s.lastGen++
	s.generation = s.lastGen
	s.matrix = c.Matrix
	s.cache = scoreCache{
		generation: s.generation,
		marginals:  true,
		labels:     c.Labels,
		splits:     c.Splits,
		total:      c.Total,
	}
	if c.HasEntropy {
		s.cache.entropy = lazy{value: c.Entropy, defined: true, done: true}
	}
	return s.Score()
}

// FindBestThreshold runs the continuous-attribute threshold search with this
// scorer's criterion.
func (s *Scorer) FindBestThreshold(sorted []models.LabeledValue, numLabels int, opts entropy.SearchOptions) (entropy.ThresholdResult, bool) {
	return entropy.FindBestThreshold(sorted, numLabels, opts, s)
}
