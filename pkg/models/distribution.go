package models

// UnknownIndex is the slot reserved for "unknown" in every CountDist and in
// both axes of a SplitMatrix.
const UnknownIndex = 0

// CountDist maps a discrete index (category or split bucket) to a weight.
// Index 0 is the unknown slot. Weights are float64 because instances may
// carry fractional weight.
type CountDist []float64

// Total returns the sum of all entries, the unknown slot included.
func (d CountDist) Total() float64 {
	var sum float64
	for _, w := range d {
		sum += w
	}
	return sum
}

// Clone returns an independent copy.
func (d CountDist) Clone() CountDist {
	if d == nil {
		return nil
	}
	out := make(CountDist, len(d))
	copy(out, d)
	return out
}

// NonZero counts entries whose weight is above tol.
func (d CountDist) NonZero(tol float64) int {
	n := 0
	for _, w := range d {
		if w > tol {
			n++
		}
	}
	return n
}

// SplitMatrix holds weights indexed [label][split bucket]. Row sums are the
// label distribution, column sums the split distribution.
type SplitMatrix [][]float64

// NewSplitMatrix allocates a zeroed matrix. Both dimensions include the
// unknown slot.
func NewSplitMatrix(numLabels, numSplits int) SplitMatrix {
	m := make(SplitMatrix, numLabels)
	for i := range m {
		m[i] = make([]float64, numSplits)
	}
	return m
}

// Clone returns a deep copy.
func (m SplitMatrix) Clone() SplitMatrix {
	if m == nil {
		return nil
	}
	out := make(SplitMatrix, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}

// NumLabels is the row count, unknown included.
func (m SplitMatrix) NumLabels() int { return len(m) }

// NumColumns is the column count, unknown bucket included.
func (m SplitMatrix) NumColumns() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Marginals computes label (row) sums, split (column) sums and the total in
// one pass. They are always produced together.
func (m SplitMatrix) Marginals() (labels, splits CountDist, total float64) {
	labels = make(CountDist, m.NumLabels())
	splits = make(CountDist, m.NumColumns())
	for y, row := range m {
		for x, w := range row {
			labels[y] += w
			splits[x] += w
			total += w
		}
	}
	return labels, splits, total
}

// LabeledValue is one observation of a continuous attribute: its value, its
// label index and its instance weight.
type LabeledValue struct {
	Value  float64 `json:"value" yaml:"value"`
	Label  int     `json:"label" yaml:"label"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// LossMatrix assigns a non-negative loss to predicting Pred when the true
// category is True. Both indices run over known categories 1..N; entry
// Loss[t-1][p-1] holds loss(t, p).
type LossMatrix struct {
	Loss [][]float64 `json:"loss" yaml:"loss"`
}

// NumCategories is the dimension of the (square) matrix.
func (l *LossMatrix) NumCategories() int {
	if l == nil {
		return 0
	}
	return len(l.Loss)
}

// At returns loss(trueCat, predCat) for 1-based category indices.
func (l *LossMatrix) At(trueCat, predCat int) float64 {
	return l.Loss[trueCat-1][predCat-1]
}
