package splitscore

import (
	"strings"

	"github.com/pkg/errors"
)

// Criterion selects how Score rates a split.
type Criterion int

const (
	// MutualInfo is the raw information gain I(X;Y).
	MutualInfo Criterion = iota
	// NormalizedMutualInfo divides the gain by log₂(number of splits).
	NormalizedMutualInfo
	// GainRatio divides the gain by the entropy of the split itself.
	GainRatio
	// MutualInfoRatio divides the gain by the label entropy, in [0,1].
	MutualInfoRatio
	// External uses a score supplied through SetExternalScore.
	External
)

var criterionNames = [...]string{
	MutualInfo:           "mutual-info",
	NormalizedMutualInfo: "normalized-mutual-info",
	GainRatio:            "gain-ratio",
	MutualInfoRatio:      "mutual-info-ratio",
	External:             "external",
}

func (c Criterion) String() string {
	if c < 0 || int(c) >= len(criterionNames) {
		return "unknown"
	}
	return criterionNames[c]
}

// ParseCriterion maps a name such as "gain-ratio" to its Criterion. Matching
// is case-insensitive and accepts underscores for dashes.
func ParseCriterion(name string) (Criterion, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	for i, n := range criterionNames {
		if n == norm {
			return Criterion(i), nil
		}
	}
	return 0, errors.Errorf("unknown split criterion %q", name)
}

// Criteria lists every criterion in declaration order.
func Criteria() []Criterion {
	out := make([]Criterion, len(criterionNames))
	for i := range out {
		out[i] = Criterion(i)
	}
	return out
}
