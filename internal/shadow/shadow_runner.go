package shadow

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/rawblock/splitscore/internal/contract"
	"github.com/rawblock/splitscore/internal/entropy"
	"github.com/rawblock/splitscore/internal/logging"
	"github.com/rawblock/splitscore/internal/splitscore"
	"github.com/rawblock/splitscore/pkg/models"
)

// ResultStore persists shadow comparisons. *db.PostgresStore satisfies it.
type ResultStore interface {
	SaveShadowResult(ctx context.Context, r models.ShadowResult) error
	ShadowDrift(ctx context.Context, snapshotID int64) (models.DriftReport, error)
}

// ErrNoStore is returned by DriftReport when the runner keeps results in
// memory only.
var ErrNoStore = errors.New("no result store configured")

// Runner scores candidate splits under a production criterion and an
// experimental (shadow) one side by side. The shadow pick never drives a
// decision; it is logged and stored so divergence can be watched over an
// observation window before a criterion is promoted.
type Runner struct {
	store      ResultStore
	snapshotID int64
	production splitscore.Criterion
	shadow     splitscore.Criterion
}

// NewRunner creates a runner. store may be nil, in which case results are
// only returned and logged.
func NewRunner(store ResultStore, snapshotID int64, production, shadow splitscore.Criterion) *Runner {
	return &Runner{
		store:      store,
		snapshotID: snapshotID,
		production: production,
		shadow:     shadow,
	}
}

// Compare picks the best candidate under both criteria and persists the
// comparison. A pick of -1 means no candidate had a defined score. A
// candidate that violates a criterion's preconditions (e.g. a single
// populated bucket under gain ratio) fails the whole comparison.
func (r *Runner) Compare(ctx context.Context, candidates []models.SplitMatrix) (*models.ShadowResult, error) {
	if len(candidates) == 0 {
		return nil, errors.New("no candidate splits")
	}

	prodPick, prodScores, err := bestCandidate(r.production, candidates)
	if err != nil {
		return nil, errors.Wrapf(err, "production criterion %s", r.production)
	}
	shadowPick, shadowScores, err := bestCandidate(r.shadow, candidates)
	if err != nil {
		return nil, errors.Wrapf(err, "shadow criterion %s", r.shadow)
	}

	result := &models.ShadowResult{
		ProductionCriterion: r.production.String(),
		ShadowCriterion:     r.shadow.String(),
		ProductionPick:      prodPick,
		ShadowPick:          shadowPick,
		ProductionScores:    prodScores,
		ShadowScores:        shadowScores,
		Diverged:            prodPick != shadowPick,
		SnapshotID:          r.snapshotID,
		CreatedAt:           time.Now().UTC(),
	}

	// Log divergences for monitoring
	if result.Diverged {
		logging.Get().Infof("[Shadow] DIVERGENCE over %d candidates: %s picks %d, %s picks %d",
			len(candidates), result.ProductionCriterion, prodPick, result.ShadowCriterion, shadowPick)
	}

	if r.store != nil {
		if err := r.store.SaveShadowResult(ctx, *result); err != nil {
			return result, errors.Wrap(err, "persisting shadow result")
		}
	}
	return result, nil
}

// DriftReport summarises the stored comparisons of this runner's snapshot.
func (r *Runner) DriftReport(ctx context.Context) (models.DriftReport, error) {
	if r.store == nil {
		return models.DriftReport{}, ErrNoStore
	}
	return r.store.ShadowDrift(ctx, r.snapshotID)
}

// bestCandidate scores each candidate and returns the index of the highest
// defined score. Earlier candidates win ties.
func bestCandidate(c splitscore.Criterion, candidates []models.SplitMatrix) (int, []*float64, error) {
	scorer := splitscore.New(c)
	scores := make([]*float64, len(candidates))
	best := -1
	var bestScore float64

	err := contract.Catch(func() {
		for i, m := range candidates {
			scorer.SetDistribution(m)
			v, ok := scorer.Score()
			scores[i] = models.OptionalScore(v, ok)
			if ok && (best < 0 || v > bestScore+entropy.Epsilon) {
				best, bestScore = i, v
			}
		}
	})
	if err != nil {
		return -1, nil, err
	}
	return best, scores, nil
}
