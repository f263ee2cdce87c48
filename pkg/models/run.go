package models

import "time"

// Run kinds recorded in the ledger.
const (
	RunSplitScore = "split_score"
	RunThreshold  = "threshold"
	RunCompare    = "compare"
	RunPredict    = "predict"
	RunEvaluate   = "evaluate"
)

// RunRecord is one scoring call as stored in the runs ledger.
type RunRecord struct {
	RunID     string `json:"runId"`
	Kind      string `json:"kind"`
	Criterion string `json:"criterion,omitempty"`
	// Score is the headline number of the run; nil when undefined.
	Score     *float64  `json:"score"`
	Defined   bool      `json:"defined"`
	AuditHash string    `json:"auditHash"`
	CreatedAt time.Time `json:"createdAt"`
}

// ShadowResult captures the diff between the production and shadow
// criteria over one batch of candidate splits.
type ShadowResult struct {
	ProductionCriterion string     `json:"productionCriterion"`
	ShadowCriterion     string     `json:"shadowCriterion"`
	ProductionPick      int        `json:"productionPick"`
	ShadowPick          int        `json:"shadowPick"`
	ProductionScores    []*float64 `json:"productionScores"`
	ShadowScores        []*float64 `json:"shadowScores"`
	Diverged            bool       `json:"diverged"`
	SnapshotID          int64      `json:"snapshotId"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// DriftReport aggregates stored shadow results for one snapshot.
type DriftReport struct {
	SnapshotID     int64   `json:"snapshotId"`
	TotalRuns      int     `json:"totalRuns"`
	Divergences    int     `json:"divergences"`
	DivergenceRate float64 `json:"divergenceRate"`
}

// OptionalScore turns a (value, ok) pair into a JSON-friendly pointer.
func OptionalScore(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
