package models

// SplitScoreRequest asks for the statistics of one split distribution.
type SplitScoreRequest struct {
	Matrix    SplitMatrix `json:"matrix" yaml:"matrix" binding:"required"`
	Criterion string      `json:"criterion,omitempty" yaml:"criterion"`
	// ExternalScore is required by the external criterion.
	ExternalScore *float64 `json:"externalScore,omitempty" yaml:"externalScore"`
}

// SplitScoreResponse reports every statistic of a split; undefined values
// are null.
type SplitScoreResponse struct {
	Criterion    string    `json:"criterion"`
	Score        *float64  `json:"score"`
	TotalWeight  float64   `json:"totalWeight"`
	NumSplits    int       `json:"numSplits"`
	LabelDist    CountDist `json:"labelDist"`
	SplitDist    CountDist `json:"splitDist"`
	Entropy      *float64  `json:"entropy"`
	CondEntropy  *float64  `json:"condEntropy"`
	SplitEntropy *float64  `json:"splitEntropy"`
	MutualInfo   *float64  `json:"mutualInfo"`
	// JMeasures is indexed by split bucket, unknown bucket at 0.
	JMeasures []*float64 `json:"jMeasures"`
}

// ThresholdRequest asks for the best binary split of a continuous attribute.
// Values need not be sorted.
type ThresholdRequest struct {
	Values       []LabeledValue `json:"values" yaml:"values" binding:"required"`
	NumLabels    int            `json:"numLabels" yaml:"numLabels" binding:"required"`
	Criterion    string         `json:"criterion,omitempty" yaml:"criterion"`
	MinSplit     *float64       `json:"minSplit,omitempty" yaml:"minSplit"`
	SmoothFactor *float64       `json:"smoothFactor,omitempty" yaml:"smoothFactor"`
	SmoothWindow *int           `json:"smoothWindow,omitempty" yaml:"smoothWindow"`
}

// CompareRequest offers candidate splits to the production and shadow
// criteria.
type CompareRequest struct {
	Candidates []SplitMatrix `json:"candidates" yaml:"candidates" binding:"required"`
}

// PredictRequest builds a categorical distribution and asks for its best
// category. Exactly one of Counts and Weights is used; Counts wins.
type PredictRequest struct {
	Counts         CountDist   `json:"counts,omitempty" yaml:"counts"`
	Weights        CountDist   `json:"weights,omitempty" yaml:"weights"`
	UnknownProb    float64     `json:"unknownProb,omitempty" yaml:"unknownProb"`
	Correction     string      `json:"correction,omitempty" yaml:"correction"`
	LaplaceK       float64     `json:"laplaceK,omitempty" yaml:"laplaceK"`
	EvidenceFactor float64     `json:"evidenceFactor,omitempty" yaml:"evidenceFactor"`
	TieOrder       []float64   `json:"tieOrder,omitempty" yaml:"tieOrder"`
	Preferred      *int        `json:"preferred,omitempty" yaml:"preferred"`
	Loss           *LossMatrix `json:"loss,omitempty" yaml:"loss"`
	AllowUnknown   *bool       `json:"allowUnknown,omitempty" yaml:"allowUnknown"`
	CategoryNames  []string    `json:"categoryNames,omitempty" yaml:"categoryNames"`
}

// PredictResponse carries the chosen category and the vector it won on.
type PredictResponse struct {
	Category     int       `json:"category"`
	CategoryName string    `json:"categoryName"`
	Scores       []float64 `json:"scores"`
	// ExpectedLoss is present when a loss matrix was supplied.
	ExpectedLoss []float64 `json:"expectedLoss,omitempty"`
	TieOrder     []int     `json:"tieOrder"`
	Rendered     string    `json:"rendered"`
}

// EvaluateRequest scores predictions against known categories.
type EvaluateRequest struct {
	Predicted     []int       `json:"predicted" yaml:"predicted" binding:"required"`
	Truth         []int       `json:"truth" yaml:"truth" binding:"required"`
	NumCategories int         `json:"numCategories" yaml:"numCategories" binding:"required"`
	Loss          *LossMatrix `json:"loss,omitempty" yaml:"loss"`
}
