// Package service turns request payloads into scoring-core calls. It is
// shared by the HTTP API and the one-shot CLI commands. Every entry point
// converts contract violations into returned errors; use
// contract.IsViolation to tell them apart from bad input.
package service

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/rawblock/splitscore/internal/catdist"
	"github.com/rawblock/splitscore/internal/config"
	"github.com/rawblock/splitscore/internal/contract"
	"github.com/rawblock/splitscore/internal/entropy"
	"github.com/rawblock/splitscore/internal/metrics"
	"github.com/rawblock/splitscore/internal/splitscore"
	"github.com/rawblock/splitscore/pkg/models"
)

// ThresholdResponse is the outcome of a threshold search request.
type ThresholdResponse struct {
	Criterion string                  `json:"criterion"`
	Found     bool                    `json:"found"`
	Search    entropy.ThresholdResult `json:"search"`
}

func criterion(cfg config.Config, name string) (splitscore.Criterion, error) {
	if name == "" {
		return cfg.Criterion(), nil
	}
	return splitscore.ParseCriterion(name)
}

// ScoreSplit reports every statistic of one split distribution plus its
// score under the requested criterion.
func ScoreSplit(cfg config.Config, req models.SplitScoreRequest) (resp models.SplitScoreResponse, err error) {
	crit, err := criterion(cfg, req.Criterion)
	if err != nil {
		return resp, err
	}

	err = contract.Catch(func() {
		s := splitscore.New(crit)
		s.SetDistribution(req.Matrix)
		if req.ExternalScore != nil {
			s.SetExternalScore(*req.ExternalScore)
		}

		resp = models.SplitScoreResponse{
			Criterion:   crit.String(),
			TotalWeight: s.TotalWeight(),
			NumSplits:   s.NumSplits(),
			LabelDist:   s.LabelDist(),
			SplitDist:   s.SplitDist(),
		}
		resp.Entropy = models.OptionalScore(s.Entropy())
		resp.CondEntropy = models.OptionalScore(s.CondEntropy())
		resp.SplitEntropy = models.OptionalScore(s.SplitEntropy())
		resp.MutualInfo = models.OptionalScore(s.MutualInfo(false))
		for x := 0; x < req.Matrix.NumColumns(); x++ {
			resp.JMeasures = append(resp.JMeasures, models.OptionalScore(s.JMeasure(x)))
		}
		resp.Score = models.OptionalScore(s.Score())
	})
	return resp, err
}

// FindThreshold searches for the best binary split of a continuous
// attribute. Values are sorted here; callers need not pre-sort.
func FindThreshold(cfg config.Config, req models.ThresholdRequest) (resp ThresholdResponse, err error) {
	crit, err := criterion(cfg, req.Criterion)
	if err != nil {
		return resp, err
	}
	if crit == splitscore.External {
		return resp, errors.New("the external criterion cannot rate threshold candidates")
	}

	opts := cfg.SearchOptions()
	if req.MinSplit != nil {
		opts.MinSplit = *req.MinSplit
	}
	if req.SmoothFactor != nil {
		opts.SmoothFactor = *req.SmoothFactor
	}
	if req.SmoothWindow != nil {
		opts.SmoothWindow = *req.SmoothWindow
	}

	sorted := append([]models.LabeledValue(nil), req.Values...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })

	resp.Criterion = crit.String()
	err = contract.Catch(func() {
		resp.Search, resp.Found = splitscore.New(crit).FindBestThreshold(sorted, req.NumLabels, opts)
	})
	return resp, err
}

// Predict builds a categorical distribution and returns its decision.
func Predict(cfg config.Config, req models.PredictRequest) (resp models.PredictResponse, err error) {
	opts := cfg.DistributionOptions()
	if req.Correction != "" {
		corr, perr := catdist.ParseCorrection(req.Correction)
		if perr != nil {
			return resp, perr
		}
		opts.Correction = corr
	}
	if req.LaplaceK != 0 {
		opts.LaplaceK = req.LaplaceK
	}
	if req.EvidenceFactor != 0 {
		opts.EvidenceFactor = req.EvidenceFactor
	}
	if len(req.Counts) == 0 && len(req.Weights) == 0 {
		return resp, errors.New("one of counts or weights is required")
	}

	allowUnknown := cfg.Distribution.AllowUnknown
	if req.AllowUnknown != nil {
		allowUnknown = *req.AllowUnknown
	}

	err = contract.Catch(func() {
		var d *catdist.Distribution
		if len(req.Counts) > 0 {
			d = catdist.NewFromCounts(req.Counts, opts)
		} else {
			d = catdist.NewFromWeights(req.Weights, req.UnknownProb)
		}
		if req.TieOrder != nil {
			d.SetTiebreakingOrder(catdist.MergeTiebreakingOrder(req.TieOrder, d.TiebreakingOrder()))
		}
		if req.Preferred != nil {
			d.SetPreferredCategory(*req.Preferred)
		}
		if req.Loss != nil {
			d.SetLossMatrix(req.Loss)
		}
		if req.CategoryNames != nil {
			d.SetCategoryNames(req.CategoryNames)
		}

		cat, scores := d.BestCategory(allowUnknown)
		resp = models.PredictResponse{
			Category:     cat,
			CategoryName: d.CategoryName(cat),
			Scores:       scores,
			TieOrder:     d.TiebreakingOrder(),
			Rendered:     d.String(),
		}
		if d.HasLossMatrix() {
			resp.ExpectedLoss = d.ExpectedLoss()
		}
	})
	return resp, err
}

// Evaluate compares predictions with known categories.
func Evaluate(req models.EvaluateRequest) (metrics.Evaluation, error) {
	return metrics.Evaluate(req.Predicted, req.Truth, req.NumCategories, req.Loss)
}
