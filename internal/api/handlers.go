package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/rawblock/splitscore/internal/service"
	"github.com/rawblock/splitscore/internal/shadow"
	"github.com/rawblock/splitscore/internal/splitscore"
	"github.com/rawblock/splitscore/pkg/models"
)

func (h *APIHandler) handleScoreSplit(c *gin.Context) {
	var req models.SplitScoreRequest
	h.serveScoring(c, models.RunSplitScore, &req, true, func() (outcome, error) {
		resp, err := service.ScoreSplit(h.cfg, req)
		if err != nil {
			return outcome{}, err
		}
		out := outcome{body: resp, criterion: resp.Criterion}
		if resp.Score != nil {
			out.score, out.defined = *resp.Score, true
		}
		return out, nil
	})
}

func (h *APIHandler) handleThreshold(c *gin.Context) {
	var req models.ThresholdRequest
	h.serveScoring(c, models.RunThreshold, &req, true, func() (outcome, error) {
		resp, err := service.FindThreshold(h.cfg, req)
		if err != nil {
			return outcome{}, err
		}
		return outcome{body: resp, criterion: resp.Criterion, score: resp.Search.Score, defined: resp.Found}, nil
	})
}

// handleCompare runs the shadow comparison. It is never cached since every
// call is a new observation for the drift report.
func (h *APIHandler) handleCompare(c *gin.Context) {
	var req models.CompareRequest
	h.serveScoring(c, models.RunCompare, &req, false, func() (outcome, error) {
		res, err := h.runner.Compare(c.Request.Context(), req.Candidates)
		if err != nil {
			return outcome{}, err
		}
		out := outcome{body: res, criterion: res.ProductionCriterion + "/" + res.ShadowCriterion}
		if res.ProductionPick >= 0 {
			out.score, out.defined = *res.ProductionScores[res.ProductionPick], true
		}
		return out, nil
	})
}

func (h *APIHandler) handlePredict(c *gin.Context) {
	var req models.PredictRequest
	h.serveScoring(c, models.RunPredict, &req, true, func() (outcome, error) {
		resp, err := service.Predict(h.cfg, req)
		if err != nil {
			return outcome{}, err
		}
		return outcome{body: resp, score: resp.Scores[resp.Category], defined: true}, nil
	})
}

func (h *APIHandler) handleEvaluate(c *gin.Context) {
	var req models.EvaluateRequest
	h.serveScoring(c, models.RunEvaluate, &req, true, func() (outcome, error) {
		ev, err := service.Evaluate(req)
		if err != nil {
			return outcome{}, err
		}
		return outcome{body: ev, score: ev.Accuracy, defined: ev.Instances > 0}, nil
	})
}

// handleListRuns pages through the run ledger.
func (h *APIHandler) handleListRuns(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not connected"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, total, err := h.store.ListRuns(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runs", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  runs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// handleShadowDrift reports how often the shadow criterion disagreed with
// production for the runner's snapshot.
func (h *APIHandler) handleShadowDrift(c *gin.Context) {
	report, err := h.runner.DriftReport(c.Request.Context())
	if errors.Cause(err) == shadow.ErrNoStore {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Shadow store not configured"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute drift", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleHealth returns service status and capabilities for service discovery
func (h *APIHandler) handleHealth(c *gin.Context) {
	criteria := make([]string, 0, len(splitscore.Criteria()))
	for _, crit := range splitscore.Criteria() {
		criteria = append(criteria, crit.String())
	}

	streamClients := 0
	if h.wsHub != nil {
		streamClients = h.wsHub.NumClients()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "operational",
		"criterion":       h.cfg.Criterion().String(),
		"shadowCriterion": h.cfg.ShadowCriterion().String(),
		"correction":      h.cfg.DistributionOptions().Correction.String(),
		"capabilities": gin.H{
			"criteria":       criteria,
			"threshold":      true,
			"shadow_mode":    true,
			"loss_matrix":    true,
			"ari_vi_metrics": true,
		},
		"dbConnected":   h.store != nil,
		"streamClients": streamClients,
	})
}
