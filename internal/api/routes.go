package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/rawblock/splitscore/internal/config"
	"github.com/rawblock/splitscore/internal/contract"
	"github.com/rawblock/splitscore/internal/db"
	"github.com/rawblock/splitscore/internal/logging"
	"github.com/rawblock/splitscore/internal/shadow"
	"github.com/rawblock/splitscore/pkg/models"
)

// RunStore is the run ledger. *db.PostgresStore satisfies it.
type RunStore interface {
	SaveRun(ctx context.Context, run models.RunRecord) error
	ListRuns(ctx context.Context, page, limit int) ([]models.RunRecord, int, error)
}

// outcome is what a scoring handler computes. It is cached by request body,
// so it must not depend on anything but the body and the static config.
type outcome struct {
	body      interface{}
	criterion string
	score     float64
	defined   bool
}

type APIHandler struct {
	cfg    config.Config
	store  RunStore
	runner *shadow.Runner
	wsHub  *Hub
	cache  *lru.Cache[string, outcome]
}

// SetupRouter wires the /api/v1 routes. store and runner may be nil; runs
// are then not persisted and /split/compare keeps results in memory only.
// wsHub may be nil too, in which case /stream is not served.
func SetupRouter(ctx context.Context, cfg config.Config, store RunStore, runner *shadow.Runner, wsHub *Hub) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	handler := &APIHandler{cfg: cfg, store: store, runner: runner, wsHub: wsHub}
	if cfg.Server.CacheSize > 0 {
		cache, err := lru.New[string, outcome](cfg.Server.CacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "creating response cache")
		}
		handler.cache = cache
	}
	if handler.runner == nil {
		handler.runner = shadow.NewRunner(nil, 0, cfg.Criterion(), cfg.ShadowCriterion())
	}

	api := r.Group("/api/v1")
	{
		api.GET("/health", handler.handleHealth)
		if wsHub != nil {
			api.GET("/stream", wsHub.Subscribe)
		}
	}

	protected := api.Group("")
	protected.Use(AuthMiddleware(cfg.Server.AuthToken))
	if cfg.Server.RatePerMinute > 0 {
		protected.Use(NewRateLimiter(ctx, cfg.Server.RatePerMinute, cfg.Server.Burst).Middleware())
	}
	{
		protected.POST("/split/score", handler.handleScoreSplit)
		protected.POST("/split/threshold", handler.handleThreshold)
		protected.POST("/split/compare", handler.handleCompare)
		protected.POST("/distribution/predict", handler.handlePredict)
		protected.POST("/evaluate", handler.handleEvaluate)
		protected.GET("/runs", handler.handleListRuns)
		protected.GET("/shadow/drift", handler.handleShadowDrift)
	}

	return r, nil
}

// corsMiddleware allows the comma-separated origins, or any origin when the
// list is empty or "*".
func corsMiddleware(allowedOrigins string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logging.Get().Debugw("[API] request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}

// serveScoring binds the JSON body into req, runs compute, records the run
// and replies with {runId, cached, result}.
// Contract violations answer 422 so callers can tell misuse from an
// undefined score, which is a normal 200 with a null value.
func (h *APIHandler) serveScoring(c *gin.Context, kind string, req interface{}, cacheable bool, compute func() (outcome, error)) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
		return
	}
	if err := binding.JSON.BindBody(body, req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	key := cacheKey(kind, body)
	var out outcome
	hit := false
	if cacheable && h.cache != nil {
		out, hit = h.cache.Get(key)
	}
	if !hit {
		if out, err = compute(); err != nil {
			h.respondError(c, kind, err)
			return
		}
		if cacheable && h.cache != nil {
			h.cache.Add(key, out)
		}
	}

	run := db.NewRunRecord(kind, out.criterion, out.score, out.defined, body)
	h.recordRun(c.Request.Context(), run)

	c.JSON(http.StatusOK, gin.H{
		"runId":  run.RunID,
		"cached": hit,
		"result": out.body,
	})
}

func (h *APIHandler) respondError(c *gin.Context, kind string, err error) {
	if contract.IsViolation(err) {
		logging.Get().Infof("[API] %s rejected: %v", kind, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"kind":  "contract_violation",
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// recordRun persists and announces a run. Ledger failures are logged and do
// not fail the request.
func (h *APIHandler) recordRun(ctx context.Context, run models.RunRecord) {
	if h.store != nil {
		if err := h.store.SaveRun(ctx, run); err != nil {
			logging.Get().Errorf("[API] failed to save run %s: %v", run.RunID, err)
		}
	}
	if h.wsHub != nil {
		h.wsHub.BroadcastRun(run)
	}
}

func cacheKey(kind string, body []byte) string {
	sum := sha256.Sum256(body)
	return kind + ":" + hex.EncodeToString(sum[:])
}
