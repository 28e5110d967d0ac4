package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/use-agent/blockcrawl/cache"
	"github.com/use-agent/blockcrawl/models"
	"github.com/use-agent/blockcrawl/pipeline"
	"github.com/use-agent/blockcrawl/webhook"
)

// Extractor runs one extraction request.
type Extractor interface {
	Run(ctx context.Context, req *models.ExtractRequest) (*models.ExtractResponse, error)
}

var _ Extractor = (*pipeline.Runner)(nil)

// ExtractDeps bundles what the extract handler needs. Cache and Sender are
// optional.
type ExtractDeps struct {
	Runner  Extractor
	Cache   *cache.Cache
	Sender  *webhook.Sender
	Timeout time.Duration
}

// Extract returns a handler for POST /api/v1/extract.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup when max_age > 0.
//  3. With webhook_url: accept with a job id, run in the background and
//     deliver the outcome to the webhook.
//  4. Otherwise run synchronously, store in cache, respond.
func Extract(deps ExtractDeps) gin.HandlerFunc {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	sender := deps.Sender
	if sender == nil {
		sender = webhook.NewSender()
	}

	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ExtractResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		// ── 2. Cache lookup ─────────────────────────────────────────
		var cacheKey string
		if deps.Cache != nil && req.MaxAge > 0 {
			cacheKey = cache.Key(&req)
			if cached, hit := deps.Cache.Get(cacheKey, req.MaxAge); hit && req.WebhookURL == "" {
				cached.CacheStatus = "hit"
				cached.Timing = models.TimingInfo{TotalMs: time.Since(start).Milliseconds()}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Asynchronous ─────────────────────────────────────────
		if req.WebhookURL != "" {
			jobID := uuid.NewString()
			go runJob(deps, sender, timeout, jobID, req, cacheKey)
			c.JSON(http.StatusAccepted, models.JobAccepted{Success: true, JobID: jobID, Status: "processing"})
			return
		}

		// ── 4. Synchronous ──────────────────────────────────────────
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		resp, err := deps.Runner.Run(ctx, &req)
		if err != nil {
			respondError(c, err, &models.ExtractResponse{
				URL:    req.URL,
				Timing: models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
			})
			return
		}
		if cacheKey != "" {
			deps.Cache.Set(cacheKey, resp)
			resp.CacheStatus = "miss"
		}
		c.JSON(http.StatusOK, resp)
	}
}

func runJob(deps ExtractDeps, sender *webhook.Sender, timeout time.Duration, jobID string, req models.ExtractRequest, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	slog.Info("extract job started", "job_id", jobID, "url", req.URL)
	resp, err := deps.Runner.Run(ctx, &req)

	var event *webhook.Event
	if err != nil {
		event = webhook.NewEvent(webhook.EventExtractFailed, jobID, models.ExtractResponse{
			Success: false,
			URL:     req.URL,
			JobID:   jobID,
			Error:   asCrawlError(err).ToDetail(),
		})
	} else {
		if cacheKey != "" {
			deps.Cache.Set(cacheKey, resp)
		}
		resp.JobID = jobID
		event = webhook.NewEvent(webhook.EventExtractCompleted, jobID, resp)
	}
	sender.DeliverAsync(req.WebhookURL, req.WebhookSecret, event)
}
