// Package pipeline runs one extraction request end to end: fetch, parse,
// select blocks, extract fields and post-process them into records.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/blockcrawl/config"
	"github.com/use-agent/blockcrawl/crawler"
	"github.com/use-agent/blockcrawl/metrics"
	"github.com/use-agent/blockcrawl/models"
	"github.com/use-agent/blockcrawl/parser"
	"github.com/use-agent/blockcrawl/processor"
)

// Runner executes extraction requests. A Runner holds no per-run state and
// is safe for concurrent use.
type Runner struct {
	cfg     config.RequesterConfig
	metrics *metrics.Metrics
	opts    []crawler.RequesterOption
}

// NewRunner creates a Runner. opts are passed to every requester, after the
// metrics option.
func NewRunner(cfg config.RequesterConfig, m *metrics.Metrics, opts ...crawler.RequesterOption) *Runner {
	return &Runner{cfg: cfg, metrics: m, opts: opts}
}

// Run executes req. On failure the returned error is a *models.CrawlError.
//
// Flow:
//  1. Resolve request and parse modes, build the processor manager.
//  2. Fetch and parse the document        (records fetch_ms)
//  3. Extract fields, run processors      (records extract_ms)
func (r *Runner) Run(ctx context.Context, req *models.ExtractRequest) (*models.ExtractResponse, error) {
	resp, err := r.run(ctx, req)
	if err != nil {
		err = normalize(err)
		r.metrics.ObserveRun(models.CodeOf(err))
		slog.Warn("extraction failed", "url", req.URL, "error", err)
		return nil, err
	}
	r.metrics.ObserveRun("ok")
	slog.Info("extraction completed",
		"url", req.URL,
		"blocks", resp.BlockCount,
		"attempts", resp.Attempts,
		"total_ms", resp.Timing.TotalMs,
	)
	return resp, nil
}

func (r *Runner) run(ctx context.Context, req *models.ExtractRequest) (*models.ExtractResponse, error) {
	totalStart := time.Now()

	// ── 1. Modes and processors ─────────────────────────────────────
	reqMode, err := crawler.ParseRequestMode(req.RequestMode)
	if err != nil {
		return nil, err
	}
	parseMode, err := parser.ParseMode(req.ParseMode)
	if err != nil {
		return nil, err
	}
	if len(req.Fields) == 0 {
		return nil, models.Errorf(models.ErrCodeInvalidInput, "at least one field is required")
	}
	var mgr *processor.Manager
	if len(req.Processors) > 0 {
		if mgr, err = processor.NewManagerFromSpecs(req.Processors); err != nil {
			return nil, err
		}
	}

	// ── 2. Fetch and parse ──────────────────────────────────────────
	fetchStart := time.Now()
	opts := append([]crawler.RequesterOption{crawler.WithMetrics(r.metrics)}, r.opts...)
	client, err := crawler.NewClient(ctx, req.URL, reqMode, parseMode, r.cfg, opts...)
	fetchMs := time.Since(fetchStart).Milliseconds()
	if err != nil {
		return nil, err
	}

	// ── 3. Extract and post-process ─────────────────────────────────
	extractStart := time.Now()
	raw, err := client.ExtractFields(req.BlockSelector, req.Fields)
	if err != nil {
		return nil, err
	}
	resp := &models.ExtractResponse{
		Success:    true,
		URL:        client.Address().String(),
		StatusCode: client.Response().Status(),
		Charset:    client.Response().Charset(),
		Attempts:   client.Attempts(),
		BlockCount: len(raw),
	}
	if mgr != nil {
		records, err := mgr.RunEach(raw)
		if err != nil {
			return nil, err
		}
		resp.Records = records
		resp.Keys = mgr.IDs()
	} else {
		resp.Fields = raw
		resp.Keys = fieldNames(req.Fields)
	}

	resp.Timing = models.TimingInfo{
		TotalMs:   time.Since(totalStart).Milliseconds(),
		FetchMs:   fetchMs,
		ExtractMs: time.Since(extractStart).Milliseconds(),
	}
	return resp, nil
}

func fieldNames(fields []models.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// normalize guarantees a *models.CrawlError.
func normalize(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCrawlError(models.ErrCodeTimeout, "extraction timed out", err)
	case models.CodeOf(err) != "":
		return err
	case errors.Is(err, context.Canceled):
		return models.NewCrawlError(models.ErrCodeTimeout, "extraction cancelled", err)
	}
	return models.NewCrawlError(models.ErrCodeInternal, "extraction failed", err)
}
