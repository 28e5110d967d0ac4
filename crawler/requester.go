package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/use-agent/blockcrawl/config"
	"github.com/use-agent/blockcrawl/metrics"
	"github.com/use-agent/blockcrawl/models"
)

// RequestMode selects the network path of a fetch.
type RequestMode int

const (
	// ModeDirect connects straight to the target.
	ModeDirect RequestMode = iota + 1
	// ModeAnonymized tunnels every attempt through the local SOCKS5 proxy.
	ModeAnonymized
)

func (m RequestMode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeAnonymized:
		return "anonymized"
	}
	return "unknown"
}

// ParseRequestMode maps a mode name to a RequestMode. "default" and "tor"
// are accepted as aliases.
func ParseRequestMode(name string) (RequestMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "direct", "default":
		return ModeDirect, nil
	case "anonymized", "tor":
		return ModeAnonymized, nil
	}
	return 0, models.Errorf(models.ErrCodeInvalidInput, "unsupported request mode '%s'", name)
}

var errBadStatus = errors.New("unexpected status")
var errInvalidContent = errors.New("response body matched an invalid marker")

// Requester fetches one Address with a bounded number of attempts.
// It is not safe for concurrent use.
type Requester struct {
	addr      Address
	mode      RequestMode
	cfg       config.RequesterConfig
	transport http.RoundTripper
	probe     ProxyProbe
	metrics   *metrics.Metrics

	resp     Response
	hasResp  bool
	attempts int
}

// RequesterOption configures a Requester.
type RequesterOption func(*Requester)

// WithTransport replaces the network transport. The proxy setting of the
// request mode is not applied to a replaced transport.
func WithTransport(rt http.RoundTripper) RequesterOption {
	return func(r *Requester) { r.transport = rt }
}

// WithProxyProbe replaces the check that the anonymizing proxy is up.
func WithProxyProbe(p ProxyProbe) RequesterOption {
	return func(r *Requester) { r.probe = p }
}

// WithMetrics records attempt outcomes and fetch durations on m.
func WithMetrics(m *metrics.Metrics) RequesterOption {
	return func(r *Requester) { r.metrics = m }
}

// NewRequester creates a Requester. No network activity happens until Do.
func NewRequester(addr Address, mode RequestMode, cfg config.RequesterConfig, opts ...RequesterOption) *Requester {
	r := &Requester{
		addr:  addr,
		mode:  mode,
		cfg:   cfg,
		probe: SocketProbe{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Do fetches the address. Transport errors, non-200 statuses and bodies
// containing an invalid marker all count as failed attempts; after each
// failed attempt but the last it waits the configured retry delay.
func (r *Requester) Do(ctx context.Context) (Response, error) {
	r.resp, r.hasResp, r.attempts = Response{}, false, 0
	start := time.Now()
	defer func() { r.metrics.ObserveFetch(time.Since(start)) }()

	var proxyAddr string
	if r.mode == ModeAnonymized {
		if err := r.checkProxy(ctx); err != nil {
			return Response{}, err
		}
		proxyAddr = proxyAddress(r.cfg.ProxyHost, r.cfg.ProxyPort)
	}

	client, err := r.httpClient(proxyAddr)
	if err != nil {
		return Response{}, models.NewCrawlError(models.ErrCodeInternal, "build transport", err)
	}
	defer client.CloseIdleConnections()

	maxAttempts := r.cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		r.attempts = attempt
		resp, err := r.attempt(ctx, client)
		if err == nil {
			r.resp, r.hasResp = resp, true
			slog.Debug("fetch succeeded",
				"url", r.addr.String(),
				"attempt", attempt,
				"status", resp.Status(),
				"charset", resp.Charset(),
			)
			return resp, nil
		}
		lastErr = err
		slog.Warn("fetch attempt failed",
			"url", r.addr.String(),
			"mode", r.mode.String(),
			"attempt", attempt,
			"error", err,
		)
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		if attempt < maxAttempts {
			if err := sleep(ctx, r.cfg.RetryDelay); err != nil {
				return Response{}, err
			}
		}
	}

	return Response{}, models.NewCrawlError(models.ErrCodeRetriesExhausted,
		fmt.Sprintf("Failed to get valid response after %d retries", maxAttempts), lastErr)
}

// Response returns the response stored by the last successful Do.
func (r *Requester) Response() (Response, bool) {
	return r.resp, r.hasResp
}

// Attempts reports how many attempts the last Do made.
func (r *Requester) Attempts() int { return r.attempts }

func (r *Requester) checkProxy(ctx context.Context) error {
	ok, err := r.probe.Listening(ctx, r.cfg.ProxyPort)
	if err != nil {
		return models.NewCrawlError(models.ErrCodeProxyUnavailable,
			fmt.Sprintf("could not check proxy port %d", r.cfg.ProxyPort), err)
	}
	if !ok {
		return models.Errorf(models.ErrCodeProxyUnavailable,
			"anonymized mode is enabled but port %d is not listening", r.cfg.ProxyPort)
	}
	return nil
}

func (r *Requester) httpClient(proxyAddr string) (*http.Client, error) {
	rt := r.transport
	if rt == nil {
		t, err := newTransport(proxyAddr, r.cfg.Timeout)
		if err != nil {
			return nil, err
		}
		rt = t
	}
	return &http.Client{
		Transport: rt,
		Timeout:   r.cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}, nil
}

func (r *Requester) attempt(ctx context.Context, client *http.Client) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL(r.addr.String()), nil)
	if err != nil {
		r.metrics.ObserveAttempt(metrics.OutcomeTransportError)
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	httpResp, err := client.Do(req)
	if err != nil {
		r.metrics.ObserveAttempt(metrics.OutcomeTransportError)
		return Response{}, err
	}
	defer httpResp.Body.Close()

	limit := r.cfg.MaxBodyBytes
	if limit <= 0 {
		limit = config.DefaultRequester().MaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
	if err != nil {
		r.metrics.ObserveAttempt(metrics.OutcomeTransportError)
		return Response{}, fmt.Errorf("read body: %w", err)
	}
	truncated := int64(len(body)) > limit
	if truncated {
		body = body[:limit]
		slog.Warn("response body truncated",
			"url", r.addr.String(),
			"limit_bytes", limit,
		)
	}

	resp := NewResponse(httpResp.StatusCode, httpResp.Header, body, r.cfg.InvalidMarkers)
	resp.truncated = truncated
	if resp.Status() != http.StatusOK {
		r.metrics.ObserveAttempt(metrics.OutcomeBadStatus)
		return Response{}, fmt.Errorf("%w %d", errBadStatus, resp.Status())
	}
	if resp.IsInvalid() {
		r.metrics.ObserveAttempt(metrics.OutcomeInvalidContent)
		return Response{}, errInvalidContent
	}
	r.metrics.ObserveAttempt(metrics.OutcomeOK)
	return resp, nil
}

// requestURL adds a scheme to scheme-less addresses such as "example.com".
func requestURL(raw string) string {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
