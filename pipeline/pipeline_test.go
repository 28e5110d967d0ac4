package pipeline

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/blockcrawl/config"
	"github.com/use-agent/blockcrawl/crawler"
	"github.com/use-agent/blockcrawl/metrics"
	"github.com/use-agent/blockcrawl/models"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func serve(status int, body string, calls *atomic.Int32) crawler.RequesterOption {
	return crawler.WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if calls != nil {
			calls.Add(1)
		}
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": {"application/xml"}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    r,
		}, nil
	}))
}

func testConfig() config.RequesterConfig {
	cfg := config.DefaultRequester()
	cfg.RetryDelay = time.Millisecond
	return cfg
}

const feed = `<root><item><title>Hello</title></item><item><title>World</title></item></root>`

func baseRequest() *models.ExtractRequest {
	return &models.ExtractRequest{
		URL:           "https://example.com/feed",
		ParseMode:     "xml",
		BlockSelector: "//item",
		Fields:        []models.Field{{Name: "t", Selector: ".//title/text()"}},
	}
}

func TestRunRawFields(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := NewRunner(testConfig(), m, serve(200, feed, nil))

	resp, err := r.Run(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.BlockCount)
	assert.Equal(t, []models.RawFields{{"t": {"Hello"}}, {"t": {"World"}}}, resp.Fields)
	assert.Nil(t, resp.Records)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1, resp.Attempts)
	assert.Equal(t, []string{"t"}, resp.Keys)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractRuns.WithLabelValues("ok")))
}

func TestRunWithProcessors(t *testing.T) {
	req := baseRequest()
	req.Processors = []models.ProcessorSpec{
		{Type: "first", ID: "title", Field: "t"},
		{Type: "fingerprint", ID: "fp", Field: "t"},
	}
	resp, err := NewRunner(testConfig(), nil, serve(200, feed, nil)).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "Hello", resp.Records[0]["title"])
	assert.Equal(t, "World", resp.Records[1]["title"])
	assert.Len(t, resp.Records[0]["fp"], 16)
	assert.Equal(t, []string{"title", "fp"}, resp.Keys)
	assert.Nil(t, resp.Fields)
}

func TestRunInvalidProcessorFailsBeforeFetch(t *testing.T) {
	var calls atomic.Int32
	req := baseRequest()
	req.Processors = []models.ProcessorSpec{{Type: "bogus", ID: "x", Field: "t"}}

	_, err := NewRunner(testConfig(), nil, serve(200, feed, &calls)).Run(context.Background(), req)
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
	assert.Equal(t, int32(0), calls.Load())
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.ExtractRequest)
		status   int
		wantCode string
	}{
		{"bad parse mode", func(r *models.ExtractRequest) { r.ParseMode = "json" }, 200, models.ErrCodeInvalidInput},
		{"bad request mode", func(r *models.ExtractRequest) { r.RequestMode = "vpn" }, 200, models.ErrCodeInvalidInput},
		{"no fields", func(r *models.ExtractRequest) { r.Fields = nil }, 200, models.ErrCodeInvalidInput},
		{"fetch fails", func(*models.ExtractRequest) {}, 500, models.ErrCodeInitFailed},
		{"bad block selector", func(r *models.ExtractRequest) { r.BlockSelector = "//[" }, 200, models.ErrCodeExtractFailed},
		{"processor missing field", func(r *models.ExtractRequest) {
			r.Processors = []models.ProcessorSpec{{Type: "first", ID: "x", Field: "nope"}}
		}, 200, models.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())
			req := baseRequest()
			tt.mutate(req)
			_, err := NewRunner(testConfig(), m, serve(tt.status, feed, nil)).Run(context.Background(), req)
			assert.Equal(t, tt.wantCode, models.CodeOf(err))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractRuns.WithLabelValues(tt.wantCode)))
		})
	}
}

func TestRunTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.RetryDelay = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewRunner(cfg, nil, serve(500, "", nil)).Run(ctx, baseRequest())
	assert.Equal(t, models.ErrCodeTimeout, models.CodeOf(err))
}
