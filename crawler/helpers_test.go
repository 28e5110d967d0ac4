package crawler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/blockcrawl/config"
)

// step produces the outcome of one round trip.
type step func(*http.Request) (*http.Response, error)

// scriptedTransport replays steps in order and repeats the last one once
// the script runs out.
type scriptedTransport struct {
	mu    sync.Mutex
	steps []step
	reqs  []*http.Request
}

func script(steps ...step) *scriptedTransport {
	return &scriptedTransport{steps: steps}
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	i := len(s.reqs)
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i](req)
}

func (s *scriptedTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

func reply(status int, contentType, body string) step {
	return func(req *http.Request) (*http.Response, error) {
		h := http.Header{}
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		return &http.Response{
			StatusCode: status,
			Header:     h,
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	}
}

var errConnRefused = errors.New("connection refused")

func refuse() step {
	return func(*http.Request) (*http.Response, error) {
		return nil, errConnRefused
	}
}

func fastConfig() config.RequesterConfig {
	cfg := config.DefaultRequester()
	cfg.RetryDelay = time.Millisecond
	return cfg
}
