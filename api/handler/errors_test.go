package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/use-agent/blockcrawl/models"
)

func TestStatusFor(t *testing.T) {
	wrap := func(inner error) error {
		return models.NewCrawlError(models.ErrCodeInitFailed, "Failed to initialize", inner)
	}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", models.Errorf(models.ErrCodeInvalidInput, "x"), http.StatusBadRequest},
		{"bad url inside init", wrap(models.Errorf(models.ErrCodeInvalidFormat, "x")), http.StatusBadRequest},
		{"proxy down inside init", wrap(models.Errorf(models.ErrCodeProxyUnavailable, "x")), http.StatusServiceUnavailable},
		{"malformed xml inside init", wrap(models.Errorf(models.ErrCodeInvalidContent, "x")), http.StatusUnprocessableEntity},
		{"retries exhausted inside init", wrap(models.Errorf(models.ErrCodeRetriesExhausted, "x")), http.StatusBadGateway},
		{"extract failed", models.Errorf(models.ErrCodeExtractFailed, "x"), http.StatusUnprocessableEntity},
		{"duplicate key", models.Errorf(models.ErrCodeDuplicateKey, "x"), http.StatusUnprocessableEntity},
		{"timeout", models.Errorf(models.ErrCodeTimeout, "x"), http.StatusGatewayTimeout},
		{"plain error", errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
