package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/blockcrawl/models"
)

// respondError writes err as a structured JSON error with the matching
// HTTP status.
func respondError(c *gin.Context, err error, resp *models.ExtractResponse) {
	ce := asCrawlError(err)
	if resp == nil {
		resp = &models.ExtractResponse{}
	}
	resp.Success = false
	resp.Error = ce.ToDetail()
	c.JSON(StatusFor(ce), resp)
}

func asCrawlError(err error) *models.CrawlError {
	var ce *models.CrawlError
	if errors.As(err, &ce) {
		return ce
	}
	return models.NewCrawlError(models.ErrCodeInternal, "internal error", err)
}

// specificCodes are checked anywhere in the error chain before the outer
// code decides, so a bad URL inside INIT_FAILED is still a client error.
var specificCodes = []string{
	models.ErrCodeInvalidFormat,
	models.ErrCodeProxyUnavailable,
	models.ErrCodeInvalidContent,
}

// StatusFor translates error codes to HTTP status codes.
func StatusFor(err error) int {
	for _, code := range specificCodes {
		if models.HasCode(err, code) {
			return statusForCode(code)
		}
	}
	return statusForCode(models.CodeOf(err))
}

func statusForCode(code string) int {
	switch code {
	case models.ErrCodeInvalidInput, models.ErrCodeInvalidFormat, models.ErrCodeInvalidSelector:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeInvalidContent, models.ErrCodeExtractFailed,
		models.ErrCodeDuplicateKey, models.ErrCodeDuplicateProcessor, models.ErrCodeEmptyManager:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeRetriesExhausted, models.ErrCodeInitFailed:
		return http.StatusBadGateway // 502
	case models.ErrCodeProxyUnavailable:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
