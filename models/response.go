package models

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	// Success indicates whether the run completed without errors.
	Success bool `json:"success"`

	// URL is the address that was fetched.
	URL string `json:"url"`

	// StatusCode is the HTTP status of the accepted response.
	StatusCode int `json:"status_code,omitempty"`

	// Charset is the character encoding the body was decoded with.
	Charset string `json:"charset,omitempty"`

	// Attempts is the number of fetch attempts made.
	Attempts int `json:"attempts,omitempty"`

	// BlockCount is the number of blocks the block selector matched.
	BlockCount int `json:"block_count"`

	// Fields holds the raw fields per block when no processors were given.
	Fields []RawFields `json:"fields,omitempty"`

	// Records holds one merged record per block when processors were given.
	Records []Record `json:"records,omitempty"`

	// Keys lists the keys of each field map or record in output order:
	// processor registration order, or field order without processors.
	Keys []string `json:"keys,omitempty"`

	Timing TimingInfo `json:"timing"`

	// CacheStatus is "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// JobID is set for asynchronous (webhook) requests.
	JobID string `json:"job_id,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	TotalMs   int64 `json:"total_ms"`
	FetchMs   int64 `json:"fetch_ms"`
	ExtractMs int64 `json:"extract_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy"
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// JobAccepted is returned for asynchronous extraction requests.
type JobAccepted struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
}
