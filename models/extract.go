package models

// ExtractRequest is the payload for POST /api/v1/extract.
type ExtractRequest struct {
	// URL is the document to fetch. Required.
	URL string `json:"url" binding:"required"`

	// RequestMode selects the network path: "direct" (default) or
	// "anonymized" (through the local SOCKS5 proxy).
	RequestMode string `json:"request_mode,omitempty" binding:"omitempty,oneof=direct anonymized default tor"`

	// ParseMode selects the document grammar: "html" (default) or "xml".
	ParseMode string `json:"parse_mode,omitempty" binding:"omitempty,oneof=html xml HTML XML"`

	// BlockSelector is the XPath selecting the repeated blocks. Required.
	BlockSelector string `json:"block_selector" binding:"required"`

	// Fields are evaluated inside every block, in order. Required.
	Fields []Field `json:"fields" binding:"required,min=1,dive"`

	// Processors turn each block's raw fields into a record. When empty
	// the raw fields are returned as-is.
	Processors []ProcessorSpec `json:"processors,omitempty" binding:"omitempty,dive"`

	// MaxAge enables cache lookup for responses younger than this many
	// milliseconds. 0 disables caching.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`

	// WebhookURL switches the request to asynchronous delivery.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs webhook payloads with HMAC-SHA256.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ExtractRequest) Defaults() {
	if r.RequestMode == "" {
		r.RequestMode = "direct"
	}
	if r.ParseMode == "" {
		r.ParseMode = "html"
	}
}
