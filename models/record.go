package models

import "strings"

// RawFields maps a field name to the string fragments its selector matched
// inside one block. Fields that matched nothing hold an empty slice.
type RawFields map[string][]string

// Record is the merged output of every registered post-processor for one
// block, keyed by each processor's output key.
type Record map[string]any

// Field names one sub-selector evaluated against every block.
type Field struct {
	Name     string `json:"name" binding:"required"`
	Selector string `json:"selector" binding:"required"`
}

// ProcessorSpec declaratively describes one built-in post-processor.
type ProcessorSpec struct {
	// Type is one of "first", "join", "all", "markdown", "select",
	// "readable", "fingerprint".
	Type string `json:"type" binding:"required"`

	// ID is the unique id of the processor and the key it writes.
	ID string `json:"id" binding:"required"`

	// Field is the raw field the processor reads.
	Field string `json:"field" binding:"required"`

	// TrimPrefix drops this many leading characters ("first" only).
	TrimPrefix int `json:"trim_prefix,omitempty" binding:"omitempty,min=0"`

	// Separator joins fragments ("join" only). Default: single space.
	Separator string `json:"separator,omitempty"`

	// CSS is the sub-selector applied to the fragment markup ("select" only).
	CSS string `json:"css,omitempty"`

	// BaseURL resolves relative links ("markdown" and "readable").
	BaseURL string `json:"base_url,omitempty"`

	// Structure fingerprints tag structure instead of text ("fingerprint" only).
	Structure bool `json:"structure,omitempty"`
}

// ParseField reads the compact "name=xpath" form, split at the first '='.
func ParseField(raw string) (Field, error) {
	name, selector, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.TrimSpace(selector) == "" {
		return Field{}, Errorf(ErrCodeInvalidInput, "Invalid field '%s': expected name=xpath", raw)
	}
	return Field{Name: name, Selector: selector}, nil
}
