package crawler

import (
	"regexp"

	"github.com/use-agent/blockcrawl/models"
)

// addressPattern accepts an optional scheme and "www." prefix followed by a
// two- or three-label host whose last label is alphabetic. It is searched,
// not anchored.
var addressPattern = regexp.MustCompile(`(?:https?://)?(?:www\.)?([a-zA-Z0-9-]+\.[a-zA-Z0-9-]+\.[a-zA-Z]{2,}|[a-zA-Z0-9-]+\.[a-zA-Z]{2,})(?:/|$)`)

// Address is a target URL string that passed validation. The zero value is
// not a valid address.
type Address struct {
	raw string
}

// NewAddress validates raw and wraps it unchanged.
func NewAddress(raw string) (Address, error) {
	if !addressPattern.MatchString(raw) {
		return Address{}, models.Errorf(models.ErrCodeInvalidFormat, "Invalid URL format: %s", raw)
	}
	return Address{raw: raw}, nil
}

// String returns the address exactly as supplied.
func (a Address) String() string { return a.raw }
