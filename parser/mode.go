package parser

import (
	"strings"

	"github.com/use-agent/blockcrawl/models"
)

// Mode selects the grammar a document is parsed with.
type Mode int

const (
	ModeHTML Mode = iota + 1
	ModeXML
)

func (m Mode) String() string {
	switch m {
	case ModeHTML:
		return "html"
	case ModeXML:
		return "xml"
	}
	return "unknown"
}

// ParseMode maps "html" or "xml" (any case) to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "html":
		return ModeHTML, nil
	case "xml":
		return ModeXML, nil
	}
	return 0, models.Errorf(models.ErrCodeInvalidInput, "unsupported parse mode '%s'", name)
}
