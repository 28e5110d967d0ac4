package processor

import (
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/use-agent/blockcrawl/models"
)

// Build constructs a built-in processor from its declarative description.
func Build(spec models.ProcessorSpec) (Processor, error) {
	if spec.ID == "" {
		return nil, models.Errorf(models.ErrCodeInvalidInput, "processor of type '%s' has no id", spec.Type)
	}
	if spec.Field == "" {
		return nil, models.Errorf(models.ErrCodeInvalidInput, "processor '%s' has no field", spec.ID)
	}

	switch strings.ToLower(spec.Type) {
	case "first":
		if spec.TrimPrefix < 0 {
			return nil, models.Errorf(models.ErrCodeInvalidInput, "processor '%s': negative trim_prefix", spec.ID)
		}
		return First{ProcessorID: spec.ID, Field: spec.Field, TrimPrefix: spec.TrimPrefix}, nil
	case "join":
		return Join{ProcessorID: spec.ID, Field: spec.Field, Separator: spec.Separator}, nil
	case "all":
		return All{ProcessorID: spec.ID, Field: spec.Field}, nil
	case "markdown":
		return Markdown{ProcessorID: spec.ID, Field: spec.Field, BaseURL: spec.BaseURL}, nil
	case "select":
		if _, err := cascadia.Compile(spec.CSS); err != nil {
			return nil, models.NewCrawlError(models.ErrCodeInvalidSelector,
				"processor '"+spec.ID+"': invalid CSS selector '"+spec.CSS+"'", err)
		}
		return Select{ProcessorID: spec.ID, Field: spec.Field, CSS: spec.CSS}, nil
	case "readable":
		return Readable{ProcessorID: spec.ID, Field: spec.Field, BaseURL: spec.BaseURL}, nil
	case "fingerprint":
		return Fingerprint{ProcessorID: spec.ID, Field: spec.Field, Structure: spec.Structure}, nil
	}
	return nil, models.Errorf(models.ErrCodeInvalidInput, "unknown processor type '%s'", spec.Type)
}

// NewManagerFromSpecs builds and registers every spec in order.
func NewManagerFromSpecs(specs []models.ProcessorSpec) (*Manager, error) {
	m := NewManager()
	for _, s := range specs {
		p, err := Build(s)
		if err != nil {
			return nil, err
		}
		if err := m.Add(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ParseSpec reads the compact form "type:id:field[:arg]". The optional arg
// is the trim prefix for "first", the separator for "join", the CSS selector
// for "select", the base URL for "markdown" and "readable", and "structure"
// for "fingerprint".
func ParseSpec(s string) (models.ProcessorSpec, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return models.ProcessorSpec{}, models.Errorf(models.ErrCodeInvalidInput,
			"processor '%s' must look like type:id:field[:arg]", s)
	}
	spec := models.ProcessorSpec{
		Type:  strings.ToLower(parts[0]),
		ID:    parts[1],
		Field: parts[2],
	}
	if len(parts) < 4 {
		return spec, nil
	}
	arg := parts[3]
	switch spec.Type {
	case "first":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return models.ProcessorSpec{}, models.NewCrawlError(models.ErrCodeInvalidInput,
				"processor '"+spec.ID+"': trim prefix must be an integer", err)
		}
		spec.TrimPrefix = n
	case "join":
		spec.Separator = arg
	case "select":
		spec.CSS = arg
	case "markdown", "readable":
		spec.BaseURL = arg
	case "fingerprint":
		spec.Structure = arg == "structure"
	}
	return spec, nil
}
