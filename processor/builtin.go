package processor

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/blockcrawl/models"
	"github.com/use-agent/blockcrawl/simhash"
)

// lookup returns the fragments of field, failing when the block has no
// such field.
func lookup(id string, fields models.RawFields, field string) ([]string, error) {
	frags, ok := fields[field]
	if !ok {
		return nil, models.Errorf(models.ErrCodeInvalidInput, "processor '%s': block has no field '%s'", id, field)
	}
	return frags, nil
}

// First yields the first fragment of Field with TrimPrefix leading
// characters removed, or "" when there is nothing left.
type First struct {
	ProcessorID string
	Field       string
	TrimPrefix  int
}

func (p First) ID() string { return p.ProcessorID }

func (p First) Run(fields models.RawFields) (string, any, error) {
	frags, err := lookup(p.ProcessorID, fields, p.Field)
	if err != nil {
		return "", nil, err
	}
	if len(frags) == 0 {
		return p.ProcessorID, "", nil
	}
	r := []rune(frags[0])
	if p.TrimPrefix >= len(r) {
		return p.ProcessorID, "", nil
	}
	return p.ProcessorID, string(r[max(p.TrimPrefix, 0):]), nil
}

// Join yields all fragments of Field, whitespace-collapsed and joined with
// Separator (a single space when empty).
type Join struct {
	ProcessorID string
	Field       string
	Separator   string
}

func (p Join) ID() string { return p.ProcessorID }

func (p Join) Run(fields models.RawFields) (string, any, error) {
	frags, err := lookup(p.ProcessorID, fields, p.Field)
	if err != nil {
		return "", nil, err
	}
	sep := p.Separator
	if sep == "" {
		sep = " "
	}
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if s := strings.Join(strings.Fields(f), " "); s != "" {
			parts = append(parts, s)
		}
	}
	return p.ProcessorID, strings.Join(parts, sep), nil
}

// All yields a copy of the fragment list of Field.
type All struct {
	ProcessorID string
	Field       string
}

func (p All) ID() string { return p.ProcessorID }

func (p All) Run(fields models.RawFields) (string, any, error) {
	frags, err := lookup(p.ProcessorID, fields, p.Field)
	if err != nil {
		return "", nil, err
	}
	return p.ProcessorID, append([]string{}, frags...), nil
}

// mdConverter is goroutine-safe and shared by all Markdown processors.
var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(
			table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
		),
	),
)

// Markdown converts the markup fragments of Field to Markdown. Relative
// links resolve against BaseURL when set.
type Markdown struct {
	ProcessorID string
	Field       string
	BaseURL     string
}

func (p Markdown) ID() string { return p.ProcessorID }

func (p Markdown) Run(fields models.RawFields) (string, any, error) {
	frags, err := lookup(p.ProcessorID, fields, p.Field)
	if err != nil {
		return "", nil, err
	}
	var opts []converter.ConvertOptionFunc
	if p.BaseURL != "" {
		opts = append(opts, converter.WithDomain(p.BaseURL))
	}
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		md, err := mdConverter.ConvertString(f, opts...)
		if err != nil {
			return "", nil, models.NewCrawlError(models.ErrCodeExtractFailed,
				"processor '"+p.ProcessorID+"': markdown conversion", err)
		}
		if md = strings.TrimSpace(md); md != "" {
			parts = append(parts, md)
		}
	}
	return p.ProcessorID, strings.Join(parts, "\n\n"), nil
}

// Select applies the CSS selector to the markup of the first fragment of
// Field and yields the trimmed text of every match.
type Select struct {
	ProcessorID string
	Field       string
	CSS         string
}

func (p Select) ID() string { return p.ProcessorID }

func (p Select) Run(fields models.RawFields) (string, any, error) {
	frags, err := lookup(p.ProcessorID, fields, p.Field)
	if err != nil {
		return "", nil, err
	}
	sel, err := cascadia.Compile(p.CSS)
	if err != nil {
		return "", nil, models.NewCrawlError(models.ErrCodeInvalidSelector,
			"processor '"+p.ProcessorID+"': invalid CSS selector '"+p.CSS+"'", err)
	}
	out := []string{}
	if len(frags) == 0 {
		return p.ProcessorID, out, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(frags[0]))
	if err != nil {
		return "", nil, models.NewCrawlError(models.ErrCodeExtractFailed,
			"processor '"+p.ProcessorID+"': parse fragment", err)
	}
	doc.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return p.ProcessorID, out, nil
}

// Readable yields the main text of the markup fragments of Field as found
// by the readability algorithm, falling back to their plain text.
type Readable struct {
	ProcessorID string
	Field       string
	BaseURL     string
}

func (p Readable) ID() string { return p.ProcessorID }

func (p Readable) Run(fields models.RawFields) (string, any, error) {
	frags, err := lookup(p.ProcessorID, fields, p.Field)
	if err != nil {
		return "", nil, err
	}
	if len(frags) == 0 {
		return p.ProcessorID, "", nil
	}
	markup := strings.Join(frags, "\n")

	pageURL := &nurl.URL{}
	if p.BaseURL != "" {
		if u, err := nurl.Parse(p.BaseURL); err == nil {
			pageURL = u
		}
	}
	article, err := readability.FromReader(strings.NewReader(markup), pageURL)
	if err == nil {
		if text := strings.TrimSpace(article.TextContent); text != "" {
			return p.ProcessorID, collapse(text), nil
		}
	} else {
		slog.Debug("readability failed, using plain text", "processor", p.ProcessorID, "error", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", nil, models.NewCrawlError(models.ErrCodeExtractFailed,
			"processor '"+p.ProcessorID+"': parse fragment", err)
	}
	return p.ProcessorID, collapse(doc.Text()), nil
}

// Fingerprint yields the SimHash of the text of Field, or of its tag
// structure when Structure is set, as 16 hex digits.
type Fingerprint struct {
	ProcessorID string
	Field       string
	Structure   bool
}

func (p Fingerprint) ID() string { return p.ProcessorID }

func (p Fingerprint) Run(fields models.RawFields) (string, any, error) {
	frags, err := lookup(p.ProcessorID, fields, p.Field)
	if err != nil {
		return "", nil, err
	}
	var fp uint64
	if p.Structure {
		fp = simhash.FingerprintStructure(strings.Join(frags, ""))
	} else {
		fp = simhash.FingerprintAll(frags)
	}
	return p.ProcessorID, simhash.Hex(fp), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
