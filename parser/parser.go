package parser

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/use-agent/blockcrawl/models"
)

// snippetLen bounds how much of a rejected document is echoed in errors.
const snippetLen = 120

// Parser owns one parsed document tree. Blocks obtained from a Parser
// stay valid for the Parser's lifetime.
type Parser struct {
	mode     Mode
	htmlRoot *html.Node
	xmlRoot  *xmlquery.Node
}

// New parses content according to mode. HTML parsing is lenient and only
// fails on reader errors; XML parsing is strict.
func New(content string, mode Mode) (*Parser, error) {
	switch mode {
	case ModeHTML:
		doc, err := htmlquery.Parse(strings.NewReader(content))
		if err != nil {
			return nil, models.NewCrawlError(models.ErrCodeInvalidContent, "unparseable HTML", err)
		}
		return &Parser{mode: mode, htmlRoot: doc}, nil
	case ModeXML:
		doc, err := parseXML(content)
		if err != nil {
			return nil, models.NewCrawlError(models.ErrCodeInvalidContent,
				fmt.Sprintf("malformed XML near %q", snippet(content)), err)
		}
		return &Parser{mode: mode, xmlRoot: doc}, nil
	}
	return nil, models.Errorf(models.ErrCodeInvalidInput, "unsupported parse mode %d", int(mode))
}

func parseXML(content string) (doc *xmlquery.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xml parser panic: %v", r)
		}
	}()
	return xmlquery.ParseWithOptions(strings.NewReader(content), xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{
			Strict: true,
			// Content is already decoded; ignore the declared encoding.
			CharsetReader: func(_ string, input io.Reader) (io.Reader, error) {
				return input, nil
			},
		},
	})
}

// Mode reports the grammar the document was parsed with.
func (p *Parser) Mode() Mode { return p.mode }

// Blocks evaluates sel against the whole document and returns the matched
// element nodes in document order. A selector yielding scalars, text or
// attributes is rejected.
func (p *Parser) Blocks(sel Selector) (blocks []Block, err error) {
	if !sel.valid() {
		return nil, models.Errorf(models.ErrCodeInvalidSelector, "uncompiled selector")
	}
	defer func() {
		if r := recover(); r != nil {
			blocks = nil
			err = models.NewCrawlError(models.ErrCodeInvalidSelector,
				fmt.Sprintf("XPath '%s' failed to evaluate", sel.expr), fmt.Errorf("%v", r))
		}
	}()

	iter, ok := sel.compiled.Evaluate(p.rootNavigator()).(*xpath.NodeIterator)
	if !ok {
		return nil, models.Errorf(models.ErrCodeInvalidSelector,
			"XPath '%s' must select element nodes, not a scalar value", sel.expr)
	}
	for iter.MoveNext() {
		nav := iter.Current()
		switch nav.NodeType() {
		case xpath.ElementNode, xpath.RootNode:
		default:
			return nil, models.Errorf(models.ErrCodeInvalidSelector,
				"XPath '%s' must select element nodes", sel.expr)
		}
		blocks = append(blocks, p.blockAt(nav))
	}
	slog.Debug("blocks selected", "selector", sel.expr, "count", len(blocks))
	return blocks, nil
}

// ExtractField evaluates sel with b as the context node. Relative paths start
// at the block; absolute and "//" paths start at the document root. Element
// matches yield their serialized markup; text, attribute and comment matches
// yield their value; scalar results yield a single fragment.
func (p *Parser) ExtractField(b Block, sel Selector) (frags []string, err error) {
	if !sel.valid() {
		return nil, models.Errorf(models.ErrCodeInvalidSelector, "uncompiled selector")
	}
	if b.mode != p.mode || b.empty() || !p.rootNavigator().MoveTo(b.nav) {
		return nil, models.Errorf(models.ErrCodeInvalidInput, "block does not belong to this document")
	}
	defer func() {
		if r := recover(); r != nil {
			frags = nil
			err = models.NewCrawlError(models.ErrCodeInvalidSelector,
				fmt.Sprintf("XPath '%s' failed to evaluate", sel.expr), fmt.Errorf("%v", r))
		}
	}()

	frags = []string{}
	switch v := sel.compiled.Evaluate(b.navigator()).(type) {
	case *xpath.NodeIterator:
		for v.MoveNext() {
			frags = append(frags, fragment(v.Current()))
		}
	case string:
		frags = append(frags, v)
	case float64:
		frags = append(frags, strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		frags = append(frags, strconv.FormatBool(v))
	default:
		return nil, models.Errorf(models.ErrCodeInvalidSelector,
			"XPath '%s' produced unsupported result %T", sel.expr, v)
	}
	return frags, nil
}

func (p *Parser) rootNavigator() xpath.NodeNavigator {
	if p.mode == ModeXML {
		return xmlquery.CreateXPathNavigator(p.xmlRoot)
	}
	return htmlquery.CreateXPathNavigator(p.htmlRoot)
}

func (p *Parser) blockAt(nav xpath.NodeNavigator) Block {
	switch n := nav.(type) {
	case *htmlquery.NodeNavigator:
		return Block{mode: ModeHTML, h: n.Current(), nav: n.Copy()}
	case *xmlquery.NodeNavigator:
		return Block{mode: ModeXML, x: n.Current(), nav: n.Copy()}
	}
	return Block{}
}

// fragment renders the node the navigator is positioned on.
func fragment(nav xpath.NodeNavigator) string {
	switch n := nav.(type) {
	case *htmlquery.NodeNavigator:
		switch nav.NodeType() {
		case xpath.ElementNode:
			return htmlquery.OutputHTML(n.Current(), true)
		case xpath.RootNode:
			return htmlquery.OutputHTML(n.Current(), false)
		}
	case *xmlquery.NodeNavigator:
		cur := n.Current()
		switch nav.NodeType() {
		case xpath.ElementNode:
			return cur.OutputXML(true)
		case xpath.RootNode:
			return cur.OutputXML(false)
		case xpath.TextNode:
			if cur.Type == xmlquery.CharDataNode {
				return cur.Data
			}
		}
	}
	return nav.Value()
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > snippetLen {
		return s[:snippetLen] + "..."
	}
	return s
}
