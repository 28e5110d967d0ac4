package parser

import (
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// Block is one node matched by a block selector. It borrows from the tree of
// the Parser that produced it.
type Block struct {
	mode Mode
	h    *html.Node
	x    *xmlquery.Node

	// nav is positioned on the block but rooted at the document.
	nav xpath.NodeNavigator
}

// Text returns the concatenated text content of the block.
func (b Block) Text() string {
	switch {
	case b.h != nil:
		return htmlquery.InnerText(b.h)
	case b.x != nil:
		return b.x.InnerText()
	}
	return ""
}

// Markup returns the serialized block including its own tag.
func (b Block) Markup() string {
	switch {
	case b.h != nil:
		return htmlquery.OutputHTML(b.h, true)
	case b.x != nil:
		return b.x.OutputXML(true)
	}
	return ""
}

func (b Block) empty() bool { return b.nav == nil }

// navigator returns a fresh context for one evaluation: "." is the block,
// while absolute paths and "//" start from the document root.
func (b Block) navigator() xpath.NodeNavigator { return b.nav.Copy() }
