package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/blockcrawl/models"
)

const feed = `<root><item><title>Hello</title></item><item><title>World</title></item></root>`

func extractAll(t *testing.T, p *Parser, blockExpr, fieldExpr string) [][]string {
	t.Helper()
	blocks, err := p.Blocks(MustSelector(blockExpr))
	require.NoError(t, err)
	field := MustSelector(fieldExpr)
	var out [][]string
	for _, b := range blocks {
		frags, err := p.ExtractField(b, field)
		require.NoError(t, err)
		out = append(out, frags)
	}
	return out
}

func TestXMLBlocksInDocumentOrder(t *testing.T) {
	p, err := New(feed, ModeXML)
	require.NoError(t, err)

	got := extractAll(t, p, "//item", ".//title/text()")
	assert.Equal(t, [][]string{{"Hello"}, {"World"}}, got)
}

func TestFieldPathsRelativeToBlock(t *testing.T) {
	doc := `<root>` +
		`<sec id="s1"><item><title>Hello</title></item></sec>` +
		`<sec id="s2"><item><title>World</title></item></sec>` +
		`</root>`
	p, err := New(doc, ModeXML)
	require.NoError(t, err)

	tests := []struct {
		name string
		expr string
		want [][]string
	}{
		{"relative descendant", ".//title/text()", [][]string{{"Hello"}, {"World"}}},
		{"document descendant", "//title/text()", [][]string{{"Hello", "World"}, {"Hello", "World"}}},
		{"absolute path", "/root/sec/@id", [][]string{{"s1", "s2"}, {"s1", "s2"}}},
		{"parent axis", "../@id", [][]string{{"s1"}, {"s2"}}},
		{"ancestor axis", "ancestor::sec/@id", [][]string{{"s1"}, {"s2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractAll(t, p, "//item", tt.expr))
		})
	}
}

func TestBlockReusableAcrossFields(t *testing.T) {
	p, err := New(feed, ModeXML)
	require.NoError(t, err)
	blocks, err := p.Blocks(MustSelector("//item"))
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	sel := MustSelector("title/text()")
	for range 2 {
		got, err := p.ExtractField(blocks[1], sel)
		require.NoError(t, err)
		assert.Equal(t, []string{"World"}, got)
	}
}

func TestMalformedXMLRejectedButHTMLTolerated(t *testing.T) {
	broken := `<root><item><title>Hello</title></item>`

	_, err := New(broken, ModeXML)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidContent, models.CodeOf(err))

	p, err := New(broken, ModeHTML)
	require.NoError(t, err)
	got := extractAll(t, p, "//item", ".//title/text()")
	assert.Equal(t, [][]string{{"Hello"}}, got)
}

func TestEmptyXMLRejected(t *testing.T) {
	_, err := New("", ModeXML)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidContent, models.CodeOf(err))
}

func TestUnsupportedMode(t *testing.T) {
	_, err := New("<a/>", Mode(42))
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
}

func TestXMLDeclaredEncodingIgnored(t *testing.T) {
	doc := `<?xml version="1.0" encoding="ISO-8859-1"?><root><item><name>café</name></item></root>`
	p, err := New(doc, ModeXML)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"café"}}, extractAll(t, p, "//item", "name/text()"))
}

func TestXMLCDataText(t *testing.T) {
	doc := `<rss><item><description><![CDATA[<b>bold</b> text]]></description></item></rss>`
	p, err := New(doc, ModeXML)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"<b>bold</b> text"}}, extractAll(t, p, "//item", "description/text()"))
}

func TestExtractFieldResultKinds(t *testing.T) {
	doc := `<html><body><ul>
<li class="row"><a href="/one">One</a><span>1</span></li>
<li class="row"><a href="/two">Two</a></li>
</ul></body></html>`
	p, err := New(doc, ModeHTML)
	require.NoError(t, err)
	blocks, err := p.Blocks(MustSelector("//li[@class='row']"))
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	tests := []struct {
		name  string
		expr  string
		block int
		want  []string
	}{
		{"attribute", "a/@href", 0, []string{"/one"}},
		{"element markup", "a", 1, []string{`<a href="/two">Two</a>`}},
		{"text", "a/text()", 1, []string{"Two"}},
		{"no match", "span/text()", 1, []string{}},
		{"number", "count(.//a)", 0, []string{"1"}},
		{"string", "string(a)", 0, []string{"One"}},
		{"boolean", "boolean(span)", 1, []string{"false"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ExtractField(blocks[tt.block], MustSelector(tt.expr))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBlocksRejectsNonElementResults(t *testing.T) {
	p, err := New(feed, ModeXML)
	require.NoError(t, err)

	for _, expr := range []string{"count(//item)", "//title/text()", "string(//title)"} {
		t.Run(expr, func(t *testing.T) {
			_, err := p.Blocks(MustSelector(expr))
			require.Error(t, err)
			assert.Equal(t, models.ErrCodeInvalidSelector, models.CodeOf(err))
		})
	}
}

func TestBlocksNoMatchIsEmpty(t *testing.T) {
	p, err := New(feed, ModeXML)
	require.NoError(t, err)
	blocks, err := p.Blocks(MustSelector("//entry"))
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestUncompiledSelector(t *testing.T) {
	p, err := New(feed, ModeXML)
	require.NoError(t, err)
	_, err = p.Blocks(Selector{})
	assert.Equal(t, models.ErrCodeInvalidSelector, models.CodeOf(err))
}

func TestBlockTextAndMarkup(t *testing.T) {
	p, err := New(feed, ModeXML)
	require.NoError(t, err)
	blocks, err := p.Blocks(MustSelector("//item"))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "World", blocks[1].Text())
	assert.Equal(t, "<item><title>World</title></item>", blocks[1].Markup())
}

func TestForeignBlockRejected(t *testing.T) {
	x, err := New(feed, ModeXML)
	require.NoError(t, err)
	h, err := New("<p>x</p>", ModeHTML)
	require.NoError(t, err)
	blocks, err := x.Blocks(MustSelector("//item"))
	require.NoError(t, err)

	_, err = h.ExtractField(blocks[0], MustSelector("title"))
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
}

func TestBlockFromAnotherDocumentRejected(t *testing.T) {
	a, err := New(feed, ModeXML)
	require.NoError(t, err)
	b, err := New(feed, ModeXML)
	require.NoError(t, err)
	blocks, err := a.Blocks(MustSelector("//item"))
	require.NoError(t, err)

	_, err = b.ExtractField(blocks[0], MustSelector("title"))
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
}
