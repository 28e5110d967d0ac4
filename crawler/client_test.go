package crawler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/blockcrawl/models"
	"github.com/use-agent/blockcrawl/parser"
)

const itemsXML = `<root><item><title>Hello</title></item><item><title>World</title></item></root>`

func newTestClient(t *testing.T, body string, mode parser.Mode) *Client {
	t.Helper()
	rt := script(reply(200, "application/xml; charset=utf-8", body))
	c, err := NewClient(context.Background(), "https://example.com/feed", ModeDirect, mode, fastConfig(), WithTransport(rt))
	require.NoError(t, err)
	return c
}

func TestClientEndToEnd(t *testing.T) {
	c := newTestClient(t, itemsXML, parser.ModeXML)

	got, err := c.ExtractFields("//item", []models.Field{{Name: "t", Selector: ".//title/text()"}})
	require.NoError(t, err)
	assert.Equal(t, []models.RawFields{{"t": {"Hello"}}, {"t": {"World"}}}, got)
	assert.Equal(t, "https://example.com/feed", c.Address().String())
	assert.Equal(t, 200, c.Response().Status())
	assert.Equal(t, 1, c.Attempts())
}

func TestClientInitFailures(t *testing.T) {
	t.Run("bad address", func(t *testing.T) {
		_, err := NewClient(context.Background(), "not a url", ModeDirect, parser.ModeHTML, fastConfig(),
			WithTransport(script(reply(200, "", "x"))))
		require.Error(t, err)
		assert.Equal(t, models.ErrCodeInitFailed, models.CodeOf(err))
		assert.True(t, models.HasCode(err, models.ErrCodeInvalidFormat))
		assert.Contains(t, err.Error(), "Failed to initialize")
	})
	t.Run("malformed xml", func(t *testing.T) {
		_, err := NewClient(context.Background(), "https://example.com", ModeDirect, parser.ModeXML, fastConfig(),
			WithTransport(script(reply(200, "", "<root><item>"))))
		assert.True(t, models.HasCode(err, models.ErrCodeInvalidContent))
	})
	t.Run("retries exhausted", func(t *testing.T) {
		_, err := NewClient(context.Background(), "https://example.com", ModeDirect, parser.ModeXML, fastConfig(),
			WithTransport(script(reply(500, "", "x"))))
		assert.Equal(t, models.ErrCodeInitFailed, models.CodeOf(err))
		assert.True(t, models.HasCode(err, models.ErrCodeRetriesExhausted))
	})
}

func TestClientExtractFieldsErrors(t *testing.T) {
	c := newTestClient(t, itemsXML, parser.ModeXML)

	t.Run("invalid block selector", func(t *testing.T) {
		_, err := c.ExtractFields("//[", []models.Field{{Name: "t", Selector: "title"}})
		assert.Equal(t, models.ErrCodeExtractFailed, models.CodeOf(err))
		assert.Contains(t, err.Error(), "Invalid block XPath '//['")
	})
	t.Run("scalar block selector", func(t *testing.T) {
		_, err := c.ExtractFields("count(//item)", []models.Field{{Name: "t", Selector: "title"}})
		assert.Equal(t, models.ErrCodeExtractFailed, models.CodeOf(err))
		assert.True(t, models.HasCode(err, models.ErrCodeInvalidSelector))
	})
	t.Run("one bad field aborts the run", func(t *testing.T) {
		_, err := c.ExtractFields("//item", []models.Field{
			{Name: "t", Selector: "title/text()"},
			{Name: "broken", Selector: "title["},
		})
		assert.Equal(t, models.ErrCodeExtractFailed, models.CodeOf(err))
		assert.Contains(t, err.Error(), "Failed to extract field 'broken' with XPath 'title['")
	})
	t.Run("duplicate field names", func(t *testing.T) {
		_, err := c.ExtractFields("//item", []models.Field{
			{Name: "t", Selector: "title"},
			{Name: "t", Selector: "title/text()"},
		})
		assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
	})
}

func TestClientExtractFieldsShapes(t *testing.T) {
	doc := `<rss><channel>
<item><title>First</title><link>https://example.com/1</link><category>a</category><category>b</category></item>
<item><title>Second</title></item>
</channel></rss>`
	c := newTestClient(t, doc, parser.ModeXML)

	got, err := c.ExtractFields("//item", []models.Field{
		{Name: "title", Selector: "title/text()"},
		{Name: "link", Selector: "link/text()"},
		{Name: "tags", Selector: "category/text()"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "b"}, got[0]["tags"])
	assert.Equal(t, []string{"https://example.com/1"}, got[0]["link"])
	assert.Equal(t, []string{}, got[1]["link"])
	assert.Equal(t, []string{"Second"}, got[1]["title"])

	none, err := c.ExtractFields("//entry", []models.Field{{Name: "x", Selector: "never["}})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}
