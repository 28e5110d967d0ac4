package crawler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/use-agent/blockcrawl/config"
	"github.com/use-agent/blockcrawl/models"
	"github.com/use-agent/blockcrawl/parser"
)

// Client fetches and parses one document, then extracts named fields from
// every block matched by a selector.
type Client struct {
	addr     Address
	resp     Response
	parser   *parser.Parser
	attempts int
}

// NewClient validates rawURL, fetches it and parses the body. Any failure is
// reported as INIT_FAILED wrapping the underlying error.
func NewClient(ctx context.Context, rawURL string, reqMode RequestMode, parseMode parser.Mode, cfg config.RequesterConfig, opts ...RequesterOption) (*Client, error) {
	c, err := newClient(ctx, rawURL, reqMode, parseMode, cfg, opts...)
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeInitFailed, "Failed to initialize", err)
	}
	return c, nil
}

func newClient(ctx context.Context, rawURL string, reqMode RequestMode, parseMode parser.Mode, cfg config.RequesterConfig, opts ...RequesterOption) (*Client, error) {
	addr, err := NewAddress(rawURL)
	if err != nil {
		return nil, err
	}
	req := NewRequester(addr, reqMode, cfg, opts...)
	resp, err := req.Do(ctx)
	if err != nil {
		return nil, err
	}
	p, err := parser.New(resp.Content(), parseMode)
	if err != nil {
		return nil, err
	}
	return &Client{addr: addr, resp: resp, parser: p, attempts: req.Attempts()}, nil
}

// ExtractFields selects blocks with blockExpr and evaluates every field
// inside each of them. The result has one entry per block in document
// order; a field that matched nothing maps to an empty slice. The first
// failing field aborts the whole run.
func (c *Client) ExtractFields(blockExpr string, fields []models.Field) ([]models.RawFields, error) {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, models.Errorf(models.ErrCodeInvalidInput, "field with selector '%s' has no name", f.Selector)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, models.Errorf(models.ErrCodeInvalidInput, "duplicate field name '%s'", f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	blockSel, err := parser.NewSelector(blockExpr)
	if err != nil {
		return nil, blockError(blockExpr, err)
	}
	blocks, err := c.parser.Blocks(blockSel)
	if err != nil {
		return nil, blockError(blockExpr, err)
	}
	out := make([]models.RawFields, 0, len(blocks))
	if len(blocks) == 0 {
		return out, nil
	}

	sels := make([]parser.Selector, len(fields))
	for i, f := range fields {
		sel, err := parser.NewSelector(f.Selector)
		if err != nil {
			return nil, fieldError(f, err)
		}
		sels[i] = sel
	}

	for _, b := range blocks {
		raw := make(models.RawFields, len(fields))
		for i, f := range fields {
			frags, err := c.parser.ExtractField(b, sels[i])
			if err != nil {
				return nil, fieldError(f, err)
			}
			raw[f.Name] = frags
		}
		out = append(out, raw)
	}
	slog.Debug("fields extracted", "url", c.addr.String(), "blocks", len(out), "fields", len(fields))
	return out, nil
}

// Response returns the fetched response.
func (c *Client) Response() Response { return c.resp }

// Address returns the validated target.
func (c *Client) Address() Address { return c.addr }

// Attempts reports how many fetch attempts were needed.
func (c *Client) Attempts() int { return c.attempts }

func blockError(expr string, err error) error {
	return models.NewCrawlError(models.ErrCodeExtractFailed, fmt.Sprintf("Invalid block XPath '%s'", expr), err)
}

func fieldError(f models.Field, err error) error {
	return models.NewCrawlError(models.ErrCodeExtractFailed,
		fmt.Sprintf("Failed to extract field '%s' with XPath '%s'", f.Name, f.Selector), err)
}
