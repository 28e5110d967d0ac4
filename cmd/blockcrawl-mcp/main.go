package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/blockcrawl/models"
	"github.com/use-agent/blockcrawl/processor"
)

func main() {
	apiURL := os.Getenv("BLOCKCRAWL_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("BLOCKCRAWL_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "BLOCKCRAWL_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"blockcrawl",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	s.AddTool(extractBlocksTool(), handleExtractBlocks(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func extractBlocksTool() mcp.Tool {
	return mcp.NewTool("extract_blocks",
		mcp.WithDescription("Fetch one HTML or XML document, select its repeating blocks with an XPath expression and extract named fields from every block. Returns one JSON object per block."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Address of the document, e.g. 'example.com/feed.xml'"),
		),
		mcp.WithString("block_selector",
			mcp.Required(),
			mcp.Description("XPath selecting the repeating blocks, e.g. '//item'"),
		),
		mcp.WithArray("fields",
			mcp.Required(),
			mcp.Description("Fields as 'name=xpath', evaluated relative to each block, e.g. 'title=.//title/text()'"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("processors",
			mcp.Description("Optional post-processors as 'type:id:field[:arg]'. Types: first, join, all, markdown, select, readable, fingerprint"),
			mcp.WithStringItems(),
		),
		mcp.WithString("parse_mode",
			mcp.Description("How to parse the document: 'html' (default, lenient) or 'xml' (strict)"),
			mcp.Enum("html", "xml"),
		),
		mcp.WithString("request_mode",
			mcp.Description("How to fetch: 'direct' (default) or 'anonymized' (through the local SOCKS5 proxy)"),
			mcp.Enum("direct", "anonymized"),
		),
	)
}

// buildRequest turns tool arguments into an API request body.
func buildRequest(request mcp.CallToolRequest) (*models.ExtractRequest, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return nil, fmt.Errorf("url is required")
	}
	block, err := request.RequireString("block_selector")
	if err != nil {
		return nil, fmt.Errorf("block_selector is required")
	}
	rawFields := request.GetStringSlice("fields", nil)
	if len(rawFields) == 0 {
		return nil, fmt.Errorf("fields is required and must be a non-empty array of 'name=xpath' strings")
	}

	req := &models.ExtractRequest{
		URL:           url,
		BlockSelector: block,
		ParseMode:     request.GetString("parse_mode", ""),
		RequestMode:   request.GetString("request_mode", ""),
	}
	for _, raw := range rawFields {
		f, err := models.ParseField(raw)
		if err != nil {
			return nil, err
		}
		req.Fields = append(req.Fields, f)
	}
	for _, raw := range request.GetStringSlice("processors", nil) {
		spec, err := processor.ParseSpec(raw)
		if err != nil {
			return nil, err
		}
		req.Processors = append(req.Processors, spec)
	}
	req.Defaults()
	return req, nil
}

// formatResult renders a successful response as a short header plus one
// JSON object per block.
func formatResult(resp *models.ExtractResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\nBlocks: %d\n\n", resp.URL, resp.BlockCount)

	var payload any = resp.Fields
	if len(resp.Records) > 0 {
		payload = resp.Records
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(&sb, "failed to render blocks: %v", err)
		return sb.String()
	}
	sb.Write(b)
	return sb.String()
}

func handleExtractBlocks(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, err := buildRequest(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		body, err := json.Marshal(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/extract", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var extractResp models.ExtractResponse
		if err := json.Unmarshal(respBody, &extractResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !extractResp.Success {
			errMsg := "extraction failed"
			if extractResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", extractResp.Error.Code, extractResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(formatResult(&extractResp)), nil
	}
}
