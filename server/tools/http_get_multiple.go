package tools

import (
	"context"
	"fmt"

	"github.com/cnosuke/httpget/fetcher"
	"github.com/cockroachdb/errors"
	mcp "github.com/metoro-io/mcp-golang"
	"go.uber.org/zap"
)

// GetMultipleArgs - Arguments for http_get_multiple tool
type GetMultipleArgs struct {
	URLs      []string `json:"urls" jsonschema:"description=URLs to fetch (maximum depends on config),maxItems=100"`
	MaxLength int      `json:"max_length,omitempty" jsonschema:"description=Maximum number of characters to return across all URLs"`
	Raw       bool     `json:"raw,omitempty" jsonschema:"description=Get raw content without markdown conversion"`
}

// GetMultipleHandler returns the http_get_multiple tool handler.
func GetMultipleHandler(f fetcher.Fetcher, maxURLs int) func(args GetMultipleArgs) (*mcp.ToolResponse, error) {
	return func(args GetMultipleArgs) (*mcp.ToolResponse, error) {
		zap.S().Debugw("executing http_get_multiple",
			"urls_count", len(args.URLs),
			"max_length", args.MaxLength,
			"raw", args.Raw)

		if len(args.URLs) == 0 {
			return nil, errors.New("at least one URL is required")
		}
		if len(args.URLs) > maxURLs {
			return nil, errors.Newf("too many URLs: maximum allowed is %d", maxURLs)
		}

		response, err := f.FetchMultiple(context.Background(), args.URLs, args.MaxLength, args.Raw)
		if err != nil {
			zap.S().Errorw("failed to fetch multiple URLs",
				"error", err)
			return nil, errors.Wrap(err, "failed to fetch multiple URLs")
		}

		return jsonResponse(response)
	}
}

// RegisterGetMultipleTool - Register the http_get_multiple tool
func RegisterGetMultipleTool(mcpServer *mcp.Server, f fetcher.Fetcher, maxURLs int) error {
	zap.S().Debugw("registering http_get_multiple tool", "max_urls", maxURLs)
	err := mcpServer.RegisterTool("http_get_multiple",
		fmt.Sprintf("Fetch content from multiple URLs in parallel (max %d)", maxURLs),
		GetMultipleHandler(f, maxURLs))
	if err != nil {
		zap.S().Errorw("failed to register http_get_multiple tool", "error", err)
		return errors.Wrap(err, "failed to register http_get_multiple tool")
	}
	return nil
}
