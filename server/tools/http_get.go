package tools

import (
	"context"

	"github.com/cnosuke/httpget/fetcher"
	"github.com/cockroachdb/errors"
	mcp "github.com/metoro-io/mcp-golang"
	"go.uber.org/zap"
)

// GetArgs - Arguments for http_get tool
type GetArgs struct {
	RequestArgs
	MaxLength  int  `json:"max_length,omitempty" jsonschema:"description=Maximum number of characters to return"`
	StartIndex int  `json:"start_index,omitempty" jsonschema:"description=Start content from this character index"`
	Raw        bool `json:"raw,omitempty" jsonschema:"description=Get raw content without markdown conversion"`
}

// GetHandler returns the http_get tool handler.
func GetHandler(f fetcher.Fetcher, defaultMaxLength int) func(args GetArgs) (*mcp.ToolResponse, error) {
	return func(args GetArgs) (*mcp.ToolResponse, error) {
		zap.S().Infow("executing http_get",
			"url", args.URL,
			"max_length", args.MaxLength,
			"start_index", args.StartIndex,
			"raw", args.Raw)

		if args.URL == "" {
			return nil, errors.New("URL is required")
		}

		// Set default values
		maxLength := defaultMaxLength
		if args.MaxLength > 0 {
			maxLength = args.MaxLength
		}

		startIndex := 0
		if args.StartIndex > 0 {
			startIndex = args.StartIndex
		}

		response, err := f.Fetch(context.Background(), args.Options(), maxLength, startIndex, args.Raw)
		if err != nil {
			zap.S().Errorw("failed to fetch URL",
				"url", args.URL,
				"error", err)
			return nil, wrapFetchError(err, args.URL)
		}

		return jsonResponse(response)
	}
}

// RegisterGetTool - Register the http_get tool
func RegisterGetTool(mcpServer *mcp.Server, f fetcher.Fetcher, defaultMaxLength int) error {
	zap.S().Debugw("registering http_get tool", "default_max_length", defaultMaxLength)
	err := mcpServer.RegisterTool("http_get",
		"Fetches a URL, following up to 10 redirects and decoding gzip or deflate, and extracts its contents as markdown",
		GetHandler(f, defaultMaxLength))
	if err != nil {
		zap.S().Errorw("failed to register http_get tool", "error", err)
		return errors.Wrap(err, "failed to register http_get tool")
	}
	return nil
}
