package tools

import (
	"context"
	"encoding/json"

	"github.com/cnosuke/httpget/fetcher"
	"github.com/cnosuke/httpget/request"
	"github.com/cockroachdb/errors"
	mcp "github.com/metoro-io/mcp-golang"
	"go.uber.org/zap"
)

// RequestArgs - Request options shared by the http_* tools
type RequestArgs struct {
	URL           string            `json:"url" jsonschema:"description=URL to request; http:// is assumed when no scheme is given,required=true"`
	Headers       map[string]string `json:"headers,omitempty" jsonschema:"description=Request header fields"`
	CA            []string          `json:"ca,omitempty" jsonschema:"description=PEM encoded certificate authorities to trust instead of the system pool"`
	NoSSLVerifier bool              `json:"noSslVerifier,omitempty" jsonschema:"description=Disable TLS certificate validation"`
	NoCompress    bool              `json:"noCompress,omitempty" jsonschema:"description=Do not negotiate or decode gzip and deflate"`
}

// Options converts the arguments into request options.
func (a RequestArgs) Options() request.Options {
	return request.Options{
		URL:           a.URL,
		Headers:       a.Headers,
		CA:            a.CA,
		NoSSLVerifier: a.NoSSLVerifier,
		NoCompress:    a.NoCompress,
	}
}

// HeadArgs - Arguments for http_head tool
type HeadArgs struct {
	RequestArgs
}

// HeadHandler returns the http_head tool handler.
func HeadHandler(f fetcher.Fetcher) func(args HeadArgs) (*mcp.ToolResponse, error) {
	return func(args HeadArgs) (*mcp.ToolResponse, error) {
		zap.S().Infow("executing http_head", "url", args.URL)

		if args.URL == "" {
			return nil, errors.New("URL is required")
		}

		response, err := f.Head(context.Background(), args.Options())
		if err != nil {
			zap.S().Errorw("failed to request URL",
				"url", args.URL,
				"error", err)
			return nil, wrapFetchError(err, args.URL)
		}

		return jsonResponse(response)
	}
}

// RegisterHeadTool - Register the http_head tool
func RegisterHeadTool(mcpServer *mcp.Server, f fetcher.Fetcher) error {
	zap.S().Debugw("registering http_head tool")
	err := mcpServer.RegisterTool("http_head",
		"Sends a HEAD request, following up to 10 redirects, and returns the final status code, URL and headers",
		HeadHandler(f))
	if err != nil {
		zap.S().Errorw("failed to register http_head tool", "error", err)
		return errors.Wrap(err, "failed to register http_head tool")
	}
	return nil
}

func jsonResponse(v interface{}) (*mcp.ToolResponse, error) {
	b, err := json.Marshal(v)
	if err != nil {
		zap.S().Errorw("failed to marshal response to JSON",
			"error", err)
		return nil, errors.Wrap(err, "failed to marshal response to JSON")
	}
	return mcp.NewToolResponse(mcp.NewTextContent(string(b))), nil
}

// wrapFetchError keeps the classification visible to the MCP client.
func wrapFetchError(err error, url string) error {
	fe := fetcher.NewFetchError(err, url)
	return errors.Wrapf(err, "%s (%s) %s", fe.Kind, fe.Code, fe.URL)
}
