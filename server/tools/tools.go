package tools

import (
	"github.com/cnosuke/httpget/fetcher"
	mcp "github.com/metoro-io/mcp-golang"
)

// RegisterAllTools - Register all tools with the server
func RegisterAllTools(mcpServer *mcp.Server, f fetcher.Fetcher, maxURLs int, defaultMaxLength int) error {
	if err := RegisterHeadTool(mcpServer, f); err != nil {
		return err
	}

	if err := RegisterGetTool(mcpServer, f, defaultMaxLength); err != nil {
		return err
	}

	if err := RegisterGetMultipleTool(mcpServer, f, maxURLs); err != nil {
		return err
	}

	return nil
}
