package server

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/cnosuke/httpget/client"
	"github.com/cnosuke/httpget/config"
	"github.com/cnosuke/httpget/fetcher"
	"github.com/cnosuke/httpget/metrics"
	"github.com/cnosuke/httpget/server/tools"
	"github.com/cockroachdb/errors"
	mcp "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport/stdio"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// NewFetcher builds the client stack described by cfg: the client with
// its metrics handlers and the fetcher on top of it.
func NewFetcher(cfg *config.Config, reg prometheus.Registerer) (fetcher.Fetcher, error) {
	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, err
	}

	m := metrics.New(reg)
	c := client.New(clientCfg, client.WithHandlers(m.Handlers()))

	return fetcher.NewHTTPFetcher(c, &fetcher.Config{
		MaxWorkers:       cfg.Server.MaxWorkers,
		DefaultMaxLength: cfg.Server.DefaultMaxLength,
	})
}

// Run - Execute the MCP server
func Run(cfg *config.Config, name string, version string, revision string) error {
	zap.S().Infow("starting MCP httpget server")

	// Format version string with revision if available
	versionString := version
	if revision != "" && revision != "xxx" {
		versionString = versionString + " (" + revision + ")"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	zap.S().Debugw("creating HTTP fetcher")
	f, err := NewFetcher(cfg, reg)
	if err != nil {
		zap.S().Errorw("failed to create HTTP fetcher", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Server.MetricsAddr != "" {
		ms := metrics.NewServer(cfg.Server.MetricsAddr, cfg.Server.MetricsPath, reg)
		go func() {
			if err := ms.Start(); err != nil {
				zap.S().Errorw("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = ms.Shutdown(shutdownCtx)
		}()
	}

	zap.S().Debugw("creating MCP server",
		"name", name,
		"version", versionString,
	)
	mcpServer := mcp.NewServer(stdio.NewStdioServerTransport())

	zap.S().Debugw("registering tools")
	if err := tools.RegisterAllTools(mcpServer, f, cfg.Server.MaxURLs, cfg.Server.DefaultMaxLength); err != nil {
		zap.S().Errorw("failed to register tools", "error", err)
		return err
	}

	zap.S().Infow("starting MCP server")
	if err := mcpServer.Serve(); err != nil {
		zap.S().Errorw("failed to start server", "error", err)
		return errors.Wrap(err, "failed to start server")
	}

	// Serve returns once the stdio loop is running
	<-ctx.Done()
	zap.S().Infow("server shutting down")
	return nil
}
