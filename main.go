package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/cnosuke/httpget/client"
	"github.com/cnosuke/httpget/config"
	"github.com/cnosuke/httpget/fault"
	"github.com/cnosuke/httpget/logger"
	"github.com/cnosuke/httpget/request"
	"github.com/cnosuke/httpget/server"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	// Version and Revision are replaced when building.
	Version  = "0.0.1"
	Revision = "xxx"
)

const appName = "httpget"

// requestLogLevel applies to head and get unless a config file or
// HTTPGET_LOG_LEVEL picks the level.
const requestLogLevel = "warn"

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to the configuration file",
		EnvVars: []string{"HTTPGET_CONFIG"},
	}
	requestFlags := []cli.Flag{
		configFlag,
		&cli.StringSliceFlag{Name: "header", Aliases: []string{"H"}, Usage: "request header as `NAME:VALUE` (repeatable)"},
		&cli.StringSliceFlag{Name: "ca", Usage: "PEM `FILE` with authorities to trust instead of the system pool (repeatable)"},
		&cli.BoolFlag{Name: "insecure", Aliases: []string{"k"}, Usage: "disable TLS certificate validation"},
		&cli.BoolFlag{Name: "no-compress", Usage: "do not negotiate or decode gzip and deflate"},
	}

	return &cli.App{
		Name:      appName,
		Usage:     "HTTP client with bounded redirects, content decoding and TLS trust control",
		Version:   fmt.Sprintf("%s (%s)", Version, Revision),
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "run the MCP server on stdio",
				Flags: []cli.Flag{configFlag},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c, false)
					if err != nil {
						return err
					}
					return server.Run(cfg, appName, Version, Revision)
				},
			},
			{
				Name:      "head",
				Usage:     "send a HEAD request and print the result as JSON",
				ArgsUsage: "URL",
				Flags:     requestFlags,
				Action: func(c *cli.Context) error {
					return runRequest(c, http.MethodHead, stdout)
				},
			},
			{
				Name:      "get",
				Usage:     "send a GET request and print the result as JSON",
				ArgsUsage: "URL",
				Flags: append(append([]cli.Flag{}, requestFlags...),
					&cli.BoolFlag{Name: "body-only", Usage: "print the decoded body instead of the JSON result"}),
				Action: func(c *cli.Context) error {
					return runRequest(c, http.MethodGet, stdout)
				},
			},
		},
	}
}

func loadConfig(c *cli.Context, quiet bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if quiet && !c.IsSet("config") && os.Getenv("HTTPGET_LOG_LEVEL") == "" {
		cfg.Log.Level = requestLogLevel
	}
	if _, err := logger.Init(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func requestOptions(c *cli.Context) (request.Options, error) {
	if c.NArg() != 1 {
		return request.Options{}, errors.New("exactly one URL argument is required")
	}

	opts := request.Options{
		URL:           c.Args().First(),
		NoSSLVerifier: c.Bool("insecure"),
		NoCompress:    c.Bool("no-compress"),
	}

	for _, h := range c.StringSlice("header") {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return opts, errors.Newf("malformed header %q, want NAME:VALUE", h)
		}
		if opts.Headers == nil {
			opts.Headers = make(map[string]string)
		}
		opts.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	for _, path := range c.StringSlice("ca") {
		b, err := os.ReadFile(path)
		if err != nil {
			return opts, errors.Wrapf(err, "failed to read CA file %s", path)
		}
		opts.CA = append(opts.CA, string(b))
	}
	return opts, nil
}

func runRequest(c *cli.Context, method string, stdout io.Writer) error {
	cfg, err := loadConfig(c, true)
	if err != nil {
		return err
	}
	defer func() { _ = zap.L().Sync() }()

	opts, err := requestOptions(c)
	if err != nil {
		return err
	}

	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return err
	}

	res, err := client.New(clientCfg).Do(context.Background(), method, opts)
	if err != nil {
		return err
	}

	if c.Bool("body-only") {
		_, err := stdout.Write(res.Body)
		return errors.Wrap(err, "failed to write body")
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(res), "failed to encode result")
}

// exitCode reports err on w and returns the process exit status. A
// classified request failure exits with 2, anything else with 1.
func exitCode(err error, w io.Writer) int {
	var fe *fault.Error
	if errors.As(err, &fe) {
		fmt.Fprintf(w, "kind=%s code=%s url=%s\n%s\n", fe.Kind, fe.Code, fe.URL, fe.Message)
		return 2
	}
	fmt.Fprintln(w, err)
	return 1
}
