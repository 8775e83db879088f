package config

import (
	"crypto/x509"
	"os"
	"time"

	"github.com/cnosuke/httpget/client"
	"github.com/cockroachdb/errors"
	"github.com/jinzhu/configor"
)

// Config - Application configuration
type Config struct {
	Client struct {
		Timeout            int    `yaml:"timeout" default:"30" env:"HTTPGET_TIMEOUT"` // Per exchange timeout in seconds
		UserAgent          string `yaml:"user_agent" default:"httpget/1.0" env:"HTTPGET_USER_AGENT"`
		MaxBodyBytes       int64  `yaml:"max_body_bytes" default:"10485760" env:"HTTPGET_MAX_BODY_BYTES"`
		CAFile             string `yaml:"ca_file" env:"HTTPGET_CA_FILE"` // PEM bundle used as the default trust store
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify" env:"HTTPGET_INSECURE_SKIP_VERIFY"`
		HTTP2              bool   `yaml:"http2" default:"true" env:"HTTPGET_HTTP2"`
	} `yaml:"client"`

	Server struct {
		MaxURLs          int    `yaml:"max_urls" default:"20" env:"HTTPGET_MAX_URLS"`       // Maximum URLs per http_get_multiple call
		MaxWorkers       int    `yaml:"max_workers" default:"20" env:"HTTPGET_MAX_WORKERS"` // Parallel workers for http_get_multiple
		DefaultMaxLength int    `yaml:"default_max_length" default:"5000" env:"HTTPGET_DEFAULT_MAX_LENGTH"`
		MetricsAddr      string `yaml:"metrics_addr" env:"HTTPGET_METRICS_ADDR"` // Prometheus listener, disabled when empty
		MetricsPath      string `yaml:"metrics_path" default:"/metrics" env:"HTTPGET_METRICS_PATH"`
	} `yaml:"server"`

	Log LogConfig `yaml:"log"`
}

// LogConfig - Logger configuration
type LogConfig struct {
	Level       string `yaml:"level" default:"info" env:"HTTPGET_LOG_LEVEL"`
	Development bool   `yaml:"development" env:"HTTPGET_LOG_DEVELOPMENT"`
	Path        string `yaml:"path" env:"HTTPGET_LOG_PATH"` // Log file, stderr when empty
}

// LoadConfig - Load configuration file. An empty path applies defaults
// and environment variables only.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	var files []string
	if path != "" {
		files = append(files, path)
	}
	err := configor.New(&configor.Config{
		Debug:      false,
		Verbose:    false,
		Silent:     true,
		AutoReload: false,
	}).Load(cfg, files...)
	return cfg, err
}

// ClientConfig - Build the client settings, reading the CA file if set
func (c *Config) ClientConfig() (client.Config, error) {
	cc := client.Config{
		InsecureSkipVerify: c.Client.InsecureSkipVerify,
		UserAgent:          c.Client.UserAgent,
		Timeout:            time.Duration(c.Client.Timeout) * time.Second,
		MaxBodyBytes:       c.Client.MaxBodyBytes,
		HTTP2:              c.Client.HTTP2,
	}

	if c.Client.CAFile == "" {
		return cc, nil
	}

	pem, err := os.ReadFile(c.Client.CAFile)
	if err != nil {
		return cc, errors.Wrapf(err, "failed to read CA file %s", c.Client.CAFile)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return cc, errors.Newf("no certificate found in CA file %s", c.Client.CAFile)
	}
	cc.RootCAs = pool
	return cc, nil
}
