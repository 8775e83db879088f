// Package transport performs single request/response exchanges on
// behalf of the client. A transport knows nothing about redirects or
// content encoding; both are left to the caller.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cnosuke/httpget/fault"
	ierrors "github.com/cnosuke/httpget/internal/errors"
	"github.com/cnosuke/httpget/request"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// RawResponse is the undecoded outcome of one exchange.
type RawResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// A Transport issues exactly one HTTP exchange for d against target.
// It must not follow redirects, decode the body, or retry.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.
type Transport interface {
	RoundTrip(ctx context.Context, d *request.Descriptor, target *url.URL) (*RawResponse, error)
}

// The Func type is an adapter to allow the use of ordinary functions
// as a Transport.
type Func func(ctx context.Context, d *request.Descriptor, target *url.URL) (*RawResponse, error)

// RoundTrip calls f(ctx, d, target).
func (f Func) RoundTrip(ctx context.Context, d *request.Descriptor, target *url.URL) (*RawResponse, error) {
	return f(ctx, d, target)
}

// Config holds the defaults of an HTTPTransport.
type Config struct {
	// RootCAs is the trust store used by requests with a default trust
	// policy. If nil, the system pool is used.
	RootCAs *x509.CertPool
	// InsecureSkipVerify disables verification for requests with a
	// default trust policy.
	InsecureSkipVerify bool
	// Timeout bounds a single exchange, including reading the body.
	// Zero means no timeout.
	Timeout time.Duration
	// MaxBodyBytes caps the response body. Zero means unlimited.
	MaxBodyBytes int64
	// HTTP2 enables HTTP/2 negotiation over TLS.
	HTTP2 bool
}

// MaxCachedClients bounds the number of http.Clients an HTTPTransport
// keeps. Past the bound an arbitrary cached client is closed and dropped.
const MaxCachedClients = 64

// HTTPTransport is a Transport backed by net/http. One http.Client is
// kept per distinct trust policy and TLS server name, up to
// MaxCachedClients.
type HTTPTransport struct {
	cfg     Config
	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewHTTPTransport creates a new HTTPTransport.
func NewHTTPTransport(cfg Config) *HTTPTransport {
	return &HTTPTransport{
		cfg:     cfg,
		clients: make(map[string]*http.Client),
	}
}

// RoundTrip implements Transport.
func (t *HTTPTransport) RoundTrip(ctx context.Context, d *request.Descriptor, target *url.URL) (*RawResponse, error) {
	if err := ValidateHost(target.Hostname()); err != nil {
		return nil, fault.NewBadHostname(target.String(), target.Hostname(), err)
	}

	var body io.Reader
	if b := d.Body(); b != nil {
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method(), target.String(), body)
	if err != nil {
		return nil, fault.NewInvalidInput(target.String(), "failed to create request", err)
	}
	req.Header = d.Header()

	serverName := ""
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
		req.Header.Del("Host")
		serverName = hostOnly(host)
	}

	client := t.client(d.TLS(), serverName)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := t.readBody(resp.Body, target.String())
	if err != nil {
		return nil, err
	}

	zap.S().Debugw("exchange complete",
		"method", d.Method(),
		"url", target.String(),
		"status", resp.StatusCode,
		"proto", resp.Proto,
		"bytes", len(raw))

	return &RawResponse{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   raw,
	}, nil
}

// CloseIdleConnections closes idle connections of every cached client.
func (t *HTTPTransport) CloseIdleConnections() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.clients {
		c.CloseIdleConnections()
	}
}

func (t *HTTPTransport) readBody(r io.Reader, target string) ([]byte, error) {
	if t.cfg.MaxBodyBytes <= 0 {
		b, err := io.ReadAll(r)
		return b, ierrors.Wrap(err, "failed to read response body")
	}

	b, err := io.ReadAll(io.LimitReader(r, t.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to read response body")
	}
	if int64(len(b)) > t.cfg.MaxBodyBytes {
		return nil, fault.NewTransport(target, fault.CodeBodyTooLarge,
			fmt.Sprintf("response body exceeds %d bytes", t.cfg.MaxBodyBytes), nil)
	}
	return b, nil
}

func (t *HTTPTransport) client(p request.TLSPolicy, serverName string) *http.Client {
	key := p.Key() + "|" + serverName

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clients[key]; ok {
		return c
	}

	zap.S().Debugw("creating transport client",
		"tls_policy", p.Key(),
		"server_name", serverName,
		"http2", t.cfg.HTTP2)

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
		TLSClientConfig:       t.tlsConfig(p, serverName),
	}
	if t.cfg.HTTP2 {
		if err := http2.ConfigureTransport(tr); err != nil {
			zap.S().Warnw("failed to enable HTTP/2", "error", err)
		}
	}

	c := &http.Client{
		Transport: tr,
		Timeout:   t.cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	if len(t.clients) >= MaxCachedClients {
		for k, old := range t.clients {
			old.CloseIdleConnections()
			delete(t.clients, k)
			break
		}
	}
	t.clients[key] = c
	return c
}

// tlsConfig applies p on top of the transport defaults. Bypass wins over
// an explicit authority set.
func (t *HTTPTransport) tlsConfig(p request.TLSPolicy, serverName string) *tls.Config {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: serverName,
	}
	switch {
	case p.InsecureSkipVerify:
		cfg.InsecureSkipVerify = true
	case p.RootCAs != nil:
		cfg.RootCAs = p.RootCAs
	case t.cfg.InsecureSkipVerify:
		cfg.InsecureSkipVerify = true
	default:
		cfg.RootCAs = t.cfg.RootCAs
	}
	return cfg
}

func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}
