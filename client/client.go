// Package client orchestrates logical HTTP requests. A request is
// normalized synchronously, then driven through hops, redirect decisions
// and body decoding on its own goroutine until it completes exactly once.
package client

import (
	"context"
	"crypto/x509"
	"net/http"
	"time"

	"github.com/cnosuke/httpget/decode"
	"github.com/cnosuke/httpget/fault"
	"github.com/cnosuke/httpget/redirect"
	"github.com/cnosuke/httpget/request"
	"github.com/cnosuke/httpget/transport"
	"github.com/cnosuke/httpget/types"
	"go.uber.org/zap"
)

// DefaultUserAgent is sent when neither the caller nor the Config set one.
const DefaultUserAgent = "httpget/1.0"

// Config holds the settings of a Client.
type Config struct {
	// RootCAs is the default trust store for requests without their own
	// authorities. If nil, the system pool is used.
	RootCAs *x509.CertPool
	// InsecureSkipVerify disables verification for requests with a
	// default trust policy.
	InsecureSkipVerify bool
	// UserAgent is set on requests that carry no User-Agent header.
	UserAgent string
	// Timeout bounds each exchange. Zero means no timeout.
	Timeout time.Duration
	// MaxBodyBytes caps each response body. Zero means unlimited.
	MaxBodyBytes int64
	// HTTP2 enables HTTP/2 over TLS on the default transport.
	HTTP2 bool
	// Transport performs the exchanges. If nil, an HTTPTransport built
	// from the fields above is used.
	Transport transport.Transport
	// Handlers are run on every execution event.
	Handlers *HandlerGroup
	// Logger receives debug output. If nil, zap.S() is used.
	Logger *zap.SugaredLogger
}

// An Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the transport.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithHandlers appends handler groups after the configured handlers.
func WithHandlers(groups ...*HandlerGroup) Option {
	return func(c *Client) {
		for _, g := range groups {
			c.handlers.Append(g)
		}
	}
}

// WithLogger replaces the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithUserAgent replaces the default user agent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// A Client issues logical requests. It is safe for concurrent use.
type Client struct {
	transport transport.Transport
	handlers  *HandlerGroup
	log       *zap.SugaredLogger
	userAgent string
}

// New creates a new Client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		transport: cfg.Transport,
		handlers:  &HandlerGroup{},
		log:       cfg.Logger,
		userAgent: cfg.UserAgent,
	}
	c.handlers.Append(cfg.Handlers)
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = transport.NewHTTPTransport(transport.Config{
			RootCAs:            cfg.RootCAs,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			Timeout:            cfg.Timeout,
			MaxBodyBytes:       cfg.MaxBodyBytes,
			HTTP2:              cfg.HTTP2,
		})
	}
	if c.log == nil {
		c.log = zap.S()
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	return c
}

// Head starts a HEAD request. See Go.
func (c *Client) Head(ctx context.Context, input interface{}) (*Call, error) {
	return c.Go(ctx, http.MethodHead, input)
}

// Get starts a GET request. See Go.
func (c *Client) Get(ctx context.Context, input interface{}) (*Call, error) {
	return c.Go(ctx, http.MethodGet, input)
}

// Post starts a POST request. See Go.
func (c *Client) Post(ctx context.Context, input interface{}) (*Call, error) {
	return c.Go(ctx, http.MethodPost, input)
}

// Put starts a PUT request. See Go.
func (c *Client) Put(ctx context.Context, input interface{}) (*Call, error) {
	return c.Go(ctx, http.MethodPut, input)
}

// Patch starts a PATCH request. See Go.
func (c *Client) Patch(ctx context.Context, input interface{}) (*Call, error) {
	return c.Go(ctx, http.MethodPatch, input)
}

// Delete starts a DELETE request. See Go.
func (c *Client) Delete(ctx context.Context, input interface{}) (*Call, error) {
	return c.Go(ctx, http.MethodDelete, input)
}

// Options starts an OPTIONS request. See Go.
func (c *Client) Options(ctx context.Context, input interface{}) (*Call, error) {
	return c.Go(ctx, http.MethodOptions, input)
}

// Go normalizes input and starts the request in the background. input is
// a URL string, a request.Options, a *request.Options or a map holding
// the options by their JSON names.
//
// A normalization failure is returned synchronously as an InvalidInput
// *fault.Error and no request is started. Otherwise the returned Call
// completes exactly once; its error, if any, is a *fault.Error.
func (c *Client) Go(ctx context.Context, method string, input interface{}) (*Call, error) {
	d, err := c.prepare(method, input)
	if err != nil {
		return nil, err
	}

	call := newCall()
	go func() {
		res, err := c.execute(ctx, d)
		call.complete(res, err)
	}()
	return call, nil
}

// Callback starts the request like Go and invokes fn exactly once, on the
// request's goroutine, when it completes.
func (c *Client) Callback(ctx context.Context, method string, input interface{}, fn func(error, *types.Result)) error {
	d, err := c.prepare(method, input)
	if err != nil {
		return err
	}

	go func() {
		res, err := c.execute(ctx, d)
		fn(err, res)
	}()
	return nil
}

// Do runs the request on the calling goroutine and returns its outcome.
func (c *Client) Do(ctx context.Context, method string, input interface{}) (*types.Result, error) {
	d, err := c.prepare(method, input)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, d)
}

func (c *Client) prepare(method string, input interface{}) (*request.Descriptor, error) {
	d, err := request.Normalize(method, input)
	if err != nil {
		return nil, err
	}
	return d.WithDefaultHeader("User-Agent", c.userAgent), nil
}

// execute drives d through the state machine. The error returned, if
// any, is a *fault.Error.
func (c *Client) execute(ctx context.Context, d *request.Descriptor) (*types.Result, error) {
	e := &Execution{
		Descriptor: d,
		Request:    d,
		Chain:      redirect.NewChain(d.URL()),
		State:      Fetching,
		Start:      time.Now(),
	}
	c.handlers.run(BeforeExecution, e)

	for !e.State.Terminal() {
		switch e.State {
		case Fetching:
			c.fetch(ctx, e)
		case EvaluatingRedirect:
			c.evaluate(e)
		case Decoding:
			c.decode(e)
		}
	}

	e.End = time.Now()
	c.handlers.run(AfterExecution, e)

	if e.State == Failed {
		c.log.Infow("request failed",
			"method", d.Method(),
			"url", e.Err.URL,
			"kind", e.Err.Kind.String(),
			"code", e.Err.Code,
			"hops", e.Chain.Hops,
			"duration", e.Duration())
		return nil, e.Err
	}

	c.log.Infow("request complete",
		"method", d.Method(),
		"url", e.Result.URL,
		"status", e.Result.Code,
		"hops", e.Chain.Hops,
		"duration", e.Duration())
	return e.Result, nil
}

func (c *Client) fail(e *Execution, err *fault.Error) {
	e.Err = err
	e.State = Failed
}

func (c *Client) fetch(ctx context.Context, e *Execution) {
	current := e.Chain.Current.String()
	if err := ctx.Err(); err != nil {
		c.fail(e, fault.Classify(err, current))
		return
	}

	e.Raw = nil
	c.handlers.run(BeforeHop, e)

	c.log.Debugw("sending request",
		"method", e.Request.Method(),
		"url", current,
		"hop", e.Chain.Hops)

	raw, err := c.transport.RoundTrip(ctx, e.Request, e.Chain.Current)
	if err != nil {
		e.Err = fault.Classify(err, current)
		c.handlers.run(AfterHop, e)
		c.fail(e, e.Err)
		return
	}

	e.Raw = raw
	c.handlers.run(AfterHop, e)
	e.State = EvaluatingRedirect
}

// redirectDrop lists the header fields not forwarded to another host.
var redirectDrop = []string{"Authorization", "Cookie", "Host"}

func (c *Client) evaluate(e *Execution) {
	from := e.Chain.Current.String()
	decision := e.Chain.Decide(e.Request.Method(), e.Raw.Status, e.Raw.Header)
	switch {
	case decision.Err != nil:
		c.fail(e, decision.Err)
		return
	case decision.Terminal:
		e.State = Decoding
		return
	}

	var body []byte
	var drop []string
	if decision.KeepBody {
		body = e.Request.Body()
	} else {
		drop = append(drop, "Content-Type", "Content-Length")
	}
	if decision.CrossHost {
		drop = append(drop, redirectDrop...)
	}

	e.Request = e.Request.Derive(decision.Method, body, drop...)
	e.Chain.Advance(decision.Next)

	c.log.Debugw("following redirect",
		"status", e.Raw.Status,
		"from", from,
		"to", decision.Next.String(),
		"method", decision.Method,
		"hops", e.Chain.Hops)

	c.handlers.run(AfterRedirect, e)
	e.State = Fetching
}

func (c *Client) decode(e *Execution) {
	current := e.Chain.Current.String()
	body, err := decode.Body(e.Request.Compress(), e.Raw.Header, e.Raw.Body)
	if err != nil {
		c.fail(e, fault.NewDecodeError(current, decode.Encoding(e.Raw.Header), err))
		return
	}

	res := types.NewResult(e.Raw.Status, e.Raw.Header, current, body)
	if e.Chain.Redirected() {
		res.OriginalURL = e.Chain.Original.String()
		res.Redirects = append([]types.Hop(nil), e.Chain.Visited...)
	}
	e.Result = res
	c.handlers.run(AfterDecode, e)
	e.State = Done
}
