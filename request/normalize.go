package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/cnosuke/httpget/fault"
)

// Options is the structured form of a request description.
//
// URL is required. CA holds PEM encoded certificate authorities.
type Options struct {
	URL           string            `json:"url" yaml:"url"`
	Method        string            `json:"method,omitempty" yaml:"method"`
	Headers       map[string]string `json:"headers,omitempty" yaml:"headers"`
	CA            []string          `json:"ca,omitempty" yaml:"ca"`
	NoSSLVerifier bool              `json:"noSslVerifier,omitempty" yaml:"noSslVerifier"`
	NoCompress    bool              `json:"noCompress,omitempty" yaml:"noCompress"`
	Body          []byte            `json:"body,omitempty" yaml:"body"`
}

var schemePrefix = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.\-]*)://`)

// Normalize builds a Descriptor for method from input, which must be a
// URL string, an Options value, a *Options, or a map[string]interface{}
// holding the Options fields by their JSON names.
//
// When input is a string it is used as the URL with no headers and the
// default trust and compression policies. When Options.Method is set it
// takes precedence over method. An empty method means GET.
//
// Every error returned is a *fault.Error of kind InvalidInput.
func Normalize(method string, input interface{}) (*Descriptor, error) {
	opts, err := toOptions(input)
	if err != nil {
		return nil, err
	}
	if opts.Method != "" {
		method = opts.Method
	}
	return NewDescriptor(method, opts)
}

// NewDescriptor normalizes opts into a Descriptor.
func NewDescriptor(method string, opts Options) (*Descriptor, error) {
	if opts.URL == "" {
		return nil, fault.NewMissingURL()
	}

	m := strings.ToUpper(method)
	if m == "" {
		m = http.MethodGet
	}
	if !validMethod(m) {
		return nil, fault.NewInvalidInput(opts.URL, fmt.Sprintf("unsupported method %q", method), nil)
	}

	u, err := NormalizeURL(opts.URL)
	if err != nil {
		return nil, err
	}

	tlsPolicy, ok := NewTLSPolicy(opts.CA, opts.NoSSLVerifier)
	if !ok {
		return nil, fault.NewInvalidInput(u.String(), "failed to parse CA certificate", nil)
	}

	h := make(http.Header, len(opts.Headers)+1)
	for k, v := range opts.Headers {
		h.Set(k, v)
	}
	compress := !opts.NoCompress
	if !compress {
		h.Del("Accept-Encoding")
	} else if h.Get("Accept-Encoding") == "" {
		h.Set("Accept-Encoding", DefaultAcceptEncoding)
	}

	var body []byte
	if len(opts.Body) > 0 {
		body = make([]byte, len(opts.Body))
		copy(body, opts.Body)
	}

	return &Descriptor{
		method:   m,
		url:      u,
		header:   h,
		tls:      tlsPolicy,
		compress: compress,
		body:     body,
	}, nil
}

// NormalizeURL parses raw into an absolute URL. It prepends http:// when
// raw has no scheme, rejects schemes other than http and https, and
// strips the fragment.
func NormalizeURL(raw string) (*url.URL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fault.NewMissingURL()
	}

	if m := schemePrefix.FindStringSubmatch(s); m == nil {
		s = "http://" + s
	} else if scheme := strings.ToLower(m[1]); scheme != "http" && scheme != "https" {
		return nil, fault.NewInvalidInput(raw, fmt.Sprintf("unsupported protocol %q", m[1]), nil)
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, fault.NewInvalidInput(raw, "malformed URL", err)
	}
	if u.Host == "" {
		return nil, fault.NewInvalidInput(raw, "URL has no host", nil)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}

func toOptions(input interface{}) (Options, error) {
	switch v := input.(type) {
	case string:
		return Options{URL: v}, nil
	case Options:
		return v, nil
	case *Options:
		if v == nil {
			return Options{}, fault.NewMissingURL()
		}
		return *v, nil
	case map[string]interface{}:
		return mapOptions(v)
	case nil:
		return Options{}, fault.NewMissingURL()
	default:
		return Options{}, fault.NewInvalidInput("", fmt.Sprintf("unsupported input type %T", input), nil)
	}
}

func mapOptions(m map[string]interface{}) (Options, error) {
	var opts Options
	b, err := json.Marshal(m)
	if err != nil {
		return opts, fault.NewInvalidInput("", "malformed options object", err)
	}
	if err := json.Unmarshal(b, &opts); err != nil {
		return opts, fault.NewInvalidInput("", "malformed options object", err)
	}
	return opts, nil
}
