package request

import (
	"net/http"
	"net/url"
)

// Methods lists the HTTP methods a Descriptor may carry.
var Methods = []string{
	http.MethodHead,
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// DefaultAcceptEncoding is injected when compression is enabled and the
// caller did not negotiate an encoding.
const DefaultAcceptEncoding = "gzip, deflate"

// A Descriptor is a normalized request. Its URL is absolute, always has
// a scheme, and never has a fragment. A Descriptor is immutable: every
// accessor returns a copy.
type Descriptor struct {
	method   string
	url      *url.URL
	header   http.Header
	tls      TLSPolicy
	compress bool
	body     []byte
}

// Method returns the request method.
func (d *Descriptor) Method() string {
	return d.method
}

// URL returns a copy of the normalized request URL.
func (d *Descriptor) URL() *url.URL {
	return cloneURL(d.url)
}

// Header returns a copy of the request header.
func (d *Descriptor) Header() http.Header {
	return d.header.Clone()
}

// TLS returns the trust policy.
func (d *Descriptor) TLS() TLSPolicy {
	return d.tls
}

// Compress reports whether response decompression is permitted.
func (d *Descriptor) Compress() bool {
	return d.compress
}

// Body returns a copy of the request body, or nil.
func (d *Descriptor) Body() []byte {
	if d.body == nil {
		return nil
	}
	b := make([]byte, len(d.body))
	copy(b, d.body)
	return b
}

// Derive returns a new Descriptor that keeps d's policies but uses the
// given method and body and omits the named header fields. It is used to
// build the request for a redirect hop.
func (d *Descriptor) Derive(method string, body []byte, drop ...string) *Descriptor {
	h := d.header.Clone()
	for _, k := range drop {
		h.Del(k)
	}
	return &Descriptor{
		method:   method,
		url:      cloneURL(d.url),
		header:   h,
		tls:      d.tls,
		compress: d.compress,
		body:     body,
	}
}

// WithDefaultHeader returns d when the header field key is already set,
// and otherwise a copy of d with key set to value.
func (d *Descriptor) WithDefaultHeader(key, value string) *Descriptor {
	if value == "" || d.header.Get(key) != "" {
		return d
	}
	d2 := d.Derive(d.method, d.body)
	d2.header.Set(key, value)
	return d2
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	u2 := *u
	if u.User != nil {
		user := *u.User
		u2.User = &user
	}
	return &u2
}

func validMethod(m string) bool {
	for _, v := range Methods {
		if v == m {
			return true
		}
	}
	return false
}
