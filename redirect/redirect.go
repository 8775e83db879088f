// Package redirect holds the per-request redirect chain state and the
// decision made after every hop.
package redirect

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/cnosuke/httpget/fault"
	"github.com/cnosuke/httpget/types"
)

// MaxHops is the number of redirects followed before a chain is
// reported as a loop.
const MaxHops = 10

// IsRedirect reports whether status asks the client to follow a
// Location header. 300, 304, 305 and 306 are terminal.
func IsRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

// A Chain is the redirect state of one logical request. A Chain must
// not be shared between requests.
type Chain struct {
	// Hops is the number of redirects followed so far.
	Hops int
	// Current is the URL being fetched.
	Current *url.URL
	// Original is the URL the caller asked for.
	Original *url.URL
	// Visited records every followed redirect in order.
	Visited []types.Hop
}

// NewChain starts a chain at original.
func NewChain(original *url.URL) *Chain {
	cur := *original
	return &Chain{
		Current:  &cur,
		Original: original,
	}
}

// Decision is the outcome of evaluating one hop's response.
type Decision struct {
	// Terminal is true when the response ends the chain successfully.
	Terminal bool
	// Next is the URL for the following hop when Terminal is false and
	// Err is nil.
	Next *url.URL
	// Method is the method for the following hop.
	Method string
	// KeepBody reports whether the request body is resent on the next hop.
	KeepBody bool
	// CrossHost reports whether Next is on a different host than Current.
	CrossHost bool
	// Err is the classified failure that ends the chain.
	Err *fault.Error
}

// Decide evaluates the response of the current hop. On a followed
// redirect it increments Hops and records the hop, but it leaves Current
// unchanged; call Advance to move the chain.
func (c *Chain) Decide(method string, status int, header http.Header) Decision {
	if !IsRedirect(status) {
		return Decision{Terminal: true}
	}

	location := header.Get("Location")
	if location == "" {
		return Decision{Err: fault.NewRedirectWithoutLocation(c.Current.String(), status)}
	}

	c.Hops++
	if c.Hops > MaxHops {
		return Decision{Err: fault.NewRedirectLoop(c.Original.String(), status, MaxHops)}
	}

	next, err := c.Current.Parse(location)
	if err != nil {
		return Decision{Err: fault.NewTransport(c.Current.String(), fault.CodeInvalid,
			"malformed Location header "+location, err)}
	}
	next.Fragment = ""
	next.RawFragment = ""

	c.Visited = append(c.Visited, types.Hop{
		Index:  c.Hops,
		URL:    c.Current.String(),
		Status: status,
		Via:    next.String(),
	})

	m, keep := nextMethod(method, status)
	return Decision{
		Next:      next,
		Method:    m,
		KeepBody:  keep,
		CrossHost: !strings.EqualFold(next.Host, c.Current.Host),
	}
}

// Advance moves the chain to next.
func (c *Chain) Advance(next *url.URL) {
	c.Current = next
}

// Redirected reports whether at least one redirect was followed.
func (c *Chain) Redirected() bool {
	return c.Hops > 0
}

func nextMethod(method string, status int) (string, bool) {
	switch status {
	case http.StatusSeeOther:
		if method == http.MethodHead {
			return method, false
		}
		return http.MethodGet, false
	case http.StatusMovedPermanently, http.StatusFound:
		if method == http.MethodPost {
			return http.MethodGet, false
		}
	}
	return method, true
}
