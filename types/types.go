package types

import (
	"net/http"
	"strings"
)

// Hop - One followed redirect within a redirect chain
type Hop struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Status int    `json:"status"`
	Via    string `json:"via"` // Resolved Location target
}

// Result - Final response of a logical request
type Result struct {
	Code    int               `json:"code"`
	Header  http.Header       `json:"-"`
	Headers map[string]string `json:"headers"` // Lower-cased names, first value
	URL     string            `json:"url"`     // URL that produced this response
	Body    []byte            `json:"-"`
	// OriginalURL is set only if a redirect occurred. It represents the initial URL before any redirects.
	OriginalURL string `json:"original_url,omitempty"`
	Redirects   []Hop  `json:"redirects,omitempty"`
}

// NewResult builds a Result, flattening header into Headers.
func NewResult(code int, header http.Header, url string, body []byte) *Result {
	return &Result{
		Code:    code,
		Header:  header,
		Headers: FlattenHeader(header),
		URL:     url,
		Body:    body,
	}
}

// FlattenHeader converts multi-value headers to lower-cased single-value.
func FlattenHeader(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[strings.ToLower(k)] = v[0]
		}
	}
	return result
}

// FetchResponse - Response from a fetch tool call
type FetchResponse struct {
	URL         string            `json:"url"`
	Code        int               `json:"code"`
	Headers     map[string]string `json:"headers"`
	ContentType string            `json:"content_type,omitempty"`
	Content     string            `json:"content,omitempty"`
	OriginalURL string            `json:"original_url,omitempty"`
	Redirects   []Hop             `json:"redirects,omitempty"`
}

// FetchError - Classified failure of a fetch tool call
type FetchError struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Status  int    `json:"status,omitempty"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

// MultipleFetchResponse - Multiple URLs fetch response
type MultipleFetchResponse struct {
	Responses map[string]*FetchResponse `json:"responses"` // Map of responses with URLs as keys
	Errors    map[string]*FetchError    `json:"errors"`    // Map of errors with failed URLs as keys
}
