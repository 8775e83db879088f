// Package fault classifies every failure of a request into one uniform
// error shape carrying a kind, a code and the URL active at failure time.
package fault

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"strconv"
	"syscall"

	"github.com/cockroachdb/errors"
)

// Kind identifies the failure domain of a classified error.
type Kind int

const (
	// InvalidInput is a caller contract violation detected while
	// normalizing the request. It is always reported synchronously.
	InvalidInput Kind = iota
	// NameResolutionFailure covers both a hostname that fails syntactic
	// validation before any I/O and a resolver that returned not found.
	NameResolutionFailure
	// RedirectWithoutLocation is a redirect status with no Location header.
	RedirectWithoutLocation
	// RedirectLoop means the redirect hop ceiling was exceeded.
	RedirectLoop
	// TransportFailure is any other network, TLS or decoding fault.
	TransportFailure
)

var kindNames = []string{
	"InvalidInput",
	"NameResolutionFailure",
	"RedirectWithoutLocation",
	"RedirectLoop",
	"TransportFailure",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Codes used when no protocol status applies.
const (
	CodeNotFound       = "ENOTFOUND"
	CodeTryAgain       = "EAI_AGAIN"
	CodeBadName        = "EBADNAME"
	CodeConnRefused    = "ECONNREFUSED"
	CodeConnReset      = "ECONNRESET"
	CodeTimeout        = "ETIMEDOUT"
	CodeCanceled       = "ECANCELED"
	CodeInvalid        = "EINVAL"
	CodeProtocol       = "EPROTO"
	CodeUntrustedCert  = "UNABLE_TO_VERIFY_LEAF_SIGNATURE"
	CodeAltNameInvalid = "ERR_TLS_CERT_ALTNAME_INVALID"
	CodeCertExpired    = "CERT_HAS_EXPIRED"
	CodeDataError      = "Z_DATA_ERROR"
	CodeBodyTooLarge   = "EMSGSIZE"
	CodeUnknown        = "EUNKNOWN"
)

// MissingURLMessage is reported when an options structure has no URL.
const MissingURLMessage = "The options object requires an input URL value."

// Error is the classified failure value delivered to callers.
type Error struct {
	// Kind is the failure domain.
	Kind Kind
	// Status is the HTTP status code for redirect failures, 0 otherwise.
	Status int
	// Code is the decimal status for redirect failures, or a resolution
	// or transport token otherwise.
	Code string
	// URL is the URL active when the failure happened.
	URL string
	// Message is a human-readable description.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case InvalidInput, RedirectLoop:
		return e.Message
	}
	if e.URL == "" {
		return fmt.Sprintf("httpget: %s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("httpget: %s (%s) %s: %s", e.Kind, e.Code, e.URL, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInvalidInput creates an InvalidInput error.
func NewInvalidInput(url, message string, cause error) *Error {
	return &Error{
		Kind:    InvalidInput,
		Code:    CodeInvalid,
		URL:     url,
		Message: message,
		Err:     cause,
	}
}

// NewMissingURL creates the InvalidInput error for an options structure
// lacking a URL.
func NewMissingURL() *Error {
	return NewInvalidInput("", MissingURLMessage, nil)
}

// NewBadHostname creates a NameResolutionFailure for a hostname rejected
// before any network attempt.
func NewBadHostname(url, host string, cause error) *Error {
	return &Error{
		Kind:    NameResolutionFailure,
		Code:    CodeBadName,
		URL:     url,
		Message: fmt.Sprintf("malformed hostname %q", host),
		Err:     cause,
	}
}

// NewRedirectWithoutLocation creates the error for a redirect status that
// carries no Location header.
func NewRedirectWithoutLocation(url string, status int) *Error {
	return &Error{
		Kind:    RedirectWithoutLocation,
		Status:  status,
		Code:    strconv.Itoa(status),
		URL:     url,
		Message: fmt.Sprintf("Redirect response %d without a Location header.", status),
	}
}

// NewRedirectLoop creates the error for an exhausted redirect chain.
// The URL is the one originally requested.
func NewRedirectLoop(originalURL string, status, hops int) *Error {
	return &Error{
		Kind:    RedirectLoop,
		Status:  status,
		Code:    strconv.Itoa(status),
		URL:     originalURL,
		Message: fmt.Sprintf("Redirect loop detected after %d requests.", hops),
	}
}

// NewDecodeError creates the TransportFailure for a corrupt encoded body.
func NewDecodeError(url, encoding string, cause error) *Error {
	return &Error{
		Kind:    TransportFailure,
		Code:    CodeDataError,
		URL:     url,
		Message: fmt.Sprintf("failed to decode %s body", encoding),
		Err:     cause,
	}
}

// NewTransport creates a TransportFailure with an explicit code.
func NewTransport(url, code, message string, cause error) *Error {
	return &Error{
		Kind:    TransportFailure,
		Code:    code,
		URL:     url,
		Message: message,
		Err:     cause,
	}
}

// Classify maps err to a classified error carrying url. An error that
// is already classified is returned as is. Classify returns nil for a
// nil error.
func Classify(err error, url string) *Error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		code := CodeTryAgain
		if dnsErr.IsNotFound {
			code = CodeNotFound
		}
		return &Error{
			Kind:    NameResolutionFailure,
			Code:    code,
			URL:     url,
			Message: dnsErr.Error(),
			Err:     err,
		}
	}

	code := transportCode(err)
	return NewTransport(url, code, err.Error(), err)
}

func transportCode(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	}

	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return CodeUntrustedCert
	}
	var hostname x509.HostnameError
	if errors.As(err, &hostname) {
		return CodeAltNameInvalid
	}
	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) {
		if invalid.Reason == x509.Expired {
			return CodeCertExpired
		}
		return CodeUntrustedCert
	}
	var verification *tls.CertificateVerificationError
	if errors.As(err, &verification) {
		return CodeUntrustedCert
	}
	var record tls.RecordHeaderError
	if errors.As(err, &record) {
		return CodeProtocol
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return CodeTimeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED:
			return CodeConnRefused
		case syscall.ECONNRESET:
			return CodeConnReset
		case syscall.ETIMEDOUT:
			return CodeTimeout
		}
	}

	return CodeUnknown
}

// KindOf returns the kind of a classified error and whether err is one.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

func isKind(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}

// IsInvalidInput reports whether err is an InvalidInput error.
func IsInvalidInput(err error) bool { return isKind(err, InvalidInput) }

// IsNameResolution reports whether err is a NameResolutionFailure.
func IsNameResolution(err error) bool { return isKind(err, NameResolutionFailure) }

// IsRedirectWithoutLocation reports whether err is a RedirectWithoutLocation error.
func IsRedirectWithoutLocation(err error) bool { return isKind(err, RedirectWithoutLocation) }

// IsRedirectLoop reports whether err is a RedirectLoop error.
func IsRedirectLoop(err error) bool { return isKind(err, RedirectLoop) }

// IsTransport reports whether err is a TransportFailure.
func IsTransport(err error) bool { return isKind(err, TransportFailure) }
