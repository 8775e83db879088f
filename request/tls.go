package request

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
)

// TLSPolicy is the certificate trust configuration of a request.
//
// When InsecureSkipVerify is set no certificate validation happens at
// all, even if RootCAs is also set. Otherwise a non-nil RootCAs is the
// only set of trusted authorities. When both are unset the transport's
// default trust store applies.
type TLSPolicy struct {
	RootCAs            *x509.CertPool
	InsecureSkipVerify bool

	fingerprint string
}

// Default reports whether the policy defers to the transport defaults.
func (p TLSPolicy) Default() bool {
	return p.RootCAs == nil && !p.InsecureSkipVerify
}

// Key identifies the policy so transports can share clients between
// requests using an equal policy.
func (p TLSPolicy) Key() string {
	switch {
	case p.InsecureSkipVerify:
		return "insecure"
	case p.RootCAs == nil:
		return "default"
	case p.fingerprint != "":
		return "ca:" + p.fingerprint
	default:
		return fmt.Sprintf("pool:%p", p.RootCAs)
	}
}

// NewTLSPolicy builds a policy from PEM encoded authorities. It returns
// ok=false when a non-empty ca list contains no parsable certificate.
func NewTLSPolicy(ca []string, insecure bool) (TLSPolicy, bool) {
	p := TLSPolicy{InsecureSkipVerify: insecure}
	if len(ca) == 0 {
		return p, true
	}

	pool := x509.NewCertPool()
	sum := sha256.New()
	parsed := false
	for _, pem := range ca {
		if pool.AppendCertsFromPEM([]byte(pem)) {
			parsed = true
		}
		sum.Write([]byte(pem))
	}
	if !parsed {
		return p, false
	}

	p.RootCAs = pool
	p.fingerprint = hex.EncodeToString(sum.Sum(nil))
	return p, true
}
