package transport

import (
	"net"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/idna"
)

// hostProfile follows lookup mapping without STD3 rules, so labels such
// as my_service that resolvers accept stay valid.
var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.StrictDomainName(false),
	idna.BidiRule(),
	idna.VerifyDNSLength(true),
)

// ValidateHost reports whether host is syntactically usable as a DNS
// name or IP literal. It performs no I/O. A single trailing dot is
// accepted.
func ValidateHost(host string) error {
	if host == "" {
		return errors.New("empty hostname")
	}
	if net.ParseIP(host) != nil {
		return nil
	}

	name := strings.TrimSuffix(host, ".")
	for _, label := range strings.Split(name, ".") {
		if label == "" {
			return errors.Newf("hostname %q has an empty label", host)
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return errors.Newf("hostname %q has a label starting or ending with a hyphen", host)
		}
		if i := strings.IndexFunc(label, disallowedASCII); i >= 0 {
			return errors.Newf("hostname %q contains disallowed character %q", host, label[i])
		}
	}
	if _, err := hostProfile.ToASCII(name); err != nil {
		return errors.Wrapf(err, "hostname %q is not a valid domain name", host)
	}
	return nil
}

// disallowedASCII reports ASCII runes that never appear in a resolvable
// name. Letters, digits, hyphen and underscore are allowed. Non-ASCII
// runes are left to the IDNA mapping.
func disallowedASCII(r rune) bool {
	switch {
	case r >= utf8.RuneSelf:
		return false
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		return false
	case r == '-' || r == '_':
		return false
	}
	return true
}
