// Package decode reverses the content encoding of a response body.
package decode

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// Supported encodings.
const (
	Gzip    = "gzip"
	XGzip   = "x-gzip"
	Deflate = "deflate"
)

// Encoding returns the normalized Content-Encoding of header.
func Encoding(header http.Header) string {
	return strings.ToLower(strings.TrimSpace(header.Get("Content-Encoding")))
}

// Supported reports whether enc is decoded by Body.
func Supported(enc string) bool {
	switch enc {
	case Gzip, XGzip, Deflate:
		return true
	}
	return false
}

// Body decodes body according to the Content-Encoding in header. When
// compress is false, when the encoding is not supported, or when body is
// empty, body is returned unchanged.
func Body(compress bool, header http.Header, body []byte) ([]byte, error) {
	enc := Encoding(header)
	if !compress || len(body) == 0 || !Supported(enc) {
		return body, nil
	}

	switch enc {
	case Gzip, XGzip:
		return gunzip(body)
	default:
		return inflate(body)
	}
}

func gunzip(body []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open gzip stream")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read gzip stream")
	}
	return out, nil
}

// inflate decodes a zlib wrapped stream, falling back to raw DEFLATE for
// servers that omit the zlib header.
func inflate(body []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err == nil {
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read deflate stream")
		}
		return out, nil
	}

	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read deflate stream")
	}
	return out, nil
}
