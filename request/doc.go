/*
Package request turns a loosely specified request description into a
Descriptor, the normalized and immutable unit of work executed by the
client.

A description is either a bare URL string or an Options structure:

	d, err := request.Normalize("HEAD", "127.0.0.1:8080/path#frag")
	...
	d, err := request.Normalize("GET", request.Options{
		URL:        "https://example.com/",
		Headers:    map[string]string{"foo": "bar"},
		NoCompress: true,
	})

Normalization prepends http:// when the URL has no scheme, strips any
fragment, and negotiates content encoding. Every normalization failure
is a *fault.Error of kind InvalidInput, raised before any network
activity.
*/
package request
