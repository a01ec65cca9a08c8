package iiif

import "fmt"

// Scheme partitions cache storage by the protocol the request arrived on.
type Scheme string

const (
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
)

// Identity is the normalized description of a request, sufficient to address
// cache storage. Two identities are equal iff their URLs are equal; the
// scheme is embedded in the URL. Immutable once constructed.
type Identity struct {
	// URL is the originating request URL.
	URL string
	// Scheme selects the storage partition.
	Scheme Scheme
	// AsPath is the decoded path-safe encoding of the request parameters.
	AsPath string
	// CanonicalPath is the canonical encoding of the same parameters.
	CanonicalPath string
	// IsCanonical reports whether the request was already in canonical form.
	IsCanonical bool
}

// InfoIdentity addresses the metadata record for an identifier. Metadata
// requests have no non-canonical spellings.
func InfoIdentity(scheme Scheme, host, rawIdentifier, identifier string) Identity {
	return Identity{
		URL:           fmt.Sprintf("%s://%s/iiif/%s/info.json", scheme, host, rawIdentifier),
		Scheme:        scheme,
		AsPath:        identifier,
		CanonicalPath: identifier,
		IsCanonical:   true,
	}
}

// ImageIdentity addresses a derivative for a resolved image request.
func ImageIdentity(scheme Scheme, host string, req *Request, plan *Plan) Identity {
	asPath := req.Path()
	canonical := plan.CanonicalPath(req.Identifier)
	return Identity{
		URL:           fmt.Sprintf("%s://%s/iiif/%s", scheme, host, req.RawPath()),
		Scheme:        scheme,
		AsPath:        asPath,
		CanonicalPath: canonical,
		IsCanonical:   asPath == canonical,
	}
}
