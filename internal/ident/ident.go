// Package ident parses raw DRS identifiers.  Nothing here knows which prefixes or
// hosts are registered; it only takes identifiers apart.
package ident

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Scheme is the literal prefix stripped by Normalize
const Scheme = "drs://"

// Normalize removes a literal leading "drs://".  No other canonicalization (case
// folding, percent-decoding) is done.
func Normalize(raw string) string {
	return strings.TrimPrefix(raw, Scheme)
}

// SplitCompact splits a compact "prefix:localId" identifier on its first colon.
// The local id may itself contain colons.
func SplitCompact(id string) (prefix, rest string, ok bool) {
	i := strings.IndexByte(id, ':')
	if i < 0 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

// SplitHost splits a "host[:port]/localId" identifier on its first solidus.
func SplitHost(id string) (host, rest string, ok bool) {
	i := strings.IndexByte(id, '/')
	if i < 0 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

// HostOf gives the host[:port] of a service URL
func HostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "could not parse service url %s", rawURL)
	}

	if u.Host == "" {
		return "", fmt.Errorf("service url %s has no host", rawURL)
	}

	return u.Host, nil
}

// BaseURL synthesizes a base URL for a bare host
func BaseURL(scheme, host string) string {
	return scheme + "://" + host
}
