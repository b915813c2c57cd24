// Package urlpath maps DRS object identifiers onto URL path segments.
package urlpath

import (
	"net/url"
	"strings"
)

// Generator generates a single URL path segment from a given identifier.  The
// resulting segments are appended to a backend's base URL when building object and
// access requests, so they must not contain an unescaped solidus unless the backend
// expects one.
type Generator interface {
	Generate(string) string
}

// GeneratorFunc is a function that can be used to satisfy the Generator interface
type GeneratorFunc func(string) string

// Generate a path from a given id string
func (g GeneratorFunc) Generate(id string) string {
	return g(id)
}

// Escape is the default Generator.  Every reserved character is escaped,
// including any solidus in the id.
var Escape Generator = GeneratorFunc(url.PathEscape)

// Passthrough keeps ids as they are, except with any leading solidus removed.  Some
// backends (e.g. those using "dg.XXXX/uuid" style GUIDs) want slashes verbatim.
var Passthrough Generator = GeneratorFunc(func(id string) string {
	return strings.TrimLeft(id, "/")
})
