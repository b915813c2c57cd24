package drs

import (
	"context"
	"strings"

	"github.com/birkland/drs/metadata"
)

// Client is the capability set of a single DRS backend.
type Client interface {

	// Host returns the network location (host[:port]) the client talks to.
	Host() string

	// GetObject fetches metadata for the object with the given backend-local id.
	GetObject(ctx context.Context, id string) (*metadata.Object, error)

	// GetAccessURL fetches a URL for downloading the object.  An empty accessID
	// lets the client pick one from the object's access methods.
	GetAccessURL(ctx context.Context, id, accessID string) (*metadata.AccessURL, error)
}

// Descriptor names a backend and the keys it can be reached under.  The Client is
// shared by reference between every prefix alias and the host entry.
type Descriptor struct {
	Name     string
	Prefixes []string
	Host     string
	URL      string
	Client   Client
}

// Route names the rule that matched an identifier during resolution
type Route int

// Resolution routes, in order of precedence
const (
	Unrouted Route = iota
	Prefix
	Host
	Lazy
)

var routeNames = map[Route]string{
	Unrouted: "unrouted",
	Prefix:   "prefix",
	Host:     "host",
	Lazy:     "lazy",
}

func (r Route) String() string {
	if name, ok := routeNames[r]; ok {
		return name
	}
	return routeNames[Unrouted]
}

// ParseRoute parses a route name.  Unknown names parse as Unrouted
func ParseRoute(name string) Route {
	for r, n := range routeNames {
		if strings.EqualFold(n, name) {
			return r
		}
	}
	return Unrouted
}
