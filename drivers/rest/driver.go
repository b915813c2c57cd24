// Package rest provides a drs.Client for backends speaking the GA4GH DRS v1 REST API.
//
// A single Driver type covers every backend; what differs between backends is how
// requests are authorized (see Authorizer), which access method is preferred when a
// caller does not name one, and how object ids are mapped onto URL paths.
package rest

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/birkland/drs"
	"github.com/birkland/drs/internal/ident"
	"github.com/birkland/drs/urlpath"
	"github.com/pkg/errors"
)

// APIPath is the path of the DRS API relative to a service's base URL
const APIPath = "/ga4gh/drs/v1"

// Driver is a DRS client for a single backend service
type Driver struct {
	cfg  Config
	base *url.URL
	host string
}

// Config encapsulates a REST driver config.
//
// Only URL is mandatory.  Without an Authorizer, requests are sent anonymously,
// which is enough for metadata of open-access objects on most backends.
type Config struct {
	Name       string            // human readable name, for diagnostics
	URL        string            // service base URL, with or without the /ga4gh/drs/v1 suffix
	AccessType string            // preferred access method type (e.g. s3, gs) when no access id is given
	ObjectPath urlpath.Generator // maps object ids to a path segment; urlpath.Escape by default
	Auth       Authorizer        // request authorization; anonymous by default
	HTTPClient *http.Client      // http.DefaultClient by default
}

// NewDriver initializes a new REST driver for the service at the configured URL
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("no service url given")
	}

	host, err := ident.HostOf(cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "bad url for %s", cfg.Name)
	}

	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse %s", cfg.URL)
	}
	if !strings.HasSuffix(base.Path, APIPath) {
		base.Path += APIPath
	}

	if cfg.ObjectPath == nil {
		cfg.ObjectPath = urlpath.Escape
	}
	if cfg.Auth == nil {
		cfg.Auth = Anonymous
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	return &Driver{
		cfg:  cfg,
		base: base,
		host: host,
	}, nil
}

// Host returns the host[:port] of the backend
func (d *Driver) Host() string {
	return d.host
}

// Name returns the configured name, or the host if there is none
func (d *Driver) Name() string {
	if d.cfg.Name != "" {
		return d.cfg.Name
	}
	return d.host
}

// APIURL returns the base URL of the backend's DRS API
func (d *Driver) APIURL() string {
	return d.base.String()
}

func (d *Driver) String() string {
	return fmt.Sprintf("%s (%s)", d.Name(), d.APIURL())
}

// objectURL builds the URL of an object, or of one of its sub-resources.  An id
// the path generator leaves with a broken escape is a BadRequest.
func (d *Driver) objectURL(id string, segments ...string) (string, error) {
	u := *d.base
	raw := u.EscapedPath() + "/objects/" + d.cfg.ObjectPath.Generate(id)
	for _, s := range segments {
		raw += "/" + url.PathEscape(s)
	}

	path, err := url.PathUnescape(raw)
	if err != nil {
		return "", drs.Wrap(errors.Wrapf(err, "bad object path %s", raw), drs.BadRequest, id)
	}
	u.Path, u.RawPath = path, raw
	return u.String(), nil
}
