package config

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/birkland/drs"
	"github.com/birkland/drs/drivers/rest"
	"github.com/birkland/drs/registry"
	"github.com/birkland/drs/resolv"
	"github.com/birkland/drs/urlpath"
	"github.com/pkg/errors"
)

// Backends is the outcome of building a configuration: the descriptors to register
// up front, and the factory that builds clients for discovered services
type Backends struct {
	Static  []drs.Descriptor
	Factory *resolv.Factory
}

// Build creates a client for every configured backend.  A credential file that is
// named but absent leaves the backend anonymous, with a warning.  Anything else
// that prevents a backend from being built is a Configuration error.
func (c *Config) Build(client *http.Client, log *slog.Logger) (*Backends, error) {
	if log == nil {
		log = slog.Default()
	}

	keys, err := ScanKeys(c.KeysDir)
	if err != nil {
		return nil, drs.Wrap(err, drs.Configuration, "")
	}

	built := &Backends{
		Factory: resolv.NewFactory(nil),
	}

	for _, b := range c.Backends {
		auth, err := b.authorizer(keys, client, log)
		if err != nil {
			return nil, drs.Wrap(errors.Wrapf(err, "could not set up auth for %s", b.Name), drs.Configuration, b.Name)
		}

		driver, err := b.driver(b.URL, auth, client)
		if err != nil {
			return nil, drs.Wrap(err, drs.Configuration, b.Name)
		}

		if len(b.Prefixes) > 0 {
			built.Static = append(built.Static, drs.Descriptor{
				Name:     b.Name,
				Prefixes: b.Prefixes,
				Host:     driver.Host(),
				URL:      b.URL,
				Client:   driver,
			})
		}

		build := b.constructor(driver, auth, client)
		for _, p := range b.Prefixes {
			built.Factory.Add(resolv.Rule{Prefix: p, Build: build})
		}
		for _, u := range append([]string{b.URL}, b.MatchURLs...) {
			built.Factory.Add(resolv.Rule{URL: u, Build: build})
		}

		log.Debug("configured DRS backend", "name", b.Name, "url", b.URL, "auth", b.authKind())
	}

	return built, nil
}

func (b Backend) authKind() string {
	if b.Auth.Kind == "" {
		return AuthNone
	}
	return b.Auth.Kind
}

func (b Backend) driver(url string, auth rest.Authorizer, client *http.Client) (*rest.Driver, error) {
	return rest.NewDriver(rest.Config{
		Name:       b.Name,
		URL:        url,
		AccessType: b.AccessType,
		ObjectPath: b.objectPath(),
		Auth:       auth,
		HTTPClient: client,
	})
}

func (b Backend) objectPath() urlpath.Generator {
	if b.ObjectPath == PathPassthrough {
		return urlpath.Passthrough
	}
	return urlpath.Escape
}

// constructor serves a discovered service with the backend's settings, reusing the
// configured driver when the service is the very same one
func (b Backend) constructor(configured *rest.Driver, auth rest.Authorizer, client *http.Client) resolv.Constructor {
	return func(svc registry.Service) (drs.Client, error) {
		if sameURL(svc.URL, b.URL) {
			return configured, nil
		}
		return b.driver(svc.URL, auth, client)
	}
}

func (b Backend) authorizer(keys Keys, client *http.Client, log *slog.Logger) (rest.Authorizer, error) {
	kind := b.authKind()
	if kind == AuthNone {
		return rest.Anonymous, nil
	}

	path, ok := keys.Find(b.Auth.Credentials)
	if !ok {
		log.Warn("credentials not found, continuing anonymously", "backend", b.Name, "credentials", b.Auth.Credentials)
		return rest.Anonymous, nil
	}

	creds, err := ReadCredentials(path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case AuthBearer:
		if creds.Token == "" {
			return nil, errors.Errorf("no token in %s", path)
		}
		return rest.Bearer(creds.Token), nil
	case AuthSevenBridges:
		if creds.Token == "" {
			return nil, errors.Errorf("no token in %s", path)
		}
		return rest.SevenBridges(creds.Token), nil
	case AuthGen3:
		if creds.APIKey == "" {
			return nil, errors.Errorf("no api_key in %s", path)
		}
		return rest.Gen3(b.URL, creds.APIKey, client), nil
	case AuthBasic:
		user := b.Auth.User
		if user == "" {
			user = creds.User
		}
		return rest.Basic(b.Auth.AuthURL, user, creds.Password, client), nil
	default:
		return nil, errors.Errorf("unknown auth kind %q", kind)
	}
}

func sameURL(a, b string) bool {
	return strings.EqualFold(strings.TrimRight(a, "/"), strings.TrimRight(b, "/"))
}
