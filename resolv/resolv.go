package resolv

import (
	"fmt"
	"log/slog"

	"github.com/birkland/drs"
	"github.com/birkland/drs/drivers/rest"
	"github.com/birkland/drs/internal/ident"
	"github.com/pkg/errors"
)

// DefaultScheme is used to build base URLs for hosts seen for the first time
const DefaultScheme = "https"

// Resolution is a resolved identifier: the client of the backend that owns it, and
// the backend-local id.  Key is the prefix or host that matched.
type Resolution struct {
	Client  drs.Client
	LocalID string
	Route   drs.Route
	Key     string
}

// ClientFunc builds an unauthenticated client for a base URL.  It is used for hosts
// that were never configured nor discovered.
type ClientFunc func(baseURL string) (drs.Client, error)

// Resolver maps identifiers to backend clients
type Resolver struct {
	table     *table
	scheme    string
	newClient ClientFunc
	log       *slog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger.  slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithScheme sets the URL scheme used for hosts seen for the first time
func WithScheme(scheme string) Option {
	return func(r *Resolver) {
		if scheme != "" {
			r.scheme = scheme
		}
	}
}

// WithClientFunc overrides how clients for hosts seen for the first time are built
func WithClientFunc(f ClientFunc) Option {
	return func(r *Resolver) {
		if f != nil {
			r.newClient = f
		}
	}
}

// DefaultClient builds an anonymous REST client
func DefaultClient(baseURL string) (drs.Client, error) {
	return rest.NewDriver(rest.Config{URL: baseURL})
}

// errNoSegment is the reason given for identifiers that are neither compact with a known
// prefix, nor carry a host
var errNoSegment = errors.WithMessage(drs.ErrUnrecognized, "no known prefix, no separable host segment")

// New establishes a new resolver over a static set of backends.  A descriptor that
// cannot be registered (no client, no host) is a configuration error, since the
// resolver could not guarantee the backend set it was given.
func New(static []drs.Descriptor, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		table:     newTable(),
		scheme:    DefaultScheme,
		newClient: DefaultClient,
		log:       slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	for _, d := range static {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds a backend under all of its prefixes and its host.  If the descriptor
// names no host, the client's is used.
func (r *Resolver) Register(d drs.Descriptor) error {
	if d.Client == nil {
		return drs.Errorf(drs.Configuration, d.Name, "backend has no client")
	}

	if d.Host == "" {
		d.Host = d.Client.Host()
	}
	if d.Host == "" {
		return drs.Errorf(drs.Configuration, d.Name, "backend has no host")
	}

	r.table.register(d)
	r.log.Debug("registered DRS backend", "name", d.Name, "host", d.Host, "prefixes", d.Prefixes)
	return nil
}

// Resolve finds the client for an identifier.
//
// Precedence is strict: after stripping drs://, a known compact prefix (everything before
// the first colon) wins, even when the identifier could be read as host:port/id.
// Otherwise the segment before the first solidus is looked up as a host, and an unknown
// host gets a new anonymous client which is remembered for next time.  Identifiers with
// neither are Unresolved.
func (r *Resolver) Resolve(id string) (Resolution, error) {
	stripped := ident.Normalize(id)

	if prefix, rest, ok := ident.SplitCompact(stripped); ok {
		if c, known := r.table.prefix(prefix); known {
			return Resolution{Client: c, LocalID: rest, Route: drs.Prefix, Key: prefix}, nil
		}
		r.log.Debug("not a recognized prefix", "id", id, "prefix", prefix)
	}

	host, rest, ok := ident.SplitHost(stripped)
	if !ok || host == "" {
		return Resolution{}, drs.Wrap(errNoSegment, drs.Unresolved, id)
	}

	if c, known := r.table.host(host); known {
		return Resolution{Client: c, LocalID: rest, Route: drs.Host, Key: host}, nil
	}

	c, created, err := r.table.upsertHost(host, func() (drs.Client, error) {
		return r.newClient(ident.BaseURL(r.scheme, host))
	})
	if err != nil {
		return Resolution{}, drs.Wrap(
			errors.WithMessage(drs.ErrUnrecognized, fmt.Sprintf("could not build client for host %s: %s", host, err)),
			drs.Unresolved, id)
	}

	route := drs.Host
	if created {
		route = drs.Lazy
		r.log.Info("adding DRS client", "host", host)
	}

	return Resolution{Client: c, LocalID: rest, Route: route, Key: host}, nil
}

// Prefixes lists every known compact id prefix, sorted
func (r *Resolver) Prefixes() []string {
	return r.table.prefixKeys()
}

// Hosts lists every known host, sorted
func (r *Resolver) Hosts() []string {
	return r.table.hostKeys()
}
