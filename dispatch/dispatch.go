// Package dispatch forwards DRS requests to whichever backend owns each identifier.
//
// Every call is an independent resolve-then-forward.  Batch calls fan out over a
// bounded number of workers, and a failure on one item never stops the others:
// failures come back as data, one result per input.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/birkland/drs"
	"github.com/birkland/drs/metadata"
	"github.com/birkland/drs/resolv"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Operation names, as passed to an Observer
const (
	OpGetObject    = "get_object"
	OpGetAccessURL = "get_access_url"
)

// Defaults for dispatcher options
const (
	DefaultTimeout = 30 * time.Second
	DefaultWorkers = 8
)

// Resolver maps an identifier to a backend client and local id
type Resolver interface {
	Resolve(id string) (resolv.Resolution, error)
}

// Observer is told about the outcome of every single dispatched call
type Observer interface {
	Observe(op string, route drs.Route, kind drs.Kind, elapsed time.Duration)
}

// ObjectResult is the outcome of fetching one object in a batch
type ObjectResult struct {
	ID     string
	Object *metadata.Object
	Err    error
}

// AccessPair names an object and one of its access ids.  An empty AccessID lets the
// backend choose.
type AccessPair struct {
	ID       string
	AccessID string
}

// Key is the "{id}-{accessId}" key of the pair in GetAccessURLs results
func (p AccessPair) Key() string {
	return p.ID + "-" + p.AccessID
}

// URLResult is the outcome of fetching one access URL in a batch
type URLResult struct {
	AccessPair
	URL *metadata.AccessURL
	Err error
}

// Dispatcher resolves identifiers and forwards requests to their backends
type Dispatcher struct {
	resolver Resolver
	timeout  time.Duration
	workers  int
	observer Observer
	log      *slog.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithTimeout bounds every single backend call.  Zero or less disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithWorkers sets how many backend calls a batch may have in flight
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithObserver registers an observer of every call
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// WithLogger sets the logger.  slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// New creates a dispatcher over the given resolver
func New(r Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver: r,
		timeout:  DefaultTimeout,
		workers:  DefaultWorkers,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetObject fetches the metadata of a single object.  An identifier that cannot be
// resolved gives an Unresolved error whose cause is drs.ErrUnrecognized.
func (d *Dispatcher) GetObject(ctx context.Context, id string) (*metadata.Object, error) {
	var obj *metadata.Object
	err := d.call(ctx, OpGetObject, id, func(ctx context.Context, res resolv.Resolution) (err error) {
		obj, err = res.Client.GetObject(ctx, res.LocalID)
		if err == nil && obj == nil {
			err = drs.Errorf(drs.MalformedResponse, id, "backend returned neither an object nor an error")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// GetAccessURL fetches an access URL for a single object
func (d *Dispatcher) GetAccessURL(ctx context.Context, id, accessID string) (*metadata.AccessURL, error) {
	var u *metadata.AccessURL
	err := d.call(ctx, OpGetAccessURL, id, func(ctx context.Context, res resolv.Resolution) (err error) {
		u, err = res.Client.GetAccessURL(ctx, res.LocalID, accessID)
		if err == nil && u == nil {
			err = drs.Errorf(drs.MalformedResponse, id, "backend returned neither an access url nor an error")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetObjects fetches many objects.  The results line up one-to-one with ids,
// regardless of the order in which backends answer.
//
// The returned error is only ever the context's: when ctx is canceled, calls in flight
// are aborted and items not yet started are reported as Canceled.
func (d *Dispatcher) GetObjects(ctx context.Context, ids []string) ([]ObjectResult, error) {
	results := make([]ObjectResult, len(ids))

	var g errgroup.Group
	g.SetLimit(d.workers)

	for i, id := range ids {
		i, id := i, id
		results[i].ID = id

		if err := ctx.Err(); err != nil {
			results[i].Err = drs.Wrap(err, drs.Canceled, id)
			continue
		}

		g.Go(func() error {
			results[i].Object, results[i].Err = d.GetObject(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

// GetAccessURLs fetches many access URLs.  Results are keyed by AccessPair.Key, one
// entry per distinct pair.
func (d *Dispatcher) GetAccessURLs(ctx context.Context, pairs []AccessPair) (map[string]URLResult, error) {
	var mu sync.Mutex
	results := make(map[string]URLResult, len(pairs))
	put := func(r URLResult) {
		mu.Lock()
		defer mu.Unlock()
		results[r.Key()] = r
	}

	var g errgroup.Group
	g.SetLimit(d.workers)

	for _, p := range pairs {
		p := p

		if err := ctx.Err(); err != nil {
			put(URLResult{AccessPair: p, Err: drs.Wrap(err, drs.Canceled, p.ID)})
			continue
		}

		g.Go(func() error {
			u, err := d.GetAccessURL(ctx, p.ID, p.AccessID)
			put(URLResult{AccessPair: p, URL: u, Err: err})
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

// call resolves id and runs f against its backend under the per-call timeout
func (d *Dispatcher) call(ctx context.Context, op, id string, f func(context.Context, resolv.Resolution) error) error {
	start := time.Now()

	res, err := d.resolver.Resolve(id)
	if err != nil {
		d.observe(op, drs.Unrouted, err, start)
		d.log.Debug("could not resolve", "op", op, "id", id, "err", err)
		return err
	}

	if err := ctx.Err(); err != nil {
		d.observe(op, res.Route, err, start)
		return drs.Wrap(err, drs.Canceled, id)
	}

	cctx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	d.log.Debug("sending id", "op", op, "id", res.LocalID, "host", res.Client.Host(), "route", res.Route)

	err = f(cctx, res)
	if err != nil {
		if ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
			err = errors.Wrapf(err, "%s did not answer within %s", res.Client.Host(), d.timeout)
		}
		err = errors.Wrapf(err, "%s %s", op, id)
	}

	d.observe(op, res.Route, err, start)
	return err
}

func (d *Dispatcher) observe(op string, route drs.Route, err error, start time.Time) {
	if d.observer != nil {
		d.observer.Observe(op, route, drs.KindOf(err), time.Since(start))
	}
}
