package resolv

import (
	"context"

	"github.com/birkland/drs"
	"github.com/birkland/drs/internal/ident"
	"github.com/birkland/drs/registry"
	"github.com/pkg/errors"
)

// Describe builds the descriptor of a registered service: its client, its prefix (from
// curiePrefix, if any) and the host parsed from its URL.
func Describe(svc registry.Service, f *Factory) (drs.Descriptor, error) {
	host, err := ident.HostOf(svc.URL)
	if err != nil {
		return drs.Descriptor{}, errors.Wrapf(err, "bad url for service %s", svc.ID)
	}

	client, err := f.Build(svc)
	if err != nil {
		return drs.Descriptor{}, errors.Wrapf(err, "could not build client for service %s", svc.ID)
	}

	name := svc.Name
	if name == "" {
		name = svc.ID
	}

	desc := drs.Descriptor{
		Name:   name,
		Host:   host,
		URL:    svc.URL,
		Client: client,
	}
	if svc.CuriePrefix != "" {
		desc.Prefixes = []string{svc.CuriePrefix}
	}
	return desc, nil
}

// Discover queries a federation directory for services of the given type (e.g.
// registry.DRSType) and registers each one under its prefix and host.  The descriptors
// registered are returned in directory order.
//
// If the directory is unreachable or answers with something other than a list of
// services, nothing is registered and an error tagged RegistryUnavailable is returned.
// That error is not fatal: the resolver carries on with the backends it already knows.
// Individual services that cannot be described are skipped with a warning.
func (r *Resolver) Discover(ctx context.Context, dir registry.Directory, typeTag string, f *Factory) ([]drs.Descriptor, error) {
	if f == nil {
		f = NewFactory(nil)
	}

	services, err := dir.Services(ctx, typeTag)
	if err != nil {
		if drs.KindOf(err) != drs.RegistryUnavailable {
			err = drs.Wrap(err, drs.RegistryUnavailable, "")
		}
		r.log.Warn("service registry unavailable, cannot get registered DRS services; continuing with locally known DRS services",
			"err", err)
		return nil, err
	}

	descs := make([]drs.Descriptor, 0, len(services))
	for _, svc := range services {
		desc, err := Describe(svc, f)
		if err != nil {
			r.log.Warn("skipping registered service", "id", svc.ID, "url", svc.URL, "err", err)
			continue
		}
		descs = append(descs, desc)
		r.log.Debug("discovered DRS service", "id", svc.ID, "url", svc.URL, "prefix", svc.CuriePrefix)
	}

	r.table.register(descs...)
	return descs, nil
}
