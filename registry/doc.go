// Package registry is a client for a GA4GH service registry: the federation
// directory in which DRS services advertise their endpoints and compact id prefixes.
//
// The registry is an optional source of backends.  Callers are expected to treat
// every error from it (all tagged drs.RegistryUnavailable) as a reason to carry on
// with the backends they already know about.
package registry
