// Package drs defines an API for resolving DRS object identifiers to the backend
// services that own them.
//
// Backends are reached through one or more Client implementations.  A client may
// talk to a generic GA4GH DRS endpoint, or to a repository that needs its own
// credentials (Gen3, Seven Bridges, etc).  See individual driver documentation under
// drivers/ for more information, and the resolv and dispatch packages for routing
// identifiers to clients.
package drs
