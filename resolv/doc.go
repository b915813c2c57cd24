// Package resolv provides facilities for identifying and resolving DRS identifiers.  Given
// an identifier in any of its forms (drs://host/id, prefix:id, host/id), the resolv
// package is responsible for finding the Client of the backend that owns it, and the
// id that backend knows the object by.
//
// Backends become known in three ways: statically at construction, from a federation
// directory via Discover, and lazily the first time an identifier names an unknown host.
// Tables only ever grow.
package resolv
