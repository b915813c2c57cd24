// Package metadata contains facilities for working with DRS object metadata.
// At the moment, it is mostly a 1:1 reflection of the DRS v1 JSON objects returned by
// GET /objects/{id} and GET /objects/{id}/access/{access_id}.
//
// One notable addition is AccessMethod selection, which picks a method from an
// object by access type, so that callers asking for "some URL" for an object
// do not need to know what a particular backend offers.
package metadata
