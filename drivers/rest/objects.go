package rest

import (
	"bytes"
	"context"
	"net/http"

	"github.com/birkland/drs"
	"github.com/birkland/drs/metadata"
	"github.com/pkg/errors"
)

// GetObject fetches the metadata of a single object.
//
// Non-2xx answers become drs.StatusError.  A 2xx answer that does not decode to a
// valid object is a MalformedResponse; it is never silently treated as success.
func (d *Driver) GetObject(ctx context.Context, id string) (*metadata.Object, error) {
	u, err := d.objectURL(id)
	if err != nil {
		return nil, err
	}

	body, err := d.get(ctx, id, u)
	if err != nil {
		return nil, err
	}

	var obj metadata.Object
	if err := metadata.Parse(bytes.NewReader(body), &obj); err != nil {
		return nil, drs.Wrap(err, drs.MalformedResponse, id)
	}

	if err := obj.Validate(); err != nil {
		return nil, drs.Wrap(err, drs.MalformedResponse, id)
	}

	return &obj, nil
}

// GetAccessURL fetches a URL for an object.
//
// Without an access id, the object's metadata is fetched first and an access method
// picked from it: one of the configured AccessType if present, else the first one.
// A method carrying an inline access_url short-circuits the second request.
func (d *Driver) GetAccessURL(ctx context.Context, id, accessID string) (*metadata.AccessURL, error) {
	if accessID == "" {
		obj, err := d.GetObject(ctx, id)
		if err != nil {
			return nil, err
		}

		method, ok := obj.Method(d.cfg.AccessType)
		if !ok {
			method, ok = obj.Method("")
		}
		if !ok {
			return nil, drs.Errorf(drs.NotFound, id, "object has no access methods")
		}

		if method.AccessURL != nil && method.AccessURL.URL != "" {
			return method.AccessURL, nil
		}
		accessID = method.AccessID
	}

	au, err := d.objectURL(id, "access", accessID)
	if err != nil {
		return nil, err
	}

	body, err := d.get(ctx, id, au)
	if err != nil {
		return nil, err
	}

	var u metadata.AccessURL
	if err := metadata.ParseAccessURL(bytes.NewReader(body), &u); err != nil {
		return nil, drs.Wrap(err, drs.MalformedResponse, id)
	}

	if err := u.Validate(); err != nil {
		return nil, drs.Wrap(err, drs.MalformedResponse, id)
	}

	return &u, nil
}

// get performs an authorized GET, retrying once with fresh credentials
// when the backend answers 401 and the authorizer caches a token.
func (d *Driver) get(ctx context.Context, id, u string) ([]byte, error) {
	body, status, err := d.do(ctx, id, u)
	if status == http.StatusUnauthorized {
		if r, ok := d.cfg.Auth.(Resetter); ok {
			r.Reset()
			body, _, err = d.do(ctx, id, u)
		}
	}
	return body, err
}

func (d *Driver) do(ctx context.Context, id, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, drs.Wrap(errors.Wrapf(err, "could not build request for %s", u), drs.BadRequest, id)
	}
	req.Header.Set("Accept", "application/json")

	if err := d.cfg.Auth.Authorize(ctx, req); err != nil {
		return nil, 0, d.failure(ctx, err, id)
	}

	resp, err := d.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, d.failure(ctx, errors.Wrapf(err, "GET %s failed", u), id)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, drs.StatusError(resp.StatusCode, id, ErrorBody(resp.Body))
	}

	body, err := ReadResponse(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, d.failure(ctx, errors.Wrapf(err, "could not read response from %s", u), id)
	}

	return body, resp.StatusCode, nil
}

// Tags a failure that did not come with an HTTP status.  Errors already tagged
// (e.g. by a token exchange) keep their kind.
func (d *Driver) failure(ctx context.Context, err error, id string) error {
	if ctx.Err() != nil {
		return drs.Wrap(err, drs.Canceled, id)
	}
	if drs.KindOf(err) != drs.Transport {
		return err
	}
	return drs.Wrap(err, drs.Transport, id)
}
