package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/birkland/drs"
	"github.com/pkg/errors"
)

// Authorizer decorates outgoing requests with credentials
type Authorizer interface {
	Authorize(ctx context.Context, req *http.Request) error
}

// Resetter is implemented by Authorizers holding a cached token that can go stale.
// The driver resets and retries once when a backend answers 401.
type Resetter interface {
	Reset()
}

// AuthorizerFunc is a function that can be used to satisfy the Authorizer interface
type AuthorizerFunc func(ctx context.Context, req *http.Request) error

// Authorize a request
func (f AuthorizerFunc) Authorize(ctx context.Context, req *http.Request) error {
	return f(ctx, req)
}

// Anonymous sends requests without credentials
var Anonymous Authorizer = AuthorizerFunc(func(context.Context, *http.Request) error {
	return nil
})

// Bearer sends a static bearer token
func Bearer(token string) Authorizer {
	return AuthorizerFunc(func(_ context.Context, req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	})
}

// SevenBridges sends a Seven Bridges developer token
func SevenBridges(token string) Authorizer {
	return AuthorizerFunc(func(_ context.Context, req *http.Request) error {
		req.Header.Set("X-SBG-Auth-Token", token)
		return nil
	})
}

// tokenSource lazily exchanges long-lived credentials for a bearer token, and
// caches it until Reset.
type tokenSource struct {
	sync.Mutex
	token    string
	exchange func(ctx context.Context) (string, error)
}

func (s *tokenSource) Authorize(ctx context.Context, req *http.Request) error {
	s.Lock()
	defer s.Unlock()

	if s.token == "" {
		token, err := s.exchange(ctx)
		if err != nil {
			return errors.Wrapf(err, "could not obtain access token")
		}
		s.token = token
	}

	req.Header.Set("Authorization", "Bearer "+s.token)
	return nil
}

func (s *tokenSource) Reset() {
	s.Lock()
	defer s.Unlock()
	s.token = ""
}

// Gen3 exchanges a Gen3 API key for an access token at the fence endpoint of the
// given service (e.g. https://nci-crdc.datacommons.io)
func Gen3(serviceURL, apiKey string, client *http.Client) Authorizer {
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := strings.TrimRight(serviceURL, "/") + "/user/credentials/cdis/access_token"

	return &tokenSource{
		exchange: func(ctx context.Context) (string, error) {
			body, err := json.Marshal(map[string]string{"api_key": apiKey})
			if err != nil {
				return "", err
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
			if err != nil {
				return "", errors.Wrapf(err, "could not build token request for %s", endpoint)
			}
			req.Header.Set("Content-Type", "application/json")

			var token struct {
				AccessToken string `json:"access_token"`
			}
			if err := exchange(client, req, &token); err != nil {
				return "", err
			}
			if token.AccessToken == "" {
				return "", drs.Errorf(drs.MalformedResponse, "", "no access_token in response from %s", endpoint)
			}
			return token.AccessToken, nil
		},
	}
}

// Basic obtains a bearer token by POSTing basic auth credentials to an auth URL,
// taking the response body verbatim as the token.  This is how iRODS DRS services
// hand out tokens.
func Basic(authURL, user, password string, client *http.Client) Authorizer {
	if client == nil {
		client = http.DefaultClient
	}

	return &tokenSource{
		exchange: func(ctx context.Context) (string, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, nil)
			if err != nil {
				return "", errors.Wrapf(err, "could not build token request for %s", authURL)
			}
			req.SetBasicAuth(user, password)

			resp, err := client.Do(req)
			if err != nil {
				return "", errors.Wrapf(err, "token request to %s failed", authURL)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return "", drs.StatusError(resp.StatusCode, "", ErrorBody(resp.Body))
			}

			token, err := ReadResponse(resp.Body)
			if err != nil {
				return "", errors.Wrapf(err, "could not read token from %s", authURL)
			}
			return strings.TrimSpace(string(token)), nil
		},
	}
}

func exchange(client *http.Client, req *http.Request, v interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "token request to %s failed", req.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return drs.StatusError(resp.StatusCode, "", ErrorBody(resp.Body))
	}

	if err := DecodeResponse(resp.Body, v); err != nil {
		return drs.Wrap(fmt.Errorf("undecodable token response: %s", err), drs.MalformedResponse, "")
	}
	return nil
}
