package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/birkland/drs"
	"github.com/pkg/errors"
)

// DefaultURL is the public GA4GH service registry
const DefaultURL = "https://registry.ga4gh.org/v1"

// DRSType is the service type tag of DRS services
const DRSType = "org.ga4gh:drs"

// maxPayload bounds the size of a registry listing
const maxPayload int64 = 32 << 20

// Directory lists registered services of a given type
type Directory interface {
	Services(ctx context.Context, typeTag string) ([]Service, error)
}

// DirectoryFunc is a function that can be used to satisfy the Directory interface
type DirectoryFunc func(ctx context.Context, typeTag string) ([]Service, error)

// Services lists services
func (f DirectoryFunc) Services(ctx context.Context, typeTag string) ([]Service, error) {
	return f(ctx, typeTag)
}

// Service is a single registry entry, a GA4GH service-info record
type Service struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	URL          string        `json:"url"`
	CuriePrefix  string        `json:"curiePrefix,omitempty"`
	Type         ServiceType   `json:"type"`
	Description  string        `json:"description,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
	Version      string        `json:"version,omitempty"`
	Environment  string        `json:"environment,omitempty"`
}

// ServiceType is the {group, artifact, version} triple identifying an API
type ServiceType struct {
	Group    string `json:"group"`
	Artifact string `json:"artifact"`
	Version  string `json:"version"`
}

// Organization operating a service
type Organization struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Tag renders the type as group:artifact:version
func (t ServiceType) Tag() string {
	if t.Version == "" {
		return t.Group + ":" + t.Artifact
	}
	return t.Group + ":" + t.Artifact + ":" + t.Version
}

// Matches tells whether the type matches a tag of the form group:artifact[:version].
// An empty tag matches everything.
func (t ServiceType) Matches(tag string) bool {
	if tag == "" {
		return true
	}
	parts := strings.SplitN(tag, ":", 3)
	if len(parts) < 2 || parts[0] != t.Group || parts[1] != t.Artifact {
		return false
	}
	return len(parts) == 2 || parts[2] == "*" || parts[2] == t.Version
}

// Client talks to a service registry over HTTP
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a registry client for the registry at the given base URL.  A nil
// http client means http.DefaultClient.
func NewClient(baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: client,
	}
}

// Services lists registered services of the given type.
//
// A registry that cannot be reached, that answers with a non-200 status, or whose
// answer is not a list of services (e.g. {"message": "Service Unavailable"}) yields
// an error tagged drs.RegistryUnavailable.
func (c *Client) Services(ctx context.Context, typeTag string) ([]Service, error) {
	u := c.base + "/services"
	if typeTag != "" {
		u += "?type=" + url.QueryEscape(typeTag)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, unavailable(errors.Wrapf(err, "could not build request for %s", u))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, unavailable(errors.Wrapf(err, "GET %s failed", u))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, unavailable(errors.Wrapf(err, "could not read registry response"))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &drs.Error{
			Kind:   drs.RegistryUnavailable,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("registry answered %s", resp.Status),
		}
	}

	return parseServices(payload, typeTag)
}

func parseServices(payload []byte, typeTag string) ([]Service, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, unavailable(fmt.Errorf("registry returned something other than a list of services: %.200s", trimmed))
	}

	var all []Service
	if err := json.Unmarshal(trimmed, &all); err != nil {
		return nil, unavailable(errors.Wrap(err, "could not decode registered services"))
	}

	services := make([]Service, 0, len(all))
	for _, s := range all {
		if s.Type.Matches(typeTag) {
			services = append(services, s)
		}
	}
	return services, nil
}

func unavailable(err error) error {
	return drs.Wrap(err, drs.RegistryUnavailable, "")
}
