package rest_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/birkland/drs"
	"github.com/birkland/drs/drivers/rest"
	"github.com/birkland/drs/metadata"
	"github.com/birkland/drs/urlpath"
)

func TestNewDriver(t *testing.T) {
	cases := []struct {
		name      string
		url       string
		host      string
		api       string
		expectErr bool
	}{
		{"bare", "https://gen3.theanvil.io", "gen3.theanvil.io", "https://gen3.theanvil.io/ga4gh/drs/v1", false},
		{"trailingSlash", "https://gen3.theanvil.io/", "gen3.theanvil.io", "https://gen3.theanvil.io/ga4gh/drs/v1", false},
		{"fullPath", "http://localhost:8080/ga4gh/drs/v1", "localhost:8080", "http://localhost:8080/ga4gh/drs/v1", false},
		{"empty", "", "", "", true},
		{"noHost", "gen3.theanvil.io", "", "", true},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			d, err := rest.NewDriver(rest.Config{URL: c.url})
			if (err != nil) != c.expectErr {
				t.Fatalf("expected error: %t, got error: %v", c.expectErr, err)
			}
			if err != nil {
				return
			}
			if d.Host() != c.host {
				t.Errorf("Expected host %s, got %s", c.host, d.Host())
			}
			if d.APIURL() != c.api {
				t.Errorf("Expected api url %s, got %s", c.api, d.APIURL())
			}
		})
	}
}

// fakeBackend serves a single object with gs and s3 access methods
func fakeBackend(t *testing.T, handler func(w http.ResponseWriter, r *http.Request) bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler != nil && handler(w, r) {
			return
		}

		switch r.URL.EscapedPath() {
		case "/ga4gh/drs/v1/objects/obj1":
			_ = json.NewEncoder(w).Encode(metadata.Object{
				ID:        "obj1",
				SelfURI:   "drs://" + r.Host + "/obj1",
				Size:      42,
				Checksums: []metadata.Checksum{{Checksum: "abc", Type: "md5"}},
				AccessMethods: []metadata.AccessMethod{
					{Type: "gs", AccessID: "gs"},
					{Type: "s3", AccessID: "s3"},
				},
			})
		case "/ga4gh/drs/v1/objects/obj1/access/gs", "/ga4gh/drs/v1/objects/obj1/access/s3":
			parts := strings.Split(r.URL.Path, "/")
			_ = json.NewEncoder(w).Encode(metadata.AccessURL{URL: parts[len(parts)-1] + "://bucket/obj1"})
		case "/ga4gh/drs/v1/objects/inline":
			_ = json.NewEncoder(w).Encode(metadata.Object{
				ID: "inline",
				AccessMethods: []metadata.AccessMethod{
					{Type: "https", AccessURL: &metadata.AccessURL{URL: "https://example.org/inline"}},
				},
			})
		case "/ga4gh/drs/v1/objects/noaccess":
			_ = json.NewEncoder(w).Encode(metadata.Object{ID: "noaccess"})
		case "/ga4gh/drs/v1/objects/naive":
			fmt.Fprint(w, `{"id": "naive", "size": 1, "created_time": "2020-03-24T18:41:59.489226", "checksums": []}`)
		case "/ga4gh/drs/v1/objects/undated":
			fmt.Fprint(w, `{"id": "undated", "size": 1, "created_time": "", "updated_time": "", "checksums": []}`)
		case "/ga4gh/drs/v1/objects/garbage":
			fmt.Fprint(w, "<html>oops</html>")
		case "/ga4gh/drs/v1/objects/invalid":
			fmt.Fprint(w, `{"name": "no id"}`)
		case "/ga4gh/drs/v1/objects/bad":
			w.WriteHeader(http.StatusBadRequest)
		case "/ga4gh/drs/v1/objects/secret":
			w.WriteHeader(http.StatusUnauthorized)
		case "/ga4gh/drs/v1/objects/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "/ga4gh/drs/v1/objects/proxied":
			w.WriteHeader(http.StatusBadGateway)
		case "/ga4gh/drs/v1/objects/teapot":
			w.WriteHeader(http.StatusTeapot)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestGetObject(t *testing.T) {
	srv := fakeBackend(t, nil)
	defer srv.Close()

	d, err := rest.NewDriver(rest.Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("Error setting up driver: %+v", err)
	}

	cases := []struct {
		id       string
		expected drs.Kind
	}{
		{"obj1", drs.OK},
		{"naive", drs.OK},
		{"undated", drs.OK},
		{"missing", drs.NotFound},
		{"bad", drs.BadRequest},
		{"secret", drs.Unauthorized},
		{"broken", drs.ServerError},
		{"proxied", drs.ProxyError},
		{"teapot", drs.Status},
		{"garbage", drs.MalformedResponse},
		{"invalid", drs.MalformedResponse},
	}

	for _, c := range cases {
		c := c
		t.Run(c.id, func(t *testing.T) {
			obj, err := d.GetObject(context.Background(), c.id)
			if kind := drs.KindOf(err); kind != c.expected {
				t.Fatalf("Expected %s, got %s (%v)", c.expected, kind, err)
			}
			if err == nil && obj.ID != c.id {
				t.Errorf("Expected object %s, got %s", c.id, obj.ID)
			}
		})
	}
}

func TestZonelessTimestamp(t *testing.T) {
	srv := fakeBackend(t, nil)
	defer srv.Close()

	d, _ := rest.NewDriver(rest.Config{URL: srv.URL})

	obj, err := d.GetObject(context.Background(), "naive")
	if err != nil {
		t.Fatalf("Error getting object: %+v", err)
	}

	expected := time.Date(2020, 3, 24, 18, 41, 59, 489226000, time.UTC)
	if !obj.CreatedTime.Equal(expected) {
		t.Errorf("Expected created time %s, got %s", expected, obj.CreatedTime)
	}
}

func TestGetAccessURL(t *testing.T) {
	srv := fakeBackend(t, nil)
	defer srv.Close()

	cases := []struct {
		name       string
		accessType string
		id         string
		accessID   string
		expected   string
		kind       drs.Kind
	}{
		{"explicit", "", "obj1", "s3", "s3://bucket/obj1", drs.OK},
		{"firstMethod", "", "obj1", "", "gs://bucket/obj1", drs.OK},
		{"preferredType", "s3", "obj1", "", "s3://bucket/obj1", drs.OK},
		{"preferredMissing", "azure", "obj1", "", "gs://bucket/obj1", drs.OK},
		{"inline", "", "inline", "", "https://example.org/inline", drs.OK},
		{"noMethods", "", "noaccess", "", "", drs.NotFound},
		{"unknownAccess", "", "obj1", "ftp", "", drs.NotFound},
		{"objectError", "", "secret", "", "", drs.Unauthorized},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			d, err := rest.NewDriver(rest.Config{URL: srv.URL, AccessType: c.accessType})
			if err != nil {
				t.Fatalf("Error setting up driver: %+v", err)
			}

			u, err := d.GetAccessURL(context.Background(), c.id, c.accessID)
			if kind := drs.KindOf(err); kind != c.kind {
				t.Fatalf("Expected %s, got %s (%v)", c.kind, kind, err)
			}
			if err == nil && u.URL != c.expected {
				t.Errorf("Expected url %s, got %s", c.expected, u.URL)
			}
		})
	}
}

func TestObjectPath(t *testing.T) {
	var seen string
	srv := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) bool {
		seen = r.URL.EscapedPath()
		http.NotFound(w, r)
		return true
	})
	defer srv.Close()

	cases := []struct {
		name     string
		gen      urlpath.Generator
		expected string
	}{
		{"escape", nil, "/ga4gh/drs/v1/objects/dg.4503%2Fabc"},
		{"passthrough", urlpath.Passthrough, "/ga4gh/drs/v1/objects/dg.4503/abc"},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			d, _ := rest.NewDriver(rest.Config{URL: srv.URL, ObjectPath: c.gen})
			_, _ = d.GetObject(context.Background(), "dg.4503/abc")
			if seen != c.expected {
				t.Errorf("Expected path %s, got %s", c.expected, seen)
			}
		})
	}
}

func TestBrokenObjectPath(t *testing.T) {
	var hits int32
	srv := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) bool {
		atomic.AddInt32(&hits, 1)
		return false
	})
	defer srv.Close()

	d, _ := rest.NewDriver(rest.Config{URL: srv.URL, ObjectPath: urlpath.Passthrough})

	if _, err := d.GetObject(context.Background(), "bad%zz"); drs.KindOf(err) != drs.BadRequest {
		t.Errorf("Expected a bad request error, got %v", err)
	}
	if _, err := d.GetAccessURL(context.Background(), "bad%zz", "s3"); drs.KindOf(err) != drs.BadRequest {
		t.Errorf("Expected a bad request error, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("Expected no requests to be sent, got %d", n)
	}
}

func TestCanceled(t *testing.T) {
	srv := fakeBackend(t, nil)
	defer srv.Close()

	d, _ := rest.NewDriver(rest.Config{URL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.GetObject(ctx, "obj1"); drs.KindOf(err) != drs.Canceled {
		t.Errorf("Expected a canceled error, got %v", err)
	}
}

func TestAuthorizers(t *testing.T) {
	var exchanges int32
	srv := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) bool {
		switch r.URL.Path {
		case "/user/credentials/cdis/access_token":
			var req map[string]string
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["api_key"] != "my-key" {
				w.WriteHeader(http.StatusUnauthorized)
				return true
			}
			n := atomic.AddInt32(&exchanges, 1)
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": fmt.Sprintf("token%d", n)})
			return true
		case "/irods/auth":
			if u, p, ok := r.BasicAuth(); !ok || u != "rods" || p != "pw" {
				w.WriteHeader(http.StatusUnauthorized)
				return true
			}
			fmt.Fprint(w, "token2\n")
			return true
		}

		// The first token handed out is deliberately stale
		switch r.Header.Get("Authorization") {
		case "Bearer token2", "Bearer static":
			return false
		}
		if r.Header.Get("X-SBG-Auth-Token") == "sbg" {
			return false
		}
		w.WriteHeader(http.StatusUnauthorized)
		return true
	})
	defer srv.Close()

	cases := []struct {
		name     string
		auth     rest.Authorizer
		expected drs.Kind
	}{
		{"anonymous", rest.Anonymous, drs.Unauthorized},
		{"bearer", rest.Bearer("static"), drs.OK},
		{"sevenBridges", rest.SevenBridges("sbg"), drs.OK},
		{"gen3Refresh", rest.Gen3(srv.URL, "my-key", nil), drs.OK},
		{"gen3BadKey", rest.Gen3(srv.URL, "wrong", nil), drs.Unauthorized},
		{"basic", rest.Basic(srv.URL+"/irods/auth", "rods", "pw", nil), drs.OK},
		{"basicBadPassword", rest.Basic(srv.URL+"/irods/auth", "rods", "nope", nil), drs.Unauthorized},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			d, _ := rest.NewDriver(rest.Config{URL: srv.URL, Auth: c.auth})
			_, err := d.GetObject(context.Background(), "obj1")
			if kind := drs.KindOf(err); kind != c.expected {
				t.Errorf("Expected %s, got %s (%v)", c.expected, kind, err)
			}
		})
	}
}
