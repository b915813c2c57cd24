package diag_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/birkland/drs"
	"github.com/birkland/drs/diag"
	"github.com/birkland/drs/dispatch"
	"github.com/birkland/drs/drivers/rest"
	"github.com/birkland/drs/metadata"
	"github.com/birkland/drs/resolv"
	"github.com/go-test/deep"
)

type getter map[string]dispatch.ObjectResult

func (g getter) GetObjects(ctx context.Context, ids []string) ([]dispatch.ObjectResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := make([]dispatch.ObjectResult, len(ids))
	for i, id := range ids {
		results[i] = g[id]
		results[i].ID = id
	}
	return results, nil
}

var canned = getter{
	"a:1":       {Object: &metadata.Object{ID: "1"}},
	"b:1":       {Err: drs.StatusError(http.StatusNotFound, "1", "")},
	"c:1":       {Err: drs.StatusError(http.StatusInternalServerError, "1", "")},
	"d:1":       {Err: drs.StatusError(http.StatusTeapot, "1", "")},
	"e:1":       {Err: drs.Errorf(drs.Unresolved, "e:1", "no such prefix")},
	"f:1":       {Err: drs.StatusError(http.StatusUnauthorized, "1", "")},
	"f:2":       {Object: &metadata.Object{ID: "2"}},
	"drs://h/1": {Object: &metadata.Object{ID: "1"}},
	"h/2":       {Err: drs.StatusError(http.StatusBadGateway, "2", "")},
	"k:8080/3":  {Err: errors.New("connection refused")},
}

func TestCheckCompact(t *testing.T) {
	report, err := diag.CheckCompact(context.Background(), canned,
		[]string{"a:1", "b:1", "c:1", "d:1", "e:1", "f:1", "f:2"},
		[]string{"a", "b", "c", "d", "e", "f", "g"})
	if err != nil {
		t.Fatalf("check failed: %+v", err)
	}

	if report.RunID == "" {
		t.Errorf("no run id")
	}

	expected := map[string]string{
		"a": "Success",
		"b": "id not found:b:1",
		"c": "server error - may be unauthorized",
		"d": "Failed: response was 418",
		"e": "prefix unrecognized",
		"f": "Success",
		"g": "",
	}
	if diffs := deep.Equal(report.Summary(), expected); len(diffs) > 0 {
		t.Errorf("wrong summary %s", strings.Join(diffs, "\n"))
	}

	if report.Failed() != 5 {
		t.Errorf("expected 5 failures, got %d", report.Failed())
	}
}

func TestOrderKeys(t *testing.T) {
	cases := []struct {
		name      string
		preferred []string
		known     []string
		expected  []string
	}{
		{"preferredFirst", []string{"crdc", "dg.4DFC", "bdc"}, []string{"bdc", "crdc", "dg.4DFC", "kf"}, []string{"crdc", "dg.4DFC", "bdc", "kf"}},
		{"noPreferred", nil, []string{"a", "b"}, []string{"a", "b"}},
		{"duplicates", []string{"a", "a"}, []string{"b", "a"}, []string{"a", "b"}},
		{"empty", nil, nil, []string{}},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			if diffs := deep.Equal(diag.OrderKeys(c.preferred, c.known), c.expected); len(diffs) > 0 {
				t.Errorf("wrong order %s", strings.Join(diffs, "\n"))
			}
		})
	}
}

func TestCheckHosts(t *testing.T) {
	report, err := diag.CheckHosts(context.Background(), canned, []string{"drs://h/1", "h/2", "k:8080/3"})
	if err != nil {
		t.Fatalf("check failed: %+v", err)
	}

	if diffs := deep.Equal(report.Keys, []string{"h", "k:8080"}); len(diffs) > 0 {
		t.Errorf("wrong keys %s", strings.Join(diffs, "\n"))
	}

	expected := map[string]string{
		"h":      "proxy error 502",
		"k:8080": "Failed",
	}
	if diffs := deep.Equal(report.Summary(), expected); len(diffs) > 0 {
		t.Errorf("wrong summary %s", strings.Join(diffs, "\n"))
	}
}

func TestCheckAborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := diag.CheckCompact(ctx, canned, []string{"a:1"}, []string{"a"})
	if err == nil {
		t.Fatalf("expected an error from a canceled check")
	}
}

func TestPrint(t *testing.T) {
	report, err := diag.CheckCompact(context.Background(), canned, []string{"a:1", "b:1"}, []string{"a", "b", "z"})
	if err != nil {
		t.Fatalf("check failed: %+v", err)
	}

	var out bytes.Buffer
	if err := report.Print(&out, false); err != nil {
		t.Fatalf("print failed: %+v", err)
	}

	text := out.String()
	for _, line := range []string{
		"sending: a:1",
		"sending: b:1",
		"----Test results ---",
		"a Tested: Success",
		"b Tested: id not found:b:1",
		"z untested",
		"2 sent, 1 failed",
	} {
		if !strings.Contains(text, line) {
			t.Errorf("output does not contain %q:\n%s", line, text)
		}
	}

	if strings.Contains(text, `"id": "1"`) {
		t.Errorf("objects should only be printed when verbose")
	}

	out.Reset()
	_ = report.Print(&out, true)
	if !strings.Contains(out.String(), `"id": "1"`) {
		t.Errorf("verbose output should contain the object:\n%s", out.String())
	}
}

func TestWriteFile(t *testing.T) {
	report, err := diag.CheckCompact(context.Background(), canned, []string{"a:1", "b:1"}, []string{"a", "b"})
	if err != nil {
		t.Fatalf("check failed: %+v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	if err := report.WriteFile(path); err != nil {
		t.Fatalf("write failed: %+v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("report not written: %+v", err)
	}
	defer file.Close()

	var read diag.Report
	if err := json.NewDecoder(file).Decode(&read); err != nil {
		t.Fatalf("report is not json: %+v", err)
	}

	if read.RunID != report.RunID || len(read.Results) != 2 || read.Results[1].Class != "id not found:b:1" {
		t.Errorf("report did not round trip: %+v", read)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestWriteFileFailedRename(t *testing.T) {
	report, err := diag.CheckCompact(context.Background(), canned, []string{"a:1"}, []string{"a"})
	if err != nil {
		t.Fatalf("check failed: %+v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	// A non-empty directory in the way makes the final rename fail
	if err := os.MkdirAll(filepath.Join(path, "occupied"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := report.WriteFile(path); err == nil {
		t.Fatalf("expected writing over a directory to fail")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "report.json" {
		t.Errorf("temporary files left behind: %v", entries)
	}

	if err := os.RemoveAll(path); err != nil {
		t.Fatal(err)
	}
	if err := report.WriteFile(path); err != nil {
		t.Errorf("writing again after a failure should succeed: %+v", err)
	}
}

// Runs a check through the real resolver, dispatcher, and REST driver
func TestCheckLiveBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ga4gh/drs/v1/objects/obj" {
			_ = json.NewEncoder(w).Encode(metadata.Object{ID: "obj"})
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	driver, err := rest.NewDriver(rest.Config{Name: "test", URL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("could not create driver: %+v", err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver, err := resolv.New([]drs.Descriptor{{Name: "test", Prefixes: []string{"t", "dg.T"}, Client: driver}},
		resolv.WithLogger(quiet))
	if err != nil {
		t.Fatalf("could not create resolver: %+v", err)
	}

	report, err := diag.CheckCompact(context.Background(), dispatch.New(resolver, dispatch.WithLogger(quiet)),
		[]string{"t:obj", "drs://dg.T:missing", "nope:obj"}, resolver.Prefixes())
	if err != nil {
		t.Fatalf("check failed: %+v", err)
	}

	expected := map[string]string{
		"t":    "Success",
		"dg.T": "id not found:drs://dg.T:missing",
	}
	if diffs := deep.Equal(report.Summary(), expected); len(diffs) > 0 {
		t.Errorf("wrong summary %s", strings.Join(diffs, "\n"))
	}

	if report.Results[2].Kind != drs.Unresolved {
		t.Errorf("expected unresolved, got %s", report.Results[2].Kind)
	}
}
