// Package diag runs self tests of a meta-resolver against live backends.
//
// A check sends a list of known identifiers through a dispatcher and classifies
// each outcome.  Results are grouped by the key the identifier was routed on: its
// compact prefix for CheckCompact, its host for CheckHosts.  When several
// identifiers share a key, the last one sent determines the key's classification.
package diag

import (
	"context"
	"fmt"
	"time"

	"github.com/birkland/drs"
	"github.com/birkland/drs/dispatch"
	"github.com/birkland/drs/internal/ident"
	"github.com/birkland/drs/metadata"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultCompactIDs are compact identifiers of known objects at the default backends
var DefaultCompactIDs = []string{
	"bdc:66eeec21-aad0-4a77-8de5-621f05e2d301",
	"dg.4503:66eeec21-aad0-4a77-8de5-621f05e2d301",
	"crdc:0e3c5237-6933-4d30-83f8-6ab721096bc7",
	"dg.4DFC:0e3c5237-6933-4d30-83f8-6ab721096bc7",
	"sbcgc:5baa8913e4b0db63859e515e",
	"sbcav:5772b6ed507c1752674486fc",
	"anv:895c5a81-b985-4559-bc8e-cecece550756",
	"dg.ANV0:895c5a81-b985-4559-bc8e-cecece550756",
	"sradrs:72ff6ff882ec447f12df018e6183de59",
}

// DefaultHostURIs are host based identifiers of known objects at the default backends
var DefaultHostURIs = []string{
	"drs://gen3.theanvil.io/737247da-f5da-49a7-86ec-737978eb8293",
	"drs://gen3.biodatacatalyst.nhlbi.nih.gov/65f34e96-230a-4e20-b15d-8510d688cbf0",
	"drs://nci-crdc.datacommons.io/ff59c94b-8124-48a8-8b78-72e71f5d71f0",
}

// Getter fetches objects in bulk.  *dispatch.Dispatcher is a Getter.
type Getter interface {
	GetObjects(ctx context.Context, ids []string) ([]dispatch.ObjectResult, error)
}

// Result is the outcome of sending a single identifier
type Result struct {
	ID     string           `json:"id"`
	Key    string           `json:"key"`
	Kind   drs.Kind         `json:"-"`
	Class  string           `json:"class"`
	Status int              `json:"status,omitempty"`
	Error  string           `json:"error,omitempty"`
	Object *metadata.Object `json:"object,omitempty"`
}

// Report collects the results of a single check run
type Report struct {
	RunID    string    `json:"run_id"`
	Check    string    `json:"check"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Keys     []string  `json:"keys"`
	Results  []Result  `json:"results"`
}

// CheckCompact sends compact identifiers, and reports on each of the given prefixes.
// Prefixes no identifier was sent to are reported as untested.
func CheckCompact(ctx context.Context, g Getter, ids, prefixes []string) (*Report, error) {
	return check(ctx, "compact", g, ids, prefixes, compactKey)
}

// CheckHosts sends host based identifiers, and reports on each host they name
func CheckHosts(ctx context.Context, g Getter, uris []string) (*Report, error) {
	var hosts []string
	seen := make(map[string]bool)
	for _, uri := range uris {
		if h := hostKey(uri); !seen[h] {
			seen[h] = true
			hosts = append(hosts, h)
		}
	}

	return check(ctx, "host", g, uris, hosts, hostKey)
}

// OrderKeys lists the keys to report on: the preferred ones first, in the order
// given, followed by any other known keys.  Duplicates are dropped.
func OrderKeys(preferred, known []string) []string {
	seen := make(map[string]bool, len(preferred)+len(known))
	keys := make([]string, 0, len(preferred)+len(known))
	for _, group := range [][]string{preferred, known} {
		for _, k := range group {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func check(ctx context.Context, name string, g Getter, ids, keys []string, keyOf func(string) string) (*Report, error) {
	report := &Report{
		RunID:   uuid.New().String(),
		Check:   name,
		Started: time.Now(),
		Keys:    keys,
	}

	results, err := g.GetObjects(ctx, ids)
	report.Finished = time.Now()
	if err != nil {
		return nil, errors.Wrapf(err, "%s check %s aborted", name, report.RunID)
	}

	for _, r := range results {
		report.Results = append(report.Results, classify(r, keyOf(r.ID)))
	}

	return report, nil
}

func classify(r dispatch.ObjectResult, key string) Result {
	kind := drs.KindOf(r.Err)
	result := Result{
		ID:     r.ID,
		Key:    key,
		Kind:   kind,
		Class:  kind.Describe(),
		Status: drs.StatusOf(r.Err),
		Object: r.Object,
	}

	switch kind {
	case drs.NotFound:
		result.Class = fmt.Sprintf("%s:%s", result.Class, r.ID)
	case drs.Status:
		result.Class = fmt.Sprintf("Failed: response was %d", result.Status)
	}

	if r.Err != nil {
		result.Error = r.Err.Error()
	}
	return result
}

// Summary gives the classification of every reported key, in order.  Untested keys
// map to the empty string.
func (r *Report) Summary() map[string]string {
	summary := make(map[string]string, len(r.Keys))
	for _, k := range r.Keys {
		summary[k] = ""
	}
	for _, res := range r.Results {
		if _, ok := summary[res.Key]; ok {
			summary[res.Key] = res.Class
		}
	}
	return summary
}

// Failed counts results that were not a success
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Kind != drs.OK {
			n++
		}
	}
	return n
}

func compactKey(id string) string {
	prefix, _, ok := ident.SplitCompact(ident.Normalize(id))
	if !ok {
		return ident.Normalize(id)
	}
	return prefix
}

func hostKey(id string) string {
	host, _, ok := ident.SplitHost(ident.Normalize(id))
	if !ok {
		return ident.Normalize(id)
	}
	return host
}
