package resolv

import (
	"strings"

	"github.com/birkland/drs"
	"github.com/birkland/drs/drivers/rest"
	"github.com/birkland/drs/registry"
)

// Constructor builds a client for a registered service
type Constructor func(svc registry.Service) (drs.Client, error)

// Rule routes a discovered service to a specialized constructor, either by its compact
// prefix or by its URL.  A rule with both set matches on either.
type Rule struct {
	Prefix string
	URL    string
	Build  Constructor
}

// Factory builds clients for discovered services.  Services matching no rule get a
// generic client built purely from the advertised URL.
type Factory struct {
	rules    []Rule
	fallback Constructor
}

// NewFactory creates a factory with the given rules.  A nil fallback means Generic.
func NewFactory(fallback Constructor, rules ...Rule) *Factory {
	if fallback == nil {
		fallback = Generic
	}
	return &Factory{
		rules:    rules,
		fallback: fallback,
	}
}

// Add appends a rule.  Earlier rules win.
func (f *Factory) Add(rule Rule) {
	f.rules = append(f.rules, rule)
}

// Build a client for a service.  Prefix rules are consulted before URL rules.
func (f *Factory) Build(svc registry.Service) (drs.Client, error) {
	if svc.CuriePrefix != "" {
		for _, r := range f.rules {
			if r.Prefix == svc.CuriePrefix {
				return r.Build(svc)
			}
		}
	}

	for _, r := range f.rules {
		if r.URL != "" && sameURL(r.URL, svc.URL) {
			return r.Build(svc)
		}
	}

	return f.fallback(svc)
}

// Generic builds an anonymous REST client for a service
func Generic(svc registry.Service) (drs.Client, error) {
	return rest.NewDriver(rest.Config{
		Name: svc.Name,
		URL:  svc.URL,
	})
}

func sameURL(a, b string) bool {
	return strings.EqualFold(strings.TrimRight(a, "/"), strings.TrimRight(b, "/"))
}
