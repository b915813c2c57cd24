package ident_test

import (
	"testing"

	"github.com/birkland/drs/internal/ident"
	"github.com/go-test/deep"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw      string
		expected string
	}{
		{"drs://gen3.theanvil.io/737247da", "gen3.theanvil.io/737247da"},
		{"bdc:66eeec21", "bdc:66eeec21"},
		{"drs://drs://x/y", "drs://x/y"},
		{"DRS://host/id", "DRS://host/id"},
		{"https://host/id", "https://host/id"},
		{"", ""},
	}

	for _, c := range cases {
		c := c
		t.Run(c.raw, func(t *testing.T) {
			if got := ident.Normalize(c.raw); got != c.expected {
				t.Errorf("Expected %s, got %s", c.expected, got)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		name     string
		split    func(string) (string, string, bool)
		id       string
		expected []interface{}
	}{
		{"compact", ident.SplitCompact, "bdc:66eeec21", []interface{}{"bdc", "66eeec21", true}},
		{"compactColons", ident.SplitCompact, "sradrs:a:b:c", []interface{}{"sradrs", "a:b:c", true}},
		{"compactNone", ident.SplitCompact, "host/id", []interface{}{"", "", false}},
		{"host", ident.SplitHost, "gen3.theanvil.io/737247da", []interface{}{"gen3.theanvil.io", "737247da", true}},
		{"hostPort", ident.SplitHost, "localhost:8080/a/b", []interface{}{"localhost:8080", "a/b", true}},
		{"hostNone", ident.SplitHost, "bdc:66eeec21", []interface{}{"", "", false}},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			a, b, ok := c.split(c.id)
			if diffs := deep.Equal(c.expected, []interface{}{a, b, ok}); len(diffs) != 0 {
				t.Errorf("Unexpected split of %s: %s", c.id, diffs)
			}
		})
	}
}

func TestHostOf(t *testing.T) {
	cases := []struct {
		url       string
		expected  string
		expectErr bool
	}{
		{"https://data.kidsfirstdrc.org", "data.kidsfirstdrc.org", false},
		{"https://locate.be-md.ncbi.nlm.nih.gov/ga4gh/drs/v1", "locate.be-md.ncbi.nlm.nih.gov", false},
		{"http://localhost:5000/", "localhost:5000", false},
		{"no-scheme", "", true},
		{"http://%zz", "", true},
	}

	for _, c := range cases {
		c := c
		t.Run(c.url, func(t *testing.T) {
			host, err := ident.HostOf(c.url)
			if (err != nil) != c.expectErr {
				t.Fatalf("expected error: %t, got error: %v", c.expectErr, err)
			}
			if host != c.expected {
				t.Errorf("Expected %s, got %s", c.expected, host)
			}
		})
	}
}
