package urlpath_test

import (
	"fmt"
	"testing"

	"github.com/birkland/drs/urlpath"
)

func TestGeneratorFunc(t *testing.T) {
	testID := "test ID"
	var gen urlpath.Generator = urlpath.GeneratorFunc(func(id string) string {
		return id
	})

	translated := gen.Generate(testID)

	if translated != testID {
		t.Fatalf("Expected %s, got %s", testID, translated)
	}
}

func TestBuiltins(t *testing.T) {
	cases := []struct {
		name     string
		gen      urlpath.Generator
		id       string
		expected string
	}{
		{"escapeSlash", urlpath.Escape, "dg.4503/abc", "dg.4503%2Fabc"},
		{"escapeSpace", urlpath.Escape, "a b", "a%20b"},
		{"escapeColon", urlpath.Escape, "a:b", "a:b"},
		{"passthrough", urlpath.Passthrough, "/dg.4503/abc", "dg.4503/abc"},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			if got := c.gen.Generate(c.id); got != c.expected {
				t.Errorf("Expected %s, got %s", c.expected, got)
			}
		})
	}
}

// Escapes identifiers for use as a path segment
func ExampleGeneratorFunc() {
	var pathgen urlpath.Generator = urlpath.Escape
	fmt.Println(pathgen.Generate("dg.4DFC/0e3c5237"))
	// Output: dg.4DFC%2F0e3c5237
}
