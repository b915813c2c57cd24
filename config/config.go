// Package config loads the backend set and runtime settings of a meta-resolver.
//
// Configuration comes from a single YAML file, named by the --config flag or the
// DRS_CONFIG environment variable.  Without a file, Default applies: the registry
// is not consulted, and the well known backends are registered statically with
// credentials looked up in ~/.keys.
//
// A backend listed in the file is registered statically when it names at least
// one prefix.  Every backend also contributes discovery rules, so that a service
// advertised by a federation registry under one of its prefixes or match_urls is
// served with the backend's authorization and preferred access type.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/birkland/drs"
	"github.com/birkland/drs/dispatch"
	"github.com/birkland/drs/registry"
	"github.com/birkland/drs/resolv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path
const EnvVar = "DRS_CONFIG"

// Object path styles.  Escape (the default) percent-encodes any solidus in an object
// id; Passthrough sends it verbatim.
const (
	PathEscape      = "escape"
	PathPassthrough = "passthrough"
)

// Auth kinds
const (
	AuthNone         = "none"
	AuthBearer       = "bearer"
	AuthGen3         = "gen3"
	AuthSevenBridges = "sevenbridges"
	AuthBasic        = "basic"
)

// Config is the complete meta-resolver configuration
type Config struct {
	Registry   RegistryConfig `yaml:"registry"`
	Dispatch   DispatchConfig `yaml:"dispatch"`
	LazyScheme string         `yaml:"lazy_scheme"`
	KeysDir    string         `yaml:"keys_dir"`
	Backends   []Backend      `yaml:"backends"`
}

// RegistryConfig configures discovery through a federation registry
type RegistryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	URL         string        `yaml:"url"`
	ServiceType string        `yaml:"service_type"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DispatchConfig bounds backend calls
type DispatchConfig struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
}

// Backend describes a single DRS service
type Backend struct {
	Name       string     `yaml:"name"`
	URL        string     `yaml:"url"`
	Prefixes   []string   `yaml:"prefixes"`
	MatchURLs  []string   `yaml:"match_urls"`
	AccessType string     `yaml:"access_type"`
	ObjectPath string     `yaml:"object_path"`
	Auth       AuthConfig `yaml:"auth"`
}

// AuthConfig selects how requests to a backend are authorized.  Credentials names
// a file, either absolute or relative to the keys directory.
type AuthConfig struct {
	Kind        string `yaml:"kind"`
	Credentials string `yaml:"credentials"`
	AuthURL     string `yaml:"auth_url"`
	User        string `yaml:"user"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Registry: RegistryConfig{
			URL:         registry.DefaultURL,
			ServiceType: registry.DRSType,
			Timeout:     30 * time.Second,
		},
		Dispatch: DispatchConfig{
			Workers: dispatch.DefaultWorkers,
			Timeout: dispatch.DefaultTimeout,
		},
		LazyScheme: resolv.DefaultScheme,
		KeysDir:    "~/.keys",
		Backends:   DefaultBackends(),
	}
}

// DefaultBackends is the well known set of DRS services, with their compact prefix
// aliases
func DefaultBackends() []Backend {
	return []Backend{
		{
			Name:       "crdc",
			URL:        "https://nci-crdc.datacommons.io",
			Prefixes:   []string{"crdc", "dg.4DFC"},
			AccessType: "s3",
			Auth:       AuthConfig{Kind: AuthGen3, Credentials: "crdc_credentials.json"},
		},
		{
			Name:       "bdc",
			URL:        "https://gen3.biodatacatalyst.nhlbi.nih.gov",
			Prefixes:   []string{"bdc", "dg.4503"},
			AccessType: "gs",
			Auth:       AuthConfig{Kind: AuthGen3, Credentials: "bdc_credentials.json"},
		},
		{
			Name:       "anvil",
			URL:        "https://gen3.theanvil.io",
			Prefixes:   []string{"anv", "dg.ANV0"},
			AccessType: "gs",
			Auth:       AuthConfig{Kind: AuthGen3, Credentials: "anvil_credentials.json"},
		},
		{
			Name:       "sbcgc",
			URL:        "https://cgc-ga4gh-api.sbgenomics.com",
			Prefixes:   []string{"sbcgc"},
			AccessType: "s3",
			Auth:       AuthConfig{Kind: AuthSevenBridges, Credentials: "sbcgc_key.json"},
		},
		{
			Name:       "sbcav",
			URL:        "https://cavatica-ga4gh-api.sbgenomics.com",
			Prefixes:   []string{"sbcav"},
			AccessType: "gs",
			Auth:       AuthConfig{Kind: AuthSevenBridges, Credentials: "sbcav_key.json"},
		},
		{
			Name:       "sbbdc",
			URL:        "https://ga4gh-api.sb.biodatacatalyst.nhlbi.nih.gov",
			Prefixes:   []string{"sbbdc"},
			AccessType: "s3",
			Auth:       AuthConfig{Kind: AuthSevenBridges, Credentials: "sbbdc_key.json"},
		},
		{
			Name:     "sradrs",
			URL:      "https://locate.be-md.ncbi.nlm.nih.gov",
			Prefixes: []string{"sradrs"},
			Auth:     AuthConfig{Kind: AuthBearer, Credentials: "dbgap_task-specific-token"},
		},
		{
			Name:       "kidsfirst",
			URL:        "https://data.kidsfirstdrc.org",
			MatchURLs:  []string{"https://data.kidsfirstdrc.org"},
			AccessType: "s3",
			Auth:       AuthConfig{Kind: AuthGen3, Credentials: "kf_credentials.json"},
		},
	}
}

// Load reads the config file at path over the defaults.  A file that lists backends
// replaces the default backend set entirely.  An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return nil, drs.Wrap(errors.Wrapf(err, "could not read config file %s", path), drs.Configuration, "")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, drs.Wrap(errors.Wrapf(err, "could not parse config file %s", path), drs.Configuration, "")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", path)
	}
	return cfg, nil
}

// Validate checks the configuration for mistakes that would make the backend set
// ambiguous or unusable
func (c *Config) Validate() error {
	switch c.LazyScheme {
	case "http", "https":
	default:
		return drs.Errorf(drs.Configuration, "", "lazy_scheme must be http or https, got %q", c.LazyScheme)
	}

	if c.Dispatch.Workers < 0 {
		return drs.Errorf(drs.Configuration, "", "dispatch.workers must not be negative")
	}
	if c.Dispatch.Timeout < 0 || c.Registry.Timeout < 0 {
		return drs.Errorf(drs.Configuration, "", "timeouts must not be negative")
	}
	if c.Registry.Enabled && c.Registry.URL == "" {
		return drs.Errorf(drs.Configuration, "", "registry is enabled, but has no url")
	}

	names := make(map[string]bool)
	prefixes := make(map[string]string)
	for i, b := range c.Backends {
		if b.Name == "" {
			return drs.Errorf(drs.Configuration, "", "backend %d has no name", i)
		}
		if names[b.Name] {
			return drs.Errorf(drs.Configuration, b.Name, "duplicate backend name")
		}
		names[b.Name] = true

		if b.URL == "" {
			return drs.Errorf(drs.Configuration, b.Name, "backend has no url")
		}

		for _, p := range b.Prefixes {
			if p == "" || strings.ContainsAny(p, ":/") {
				return drs.Errorf(drs.Configuration, b.Name, "bad prefix %q", p)
			}
			if other, ok := prefixes[p]; ok {
				return drs.Errorf(drs.Configuration, b.Name, "prefix %s already used by %s", p, other)
			}
			prefixes[p] = b.Name
		}

		switch b.ObjectPath {
		case "", PathEscape, PathPassthrough:
		default:
			return drs.Errorf(drs.Configuration, b.Name, "unknown object_path %q", b.ObjectPath)
		}

		switch b.Auth.Kind {
		case "", AuthNone, AuthBearer, AuthGen3, AuthSevenBridges:
		case AuthBasic:
			if b.Auth.AuthURL == "" {
				return drs.Errorf(drs.Configuration, b.Name, "basic auth needs an auth_url")
			}
		default:
			return drs.Errorf(drs.Configuration, b.Name, "unknown auth kind %q", b.Auth.Kind)
		}
	}

	return nil
}

// Prefixes lists every configured prefix, in configuration order
func (c *Config) Prefixes() []string {
	var prefixes []string
	for _, b := range c.Backends {
		prefixes = append(prefixes, b.Prefixes...)
	}
	return prefixes
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
