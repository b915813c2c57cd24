package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/birkland/drs"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
)

// Keys maps credential file names, relative to the keys directory and slash
// separated, to their paths on disk
type Keys map[string]string

// Credentials holds whatever secrets a credential file provides.  Gen3 key files
// carry api_key and key_id; Seven Bridges key files carry a token.
type Credentials struct {
	APIKey   string `json:"api_key"`
	KeyID    string `json:"key_id"`
	Token    string `json:"token"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// ScanKeys lists the regular files underneath a keys directory.  A missing
// directory has no keys.  Hidden files and directories are skipped, as are entries
// that cannot be read.
func ScanKeys(dir string) (Keys, error) {
	keys := make(Keys)
	if dir == "" {
		return keys, nil
	}

	dir = expandHome(dir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return keys, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "could not stat keys dir %s", dir)
	}

	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(ospath string, de *godirwalk.Dirent) error {
			if ospath == dir {
				return nil
			}
			if strings.HasPrefix(de.Name(), ".") {
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}
			if !de.IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(dir, ospath)
			if err != nil {
				return errors.Wrapf(err, "could not relativize %s", ospath)
			}
			keys[filepath.ToSlash(rel)] = ospath
			return nil
		},
		ErrorCallback: func(ospath string, err error) godirwalk.ErrorAction {
			if os.IsPermission(errors.Cause(err)) {
				return godirwalk.SkipNode
			}
			return godirwalk.Halt
		},
		Unsorted: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error scanning keys dir %s", dir)
	}

	return keys, nil
}

// Find locates a credential file by name.  Absolute names are used as-is.
func (k Keys) Find(name string) (string, bool) {
	if name == "" {
		return "", false
	}

	name = expandHome(name)
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", false
		}
		return name, true
	}

	path, ok := k[filepath.ToSlash(name)]
	return path, ok
}

// ReadCredentials reads a credential file.  JSON files may contain comments and
// trailing commas.  A file that is not a JSON object is taken to be a bare token.
func ReadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, drs.Wrap(errors.Wrapf(err, "could not read credentials %s", path), drs.Configuration, "")
	}

	return ParseCredentials(data)
}

// ParseCredentials parses the content of a credential file
func ParseCredentials(data []byte) (*Credentials, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, drs.Errorf(drs.Configuration, "", "empty credentials")
	}

	if trimmed[0] != '{' {
		return &Credentials{Token: string(trimmed)}, nil
	}

	var creds Credentials
	if err := json.Unmarshal(jsonc.ToJSON(trimmed), &creds); err != nil {
		return nil, drs.Wrap(errors.Wrap(err, "malformed credentials"), drs.Configuration, "")
	}
	return &creds, nil
}
