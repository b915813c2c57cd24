package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	divider = "-------------------------------"
	banner  = "----Test results ---"
)

// Print writes a human readable report: each identifier sent, with the object that
// came back if verbose, then the classification of every key
func (r *Report) Print(w io.Writer, verbose bool) error {
	for _, res := range r.Results {
		fmt.Fprintln(w, divider)
		fmt.Fprintf(w, "sending: %s\n", res.ID)

		switch {
		case res.Object != nil && verbose:
			out, err := json.MarshalIndent(res.Object, "", "  ")
			if err != nil {
				return errors.Wrapf(err, "could not serialize object %s", res.ID)
			}
			fmt.Fprintln(w, string(out))
		case res.Error != "":
			fmt.Fprintln(w, res.Error)
		}
	}

	fmt.Fprintln(w, banner)
	summary := r.Summary()
	for _, k := range r.Keys {
		if class := summary[k]; class != "" {
			fmt.Fprintf(w, "%s Tested: %s\n", k, class)
		} else {
			fmt.Fprintf(w, "%s untested\n", k)
		}
	}

	_, err := fmt.Fprintf(w, "run %s: %d sent, %d failed\n", r.RunID, len(r.Results), r.Failed())
	return err
}

// WriteFile saves the report as JSON.  The file is replaced atomically; a partially
// written report never appears at path.
func (r *Report) WriteFile(path string) error {
	return writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	})
}

// writeAtomic writes to a temporary file next to path, then renames it into place.
// The temporary file is removed whenever any step fails.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "could not create temporary file for %s", path)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return errors.Wrapf(err, "could not write %s", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "could not close %s", tmp.Name())
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "could not rename %s to %s", tmp.Name(), path)
	}
	return nil
}
