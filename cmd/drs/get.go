package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/birkland/drs"
	"github.com/birkland/drs/dispatch"
	"github.com/birkland/drs/metadata"
	"github.com/urfave/cli"
)

var urlOpts = struct {
	accessID string
}{}

var getCmd = cli.Command{
	Name:  "get",
	Usage: "Fetch DRS object metadata",
	Description: `Fetches the metadata of every given object from whichever backend it
	resolves to, and prints the results as a JSON list in argument order.

	A failure to fetch one object does not affect the others; its entry
	carries an error and classification instead of an object.`,
	ArgsUsage: "id...",
	Action: func(c *cli.Context) error {
		return getAction(c.Args())
	},
}

var urlCmd = cli.Command{
	Name:  "url",
	Usage: "Fetch access URLs for DRS objects",
	Description: `Fetches a URL for downloading each given object.  Without an access id,
	the backend's preferred access method is used.

	Results are printed as a JSON object keyed by "{id}-{accessId}".`,
	ArgsUsage: "id...",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:        "access-id, a",
			Usage:       "Access id to request for every object",
			Destination: &urlOpts.accessID,
		},
	},
	Action: func(c *cli.Context) error {
		return urlAction(c.Args())
	},
}

type objectEntry struct {
	ID     string           `json:"id"`
	Object *metadata.Object `json:"object,omitempty"`
	Class  string           `json:"class,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type urlEntry struct {
	ID       string              `json:"id"`
	AccessID string              `json:"access_id"`
	URL      *metadata.AccessURL `json:"access_url,omitempty"`
	Class    string              `json:"class,omitempty"`
	Error    string              `json:"error,omitempty"`
}

func getAction(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no identifiers given")
	}

	ctx, cancel := interruptible()
	defer cancel()

	e, err := setup(ctx)
	if err != nil {
		return err
	}

	results, err := e.dispatcher.GetObjects(ctx, args)
	if err != nil {
		return err
	}

	entries := make([]objectEntry, len(results))
	for i, r := range results {
		entries[i] = objectEntry{ID: r.ID, Object: r.Object}
		if r.Err != nil {
			entries[i].Class = drs.KindOf(r.Err).Describe()
			entries[i].Error = r.Err.Error()
		}
	}

	return printJSON(entries)
}

func urlAction(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no identifiers given")
	}

	ctx, cancel := interruptible()
	defer cancel()

	e, err := setup(ctx)
	if err != nil {
		return err
	}

	pairs := make([]dispatch.AccessPair, len(args))
	for i, id := range args {
		pairs[i] = dispatch.AccessPair{ID: id, AccessID: urlOpts.accessID}
	}

	results, err := e.dispatcher.GetAccessURLs(ctx, pairs)
	if err != nil {
		return err
	}

	entries := make(map[string]urlEntry, len(results))
	for key, r := range results {
		entry := urlEntry{ID: r.ID, AccessID: r.AccessID, URL: r.URL}
		if r.Err != nil {
			entry.Class = drs.KindOf(r.Err).Describe()
			entry.Error = r.Err.Error()
		}
		entries[key] = entry
	}

	return printJSON(entries)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
