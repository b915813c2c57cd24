package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/birkland/drs"
	"github.com/urfave/cli"
)

var resolveCmd = cli.Command{
	Name:  "resolve",
	Usage: "Show which backend DRS identifiers resolve to",
	Description: `Resolves each identifier without contacting any backend, and prints
	the route taken (prefix, host, or lazy), the backend host, and the
	backend-local id.

	Identifiers may be compact (prefix:localId) or host based
	(host[:port]/localId), with or without a leading drs://.  For example

	  drs resolve dg.4DFC:0e3c5237-6933-4d30-83f8-6ab721096bc7 drs://example.org/abc

	A known prefix always wins over a host reading of the same identifier.
	Unknown hosts are registered lazily, so resolving one is not free of
	side effects.`,
	ArgsUsage: "id...",
	Action: func(c *cli.Context) error {
		return resolveAction(c.Args())
	},
}

func resolveAction(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no identifiers given")
	}

	ctx, cancel := interruptible()
	defer cancel()

	e, err := setup(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROUTE\tKEY\tHOST\tLOCAL ID")
	for _, id := range args {
		res, err := e.resolver.Resolve(id)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t\t\t%s\n", id, drs.Unrouted, drs.KindOf(err).Describe())
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", id, res.Route, res.Key, res.Client.Host(), res.LocalID)
	}

	return w.Flush()
}
