package main

import (
	"os"

	"github.com/birkland/drs/diag"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var checkOpts = struct {
	compact bool
	uri     bool
	out     string
	objects bool
}{}

var checkCmd = cli.Command{
	Name:  "check",
	Usage: "Self test resolution against live backends",
	Description: `Sends known identifiers through the meta-resolver and prints how each
	backend answered.

	With --compact, compact identifiers (prefix:localId) are sent, and every
	registered prefix is reported as tested (with a classification such as
	Success, Unauthorized, or id not found) or untested.  With --uri, host
	based identifiers are sent instead.  With neither, both checks run.

	Identifiers given as arguments replace the built-in test lists, e.g.

	  drs check --compact crdc:0e3c5237-6933-4d30-83f8-6ab721096bc7`,
	ArgsUsage: "[ id... ]",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:        "compact",
			Usage:       "Check compact identifier resolution",
			Destination: &checkOpts.compact,
		},
		cli.BoolFlag{
			Name:        "uri, u",
			Usage:       "Check host based identifier resolution",
			Destination: &checkOpts.uri,
		},
		cli.StringFlag{
			Name:        "out, o",
			Usage:       "Also write the report as JSON to this file",
			Destination: &checkOpts.out,
		},
		cli.BoolFlag{
			Name:        "objects",
			Usage:       "Print the metadata of every object fetched",
			Destination: &checkOpts.objects,
		},
	},
	Action: func(c *cli.Context) error {
		return checkAction(c.Args())
	},
}

func checkAction(args []string) error {
	ctx, cancel := interruptible()
	defer cancel()

	e, err := setup(ctx)
	if err != nil {
		return err
	}

	if !checkOpts.compact && !checkOpts.uri {
		checkOpts.compact, checkOpts.uri = true, true
	}

	var reports []*diag.Report

	if checkOpts.compact {
		ids := diag.DefaultCompactIDs
		if len(args) > 0 {
			ids = args
		}
		report, err := diag.CheckCompact(ctx, e.dispatcher, ids, diag.OrderKeys(e.cfg.Prefixes(), e.resolver.Prefixes()))
		if err != nil {
			return err
		}
		reports = append(reports, report)
	}

	if checkOpts.uri {
		uris := diag.DefaultHostURIs
		if len(args) > 0 {
			uris = args
		}
		report, err := diag.CheckHosts(ctx, e.dispatcher, uris)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	}

	for _, r := range reports {
		if err := r.Print(os.Stdout, checkOpts.objects); err != nil {
			return err
		}
	}

	if checkOpts.out != "" {
		for i, r := range reports {
			path := checkOpts.out
			if i > 0 {
				path = path + "." + r.Check
			}
			if err := r.WriteFile(path); err != nil {
				return errors.Wrapf(err, "could not save %s report", r.Check)
			}
			e.log.Info("wrote report", "check", r.Check, "run", r.RunID, "path", path)
		}
	}

	return nil
}
