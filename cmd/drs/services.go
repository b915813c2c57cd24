package main

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/birkland/drs/registry"
	"github.com/urfave/cli"
)

var servicesCmd = cli.Command{
	Name:  "services",
	Usage: "List DRS services registered with the federation registry",
	Description: `Queries the federation registry for services of the configured type
	(org.ga4gh:drs by default) and prints the id, compact prefix, and URL of
	each.  These are the services --discover would register.`,
	Action: func(c *cli.Context) error {
		return servicesAction()
	},
}

func servicesAction() error {
	ctx, cancel := interruptible()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := registry.NewClient(cfg.Registry.URL, &http.Client{Timeout: cfg.Registry.Timeout})
	services, err := dir.Services(ctx, cfg.Registry.ServiceType)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPREFIX\tURL\tNAME")
	for _, svc := range services {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", svc.ID, svc.CuriePrefix, svc.URL, svc.Name)
	}
	return w.Flush()
}
