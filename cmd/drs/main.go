package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/birkland/drs/config"
	"github.com/birkland/drs/dispatch"
	"github.com/birkland/drs/metrics"
	"github.com/birkland/drs/registry"
	"github.com/birkland/drs/resolv"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var mainOpts = struct {
	config      string
	registry    string
	discover    bool
	timeout     time.Duration
	workers     int
	verbose     bool
	metricsAddr string
}{}

func main() {
	app := cli.NewApp()
	app.Name = "drs"
	app.Usage = "DRS meta-resolver commandline utilities"
	app.EnableBashCompletion = true
	app.Commands = []cli.Command{
		resolveCmd,
		getCmd,
		urlCmd,
		checkCmd,
		servicesCmd,
	}
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "config, c",
			Usage:       "YAML config file (backends, credentials, registry)",
			EnvVar:      config.EnvVar,
			Destination: &mainOpts.config,
		},
		cli.StringFlag{
			Name:        "registry",
			Usage:       "Federation registry base URL.  Implies --discover",
			EnvVar:      "DRS_REGISTRY",
			Destination: &mainOpts.registry,
		},
		cli.BoolFlag{
			Name:        "discover, d",
			Usage:       "Discover DRS services registered with the federation registry",
			Destination: &mainOpts.discover,
		},
		cli.DurationFlag{
			Name:        "timeout, t",
			Usage:       "Per-call backend timeout (overrides config)",
			Destination: &mainOpts.timeout,
		},
		cli.IntFlag{
			Name:        "workers, w",
			Usage:       "Number of concurrent backend calls (overrides config)",
			Destination: &mainOpts.workers,
		},
		cli.BoolFlag{
			Name:        "verbose, v",
			Usage:       "Debug logging",
			Destination: &mainOpts.verbose,
		},
		cli.StringFlag{
			Name:        "metrics-addr",
			Usage:       "Serve prometheus metrics on this address (e.g. :9090)",
			EnvVar:      "DRS_METRICS_ADDR",
			Destination: &mainOpts.metricsAddr,
		},
	}
	app.Before = func(c *cli.Context) error {
		level := slog.LevelInfo
		if mainOpts.verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

// env is everything a command needs to talk to backends
type env struct {
	cfg        *config.Config
	resolver   *resolv.Resolver
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger
}

// setup loads configuration, registers the configured backends, and discovers
// registered ones if asked to.  Only configuration problems are fatal; an
// unavailable registry is logged and otherwise ignored.
func setup(ctx context.Context) (*env, error) {
	logger := slog.Default()

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	backends, err := cfg.Build(http.DefaultClient, logger)
	if err != nil {
		return nil, errors.Wrap(err, "could not build backends")
	}

	resolver, err := resolv.New(backends.Static,
		resolv.WithScheme(cfg.LazyScheme),
		resolv.WithLogger(logger))
	if err != nil {
		return nil, errors.Wrap(err, "could not register backends")
	}

	if cfg.Registry.Enabled {
		dir := registry.NewClient(cfg.Registry.URL, &http.Client{Timeout: cfg.Registry.Timeout})
		_, _ = resolver.Discover(ctx, dir, cfg.Registry.ServiceType, backends.Factory)
	}

	opts := []dispatch.Option{
		dispatch.WithTimeout(cfg.Dispatch.Timeout),
		dispatch.WithWorkers(cfg.Dispatch.Workers),
		dispatch.WithLogger(logger),
	}

	if mainOpts.metricsAddr != "" {
		collector, err := metrics.NewCollector()
		if err != nil {
			return nil, err
		}
		go func() {
			if err := collector.Serve(ctx, mainOpts.metricsAddr, logger); err != nil {
				logger.Error("metrics listener stopped", "err", err)
			}
		}()
		opts = append(opts, dispatch.WithObserver(collector))
	}

	return &env{
		cfg:        cfg,
		resolver:   resolver,
		dispatcher: dispatch.New(resolver, opts...),
		log:        logger,
	}, nil
}

// loadConfig reads the config file, and applies commandline overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(mainOpts.config)
	if err != nil {
		return nil, err
	}

	if mainOpts.registry != "" {
		cfg.Registry.URL = mainOpts.registry
		cfg.Registry.Enabled = true
	}
	if mainOpts.discover {
		cfg.Registry.Enabled = true
	}
	if mainOpts.timeout > 0 {
		cfg.Dispatch.Timeout = mainOpts.timeout
	}
	if mainOpts.workers > 0 {
		cfg.Dispatch.Workers = mainOpts.workers
	}

	return cfg, nil
}

// interruptible gives a context that is canceled on ^C
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
