// Command sacco is a terminal client for the Open SACCO staff portal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"opensacco-client/pkg/client"
	"opensacco-client/pkg/config"
	"opensacco-client/pkg/logging"
	"opensacco-client/pkg/metrics"
	"opensacco-client/pkg/metrics/memory"
	promcollector "opensacco-client/pkg/metrics/prometheus"
	"opensacco-client/pkg/session"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// app holds everything a command needs. It is built once in main.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	metrics  metrics.MetricsCollector
	session  *session.Session
	client   *client.Client
	stdout   io.Writer
	stderr   io.Writer
	stdin    io.Reader
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{}

func register(c command) {
	commands[c.name] = c
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sacco", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file (or "+config.PathEnv+")")
	fs.Usage = func() { usage(fs.Output()) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage(os.Stderr)
		return 2
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", fs.Arg(0))
		usage(os.Stderr)
		return 2
	}

	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, a, fs.Args()[1:]); err != nil {
		a.logger.Debug("command failed", zap.String("command", cmd.name), zap.Error(err))
		fmt.Fprintln(a.stderr, "error:", err)
		return 1
	}
	return 0
}

func newApp(cfg *config.Config) (*app, error) {
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logging.SetGlobal(logger)

	registry := prometheus.NewRegistry()
	pc := promcollector.NewPrometheusCollector(cfg.Metrics.Namespace)
	if err := pc.Register(registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	collector := metrics.MultiCollector{pc, memory.NewMemoryCollector()}

	store, err := cfg.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	sess := session.New(store)

	c, err := client.New(cfg.ClientConfig(), sess, client.WithMetrics(collector))
	if err != nil {
		sess.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  collector,
		session:  sess,
		client:   c,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		stdin:    os.Stdin,
	}, nil
}

func (a *app) close() {
	if err := a.session.Close(); err != nil {
		a.logger.Warn("error closing session store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: sacco [-config file] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].usage)
	}

	fmt.Fprintln(w)
	fmt.Fprint(w, config.Usage())
}
