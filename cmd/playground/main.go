// Command playground runs the playground data source as a remoting agent:
// it connects to the host at <address>:<port> and serves requests until
// the host disconnects or the process receives SIGINT/SIGTERM.
//
// Usage:
//
//	playground [--config file] [--log-level level] <address> <port>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/marmos91/playground/internal/logger"
	"github.com/marmos91/playground/pkg/config"
	"github.com/marmos91/playground/pkg/metrics"
	"github.com/marmos91/playground/pkg/mount"
	"github.com/marmos91/playground/pkg/playground"
	"github.com/marmos91/playground/pkg/plugin"
	"github.com/marmos91/playground/pkg/plugin/builtin"
	"github.com/marmos91/playground/pkg/remoting"
	"github.com/spf13/pflag"
)

var errUsage = errors.New("usage: playground [--config file] [--log-level level] <address> <port>")

// options are the parsed command line.
type options struct {
	ConfigPath string
	LogLevel   string
	Address    string
	Port       int
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options

	flags := pflag.NewFlagSet("playground", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to the configuration file (default: $XDG_CONFIG_HOME/playground/config.yaml)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")

	if err := flags.Parse(args); err != nil {
		return options{}, err
	}

	positional := flags.Args()
	if len(positional) < 2 {
		return options{}, fmt.Errorf("%w: no argument for address and/or port was specified", errUsage)
	}

	opts.Address = positional[0]

	port, err := strconv.Atoi(positional[1])
	if err != nil || port < 1 || port > 65535 {
		return options{}, fmt.Errorf("%w: the second argument must be a valid port number, got %q", errUsage, positional[1])
	}
	opts.Port = port

	if opts.LogLevel != "" {
		if _, ok := logger.ParseLevel(opts.LogLevel); !ok {
			return options{}, fmt.Errorf("invalid log level %q", opts.LogLevel)
		}
	}

	return opts, nil
}

// loadConfig loads the process configuration and applies CLI overrides.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
		config.ApplyDefaults(cfg)
	}
	return cfg, nil
}

func configureLogging(cfg config.LoggingConfig) error {
	logger.SetLevel(cfg.Level)
	logger.SetFormat(cfg.Format)
	return logger.SetOutput(cfg.Output)
}

// newPlayground wires the router with the builtin plugin kinds.
func newPlayground(cfg *config.Config, routerMetrics metrics.RouterMetrics) (*playground.Playground, error) {
	policy, err := mount.ParsePolicy(cfg.Playground.CollisionPolicy)
	if err != nil {
		return nil, err
	}

	loader := plugin.NewLoader(builtin.NewRegistry())
	loader.Logger = logger.ForSource("plugins")

	return playground.New(loader,
		playground.WithCollisionPolicy(policy),
		playground.WithMetrics(routerMetrics),
	), nil
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if err := configureLogging(cfg.Logging); err != nil {
		return err
	}

	logger.Info("Playground configuration:")
	logger.Info("  Host: %s:%d", opts.Address, opts.Port)
	logger.Info("  Log level: %s (%s)", cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("  Collision policy: %s", cfg.Playground.CollisionPolicy)
	logger.Info("  Dial timeout: %v", cfg.Remoting.DialTimeout)

	metricsResult := config.InitializeMetrics(cfg)

	pg, err := newPlayground(cfg, metricsResult.RouterMetrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := pg.Close(); err != nil {
			logger.Error("Failed to close data sources: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metricsDone := make(chan error, 1)
	if metricsResult.Server != nil {
		go func() { metricsDone <- metricsResult.Server.Start(ctx) }()
	} else {
		close(metricsDone)
	}

	agent := remoting.NewAgent(pg, remoting.Config{
		DialTimeout:       cfg.Remoting.DialTimeout,
		MaxElapsedTime:    cfg.Remoting.MaxElapsedTime,
		RequestsPerSecond: cfg.Remoting.RequestsPerSecond,
		RequestBurst:      cfg.Remoting.RequestBurst,
	})

	agentErr := agent.Run(ctx, opts.Address, opts.Port)

	cancel()
	if err := <-metricsDone; err != nil {
		logger.Error("Metrics server error: %v", err)
	}

	return agentErr
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		logger.Error("Playground stopped: %v", err)
		stop()
		os.Exit(1)
	}

	logger.Info("Playground stopped")
}
