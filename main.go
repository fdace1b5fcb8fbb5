package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yumyai/recombmap/logger"
	"github.com/yumyai/recombmap/pkg/config"
	"github.com/yumyai/recombmap/pkg/genotype"
)

const VERSION = "0.1.0"

func main() {
	configPath := flag.String("config", "", "TOML run configuration (default $"+config.EnvConfigFile+")")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	// Try load env, then the configuration
	cfg, dotenv, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Establish logger
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logger.InitLogger(level); err != nil {
		panic(err)
	}

	if !dotenv {
		logger.Debug("No .env found, using local environment")
	}

	runLog := logger.With(zap.String("run_id", uuid.NewString()), zap.String("command", cmd.name))
	runLog.Info("Start:", zap.String("Version", VERSION))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = cmd.run(ctx, &env{cfg: cfg, log: runLog}, flag.Args()[1:])
	stop()

	code := exitCode(runLog, err)
	logger.Sync() // Make sure that the buffered is flushed.
	os.Exit(code)
}

// exitCode reports err and decides the process status. Having too little
// data to produce a result is not a failure.
func exitCode(log *zap.Logger, err error) int {
	switch {
	case err == nil:
		log.Info("done")
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, genotype.ErrInsufficientData), errors.Is(err, genotype.ErrAmbiguousTrial):
		log.Warn("no result", zap.Error(err))
		return 0
	default:
		log.Error("failed", zap.Error(err))
		return 1
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: recombmap [-config file] <command> [flags]\n\ncommands:\n")
	for _, name := range commandOrder {
		fmt.Fprintf(os.Stderr, "  %-18s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, "\nglobal flags:\n")
	flag.PrintDefaults()
}
