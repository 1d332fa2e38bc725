// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the kit-engine CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/kit-engine/internal/cache"
	"github.com/pdiddy/kit-engine/internal/config"
	"github.com/pdiddy/kit-engine/internal/errs"
	"github.com/pdiddy/kit-engine/internal/search"
	"github.com/pdiddy/kit-engine/internal/secrets"
	"github.com/pdiddy/kit-engine/internal/telemetry"
	"github.com/pdiddy/kit-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Process-wide state set up by PersistentPreRunE.
var (
	cfg    types.Config
	logger = zap.NewNop()
	tel    *telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "kit-engine",
	Short: "Turn a free-text request into a shoppable kit",
	Long: `kit-engine turns a request such as "I want to start backpacking" into a
structured kit of categorized items, each resolved to a real product.

The kit command runs the whole pipeline: a clarification gate, kit
generation, query building, shopping search and confidence ranking. The
search, match and query commands expose individual stages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; values already in the environment win.
		_ = godotenv.Load()

		verbose, _ := cmd.Flags().GetBool("verbose")
		l, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}

		cfgFile, _ := cmd.Flags().GetString("config")
		v, err := config.NewViper(cfgFile)
		if err != nil {
			return err
		}
		if used := v.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}
		if cfg, err = config.Load(v, s); err != nil {
			return err
		}
		if cfg.Search.UserAgent == "kit-engine" {
			cfg.Search.UserAgent = "kit-engine/" + version
		}
		cfg.Telemetry.ServiceVersion = version

		tel, err = telemetry.Setup(cmd.Context(), cfg.Telemetry)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./kit-engine.yaml or ~/.config/kit-engine/kit-engine.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l, nil
}

// newAggregator wires the configured cache backend and the Serper source.
// The returned close func releases the cache.
func newAggregator(ctx context.Context) (*search.Aggregator, func(), error) {
	store, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	agg := search.NewAggregator(
		[]search.Source{search.NewSerperSource(cfg.Search)},
		store, cfg.Search, logger,
	)
	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing search cache", zap.Error(err))
		}
	}
	return agg, closeFn, nil
}

// Exit codes by failure class.
const (
	exitFailure    = 1
	exitTransport  = 3
	exitGeneration = 4
)

// describeError returns the stderr message and exit code for a failed
// command. Provider outages and responses that never passed validation each
// get their own wording and code.
func describeError(err error) (string, int) {
	switch {
	case errors.Is(err, config.ErrMissingLLMKey):
		return "Error: " + err.Error(), exitFailure
	case errs.IsTransport(err):
		return "Error: the LLM provider could not be reached, try again later: " + err.Error(), exitTransport
	case errs.IsGeneration(err):
		return "Error: the LLM did not return a valid kit, try rephrasing the request: " + err.Error(), exitGeneration
	default:
		return "Error: " + err.Error(), exitFailure
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		msg, code := describeError(err)
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(code)
	}
}
