// Package cli implements laudosctl, the operator CLI for the laudos report store.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/backend"
	"github.com/kailas-cloud/laudos/internal/config"
	logpkg "github.com/kailas-cloud/laudos/internal/logger"
	"github.com/kailas-cloud/laudos/internal/metrics"
	"github.com/kailas-cloud/laudos/internal/version"
)

// app carries state resolved by the root command for its subcommands.
type app struct {
	cfgFile string
	env     string
	driver  string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
}

// NewRootCmd builds the laudosctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "laudosctl",
		Short: "Search, import and migrate the laudos report store",
		Long: `laudosctl operates on the report store configured for the laudos API.

Examples:
  laudosctl search -q "nódulo pulmonar" -e "TC de tórax"
  laudosctl import reports.jsonl
  laudosctl migrate --direction up`,
		SilenceUsage:  true,
		Version:       version.String(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is config/<env>.yaml)")
	root.PersistentFlags().StringVar(&a.env, "env", config.GetEnv(), "environment used to locate the config file")
	root.PersistentFlags().StringVar(&a.driver, "driver", "", "override provider.driver")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(newSearchCmd(a), newImportCmd(a), newMigrateCmd(a))
	return root
}

// Execute runs laudosctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) load() error {
	var (
		cfg config.Config
		err error
	)
	switch {
	case a.cfgFile != "":
		cfg, err = config.LoadFile(a.cfgFile)
	default:
		cfg, err = config.Load(a.env)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.driver != "" {
		cfg.Provider.Driver = a.driver
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	a.cfg = cfg

	level := ""
	if a.verbose {
		level = "debug"
	}
	a.logger, err = logpkg.NewLogger("cli", level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	metrics.RegisterSearchMetrics()
	return nil
}

func (a *app) open(ctx context.Context) (*backend.Backend, error) {
	be, err := backend.Open(ctx, &a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open %s provider: %w", a.cfg.Provider.Driver, err)
	}
	return be, nil
}
