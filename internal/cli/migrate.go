package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/laudos/internal/config"
	reportrepo "github.com/kailas-cloud/laudos/internal/repository/report"
)

func newMigrateCmd(a *app) *cobra.Command {
	var (
		direction string
		steps     int
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the laudos table schema to PostgreSQL",
		Long: `Run the embedded schema migrations against provider.postgres.dsn.

Examples:
  laudosctl migrate --driver postgres
  laudosctl migrate --driver postgres --direction down --steps 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Provider.Driver != config.DriverPostgres {
				return errors.New("migrate requires provider.driver=postgres")
			}
			if direction != "up" && direction != "down" {
				return fmt.Errorf("--direction must be up or down, got %q", direction)
			}

			be, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer be.Close()

			if err := reportrepo.Migrate(be.Postgres, direction, steps); err != nil {
				return err //nolint:wrapcheck // already describes the direction
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (%s).\n", direction)
			return nil
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "up", "migration direction: up or down")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to apply (0 = all)")
	return cmd
}
