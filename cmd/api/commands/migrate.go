package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/hijri-calendar-api/internal/database"
)

// NewMigrateCommand applies pending schema migrations.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			db, err := database.Open(database.DefaultConfig(cfg.DatabasePath), log)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}
}
