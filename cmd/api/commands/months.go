package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/hijri-calendar-api/internal/database"
)

// NewMonthsCommand inspects and clears the stored calendar months.
func NewMonthsCommand() *cobra.Command {
	monthsCmd := &cobra.Command{
		Use:   "months",
		Short: "Manage stored calendar months",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored months, most recently fetched first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			months, err := db.ListMonths(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MONTH\tLAT\tLNG\tMETHOD\tSCHOOL\tDAYS\tFETCHED")
			for _, m := range months {
				fetched := "-"
				if m.FetchedAt != nil {
					fetched = m.FetchedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%04d-%02d\t%s\t%s\t%d\t%d\t%d\t%s\n",
					m.Year, m.Month, m.Latitude, m.Longitude, m.Method, m.School, m.Days, fetched)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "maximum number of months to list")

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every stored month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.DeleteMonths(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d month(s)\n", n)
			return nil
		},
	}

	monthsCmd.AddCommand(listCmd, purgeCmd)
	return monthsCmd
}

func openStore(cmd *cobra.Command) (*database.DB, error) {
	cfg, log, err := load()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(database.DefaultConfig(cfg.DatabasePath), log)
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(cmd.Context()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
