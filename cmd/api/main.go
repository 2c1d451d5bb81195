// Package main is the entry point for the Hijri calendar API server and its
// command line tools.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/hijri-calendar-api/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "hijri-api",
		Short:         "Hijri calendar API server",
		Long:          `Serves the current Hijri date, conversions and Ramadan status, resolved from the Al Adhan calendar with a tabular fallback.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewTodayCommand())
	rootCmd.AddCommand(commands.NewConvertCommand())
	rootCmd.AddCommand(commands.NewGregorianCommand())
	rootCmd.AddCommand(commands.NewObservancesCommand())
	rootCmd.AddCommand(commands.NewMonthsCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
