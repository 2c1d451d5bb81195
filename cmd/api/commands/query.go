package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/hijri-calendar-api/internal/app"
	"github.com/zapponejosh/hijri-calendar-api/internal/calendar"
	"github.com/zapponejosh/hijri-calendar-api/internal/hijri"
)

var errUnavailable = errors.New("hijri date unavailable")

// settingsFlags overrides the configured default settings.
type settingsFlags struct {
	lat, lng       float64
	method, school int
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude (default DEFAULT_LATITUDE)")
	cmd.Flags().Float64Var(&f.lng, "lng", 0, "longitude (default DEFAULT_LONGITUDE)")
	cmd.Flags().IntVar(&f.method, "method", -1, "calculation method (default DEFAULT_METHOD)")
	cmd.Flags().IntVar(&f.school, "school", -1, "Asr school, 0 or 1 (default DEFAULT_SCHOOL)")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
}

func (f *settingsFlags) settings(cmd *cobra.Command, a *app.App) (calendar.Settings, error) {
	s := a.DefaultSettings()
	if cmd.Flags().Changed("lat") {
		if f.lat < -90 || f.lat > 90 || f.lng < -180 || f.lng > 180 {
			return s, fmt.Errorf("invalid location %g,%g", f.lat, f.lng)
		}
		s.Location = &calendar.Location{Latitude: f.lat, Longitude: f.lng}
	}
	if f.method >= 0 {
		s.Method = f.method
	}
	if f.school >= 0 {
		if f.school > 1 {
			return s, fmt.Errorf("invalid school %d (want 0 or 1)", f.school)
		}
		s.School = f.school
	}
	return s, nil
}

// withResolver builds the app and hands fn the resolver for the flags'
// settings.
func withResolver(cmd *cobra.Command, flags *settingsFlags, fn func(ctx context.Context, a *app.App, r *calendar.Resolver) error) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := flags.settings(cmd, a)
	if err != nil {
		return err
	}
	return fn(ctx, a, a.Registry.Resolver(ctx, s))
}

// NewTodayCommand prints today's Hijri date and Ramadan status.
func NewTodayCommand() *cobra.Command {
	var flags settingsFlags
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Print today's Hijri date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd, &flags, func(ctx context.Context, a *app.App, r *calendar.Resolver) error {
				today, src, ok := r.CurrentHijriDate(ctx)
				if !ok {
					return errUnavailable
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  %s (%s, source %s)\n",
					calendar.GregorianKey(r.Today()), today, today.Key(), src)

				status, ok := r.RamadanStatus(ctx)
				if !ok {
					return nil
				}
				printRamadan(out, status)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func printRamadan(w io.Writer, s calendar.RamadanStatus) {
	switch {
	case s.IsRamadan:
		fmt.Fprintf(w, "Ramadan %d: day %d of %d, %d left\n", s.Year, s.CurrentDay, s.TotalDays, s.DaysLeft)
	case s.IsEidPeriod:
		fmt.Fprintf(w, "Eid al-Fitr %d\n", s.Year)
	default:
		fmt.Fprintf(w, "Ramadan %d begins %s, in %d days\n", s.Year, calendar.GregorianKey(s.StartDate), s.DaysLeft)
	}
}

// NewConvertCommand converts a Gregorian date to Hijri.
func NewConvertCommand() *cobra.Command {
	var flags settingsFlags
	cmd := &cobra.Command{
		Use:   "convert YYYY-MM-DD",
		Short: "Convert a Gregorian date to Hijri",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd, &flags, func(ctx context.Context, a *app.App, r *calendar.Resolver) error {
				day, err := calendar.ParseGregorianKey(args[0], a.Config.Location())
				if err != nil {
					return fmt.Errorf("invalid date %q: %w", args[0], err)
				}
				h, _, ok := r.HijriDateForGregorian(day)
				if !ok {
					return errUnavailable
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%s)\n", args[0], h, h.Key())
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// NewGregorianCommand converts a Hijri date to Gregorian.
func NewGregorianCommand() *cobra.Command {
	var flags settingsFlags
	cmd := &cobra.Command{
		Use:   "gregorian YYYY-MM-DD",
		Short: "Convert a Hijri date to Gregorian and count the days until it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd, &flags, func(ctx context.Context, a *app.App, r *calendar.Resolver) error {
				target, err := hijri.ParseKey(args[0])
				if err != nil {
					return err
				}
				g, _, ok := r.GregorianDateForHijri(ctx, target)
				if !ok {
					return errUnavailable
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  %s", target, calendar.GregorianKey(g))
				if n, _, ok := r.DaysUntilHijri(ctx, target); ok {
					fmt.Fprintf(out, " (%d days)", n)
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// NewObservancesCommand prints the upcoming observances.
func NewObservancesCommand() *cobra.Command {
	var flags settingsFlags
	cmd := &cobra.Command{
		Use:   "observances",
		Short: "List upcoming Islamic observances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd, &flags, func(ctx context.Context, a *app.App, r *calendar.Resolver) error {
				upcoming, ok := r.UpcomingObservances(ctx)
				if !ok {
					return errUnavailable
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tHIJRI\tGREGORIAN\tDAYS")
				for _, o := range upcoming {
					greg, days := "-", "-"
					if o.Gregorian != nil {
						greg = calendar.GregorianKey(*o.Gregorian)
					}
					if o.DaysUntil != nil {
						days = fmt.Sprint(*o.DaysUntil)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.Name, o.Hijri, greg, days)
				}
				return tw.Flush()
			})
		},
	}
	flags.register(cmd)
	return cmd
}
