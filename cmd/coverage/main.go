// Command coverage walks a range of Gregorian days through a running API's
// convert endpoint and reports how many were answered from the remote
// calendar and whether consecutive answers advance by exactly one Hijri day.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/hijri-calendar-api/internal/api"
	"github.com/zapponejosh/hijri-calendar-api/internal/calendar"
	"github.com/zapponejosh/hijri-calendar-api/internal/hijri"
)

// DayResult holds the answer for a single date.
type DayResult struct {
	Date   string          `json:"date"`
	Hijri  *hijri.Date     `json:"hijri,omitempty"`
	Source calendar.Source `json:"source,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// MonthStats counts answers per Gregorian month.
type MonthStats struct {
	Month    string `json:"month"`
	Remote   int    `json:"remote"`
	Fallback int    `json:"fallback"`
	Failed   int    `json:"failed"`
}

// Break is a pair of consecutive days whose Hijri dates do not follow.
type Break struct {
	From      string     `json:"from"`
	To        string     `json:"to"`
	FromHijri hijri.Date `json:"from_hijri"`
	ToHijri   hijri.Date `json:"to_hijri"`
}

// Analysis summarises a run.
type Analysis struct {
	TotalDays int           `json:"total_days"`
	Remote    int           `json:"remote"`
	Fallback  int           `json:"fallback"`
	Failed    int           `json:"failed"`
	ByMonth   []*MonthStats `json:"by_month"`
	Breaks    []Break       `json:"breaks"`
	Failures  []DayResult   `json:"failures"`
}

func main() {
	var (
		baseURL    string
		start      string
		days       int
		lat, lng   string
		method     string
		verbose    bool
		outputFile string
	)
	rootCmd := &cobra.Command{
		Use:          "coverage",
		Short:        "Report remote calendar coverage over a date range",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			first, err := calendar.ParseGregorianKey(start, time.UTC)
			if err != nil {
				return fmt.Errorf("invalid --start %q: %w", start, err)
			}

			fmt.Println("================================================================")
			fmt.Println("Hijri Calendar API - Coverage")
			fmt.Println("================================================================")
			fmt.Printf("Base URL:    %s\n", baseURL)
			fmt.Printf("Date Range:  %s + %d days\n", start, days)
			fmt.Println()

			client := &http.Client{Timeout: 30 * time.Second}
			resp, err := client.Get(baseURL + "/health")
			if err != nil {
				return fmt.Errorf("cannot connect to %s, make sure the API server is running", baseURL)
			}
			resp.Body.Close()

			q := url.Values{}
			if lat != "" || lng != "" {
				q.Set("lat", lat)
				q.Set("lng", lng)
			}
			if method != "" {
				q.Set("method", method)
			}

			results := convertAll(client, baseURL, q, first, days, verbose)
			analysis := analyze(results)
			printSummary(analysis)

			if outputFile != "" {
				if err := saveResults(outputFile, analysis); err != nil {
					return err
				}
				fmt.Printf("Results saved to: %s\n", outputFile)
			}
			if analysis.Failed > 0 || len(analysis.Breaks) > 0 {
				return fmt.Errorf("%d failure(s), %d break(s)", analysis.Failed, len(analysis.Breaks))
			}
			return nil
		},
	}
	rootCmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the API")
	rootCmd.Flags().StringVar(&start, "start", time.Now().UTC().Format("2006-01")+"-01", "first day, YYYY-MM-DD")
	rootCmd.Flags().IntVar(&days, "days", 365, "number of days to walk")
	rootCmd.Flags().StringVar(&lat, "lat", "", "latitude to query with")
	rootCmd.Flags().StringVar(&lng, "lng", "", "longitude to query with")
	rootCmd.Flags().StringVar(&method, "method", "", "calculation method")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each date")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write the analysis to a JSON file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func convertAll(client *http.Client, baseURL string, q url.Values, first time.Time, days int, verbose bool) []DayResult {
	results := make([]DayResult, 0, days)
	for i := 0; i < days; i++ {
		date := calendar.GregorianKey(first.AddDate(0, 0, i))
		r := convert(client, baseURL, q, date)
		if verbose {
			if r.Error != "" {
				fmt.Printf("  %s  error: %s\n", date, r.Error)
			} else {
				fmt.Printf("  %s  %-20s %s\n", date, r.Hijri, r.Source)
			}
		} else if i%30 == 29 {
			fmt.Print(".")
		}
		results = append(results, r)
	}
	if !verbose {
		fmt.Println()
	}
	return results
}

func convert(client *http.Client, baseURL string, q url.Values, date string) DayResult {
	result := DayResult{Date: date}
	u := baseURL + "/api/v1/hijri/convert/" + date
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	resp, err := client.Get(u)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	var env struct {
		Success bool                            `json:"success"`
		Data    api.GregorianConversionResponse `json:"data"`
		Error   *api.ErrorInfo                  `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		result.Error = fmt.Sprintf("HTTP %d: %v", resp.StatusCode, err)
		return result
	}
	if !env.Success {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		if env.Error != nil {
			result.Error += ": " + env.Error.Message
		}
		return result
	}
	h := env.Data.Hijri
	result.Hijri = &h
	result.Source = env.Data.Source
	return result
}

// follows reports whether next is a valid successor of prev. Observed
// months may run to 30 days where the tabular rules give 29, so day 30 and
// the first of the following month are both accepted after day 29.
func follows(prev, next hijri.Date) bool {
	if next == hijri.AddOneDay(prev) {
		return true
	}
	if prev.Day == 29 && next.Day == 30 && next.Month == prev.Month && next.Year == prev.Year {
		return true
	}
	if prev.Day >= 29 && next.Day == 1 {
		wantMonth, wantYear := prev.Month+1, prev.Year
		if wantMonth > hijri.DhuAlHijjah {
			wantMonth, wantYear = hijri.Muharram, wantYear+1
		}
		return next.Month == wantMonth && next.Year == wantYear
	}
	return false
}

func analyze(results []DayResult) *Analysis {
	a := &Analysis{TotalDays: len(results)}
	months := make(map[string]*MonthStats)

	var prev *DayResult
	for i := range results {
		r := &results[i]
		month := r.Date[:7]
		ms, ok := months[month]
		if !ok {
			ms = &MonthStats{Month: month}
			months[month] = ms
		}

		switch {
		case r.Error != "" || r.Hijri == nil:
			a.Failed++
			ms.Failed++
			a.Failures = append(a.Failures, *r)
			prev = nil
			continue
		case r.Source == calendar.SourceRemote:
			a.Remote++
			ms.Remote++
		default:
			a.Fallback++
			ms.Fallback++
		}

		if prev != nil && !follows(*prev.Hijri, *r.Hijri) {
			a.Breaks = append(a.Breaks, Break{
				From: prev.Date, To: r.Date,
				FromHijri: *prev.Hijri, ToHijri: *r.Hijri,
			})
		}
		prev = r
	}

	for _, ms := range months {
		a.ByMonth = append(a.ByMonth, ms)
	}
	sort.Slice(a.ByMonth, func(i, j int) bool { return a.ByMonth[i].Month < a.ByMonth[j].Month })
	return a
}

func printSummary(a *Analysis) {
	fmt.Println()
	fmt.Println("================================================================")
	fmt.Println("Summary")
	fmt.Println("================================================================")
	fmt.Printf("  Days:     %d\n", a.TotalDays)
	fmt.Printf("  Remote:   %d\n", a.Remote)
	fmt.Printf("  Fallback: %d\n", a.Fallback)
	fmt.Printf("  Failed:   %d\n", a.Failed)
	fmt.Println()

	fmt.Printf("  %-8s %7s %9s %7s\n", "MONTH", "REMOTE", "FALLBACK", "FAILED")
	for _, ms := range a.ByMonth {
		fmt.Printf("  %-8s %7d %9d %7d\n", ms.Month, ms.Remote, ms.Fallback, ms.Failed)
	}

	if len(a.Breaks) > 0 {
		fmt.Println()
		fmt.Println("Breaks:")
		for _, b := range a.Breaks {
			fmt.Printf("  • %s %s -> %s %s\n", b.From, b.FromHijri, b.To, b.ToHijri)
		}
	}
	if len(a.Failures) > 0 {
		fmt.Println()
		fmt.Println("Failures:")
		for _, f := range a.Failures {
			fmt.Printf("  • %s: %s\n", f.Date, f.Error)
		}
	}
	fmt.Println()
}

func saveResults(filename string, a *Analysis) error {
	output := struct {
		GeneratedAt string    `json:"generated_at"`
		Analysis    *Analysis `json:"analysis"`
	}{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Analysis:    a,
	}
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
