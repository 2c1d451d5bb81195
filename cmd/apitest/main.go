// Command apitest runs consistency checks against a running Hijri calendar
// API.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zapponejosh/hijri-calendar-api/internal/api"
	"github.com/zapponejosh/hijri-calendar-api/internal/hijri"
)

// envelope mirrors api.Response with a typed payload.
type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *api.ErrorInfo `json:"error"`
}

type TestRunner struct {
	baseURL      string
	settings     url.Values
	client       *http.Client
	verbose      bool
	successCount int
	errorCount   int
	errors       []string
}

func NewTestRunner(baseURL string, settings url.Values, verbose bool) *TestRunner {
	return &TestRunner{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		settings: settings,
		client:   &http.Client{Timeout: 30 * time.Second},
		verbose:  verbose,
	}
}

func (tr *TestRunner) Run() {
	fmt.Println("==============================================")
	fmt.Println("Hijri Calendar API Checks")
	fmt.Println("==============================================")
	fmt.Printf("Base URL: %s\n", tr.baseURL)
	if len(tr.settings) > 0 {
		fmt.Printf("Settings: %s\n", tr.settings.Encode())
	}
	fmt.Println()

	tr.testHealth()
	today, ok := tr.testToday()
	if ok {
		tr.testRoundTrip(today)
	}
	tr.testObservances()
	tr.testRamadan()
	tr.testEdgeCases()

	tr.printSummary()
}

func (tr *TestRunner) testHealth() {
	tr.printSection("Health Check")

	var health map[string]string
	if status, err := getData(tr, "/health", nil, &health); err != nil {
		tr.recordError("Health", err.Error())
	} else if status != http.StatusOK || health["status"] != "healthy" {
		tr.recordError("Health", fmt.Sprintf("HTTP %d, status %q", status, health["status"]))
	} else {
		tr.recordSuccess("Health check passed")
	}
}

func (tr *TestRunner) testToday() (api.TodayResponse, bool) {
	tr.printSection("Today")

	var today api.TodayResponse
	status, err := getData(tr, "/api/v1/hijri/today", tr.settings, &today)
	if err != nil {
		tr.recordError("Today", err.Error())
		return today, false
	}
	if status != http.StatusOK {
		tr.recordError("Today", fmt.Sprintf("HTTP %d", status))
		return today, false
	}
	if today.Key != today.Hijri.Key() || today.Display != today.Hijri.String() {
		tr.recordError("Today", fmt.Sprintf("key %q and display %q disagree with %v", today.Key, today.Display, today.Hijri))
		return today, false
	}
	tr.recordSuccess(fmt.Sprintf("Today (%s): %s via %s", today.Gregorian, today.Display, today.Source))
	return today, true
}

// testRoundTrip checks that every conversion endpoint agrees with today.
func (tr *TestRunner) testRoundTrip(today api.TodayResponse) {
	tr.printSection("Round Trips")

	var conv api.GregorianConversionResponse
	if _, err := getData(tr, "/api/v1/hijri/convert/"+today.Gregorian, tr.settings, &conv); err != nil {
		tr.recordError("Convert today", err.Error())
	} else if conv.Hijri != today.Hijri {
		// Near midnight the remote calendar may answer for an adjacent day.
		tr.recordError("Convert today", fmt.Sprintf("%s converts to %s, today is %s", today.Gregorian, conv.Display, today.Display))
	} else {
		tr.recordSuccess(fmt.Sprintf("convert/%s = %s", today.Gregorian, conv.Display))
	}

	q := hijriQuery(tr.settings, today.Hijri)

	var greg api.ConversionResponse
	if _, err := getData(tr, "/api/v1/hijri/gregorian", q, &greg); err != nil {
		tr.recordError("Gregorian for today", err.Error())
	} else if greg.Gregorian != today.Gregorian || greg.DaysUntil != 0 {
		tr.recordError("Gregorian for today", fmt.Sprintf("got %s (%d days), want %s (0 days)", greg.Gregorian, greg.DaysUntil, today.Gregorian))
	} else {
		tr.recordSuccess(fmt.Sprintf("gregorian?%s = %s", q.Encode(), greg.Gregorian))
	}

	var until api.DaysUntilResponse
	if _, err := getData(tr, "/api/v1/hijri/days-until", q, &until); err != nil {
		tr.recordError("Days until today", err.Error())
	} else if until.DaysUntil != 0 {
		tr.recordError("Days until today", fmt.Sprintf("got %d, want 0", until.DaysUntil))
	} else {
		tr.recordSuccess("days-until today = 0")
	}
}

func (tr *TestRunner) testObservances() {
	tr.printSection("Observances")

	var list []api.ObservanceResponse
	if _, err := getData(tr, "/api/v1/hijri/observances", tr.settings, &list); err != nil {
		tr.recordError("Observances", err.Error())
		return
	}
	if len(list) != len(hijri.Observances) {
		tr.recordError("Observances", fmt.Sprintf("got %d, want %d", len(list), len(hijri.Observances)))
		return
	}
	for i := 1; i < len(list); i++ {
		if hijri.Compare(list[i-1].Hijri, list[i].Hijri) > 0 {
			tr.recordError("Observances", fmt.Sprintf("%s listed before %s", list[i-1].Display, list[i].Display))
			return
		}
	}
	tr.recordSuccess(fmt.Sprintf("%d observances in Hijri order", len(list)))
	if tr.verbose {
		for _, o := range list {
			greg := "-"
			if o.Gregorian != nil {
				greg = *o.Gregorian
			}
			fmt.Printf("    %-22s %-22s %s\n", o.Name, o.Display, greg)
		}
		fmt.Println()
	}
}

func (tr *TestRunner) testRamadan() {
	tr.printSection("Ramadan")

	var st api.RamadanResponse
	if _, err := getData(tr, "/api/v1/hijri/ramadan", tr.settings, &st); err != nil {
		tr.recordError("Ramadan", err.Error())
		return
	}
	switch {
	case st.IsRamadan && st.IsEidPeriod:
		tr.recordError("Ramadan", "both Ramadan and Eid")
	case st.IsRamadan && (st.CurrentDay < 1 || st.CurrentDay > st.TotalDays):
		tr.recordError("Ramadan", fmt.Sprintf("day %d of %d", st.CurrentDay, st.TotalDays))
	case st.TotalDays != 29 && st.TotalDays != 30:
		tr.recordError("Ramadan", fmt.Sprintf("%d days long", st.TotalDays))
	case st.StartDate > st.EndDate:
		tr.recordError("Ramadan", fmt.Sprintf("starts %s after it ends %s", st.StartDate, st.EndDate))
	default:
		tr.recordSuccess(fmt.Sprintf("Ramadan %d: %s to %s, %d days left", st.Year, st.StartDate, st.EndDate, st.DaysLeft))
	}
}

func (tr *TestRunner) testEdgeCases() {
	tr.printSection("Edge Cases")

	cases := []struct {
		name   string
		path   string
		query  url.Values
		status int
	}{
		{"Month 13", "/api/v1/hijri/gregorian", url.Values{"day": {"1"}, "month": {"13"}, "year": {"1446"}}, http.StatusBadRequest},
		{"Day 31", "/api/v1/hijri/days-until", url.Values{"day": {"31"}, "month": {"1"}, "year": {"1446"}}, http.StatusBadRequest},
		{"Missing year", "/api/v1/hijri/gregorian", url.Values{"day": {"1"}, "month": {"9"}}, http.StatusBadRequest},
		{"February 30", "/api/v1/hijri/convert/2025-02-30", nil, http.StatusBadRequest},
		{"Latitude only", "/api/v1/hijri/today", url.Values{"lat": {"21.4"}}, http.StatusBadRequest},
		{"School 2", "/api/v1/hijri/today", url.Values{"school": {"2"}}, http.StatusBadRequest},
		{"Unknown route", "/api/v1/hijri/tomorrow", nil, http.StatusNotFound},
	}
	for _, c := range cases {
		status, _, err := tr.get(c.path, c.query)
		switch {
		case err != nil:
			tr.recordError(c.name, err.Error())
		case status != c.status:
			tr.recordError(c.name, fmt.Sprintf("HTTP %d, want %d", status, c.status))
		default:
			tr.recordSuccess(fmt.Sprintf("%s: HTTP %d", c.name, status))
		}
	}
}

func hijriQuery(settings url.Values, d hijri.Date) url.Values {
	q := url.Values{}
	for k, v := range settings {
		q[k] = v
	}
	q.Set("day", fmt.Sprint(d.Day))
	q.Set("month", fmt.Sprint(d.Month))
	q.Set("year", fmt.Sprint(d.Year))
	return q
}

func (tr *TestRunner) get(path string, query url.Values) (int, []byte, error) {
	u := tr.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := tr.client.Get(u)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// getData fetches path and decodes the envelope's data into out. A
// non-success envelope is an error.
func getData[T any](tr *TestRunner, path string, query url.Values, out *T) (int, error) {
	status, body, err := tr.get(path, query)
	if err != nil {
		return status, err
	}
	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return status, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		if env.Error != nil {
			return status, fmt.Errorf("HTTP %d: %s (%s)", status, env.Error.Message, env.Error.Code)
		}
		return status, fmt.Errorf("HTTP %d", status)
	}
	*out = env.Data
	return status, nil
}

func (tr *TestRunner) printSection(name string) {
	fmt.Printf("--- %s ---\n", name)
}

func (tr *TestRunner) recordSuccess(msg string) {
	tr.successCount++
	fmt.Printf("  ✓ %s\n", msg)
}

func (tr *TestRunner) recordError(context, msg string) {
	tr.errorCount++
	errStr := fmt.Sprintf("%s: %s", context, msg)
	tr.errors = append(tr.errors, errStr)
	fmt.Printf("  ✗ %s\n", errStr)
}

func (tr *TestRunner) printSummary() {
	fmt.Println()
	fmt.Println("==============================================")
	fmt.Println("Summary")
	fmt.Println("==============================================")
	fmt.Printf("  Passed: %d\n", tr.successCount)
	fmt.Printf("  Failed: %d\n", tr.errorCount)
	fmt.Println()

	if tr.errorCount > 0 {
		fmt.Println("Failures:")
		for _, err := range tr.errors {
			fmt.Printf("  • %s\n", err)
		}
		fmt.Println()
		fmt.Printf("Checks completed with %d failure(s)\n", tr.errorCount)
		return
	}
	fmt.Println("All checks passed! ✓")
}

func main() {
	var (
		baseURL  string
		lat, lng string
		method   string
		verbose  bool
	)
	rootCmd := &cobra.Command{
		Use:          "apitest",
		Short:        "Run consistency checks against a running API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			healthClient := &http.Client{Timeout: 2 * time.Second}
			resp, err := healthClient.Get(baseURL + "/health")
			if err != nil {
				return fmt.Errorf("cannot connect to %s, make sure the API server is running", baseURL)
			}
			resp.Body.Close()

			settings := url.Values{}
			if lat != "" || lng != "" {
				settings.Set("lat", lat)
				settings.Set("lng", lng)
			}
			if method != "" {
				settings.Set("method", method)
			}

			runner := NewTestRunner(baseURL, settings, verbose)
			runner.Run()
			if runner.errorCount > 0 {
				return fmt.Errorf("%d check(s) failed", runner.errorCount)
			}
			return nil
		},
	}
	rootCmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the API")
	rootCmd.Flags().StringVar(&lat, "lat", "", "latitude to query with")
	rootCmd.Flags().StringVar(&lng, "lng", "", "longitude to query with")
	rootCmd.Flags().StringVar(&method, "method", "", "calculation method")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every observance")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
