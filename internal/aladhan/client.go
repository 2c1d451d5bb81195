// Package aladhan is a client for the Al Adhan prayer times API, used as the
// authoritative source of Hijri/Gregorian day correspondences.
package aladhan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloudeng.io/net/ratecontrol"
)

// DefaultBaseURL is the public Al Adhan v1 endpoint.
const DefaultBaseURL = "https://api.aladhan.com/v1"

// DefaultTimeout bounds every request.
const DefaultTimeout = 15 * time.Second

// ErrInvalidResponse is returned when the service answers 200 but the body is
// not a successful calendar or timings payload.
var ErrInvalidResponse = errors.New("invalid response from calendar API")

// StatusError is returned for a non-200 HTTP status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("calendar API %s: status %d", e.URL, e.StatusCode)
}

// Query holds the location and calculation parameters sent with every request.
type Query struct {
	Latitude  float64
	Longitude float64
	Method    int
	School    int
}

func (q Query) values() url.Values {
	v := url.Values{}
	v.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	v.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	v.Set("method", strconv.Itoa(q.Method))
	v.Set("school", strconv.Itoa(q.School))
	return v
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int           // 0 disables pacing
	BackoffStart      time.Duration // 0 disables retries on 429/5xx
	BackoffSteps      int
	HTTPClient        *http.Client
}

// Client issues requests to the Al Adhan API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	rate       *ratecontrol.Controller
	retry      bool
	logger     *slog.Logger
}

// NewClient returns a Client configured by opts.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	var rateOpts []ratecontrol.Option
	if opts.RequestsPerMinute > 0 {
		rateOpts = append(rateOpts, ratecontrol.WithRequestsPerTick(time.Minute, opts.RequestsPerMinute))
	}
	retry := opts.BackoffStart > 0 && opts.BackoffSteps > 0
	if retry {
		rateOpts = append(rateOpts, ratecontrol.WithExponentialBackoff(opts.BackoffStart, opts.BackoffSteps))
	}

	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: hc,
		rate:       ratecontrol.New(rateOpts...),
		retry:      retry,
		logger:     logger,
	}
}

// Calendar returns one entry per day of the Gregorian month.
func (c *Client) Calendar(ctx context.Context, q Query, year, month int) ([]Data, error) {
	var resp CalendarResponse
	path := fmt.Sprintf("/calendar/%d/%d", year, month)
	if err := c.get(ctx, path, q.values(), &resp); err != nil {
		return nil, err
	}
	if resp.Code != http.StatusOK || resp.Data == nil {
		return nil, fmt.Errorf("calendar %d-%02d: %w", year, month, ErrInvalidResponse)
	}
	return resp.Data, nil
}

// Timings returns the prayer schedule, including the Hijri date, for the
// given Gregorian day.
func (c *Client) Timings(ctx context.Context, q Query, date time.Time) (*Data, error) {
	var resp Response
	path := "/timings/" + date.Format("02-01-2006")
	if err := c.get(ctx, path, q.values(), &resp); err != nil {
		return nil, err
	}
	if resp.Code != http.StatusOK {
		return nil, fmt.Errorf("timings %s: %w", date.Format("2006-01-02"), ErrInvalidResponse)
	}
	return &resp.Data, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path + "?" + params.Encode()
	backoff := c.rate.Backoff()

	for {
		if err := c.rate.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("get %s: %w", path, err)
		}

		if resp.StatusCode == http.StatusOK {
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %v: %w", path, err, ErrInvalidResponse)
			}
			return nil
		}
		resp.Body.Close()

		statusErr := &StatusError{StatusCode: resp.StatusCode, URL: path}
		if !c.retry || !retryable(resp.StatusCode) {
			return statusErr
		}
		done, err := backoff.Wait(ctx, resp)
		if err != nil {
			return err
		}
		if done {
			return statusErr
		}
		c.logger.Debug("retrying calendar API request",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Int("retries", backoff.Retries()),
		)
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
