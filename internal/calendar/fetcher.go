package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cloudeng.io/errors"
	"cloudeng.io/sync/errgroup"
)

// Default window and timeout values.
const (
	DefaultMonthsBack    = 12
	DefaultMonthsForward = 12
	DefaultFetchTimeout  = 15 * time.Second
)

// monthCall is a pending or completed month fetch. done is closed once
// entries and err are set.
type monthCall struct {
	done    chan struct{}
	entries []Entry
	err     error
}

// MonthCache holds month fetches for the life of the process. Concurrent
// requests for the same key share one in-flight fetch. A failed fetch is
// removed so that a later request retries it.
type MonthCache struct {
	mu    sync.Mutex
	calls map[MonthKey]*monthCall
}

// NewMonthCache returns an empty cache.
func NewMonthCache() *MonthCache {
	return &MonthCache{calls: make(map[MonthKey]*monthCall)}
}

// Len returns the number of cached or in-flight months.
func (c *MonthCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// do returns the result for key, starting fn if no fetch for key is cached or
// in flight. fn runs on its own goroutine and is not cancelled when a waiting
// caller's ctx is.
func (c *MonthCache) do(ctx context.Context, key MonthKey, fn func() ([]Entry, error)) ([]Entry, error) {
	c.mu.Lock()
	call, ok := c.calls[key]
	if !ok {
		call = &monthCall{done: make(chan struct{})}
		c.calls[key] = call
		go c.run(key, call, fn)
	}
	c.mu.Unlock()

	select {
	case <-call.done:
		return call.entries, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *MonthCache) run(key MonthKey, call *monthCall, fn func() ([]Entry, error)) {
	call.entries, call.err = fn()
	if call.err != nil {
		c.mu.Lock()
		if c.calls[key] == call {
			delete(c.calls, key)
		}
		c.mu.Unlock()
	}
	close(call.done)
}

// Store persists fetched months across restarts. A Store error is treated as
// a miss.
type Store interface {
	LoadMonth(ctx context.Context, key MonthKey) ([]Entry, bool, error)
	SaveMonth(ctx context.Context, key MonthKey, entries []Entry) error
}

// Month origins reported to a FetchObserver.
const (
	OriginStore  = "store"
	OriginRemote = "remote"
)

// FetchObserver is told about every month load that reached the store or the
// remote source. Cache hits are not reported.
type FetchObserver interface {
	ObserveMonth(origin string, elapsed time.Duration, err error)
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Timeout  time.Duration // per month; DefaultFetchTimeout if zero
	Store    Store         // optional
	Observer FetchObserver // optional
}

// Fetcher retrieves and caches windows of the remote calendar.
type Fetcher struct {
	source   MonthSource
	cache    *MonthCache
	store    Store
	observer FetchObserver
	timeout  time.Duration
	logger   *slog.Logger
}

// NewFetcher returns a Fetcher that reads through cache to source.
func NewFetcher(source MonthSource, cache *MonthCache, cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewMonthCache()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		source:   source,
		cache:    cache,
		store:    cfg.Store,
		observer: cfg.Observer,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// Cache returns the fetcher's month cache.
func (f *Fetcher) Cache() *MonthCache {
	return f.cache
}

// FetchMonth returns the entries for one month, from the cache, the store or
// the remote source in that order.
func (f *Fetcher) FetchMonth(ctx context.Context, req MonthRequest) ([]Entry, error) {
	key := req.Key()
	return f.cache.do(ctx, key, func() ([]Entry, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()
		return f.load(fctx, key, req)
	})
}

func (f *Fetcher) load(ctx context.Context, key MonthKey, req MonthRequest) ([]Entry, error) {
	if f.store != nil {
		start := time.Now()
		entries, ok, err := f.store.LoadMonth(ctx, key)
		if ok || err != nil {
			f.observe(OriginStore, start, err)
		}
		switch {
		case err != nil:
			f.logger.Warn("month store read failed",
				slog.String("month", key.String()),
				slog.Any("error", err),
			)
		case ok:
			return entries, nil
		}
	}

	start := time.Now()
	entries, err := f.source.FetchMonth(ctx, req)
	f.observe(OriginRemote, start, err)
	if err != nil {
		return nil, fmt.Errorf("fetch month %s: %w", key, err)
	}

	if f.store != nil {
		if err := f.store.SaveMonth(ctx, key, entries); err != nil {
			f.logger.Warn("month store write failed",
				slog.String("month", key.String()),
				slog.Any("error", err),
			)
		}
	}
	return entries, nil
}

func (f *Fetcher) observe(origin string, start time.Time, err error) {
	if f.observer != nil {
		f.observer.ObserveMonth(origin, time.Since(start), err)
	}
}

// WindowRequest asks for the months around Center.
type WindowRequest struct {
	Location      Location
	Method        int
	School        int
	Center        time.Time
	MonthsBack    int
	MonthsForward int
}

// ErrPartialWindow is returned by FetchWindow, along with the entries that
// were fetched, when some but not all months of the window failed.
var ErrPartialWindow = errors.New("calendar window is partial")

// FetchWindow fetches MonthsBack+MonthsForward+1 months concurrently and
// returns their entries merged by Gregorian key and sorted by date. Months
// that fail are logged and left out, and the entries are returned with
// ErrPartialWindow. When every month fails no entries are returned.
func (f *Fetcher) FetchWindow(ctx context.Context, req WindowRequest) ([]Entry, error) {
	first := time.Date(req.Center.Year(), req.Center.Month()-time.Month(req.MonthsBack), 1, 12, 0, 0, 0, time.UTC)
	total := req.MonthsBack + req.MonthsForward + 1

	months := make([][]Entry, total)
	var failed atomic.Int32
	var g errgroup.T
	for i := range total {
		m := first.AddDate(0, i, 0)
		mreq := MonthRequest{
			Location: req.Location,
			Method:   req.Method,
			School:   req.School,
			Year:     m.Year(),
			Month:    int(m.Month()),
		}
		g.Go(func() error {
			entries, err := f.FetchMonth(ctx, mreq)
			if err != nil {
				failed.Add(1)
				f.logger.Warn("calendar month unavailable",
					slog.String("month", mreq.Key().String()),
					slog.Any("error", err),
				)
				return err
			}
			months[i] = entries
			return nil
		})
	}
	err := g.Wait()

	if int(failed.Load()) == total {
		err = errors.Squash(err, context.DeadlineExceeded, context.Canceled)
		return nil, fmt.Errorf("calendar window unavailable: %w", err)
	}
	partial := err != nil
	if partial {
		f.logger.Info("calendar window is partial",
			slog.Int("months", total),
			slog.Int("failed", int(failed.Load())),
		)
	}

	merged := make(map[string]Entry)
	for _, entries := range months {
		for _, e := range entries {
			merged[e.GregorianKey] = e
		}
	}
	out := make([]Entry, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int {
		return strings.Compare(a.GregorianKey, b.GregorianKey)
	})
	if partial {
		return out, ErrPartialWindow
	}
	return out, nil
}
