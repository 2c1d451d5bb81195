package calendar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloudeng.io/sync/synctestutil"
)

func marchRequest() MonthRequest {
	return MonthRequest{Location: *mecca, Method: 4, Year: 2025, Month: 3}
}

func TestFetcher_CoalescesConcurrentRequests(t *testing.T) {
	defer synctestutil.AssertNoGoroutinesRacy(t, 2*time.Second)()

	src := &fakeSource{
		gateLat: mecca.Latitude,
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
	f := NewFetcher(src, nil, FetcherConfig{}, quietLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]Entry, 5)
	errs := make([]error, 5)
	for i := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.FetchMonth(ctx, marchRequest())
		}()
	}
	<-src.started
	close(src.gate)
	wg.Wait()

	if got := src.calls.Load(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
	for i := range 5 {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if len(results[i]) != 31 {
			t.Errorf("caller %d got %d entries, want 31", i, len(results[i]))
		}
	}
}

func TestFetcher_FailureIsNotCached(t *testing.T) {
	var mu sync.Mutex
	failing := true
	src := &fakeSource{fail: func(MonthRequest) bool {
		mu.Lock()
		defer mu.Unlock()
		return failing
	}}
	f := NewFetcher(src, nil, FetcherConfig{}, quietLogger())
	ctx := context.Background()

	if _, err := f.FetchMonth(ctx, marchRequest()); !errors.Is(err, errOutage) {
		t.Fatalf("err = %v, want %v", err, errOutage)
	}
	if n := f.Cache().Len(); n != 0 {
		t.Errorf("cache holds %d months after failure, want 0", n)
	}

	mu.Lock()
	failing = false
	mu.Unlock()

	entries, err := f.FetchMonth(ctx, marchRequest())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(entries) != 31 {
		t.Errorf("got %d entries, want 31", len(entries))
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("source calls = %d, want 2", got)
	}
	if n := f.Cache().Len(); n != 1 {
		t.Errorf("cache holds %d months, want 1", n)
	}
}

func TestFetcher_CallerCancelDoesNotCancelFetch(t *testing.T) {
	defer synctestutil.AssertNoGoroutinesRacy(t, 2*time.Second)()

	src := &fakeSource{
		gateLat: mecca.Latitude,
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
	f := NewFetcher(src, nil, FetcherConfig{}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.FetchMonth(ctx, marchRequest())
		done <- err
	}()
	<-src.started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	close(src.gate)
	entries, err := f.FetchMonth(context.Background(), marchRequest())
	if err != nil {
		t.Fatalf("FetchMonth: %v", err)
	}
	if len(entries) != 31 {
		t.Errorf("got %d entries, want 31", len(entries))
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
}

func windowRequest() WindowRequest {
	return WindowRequest{
		Location:      *mecca,
		Method:        4,
		Center:        time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC),
		MonthsBack:    2,
		MonthsForward: 2,
	}
}

func TestFetcher_FetchWindow(t *testing.T) {
	defer synctestutil.AssertNoGoroutinesRacy(t, 2*time.Second)()

	src := &fakeSource{}
	f := NewFetcher(src, nil, FetcherConfig{}, quietLogger())
	ctx := context.Background()

	entries, err := f.FetchWindow(ctx, windowRequest())
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	// January through May 2025.
	if want := 31 + 28 + 31 + 30 + 31; len(entries) != want {
		t.Errorf("got %d entries, want %d", len(entries), want)
	}
	if got := src.calls.Load(); got != 5 {
		t.Errorf("source calls = %d, want 5", got)
	}
	if entries[0].GregorianKey != "2025-01-01" || entries[len(entries)-1].GregorianKey != "2025-05-31" {
		t.Errorf("window spans %s..%s, want 2025-01-01..2025-05-31",
			entries[0].GregorianKey, entries[len(entries)-1].GregorianKey)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].GregorianKey >= entries[i].GregorianKey {
			t.Fatalf("entries not sorted at %d: %s >= %s", i, entries[i-1].GregorianKey, entries[i].GregorianKey)
		}
	}

	again, err := f.FetchWindow(ctx, windowRequest())
	if err != nil {
		t.Fatalf("second FetchWindow: %v", err)
	}
	if got := src.calls.Load(); got != 5 {
		t.Errorf("source calls after second window = %d, want 5", got)
	}
	if len(again) != len(entries) {
		t.Errorf("second window has %d entries, want %d", len(again), len(entries))
	}
}

func TestFetcher_FetchWindow_YearBoundary(t *testing.T) {
	f := NewFetcher(&fakeSource{}, nil, FetcherConfig{}, quietLogger())
	req := windowRequest()
	req.Center = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	req.MonthsBack, req.MonthsForward = 1, 0

	entries, err := f.FetchWindow(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if entries[0].GregorianKey != "2024-12-01" || entries[len(entries)-1].GregorianKey != "2025-01-31" {
		t.Errorf("window spans %s..%s, want 2024-12-01..2025-01-31",
			entries[0].GregorianKey, entries[len(entries)-1].GregorianKey)
	}
}

func TestFetcher_FetchWindow_PartialFailure(t *testing.T) {
	src := &fakeSource{fail: func(r MonthRequest) bool { return r.Month == 4 }}
	f := NewFetcher(src, nil, FetcherConfig{}, quietLogger())

	entries, err := f.FetchWindow(context.Background(), windowRequest())
	if !errors.Is(err, ErrPartialWindow) {
		t.Fatalf("err = %v, want %v", err, ErrPartialWindow)
	}
	if want := 31 + 28 + 31 + 31; len(entries) != want {
		t.Errorf("got %d entries, want %d", len(entries), want)
	}
	for _, e := range entries {
		if e.GregorianDate.Month() == time.April {
			t.Fatalf("entry from failed month: %s", e.GregorianKey)
		}
	}
}

func TestFetcher_FetchWindow_TotalFailure(t *testing.T) {
	src := &fakeSource{fail: func(MonthRequest) bool { return true }}
	f := NewFetcher(src, nil, FetcherConfig{}, quietLogger())

	entries, err := f.FetchWindow(context.Background(), windowRequest())
	if err == nil {
		t.Fatal("expected error when every month fails")
	}
	if !errors.Is(err, errOutage) {
		t.Errorf("err = %v, want it to wrap %v", err, errOutage)
	}
	if errors.Is(err, ErrPartialWindow) {
		t.Errorf("err = %v, want a total failure", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
	if n := f.Cache().Len(); n != 0 {
		t.Errorf("cache holds %d months, want 0", n)
	}
}

func TestFetcher_FetchWindow_OverlappingMonths(t *testing.T) {
	// Each month also reports the first day of the next month.
	src := &overlapSource{}
	f := NewFetcher(src, nil, FetcherConfig{}, quietLogger())

	entries, err := f.FetchWindow(context.Background(), windowRequest())
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	// January through 1 June 2025.
	if want := 31 + 28 + 31 + 30 + 31 + 1; len(entries) != want {
		t.Errorf("got %d entries, want %d", len(entries), want)
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.GregorianKey] {
			t.Fatalf("duplicate key %s", e.GregorianKey)
		}
		seen[e.GregorianKey] = true
	}
}

type overlapSource struct{}

func (overlapSource) FetchMonth(ctx context.Context, req MonthRequest) ([]Entry, error) {
	entries := monthEntries(req.Year, time.Month(req.Month), 0)
	next := monthEntries(req.Year, time.Month(req.Month)+1, 0)
	return append(entries, next[0]), nil
}

func TestFetcher_UsesStore(t *testing.T) {
	store := newMemStore()
	src := &fakeSource{}
	f := NewFetcher(src, nil, FetcherConfig{Store: store}, quietLogger())
	ctx := context.Background()

	if _, err := f.FetchMonth(ctx, marchRequest()); err != nil {
		t.Fatalf("FetchMonth: %v", err)
	}
	if store.saves != 1 {
		t.Errorf("store saves = %d, want 1", store.saves)
	}

	// A fresh process with an unreachable remote reads the stored month.
	down := &fakeSource{fail: func(MonthRequest) bool { return true }}
	f2 := NewFetcher(down, NewMonthCache(), FetcherConfig{Store: store}, quietLogger())
	entries, err := f2.FetchMonth(ctx, marchRequest())
	if err != nil {
		t.Fatalf("FetchMonth from store: %v", err)
	}
	if len(entries) != 31 {
		t.Errorf("got %d entries, want 31", len(entries))
	}
	if got := down.calls.Load(); got != 0 {
		t.Errorf("source calls = %d, want 0", got)
	}
}

func TestFetcher_DoesNotStoreFailures(t *testing.T) {
	store := newMemStore()
	src := &fakeSource{fail: func(MonthRequest) bool { return true }}
	f := NewFetcher(src, nil, FetcherConfig{Store: store}, quietLogger())

	if _, err := f.FetchMonth(context.Background(), marchRequest()); err == nil {
		t.Fatal("expected error")
	}
	if store.saves != 0 {
		t.Errorf("store saves = %d, want 0", store.saves)
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	origins []string
	errs    int
}

func (o *recordingObserver) ObserveMonth(origin string, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.origins = append(o.origins, origin)
	if err != nil {
		o.errs++
	}
}

func TestFetcher_ReportsOrigins(t *testing.T) {
	store := newMemStore()
	obs := &recordingObserver{}
	src := &fakeSource{}
	ctx := context.Background()

	f := NewFetcher(src, nil, FetcherConfig{Store: store, Observer: obs}, quietLogger())
	if _, err := f.FetchMonth(ctx, marchRequest()); err != nil {
		t.Fatalf("FetchMonth: %v", err)
	}
	// Served from the cache: not reported.
	if _, err := f.FetchMonth(ctx, marchRequest()); err != nil {
		t.Fatalf("FetchMonth: %v", err)
	}

	f2 := NewFetcher(src, nil, FetcherConfig{Store: store, Observer: obs}, quietLogger())
	if _, err := f2.FetchMonth(ctx, marchRequest()); err != nil {
		t.Fatalf("FetchMonth: %v", err)
	}

	down := &fakeSource{fail: func(MonthRequest) bool { return true }}
	f3 := NewFetcher(down, nil, FetcherConfig{Observer: obs}, quietLogger())
	if _, err := f3.FetchMonth(ctx, marchRequest()); err == nil {
		t.Fatal("expected error")
	}

	want := []string{OriginRemote, OriginStore, OriginRemote}
	if len(obs.origins) != len(want) {
		t.Fatalf("origins = %v, want %v", obs.origins, want)
	}
	for i := range want {
		if obs.origins[i] != want[i] {
			t.Errorf("origins[%d] = %q, want %q", i, obs.origins[i], want[i])
		}
	}
	if obs.errs != 1 {
		t.Errorf("errors = %d, want 1", obs.errs)
	}
}
