package marketcache_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/service/marketcache"
	"github.com/gridmetrics-lab/derrev/pkg/service/pjm"
)

func TestMonthsInWindow(t *testing.T) {
	start := time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	months := marketcache.MonthsInWindow(start, end)
	gt.Equal(t, months, []marketcache.YearMonth{
		{Year: 2023, Month: 11},
		{Year: 2023, Month: 12},
		{Year: 2024, Month: 1},
	})
}

func TestRolling12FullMonths(t *testing.T) {
	asof := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
	start, end := marketcache.Rolling12FullMonths(asof)
	gt.True(t, start.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	gt.True(t, end.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	gt.Array(t, marketcache.MonthsInWindow(start, end)).Length(12)
}

// pjmStub serves one month of regulation data and counts calls per dataset
func pjmStub(t *testing.T, calls *atomic.Int64) *pjm.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "reg_zone_prelim_bill"):
			_, _ = w.Write([]byte(`{"items": [
				{"datetime_beginning_ept": "2023-07-01T00:00:00", "rmccp": 10, "rmpcp": 4},
				{"datetime_beginning_ept": "2023-07-01T01:00:00", "rmccp": 20, "rmpcp": 6}
			]}`))
		case strings.Contains(r.URL.Path, "reg_market_results"):
			_, _ = w.Write([]byte(`{"items": [
				{"datetime_beginning_ept": "2023-07-01T00:00:00", "rega_hourly": 100, "regd_hourly": 250},
				{"datetime_beginning_ept": "2023-07-01T01:00:00", "rega_hourly": 0, "regd_hourly": 50}
			]}`))
		default:
			_, _ = w.Write([]byte(`{"items": []}`))
		}
	}))
	t.Cleanup(srv.Close)

	return gt.R1(pjm.New("test-key", pjm.WithBaseURL(srv.URL))).NoError(t)
}

func TestFetchRegulationMonthMergesMileage(t *testing.T) {
	var calls atomic.Int64
	cache := gt.R1(marketcache.New(t.TempDir(), pjmStub(t, &calls))).NoError(t)

	hours := gt.R1(cache.FetchRegulationMonth(context.Background(), 2023, 7)).NoError(t)
	gt.Array(t, hours).Length(2)
	gt.Equal(t, hours[0].RMCCP, 10.0)
	gt.Equal(t, hours[0].MileageRatio, 2.5)
	// zero RegA means no usable ratio, defaults to 1.0
	gt.Equal(t, hours[1].MileageRatio, 1.0)
}

func TestLoadRegulationWindowUsesCache(t *testing.T) {
	var calls atomic.Int64
	cache := gt.R1(marketcache.New(t.TempDir(), pjmStub(t, &calls))).NoError(t)

	start := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)

	hours, reports, err := cache.LoadRegulationWindowReport(context.Background(), start, end, true)
	gt.NoError(t, err)
	gt.Array(t, hours).Length(2)
	gt.Array(t, reports).Length(1)
	gt.Equal(t, reports[0].Action, marketcache.MonthFetched)
	gt.Equal(t, reports[0].Rows, 2)

	fetchedCalls := calls.Load()
	gt.True(t, fetchedCalls > 0)

	// second load must come from disk, no extra API calls
	hours2, reports2, err := cache.LoadRegulationWindowReport(context.Background(), start, end, true)
	gt.NoError(t, err)
	gt.Array(t, hours2).Length(2)
	gt.Equal(t, reports2[0].Action, marketcache.MonthLoaded)
	gt.Equal(t, calls.Load(), fetchedCalls)
}

func TestLoadRegulationWindowMissingWithoutFetch(t *testing.T) {
	cache := gt.R1(marketcache.New(t.TempDir(), nil)).NoError(t)

	start := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)

	hours, reports, err := cache.LoadRegulationWindowReport(context.Background(), start, end, false)
	gt.NoError(t, err)
	gt.Array(t, hours).Length(0)
	gt.Array(t, reports).Length(2)
	gt.Equal(t, reports[0].Action, marketcache.MonthMissing)
}

func TestEnergyWindowRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [
			{"datetime_beginning_ept": "2023-07-01T00:00:00", "total_lmp_da": 25},
			{"datetime_beginning_ept": "2023-07-01T01:00:00", "total_lmp_da": 45.5}
		]}`))
	}))
	defer srv.Close()

	client := gt.R1(pjm.New("test-key", pjm.WithBaseURL(srv.URL))).NoError(t)
	cache := gt.R1(marketcache.New(t.TempDir(), client)).NoError(t)

	start := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)

	hours := gt.R1(cache.LoadEnergyWindow(
		context.Background(), types.MarketDayAhead, "PJM_RTO", 0, start, end, true)).NoError(t)
	gt.Array(t, hours).Length(2)
	gt.Equal(t, hours[1].Price, 45.5)
}

func TestPrefetchSkipsCachedMonths(t *testing.T) {
	var calls atomic.Int64
	cache := gt.R1(marketcache.New(t.TempDir(), pjmStub(t, &calls))).NoError(t)

	opts := marketcache.PrefetchOptions{
		Start:      time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC),
		Regulation: true,
	}

	fetched := gt.R1(cache.Prefetch(context.Background(), opts)).NoError(t)
	gt.Equal(t, fetched, 1)

	calls.Store(0)
	fetched = gt.R1(cache.Prefetch(context.Background(), opts)).NoError(t)
	gt.Equal(t, fetched, 0)
	gt.Equal(t, calls.Load(), int64(0))

	// force overwrites the month that was just skipped
	opts.Force = true
	fetched = gt.R1(cache.Prefetch(context.Background(), opts)).NoError(t)
	gt.Equal(t, fetched, 1)
	gt.True(t, calls.Load() > 0)
}
