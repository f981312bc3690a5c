package pjm_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/service/pjm"
)

func TestRegZonePrelimBill(t *testing.T) {
	var gotPath, gotRange, gotKey, gotRowCount string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("datetime_beginning_ept")
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotRowCount = r.URL.Query().Get("rowCount")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"datetime_beginning_ept": "2023-07-01T01:00:00", "rmccp": "12.5", "rmpcp": 3.25},
				{"datetime_beginning_ept": "2023-07-01T00:00:00", "rmccp": 10, "rmpcp": null},
				{"datetime_beginning_ept": "not a time", "rmccp": 99, "rmpcp": 99}
			]
		}`))
	}))
	defer srv.Close()

	client := gt.R1(pjm.New("test-key", pjm.WithBaseURL(srv.URL))).NoError(t)

	start := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	prices := gt.R1(client.RegZonePrelimBill(context.Background(), start, end)).NoError(t)

	gt.Equal(t, gotPath, "/reg_zone_prelim_bill")
	gt.Equal(t, gotRange, "2023-07-01 00:00:00 to 2023-07-31 23:59:59")
	gt.Equal(t, gotKey, "test-key")
	gt.Equal(t, gotRowCount, "50000")

	// unparseable timestamp dropped, rows sorted by hour
	gt.Array(t, prices).Length(2)
	gt.Equal(t, prices[0].RMCCP, 10.0)
	gt.Equal(t, prices[0].RMPCP, 0.0)
	gt.Equal(t, prices[1].RMCCP, 12.5)
	gt.Equal(t, prices[1].RMPCP, 3.25)
}

func TestRegMarketResultsColumnVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"datetime_beginning_ept": "2023-07-01T00:00:00", "reg_a_hourly": 100, "reg_d_hourly": 250},
				{"datetime_beginning_ept": "2023-07-01T01:00:00", "rega_mileage": "80", "regd_mileage": "120"},
				{"datetime_beginning_ept": "2023-07-01T02:00:00"}
			]
		}`))
	}))
	defer srv.Close()

	client := gt.R1(pjm.New("test-key", pjm.WithBaseURL(srv.URL))).NoError(t)

	start := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	results := gt.R1(client.RegMarketResults(context.Background(), start, end)).NoError(t)

	gt.Array(t, results).Length(3)
	gt.Equal(t, *results[0].RegAHourly, 100.0)
	gt.Equal(t, *results[0].RegDHourly, 250.0)
	gt.Equal(t, *results[1].RegAHourly, 80.0)
	gt.Equal(t, *results[1].RegDHourly, 120.0)
	gt.Value(t, results[2].RegAHourly).Nil()
	gt.Value(t, results[2].RegDHourly).Nil()
}

func TestHourlyLMPs(t *testing.T) {
	var gotPath, gotZone string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotZone = r.URL.Query().Get("zone")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"datetime_beginning_ept": "2023-07-01T00:00:00", "total_lmp_rt": 28.75},
				{"datetime_beginning_ept": "2023-07-01T01:00:00", "total_lmp_rt": null}
			]
		}`))
	}))
	defer srv.Close()

	client := gt.R1(pjm.New("test-key", pjm.WithBaseURL(srv.URL))).NoError(t)

	start := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	lmps := gt.R1(client.HourlyLMPs(context.Background(), types.MarketRealTime, "PJM_RTO", 0, start, end)).NoError(t)

	gt.Equal(t, gotPath, "/rt_hrl_lmps")
	gt.Equal(t, gotZone, "PJM_RTO")
	gt.Array(t, lmps).Length(1)
	gt.Equal(t, lmps[0].TotalLMP, 28.75)
}

func TestReserveMarketResults(t *testing.T) {
	var gotPath, gotArea, gotProduct string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotArea = r.URL.Query().Get("market_area")
		gotProduct = r.URL.Query().Get("product")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"datetime_beginning_ept": "2023-07-01T00:00:00", "clearing_price": 5.5, "product": "SYNCH_RESERVE"},
				{"datetime_beginning_ept": "2023-07-01T01:00:00", "mcp": "6.25", "product": "SYNCH_RESERVE"}
			]
		}`))
	}))
	defer srv.Close()

	client := gt.R1(pjm.New("test-key", pjm.WithBaseURL(srv.URL))).NoError(t)

	start := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	prices := gt.R1(client.ReserveMarketResults(
		context.Background(), types.MarketDayAhead, "PJM_RTO", "SYNCH_RESERVE", start, end)).NoError(t)

	gt.Equal(t, gotPath, "/da_reserve_market_results")
	gt.Equal(t, gotArea, "PJM_RTO")
	gt.Equal(t, gotProduct, "SYNCH_RESERVE")
	gt.Array(t, prices).Length(2)
	gt.Equal(t, prices[0].ClearingPrice, 5.5)
	gt.Equal(t, prices[1].ClearingPrice, 6.25)
}

func TestNewRequiresKey(t *testing.T) {
	t.Setenv("PJM_API_PRIMARY_KEY", "")
	t.Setenv("PJM_API_KEY", "")
	t.Setenv("PJM_PRIMARY_KEY", "")
	t.Setenv("PJM_KEY", "")

	_, err := pjm.New("")
	gt.Error(t, err)
}

func TestNewResolvesKeyFromEnv(t *testing.T) {
	t.Setenv("PJM_API_PRIMARY_KEY", "")
	t.Setenv("PJM_API_KEY", "env-key")

	_, err := pjm.New("")
	gt.NoError(t, err)
}

func TestNon200Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := gt.R1(pjm.New("test-key", pjm.WithBaseURL(srv.URL))).NoError(t)

	start := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.RegZonePrelimBill(context.Background(), start, end)
	gt.Error(t, err)
}
