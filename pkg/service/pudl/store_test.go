package pudl_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/parquet-go/parquet-go"

	"github.com/gridmetrics-lab/derrev/pkg/service/pudl"
)

func TestEnsureTables(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		_, _ = w.Write([]byte("parquet-bytes"))
	}))
	defer srv.Close()

	store := pudl.New(t.TempDir(), pudl.WithBaseURL(srv.URL))

	reports := store.EnsureTables(context.Background(), false, []string{pudl.TableDemandResponse})
	gt.Array(t, reports).Length(1)
	gt.Equal(t, reports[0].Status, "downloaded")
	gt.Equal(t, reports[0].Bytes, int64(len("parquet-bytes")))
	gt.Array(t, requests).Length(1)
	gt.Equal(t, requests[0], "/"+pudl.TableDemandResponse+".parquet")

	// second run finds the file and skips the download
	reports = store.EnsureTables(context.Background(), false, []string{pudl.TableDemandResponse})
	gt.Equal(t, reports[0].Status, "exists")
	gt.Array(t, requests).Length(1)

	gt.True(t, store.Available(pudl.TableDemandResponse))
	gt.False(t, store.Available())
}

func TestEnsureTablesReportsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such key", http.StatusNotFound)
	}))
	defer srv.Close()

	store := pudl.New(t.TempDir(), pudl.WithBaseURL(srv.URL))

	reports := store.EnsureTables(context.Background(), false, []string{pudl.TableUtilityRTO})
	gt.Array(t, reports).Length(1)
	gt.True(t, len(reports[0].Status) > len("error"))
}

func TestReadDemandResponse(t *testing.T) {
	dir := t.TempDir()
	store := pudl.New(dir)

	mw := 12.5
	usd := 450000.0
	rows := []pudl.DemandResponseRow{
		{
			UtilityIDEIA:          10000,
			UtilityNameEIA:        "Jersey Central Power & Lt Co",
			State:                 "NJ",
			CustomerClass:         "Commercial",
			ReportDate:            time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			ActualPeakReductionMW: &mw,
			ExpendituresUSD:       &usd,
		},
	}
	path := filepath.Join(dir, pudl.TableDemandResponse+".parquet")
	gt.NoError(t, parquet.WriteFile(path, rows))

	got := gt.R1(store.ReadDemandResponse()).NoError(t)
	gt.Array(t, got).Length(1)
	gt.Equal(t, got[0].UtilityIDEIA, int64(10000))
	gt.Equal(t, *got[0].ActualPeakReductionMW, 12.5)
	gt.Equal(t, got[0].Class(), "Commercial")
}

func TestReadMissingTable(t *testing.T) {
	store := pudl.New(t.TempDir())
	_, err := store.ReadUtilityMisc()
	gt.Error(t, err).Is(pudl.ErrTableMissing)
}
