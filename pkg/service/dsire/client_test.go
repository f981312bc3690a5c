package dsire_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/gridmetrics-lab/derrev/pkg/service/dsire"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthChunks(t *testing.T) {
	t.Run("spans three months", func(t *testing.T) {
		chunks := dsire.MonthChunks(day(2024, 1, 15), day(2024, 3, 10))
		gt.Array(t, chunks).Length(3)
		gt.Equal(t, chunks[0].Start, day(2024, 1, 15))
		gt.Equal(t, chunks[0].End, day(2024, 1, 31))
		gt.Equal(t, chunks[1].Start, day(2024, 2, 1))
		gt.Equal(t, chunks[1].End, day(2024, 2, 29))
		gt.Equal(t, chunks[2].Start, day(2024, 3, 1))
		gt.Equal(t, chunks[2].End, day(2024, 3, 10))
	})

	t.Run("single month", func(t *testing.T) {
		chunks := dsire.MonthChunks(day(2024, 12, 1), day(2024, 12, 31))
		gt.Array(t, chunks).Length(1)
		gt.Equal(t, chunks[0].End, day(2024, 12, 31))
	})

	t.Run("reversed range is empty", func(t *testing.T) {
		gt.Array(t, dsire.MonthChunks(day(2024, 2, 1), day(2024, 1, 1))).Length(0)
	})
}

func TestGetProgramsByDate(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"programs":[{"ProgramId":101,"Name":"Solar Rebate"},{"ProgramId":102,"Name":"Storage Incentive"},"not-a-record"]}`))
	}))
	defer srv.Close()

	client := dsire.New(dsire.WithBaseURL(srv.URL))
	records := gt.R1(client.GetProgramsByDate(context.Background(), day(2024, 5, 1), day(2024, 5, 31))).NoError(t)

	gt.Equal(t, gotPath, "/getprogramsbydate/20240501/20240531/json")
	gt.Array(t, records).Length(2)
	gt.Equal(t, records[0].ProgramID(), "101")
}

func TestGetProgramsByDateBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"abc"}]`))
	}))
	defer srv.Close()

	client := dsire.New(dsire.WithBaseURL(srv.URL))
	records := gt.R1(client.GetProgramsByDate(context.Background(), day(2024, 5, 1), day(2024, 5, 31))).NoError(t)
	gt.Array(t, records).Length(1)
	gt.Equal(t, records[0].ProgramID(), "abc")
}

func TestGetProgramsByWindowChunks(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"p1"}]`))
	}))
	defer srv.Close()

	client := dsire.New(dsire.WithBaseURL(srv.URL))
	records := gt.R1(client.GetProgramsByWindow(context.Background(), day(2024, 1, 1), day(2024, 2, 29))).NoError(t)

	gt.Array(t, paths).Length(2)
	gt.Array(t, records).Length(2)
}

func TestGetProgramsByDateNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := dsire.New(dsire.WithBaseURL(srv.URL))
	_, err := client.GetProgramsByDate(context.Background(), day(2024, 5, 1), day(2024, 5, 31))
	gt.Error(t, err)
}
