package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	server "github.com/gridmetrics-lab/derrev/pkg/controller/http"
	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/repository/memory"
	"github.com/gridmetrics-lab/derrev/pkg/usecase"
	"github.com/gridmetrics-lab/derrev/pkg/valuation"
)

func newTestServer() *server.Server {
	return server.New(usecase.New(memory.New()))
}

func sampleProjectJSON(name string) []byte {
	p := &model.Project{
		Identity: model.Identity{
			Name:         name,
			CustomerType: "C&I",
			SiteAddress:  "1 Dock Rd, Camden, NJ",
		},
		Load: model.LoadMeta{
			PerMeter:        false,
			IntervalMinutes: 30,
			Start:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:             time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC),
		},
	}
	data, _ := json.Marshal(p)
	return data
}

func createProject(t *testing.T, srv *server.Server, name string) *model.Project {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/projects", bytes.NewReader(sampleProjectJSON(name)))
	srv.ServeHTTP(rec, req)
	gt.Equal(t, rec.Code, http.StatusCreated)

	var created model.Project
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	gt.String(t, string(created.ID)).NotEqual("")
	return &created
}

func TestHealth(t *testing.T) {
	srv := newTestServer()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	gt.Equal(t, rec.Code, http.StatusOK)
	gt.True(t, strings.Contains(rec.Body.String(), "ok"))
}

func TestProjectEndpoints(t *testing.T) {
	srv := newTestServer()
	created := createProject(t, srv, "Dockside BESS")

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/"+string(created.ID), nil))
		gt.Equal(t, rec.Code, http.StatusOK)

		var got model.Project
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		gt.Equal(t, got.Identity.Name, "Dockside BESS")
	})

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))
		gt.Equal(t, rec.Code, http.StatusOK)
		gt.True(t, strings.Contains(rec.Body.String(), "Dockside BESS"))
	})

	t.Run("duplicate slug conflicts", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/projects", bytes.NewReader(sampleProjectJSON("Dockside  BESS")))
		srv.ServeHTTP(rec, req)
		gt.Equal(t, rec.Code, http.StatusConflict)
	})

	t.Run("update", func(t *testing.T) {
		created.Identity.Notes = "lender review"
		data, _ := json.Marshal(created)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/projects/"+string(created.ID), bytes.NewReader(data))
		srv.ServeHTTP(rec, req)
		gt.Equal(t, rec.Code, http.StatusOK)
		gt.True(t, strings.Contains(rec.Body.String(), "lender review"))
	})

	t.Run("invalid body rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader("{not json"))
		srv.ServeHTTP(rec, req)
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("validation failure rejected", func(t *testing.T) {
		p := &model.Project{Load: model.LoadMeta{IntervalMinutes: 7}}
		data, _ := json.Marshal(p)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/projects", bytes.NewReader(data))
		srv.ServeHTTP(rec, req)
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("delete then 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/projects/"+string(created.ID), nil))
		gt.Equal(t, rec.Code, http.StatusNoContent)

		rec = httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/"+string(created.ID), nil))
		gt.Equal(t, rec.Code, http.StatusNotFound)
	})
}

func TestLoadEndpoints(t *testing.T) {
	srv := newTestServer()
	created := createProject(t, srv, "Load Roundtrip")

	csvBody := "interval_start,aggregate_kw\n2024-01-01T00:00:00Z,120.5\n2024-01-01T00:30:00Z,118.0\n"

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/projects/"+string(created.ID)+"/load", strings.NewReader(csvBody))
	srv.ServeHTTP(rec, req)
	gt.Equal(t, rec.Code, http.StatusOK)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/"+string(created.ID)+"/load", nil))
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, rec.Header().Get("Content-Type"), "text/csv")
	gt.True(t, strings.Contains(rec.Body.String(), "120.5"))
}

func TestUnavailableServiceMapsTo503(t *testing.T) {
	srv := newTestServer()
	created := createProject(t, srv, "No Services")

	for _, path := range []string{
		"/api/projects/" + string(created.ID) + "/location",
		"/api/projects/" + string(created.ID) + "/programs",
		"/api/projects/" + string(created.ID) + "/demand-response",
	} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		gt.Equal(t, rec.Code, http.StatusServiceUnavailable)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+string(created.ID)+"/merchant/regulation", strings.NewReader("{}"))
	srv.ServeHTTP(rec, req)
	gt.Equal(t, rec.Code, http.StatusServiceUnavailable)
}

func TestUnderwritingEndpoint(t *testing.T) {
	srv := newTestServer()
	created := createProject(t, srv, "Underwrite Me")

	body := usecase.UnderwritingRequest{
		Streams: []model.RevenueStream{
			{Label: "Regulation", Class: types.RevenueMerchant, AnnualGrossUSD: 150000},
		},
	}
	data, _ := json.Marshal(body)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+string(created.ID)+"/underwriting", bytes.NewReader(data))
	srv.ServeHTTP(rec, req)
	gt.Equal(t, rec.Code, http.StatusOK)

	var result model.Underwriting
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	gt.Equal(t, result.AnnualBankableUSD, 75000.0)
	gt.True(t, result.MaxSupportableDebt > 0)

	t.Run("empty request has nothing to underwrite", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/projects/"+string(created.ID)+"/underwriting", strings.NewReader("{}"))
		srv.ServeHTTP(rec, req)
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})
}

func TestPolicyEndpoint(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/policy", nil))
	gt.Equal(t, rec.Code, http.StatusOK)

	var policy valuation.Policy
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &policy))
	gt.Equal(t, policy.TargetDSCR, 1.30)
	gt.Array(t, policy.Haircuts).Length(4)
}

func TestReportEndpoints(t *testing.T) {
	srv := newTestServer()
	created := createProject(t, srv, "Reportable")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/"+string(created.ID)+"/report", nil))
	gt.Equal(t, rec.Code, http.StatusOK)

	var report model.Report
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	gt.Equal(t, report.Project.ID, created.ID)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/"+string(created.ID)+"/report.csv", nil))
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, rec.Header().Get("Content-Type"), "text/csv")
	gt.True(t, strings.HasPrefix(rec.Body.String(), "year,gross_usd"))
}
