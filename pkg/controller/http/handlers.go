package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/interfaces"
	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/usecase"
	"github.com/gridmetrics-lab/derrev/pkg/utils/errutil"
	"github.com/gridmetrics-lab/derrev/pkg/utils/safe"
)

// statusFor maps domain errors onto HTTP status codes. Anything unmapped is
// an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrSlugTaken):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrLocatorUnavailable),
		errors.Is(err, usecase.ErrMarketCacheUnavailable),
		errors.Is(err, usecase.ErrCatalogUnavailable),
		errors.Is(err, usecase.ErrPUDLUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, usecase.ErrNoSiteAddress),
		errors.Is(err, usecase.ErrISOUnknown),
		errors.Is(err, usecase.ErrNoRevenueStreams),
		errors.Is(err, model.ErrMissingProjectName),
		errors.Is(err, model.ErrInvalidInterval),
		errors.Is(err, model.ErrMissingMeterIDs),
		errors.Is(err, model.ErrInvalidCoverage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// header already committed, so a write failure can only be logged
	safe.Write(r.Context(), w, data)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(err, "failed to decode request body")
	}
	return nil
}

func projectID(r *http.Request) types.ProjectID {
	return types.ProjectID(chi.URLParam(r, "id"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var project model.Project
	if err := decodeJSON(r, &project); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	created, err := s.uc.CreateProject(r.Context(), &project)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	// slug lookup doubles as an existence probe for the creation form
	if slug := r.URL.Query().Get("slug"); slug != "" {
		project, err := s.uc.GetProjectBySlug(r.Context(), slug)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, r, http.StatusOK, project)
		return
	}

	summaries, err := s.uc.ListProjects(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"projects": summaries})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.uc.GetProject(r.Context(), projectID(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var project model.Project
	if err := decodeJSON(r, &project); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}
	project.ID = projectID(r)

	updated, err := s.uc.UpdateProject(r.Context(), &project)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.DeleteProject(r.Context(), projectID(r)); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutLoad(w http.ResponseWriter, r *http.Request) {
	series, err := model.ReadLoadCSV(r.Body)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	if err := s.uc.PutLoad(r.Context(), projectID(r), series); err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"rows": len(series.Rows), "columns": series.Columns})
}

func (s *Server) handleGetLoad(w http.ResponseWriter, r *http.Request) {
	series, err := s.uc.GetLoad(r.Context(), projectID(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	if err := series.WriteCSV(w); err != nil {
		errutil.Handle(r.Context(), err, "failed to stream load CSV")
	}
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	year := 0
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid year parameter"), http.StatusBadRequest)
			return
		}
		year = parsed
	}

	location, err := s.uc.InferLocation(r.Context(), projectID(r), year)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	// trace rows are for QA display and stay opt-in
	if r.URL.Query().Get("trace") == "" {
		location.Trace = nil
	}
	respondJSON(w, r, http.StatusOK, location)
}

func programFilterFromQuery(r *http.Request) (usecase.ProgramFilter, error) {
	q := r.URL.Query()
	filter := usecase.ProgramFilter{
		State:      q.Get("state"),
		Type:       q.Get("type"),
		Category:   q.Get("category"),
		Technology: q.Get("technology"),
		Query:      q.Get("q"),
	}
	if v := q.Get("updated_since_years"); v != "" {
		years, err := strconv.Atoi(v)
		if err != nil {
			return filter, goerr.Wrap(err, "invalid updated_since_years parameter")
		}
		filter.UpdatedSinceYears = years
	}
	return filter, nil
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	filter, err := programFilterFromQuery(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	programs, err := s.uc.Programs(r.Context(), projectID(r), filter)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"programs": programs})
}

func (s *Server) handleProgramParameters(w http.ResponseWriter, r *http.Request) {
	params, err := s.uc.ProgramParameters(r.Context(), chi.URLParam(r, "programID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"parameters": params})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	programs, err := s.uc.MarketPrograms(r.Context(), projectID(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"programs": programs})
}

func (s *Server) handleRegulation(w http.ResponseWriter, r *http.Request) {
	var req usecase.RegulationRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	result, err := s.uc.EstimateRegulation(r.Context(), projectID(r), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleEnergy(w http.ResponseWriter, r *http.Request) {
	var req usecase.EnergyRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	result, err := s.uc.EstimateEnergyArbitrage(r.Context(), projectID(r), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleReserves(w http.ResponseWriter, r *http.Request) {
	var req usecase.ReservesRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	result, err := s.uc.EstimateReserves(r.Context(), projectID(r), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handlePLC(w http.ResponseWriter, r *http.Request) {
	var req usecase.PLCRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	result, err := s.uc.EstimatePLCSavings(r.Context(), projectID(r), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleDemandResponse(w http.ResponseWriter, r *http.Request) {
	result, err := s.uc.DemandResponse(r.Context(), projectID(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, s.uc.Policy())
}

func (s *Server) handleUnderwriting(w http.ResponseWriter, r *http.Request) {
	var req usecase.UnderwritingRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	result, err := s.uc.Underwrite(r.Context(), projectID(r), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.uc.BuildReport(r.Context(), projectID(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, report)
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	report, err := s.uc.BuildReport(r.Context(), projectID(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="cash_flows.csv"`)
	if err := usecase.WriteReportCSV(w, report); err != nil {
		errutil.Handle(r.Context(), err, "failed to stream report CSV")
	}
}

func (s *Server) handleProgramsCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := programFilterFromQuery(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	programs, err := s.uc.Programs(r.Context(), projectID(r), filter)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="programs.csv"`)
	if err := usecase.WriteProgramsCSV(w, programs); err != nil {
		errutil.Handle(r.Context(), err, "failed to stream programs CSV")
	}
}
