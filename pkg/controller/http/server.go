package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gridmetrics-lab/derrev/pkg/usecase"
	"github.com/gridmetrics-lab/derrev/pkg/utils/logging"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

func New(uc *usecase.UseCases) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", s.handleCreateProject)
			r.Get("/", s.handleListProjects)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Put("/", s.handleUpdateProject)
				r.Delete("/", s.handleDeleteProject)

				r.Put("/load", s.handlePutLoad)
				r.Get("/load", s.handleGetLoad)

				r.Get("/location", s.handleLocation)
				r.Get("/programs", s.handlePrograms)
				r.Get("/markets", s.handleMarkets)

				r.Route("/merchant", func(r chi.Router) {
					r.Post("/regulation", s.handleRegulation)
					r.Post("/energy", s.handleEnergy)
					r.Post("/reserves", s.handleReserves)
					r.Post("/plc", s.handlePLC)
				})

				r.Get("/demand-response", s.handleDemandResponse)
				r.Post("/underwriting", s.handleUnderwriting)

				r.Get("/report", s.handleReport)
				r.Get("/report.csv", s.handleReportCSV)
				r.Get("/programs.csv", s.handleProgramsCSV)
			})
		})

		r.Get("/programs/{programID}/parameters", s.handleProgramParameters)
		r.Get("/policy", s.handlePolicy)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
