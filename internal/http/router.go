package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/coopsolar/backoffice/internal/http/export"
	"github.com/coopsolar/backoffice/internal/http/finance"
	"github.com/coopsolar/backoffice/internal/http/importcsv"
	"github.com/coopsolar/backoffice/internal/http/invoice"
	"github.com/coopsolar/backoffice/internal/http/matching"
	"github.com/coopsolar/backoffice/internal/http/transfer"
	"github.com/coopsolar/backoffice/internal/metrics"
)

type Handlers struct {
	Invoices  *invoice.Handler
	Entries   *finance.Handler
	Transfers *transfer.Handler
	Import    *importcsv.Handler
	Matching  *matching.Handler
	Export    *export.Handler
}

func New(h Handlers, m *metrics.HTTP, allowedOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if m != nil {
		router.Use(m.Middleware)
		router.Handle("/metrics", m.Handler())
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/faturas", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Invoices.Routes(r)
		})

		r.Route("/lancamentos", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Entries.Routes(r)
		})

		r.Route("/transferencias", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Transfers.Routes(r)
		})

		r.Route("/importacao", h.Import.Routes)

		r.Route("/matching", h.Matching.Routes)

		r.Route("/exportacao", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Export.Routes(r)
		})
	})

	return router
}
