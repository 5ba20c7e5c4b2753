// Package api serves aggregated debt and its exports over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/gjeldshjelp/debt-cli/internal/export"
	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/store"
)

// Aggregator builds a person's aggregate, either for the newest snapshot
// date or for a given one.
type Aggregator interface {
	Aggregate(ctx context.Context, personID string) (*model.AggregatedPersonDebt, error)
	AggregateAt(ctx context.Context, personID, date string) (*model.AggregatedPersonDebt, error)
}

// DateLister lists a person's snapshot dates, newest first.
type DateLister interface {
	ListDates(ctx context.Context, personID string) ([]string, error)
}

// Handler holds the dependencies of the HTTP routes.
type Handler struct {
	agg     Aggregator
	dates   DateLister
	origins []string
}

// NewHandler returns a handler. An empty origins list allows any origin.
func NewHandler(agg Aggregator, dates DateLister, origins []string) *Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{agg: agg, dates: dates, origins: origins}
}

// Router builds the chi router with CORS and recovery middleware.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: h.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}),
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		success(w, map[string]string{"status": "ok"})
	})

	r.Route("/persons/{personID}", func(r chi.Router) {
		r.Get("/dates", h.listDates)
		r.Get("/debts", h.getDebts)
		r.Get("/debts.csv", h.exportDebts(export.FormatCSV))
		r.Get("/debts.xlsx", h.exportDebts(export.FormatXLSX))
	})

	return r
}

func personID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "personID"))
	if id == "" || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return "", false
	}
	return id, true
}

func (h *Handler) listDates(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(r)
	if !ok {
		badRequest(w, "invalid person id")
		return
	}
	dates, err := h.dates.ListDates(r.Context(), id)
	if err != nil {
		zap.L().Error("api: list dates", zap.String("person_id", id), zap.Error(err))
		internalError(w, "failed to list snapshot dates")
		return
	}
	success(w, dates)
}

// aggregate resolves the optional ?date= query and writes an error response
// when it cannot produce a result.
func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) (*model.AggregatedPersonDebt, bool) {
	id, ok := personID(r)
	if !ok {
		badRequest(w, "invalid person id")
		return nil, false
	}

	var (
		agg *model.AggregatedPersonDebt
		err error
	)
	if date := r.URL.Query().Get("date"); date != "" {
		if !store.IsDateKey(date) {
			badRequest(w, "date must be YYYY_MM_DD")
			return nil, false
		}
		agg, err = h.agg.AggregateAt(r.Context(), id, date)
	} else {
		agg, err = h.agg.Aggregate(r.Context(), id)
	}
	if err != nil {
		zap.L().Error("api: aggregate", zap.String("person_id", id), zap.Error(err))
		internalError(w, "failed to aggregate debts")
		return nil, false
	}
	return agg, true
}

func (h *Handler) getDebts(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.aggregate(w, r)
	if !ok {
		return
	}
	success(w, agg)
}

var contentTypes = map[string]string{
	export.FormatCSV:  "text/csv; charset=utf-8",
	export.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func (h *Handler) exportDebts(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agg, ok := h.aggregate(w, r)
		if !ok {
			return
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, format, agg); err != nil {
			if errors.Is(err, export.ErrNoDebts) {
				notFound(w, fmt.Sprintf("Ingen gjeld funnet for %s", agg.PersonID))
				return
			}
			zap.L().Error("api: export", zap.String("person_id", agg.PersonID), zap.String("format", format), zap.Error(err))
			internalError(w, "failed to export debts")
			return
		}

		w.Header().Set("Content-Type", contentTypes[format])
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(agg, format)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buf.Bytes()); err != nil {
			zap.L().Warn("api: write export", zap.Error(err))
		}
	}
}
