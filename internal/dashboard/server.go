// Package dashboard serves a run's results over HTTP: an HTML page with
// one tab per recipe, a JSON API, and Prometheus metrics.
//
// The run is computed once before the server starts; every request reads
// the same immutable Result.
package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/retailkit/internal/pipeline"
	"github.com/roach88/retailkit/internal/report"
)

//go:embed templates/index.html.tmpl
var templates embed.FS

// Server holds a finished run and renders it.
type Server struct {
	result *pipeline.Result
	digest string
	index  *template.Template
	logger *slog.Logger
}

// New prepares a server for res. A nil logger discards.
func New(res *pipeline.Result, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	digest, err := res.Summary.Digest()
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	index, err := template.ParseFS(templates, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("dashboard: parse template: %w", err)
	}
	return &Server{result: res, digest: digest, index: index, logger: logger}, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogging)

	r.Get("/", s.Index)
	r.Get("/health", s.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(PrometheusMetrics)

		r.Get("/overview", s.Overview)
		r.Get("/digest", s.Digest)
		r.Get("/quality", s.Quality)
		r.Get("/promotions", s.Promotions)
		r.Get("/loyalty", s.Loyalty)
		r.Get("/segments", s.Segments)
		r.Get("/notifications", s.Notifications)
		r.Get("/inventory", s.Inventory)
		r.Get("/activity", s.Activity)
		r.Get("/customers/{customerID}", s.Customer)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no such route: "+r.URL.Path)
	})

	return r
}

// tab groups report tables under one page tab.
type tab struct {
	Name   string
	Tables []report.Table
}

// tabOf maps each summary table to its recipe tab.
var tabOf = map[string]string{
	"overview":          "overview",
	"quality":           pipeline.RecipeQuality,
	"promotions":        pipeline.RecipePromotions,
	"promotion_periods": pipeline.RecipePromotions,
	"promotion_funnel":  pipeline.RecipePromotions,
	"top_products":      pipeline.RecipePromotions,
	"loyalty":           pipeline.RecipeLoyalty,
	"coins":             pipeline.RecipeLoyalty,
	"segments":          pipeline.RecipeSegments,
	"rfm":               pipeline.RecipeSegments,
	"notifications":     pipeline.RecipeNotifications,
	"inventory":         pipeline.RecipeInventory,
	"inventory_regions": pipeline.RecipeInventory,
	"activity":          pipeline.RecipeActivity,
}

func tabs(tables []report.Table) []tab {
	var out []tab
	for _, t := range tables {
		name := tabOf[t.Name]
		if name == "" {
			name = t.Name
		}
		if n := len(out); n > 0 && out[n-1].Name == name {
			out[n-1].Tables = append(out[n-1].Tables, t)
			continue
		}
		out = append(out, tab{Name: name, Tables: []report.Table{t}})
	}
	return out
}

// Index renders the HTML dashboard.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	sum := s.result.Summary
	data := struct {
		Seed   uint64
		Window pipeline.WindowInfo
		Digest string
		Groups []tab
	}{sum.Seed, sum.Window, s.digest, tabs(sum.Tables())}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, data); err != nil {
		s.logger.Error("render index", "error", err)
	}
}
