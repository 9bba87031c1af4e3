package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/roach88/retailkit/internal/activity"
	"github.com/roach88/retailkit/internal/pipeline"
	"github.com/roach88/retailkit/internal/segment"
)

// APIResponse is the envelope of every JSON endpoint.
type APIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *APIError `json:"error,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, resp *APIResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // HTTP response write errors are not recoverable
	w.Write(data)
}

func respondData(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, &APIResponse{Status: "success", Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, &APIResponse{Status: "error", Error: &APIError{Code: code, Message: message}})
}

// respondRecipe writes a recipe's section of the summary, or 404 when the
// recipe was not part of the run. The nil check has to happen on the
// typed pointer before it is boxed.
func respondRecipe(w http.ResponseWriter, recipe string, ran bool, data any) {
	if !ran {
		respondError(w, http.StatusNotFound, "RECIPE_NOT_RUN", "recipe "+recipe+" was not selected for this run")
		return
	}
	respondData(w, data)
}

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, map[string]string{"status": "ok"})
}

// Overview returns run metadata and generated table sizes.
func (s *Server) Overview(w http.ResponseWriter, r *http.Request) {
	sum := s.result.Summary
	respondData(w, struct {
		Seed    uint64               `json:"seed,string"`
		Window  pipeline.WindowInfo  `json:"window"`
		Tables  []pipeline.TableSize `json:"tables"`
		Recipes []string             `json:"recipes"`
		Digest  string               `json:"digest"`
	}{sum.Seed, sum.Window, sum.Tables, sum.Recipes, s.digest})
}

// Digest returns the summary digest.
func (s *Server) Digest(w http.ResponseWriter, r *http.Request) {
	respondData(w, map[string]string{"digest": s.digest})
}

// Quality returns the validation report.
func (s *Server) Quality(w http.ResponseWriter, r *http.Request) {
	respondData(w, s.result.Summary.Quality)
}

// Promotions returns uplift, period, funnel and top-product views.
func (s *Server) Promotions(w http.ResponseWriter, r *http.Request) {
	p := s.result.Summary.Promotions
	respondRecipe(w, pipeline.RecipePromotions, p != nil, p)
}

// Loyalty returns the accrual summary and balance changes.
func (s *Server) Loyalty(w http.ResponseWriter, r *http.Request) {
	l := s.result.Summary.Loyalty
	respondRecipe(w, pipeline.RecipeLoyalty, l != nil, l)
}

// Segments returns RFM profiles and segment counts. ?segment= filters
// profiles to one segment.
func (s *Server) Segments(w http.ResponseWriter, r *http.Request) {
	seg := s.result.Summary.Segments
	if seg == nil {
		respondRecipe(w, pipeline.RecipeSegments, false, nil)
		return
	}
	want := r.URL.Query().Get("segment")
	if want == "" {
		respondData(w, seg)
		return
	}
	out := segment.Result{Counts: seg.Counts, Profiles: []segment.Profile{}}
	for _, p := range seg.Profiles {
		if p.Segment == want {
			out.Profiles = append(out.Profiles, p)
		}
	}
	respondData(w, out)
}

// Notifications returns composed messages and delivery counts.
func (s *Server) Notifications(w http.ResponseWriter, r *http.Request) {
	n := s.result.Summary.Notifications
	respondRecipe(w, pipeline.RecipeNotifications, n != nil, n)
}

// Inventory returns stock-risk rows and the regional rollup. ?risk=
// filters rows to one class.
func (s *Server) Inventory(w http.ResponseWriter, r *http.Request) {
	inv := s.result.Summary.Inventory
	if inv == nil {
		respondRecipe(w, pipeline.RecipeInventory, false, nil)
		return
	}
	risk := r.URL.Query().Get("risk")
	if risk == "" {
		respondData(w, inv)
		return
	}
	out := *inv
	out.Rows = nil
	for _, row := range inv.Rows {
		if row.Risk == risk {
			out.Rows = append(out.Rows, row)
		}
	}
	respondData(w, out)
}

// Activity returns event counts, and the events of one customer when
// ?customer= is given.
func (s *Server) Activity(w http.ResponseWriter, r *http.Request) {
	a := s.result.Summary.Activity
	if a == nil {
		respondRecipe(w, pipeline.RecipeActivity, false, nil)
		return
	}
	id := r.URL.Query().Get("customer")
	if id == "" {
		respondData(w, a)
		return
	}
	respondData(w, struct {
		Counts []activity.Count `json:"counts"`
		Events []activity.Event `json:"events"`
	}{a.Counts, s.result.Activity.ForCustomer(id)})
}

// CustomerView joins everything known about one customer.
type CustomerView struct {
	CustomerID string           `json:"customer_id"`
	Email      string           `json:"email"`
	Balance    int64            `json:"total_loyalty_points"`
	Profile    *segment.Profile `json:"profile,omitempty"`
	Events     []activity.Event `json:"events"`
}

// Customer returns one customer's profile, balance and events.
func (s *Server) Customer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "customerID")

	view := CustomerView{CustomerID: id, Events: s.result.Activity.ForCustomer(id)}
	found := false
	for _, c := range s.result.Dataset.Customers {
		if c.ID == id {
			view.Email = c.Email
			view.Balance = c.LoyaltyBalance
			found = true
			break
		}
	}
	if !found {
		respondError(w, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "unknown customer "+id)
		return
	}
	for _, a := range s.result.Accruals {
		if a.CustomerID == id {
			view.Balance = a.Balance
		}
	}
	if seg := s.result.Summary.Segments; seg != nil {
		for i := range seg.Profiles {
			if seg.Profiles[i].CustomerID == id {
				view.Profile = &seg.Profiles[i]
				break
			}
		}
	}
	if view.Events == nil {
		view.Events = []activity.Event{}
	}
	respondData(w, view)
}
