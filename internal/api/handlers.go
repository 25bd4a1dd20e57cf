package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gasroute/internal/buildinfo"
	"gasroute/internal/metrics"
	"gasroute/internal/model"
	"gasroute/internal/opt"
	"gasroute/internal/store"
)

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	depart, err := parseDepart(req.DepartAt)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	optReq, err := toOptRequest(req, depart)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	if req.Options == nil {
		optReq.Options = s.defaultOptions(r.Context())
	}

	start := time.Now()
	plan, err := s.Optimizer.Optimize(r.Context(), optReq)
	metrics.OptimizeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, opt.ErrInvalidInput) {
			writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Optimize failed", err.Error(), r.URL.Path)
		return
	}
	metrics.OptimizeRuns.WithLabelValues(strconv.FormatBool(plan.Estimated)).Inc()

	out := fromPlan("plan_"+uuid.NewString(), plan, depart)
	if err := s.Store.SavePlan(r.Context(), out); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save plan failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// PlansHandler handles GET /v1/plans
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListPlans(r.Context(), cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List plans failed", err.Error(), r.URL.Path)
		return
	}
	if items == nil {
		items = []model.PlanOut{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// PlanByIDHandler handles GET /v1/plans/{id}
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	plan, err := s.Store.GetPlan(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Plan not found", id, r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get plan failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// PlannerConfigHandler handles GET/PUT /v1/planner/config
func (s *Server) PlannerConfigHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		defaults := map[string]any{
			"maxIterations": s.Cfg.Optimizer.MaxIterations,
			"timeBudgetMs":  s.Cfg.Optimizer.TimeBudgetMs,
			"avgSpeedKph":   s.Cfg.Optimizer.AvgSpeedKph,
		}
		cfg, _ := s.Store.GetPlannerConfig(r.Context())
		for k, v := range cfg {
			defaults[k] = v
		}
		writeJSON(w, http.StatusOK, map[string]any{"config": defaults})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, http.StatusBadRequest, "Missing config", "", r.URL.Path)
			return
		}
		if err := s.Store.SavePlannerConfig(r.Context(), body.Config); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ProviderStatusHandler handles GET /v1/provider/status for ops visibility.
func (s *Server) ProviderStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	out := map[string]any{"configured": s.Travel != nil}
	if s.Travel != nil {
		if b := s.Travel.Breaker(); b != nil {
			out["circuit"] = b.State().String()
		}
		if bg := s.Travel.Budget(); bg != nil {
			out["budgetSpent"] = bg.Spent()
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HealthHandler handles GET /healthz
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

// ReadyHandler handles GET /readyz
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
