package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"fleetnav/internal/buildinfo"
	"fleetnav/internal/metrics"
	"fleetnav/internal/model"
	"fleetnav/internal/plan"
	"fleetnav/internal/store"
)

// PlansHandler handles POST/GET /v1/plans.
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		p := s.getPrincipal(r)
		if !p.CanPlan() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "dispatcher or admin required", r.URL.Path)
			return
		}
		var req model.PlanRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
				return
			}
		}
		if err := validatePlanRequest(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
			return
		}
		id := uuid.New().String()
		rec := model.PlanRecord{
			ID:        id,
			Scenario:  s.Scenario.Name,
			Status:    model.PlanRunning,
			Seed:      s.seedFor(req),
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if req.Scenario != "" {
			rec.Scenario = req.Scenario
		}
		if err := s.Store.SavePlan(r.Context(), rec); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save plan failed", err.Error(), r.URL.Path)
			return
		}
		go s.runPlan(id, req)
		writeJSON(w, http.StatusAccepted, map[string]any{"planId": id, "status": rec.Status})
	case http.MethodGet:
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
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// PlanByIDHandler handles GET /v1/plans/{id} and its sub-resources
// /packages, /events/stream (SSE), and /events/ws (WebSocket).
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	id := parts[0]

	if len(parts) >= 2 && parts[1] == "events" {
		if len(parts) == 3 && parts[2] == "stream" {
			s.streamPlanEvents(w, r, id)
			return
		}
		if len(parts) == 3 && parts[2] == "ws" {
			s.PlanEventsWSHandler(w, r, id)
			return
		}
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rec, err := s.Store.GetPlan(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Plan not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get plan failed", err.Error(), r.URL.Path)
		return
	}
	if len(parts) == 2 && parts[1] == "packages" {
		writeJSON(w, http.StatusOK, map[string]any{"planId": rec.ID, "packages": rec.Packages})
		return
	}
	if len(parts) > 1 {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// streamPlanEvents serves trial progress as SSE until the client goes
// away.
func (s *Server) streamPlanEvents(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"planId\":%q,\"ts\":%q}\n\n", id, time.Now().Format(time.RFC3339))
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		case <-time.After(15 * time.Second):
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"planId\":%q,\"ts\":%q}\n\n", id, time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

// seedFor resolves the effective seed: request override, else config.
func (s *Server) seedFor(req model.PlanRequest) int64 {
	if req.Seed != 0 {
		return req.Seed
	}
	return s.Search.Seed
}

// runPlan executes the search in the background, publishing trial
// events and persisting the outcome.
func (s *Server) runPlan(id string, req model.PlanRequest) {
	ctx := context.Background()
	budget := req.BudgetMs
	if budget == 0 {
		budget = s.Search.BudgetMs
	}
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(budget)*time.Millisecond)
		defer cancel()
	}

	sc := s.Scenario
	if req.Vehicles > 0 {
		sc.Vehicles = req.Vehicles
	}
	if req.Capacity > 0 {
		sc.Capacity = req.Capacity
	}
	if req.SpeedMPH > 0 {
		sc.SpeedMPH = req.SpeedMPH
	}

	opts := plan.Options{
		Trials:  s.Search.Trials,
		Seed:    s.seedFor(req),
		Workers: s.Search.Workers,
		Logger:  s.Logger,
		OnTrial: func(ev plan.TrialEvent) {
			outcome := "feasible"
			if !ev.Feasible {
				outcome = "infeasible"
			}
			metrics.PlanTrials.WithLabelValues(outcome).Inc()
			s.Broker.Publish(id, PlanEvent{Type: model.EventTrialDone, Data: map[string]any{
				"planId": id, "trial": ev.Trial, "mileage": ev.Mileage, "feasible": ev.Feasible, "reason": ev.Reason,
			}})
		},
	}
	if req.Trials > 0 {
		opts.Trials = req.Trials
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}

	start := time.Now()
	res, err := plan.Run(ctx, sc, opts)
	metrics.PlanDuration.Observe(time.Since(start).Seconds())

	rec := model.PlanRecord{
		ID:        id,
		Scenario:  sc.Name,
		Seed:      opts.Seed,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if req.Scenario != "" {
		rec.Scenario = req.Scenario
	}
	if prev, gerr := s.Store.GetPlan(ctx, id); gerr == nil {
		rec.CreatedAt = prev.CreatedAt
	}

	if err != nil {
		rec.Status = model.PlanFailed
		rec.Error = err.Error()
		if res != nil {
			rec.Trials = res.Trials
		}
		if serr := s.Store.SavePlan(ctx, rec); serr != nil {
			s.Logger.Printf("api: save failed plan %s: %v", id, serr)
		}
		s.Broker.Publish(id, PlanEvent{Type: model.EventPlanFailed, Data: map[string]any{"planId": id, "error": rec.Error}})
		s.Pub.Emit(ctx, model.EventPlanFailed, rec)
		return
	}

	rec.Status = model.PlanComplete
	rec.Trials = res.Trials
	rec.FeasibleRuns = res.FeasibleRuns
	rec.BestMileage = res.BestMileage
	rec.WorstMileage = res.WorstMileage
	rec.AvgMileage = res.AvgMileage
	rec.VehicleRoutes = vehicleRoutesOut(res.Best)
	rec.Packages = packagesOut(res.Best)
	metrics.PlanBestMileage.Set(res.BestMileage)

	if serr := s.Store.SavePlan(ctx, rec); serr != nil {
		s.Logger.Printf("api: save plan %s: %v", id, serr)
	}
	s.Broker.Publish(id, PlanEvent{Type: model.EventPlanComplete, Data: map[string]any{
		"planId": id, "bestMileage": rec.BestMileage, "feasibleRuns": rec.FeasibleRuns, "trials": rec.Trials,
	}})
	s.Pub.Emit(ctx, model.EventPlanComplete, rec)
}

func vehicleRoutesOut(t *plan.Trial) []model.VehicleRouteOut {
	out := make([]model.VehicleRouteOut, 0, len(t.Vehicles))
	for _, v := range t.Vehicles {
		out = append(out, model.VehicleRouteOut{
			VehicleID:  v.ID,
			Route:      v.Route,
			Mileage:    v.Mileage,
			ReturnedAt: v.ReturnedAt.Format(time.RFC3339),
		})
	}
	return out
}

func packagesOut(t *plan.Trial) []model.PackageOut {
	out := make([]model.PackageOut, 0, len(t.Packages))
	for _, p := range t.Packages {
		po := model.PackageOut{
			ID:        p.ID,
			Location:  p.EffectiveLocation(p.DeliveredAt),
			Status:    p.Status,
			VehicleID: p.AssignedVehicle,
			OnTime:    !p.HasDeadline() || !p.DeliveredAt.After(p.Deadline),
		}
		if p.HasDeadline() {
			po.Deadline = p.Deadline.Format("15:04")
		}
		if !p.DepartedAt.IsZero() {
			po.DepartedAt = p.DepartedAt.Format(time.RFC3339)
		}
		if !p.DeliveredAt.IsZero() {
			po.DeliveredAt = p.DeliveredAt.Format(time.RFC3339)
		}
		out = append(out, po)
	}
	return out
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateSubscriptionRequest(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", err.Error(), r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		sub.Secret = ""
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		for i := range items {
			items[i].Secret = ""
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/"), "/")
	if id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if err := s.Store.DeleteSubscription(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Subscription not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthHandler handles /healthz.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

// ReadyHandler handles /readyz: the service is ready once the scenario
// is loaded.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if s.Scenario.Matrix == nil || len(s.Scenario.Packages) == 0 {
		writeProblem(w, http.StatusServiceUnavailable, "Not ready", "scenario not loaded", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
