package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fleetnav/internal/config"
	"fleetnav/internal/geo"
	"fleetnav/internal/model"
	"fleetnav/internal/plan"
)

func testScenario(t *testing.T) plan.Scenario {
	t.Helper()
	m, err := geo.New(
		[]string{model.Hub, "a", "b"},
		[][]float64{
			{0, 2, 4},
			{2, 0, 1},
			{4, 1, 0},
		},
	)
	if err != nil {
		t.Fatalf("geo.New: %v", err)
	}
	start := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	return plan.Scenario{
		Name:  "test",
		Day:   start,
		Start: start,
		Packages: []*model.Package{
			{ID: 1, Location: "a", AvailableAt: start, Status: model.PackageAtHub},
			{ID: 2, Location: "b", AvailableAt: start, Status: model.PackageAtHub},
		},
		Matrix:   m,
		Vehicles: 2,
		Capacity: 16,
		SpeedMPH: 18,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	s, err := NewServer(testScenario(t), config.Search{Trials: 3})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestReadyWithoutScenario(t *testing.T) {
	s := newTestServer(t)
	s.Scenario.Matrix = nil
	rr := httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready without scenario: got %d", rr.Code)
	}
}

func createPlan(t *testing.T, s *Server, body string) string {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/plans", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	s.PlansHandler(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("create plan: got %d: %s", rr.Code, rr.Body)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, _ := resp["planId"].(string)
	if id == "" {
		t.Fatalf("no planId in %s", rr.Body)
	}
	return id
}

func waitForPlan(t *testing.T, s *Server, id string) model.PlanRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := s.Store.GetPlan(context.Background(), id)
		if err == nil && rec.Status != model.PlanRunning {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("plan %s did not finish", id)
	return model.PlanRecord{}
}

func TestPlanCreateAndGet(t *testing.T) {
	s := newTestServer(t)
	id := createPlan(t, s, `{"trials":3,"seed":42}`)
	rec := waitForPlan(t, s, id)

	if rec.Status != model.PlanComplete {
		t.Fatalf("status = %s (%s)", rec.Status, rec.Error)
	}
	if rec.BestMileage != 7.0 {
		t.Fatalf("best mileage = %v, want 7.0", rec.BestMileage)
	}
	if rec.FeasibleRuns == 0 || rec.Trials != 3 {
		t.Fatalf("stats = %+v", rec)
	}

	rr := httptest.NewRecorder()
	s.PlanByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/plans/"+id, nil))
	if rr.Code != 200 {
		t.Fatalf("get plan: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.PlanByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/plans/"+id+"/packages", nil))
	if rr.Code != 200 {
		t.Fatalf("get packages: got %d", rr.Code)
	}
	var pkgs struct {
		Packages []model.PackageOut `json:"packages"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &pkgs); err != nil {
		t.Fatalf("decode packages: %v", err)
	}
	if len(pkgs.Packages) != 2 {
		t.Fatalf("got %d packages, want 2", len(pkgs.Packages))
	}
	for _, p := range pkgs.Packages {
		if p.Status != model.PackageDelivered || !p.OnTime {
			t.Fatalf("package %d = %+v", p.ID, p)
		}
	}
}

func TestPlanListAfterRuns(t *testing.T) {
	s := newTestServer(t)
	id := createPlan(t, s, `{}`)
	waitForPlan(t, s, id)

	rr := httptest.NewRecorder()
	s.PlansHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/plans?limit=10", nil))
	if rr.Code != 200 {
		t.Fatalf("list plans: got %d", rr.Code)
	}
	var resp struct {
		Items []model.PlanRecord `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != id {
		t.Fatalf("items = %+v", resp.Items)
	}
}

func TestPlanCreateValidation(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/plans", bytes.NewReader([]byte(`{"trials":-1}`)))
	s.PlansHandler(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestPlanCreateForbidden(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/plans", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Role", "viewer")
	s.PlansHandler(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", rr.Code)
	}
}

func TestPlanNotFound(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.PlanByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/plans/does-not-exist", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rr.Code)
	}
}

func TestSubscriptionsCRUD(t *testing.T) {
	s := newTestServer(t)

	rr := httptest.NewRecorder()
	body := `{"url":"http://example.com/hook","events":["plan.completed"],"secret":"s"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", bytes.NewReader([]byte(body)))
	s.SubscriptionsHandler(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", rr.Code, rr.Body)
	}
	var sub model.Subscription
	_ = json.Unmarshal(rr.Body.Bytes(), &sub)
	if sub.Secret != "" {
		t.Fatal("secret echoed back in create response")
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/subscriptions", bytes.NewReader([]byte(`{"url":"not a url","events":["plan.completed"]}`)))
	s.SubscriptionsHandler(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad url: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.SubscriptionsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/subscriptions", nil))
	if rr.Code != 200 {
		t.Fatalf("list: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.SubscriptionByIDHandler(rr, httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.SubscriptionByIDHandler(rr, httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("double delete: got %d", rr.Code)
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("first request: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("burst exceeded: got %d, want 429", rr.Code)
	}
}
