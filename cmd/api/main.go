package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fleetnav/internal/api"
	"fleetnav/internal/config"
	"fleetnav/internal/ingest"
	"fleetnav/internal/metrics"
	"fleetnav/internal/plan"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("FLEETNAV_CONFIG"), "path to config YAML")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sc, err := loadScenario(cfg)
	if err != nil {
		log.Fatalf("failed to load scenario: %v", err)
	}

	srvDeps, err := api.NewServer(sc, cfg.Search)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Plans
	mux.HandleFunc("/v1/plans", srvDeps.PlansHandler)
	mux.HandleFunc("/v1/plans/", srvDeps.PlanByIDHandler) // includes /packages, /events/stream, /events/ws

	// Subscriptions
	mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", srvDeps.SubscriptionByIDHandler)

	// Health
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)

	// Metrics
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	rl := api.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           logMiddleware(rl.Middleware(api.Instrument(mux))),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s (scenario %s, %d packages)", cfg.Server.Addr, sc.Name, len(sc.Packages))
	// Start webhook worker
	if srvDeps.Pub != nil {
		worker := srvDeps.NewWebhookWorker()
		worker.Start()
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func loadScenario(cfg config.Config) (plan.Scenario, error) {
	day, err := cfg.Scenario.DayTime()
	if err != nil {
		return plan.Scenario{}, err
	}
	start, err := cfg.Scenario.StartTime()
	if err != nil {
		return plan.Scenario{}, err
	}
	pkgs, err := ingest.LoadPackages(cfg.Scenario.PackagesCSV, day, start)
	if err != nil {
		return plan.Scenario{}, err
	}
	m, err := ingest.LoadMatrix(cfg.Scenario.DistancesCSV)
	if err != nil {
		return plan.Scenario{}, err
	}
	return plan.Scenario{
		Name:     cfg.Scenario.Name,
		Day:      day,
		Start:    start,
		Packages: pkgs,
		Matrix:   m,
		Vehicles: cfg.Fleet.Vehicles,
		Capacity: cfg.Fleet.Capacity,
		SpeedMPH: cfg.Fleet.SpeedMPH,
	}, nil
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		dur := time.Since(start)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
	})
}
