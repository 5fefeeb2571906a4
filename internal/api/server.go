// Package api implements the HTTP surface of the planning service:
// plan runs, plan records, trial event streams, and webhook
// subscriptions.
package api

import (
	"log"
	"os"
	"strings"

	"fleetnav/internal/auth"
	"fleetnav/internal/config"
	"fleetnav/internal/plan"
	"fleetnav/internal/store"
	"fleetnav/internal/webhooks"
)

type Server struct {
	Store    store.Store
	Pub      *webhooks.Publisher
	Auth     *auth.Verifier
	Broker   EventBroker
	Scenario plan.Scenario
	Search   config.Search
	Logger   *log.Logger
}

// NewServer wires the server. DATABASE_URL selects Postgres over the
// in-memory store; REDIS_URL selects the Redis broker over the
// in-process one.
func NewServer(sc plan.Scenario, search config.Search) (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		// Dev helper; production migrates out of band.
		if os.Getenv("DB_MIGRATE") != "false" {
			_ = sp.MigrateDir("db/migrations")
		}
		s = sp
	}
	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	return &Server{
		Store:    s,
		Pub:      webhooks.NewPublisher(s),
		Auth:     auth.NewVerifierFromEnv(),
		Broker:   broker,
		Scenario: sc,
		Search:   search,
		Logger:   log.Default(),
	}, nil
}

// NewWebhookWorker creates the background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
