//go:build postgres_integration

package store

import (
	"os"
	"testing"

	"fleetnav/internal/model"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	if err := p.Ping(t.Context()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := p.MigrateDir("../../db/migrations"); err != nil {
		t.Fatalf("MigrateDir: %v", err)
	}
	rec := model.PlanRecord{ID: "00000000-0000-0000-0000-000000000001", Status: model.PlanComplete, CreatedAt: "2024-06-03T08:00:00Z"}
	if err := p.SavePlan(t.Context(), rec); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	if _, err := p.GetPlan(t.Context(), rec.ID); err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
}
