package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fleetnav/internal/model"
)

// Postgres implements Store on a Postgres database via the pgx stdlib
// driver.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies every .sql file in dir in name order. Dev helper;
// production deployments run migrations out of band.
func (p *Postgres) MigrateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(string(raw)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) SavePlan(ctx context.Context, rec model.PlanRecord) error {
	_, err := p.db.ExecContext(ctx, `
INSERT INTO plans (id, scenario, status, trials, feasible_runs, best_mileage, worst_mileage, avg_mileage, seed, created_at, routes, packages)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  status=EXCLUDED.status, trials=EXCLUDED.trials, feasible_runs=EXCLUDED.feasible_runs,
  best_mileage=EXCLUDED.best_mileage, worst_mileage=EXCLUDED.worst_mileage, avg_mileage=EXCLUDED.avg_mileage,
  routes=EXCLUDED.routes, packages=EXCLUDED.packages`,
		rec.ID, nullIfEmpty(rec.Scenario), rec.Status, rec.Trials, rec.FeasibleRuns,
		rec.BestMileage, rec.WorstMileage, rec.AvgMileage, rec.Seed, rec.CreatedAt,
		toJSON(rec.VehicleRoutes), toJSON(rec.Packages))
	return err
}

func (p *Postgres) GetPlan(ctx context.Context, id string) (model.PlanRecord, error) {
	var rec model.PlanRecord
	var scenario sql.NullString
	var routes, packages []byte
	err := p.db.QueryRowContext(ctx, `
SELECT id::text, scenario, status, trials, feasible_runs, best_mileage, worst_mileage, avg_mileage, seed, created_at, routes, packages
FROM plans WHERE id=$1`, id).Scan(
		&rec.ID, &scenario, &rec.Status, &rec.Trials, &rec.FeasibleRuns,
		&rec.BestMileage, &rec.WorstMileage, &rec.AvgMileage, &rec.Seed, &rec.CreatedAt,
		&routes, &packages)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	rec.Scenario = scenario.String
	_ = json.Unmarshal(routes, &rec.VehicleRoutes)
	_ = json.Unmarshal(packages, &rec.Packages)
	return rec, nil
}

func (p *Postgres) ListPlans(ctx context.Context, cursor string, limit int) ([]model.PlanRecord, string, error) {
	if limit <= 0 {
		limit = 100
	}
	args := []any{limit}
	q := `
SELECT id::text, scenario, status, trials, feasible_runs, best_mileage, worst_mileage, avg_mileage, seed, created_at
FROM plans`
	if cursor != "" {
		q += ` WHERE created_at < (SELECT created_at FROM plans WHERE id=$2)`
		args = append(args, cursor)
	}
	q += ` ORDER BY created_at DESC LIMIT $1`
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []model.PlanRecord
	for rows.Next() {
		var rec model.PlanRecord
		var scenario sql.NullString
		if err := rows.Scan(&rec.ID, &scenario, &rec.Status, &rec.Trials, &rec.FeasibleRuns,
			&rec.BestMileage, &rec.WorstMileage, &rec.AvgMileage, &rec.Seed, &rec.CreatedAt); err != nil {
			return nil, "", err
		}
		rec.Scenario = scenario.String
		out = append(out, rec)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	sub := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	_, err := p.db.ExecContext(ctx, `
INSERT INTO subscriptions (id, url, events, secret, created_at) VALUES ($1,$2,$3,$4,now())`,
		sub.ID, sub.URL, toJSON(sub.Events), nullIfEmpty(sub.Secret))
	if err != nil {
		return model.Subscription{}, err
	}
	return sub, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `
SELECT id::text, url, events, COALESCE(secret,'') FROM subscriptions
WHERE events @> to_jsonb(ARRAY[$1]::text[]) OR events @> to_jsonb(ARRAY['*']::text[])`, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (p *Postgres) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 {
		limit = 100
	}
	args := []any{limit}
	q := `SELECT id::text, url, events, COALESCE(secret,'') FROM subscriptions`
	if cursor != "" {
		q += ` WHERE created_at > (SELECT created_at FROM subscriptions WHERE id=$2)`
		args = append(args, cursor)
	}
	q += ` ORDER BY created_at ASC LIMIT $1`
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	subs, err := scanSubscriptions(rows)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(subs) == limit {
		next = subs[len(subs)-1].ID
	}
	return subs, next, nil
}

func scanSubscriptions(rows *sql.Rows) ([]model.Subscription, error) {
	var out []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		var events []byte
		if err := rows.Scan(&sub.ID, &sub.URL, &events, &sub.Secret); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(events, &sub.Events)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `
INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,'pending',0,now(),now())`,
		id, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
SELECT id::text, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
FROM webhook_deliveries
WHERE status='pending' AND next_attempt_at <= now()
ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WebhookDelivery
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx, `
UPDATE webhook_deliveries
SET status='delivered', attempts=attempts+1, delivered_at=now(), last_error=NULL, response_code=$2, latency_ms=$3
WHERE id=$1`, id, responseCode, latencyMs)
		return err
	}
	var next any
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := p.db.ExecContext(ctx, `
UPDATE webhook_deliveries
SET attempts=attempts+1, next_attempt_at=COALESCE($2, next_attempt_at), last_error=$3, response_code=$4, latency_ms=$5
WHERE id=$1`, id, next, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `
UPDATE webhook_deliveries
SET status='failed', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4
WHERE id=$1`, id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func toJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return b
}
