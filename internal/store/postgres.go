package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"gasroute/internal/model"
)

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

// Migrate creates the schema if missing. Dev helper; production runs
// migrations out of band.
func (p *Postgres) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS plans (
    id          TEXT PRIMARY KEY,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    payload     JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS planner_config (
    id  INT PRIMARY KEY DEFAULT 1,
    cfg JSONB NOT NULL
);`
	_, err := p.db.ExecContext(ctx, ddl)
	return err
}

func (p *Postgres) SavePlan(ctx context.Context, plan model.PlanOut) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO plans (id, payload) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`,
		plan.ID, payload)
	return err
}

func (p *Postgres) GetPlan(ctx context.Context, id string) (model.PlanOut, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM plans WHERE id=$1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlanOut{}, ErrNotFound
	}
	if err != nil {
		return model.PlanOut{}, err
	}
	var plan model.PlanOut
	if err := json.Unmarshal(payload, &plan); err != nil {
		return model.PlanOut{}, fmt.Errorf("unmarshal plan %s: %w", id, err)
	}
	return plan, nil
}

func (p *Postgres) ListPlans(ctx context.Context, cursor string, limit int) ([]model.PlanOut, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args := []any{limit + 1}
	q := `SELECT id, created_at, payload FROM plans ORDER BY created_at DESC, id DESC LIMIT $1`
	if cursor != "" {
		// The cursor carries the full sort key so the filter and the ORDER BY
		// agree; plan ids alone are random and do not order by recency.
		ts, id, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("bad cursor: %w", err)
		}
		q = `SELECT id, created_at, payload FROM plans WHERE (created_at, id) < ($2, $3) ORDER BY created_at DESC, id DESC LIMIT $1`
		args = append(args, ts, id)
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var items []model.PlanOut
	var lastTS time.Time
	var lastID string
	for rows.Next() {
		var id string
		var createdAt time.Time
		var payload []byte
		if err := rows.Scan(&id, &createdAt, &payload); err != nil {
			return nil, "", err
		}
		if len(items) == limit {
			// one extra row means another page exists
			return items, encodeCursor(lastTS, lastID), rows.Err()
		}
		var plan model.PlanOut
		if err := json.Unmarshal(payload, &plan); err != nil {
			return nil, "", fmt.Errorf("unmarshal plan %s: %w", id, err)
		}
		items = append(items, plan)
		lastTS, lastID = createdAt, id
	}
	return items, "", rows.Err()
}

// encodeCursor packs the keyset position (created_at, id) into an opaque
// page token.
func encodeCursor(ts time.Time, id string) string {
	return ts.UTC().Format(time.RFC3339Nano) + "|" + id
}

func decodeCursor(cursor string) (time.Time, string, error) {
	tsPart, id, ok := strings.Cut(cursor, "|")
	if !ok || id == "" {
		return time.Time{}, "", fmt.Errorf("malformed cursor %q", cursor)
	}
	ts, err := time.Parse(time.RFC3339Nano, tsPart)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed cursor %q: %w", cursor, err)
	}
	return ts, id, nil
}

func (p *Postgres) GetPlannerConfig(ctx context.Context) (map[string]any, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT cfg FROM planner_config WHERE id=1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Postgres) SavePlannerConfig(ctx context.Context, cfg map[string]any) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO planner_config (id, cfg) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET cfg = EXCLUDED.cfg`, payload)
	return err
}
