package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karigai-ops/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetGrouping returns the {category -> group} dictionary for one field, or
// an empty map when the operator has not defined one.
func (s *Store) GetGrouping(ctx context.Context, operator, field string) (map[string]string, error) {
	var raw []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT mapping FROM category_groupings WHERE operator = $1 AND field = $2`,
		operator, field).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return map[string]string{}, nil
		}
		return nil, err
	}
	mapping := map[string]string{}
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

func (s *Store) PutGrouping(ctx context.Context, operator, field string, mapping map[string]string) error {
	raw, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO category_groupings (operator, field, mapping, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (operator, field) DO UPDATE SET
			mapping = EXCLUDED.mapping,
			updated_at = EXCLUDED.updated_at
	`, operator, field, raw)
	return err
}

func (s *Store) DeleteGrouping(ctx context.Context, operator, field string) error {
	_, err := s.Pool.Exec(ctx,
		`DELETE FROM category_groupings WHERE operator = $1 AND field = $2`,
		operator, field)
	return err
}

func (s *Store) GetLabelOverrides(ctx context.Context, operator, field string) (map[string]string, error) {
	var raw []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT mapping FROM label_overrides WHERE operator = $1 AND field = $2`,
		operator, field).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return map[string]string{}, nil
		}
		return nil, err
	}
	mapping := map[string]string{}
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

func (s *Store) PutLabelOverrides(ctx context.Context, operator, field string, mapping map[string]string) error {
	raw, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO label_overrides (operator, field, mapping, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (operator, field) DO UPDATE SET
			mapping = EXCLUDED.mapping,
			updated_at = EXCLUDED.updated_at
	`, operator, field, raw)
	return err
}

func (s *Store) GetSession(ctx context.Context, operator string) (models.OperatorSession, error) {
	var sess models.OperatorSession
	err := s.Pool.QueryRow(ctx, `
		SELECT operator, agent_name, agent_phone, team_id, last_order_number, updated_at
		FROM operator_sessions WHERE operator = $1
	`, operator).Scan(&sess.Operator, &sess.AgentName, &sess.AgentPhone, &sess.TeamID, &sess.LastOrderNumber, &sess.UpdatedAt)
	if err == pgx.ErrNoRows {
		return models.OperatorSession{Operator: operator}, nil
	}
	return sess, err
}

func (s *Store) PutSession(ctx context.Context, sess models.OperatorSession) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO operator_sessions (operator, agent_name, agent_phone, team_id, last_order_number, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (operator) DO UPDATE SET
			agent_name = EXCLUDED.agent_name,
			agent_phone = EXCLUDED.agent_phone,
			team_id = EXCLUDED.team_id,
			last_order_number = EXCLUDED.last_order_number,
			updated_at = EXCLUDED.updated_at
	`, sess.Operator, sess.AgentName, sess.AgentPhone, sess.TeamID, sess.LastOrderNumber)
	return err
}

func (s *Store) CreateRun(ctx context.Context, kind string, status string) (string, error) {
	var id string
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO runs (kind, status, started_at) VALUES ($1, $2, NOW()) RETURNING id`,
		kind, status).Scan(&id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`,
		status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context, kind string) (map[string]any, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, started_at, finished_at, status, summary
		FROM runs WHERE kind = $1 ORDER BY started_at DESC LIMIT 1
	`, kind)
	var (
		id       string
		started  time.Time
		finished *time.Time
		status   string
		summary  []byte
	)
	if err := row.Scan(&id, &started, &finished, &status, &summary); err != nil {
		return nil, err
	}
	return map[string]any{
		"id":          id,
		"kind":        kind,
		"started_at":  started,
		"finished_at": finished,
		"status":      status,
		"summary":     summary,
	}, nil
}
