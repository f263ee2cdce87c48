package db

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/rawblock/splitscore/internal/logging"
	"github.com/rawblock/splitscore/pkg/models"
)

// schemaSQL is compiled into the binary so schema init needs no files on
// disk at runtime.
//
//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to database")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping failed")
	}

	logging.Get().Info("[DB] Connected to PostgreSQL run ledger")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema.sql DDL statements.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return errors.Wrap(err, "failed to execute schema migrations")
	}
	logging.Get().Info("[DB] Run ledger schema initialized")
	return nil
}

// NewRunRecord stamps a run with a fresh ID and an audit hash binding the
// ID, kind, criterion, outcome and the exact request payload.
func NewRunRecord(kind, criterion string, score float64, defined bool, payload []byte) models.RunRecord {
	runID := uuid.New().String()
	created := time.Now().UTC()

	sum := sha256.Sum256(payload)
	hashPayload := fmt.Sprintf("%s|%s|%s|%t|%g|%s|%d",
		runID, kind, criterion, defined, score, hex.EncodeToString(sum[:]), created.UnixNano())
	auditHash := sha256.Sum256([]byte(hashPayload))

	return models.RunRecord{
		RunID:     runID,
		Kind:      kind,
		Criterion: criterion,
		Score:     models.OptionalScore(score, defined),
		Defined:   defined,
		AuditHash: hex.EncodeToString(auditHash[:]),
		CreatedAt: created,
	}
}

// SaveRun appends a run to the ledger.
func (s *PostgresStore) SaveRun(ctx context.Context, run models.RunRecord) error {
	sql := `
		INSERT INTO runs (run_id, kind, criterion, score, defined, audit_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO NOTHING;
	`
	_, err := s.pool.Exec(ctx, sql,
		run.RunID,
		run.Kind,
		run.Criterion,
		run.Score,
		run.Defined,
		run.AuditHash,
		run.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert run")
	}
	return nil
}

// ListRuns pages through the ledger, newest first. It returns the page and
// the total number of runs.
func (s *PostgresStore) ListRuns(ctx context.Context, page, limit int) ([]models.RunRecord, int, error) {
	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit

	var totalCount int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM runs`).Scan(&totalCount); err != nil {
		return nil, 0, errors.Wrap(err, "counting runs")
	}

	dataSQL := `
		SELECT run_id::text, kind, criterion, score, defined, audit_hash, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.pool.Query(ctx, dataSQL, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying runs")
	}
	defer rows.Close()

	runs := make([]models.RunRecord, 0, limit)
	for rows.Next() {
		var r models.RunRecord
		if err := rows.Scan(&r.RunID, &r.Kind, &r.Criterion, &r.Score, &r.Defined, &r.AuditHash, &r.CreatedAt); err != nil {
			return nil, 0, errors.Wrap(err, "scanning run")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "iterating runs")
	}
	return runs, totalCount, nil
}

// SaveShadowResult writes one shadow comparison. Shadow rows never touch
// the runs ledger.
func (s *PostgresStore) SaveShadowResult(ctx context.Context, r models.ShadowResult) error {
	sql := `INSERT INTO shadow_results
		(production_criterion, shadow_criterion, production_pick, shadow_pick,
		 num_candidates, diverged, snapshot_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, sql,
		r.ProductionCriterion,
		r.ShadowCriterion,
		r.ProductionPick,
		r.ShadowPick,
		len(r.ProductionScores),
		r.Diverged,
		r.SnapshotID,
		r.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert shadow result")
	}
	return nil
}

// ShadowDrift counts stored comparisons and divergences for a snapshot.
func (s *PostgresStore) ShadowDrift(ctx context.Context, snapshotID int64) (models.DriftReport, error) {
	sql := `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE diverged) AS divergences
	FROM shadow_results WHERE snapshot_id = $1`

	report := models.DriftReport{SnapshotID: snapshotID}
	if err := s.pool.QueryRow(ctx, sql, snapshotID).Scan(&report.TotalRuns, &report.Divergences); err != nil {
		return report, errors.Wrap(err, "computing shadow drift")
	}
	if report.TotalRuns > 0 {
		report.DivergenceRate = float64(report.Divergences) / float64(report.TotalRuns)
	}
	return report, nil
}

func normalizePage(page, limit int) (int, int) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	return page, limit
}
