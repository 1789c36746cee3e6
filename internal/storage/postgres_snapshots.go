package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// PostgresSnapshotStore implements SnapshotStore on PostgreSQL.
type PostgresSnapshotStore struct {
	pool *pgxpool.Pool
}

func NewPostgresSnapshotStore(pool *pgxpool.Pool) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{pool: pool}
}

// Init creates the history table if it does not exist.
func (s *PostgresSnapshotStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS metric_snapshots (
			event_id          TEXT             NOT NULL,
			captured_at       TIMESTAMPTZ      NOT NULL,
			target_stores     INTEGER          NOT NULL,
			stores_with_promo INTEGER          NOT NULL,
			fill_rate         DOUBLE PRECISION NOT NULL,
			target_promos     INTEGER          NOT NULL,
			promos_to_date    INTEGER          NOT NULL,
			gmv_target        DOUBLE PRECISION NOT NULL,
			gmv_covered       DOUBLE PRECISION NOT NULL,
			gmv_coverage      DOUBLE PRECISION NOT NULL
		);
		CREATE INDEX IF NOT EXISTS metric_snapshots_event_time
			ON metric_snapshots (event_id, captured_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to init snapshot schema: %w", err)
	}
	return nil
}

// Record merges a batch into history: rows for batched events inside
// the dedup window are replaced, then retention age and the row cap are
// enforced, oldest rows first.
func (s *PostgresSnapshotStore) Record(ctx context.Context, rows []models.MetricSnapshot, now time.Time) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	eventIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		eventIDs = append(eventIDs, row.EventID)
	}
	_, err = tx.Exec(ctx, `
		DELETE FROM metric_snapshots
		WHERE event_id = ANY($1) AND captured_at > $2
	`, eventIDs, now.Add(-DedupWindow))
	if err != nil {
		return fmt.Errorf("failed to dedup snapshots: %w", err)
	}

	for _, row := range rows {
		_, err = tx.Exec(ctx, `
			INSERT INTO metric_snapshots (
				event_id, captured_at, target_stores, stores_with_promo,
				fill_rate, target_promos, promos_to_date,
				gmv_target, gmv_covered, gmv_coverage
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, row.EventID, row.CapturedAt, row.TargetStores, row.StoresWithPromo,
			row.FillRate, row.TargetPromos, row.PromosToDate,
			row.GMVTarget, row.GMVCovered, row.GMVCoverage)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM metric_snapshots WHERE captured_at < $1
	`, now.Add(-RetentionAge))
	if err != nil {
		return fmt.Errorf("failed to prune snapshots by age: %w", err)
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM metric_snapshots WHERE ctid NOT IN (
			SELECT ctid FROM metric_snapshots
			ORDER BY captured_at DESC LIMIT $1
		)
	`, MaxRows)
	if err != nil {
		return fmt.Errorf("failed to cap snapshot history: %w", err)
	}

	return tx.Commit(ctx)
}

// FindClosest returns the event's reading nearest the target time, or
// nil when no row qualifies.
func (s *PostgresSnapshotStore) FindClosest(ctx context.Context, eventID string, target time.Time, tolerance time.Duration) (*models.MetricSnapshot, error) {
	query := `
		SELECT event_id, captured_at, target_stores, stores_with_promo,
		       fill_rate, target_promos, promos_to_date,
		       gmv_target, gmv_covered, gmv_coverage
		FROM metric_snapshots
		WHERE event_id = $1`
	args := []any{eventID, target}
	if tolerance > 0 {
		query += ` AND captured_at BETWEEN $3 AND $4`
		args = append(args, target.Add(-tolerance), target.Add(tolerance))
	}
	// Ties at equal distance go to the newer reading, matching the
	// in-memory store's newest-first scan.
	query += `
		ORDER BY ABS(EXTRACT(EPOCH FROM (captured_at - $2))) ASC, captured_at DESC
		LIMIT 1`

	var row models.MetricSnapshot
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&row.EventID, &row.CapturedAt, &row.TargetStores, &row.StoresWithPromo,
		&row.FillRate, &row.TargetPromos, &row.PromosToDate,
		&row.GMVTarget, &row.GMVCovered, &row.GMVCoverage,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query closest snapshot: %w", err)
	}
	return &row, nil
}
