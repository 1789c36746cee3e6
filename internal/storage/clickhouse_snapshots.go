package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// ClickHouseSnapshotStore implements SnapshotStore on ClickHouse.
// Append-only metric history is the natural ClickHouse shape; the age
// bound is delegated to a table TTL while dedup and the row cap run as
// lightweight delete mutations on each write. Mutations execute
// asynchronously, so a read immediately after a write can still see a
// superseded row until the mutation materializes. History consumers
// tolerate that: consistency here is best-effort, like the write path
// itself.
type ClickHouseSnapshotStore struct {
	conn driver.Conn
}

func NewClickHouseSnapshotStore(conn driver.Conn) *ClickHouseSnapshotStore {
	return &ClickHouseSnapshotStore{conn: conn}
}

// Init creates the history table if it does not exist.
func (s *ClickHouseSnapshotStore) Init(ctx context.Context) error {
	err := s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS metric_snapshots (
			event_id          String,
			captured_at       DateTime64(3, 'UTC'),
			target_stores     Int32,
			stores_with_promo Int32,
			fill_rate         Float64,
			target_promos     Int32,
			promos_to_date    Int32,
			gmv_target        Float64,
			gmv_covered       Float64,
			gmv_coverage      Float64
		)
		ENGINE = MergeTree()
		ORDER BY (event_id, captured_at)
		TTL toDateTime(captured_at) + INTERVAL 30 DAY
	`)
	if err != nil {
		return fmt.Errorf("failed to init snapshot schema: %w", err)
	}
	return nil
}

// Record merges a batch into history under the shared dedup and
// retention bounds.
func (s *ClickHouseSnapshotStore) Record(ctx context.Context, rows []models.MetricSnapshot, now time.Time) error {
	if len(rows) == 0 {
		return nil
	}

	eventIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		eventIDs = append(eventIDs, row.EventID)
	}
	err := s.conn.Exec(ctx, `
		ALTER TABLE metric_snapshots DELETE
		WHERE event_id IN (?) AND captured_at > ?
	`, eventIDs, now.Add(-DedupWindow))
	if err != nil {
		return fmt.Errorf("failed to dedup snapshots: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO metric_snapshots")
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot batch: %w", err)
	}
	for _, row := range rows {
		err = batch.Append(
			row.EventID, row.CapturedAt,
			int32(row.TargetStores), int32(row.StoresWithPromo), row.FillRate,
			int32(row.TargetPromos), int32(row.PromosToDate),
			row.GMVTarget, row.GMVCovered, row.GMVCoverage,
		)
		if err != nil {
			return fmt.Errorf("failed to append snapshot: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert snapshots: %w", err)
	}

	return s.capRows(ctx)
}

// capRows enforces the MaxRows bound by deleting everything older than
// the MaxRows-th most recent capture time.
func (s *ClickHouseSnapshotStore) capRows(ctx context.Context) error {
	var threshold time.Time
	err := s.conn.QueryRow(ctx, `
		SELECT captured_at FROM metric_snapshots
		ORDER BY captured_at DESC
		LIMIT 1 OFFSET ?
	`, uint64(MaxRows-1)).Scan(&threshold)
	if err != nil {
		// Fewer than MaxRows rows stored; nothing to evict.
		return nil
	}
	err = s.conn.Exec(ctx, `
		ALTER TABLE metric_snapshots DELETE WHERE captured_at < ?
	`, threshold)
	if err != nil {
		return fmt.Errorf("failed to cap snapshot history: %w", err)
	}
	return nil
}

// FindClosest loads the event's candidate rows inside the tolerance
// window and picks the closest with the shared helper, so tie-breaking
// matches the other backends.
func (s *ClickHouseSnapshotStore) FindClosest(ctx context.Context, eventID string, target time.Time, tolerance time.Duration) (*models.MetricSnapshot, error) {
	query := `
		SELECT event_id, captured_at, target_stores, stores_with_promo,
		       fill_rate, target_promos, promos_to_date,
		       gmv_target, gmv_covered, gmv_coverage
		FROM metric_snapshots
		WHERE event_id = ?`
	args := []any{eventID}
	if tolerance > 0 {
		query += ` AND captured_at BETWEEN ? AND ?`
		args = append(args, target.Add(-tolerance), target.Add(tolerance))
	}
	// Newest-first so ClosestSnapshot's first-seen tie rule prefers the
	// newer reading, like the other backends.
	query += ` ORDER BY captured_at DESC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var candidates []models.MetricSnapshot
	for rows.Next() {
		var row models.MetricSnapshot
		var targetStores, storesWithPromo, targetPromos, promosToDate int32
		err := rows.Scan(
			&row.EventID, &row.CapturedAt, &targetStores, &storesWithPromo,
			&row.FillRate, &targetPromos, &promosToDate,
			&row.GMVTarget, &row.GMVCovered, &row.GMVCoverage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		row.TargetStores = int(targetStores)
		row.StoresWithPromo = int(storesWithPromo)
		row.TargetPromos = int(targetPromos)
		row.PromosToDate = int(promosToDate)
		candidates = append(candidates, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}

	return ClosestSnapshot(candidates, eventID, target, tolerance), nil
}
