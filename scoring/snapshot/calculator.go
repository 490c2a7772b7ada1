// Package snapshot aggregates persisted score reports into
// point-in-time fleet posture snapshots stored in Valkey.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DePINScan/go-scoring/scoring/postgres"
	"github.com/DePINScan/go-scoring/scoring/store"
)

// Calculator computes fleet score snapshots from the report table.
type Calculator struct {
	kvStore store.KVStore
}

// NewCalculator creates a new Calculator instance.
func NewCalculator(kvStore store.KVStore) *Calculator {
	return &Calculator{kvStore: kvStore}
}

// CalculateSnapshot queries the latest report per host and aggregates
// risk-level counts and score distribution. snapshotID can be empty
// (a timestamp-based ID is generated) or a specific ID.
func (c *Calculator) CalculateSnapshot(snapshotID string) (*store.ScoreSnapshot, error) {
	db := postgres.GetDB()
	if db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	startTime := time.Now()
	now := time.Now().UTC()

	if snapshotID == "" {
		// Format: YYYY-MM-DD-HHMMSS, lexically sortable.
		snapshotID = now.Format("2006-01-02-150405")
	}

	snapshot := &store.ScoreSnapshot{
		SnapshotID: snapshotID,
		Timestamp:  now,
	}

	// Aggregate over the latest report per host only; historical rows
	// must not skew fleet posture.
	latest := `
		SELECT r.*
		FROM score_reports r
		INNER JOIN (
			SELECT ip, MAX(scored_at) AS latest
			FROM score_reports
			WHERE deleted_at IS NULL
			GROUP BY ip
		) l ON l.ip = r.ip AND l.latest = r.scored_at
		WHERE r.deleted_at IS NULL
	`

	countsQuery := fmt.Sprintf(`
		SELECT
			COUNT(*) as total,
			SUM(CASE WHEN risk_level = 'MINIMAL' THEN 1 ELSE 0 END) as minimal,
			SUM(CASE WHEN risk_level = 'LOW' THEN 1 ELSE 0 END) as low,
			SUM(CASE WHEN risk_level = 'MODERATE' THEN 1 ELSE 0 END) as moderate,
			SUM(CASE WHEN risk_level = 'HIGH' THEN 1 ELSE 0 END) as high,
			SUM(CASE WHEN risk_level = 'CRITICAL' THEN 1 ELSE 0 END) as critical
		FROM (%s) latest_reports
	`, latest)

	if err := db.Raw(countsQuery).Scan(&snapshot.Counts).Error; err != nil {
		return nil, fmt.Errorf("calculate risk level counts: %w", err)
	}

	fleetQuery := fmt.Sprintf(`
		SELECT
			COALESCE(AVG(score), 0) as mean_score,
			COALESCE(MIN(score), 0) as min_score,
			COALESCE(MAX(score), 0) as max_score,
			SUM(CASE WHEN security_grade = 'F' THEN 1 ELSE 0 END) as grade_f_hosts
		FROM (%s) latest_reports
	`, latest)

	if err := db.Raw(fleetQuery).Scan(&snapshot.Fleet).Error; err != nil {
		return nil, fmt.Errorf("calculate fleet score stats: %w", err)
	}

	snapshot.Metadata = store.SnapshotMetadata{
		TotalHosts:         snapshot.Counts.Total,
		SnapshotDurationMs: time.Since(startTime).Milliseconds(),
	}

	return snapshot, nil
}

// SaveSnapshot stores the snapshot in Valkey.
func (c *Calculator) SaveSnapshot(ctx context.Context, snapshot *store.ScoreSnapshot) error {
	key := fmt.Sprintf("score:snapshot:%s", snapshot.SnapshotID)

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return c.kvStore.SetValue(ctx, key, string(data))
}
