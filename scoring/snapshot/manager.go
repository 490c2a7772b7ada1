package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/DePINScan/go-scoring/scoring/store"
)

// maxRetainedSnapshots bounds how many snapshots cleanup keeps around.
const maxRetainedSnapshots = 10

// Manager handles snapshot lifecycle: creation, retrieval, trend
// queries and retention cleanup.
type Manager struct {
	kvStore    store.KVStore
	calculator *Calculator
}

// NewManager creates a new Manager instance.
func NewManager(kvStore store.KVStore) *Manager {
	return &Manager{
		kvStore:    kvStore,
		calculator: NewCalculator(kvStore),
	}
}

// CreateSnapshot generates and stores a new snapshot. snapshotID can be
// empty (a timestamp-based ID is generated) or a specific ID.
func (m *Manager) CreateSnapshot(ctx context.Context, snapshotID string) (*store.ScoreSnapshot, error) {
	snapshot, err := m.calculator.CalculateSnapshot(snapshotID)
	if err != nil {
		return nil, err
	}

	if err := m.calculator.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}

	if err := m.CleanupOldSnapshots(ctx); err != nil {
		// Retention is advisory; never fail a create over it.
		slog.Warn("Failed to cleanup old snapshots", "error", err)
	}

	return snapshot, nil
}

// GetSnapshot retrieves a specific snapshot by ID.
func (m *Manager) GetSnapshot(ctx context.Context, snapshotID string) (*store.ScoreSnapshot, error) {
	key := fmt.Sprintf("score:snapshot:%s", snapshotID)

	resp, err := m.kvStore.GetValue(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("snapshot not found for ID %s: %w", snapshotID, err)
	}

	var snapshot store.ScoreSnapshot
	if err := json.Unmarshal([]byte(resp.Message.Value), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

// ListSnapshots retrieves all available snapshot IDs, most recent first.
func (m *Manager) ListSnapshots(ctx context.Context) ([]string, error) {
	keys, err := m.kvStore.ListKeys(ctx, "score:snapshot:*")
	if err != nil {
		return nil, err
	}

	snapshotIDs := make([]string, 0, len(keys))
	for _, key := range keys {
		// Key shape: score:snapshot:YYYY-MM-DD-HHMMSS. Rejoin in case
		// an ID ever contains a colon.
		parts := strings.Split(key, ":")
		if len(parts) >= 3 {
			snapshotIDs = append(snapshotIDs, strings.Join(parts[2:], ":"))
		}
	}

	// Timestamp-format IDs sort lexically, so descending string order
	// is most-recent-first.
	sort.Slice(snapshotIDs, func(i, j int) bool {
		return snapshotIDs[i] > snapshotIDs[j]
	})

	return snapshotIDs, nil
}

// GetTrendData retrieves up to limit most recent snapshots for trend
// analysis, capped at maxRetainedSnapshots.
func (m *Manager) GetTrendData(ctx context.Context, limit int) ([]*store.ScoreSnapshot, error) {
	if limit > maxRetainedSnapshots {
		limit = maxRetainedSnapshots
	}

	availableIDs, err := m.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	if len(availableIDs) > limit {
		availableIDs = availableIDs[:limit]
	}

	snapshots := make([]*store.ScoreSnapshot, 0, len(availableIDs))
	for _, snapshotID := range availableIDs {
		snapshot, err := m.GetSnapshot(ctx, snapshotID)
		if err != nil {
			// Skip snapshots that fail to load.
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

// CleanupOldSnapshots deletes everything beyond the retention window.
func (m *Manager) CleanupOldSnapshots(ctx context.Context) error {
	snapshotIDs, err := m.ListSnapshots(ctx)
	if err != nil {
		return err
	}

	if len(snapshotIDs) <= maxRetainedSnapshots {
		return nil
	}

	toDelete := snapshotIDs[maxRetainedSnapshots:]
	for _, snapshotID := range toDelete {
		key := fmt.Sprintf("score:snapshot:%s", snapshotID)
		if err := m.kvStore.DeleteValue(ctx, key); err != nil {
			slog.Warn("Failed to delete old snapshot", "key", key, "error", err)
		}
	}

	return nil
}

// GetLatestSnapshot retrieves the most recent snapshot.
func (m *Manager) GetLatestSnapshot(ctx context.Context) (*store.ScoreSnapshot, error) {
	snapshotIDs, err := m.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	if len(snapshotIDs) == 0 {
		return nil, fmt.Errorf("no snapshots available")
	}

	return m.GetSnapshot(ctx, snapshotIDs[0])
}
