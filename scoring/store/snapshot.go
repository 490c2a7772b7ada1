package store

import "time"

// ScoreSnapshot represents a point-in-time view of fleet trust posture.
type ScoreSnapshot struct {
	SnapshotID string           `json:"snapshot_id"` // YYYY-MM-DD-HHMMSS format
	Timestamp  time.Time        `json:"timestamp"`
	Counts     RiskLevelCounts  `json:"counts"`
	Fleet      FleetScoreStats  `json:"fleet"`
	Metadata   SnapshotMetadata `json:"metadata"`
}

// RiskLevelCounts is the number of hosts at each risk level, computed
// from the latest report per host.
type RiskLevelCounts struct {
	Total    int `json:"total"`
	Minimal  int `json:"minimal"`
	Low      int `json:"low"`
	Moderate int `json:"moderate"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// FleetScoreStats summarizes score distribution across the fleet.
type FleetScoreStats struct {
	MeanScore   float64 `json:"mean_score"`
	MinScore    int     `json:"min_score"`
	MaxScore    int     `json:"max_score"`
	GradeFHosts int     `json:"grade_f_hosts"`
}

// SnapshotMetadata contains metadata about the snapshot run.
type SnapshotMetadata struct {
	TotalHosts         int   `json:"total_hosts"`
	SnapshotDurationMs int64 `json:"snapshot_duration_ms"`
}
