package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/DePINScan/go-scoring/scoring/postgres"
	"github.com/DePINScan/go-scoring/scoring/store"
)

// HostScoreStat is one host's standing in the riskiest-hosts ranking,
// taken from its latest report.
type HostScoreStat struct {
	IP              string    `json:"ip" gorm:"column:ip"`
	Score           int       `json:"score" gorm:"column:score"`
	RiskLevel       string    `json:"riskLevel" gorm:"column:risk_level"`
	SecurityGrade   string    `json:"securityGrade" gorm:"column:security_grade"`
	ComplianceScore int       `json:"complianceScore" gorm:"column:compliance_score"`
	ScoredAt        time.Time `json:"scoredAt" gorm:"column:scored_at"`
}

// RiskiestHostsResponse is the complete response structure for the API.
type RiskiestHostsResponse struct {
	Hosts      []HostScoreStat `json:"hosts"`
	TotalHosts int             `json:"totalHosts"`
	Cached     bool            `json:"cached"`
	CachedAt   *string         `json:"cachedAt,omitempty"`
	TTL        int             `json:"ttl"`
}

const (
	// CacheKeyRiskiestHosts is the base key for caching the ranking.
	CacheKeyRiskiestHosts = "dashboard:riskiest_hosts"
	// CacheTTL is the cache time-to-live in seconds (5 minutes).
	CacheTTL = 300
)

// GetRiskiestHosts returns hosts ranked by ascending trust score, using
// only the latest report per host.
func GetRiskiestHosts(limit int) ([]HostScoreStat, error) {
	db := postgres.GetDB()
	if db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	// Latest report per host, worst scores first. Ties break on
	// compliance so the least compliant host surfaces first.
	query := `
		SELECT
			r.ip,
			r.score,
			r.risk_level,
			r.security_grade,
			r.compliance_score,
			r.scored_at
		FROM score_reports r
		INNER JOIN (
			SELECT ip, MAX(scored_at) AS latest
			FROM score_reports
			WHERE deleted_at IS NULL
			GROUP BY ip
		) l ON l.ip = r.ip AND l.latest = r.scored_at
		WHERE r.deleted_at IS NULL
		ORDER BY r.score ASC, r.compliance_score ASC
		LIMIT ?
	`

	var results []HostScoreStat
	if err := db.Raw(query, limit).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("query riskiest hosts: %w", err)
	}

	return results, nil
}

// GetRiskiestHostsCached returns cached ranking data or calculates it
// fresh, caching the result in Valkey for CacheTTL seconds. Cache
// failures fall back to direct calculation.
func GetRiskiestHostsCached(limit int) (RiskiestHostsResponse, error) {
	ctx := context.Background()
	kvStore, err := store.NewValkeyStore()
	if err != nil {
		slog.Debug("Valkey unavailable, calculating riskiest hosts fresh")
		return calculateFreshRanking(limit)
	}
	defer kvStore.Close()

	cacheKey := fmt.Sprintf("%s:%d", CacheKeyRiskiestHosts, limit)

	cached, err := kvStore.GetValue(ctx, cacheKey)
	if err == nil {
		var response RiskiestHostsResponse
		if err := json.Unmarshal([]byte(cached.Message.Value), &response); err == nil {
			response.Cached = true
			return response, nil
		}
		// Stale or corrupt cache entry; fall through to recalculate.
	}

	response, err := calculateFreshRanking(limit)
	if err != nil {
		return RiskiestHostsResponse{}, err
	}

	// Cache for the next request, best effort.
	if data, err := json.Marshal(response); err == nil {
		if err := kvStore.SetValueWithTTL(ctx, cacheKey, string(data), CacheTTL); err != nil {
			slog.Warn("Failed to cache riskiest hosts", "error", err)
		}
	}

	return response, nil
}

// calculateFreshRanking computes the ranking without consulting the cache.
func calculateFreshRanking(limit int) (RiskiestHostsResponse, error) {
	hosts, err := GetRiskiestHosts(limit)
	if err != nil {
		return RiskiestHostsResponse{}, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	return RiskiestHostsResponse{
		Hosts:      hosts,
		TotalHosts: len(hosts),
		Cached:     false,
		CachedAt:   &now,
		TTL:        CacheTTL,
	}, nil
}

// InvalidateRiskiestHostsCache clears every cached ranking variant.
// Call it after bulk report imports or any change that shifts host
// scores significantly. Invalidation is best effort.
func InvalidateRiskiestHostsCache() error {
	ctx := context.Background()
	kvStore, err := store.NewValkeyStore()
	if err != nil {
		return nil
	}
	defer kvStore.Close()

	keys, err := kvStore.ListKeys(ctx, CacheKeyRiskiestHosts+":*")
	if err != nil {
		return nil
	}

	for _, key := range keys {
		_ = kvStore.DeleteValue(ctx, key)
	}

	return nil
}
