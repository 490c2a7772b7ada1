package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DePINScan/go-scoring/scoring"
)

// DefaultReportTTL is how long a cached report lives, in seconds.
const DefaultReportTTL = 3600

// reportKeyPrefix namespaces cached score reports in Valkey.
const reportKeyPrefix = "score:report"

// ReportCache stores score reports keyed by host IP and input content
// hash. The content hash makes the cache a dedup/audit index: the same
// scan input always lands on the same key.
type ReportCache struct {
	kv  KVStore
	ttl int
}

// NewReportCache returns a cache over the given KV store with the
// default TTL.
func NewReportCache(kv KVStore) *ReportCache {
	return &ReportCache{kv: kv, ttl: DefaultReportTTL}
}

// NewReportCacheWithTTL returns a cache with a custom TTL in seconds.
// A non-positive TTL stores entries without expiry.
func NewReportCacheWithTTL(kv KVStore, ttlSeconds int) *ReportCache {
	return &ReportCache{kv: kv, ttl: ttlSeconds}
}

// Put stores the report under score:report:<ip>:<hash>.
func (c *ReportCache) Put(ctx context.Context, report scoring.ScoreReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal score report: %w", err)
	}

	key := reportKey(report.IP, report.ContentHash)
	if c.ttl > 0 {
		return c.kv.SetValueWithTTL(ctx, key, string(data), c.ttl)
	}
	return c.kv.SetValue(ctx, key, string(data))
}

// Get retrieves the cached report for the given host and content hash.
func (c *ReportCache) Get(ctx context.Context, ip, contentHash string) (scoring.ScoreReport, error) {
	resp, err := c.kv.GetValue(ctx, reportKey(ip, contentHash))
	if err != nil {
		return scoring.ScoreReport{}, fmt.Errorf("report not cached for %s: %w", ip, err)
	}

	var report scoring.ScoreReport
	if err := json.Unmarshal([]byte(resp.Message.Value), &report); err != nil {
		return scoring.ScoreReport{}, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}
	return report, nil
}

// ListHashes returns the content hashes cached for a host, one per
// distinct scan input seen.
func (c *ReportCache) ListHashes(ctx context.Context, ip string) ([]string, error) {
	prefix := fmt.Sprintf("%s:%s:", reportKeyPrefix, ip)
	keys, err := c.kv.ListKeys(ctx, prefix+"*")
	if err != nil {
		return nil, err
	}

	hashes := make([]string, 0, len(keys))
	for _, key := range keys {
		if len(key) > len(prefix) {
			hashes = append(hashes, key[len(prefix):])
		}
	}
	return hashes, nil
}

// Invalidate removes the cached report for the given host and hash.
func (c *ReportCache) Invalidate(ctx context.Context, ip, contentHash string) error {
	return c.kv.DeleteValue(ctx, reportKey(ip, contentHash))
}

func reportKey(ip, contentHash string) string {
	return fmt.Sprintf("%s:%s:%s", reportKeyPrefix, ip, contentHash)
}
