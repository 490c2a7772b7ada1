package scorer

import (
	"testing"

	"github.com/DePINScan/go-scoring/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both scorers expose the same contract and are interchangeable.
var (
	_ Scorer = (*BaselineScorer)(nil)
	_ Scorer = (*EnhancedScorer)(nil)
)

func TestEnhancedBehavioralAnomaly(t *testing.T) {
	s := NewEnhancedScorer()
	base := NewBaselineScorer()

	// SSH + database + web + unencrypted Docker socket together.
	record := scoring.ScanRecord{
		IP:        "10.0.0.9",
		OpenPorts: []int{22, 3306, 80, 2375},
	}

	baseline, err := base.Score(record)
	require.NoError(t, err)
	enhanced, err := s.Score(record)
	require.NoError(t, err)

	require.NotNil(t, enhanced.MLAnalysis)
	assert.Equal(t, -20, enhanced.MLAnalysis.ScoreAdjustment)
	assert.Equal(t, []string{"ML: Behavioral anomaly detected"}, enhanced.MLAnalysis.Flags)
	assert.Equal(t, scoring.RiskHigh, enhanced.MLAnalysis.RiskLevel)

	// Baseline already clamps to 0 here; the adjustment cannot go lower.
	assert.Equal(t, 0, baseline.Score)
	assert.Equal(t, 0, enhanced.Score)

	// Enhanced flags are exactly the baseline flags plus the ML flags,
	// in order.
	assert.Equal(t, append(append([]string{}, baseline.Flags...), "ML: Behavioral anomaly detected"), enhanced.Flags)
}

func TestEnhancedBestPracticeBonus(t *testing.T) {
	s := NewEnhancedScorer()

	record := scoring.ScanRecord{
		IP:        "192.168.1.10",
		OpenPorts: []int{443},
		TLS:       &scoring.TLSInfo{Issuer: "DigiCert", Expiry: "2030-01-01"},
	}

	enhanced, err := s.Score(record)
	require.NoError(t, err)

	require.NotNil(t, enhanced.MLAnalysis)
	assert.Equal(t, 5, enhanced.MLAnalysis.ScoreAdjustment)
	assert.Equal(t, []string{"ML: Security best practices detected"}, enhanced.MLAnalysis.Flags)
	assert.Equal(t, scoring.RiskLow, enhanced.MLAnalysis.RiskLevel)

	// Baseline was already 100; the bonus clamps at the ceiling.
	assert.Equal(t, 100, enhanced.Score)
	assert.Equal(t, []string{"ML: Security best practices detected"}, enhanced.Flags)
}

func TestEnhancedBestPracticeRequiresAllConditions(t *testing.T) {
	s := NewEnhancedScorer()

	records := []scoring.ScanRecord{
		// HTTP alongside HTTPS.
		{IP: "192.168.1.11", OpenPorts: []int{443, 80}, TLS: &scoring.TLSInfo{Issuer: "DigiCert", Expiry: "2030-01-01"}},
		// Self-signed certificate.
		{IP: "192.168.1.12", OpenPorts: []int{443}, TLS: &scoring.TLSInfo{Issuer: "Self-signed", Expiry: "2030-01-01"}},
		// Too many open ports.
		{IP: "192.168.1.13", OpenPorts: []int{443, 7001, 7002, 7003}, TLS: &scoring.TLSInfo{Issuer: "DigiCert", Expiry: "2030-01-01"}},
		// No TLS metadata at all.
		{IP: "192.168.1.14", OpenPorts: []int{443}},
	}

	for _, record := range records {
		enhanced, err := s.Score(record)
		require.NoError(t, err)
		assert.NotContains(t, enhanced.Flags, "ML: Security best practices detected", "record %s", record.IP)
	}
}

func TestEnhancedSuspiciousPortPatterns(t *testing.T) {
	// More than ten open ports.
	assert.True(t, suspiciousPortPattern([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}))

	// Each attack-pattern group, fully present.
	assert.True(t, suspiciousPortPattern([]int{80, 443, 8080, 8443}))
	assert.True(t, suspiciousPortPattern([]int{21, 22, 23, 25}))
	assert.True(t, suspiciousPortPattern([]int{3306, 5432, 27017}))

	// Group order in the scan does not matter; extras are fine.
	assert.True(t, suspiciousPortPattern([]int{9999, 8443, 443, 8080, 80}))

	// Partial groups do not fire.
	assert.False(t, suspiciousPortPattern([]int{80, 443, 8080}))
	assert.False(t, suspiciousPortPattern([]int{22, 23}))
	assert.False(t, suspiciousPortPattern(nil))
}

func TestEnhancedSuspiciousPatternAdjustment(t *testing.T) {
	s := NewEnhancedScorer()

	enhanced, err := s.Score(scoring.ScanRecord{
		IP:        "192.168.5.5",
		OpenPorts: []int{80, 443, 8080, 8443},
		TLS:       &scoring.TLSInfo{Issuer: "DigiCert", Expiry: "2030-01-01"},
	})
	require.NoError(t, err)

	require.NotNil(t, enhanced.MLAnalysis)
	assert.Equal(t, -15, enhanced.MLAnalysis.ScoreAdjustment)
	assert.Contains(t, enhanced.Flags, "ML: Suspicious port pattern detected")
	assert.Equal(t, scoring.RiskHigh, enhanced.MLAnalysis.RiskLevel)
}

func TestEnhancedGeographicRiskAdjustment(t *testing.T) {
	s := NewEnhancedScorer()

	// 203.0.113.3 derives a pseudo-risk of 0.71, over the 0.7 cutoff.
	require.InDelta(t, 0.71, geographicRisk("203.0.113.3"), 1e-9)

	enhanced, err := s.Score(scoring.ScanRecord{
		IP:        "203.0.113.3",
		OpenPorts: []int{443},
		TLS:       &scoring.TLSInfo{Issuer: "DigiCert", Expiry: "2030-01-01"},
	})
	require.NoError(t, err)

	require.NotNil(t, enhanced.MLAnalysis)
	// Geo risk -10 plus the best-practice bonus +5.
	assert.Equal(t, -5, enhanced.MLAnalysis.ScoreAdjustment)
	assert.Equal(t, []string{
		"ML: High geographic risk detected",
		"ML: Security best practices detected",
	}, enhanced.MLAnalysis.Flags)
	assert.Equal(t, scoring.RiskModerate, enhanced.MLAnalysis.RiskLevel)

	// Baseline was 100 (single HTTPS port, valid certificate).
	assert.Equal(t, 95, enhanced.Score)
	assert.Contains(t, enhanced.Flags, "ML: High geographic risk detected")

	// Same host without the bonus conditions takes the full -10.
	plain, err := s.Score(scoring.ScanRecord{
		IP:        "203.0.113.3",
		OpenPorts: []int{443, 80},
		TLS:       &scoring.TLSInfo{Issuer: "DigiCert", Expiry: "2030-01-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, -10, plain.MLAnalysis.ScoreAdjustment)
	assert.Equal(t, []string{"ML: High geographic risk detected"}, plain.MLAnalysis.Flags)
}

func TestGeographicRisk(t *testing.T) {
	// Private ranges and loopback are fixed values.
	assert.Equal(t, 0.1, geographicRisk("192.168.1.1"))
	assert.Equal(t, 0.1, geographicRisk("10.20.30.40"))
	assert.Equal(t, 0.1, geographicRisk("172.16.0.1"))
	assert.Equal(t, 0.0, geographicRisk("127.0.0.1"))

	// Public addresses get a deterministic pseudo-risk in [0,1).
	for _, ip := range []string{"203.0.113.7", "198.51.100.23", "8.8.8.8"} {
		risk := geographicRisk(ip)
		assert.GreaterOrEqual(t, risk, 0.0)
		assert.Less(t, risk, 1.0)
		assert.Equal(t, risk, geographicRisk(ip), "must be stable for %s", ip)
	}
}

func TestAdjustmentRiskLevels(t *testing.T) {
	cases := []struct {
		adjustment int
		want       scoring.RiskLevel
	}{
		{5, scoring.RiskLow},
		{0, scoring.RiskLow},
		{-5, scoring.RiskModerate},
		{-10, scoring.RiskModerate},
		{-15, scoring.RiskHigh},
		{-20, scoring.RiskHigh},
		{-25, scoring.RiskCritical},
		{-45, scoring.RiskCritical},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, adjustmentRiskLevel(tc.adjustment), "adjustment %d", tc.adjustment)
	}
}

func TestEnhancedMergePreservesBaselineFields(t *testing.T) {
	s := NewEnhancedScorer()
	base := NewBaselineScorer()

	record := scoring.ScanRecord{
		IP:        "10.1.2.3",
		OpenPorts: []int{22},
		Vulns:     map[string]string{"CVE-1": "rce"},
	}

	baseline, err := base.Score(record)
	require.NoError(t, err)
	enhanced, err := s.Score(record)
	require.NoError(t, err)

	assert.Equal(t, baseline.IP, enhanced.IP)
	assert.Equal(t, baseline.ContentHash, enhanced.ContentHash)
	assert.Equal(t, baseline.RiskLevel, enhanced.RiskLevel)
	assert.Equal(t, baseline.Metrics.SecurityGrade, enhanced.Metrics.SecurityGrade)
	assert.Equal(t, baseline.Metrics.RiskFactors, enhanced.Metrics.RiskFactors)
	assert.Equal(t, baseline.Metrics.ComplianceScore, enhanced.Metrics.ComplianceScore)
	assert.Equal(t, baseline.DockerExposure, enhanced.DockerExposure)

	// Overridden fields.
	assert.Equal(t, "scorer.EnhancedScorer", enhanced.ScorerID)
	assert.Equal(t, EnhancedVersion, enhanced.Metrics.ScorerVersion)
	assert.True(t, enhanced.MLEnhanced)
	assert.Contains(t, enhanced.Summary, "Enhanced ML Score:")
	require.NotNil(t, enhanced.MLAnalysis)
	assert.Equal(t, 0.85, enhanced.MLAnalysis.Confidence)
	assert.Equal(t, []string{"port_pattern", "geo_risk", "behavioral", "best_practices"}, enhanced.MLAnalysis.Methods)
}

func TestEnhancedAdjustedScoreEqualsClampedSum(t *testing.T) {
	s := NewEnhancedScorer()
	base := NewBaselineScorer()

	// No ML rule fires: private IP, single safe port, good TLS but four
	// ports so the best-practice bonus stays off.
	record := scoring.ScanRecord{
		IP:        "192.168.9.9",
		OpenPorts: []int{443, 7001, 7002, 7003},
		TLS:       &scoring.TLSInfo{Issuer: "DigiCert", Expiry: "2030-01-01"},
	}

	baseline, err := base.Score(record)
	require.NoError(t, err)
	enhanced, err := s.Score(record)
	require.NoError(t, err)

	assert.Equal(t, 0, enhanced.MLAnalysis.ScoreAdjustment)
	assert.Equal(t, baseline.Score, enhanced.Score)
	assert.Equal(t, baseline.Flags, enhanced.Flags)
	assert.Equal(t, scoring.RiskLow, enhanced.MLAnalysis.RiskLevel)
}

func TestEnhancedDoesNotMutateBaselineFlags(t *testing.T) {
	s := NewEnhancedScorer()
	record := scoring.ScanRecord{
		IP:        "192.168.1.20",
		OpenPorts: []int{443},
		TLS:       &scoring.TLSInfo{Issuer: "DigiCert", Expiry: "2030-01-01"},
	}

	enhanced, err := s.Score(record)
	require.NoError(t, err)

	// A second run must produce the same merged flags; shared backing
	// arrays between runs would corrupt this.
	again, err := s.Score(record)
	require.NoError(t, err)
	assert.Equal(t, enhanced.Flags, again.Flags)

	baseline, err := s.base.Score(record)
	require.NoError(t, err)
	assert.NotContains(t, baseline.Flags, "ML: Security best practices detected")
}
