package scorer

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/DePINScan/go-scoring/scoring"
)

// EnhancedVersion is reported in the metrics of every enhanced report.
const EnhancedVersion = "2.0.0-enhanced"

// enhancedConfidence is the fixed confidence attached to every
// adjustment bundle. The secondary pass is deterministic heuristics,
// not a trained model, so the value is a constant.
const enhancedConfidence = 0.85

// Port groups that, when fully present, mark a suspicious pattern.
var attackPatterns = [][]int{
	{80, 443, 8080, 8443}, // web service enumeration
	{21, 22, 23, 25},      // legacy service enumeration
	{3306, 5432, 27017},   // database enumeration
}

// EnhancedScorer layers a secondary heuristic pass on top of
// BaselineScorer and merges the two results. It satisfies the same
// Scorer contract as the baseline and is substitutable for it; the
// merged report is a superset of the baseline's fields.
//
// The composition is deliberate: the baseline result is consumed as a
// black box and never mutated, which keeps both engines independently
// testable.
type EnhancedScorer struct {
	base    *BaselineScorer
	version string
}

// NewEnhancedScorer returns an enhanced scorer over a default baseline.
func NewEnhancedScorer() *EnhancedScorer {
	return &EnhancedScorer{
		base:    NewBaselineScorer(),
		version: EnhancedVersion,
	}
}

// Score runs the baseline engine, computes the adjustment bundle from
// the same record, and returns the merged report.
func (s *EnhancedScorer) Score(record scoring.ScanRecord) (scoring.ScoreReport, error) {
	base, err := s.base.Score(record)
	if err != nil {
		return scoring.ScoreReport{}, err
	}

	adj := s.analyze(record)

	merged := base
	merged.Score = clampScore(float64(base.Score + adj.ScoreAdjustment))

	// Append without touching the baseline's backing array.
	flags := make([]string, 0, len(base.Flags)+len(adj.Flags))
	flags = append(flags, base.Flags...)
	flags = append(flags, adj.Flags...)
	merged.Flags = flags

	merged.Summary = fmt.Sprintf("Enhanced ML Score: %d/100 (v%s). ML Risk: %s", merged.Score, s.version, adj.RiskLevel)
	merged.Metrics.ScorerVersion = s.version
	merged.ScorerID = "scorer.EnhancedScorer"
	merged.MLEnhanced = true
	merged.MLAnalysis = &adj

	return merged, nil
}

// analyze computes the adjustment bundle. Each heuristic is evaluated
// in fixed order so the appended flags are deterministic.
func (s *EnhancedScorer) analyze(record scoring.ScanRecord) scoring.Adjustment {
	adjustment := 0
	flags := []string{}

	if suspiciousPortPattern(record.OpenPorts) {
		adjustment -= 15
		flags = append(flags, "ML: Suspicious port pattern detected")
	}

	if geographicRisk(record.IP) > 0.7 {
		adjustment -= 10
		flags = append(flags, "ML: High geographic risk detected")
	}

	if behavioralAnomaly(record) {
		adjustment -= 20
		flags = append(flags, "ML: Behavioral anomaly detected")
	}

	if securityBestPractices(record) {
		adjustment += 5
		flags = append(flags, "ML: Security best practices detected")
	}

	return scoring.Adjustment{
		ScoreAdjustment: adjustment,
		Flags:           flags,
		RiskLevel:       adjustmentRiskLevel(adjustment),
		Confidence:      enhancedConfidence,
		Methods:         []string{"port_pattern", "geo_risk", "behavioral", "best_practices"},
	}
}

// suspiciousPortPattern fires on very broad exposure or when any known
// attack-pattern port group is fully present.
func suspiciousPortPattern(ports []int) bool {
	if len(ports) > 10 {
		return true
	}
	for _, pattern := range attackPatterns {
		all := true
		for _, want := range pattern {
			found := false
			for _, p := range ports {
				if p == want {
					found = true
					break
				}
			}
			if !found {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// geographicRisk maps an IP string to a pseudo-risk in [0,1). Private
// ranges are low risk and loopback is zero; everything else derives a
// deterministic value from an MD5 of the address. This is a documented
// placeholder, not real geolocation, and downstream expectations depend
// on it staying deterministic.
func geographicRisk(ip string) float64 {
	for _, prefix := range []string{"192.168.", "10.", "172."} {
		if strings.HasPrefix(ip, prefix) {
			return 0.1
		}
	}
	if strings.HasPrefix(ip, "127.") {
		return 0.0
	}

	sum := md5.Sum([]byte(ip))
	v := binary.BigEndian.Uint32(sum[:4])
	return float64(v%100) / 100.0
}

// behavioralAnomaly fires only when SSH, a database port, a web port
// and the unencrypted Docker socket are all exposed together — the
// combination pattern of a compromised node.
func behavioralAnomaly(record scoring.ScanRecord) bool {
	hasSSH := record.HasPort(sshPort)
	hasDB := len(record.PortsIn([]int{3306, 5432, 27017})) > 0
	hasWeb := len(record.PortsIn(webPorts)) > 0
	hasDocker := record.HasPort(dockerPlainPort)

	return hasSSH && hasDB && hasWeb && hasDocker
}

// securityBestPractices awards the bonus to hosts serving HTTPS without
// plain HTTP, with a real certificate issuer and minimal port exposure.
func securityBestPractices(record scoring.ScanRecord) bool {
	if !record.HasPort(443) || record.HasPort(80) {
		return false
	}
	if record.TLS == nil || record.TLS.Issuer == "" || record.TLS.Issuer == "Self-signed" {
		return false
	}
	return len(record.OpenPorts) <= 3
}

// adjustmentRiskLevel labels the bundle by its total score delta.
func adjustmentRiskLevel(adjustment int) scoring.RiskLevel {
	switch {
	case adjustment >= 0:
		return scoring.RiskLow
	case adjustment >= -10:
		return scoring.RiskModerate
	case adjustment >= -20:
		return scoring.RiskHigh
	default:
		return scoring.RiskCritical
	}
}
