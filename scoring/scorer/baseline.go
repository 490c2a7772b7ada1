package scorer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/DePINScan/go-scoring/scoring"
)

// BaselineVersion is reported in the metrics of every baseline report.
const BaselineVersion = "1.0.0"

// BaselineScorer is the deterministic rule engine. It starts every host
// at 100 and subtracts weighted penalties for each finding, clamping the
// result to [0,100].
//
// Rule evaluation order is fixed: docker, SSH, TLS, vulnerabilities,
// database exposure, port count, compliance. Later rules read grade and
// flag state accumulated by earlier ones, so the order is part of the
// contract and must not be rearranged.
type BaselineScorer struct {
	version string
	weights Weights
}

// NewBaselineScorer returns a scorer using the default penalty table.
func NewBaselineScorer() *BaselineScorer {
	return &BaselineScorer{
		version: BaselineVersion,
		weights: DefaultWeights(),
	}
}

// NewBaselineScorerWithWeights returns a scorer with a custom penalty
// table. The weights are fixed for the lifetime of the scorer.
func NewBaselineScorerWithWeights(w Weights) *BaselineScorer {
	return &BaselineScorer{version: BaselineVersion, weights: w}
}

// Score evaluates one scan record and returns a fresh report. Missing
// optional fields contribute no penalty; well-formed input never fails.
func (s *BaselineScorer) Score(record scoring.ScanRecord) (scoring.ScoreReport, error) {
	score := 100.0
	flags := []string{}
	metrics := scoring.Metrics{
		ScorerVersion:   s.version,
		RiskFactors:     map[string]scoring.Severity{},
		SecurityGrade:   scoring.GradeAPlus,
		ComplianceScore: 100,
	}

	// Docker exposure. Unencrypted socket trumps the TLS socket check.
	if record.HasPort(dockerPlainPort) {
		score -= float64(s.weights.DockerExposure)
		flags = append(flags, "CRITICAL: Docker socket exposed (unencrypted)")
		metrics.RiskFactors["docker"] = scoring.SeverityCritical
		metrics.SecurityGrade = scoring.GradeF
	} else if record.HasPort(dockerTLSPort) {
		score -= 15
		flags = append(flags, "WARNING: Docker TLS socket exposed")
		metrics.RiskFactors["docker"] = scoring.SeverityMedium
	}

	// SSH exposure. The alternate-port check is independent of port 22
	// and both can fire on the same host.
	if record.HasPort(sshPort) {
		score -= float64(s.weights.SSHOpen)
		flags = append(flags, "SSH port exposed")
		metrics.RiskFactors["ssh"] = scoring.SeverityMedium
	}
	if alt := record.PortsIn(sshAltPorts); len(alt) > 0 {
		score -= 8
		flags = append(flags, fmt.Sprintf("Alternative SSH ports detected: %v", alt))
	}

	// TLS posture. Absent TLS, a self-signed or missing issuer, or a
	// missing expiry all count as a critical configuration issue. An F
	// grade from an earlier rule is never downgraded to D.
	if tlsHasIssues(record.TLS) {
		score -= float64(s.weights.TLSIssues)
		flags = append(flags, "TLS configuration critical issues")
		metrics.RiskFactors["tls"] = scoring.SeverityCritical
		if metrics.SecurityGrade != scoring.GradeF {
			metrics.SecurityGrade = scoring.GradeD
		}
	} else {
		metrics.TLSGrade = gradeTLSIssuer(record.TLS.Issuer)
	}

	// Vulnerabilities. Go maps carry no insertion order, so IDs are
	// walked in sorted order to keep flag order deterministic.
	for _, vulnID := range sortedVulnIDs(record.Vulns) {
		severity := assessVulnSeverity(vulnID, record.Vulns[vulnID])
		penalty := float64(s.weights.Vulnerabilities)
		switch severity {
		case scoring.SeverityCritical:
			penalty *= 1.5
		case scoring.SeverityHigh:
			penalty *= 1.2
		}
		score -= penalty
		flags = append(flags, fmt.Sprintf("Vulnerability: %s (%s)", vulnID, severity))
		metrics.RiskFactors["vuln_"+vulnID] = severity
	}

	// Database exposure: one flat penalty however many ports matched.
	if dbPorts := record.PortsIn(databasePorts); len(dbPorts) > 0 {
		score -= float64(s.weights.DatabaseExposure)
		flags = append(flags, fmt.Sprintf("CRITICAL: Database ports exposed: %v", dbPorts))
		metrics.RiskFactors["database"] = scoring.SeverityCritical
		metrics.SecurityGrade = scoring.GradeF
	}

	// Broad port exposure.
	if n := len(record.OpenPorts); n > portExposureThreshold {
		score -= float64((n - portExposureThreshold) * s.weights.OpenPorts)
		flags = append(flags, fmt.Sprintf("Excessive port exposure: %d ports", n))
	}

	// Compliance tracks the number of CRITICAL-labelled flags.
	critical := 0
	for _, f := range flags {
		if strings.Contains(f, "CRITICAL") {
			critical++
		}
	}
	metrics.ComplianceScore = max(0, 100-critical*25)

	final := clampScore(score)
	riskLevel := classifyRisk(final, metrics.SecurityGrade)

	docker := record.DockerExposure
	if docker == nil {
		docker = &scoring.DockerExposure{Exposed: false}
	}

	return scoring.ScoreReport{
		IP:             record.IP,
		Score:          final,
		Flags:          flags,
		Summary:        fmt.Sprintf("Trust Score: %d/100 (v%s). Grade: %s. Risk: %s", final, s.version, metrics.SecurityGrade, riskLevel),
		Timestamp:      time.Now().UTC(),
		ContentHash:    record.ContentHash(),
		DockerExposure: docker,
		Metrics:        metrics,
		RiskLevel:      riskLevel,
		ScorerID:       "scorer.BaselineScorer",

		EnhancedAnalysis: true,
	}, nil
}

// tlsHasIssues reports whether the TLS metadata counts as a critical
// configuration issue.
func tlsHasIssues(tls *scoring.TLSInfo) bool {
	if tls == nil {
		return true
	}
	if tls.Issuer == "" || tls.Issuer == "Self-signed" {
		return true
	}
	return tls.Expiry == ""
}

// gradeTLSIssuer classifies a valid certificate by its issuing CA.
func gradeTLSIssuer(issuer string) scoring.Grade {
	lower := strings.ToLower(issuer)
	if strings.Contains(lower, "let's encrypt") {
		return scoring.GradeB
	}
	for _, ca := range []string{"digicert", "comodo", "globalsign"} {
		if strings.Contains(lower, ca) {
			return scoring.GradeA
		}
	}
	return scoring.GradeC
}

// sortedVulnIDs returns the vulnerability identifiers in lexical order.
func sortedVulnIDs(vulns map[string]string) []string {
	ids := make([]string, 0, len(vulns))
	for id := range vulns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// clampScore rounds the accumulated score and clamps it to [0,100].
// Vulnerability multipliers can leave fractional penalties, so rounding
// happens once at the end.
func clampScore(score float64) int {
	n := int(math.Round(score))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// classifyRisk derives the coarse risk level from score and grade.
// Thresholds are ordered; the first match wins.
func classifyRisk(score int, grade scoring.Grade) scoring.RiskLevel {
	switch {
	case score >= 95 && (grade == scoring.GradeAPlus || grade == scoring.GradeA):
		return scoring.RiskMinimal
	case score >= 85 && (grade == scoring.GradeAPlus || grade == scoring.GradeA || grade == scoring.GradeB):
		return scoring.RiskLow
	case score >= 70:
		return scoring.RiskModerate
	case score >= 50:
		return scoring.RiskHigh
	default:
		return scoring.RiskCritical
	}
}
