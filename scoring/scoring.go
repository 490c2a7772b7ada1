// Package scoring defines the shared data model for the DePINScan host
// trust scoring SDK: the scan record consumed by the scorers and the
// score report they produce.
package scoring

import (
	"time"
)

// Severity classifies a single risk factor.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Grade is a coarse letter grade (A+ through F) summarizing posture.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
)

// RiskLevel is the final coarse classification derived from score and grade.
type RiskLevel string

const (
	RiskMinimal  RiskLevel = "MINIMAL"
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// TLSInfo carries the TLS certificate metadata observed by the scanner.
// An empty Issuer or the literal "Self-signed" counts as a TLS issue.
type TLSInfo struct {
	Issuer string `json:"issuer,omitempty"`
	Expiry string `json:"expiry,omitempty"`
}

// DockerExposure describes whether a container-management endpoint was
// observed on the host. It is echoed through to the report unchanged;
// the port checks are the scoring evidence.
type DockerExposure struct {
	Exposed  bool   `json:"exposed"`
	Endpoint string `json:"endpoint,omitempty"`
}

// ScanRecord is one scan result for a single host, as produced by the
// scanner pipeline. All fields except IP are optional; a missing field
// is treated as "no evidence" by the scorers, never as an error.
type ScanRecord struct {
	IP             string            `json:"ip" validate:"required"`
	OpenPorts      []int             `json:"open_ports,omitempty" validate:"dive,gte=0,lte=65535"`
	TLS            *TLSInfo          `json:"tls,omitempty"`
	Vulns          map[string]string `json:"vulns,omitempty"`
	DockerExposure *DockerExposure   `json:"docker_exposure,omitempty"`
}

// HasPort reports whether the record lists the given open port.
func (r ScanRecord) HasPort(port int) bool {
	for _, p := range r.OpenPorts {
		if p == port {
			return true
		}
	}
	return false
}

// PortsIn returns the record's open ports that appear in the given set,
// preserving the record's port order.
func (r ScanRecord) PortsIn(set []int) []int {
	var matched []int
	for _, p := range r.OpenPorts {
		for _, s := range set {
			if p == s {
				matched = append(matched, p)
				break
			}
		}
	}
	return matched
}

// Metrics is the structured sub-object of a report holding per-category
// risk classification and posture grading.
type Metrics struct {
	ScorerVersion   string              `json:"scorer_version"`
	RiskFactors     map[string]Severity `json:"risk_factors"`
	SecurityGrade   Grade               `json:"security_grade"`
	ComplianceScore int                 `json:"compliance_score"`
	TLSGrade        Grade               `json:"tls_grade,omitempty"`
}

// Adjustment is the secondary heuristic pass's bundle prior to merging
// into the base report: score delta, flags, risk label, confidence and
// the list of analysis methods applied.
type Adjustment struct {
	ScoreAdjustment int       `json:"score_adjustment"`
	Flags           []string  `json:"ml_flags"`
	RiskLevel       RiskLevel `json:"ml_risk_level"`
	Confidence      float64   `json:"ml_confidence"`
	Methods         []string  `json:"analysis_methods"`
}

// ScoreReport is the immutable output of one Score call. Every field is
// JSON-serializable so reports can cross process boundaries.
type ScoreReport struct {
	IP             string          `json:"ip"`
	Score          int             `json:"score"`
	Flags          []string        `json:"flags"`
	Summary        string          `json:"summary"`
	Timestamp      time.Time       `json:"timestamp"`
	ContentHash    string          `json:"hash"`
	DockerExposure *DockerExposure `json:"docker_exposure"`
	Metrics        Metrics         `json:"metrics"`
	RiskLevel      RiskLevel       `json:"risk_level"`
	ScorerID       string          `json:"scorer_id"`

	EnhancedAnalysis bool        `json:"enhanced_analysis"`
	MLEnhanced       bool        `json:"ml_enhanced,omitempty"`
	MLAnalysis       *Adjustment `json:"ml_analysis,omitempty"`
}
