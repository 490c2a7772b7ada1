// Package scorer implements the host trust scoring rule engines.
//
// Two scorers are provided. BaselineScorer is a deterministic rule
// engine over a single scan record: open ports, TLS metadata and
// vulnerability descriptors, weighted by a fixed penalty table.
// EnhancedScorer wraps BaselineScorer with a secondary heuristic pass
// and merges the two results into one enriched report.
//
// Both scorers are stateless per call. A single instance may be shared
// across goroutines as long as its weights are treated as read-only
// after construction.
package scorer

import (
	"github.com/DePINScan/go-scoring/scoring"
)

// Scorer is the common contract of both scoring variants. Score never
// performs I/O and never fails on missing optional record fields.
type Scorer interface {
	Score(record scoring.ScanRecord) (scoring.ScoreReport, error)
}

// Weights maps each risk category to its point penalty. OpenPorts is
// applied per open port beyond the exposure threshold; every other
// weight is a flat penalty.
type Weights struct {
	DockerExposure   int
	SSHOpen          int
	TLSIssues        int
	Vulnerabilities  int
	OpenPorts        int
	DatabaseExposure int
}

// DefaultWeights returns the production penalty table.
func DefaultWeights() Weights {
	return Weights{
		DockerExposure:   35,
		SSHOpen:          12,
		TLSIssues:        28,
		Vulnerabilities:  18,
		OpenPorts:        2,
		DatabaseExposure: 30,
	}
}

// Well-known port groups referenced by the rule engines.
var (
	sshAltPorts   = []int{2222, 2200, 2022}
	databasePorts = []int{3306, 5432, 27017, 6379, 1433, 1521}
	webPorts      = []int{80, 443}
)

const (
	dockerPlainPort = 2375
	dockerTLSPort   = 2376
	sshPort         = 22

	// Hosts exposing more than this many ports take a per-port penalty.
	portExposureThreshold = 5
)
