package scorer

import (
	"strings"

	"github.com/DePINScan/go-scoring/scoring"
)

// Keyword tables for vulnerability severity assessment, checked in
// priority order. The first tier that matches wins.
var (
	criticalKeywords = []string{"critical", "rce", "remote code execution", "unauthenticated"}
	highKeywords     = []string{"high", "privilege escalation", "buffer overflow"}
	mediumKeywords   = []string{"medium", "dos", "denial of service", "xss"}
)

// assessVulnSeverity classifies a vulnerability by keyword match over
// the concatenated identifier and description, case-insensitive.
// Anything that matches no tier is LOW.
func assessVulnSeverity(vulnID, description string) scoring.Severity {
	text := strings.ToLower(vulnID + " " + description)

	if containsAny(text, criticalKeywords) {
		return scoring.SeverityCritical
	}
	if containsAny(text, highKeywords) {
		return scoring.SeverityHigh
	}
	if containsAny(text, mediumKeywords) {
		return scoring.SeverityMedium
	}
	return scoring.SeverityLow
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
