// Package models holds the gorm row types for persisted score reports.
package models

import (
	"time"

	"gorm.io/gorm"
)

// ScoreReport is one persisted scoring run for a host. Flags, risk
// factors and the enhancement bundle are stored as JSON text; the
// report repository owns the mapping to and from the domain type.
type ScoreReport struct {
	gorm.Model
	ReportID        string `gorm:"uniqueIndex"`
	IP              string `gorm:"index;index:idx_report_identity,unique"`
	ContentHash     string `gorm:"index:idx_report_identity,unique"`
	Score           int
	Flags           string `gorm:"type:text"`
	Summary         string
	RiskFactors     string `gorm:"type:text"`
	SecurityGrade   string
	ComplianceScore int
	TLSGrade        string
	RiskLevel       string `gorm:"index"`
	ScorerID        string
	ScorerVersion   string
	DockerExposed   bool
	MLEnhanced      bool
	MLAnalysis      string    `gorm:"type:text"`
	ScoredAt        time.Time `gorm:"index"`
}
