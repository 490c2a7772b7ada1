// Package report persists score reports and serves host scoring
// history. It is the SDK surface REST services call into; the scorers
// themselves never touch this package.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DePINScan/go-scoring/scoring"
	"github.com/DePINScan/go-scoring/scoring/postgres"
	"github.com/DePINScan/go-scoring/scoring/postgres/models"
	"github.com/DePINScan/go-scoring/scoring/queue"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaveReport upserts a report keyed by (ip, content hash): re-scoring
// the same scan input updates the existing row instead of growing the
// history. On success the report JSON is published to the
// score-reports queue, best effort.
func SaveReport(report scoring.ScoreReport) error {
	db := postgres.GetDB()
	if db == nil {
		return fmt.Errorf("database connection not available")
	}

	row, err := MapReportToModel(report)
	if err != nil {
		return err
	}

	var existing models.ScoreReport
	found, err := classifyLookup(db.Where(&models.ScoreReport{IP: row.IP, ContentHash: row.ContentHash}).First(&existing).Error)
	if err != nil {
		return fmt.Errorf("look up score report: %w", err)
	}
	if found {
		row.ReportID = existing.ReportID
		if err := db.Model(&existing).Updates(updateColumns(row)).Error; err != nil {
			return fmt.Errorf("update score report: %w", err)
		}
	} else {
		row.ReportID = uuid.NewString()
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("create score report: %w", err)
		}
	}

	slog.Info("Saved score report", "ip", report.IP, "score", report.Score, "risk", report.RiskLevel)

	// Downstream consumers are optional; a broker outage must not fail
	// the save.
	if data, err := json.Marshal(report); err == nil {
		if err := queue.Send(queue.ScoreReportsQueue, string(data)); err != nil {
			slog.Warn("Failed to publish score report", "ip", report.IP, "error", err)
		}
	}

	return nil
}

// GetLatestReport returns the most recent report for a host.
func GetLatestReport(ip string) (scoring.ScoreReport, error) {
	db := postgres.GetDB()
	if db == nil {
		return scoring.ScoreReport{}, fmt.Errorf("database connection not available")
	}

	var row models.ScoreReport
	err := db.Where("ip = ?", ip).Order("scored_at DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scoring.ScoreReport{}, fmt.Errorf("no report found for host %s", ip)
		}
		return scoring.ScoreReport{}, fmt.Errorf("get report for host %s: %w", ip, err)
	}

	return MapModelToReport(row)
}

// ReportFilters narrows a report listing.
type ReportFilters struct {
	Limit     int
	Offset    int
	IP        string
	RiskLevel string
	MinScore  *int
	MaxScore  *int
	Since     *time.Time
	Until     *time.Time
}

// ListReports returns reports matching the filters, newest first, plus
// the total matching count before pagination. Limit defaults to 50 and
// is capped at 500.
func ListReports(filters ReportFilters) ([]scoring.ScoreReport, int, error) {
	db := postgres.GetDB()
	if db == nil {
		return nil, 0, fmt.Errorf("database connection not available")
	}

	query := db.Model(&models.ScoreReport{})

	if filters.IP != "" {
		query = query.Where("ip = ?", filters.IP)
	}
	if filters.RiskLevel != "" {
		query = query.Where("risk_level = ?", filters.RiskLevel)
	}
	if filters.MinScore != nil {
		query = query.Where("score >= ?", *filters.MinScore)
	}
	if filters.MaxScore != nil {
		query = query.Where("score <= ?", *filters.MaxScore)
	}
	if filters.Since != nil {
		query = query.Where("scored_at >= ?", filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("scored_at <= ?", filters.Until)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count score reports: %w", err)
	}

	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	if filters.Limit > 500 {
		filters.Limit = 500
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	var rows []models.ScoreReport
	err := query.
		Order("scored_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("query score reports: %w", err)
	}

	reports := make([]scoring.ScoreReport, 0, len(rows))
	for _, row := range rows {
		report, err := MapModelToReport(row)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, report)
	}

	return reports, int(total), nil
}

// DeleteReports removes all persisted reports for a host.
func DeleteReports(ip string) error {
	db := postgres.GetDB()
	if db == nil {
		return fmt.Errorf("database connection not available")
	}

	if err := db.Where("ip = ?", ip).Delete(&models.ScoreReport{}).Error; err != nil {
		return fmt.Errorf("delete reports for host %s: %w", ip, err)
	}
	return nil
}

// classifyLookup separates "row exists" and "row missing" from real
// lookup failures, so a transient database error never falls through
// to Create and dies on the unique index.
func classifyLookup(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, err
	}
}

// updateColumns names every mutable report column explicitly. A
// struct-based Updates skips zero values, which would leave a stale
// score in place when a re-score clamps to 0 or flips ml_enhanced off.
func updateColumns(row models.ScoreReport) map[string]interface{} {
	return map[string]interface{}{
		"score":            row.Score,
		"flags":            row.Flags,
		"summary":          row.Summary,
		"risk_factors":     row.RiskFactors,
		"security_grade":   row.SecurityGrade,
		"compliance_score": row.ComplianceScore,
		"tls_grade":        row.TLSGrade,
		"risk_level":       row.RiskLevel,
		"scorer_id":        row.ScorerID,
		"scorer_version":   row.ScorerVersion,
		"docker_exposed":   row.DockerExposed,
		"ml_enhanced":      row.MLEnhanced,
		"ml_analysis":      row.MLAnalysis,
		"scored_at":        row.ScoredAt,
	}
}

// MapReportToModel converts a domain report into its persisted row.
func MapReportToModel(report scoring.ScoreReport) (models.ScoreReport, error) {
	flags, err := json.Marshal(report.Flags)
	if err != nil {
		return models.ScoreReport{}, fmt.Errorf("marshal flags: %w", err)
	}
	riskFactors, err := json.Marshal(report.Metrics.RiskFactors)
	if err != nil {
		return models.ScoreReport{}, fmt.Errorf("marshal risk factors: %w", err)
	}

	row := models.ScoreReport{
		IP:              report.IP,
		ContentHash:     report.ContentHash,
		Score:           report.Score,
		Flags:           string(flags),
		Summary:         report.Summary,
		RiskFactors:     string(riskFactors),
		SecurityGrade:   string(report.Metrics.SecurityGrade),
		ComplianceScore: report.Metrics.ComplianceScore,
		TLSGrade:        string(report.Metrics.TLSGrade),
		RiskLevel:       string(report.RiskLevel),
		ScorerID:        report.ScorerID,
		ScorerVersion:   report.Metrics.ScorerVersion,
		MLEnhanced:      report.MLEnhanced,
		ScoredAt:        report.Timestamp,
	}

	if report.DockerExposure != nil {
		row.DockerExposed = report.DockerExposure.Exposed
	}

	if report.MLAnalysis != nil {
		analysis, err := json.Marshal(report.MLAnalysis)
		if err != nil {
			return models.ScoreReport{}, fmt.Errorf("marshal ml analysis: %w", err)
		}
		row.MLAnalysis = string(analysis)
	}

	return row, nil
}

// MapModelToReport converts a persisted row back into a domain report.
func MapModelToReport(row models.ScoreReport) (scoring.ScoreReport, error) {
	var flags []string
	if row.Flags != "" {
		if err := json.Unmarshal([]byte(row.Flags), &flags); err != nil {
			return scoring.ScoreReport{}, fmt.Errorf("unmarshal flags: %w", err)
		}
	}

	riskFactors := map[string]scoring.Severity{}
	if row.RiskFactors != "" {
		if err := json.Unmarshal([]byte(row.RiskFactors), &riskFactors); err != nil {
			return scoring.ScoreReport{}, fmt.Errorf("unmarshal risk factors: %w", err)
		}
	}

	report := scoring.ScoreReport{
		IP:          row.IP,
		Score:       row.Score,
		Flags:       flags,
		Summary:     row.Summary,
		Timestamp:   row.ScoredAt,
		ContentHash: row.ContentHash,
		DockerExposure: &scoring.DockerExposure{
			Exposed: row.DockerExposed,
		},
		Metrics: scoring.Metrics{
			ScorerVersion:   row.ScorerVersion,
			RiskFactors:     riskFactors,
			SecurityGrade:   scoring.Grade(row.SecurityGrade),
			ComplianceScore: row.ComplianceScore,
			TLSGrade:        scoring.Grade(row.TLSGrade),
		},
		RiskLevel: scoring.RiskLevel(row.RiskLevel),
		ScorerID:  row.ScorerID,

		EnhancedAnalysis: true,
		MLEnhanced:       row.MLEnhanced,
	}

	if row.MLAnalysis != "" {
		var analysis scoring.Adjustment
		if err := json.Unmarshal([]byte(row.MLAnalysis), &analysis); err != nil {
			return scoring.ScoreReport{}, fmt.Errorf("unmarshal ml analysis: %w", err)
		}
		report.MLAnalysis = &analysis
	}

	return report, nil
}
