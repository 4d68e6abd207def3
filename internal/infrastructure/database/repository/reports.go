package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scambait-lab/internal/domain/models"
)

// ErrReportNotFound is returned when no report exists for a session
var ErrReportNotFound = errors.New("engagement report not found")

// ReportRepository persists finished engagement reports
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new report repository
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// SaveReport upserts the final report for a session
func (r *ReportRepository) SaveReport(ctx context.Context, report models.EngagementReport) error {
	intelligence, err := json.Marshal(report.Intelligence)
	if err != nil {
		return fmt.Errorf("failed to marshal intelligence: %w", err)
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO engagement_reports (
			session_id, scam_detected, scam_type, risk_score,
			turn_count, intelligence, agent_notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			scam_detected = EXCLUDED.scam_detected,
			scam_type = EXCLUDED.scam_type,
			risk_score = EXCLUDED.risk_score,
			turn_count = EXCLUDED.turn_count,
			intelligence = EXCLUDED.intelligence,
			agent_notes = EXCLUDED.agent_notes`

	_, err = r.pool.Exec(ctx, query,
		report.SessionID, report.ScamDetected, report.ScamType, report.RiskScore,
		report.TurnCount, intelligence, report.AgentNotes, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save engagement report: %w", err)
	}
	return nil
}

// GetBySessionID retrieves the report for a session
func (r *ReportRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.EngagementReport, error) {
	query := `
		SELECT session_id, scam_detected, scam_type, risk_score,
			   turn_count, intelligence, agent_notes, created_at
		FROM engagement_reports
		WHERE session_id = $1`

	var (
		report       models.EngagementReport
		intelligence []byte
	)
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&report.SessionID, &report.ScamDetected, &report.ScamType, &report.RiskScore,
		&report.TurnCount, &intelligence, &report.AgentNotes, &report.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get engagement report: %w", err)
	}

	if err := json.Unmarshal(intelligence, &report.Intelligence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intelligence: %w", err)
	}
	return &report, nil
}

// List retrieves the most recent reports
func (r *ReportRepository) List(ctx context.Context, limit int) ([]*models.EngagementReport, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT session_id, scam_detected, scam_type, risk_score,
			   turn_count, intelligence, agent_notes, created_at
		FROM engagement_reports
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list engagement reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.EngagementReport
	for rows.Next() {
		var (
			report       models.EngagementReport
			intelligence []byte
		)
		if err := rows.Scan(
			&report.SessionID, &report.ScamDetected, &report.ScamType, &report.RiskScore,
			&report.TurnCount, &intelligence, &report.AgentNotes, &report.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan engagement report: %w", err)
		}
		if err := json.Unmarshal(intelligence, &report.Intelligence); err != nil {
			return nil, fmt.Errorf("failed to unmarshal intelligence: %w", err)
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}
