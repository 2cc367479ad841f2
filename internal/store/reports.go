package store

import (
	"context"
	"fmt"

	"github.com/baisoku/sonar/internal/survey"
	"github.com/google/uuid"
)

func (s *Postgres) UpsertAnalysis(ctx context.Context, a *survey.Analysis) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO analyses (id, session_id, batch_index, start_index, end_index, analysis_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, batch_index) DO UPDATE SET
			analysis_text = EXCLUDED.analysis_text,
			created_at = EXCLUDED.created_at`,
		a.ID, a.SessionID, a.BatchIndex, a.StartIndex, a.EndIndex, a.Text, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

func (s *Postgres) ListAnalyses(ctx context.Context, sessionID uuid.UUID) ([]survey.Analysis, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, batch_index, start_index, end_index, analysis_text, created_at
		FROM analyses WHERE session_id = $1
		ORDER BY batch_index`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []survey.Analysis
	for rows.Next() {
		var a survey.Analysis
		if err := rows.Scan(&a.ID, &a.SessionID, &a.BatchIndex, &a.StartIndex, &a.EndIndex, &a.Text, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateReport inserts text as version max(version)+1 for the session.
func (s *Postgres) CreateReport(ctx context.Context, sessionID uuid.UUID, text string) (*survey.Report, error) {
	r := survey.Report{ID: uuid.New(), SessionID: sessionID, Text: text}
	err := s.db.QueryRow(ctx, `
		INSERT INTO reports (id, session_id, version, report_text, created_at)
		SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, now()
		FROM reports WHERE session_id = $2
		RETURNING version, created_at`,
		r.ID, sessionID, text,
	).Scan(&r.Version, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	return &r, nil
}

func (s *Postgres) LatestReport(ctx context.Context, sessionID uuid.UUID) (*survey.Report, error) {
	var r survey.Report
	err := s.db.QueryRow(ctx, `
		SELECT id, session_id, version, report_text, created_at
		FROM reports WHERE session_id = $1
		ORDER BY version DESC LIMIT 1`, sessionID,
	).Scan(&r.ID, &r.SessionID, &r.Version, &r.Text, &r.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}
