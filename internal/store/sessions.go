package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/baisoku/sonar/internal/survey"
	"github.com/google/uuid"
)

func (s *Postgres) CreateSession(ctx context.Context, sess *survey.Session) error {
	fixed, err := json.Marshal(nonNilFixed(sess.FixedQuestions))
	if err != nil {
		return fmt.Errorf("marshal fixed questions: %w", err)
	}
	themes, err := json.Marshal(nonNilStrings(sess.ExplorationThemes))
	if err != nil {
		return fmt.Errorf("marshal themes: %w", err)
	}
	profile, err := json.Marshal(sess.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO sessions (id, title, purpose, background_text, report_instructions, fixed_questions,
			exploration_themes, report_target, phase_profile, status, current_question_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sess.ID, sess.Title, sess.Purpose, sess.BackgroundText, sess.ReportInstructions, fixed,
		themes, sess.ReportTarget, profile, string(sess.Status), sess.CurrentQuestionIndex, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Postgres) GetSession(ctx context.Context, id uuid.UUID) (*survey.Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, title, purpose, background_text, report_instructions, fixed_questions, exploration_themes,
			report_target, phase_profile, status, current_question_index, created_at, updated_at
		FROM sessions WHERE id = $1`, id)

	var (
		sess                   survey.Session
		fixed, themes, profile []byte
		status                 string
	)
	err := row.Scan(&sess.ID, &sess.Title, &sess.Purpose, &sess.BackgroundText, &sess.ReportInstructions,
		&fixed, &themes, &sess.ReportTarget, &profile, &status, &sess.CurrentQuestionIndex,
		&sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	sess.Status = survey.Status(status)

	if err := json.Unmarshal(fixed, &sess.FixedQuestions); err != nil {
		return nil, fmt.Errorf("decode fixed questions: %w", err)
	}
	if err := json.Unmarshal(themes, &sess.ExplorationThemes); err != nil {
		return nil, fmt.Errorf("decode themes: %w", err)
	}
	if err := json.Unmarshal(profile, &sess.Profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &sess, nil
}

func (s *Postgres) UpdateProgress(ctx context.Context, id uuid.UUID, currentIndex int) error {
	return s.updateSession(ctx, `
		UPDATE sessions SET current_question_index = $1, updated_at = now() WHERE id = $2`,
		currentIndex, id)
}

func (s *Postgres) UpdateStatus(ctx context.Context, id uuid.UUID, status survey.Status) error {
	return s.updateSession(ctx, `
		UPDATE sessions SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id)
}

func (s *Postgres) updateSession(ctx context.Context, sql string, args ...any) error {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return survey.ErrNotFound
	}
	return nil
}

func nonNilFixed(fq []survey.FixedQuestion) []survey.FixedQuestion {
	if fq == nil {
		return []survey.FixedQuestion{}
	}
	return fq
}

func nonNilStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
