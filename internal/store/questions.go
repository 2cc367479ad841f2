package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/baisoku/sonar/internal/phase"
	"github.com/baisoku/sonar/internal/survey"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const questionColumns = `id, session_id, question_index, statement, detail, options, phase, source, question_type, scale_config, created_at`

// InsertQuestions writes a whole batch in one transaction.
func (s *Postgres) InsertQuestions(ctx context.Context, qs []survey.Question) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, q := range qs {
		scale, err := marshalScale(q.Scale)
		if err != nil {
			return err
		}
		options := q.Options
		if options == nil {
			options = []string{}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO questions (`+questionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			q.ID, q.SessionID, q.Index, q.Statement, q.Detail, options,
			string(q.Phase), string(q.Source), string(q.Type), scale, q.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", q.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Postgres) ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]survey.Question, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+questionColumns+`
		FROM questions WHERE session_id = $1
		ORDER BY question_index`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []survey.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func (s *Postgres) GetQuestion(ctx context.Context, sessionID, questionID uuid.UUID) (*survey.Question, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+questionColumns+`
		FROM questions WHERE session_id = $1 AND id = $2`, sessionID, questionID)
	return scanQuestion(row)
}

func scanQuestion(row pgx.Row) (*survey.Question, error) {
	var (
		q                        survey.Question
		ph, source, questionType string
		scale                    []byte
	)
	err := row.Scan(&q.ID, &q.SessionID, &q.Index, &q.Statement, &q.Detail, &q.Options,
		&ph, &source, &questionType, &scale, &q.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	q.Phase = phase.Phase(ph)
	q.Source = survey.Source(source)
	q.Type = answer.QuestionType(questionType)
	if len(scale) > 0 {
		var sc answer.ScaleConfig
		if err := json.Unmarshal(scale, &sc); err != nil {
			return nil, fmt.Errorf("decode scale config: %w", err)
		}
		q.Scale = &sc
	}
	return &q, nil
}

func marshalScale(sc *answer.ScaleConfig) ([]byte, error) {
	if sc == nil {
		return nil, nil
	}
	b, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("marshal scale config: %w", err)
	}
	return b, nil
}
