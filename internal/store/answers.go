package store

import (
	"context"
	"fmt"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/google/uuid"
)

// UpsertAnswer writes rec, replacing every payload column of an earlier answer
// to the same question so stale fields never survive a type change.
func (s *Postgres) UpsertAnswer(ctx context.Context, rec answer.Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO answers (session_id, question_id, selected_option, free_text, selected_options, answer_text)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, question_id) DO UPDATE SET
			selected_option = EXCLUDED.selected_option,
			free_text = EXCLUDED.free_text,
			selected_options = EXCLUDED.selected_options,
			answer_text = EXCLUDED.answer_text,
			updated_at = now()`,
		rec.SessionID, rec.QuestionID, toInt32Ptr(rec.SelectedOption), rec.FreeText, toInt32s(rec.SelectedOptions), rec.AnswerText,
	)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

func (s *Postgres) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]answer.Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT session_id, question_id, selected_option, free_text, selected_options, answer_text
		FROM answers WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	var out []answer.Record
	for rows.Next() {
		var (
			rec      answer.Record
			selected *int32
			multi    []int32
		)
		if err := rows.Scan(&rec.SessionID, &rec.QuestionID, &selected, &rec.FreeText, &multi, &rec.AnswerText); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		if selected != nil {
			v := int(*selected)
			rec.SelectedOption = &v
		}
		rec.SelectedOptions = fromInt32s(multi)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func toInt32Ptr(v *int) *int32 {
	if v == nil {
		return nil
	}
	n := int32(*v)
	return &n
}

func toInt32s(in []int) []int32 {
	if in == nil {
		return nil
	}
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

func fromInt32s(in []int32) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
