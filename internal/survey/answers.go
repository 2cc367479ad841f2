package survey

import (
	"context"
	"errors"
	"fmt"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/baisoku/sonar/internal/hermes"
	"github.com/baisoku/sonar/internal/phase"
	"github.com/google/uuid"
)

const msgQuestionTypeMismatch = "質問タイプが正しくありません"

// SubmitAnswer validates sub and upserts it for its (session, question)
// pair. When the answer leaves its five-question window fully answered a
// batch-completed event is published.
func (e *Engine) SubmitAnswer(ctx context.Context, sub answer.Submission) (*answer.Record, error) {
	ctx, span := tracer.Start(ctx, "survey.SubmitAnswer")
	defer span.End()

	qtLabel := sub.QuestionType
	if qtLabel == "" {
		qtLabel = string(answer.Radio)
	}

	ans, err := answer.Normalize(sub)
	if err != nil {
		e.metrics.ObserveAnswer(qtLabel, "invalid")
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(sessionAttr(ans.SessionID))

	q, err := e.store.GetQuestion(ctx, ans.SessionID, ans.QuestionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.metrics.ObserveAnswer(qtLabel, "not_found")
		}
		return nil, recordSpanError(span, fmt.Errorf("get question: %w", err))
	}
	if questionType(*q) != ans.Type {
		e.metrics.ObserveAnswer(qtLabel, "invalid")
		return nil, recordSpanError(span, &answer.ValidationError{
			Code:    answer.CodeInvalidField,
			Field:   "questionType",
			Message: msgQuestionTypeMismatch,
		})
	}

	rec := ans.Record()
	if err := e.store.UpsertAnswer(ctx, rec); err != nil {
		e.metrics.ObserveAnswer(qtLabel, "error")
		return nil, recordSpanError(span, fmt.Errorf("upsert answer: %w", err))
	}
	e.metrics.ObserveAnswer(qtLabel, "ok")

	e.logger.Debug("answer saved",
		"session_id", ans.SessionID,
		"question_index", q.Index,
		"question_type", ans.Type,
	)
	e.publish(hermes.SubjectAnswerSaved, hermes.AnswerSaved{
		SessionID:     ans.SessionID.String(),
		QuestionID:    ans.QuestionID.String(),
		QuestionIndex: q.Index,
		QuestionType:  string(ans.Type),
	})

	if err := e.checkBatchComplete(ctx, ans.SessionID, q.Index); err != nil {
		e.logger.Warn("batch completion check failed", "session_id", ans.SessionID, "error", err)
	}
	return &rec, nil
}

// checkBatchComplete publishes a batch-completed event when every question of
// the window containing index exists and has an answer. Re-answering inside
// a finished window publishes again so its analysis is refreshed.
func (e *Engine) checkBatchComplete(ctx context.Context, sessionID uuid.UUID, index int) error {
	batch := phase.BatchIndex(index)
	start, end := phase.BatchBounds(batch)

	questions, err := e.store.ListQuestions(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	records, err := e.store.ListAnswers(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list answers: %w", err)
	}

	answered := make(map[uuid.UUID]bool, len(records))
	for _, r := range records {
		answered[r.QuestionID] = true
	}

	n := 0
	for _, q := range questions {
		if q.Index < start || q.Index > end {
			continue
		}
		if !answered[q.ID] {
			return nil
		}
		n++
	}
	if n < phase.BatchSize {
		return nil
	}

	e.logger.Info("batch completed", "session_id", sessionID, "batch", batch, "start", start, "end", end)
	e.publish(hermes.SubjectBatchCompleted, hermes.BatchCompleted{
		SessionID:  sessionID.String(),
		BatchIndex: batch,
		StartIndex: start,
		EndIndex:   end,
	})
	return nil
}
