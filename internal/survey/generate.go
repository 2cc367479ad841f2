package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/baisoku/sonar/internal/dedup"
	"github.com/baisoku/sonar/internal/extractor"
	"github.com/baisoku/sonar/internal/hermes"
	"github.com/baisoku/sonar/internal/llm"
	"github.com/baisoku/sonar/internal/phase"
	"github.com/google/uuid"
)

// maxGeneratedOptions keeps enumerated options below the "other" index.
const maxGeneratedOptions = answer.OtherOptionIndex

type generatedQuestion struct {
	Statement    string              `json:"statement"`
	Detail       string              `json:"detail"`
	Options      []string            `json:"options"`
	QuestionType string              `json:"question_type"`
	ScaleConfig  *answer.ScaleConfig `json:"scale_config"`
}

type questionPayload struct {
	Questions []generatedQuestion `json:"questions"`
}

// GenerateBatch appends the next batch of questions to the session. Pending
// fixed questions come first, verbatim; the model fills the remaining slots.
// Only one generation per session runs at a time; a concurrent call gets
// ErrBusy.
func (e *Engine) GenerateBatch(ctx context.Context, sessionID uuid.UUID) ([]Question, error) {
	ctx, span := tracer.Start(ctx, "survey.GenerateBatch")
	defer span.End()
	span.SetAttributes(sessionAttr(sessionID))

	var out []Question
	err := e.withLock(ctx, "sonar:generate:"+sessionID.String(), func(ctx context.Context) error {
		qs, err := e.generateBatch(ctx, sessionID)
		out = qs
		return err
	})
	return out, recordSpanError(span, err)
}

func (e *Engine) generateBatch(ctx context.Context, sessionID uuid.UUID) ([]Question, error) {
	pc, err := e.loadContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess := pc.session

	start := len(pc.entries) + 1
	batchPhase := phase.Resolve(start, sess.Profile)

	asked := 0
	for _, en := range pc.entries {
		if en.Question.Source == SourceFixed {
			asked++
		}
	}
	var fixed []FixedQuestion
	if asked < len(sess.FixedQuestions) {
		fixed = sess.FixedQuestions[asked:]
		if len(fixed) > phase.BatchSize {
			fixed = fixed[:phase.BatchSize]
		}
	}

	now := e.now()
	batch := make([]Question, 0, phase.BatchSize)
	for _, fq := range fixed {
		batch = append(batch, newQuestion(sessionID, start+len(batch), fromFixed(fq), SourceFixed, sess.Profile, now))
	}

	if need := phase.BatchSize - len(batch); need > 0 {
		generated, err := e.generateQuestions(ctx, pc, start+len(batch), need, batchPhase)
		if err != nil {
			return nil, err
		}
		for _, gq := range generated {
			batch = append(batch, newQuestion(sessionID, start+len(batch), gq, SourceAI, sess.Profile, now))
		}
	}

	if err := e.store.InsertQuestions(ctx, batch); err != nil {
		return nil, fmt.Errorf("insert questions: %w", err)
	}
	end := start + len(batch) - 1
	if err := e.store.UpdateProgress(ctx, sessionID, end); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}

	e.logger.Info("question batch generated",
		"session_id", sessionID,
		"start", start,
		"end", end,
		"phase", batchPhase,
		"fixed", len(fixed),
	)
	e.publish(hermes.SubjectBatchGenerated, hermes.BatchGenerated{
		SessionID:  sessionID.String(),
		StartIndex: start,
		EndIndex:   end,
		Phase:      string(batchPhase),
		Fixed:      len(fixed),
		Generated:  len(batch) - len(fixed),
	})
	return batch, nil
}

// generateQuestions asks the model for count questions starting at start.
// Extraction and decoding failures are retried up to the engine's attempt
// budget; the last failure is returned as-is so callers can tell them apart.
func (e *Engine) generateQuestions(ctx context.Context, pc promptContext, start, count int, p phase.Phase) ([]answer.Question, error) {
	req := llm.Request{
		System:   questionSystemPrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: buildQuestionPrompt(pc, start, count, p)}},
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		reply, err := e.complete(ctx, "questions", req)
		if err != nil {
			e.metrics.ObserveGeneration("llm_error")
			lastErr = fmt.Errorf("generate questions: %w", err)
			if ctx.Err() != nil {
				break
			}
			e.logger.Warn("question generation failed", "session_id", pc.session.ID, "attempt", attempt, "error", err)
			continue
		}

		var payload questionPayload
		if err := extractor.Decode(reply, &payload); err != nil {
			e.metrics.ObserveGeneration(failureLabel(err))
			lastErr = err
			e.logger.Warn("unusable question payload", "session_id", pc.session.ID, "attempt", attempt, "error", err)
			continue
		}

		qs := sanitizeQuestions(payload.Questions, count, askedStatements(pc.entries))
		if len(qs) == 0 {
			e.metrics.ObserveGeneration("malformed_payload")
			lastErr = &extractor.MalformedError{Payload: reply, Err: errors.New("no usable questions")}
			e.logger.Warn("no usable questions in payload", "session_id", pc.session.ID, "attempt", attempt)
			continue
		}

		e.metrics.ObserveGeneration("ok")
		return qs, nil
	}
	return nil, lastErr
}

func failureLabel(err error) string {
	if errors.Is(err, extractor.ErrNoPayload) {
		return "extraction_failure"
	}
	return "malformed_payload"
}

// sanitizeQuestions drops questions that cannot be asked or repeat an asked
// statement, and normalizes the rest. At most limit questions are returned.
func sanitizeQuestions(in []generatedQuestion, limit int, asked []string) []answer.Question {
	seen := dedup.NewIndex(dedup.DefaultThreshold, asked...)
	out := make([]answer.Question, 0, limit)
	for _, g := range in {
		if len(out) == limit {
			break
		}
		statement := strings.TrimSpace(g.Statement)
		if statement == "" {
			continue
		}
		if _, _, dup := seen.Match(statement); dup {
			continue
		}
		qt, err := answer.ParseQuestionType(strings.ToLower(strings.TrimSpace(g.QuestionType)))
		if err != nil {
			qt = answer.Radio
		}

		q := answer.Question{Statement: statement, Detail: strings.TrimSpace(g.Detail), Type: qt}
		switch {
		case qt.NeedsOptions():
			q.Options = cleanOptions(g.Options)
			if len(q.Options) < 2 {
				continue
			}
		case qt == answer.Scale:
			q.Scale = g.ScaleConfig
			if q.Scale == nil || q.Scale.Max <= q.Scale.Min {
				q.Scale = &answer.ScaleConfig{Min: 1, Max: 5}
			}
		}
		seen.Add(statement)
		out = append(out, q)
	}
	return out
}

func askedStatements(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, en := range entries {
		out = append(out, en.Question.Statement)
	}
	return out
}

func cleanOptions(opts []string) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
		if len(out) == maxGeneratedOptions {
			break
		}
	}
	return out
}

func fromFixed(fq FixedQuestion) answer.Question {
	qt, err := answer.ParseQuestionType(fq.QuestionType)
	if err != nil {
		qt = answer.Radio
	}
	q := answer.Question{
		Statement: fq.Statement,
		Detail:    fq.Detail,
		Type:      qt,
	}
	if qt.NeedsOptions() {
		q.Options = append([]string(nil), fq.Options...)
	}
	if qt == answer.Scale {
		q.Scale = fq.ScaleConfig
	}
	return q
}

func newQuestion(sessionID uuid.UUID, index int, q answer.Question, src Source, profile phase.Profile, now time.Time) Question {
	q.Index = index
	return Question{
		ID:        uuid.New(),
		SessionID: sessionID,
		Question:  q,
		Phase:     phase.Resolve(index, profile),
		Source:    src,
		CreatedAt: now,
	}
}
