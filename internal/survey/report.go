package survey

import (
	"context"
	"fmt"

	"github.com/baisoku/sonar/internal/hermes"
	"github.com/baisoku/sonar/internal/llm"
	"github.com/baisoku/sonar/internal/phase"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// AnalyzeBatch summarises the answered window batch and stores the result,
// replacing any earlier analysis of the same window.
func (e *Engine) AnalyzeBatch(ctx context.Context, sessionID uuid.UUID, batch int) (*Analysis, error) {
	ctx, span := tracer.Start(ctx, "survey.AnalyzeBatch")
	defer span.End()
	span.SetAttributes(sessionAttr(sessionID), attribute.Int("sonar.batch", batch))

	pc, err := e.loadContext(ctx, sessionID)
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	start, end := phase.BatchBounds(batch)
	window := pc
	window.entries = nil
	for _, en := range pc.entries {
		if en.Question.Index >= start && en.Question.Index <= end {
			window.entries = append(window.entries, en)
		}
	}
	if len(window.entries) == 0 {
		return nil, recordSpanError(span, fmt.Errorf("batch %d: %w", batch, ErrNotFound))
	}

	reply, err := e.complete(ctx, "analysis", llm.Request{
		System:   analysisSystemPrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: buildAnalysisPrompt(window, start, end)}},
	})
	if err != nil {
		return nil, recordSpanError(span, fmt.Errorf("analyze batch: %w", err))
	}
	text := trimCompletion(reply)
	if text == "" {
		return nil, recordSpanError(span, fmt.Errorf("analyze batch: %w", ErrEmptyCompletion))
	}

	a := &Analysis{
		ID:         uuid.New(),
		SessionID:  sessionID,
		BatchIndex: batch,
		StartIndex: start,
		EndIndex:   end,
		Text:       text,
		CreatedAt:  e.now(),
	}
	if err := e.store.UpsertAnalysis(ctx, a); err != nil {
		return nil, recordSpanError(span, fmt.Errorf("upsert analysis: %w", err))
	}

	e.logger.Info("batch analyzed", "session_id", sessionID, "batch", batch, "len", len(text))
	return a, nil
}

// GenerateReport writes a markdown report from every question, answer and
// analysis, stores it as the next version and marks the session completed.
func (e *Engine) GenerateReport(ctx context.Context, sessionID uuid.UUID) (*Report, error) {
	ctx, span := tracer.Start(ctx, "survey.GenerateReport")
	defer span.End()
	span.SetAttributes(sessionAttr(sessionID))

	var out *Report
	err := e.withLock(ctx, "sonar:report:"+sessionID.String(), func(ctx context.Context) error {
		r, err := e.generateReport(ctx, sessionID)
		out = r
		return err
	})
	return out, recordSpanError(span, err)
}

func (e *Engine) generateReport(ctx context.Context, sessionID uuid.UUID) (*Report, error) {
	pc, err := e.loadContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reply, err := e.complete(ctx, "report", llm.Request{
		System:   reportSystemPrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: buildReportPrompt(pc)}},
	})
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	text := trimCompletion(reply)
	if text == "" {
		return nil, fmt.Errorf("generate report: %w", ErrEmptyCompletion)
	}

	r, err := e.store.CreateReport(ctx, sessionID, text)
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	if err := e.store.UpdateStatus(ctx, sessionID, StatusCompleted); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	e.metrics.ObserveReport()

	e.logger.Info("report generated", "session_id", sessionID, "version", r.Version, "questions", len(pc.entries))
	e.publish(hermes.SubjectReportGenerated, hermes.ReportGenerated{
		SessionID: sessionID.String(),
		ReportID:  r.ID.String(),
		Version:   r.Version,
		Title:     pc.session.Title,
		Questions: len(pc.entries),
	})
	return r, nil
}
