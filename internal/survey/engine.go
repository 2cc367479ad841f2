// Package survey drives the adaptive survey loop: create a session, generate
// a batch of questions, collect answers, analyze finished batches and write
// the final report.
package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/baisoku/sonar/internal/llm"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("sonar.internal.survey")

// ErrEmptyCompletion is returned when the model answers with no text where
// free text was expected.
var ErrEmptyCompletion = errors.New("empty_completion")

type Options struct {
	// MaxAttempts bounds model calls per question batch.
	MaxAttempts         int
	DefaultReportTarget int
}

type Engine struct {
	store   Store
	llm     llm.Generator
	bus     Publisher
	lock    Locker
	metrics Metrics
	logger  *slog.Logger

	maxAttempts   int
	defaultTarget int
	now           func() time.Time
}

func NewEngine(store Store, gen llm.Generator, bus Publisher, lock Locker, m Metrics, logger *slog.Logger, opts Options) *Engine {
	if m == nil {
		m = nopMetrics{}
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.DefaultReportTarget == 0 {
		opts.DefaultReportTarget = 10
	}
	return &Engine{
		store:         store,
		llm:           gen,
		bus:           bus,
		lock:          lock,
		metrics:       m,
		logger:        logger,
		maxAttempts:   opts.MaxAttempts,
		defaultTarget: opts.DefaultReportTarget,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Overview returns the session with every question, its answer and the
// analyses written so far.
func (e *Engine) Overview(ctx context.Context, sessionID uuid.UUID) (*Overview, error) {
	pc, err := e.loadContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Overview{Session: pc.session, Entries: pc.entries, Analyses: pc.analyses}, nil
}

func (e *Engine) LatestReport(ctx context.Context, sessionID uuid.UUID) (*Report, error) {
	if _, err := e.store.GetSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	r, err := e.store.LatestReport(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("latest report: %w", err)
	}
	return r, nil
}

func (e *Engine) loadContext(ctx context.Context, sessionID uuid.UUID) (promptContext, error) {
	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return promptContext{}, fmt.Errorf("get session: %w", err)
	}
	questions, err := e.store.ListQuestions(ctx, sessionID)
	if err != nil {
		return promptContext{}, fmt.Errorf("list questions: %w", err)
	}
	records, err := e.store.ListAnswers(ctx, sessionID)
	if err != nil {
		return promptContext{}, fmt.Errorf("list answers: %w", err)
	}
	analyses, err := e.store.ListAnalyses(ctx, sessionID)
	if err != nil {
		return promptContext{}, fmt.Errorf("list analyses: %w", err)
	}
	return promptContext{
		session:  sess,
		entries:  buildEntries(questions, records),
		analyses: analyses,
	}, nil
}

func buildEntries(questions []Question, records []answer.Record) []Entry {
	byQuestion := make(map[uuid.UUID]answer.Record, len(records))
	for _, r := range records {
		byQuestion[r.QuestionID] = r
	}

	entries := make([]Entry, 0, len(questions))
	for _, q := range questions {
		entry := Entry{Question: q}
		var payload answer.Payload
		if rec, ok := byQuestion[q.ID]; ok {
			entry.Answer = &rec
			payload = answer.PayloadFromRecord(questionType(q), rec)
		}
		entry.Rendered = answer.Render(q.Question, payload)
		entries = append(entries, entry)
	}
	return entries
}

func questionType(q Question) answer.QuestionType {
	if q.Type == "" {
		return answer.Radio
	}
	return q.Type
}

// complete calls the model once and records its latency under op.
func (e *Engine) complete(ctx context.Context, op string, req llm.Request) (string, error) {
	ctx, span := tracer.Start(ctx, "llm."+op)
	defer span.End()

	start := time.Now()
	out, err := e.llm.Complete(ctx, req)
	e.metrics.ObserveLLM(op, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.Int("sonar.llm.reply_len", len(out)))
	return out, nil
}

func (e *Engine) publish(subject string, evt any) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(subject, evt); err != nil {
		e.logger.Warn("publish failed", "subject", subject, "error", err)
	}
}

// withLock runs fn while holding the named per-session lock.
func (e *Engine) withLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if e.lock == nil {
		return fn(ctx)
	}
	unlock, ok, err := e.lock.TryLock(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrBusy
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("release lock failed", "key", key, "error", err)
		}
	}()
	return fn(ctx)
}

func recordSpanError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func sessionAttr(id uuid.UUID) attribute.KeyValue {
	return attribute.String("sonar.session_id", id.String())
}

func trimCompletion(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
