package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/baisoku/sonar/internal/hermes"
	"github.com/baisoku/sonar/internal/slack"
	"github.com/baisoku/sonar/internal/survey"
	"github.com/google/uuid"
)

// analyzeTimeout bounds a single batch analysis triggered by an event.
const analyzeTimeout = 2 * time.Minute

// Analyzer is the part of the survey engine the processor drives.
type Analyzer interface {
	AnalyzeBatch(ctx context.Context, sessionID uuid.UUID, batch int) (*survey.Analysis, error)
}

// Notifier announces finished reports.
type Notifier interface {
	PostReportReady(ctx context.Context, n slack.ReportNotice) (string, error)
}

// Processor reacts to survey events published on the bus.
type Processor struct {
	engine   Analyzer
	notifier Notifier
	siteURL  string
	logger   *slog.Logger
}

// New returns a processor. notifier may be nil, in which case reports are
// not announced.
func New(engine Analyzer, notifier Notifier, siteURL string, logger *slog.Logger) *Processor {
	return &Processor{
		engine:   engine,
		notifier: notifier,
		siteURL:  strings.TrimRight(siteURL, "/"),
		logger:   logger,
	}
}

// Subscribe registers the processor's handlers on bus.
func (p *Processor) Subscribe(bus hermes.Bus) error {
	if err := bus.Subscribe(hermes.SubjectBatchCompleted, p.HandleBatchCompleted); err != nil {
		return err
	}
	if p.notifier == nil {
		return nil
	}
	return bus.Subscribe(hermes.SubjectReportGenerated, p.HandleReportGenerated)
}

// HandleBatchCompleted is the handler for survey.batch.completed. It writes
// the analysis of the finished window so later prompts can use it.
func (p *Processor) HandleBatchCompleted(subject string, data []byte) {
	var evt hermes.BatchCompleted
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse batch completed event", "subject", subject, "error", err)
		return
	}

	sessionID, err := uuid.Parse(evt.SessionID)
	if err != nil {
		p.logger.Error("invalid session id", "session_id", evt.SessionID, "error", err)
		return
	}
	if evt.BatchIndex < 0 {
		p.logger.Warn("negative batch index", "session_id", evt.SessionID, "batch", evt.BatchIndex)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	p.logger.Info("analyzing batch",
		"session_id", evt.SessionID,
		"batch", evt.BatchIndex,
		"start", evt.StartIndex,
		"end", evt.EndIndex,
	)

	a, err := p.engine.AnalyzeBatch(ctx, sessionID, evt.BatchIndex)
	if err != nil {
		p.logger.Error("batch analysis failed", "session_id", evt.SessionID, "batch", evt.BatchIndex, "error", err)
		return
	}
	p.logger.Info("batch analysis stored", "session_id", evt.SessionID, "batch", a.BatchIndex, "analysis_id", a.ID)
}

// HandleReportGenerated is the handler for survey.report.generated.
func (p *Processor) HandleReportGenerated(subject string, data []byte) {
	if p.notifier == nil {
		return
	}

	var evt hermes.ReportGenerated
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse report generated event", "subject", subject, "error", err)
		return
	}

	n := slack.ReportNotice{
		SessionID: evt.SessionID,
		Title:     evt.Title,
		Version:   evt.Version,
		Questions: evt.Questions,
	}
	if p.siteURL != "" {
		n.Link = p.siteURL + "/sessions/" + evt.SessionID + "/report"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := p.notifier.PostReportReady(ctx, n); err != nil {
		p.logger.Error("report notice failed", "session_id", evt.SessionID, "error", err)
	}
}
