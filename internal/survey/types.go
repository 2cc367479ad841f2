package survey

import (
	"context"
	"errors"
	"time"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/baisoku/sonar/internal/phase"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not_found")
	// ErrBusy is returned when another generation for the session holds the lock.
	ErrBusy = errors.New("generation_in_progress")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
)

type Source string

const (
	SourceFixed Source = "fixed"
	SourceAI    Source = "ai"
)

// FixedQuestion is authored by the survey owner and asked verbatim before
// any generated question.
type FixedQuestion struct {
	Statement    string              `json:"statement" validate:"required,min=1,max=500"`
	Detail       string              `json:"detail,omitempty" validate:"max=1000"`
	Options      []string            `json:"options,omitempty" validate:"max=10,dive,required,max=200"`
	QuestionType string              `json:"question_type,omitempty" validate:"omitempty,oneof=radio checkbox dropdown text textarea scale"`
	ScaleConfig  *answer.ScaleConfig `json:"scale_config,omitempty"`
}

type Session struct {
	ID                   uuid.UUID       `json:"id"`
	Title                string          `json:"title"`
	Purpose              string          `json:"purpose"`
	BackgroundText       string          `json:"background_text"`
	ReportInstructions   string          `json:"report_instructions"`
	FixedQuestions       []FixedQuestion `json:"fixed_questions"`
	ExplorationThemes    []string        `json:"exploration_themes"`
	ReportTarget         int             `json:"report_target"`
	Profile              phase.Profile   `json:"phase_profile"`
	Status               Status          `json:"status"`
	CurrentQuestionIndex int             `json:"current_question_index"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type Question struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	answer.Question
	Phase     phase.Phase `json:"phase"`
	Source    Source      `json:"source"`
	CreatedAt time.Time   `json:"created_at"`
}

// Analysis summarises one answered five-question window.
type Analysis struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	BatchIndex int       `json:"batch_index"`
	StartIndex int       `json:"start_index"`
	EndIndex   int       `json:"end_index"`
	Text       string    `json:"analysis_text"`
	CreatedAt  time.Time `json:"created_at"`
}

type Report struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Version   int       `json:"version"`
	Text      string    `json:"report_text"`
	CreatedAt time.Time `json:"created_at"`
}

// Entry pairs a question with its stored answer, if any.
type Entry struct {
	Question Question       `json:"question"`
	Answer   *answer.Record `json:"answer,omitempty"`
	Rendered string         `json:"rendered_answer"`
}

// Overview is the full state of a session as returned to clients.
type Overview struct {
	Session  *Session   `json:"session"`
	Entries  []Entry    `json:"entries"`
	Analyses []Analysis `json:"analyses"`
}

// Store persists sessions and everything hanging off them. Lookups of a
// missing row return ErrNotFound.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, currentIndex int) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	InsertQuestions(ctx context.Context, qs []Question) error
	ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]Question, error)
	GetQuestion(ctx context.Context, sessionID, questionID uuid.UUID) (*Question, error)

	// UpsertAnswer must be atomic on (session_id, question_id).
	UpsertAnswer(ctx context.Context, rec answer.Record) error
	ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]answer.Record, error)

	UpsertAnalysis(ctx context.Context, a *Analysis) error
	ListAnalyses(ctx context.Context, sessionID uuid.UUID) ([]Analysis, error)

	// CreateReport stores text as the next report version.
	CreateReport(ctx context.Context, sessionID uuid.UUID, text string) (*Report, error)
	LatestReport(ctx context.Context, sessionID uuid.UUID) (*Report, error)
}

type Publisher interface {
	Publish(subject string, data any) error
}

// Locker grants at most one holder per key. ok is false when the key is held.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(context.Context) error, ok bool, err error)
}

type Metrics interface {
	ObserveAnswer(questionType, result string)
	ObserveGeneration(result string)
	ObserveReport()
	ObserveLLM(operation string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveAnswer(string, string)     {}
func (nopMetrics) ObserveGeneration(string)         {}
func (nopMetrics) ObserveReport()                   {}
func (nopMetrics) ObserveLLM(string, time.Duration) {}
