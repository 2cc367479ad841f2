package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/baisoku/sonar/internal/phase"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CreateSessionInput is the body of a session creation request.
type CreateSessionInput struct {
	Title              string          `json:"title" validate:"max=100"`
	Purpose            string          `json:"purpose" validate:"required,max=5000"`
	BackgroundText     string          `json:"backgroundText" validate:"max=50000"`
	ReportInstructions string          `json:"reportInstructions" validate:"max=10000"`
	FixedQuestions     []FixedQuestion `json:"fixedQuestions" validate:"max=50,dive"`
	ExplorationThemes  []string        `json:"explorationThemes" validate:"max=20,dive,max=500"`
	ReportTarget       int             `json:"reportTarget"`
}

const msgReportTarget = "回答数は5の倍数で指定してください"

var validate = validator.New(validator.WithRequiredStructEnabled())

var fieldMessages = map[string]string{
	"Title":              "タイトルは100文字以内で入力してください",
	"Purpose":            "調査の目的を5000文字以内で入力してください",
	"BackgroundText":     "背景情報は50000文字以内で入力してください",
	"ReportInstructions": "レポートへの指示は10000文字以内で入力してください",
	"FixedQuestions":     "固定質問は50問以内で指定してください",
	"ExplorationThemes":  "探索テーマは20件以内、各500文字以内で入力してください",
	"Statement":          "質問文は1〜500文字で入力してください",
	"Detail":             "補足説明は1000文字以内で入力してください",
	"Options":            "選択肢は10個以内、各1〜200文字で入力してください",
	"QuestionType":       "質問タイプが正しくありません",
}

// CreateSession validates in and stores a new active session with its phase
// profile. A report target that is not a positive multiple of five is
// rejected here so phase resolution never sees one.
func (e *Engine) CreateSession(ctx context.Context, in CreateSessionInput) (*Session, error) {
	ctx, span := tracer.Start(ctx, "survey.CreateSession")
	defer span.End()

	in.Purpose = strings.TrimSpace(in.Purpose)
	in.Title = strings.TrimSpace(in.Title)
	for i := range in.FixedQuestions {
		fq := &in.FixedQuestions[i]
		fq.Statement = strings.TrimSpace(fq.Statement)
		for j := range fq.Options {
			fq.Options[j] = strings.TrimSpace(fq.Options[j])
		}
	}

	if err := validate.Struct(in); err != nil {
		return nil, recordSpanError(span, inputError(err))
	}
	if err := validateFixed(in.FixedQuestions); err != nil {
		return nil, recordSpanError(span, err)
	}

	target := in.ReportTarget
	if target == 0 {
		target = e.defaultTarget
	}
	if err := phase.ValidateReportTarget(target); err != nil {
		return nil, recordSpanError(span, &ReportTargetError{Target: target, Err: err})
	}

	now := e.now()
	sess := &Session{
		ID:                 uuid.New(),
		Title:              in.Title,
		Purpose:            in.Purpose,
		BackgroundText:     in.BackgroundText,
		ReportInstructions: in.ReportInstructions,
		FixedQuestions:     in.FixedQuestions,
		ExplorationThemes:  in.ExplorationThemes,
		ReportTarget:       target,
		Profile:            phase.GenerateProfile(target),
		Status:             StatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	span.SetAttributes(sessionAttr(sess.ID))

	if err := e.store.CreateSession(ctx, sess); err != nil {
		return nil, recordSpanError(span, fmt.Errorf("create session: %w", err))
	}

	e.logger.Info("session created",
		"session_id", sess.ID,
		"report_target", target,
		"fixed_questions", len(sess.FixedQuestions),
	)
	return sess, nil
}

// ReportTargetError is a profile misconfiguration caught at creation time.
type ReportTargetError struct {
	Target int
	Err    error
}

func (e *ReportTargetError) Error() string {
	return fmt.Sprintf("report target %d: %v", e.Target, e.Err)
}

func (e *ReportTargetError) Unwrap() error { return e.Err }

// Message is safe to show to the survey owner.
func (e *ReportTargetError) Message() string { return msgReportTarget }

func validateFixed(fixed []FixedQuestion) error {
	for i, fq := range fixed {
		qt, _ := answer.ParseQuestionType(fq.QuestionType)
		if qt.NeedsOptions() && countNonEmpty(fq.Options) < 2 {
			return &answer.ValidationError{
				Code:    answer.CodeInvalidField,
				Field:   fmt.Sprintf("fixedQuestions[%d].options", i),
				Message: "選択式の質問には2つ以上の選択肢が必要です",
			}
		}
		if sc := fq.ScaleConfig; sc != nil && (len([]rune(sc.MinLabel)) > 50 || len([]rune(sc.MaxLabel)) > 50) {
			return &answer.ValidationError{
				Code:    answer.CodeInvalidField,
				Field:   fmt.Sprintf("fixedQuestions[%d].scale_config", i),
				Message: "スケールのラベルは50文字以内で入力してください",
			}
		}
	}
	return nil
}

func inputError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &answer.ValidationError{Code: answer.CodeInvalidField, Message: "リクエストの形式が正しくありません"}
	}
	fe := verrs[0]
	name := fe.StructField()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	msg, ok := fieldMessages[name]
	if !ok {
		msg = "リクエストの形式が正しくありません"
	}
	return &answer.ValidationError{Code: answer.CodeInvalidField, Field: fe.Namespace(), Message: msg}
}

func countNonEmpty(ss []string) int {
	n := 0
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}
