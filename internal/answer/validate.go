package answer

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Code string

const (
	CodeMissingSelection Code = "missing_selection"
	CodeMissingFreeText  Code = "missing_free_text"
	CodeEmptySelection   Code = "empty_selection"
	CodeEmptyText        Code = "empty_text"
	CodeInvalidField     Code = "invalid_field"
)

const (
	msgMissingSelection = "選択肢を選んでください"
	msgMissingFreeText  = "自由記述の内容を入力してください"
	msgEmptySelection   = "少なくとも1つ選択してください"
	msgEmptyText        = "回答を入力してください"
	msgInvalidRequest   = "リクエストの形式が正しくありません"
	msgInvalidType      = "質問タイプが正しくありません"
	msgFreeTextTooLong  = "自由記述は1000文字以内で入力してください"
	msgAnswerTooLong    = "回答は5000文字以内で入力してください"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation_error")

// ValidationError describes the first rule a submission violated. Message is
// safe to show to the respondent.
type ValidationError struct {
	Code    Code
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation_error: " + string(e.Code) + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Submission is the inbound answer body.
type Submission struct {
	SessionID       string  `json:"sessionId" validate:"required,uuid"`
	QuestionID      string  `json:"questionId" validate:"required,uuid"`
	QuestionType    string  `json:"questionType" validate:"omitempty,oneof=radio checkbox dropdown text textarea scale"`
	SelectedOption  *int    `json:"selectedOption" validate:"omitempty,min=0,max=6"`
	FreeText        *string `json:"freeText" validate:"omitempty,max=1000"`
	SelectedOptions []int   `json:"selectedOptions" validate:"omitempty,dive,min=0"`
	AnswerText      *string `json:"answerText" validate:"omitempty,max=5000"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize validates sub and converts it into an Answer whose payload
// matches the question type. The first violated rule is returned as a
// *ValidationError.
func Normalize(sub Submission) (Answer, error) {
	sub.FreeText = trimmed(sub.FreeText)
	sub.AnswerText = trimmed(sub.AnswerText)

	if err := validate.Struct(sub); err != nil {
		return Answer{}, fieldError(err)
	}

	qt, err := ParseQuestionType(sub.QuestionType)
	if err != nil {
		return Answer{}, &ValidationError{Code: CodeInvalidField, Field: "questionType", Message: msgInvalidType}
	}

	payload, verr := buildPayload(qt, sub)
	if verr != nil {
		return Answer{}, verr
	}

	return Answer{
		SessionID:  uuid.MustParse(sub.SessionID),
		QuestionID: uuid.MustParse(sub.QuestionID),
		Type:       qt,
		Payload:    payload,
	}, nil
}

func buildPayload(qt QuestionType, sub Submission) (Payload, *ValidationError) {
	switch {
	case qt.SingleChoice():
		if sub.SelectedOption == nil {
			return nil, &ValidationError{Code: CodeMissingSelection, Field: "selectedOption", Message: msgMissingSelection}
		}
		if *sub.SelectedOption == OtherOptionIndex {
			if sub.FreeText == nil || *sub.FreeText == "" {
				return nil, &ValidationError{Code: CodeMissingFreeText, Field: "freeText", Message: msgMissingFreeText}
			}
			return Choice{Selection: Other{FreeText: *sub.FreeText}}, nil
		}
		return Choice{Selection: Enumerated{Option: *sub.SelectedOption}}, nil

	case qt == Checkbox:
		if len(sub.SelectedOptions) == 0 {
			return nil, &ValidationError{Code: CodeEmptySelection, Field: "selectedOptions", Message: msgEmptySelection}
		}
		return Multi{Options: dedupe(sub.SelectedOptions)}, nil

	default:
		if sub.AnswerText == nil || *sub.AnswerText == "" {
			return nil, &ValidationError{Code: CodeEmptyText, Field: "answerText", Message: msgEmptyText}
		}
		return Written{Text: *sub.AnswerText}, nil
	}
}

// fieldError maps the first struct-tag failure to the respondent-facing rule
// it belongs to.
func fieldError(err error) *ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Code: CodeInvalidField, Message: msgInvalidRequest}
	}

	fe := verrs[0]
	name := fe.StructField()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	switch name {
	case "SelectedOption":
		return &ValidationError{Code: CodeMissingSelection, Field: "selectedOption", Message: msgMissingSelection}
	case "SelectedOptions":
		return &ValidationError{Code: CodeEmptySelection, Field: "selectedOptions", Message: msgEmptySelection}
	case "FreeText":
		return &ValidationError{Code: CodeInvalidField, Field: "freeText", Message: msgFreeTextTooLong}
	case "AnswerText":
		return &ValidationError{Code: CodeInvalidField, Field: "answerText", Message: msgAnswerTooLong}
	case "QuestionType":
		return &ValidationError{Code: CodeInvalidField, Field: "questionType", Message: msgInvalidType}
	}
	return &ValidationError{Code: CodeInvalidField, Field: fe.Field(), Message: msgInvalidRequest}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// dedupe keeps the first occurrence of each index.
func dedupe(idx []int) []int {
	seen := make(map[int]struct{}, len(idx))
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}
