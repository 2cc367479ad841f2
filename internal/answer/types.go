// Package answer validates respondent answers and renders them as text.
//
// An answer payload is a tagged union keyed by question type: single choice
// (radio, dropdown, scale), multiple choice (checkbox) or written text (text,
// textarea). The flat, mostly-null record stored in the database is derived
// from the union, so an answer can never carry two shapes at once.
package answer

import (
	"fmt"

	"github.com/google/uuid"
)

type QuestionType string

const (
	Radio    QuestionType = "radio"
	Checkbox QuestionType = "checkbox"
	Dropdown QuestionType = "dropdown"
	Text     QuestionType = "text"
	Textarea QuestionType = "textarea"
	Scale    QuestionType = "scale"
)

// OtherOptionIndex is the wire index meaning "free text instead of an
// enumerated option". It exists regardless of how many options a question has.
const OtherOptionIndex = 6

// MaxOptionIndex is the highest selectedOption accepted on the wire.
const MaxOptionIndex = 6

// ParseQuestionType maps a wire value to a QuestionType. The empty string
// means radio.
func ParseQuestionType(s string) (QuestionType, error) {
	if s == "" {
		return Radio, nil
	}
	qt := QuestionType(s)
	switch qt {
	case Radio, Checkbox, Dropdown, Text, Textarea, Scale:
		return qt, nil
	}
	return "", fmt.Errorf("unknown question type %q", s)
}

// SingleChoice reports whether answers to t carry one selectedOption.
func (t QuestionType) SingleChoice() bool {
	return t == Radio || t == Dropdown || t == Scale
}

// Written reports whether answers to t are free text.
func (t QuestionType) Written() bool {
	return t == Text || t == Textarea
}

// NeedsOptions reports whether questions of type t must list option labels.
func (t QuestionType) NeedsOptions() bool {
	return t == Radio || t == Checkbox || t == Dropdown
}

type ScaleConfig struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	MinLabel string `json:"minLabel,omitempty"`
	MaxLabel string `json:"maxLabel,omitempty"`
}

// Question is the part of a survey question that answer handling needs.
type Question struct {
	Index     int          `json:"question_index"`
	Statement string       `json:"statement"`
	Detail    string       `json:"detail"`
	Options   []string     `json:"options"`
	Type      QuestionType `json:"question_type"`
	Scale     *ScaleConfig `json:"scale_config,omitempty"`
}

// Selection is either an enumerated option or the free-text "other" escape.
type Selection interface {
	// WireIndex is the selectedOption value stored for this selection.
	WireIndex() int
	isSelection()
}

type Enumerated struct {
	Option int
}

type Other struct {
	FreeText string
}

func (e Enumerated) WireIndex() int { return e.Option }
func (Enumerated) isSelection()     {}

func (Other) WireIndex() int { return OtherOptionIndex }
func (Other) isSelection()   {}

// Payload is the type-dependent body of an answer.
type Payload interface {
	isPayload()
}

// Choice answers radio, dropdown and scale questions.
type Choice struct {
	Selection Selection
}

// Multi answers checkbox questions. Options is an ordered set.
type Multi struct {
	Options []int
}

// Written answers text and textarea questions.
type Written struct {
	Text string
}

func (Choice) isPayload()  {}
func (Multi) isPayload()   {}
func (Written) isPayload() {}

// Answer is a validated answer ready to be persisted.
type Answer struct {
	SessionID  uuid.UUID
	QuestionID uuid.UUID
	Type       QuestionType
	Payload    Payload
}

// Record is the flat persistence shape. Fields that do not belong to the
// answer's type are always nil.
type Record struct {
	SessionID       uuid.UUID `json:"session_id"`
	QuestionID      uuid.UUID `json:"question_id"`
	SelectedOption  *int      `json:"selected_option"`
	FreeText        *string   `json:"free_text"`
	SelectedOptions []int     `json:"selected_options"`
	AnswerText      *string   `json:"answer_text"`
}

// Record flattens the answer for storage.
func (a Answer) Record() Record {
	rec := Record{SessionID: a.SessionID, QuestionID: a.QuestionID}
	switch p := a.Payload.(type) {
	case Choice:
		idx := p.Selection.WireIndex()
		rec.SelectedOption = &idx
		if other, ok := p.Selection.(Other); ok {
			ft := other.FreeText
			rec.FreeText = &ft
		}
	case Multi:
		rec.SelectedOptions = append([]int(nil), p.Options...)
	case Written:
		txt := p.Text
		rec.AnswerText = &txt
	}
	return rec
}

// PayloadFromRecord rebuilds the payload of a stored record for a question of
// type t. It returns nil when the record holds nothing for that type.
func PayloadFromRecord(t QuestionType, rec Record) Payload {
	switch {
	case t.SingleChoice():
		if rec.SelectedOption == nil {
			return nil
		}
		if *rec.SelectedOption == OtherOptionIndex {
			other := Other{}
			if rec.FreeText != nil {
				other.FreeText = *rec.FreeText
			}
			return Choice{Selection: other}
		}
		return Choice{Selection: Enumerated{Option: *rec.SelectedOption}}
	case t == Checkbox:
		if len(rec.SelectedOptions) == 0 {
			return nil
		}
		return Multi{Options: append([]int(nil), rec.SelectedOptions...)}
	case t.Written():
		if rec.AnswerText == nil {
			return nil
		}
		return Written{Text: *rec.AnswerText}
	}
	return nil
}
