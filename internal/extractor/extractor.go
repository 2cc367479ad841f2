// Package extractor pulls a JSON payload out of free-form model output and
// repairs the two mistakes models make most often before it is decoded.
package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoPayload means the text contained neither a fenced block nor a brace span.
var ErrNoPayload = errors.New("extraction_failure")

// ErrMalformed matches every *MalformedError via errors.Is.
var ErrMalformed = errors.New("malformed_payload")

// MalformedError is returned when an extracted payload still fails strict
// decoding after normalization.
type MalformedError struct {
	Payload string
	Err     error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed_payload: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

var (
	fenceRe         = regexp.MustCompile("(?i)```(?:json)?\\s*([\\s\\S]*?)```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	joinRe          = regexp.MustCompile(`}\s*{`)
)

// Extract returns the best candidate payload in text. A fenced block wins
// over everything else; otherwise the span from the first '{' to the last
// '}' is used.
func Extract(text string) (string, bool) {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		if inner := strings.TrimSpace(m[1]); inner != "" {
			return inner, true
		}
	}

	first := strings.IndexByte(text, '{')
	last := strings.LastIndexByte(text, '}')
	if first == -1 || last == -1 || last <= first {
		return "", false
	}
	return strings.TrimSpace(text[first : last+1]), true
}

// Normalize drops trailing commas and joins adjacent objects. Trailing
// commas are removed first so the join never produces ",,".
func Normalize(raw string) string {
	out := trailingCommaRe.ReplaceAllString(raw, "$1")
	return joinRe.ReplaceAllString(out, "},{")
}

// Decode extracts a payload from text and unmarshals it into v. It tries the
// payload as-is, then normalized, then normalized and wrapped in brackets so
// concatenated objects decode into a slice.
func Decode(text string, v any) error {
	raw, ok := Extract(text)
	if !ok {
		return ErrNoPayload
	}

	err := json.Unmarshal([]byte(raw), v)
	if err == nil {
		return nil
	}

	normalized := Normalize(raw)
	if normalized != raw {
		if err = json.Unmarshal([]byte(normalized), v); err == nil {
			return nil
		}
	}

	if strings.Contains(normalized, "},{") && !strings.HasPrefix(normalized, "[") {
		if json.Unmarshal([]byte("["+normalized+"]"), v) == nil {
			return nil
		}
	}

	return &MalformedError{Payload: raw, Err: err}
}
