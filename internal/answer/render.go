package answer

import (
	"fmt"
	"strconv"
	"strings"
)

// NoAnswer is rendered whenever an answer is missing or cannot be resolved.
const NoAnswer = "未回答"

const otherLabel = "その他（自由記述）"

// Render turns an answer into the flat text used in prompts and reports.
// p may be nil. The result is never empty.
func Render(q Question, p Payload) string {
	qt := q.Type
	if qt == "" {
		qt = Radio
	}

	switch {
	case qt.Written():
		w, ok := p.(Written)
		if !ok {
			return NoAnswer
		}
		if txt := strings.TrimSpace(w.Text); txt != "" {
			return txt
		}
		return NoAnswer

	case qt == Checkbox:
		m, ok := p.(Multi)
		if !ok || len(m.Options) == 0 {
			return NoAnswer
		}
		labels := make([]string, len(m.Options))
		for i, idx := range m.Options {
			labels[i] = optionLabel(q.Options, idx)
		}
		return strings.Join(labels, ", ")

	case qt == Scale:
		c, ok := p.(Choice)
		if !ok || c.Selection == nil {
			return NoAnswer
		}
		value := c.Selection.WireIndex()
		if q.Scale == nil {
			return strconv.Itoa(value)
		}
		return fmt.Sprintf("%d（%s 〜 %s）", value,
			labelOr(q.Scale.MinLabel, q.Scale.Min),
			labelOr(q.Scale.MaxLabel, q.Scale.Max))

	default:
		c, ok := p.(Choice)
		if !ok || c.Selection == nil {
			return NoAnswer
		}
		switch sel := c.Selection.(type) {
		case Other:
			if ft := strings.TrimSpace(sel.FreeText); ft != "" {
				return otherLabel + ": " + ft
			}
			return otherLabel
		case Enumerated:
			if sel.Option >= 0 && sel.Option < len(q.Options) && strings.TrimSpace(q.Options[sel.Option]) != "" {
				return q.Options[sel.Option]
			}
		}
		return NoAnswer
	}
}

func optionLabel(options []string, idx int) string {
	if idx >= 0 && idx < len(options) && strings.TrimSpace(options[idx]) != "" {
		return options[idx]
	}
	return fmt.Sprintf("選択肢%d", idx)
}

func labelOr(label string, n int) string {
	if label != "" {
		return label
	}
	return strconv.Itoa(n)
}
