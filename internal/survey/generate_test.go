package survey

import (
	"strings"
	"testing"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/baisoku/sonar/internal/phase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeQuestions(t *testing.T) {
	in := []generatedQuestion{
		{Statement: "  ", QuestionType: "radio", Options: []string{"a", "b"}},
		{Statement: "型が不明", QuestionType: "slider", Options: []string{"a", "b"}},
		{Statement: "選択肢不足", QuestionType: "checkbox", Options: []string{"a", " "}},
		{Statement: "多すぎる", QuestionType: "Dropdown", Options: []string{"1", "2", "3", "4", "5", "6", "7", "8"}},
		{Statement: "スケール", QuestionType: "scale", ScaleConfig: &answer.ScaleConfig{Min: 5, Max: 5}},
		{Statement: "自由記述", QuestionType: "textarea", Options: []string{"ignored"}},
		{Statement: "上限超え", QuestionType: "text"},
	}

	out := sanitizeQuestions(in, 4, nil)
	require.Len(t, out, 4)

	assert.Equal(t, answer.Radio, out[0].Type, "unknown type falls back to radio")
	assert.Equal(t, []string{"a", "b"}, out[0].Options)

	assert.Equal(t, answer.Dropdown, out[1].Type)
	assert.Len(t, out[1].Options, answer.OtherOptionIndex)

	assert.Equal(t, answer.Scale, out[2].Type)
	assert.Equal(t, &answer.ScaleConfig{Min: 1, Max: 5}, out[2].Scale)

	assert.Equal(t, answer.Textarea, out[3].Type)
	assert.Nil(t, out[3].Options)
}

func TestSanitizeQuestions_DropsRepeats(t *testing.T) {
	in := []generatedQuestion{
		{Statement: "在宅勤務は好きですか？", QuestionType: "text"},
		{Statement: "通勤時間は何分ですか", QuestionType: "text"},
		{Statement: "通勤時間は 何分ですか。", QuestionType: "text"},
		{Statement: "理想の働き方を教えてください", QuestionType: "text"},
	}

	out := sanitizeQuestions(in, 5, []string{"在宅勤務は好きですか"})
	require.Len(t, out, 2)
	assert.Equal(t, "通勤時間は何分ですか", out[0].Statement)
	assert.Equal(t, "理想の働き方を教えてください", out[1].Statement)
}

func TestFromFixed(t *testing.T) {
	q := fromFixed(FixedQuestion{Statement: "満足度", QuestionType: "scale", Options: []string{"x"},
		ScaleConfig: &answer.ScaleConfig{Min: 0, Max: 10, MinLabel: "不満", MaxLabel: "満足"}})
	assert.Equal(t, answer.Scale, q.Type)
	assert.Nil(t, q.Options)
	require.NotNil(t, q.Scale)
	assert.Equal(t, 10, q.Scale.Max)

	q = fromFixed(FixedQuestion{Statement: "色", Options: []string{"赤", "青"}})
	assert.Equal(t, answer.Radio, q.Type)
	assert.Equal(t, []string{"赤", "青"}, q.Options)
}

func TestTrimCompletion(t *testing.T) {
	cases := []struct{ in, want string }{
		{in: "  本文  ", want: "本文"},
		{in: "```markdown\n# 見出し\n```", want: "# 見出し"},
		{in: "```\n内容\n```\n", want: "内容"},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, trimCompletion(tc.in), "input %q", tc.in)
	}
}

func TestBuildQuestionPrompt(t *testing.T) {
	pc := promptContext{
		session: &Session{
			Purpose:           "副業の実態把握",
			BackgroundText:    "社内制度の見直し",
			ExplorationThemes: []string{"収入", "時間配分"},
		},
		entries: []Entry{{
			Question: Question{Question: answer.Question{Index: 1, Statement: "副業をしていますか", Detail: "現在の状況"}},
			Rendered: "はい",
		}},
		analyses: []Analysis{{StartIndex: 1, EndIndex: 5, Text: "前向き"}},
	}

	got := buildQuestionPrompt(pc, 6, 5, phase.Reframing)
	for _, want := range []string{
		"副業の実態把握",
		"社内制度の見直し",
		"- 時間配分",
		"視点変換フェーズ",
		"Q1. 副業をしていますか",
		"補足: 現在の状況",
		"回答: はい",
		"### Q1〜Q5\n前向き",
		"Q6 から始まる次の質問を5問",
	} {
		assert.Contains(t, got, want)
	}
}

func TestBuildReportPrompt(t *testing.T) {
	pc := promptContext{session: &Session{Title: "働き方", Purpose: "p", ReportInstructions: "経営層向けに"}}
	got := buildReportPrompt(pc)
	assert.True(t, strings.HasPrefix(got, "# 働き方\n"))
	assert.Contains(t, got, "## レポートへの指示\n経営層向けに")
	assert.NotContains(t, got, "これまでの分析")
}
