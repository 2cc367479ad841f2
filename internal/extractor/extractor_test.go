package extractor

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{
			name:   "json fence",
			input:  "Some text\n```json\n{\"questions\": []}\n```\nMore text",
			want:   `{"questions": []}`,
			wantOK: true,
		},
		{
			name:   "fence without language tag",
			input:  "```\n{\"questions\": [{\"statement\": \"test\"}]}\n```",
			want:   `{"questions": [{"statement": "test"}]}`,
			wantOK: true,
		},
		{
			name:   "uppercase tag",
			input:  "```JSON\n{\"a\":1}\n```",
			want:   `{"a":1}`,
			wantOK: true,
		},
		{
			name:   "fence ignores braces in prose",
			input:  "Use {curly} style.\n```json\n{\"a\": 1}\n```\nSee {this}.",
			want:   `{"a": 1}`,
			wantOK: true,
		},
		{
			name:   "brace span",
			input:  `Here is the result: {"questions": []} thanks`,
			want:   `{"questions": []}`,
			wantOK: true,
		},
		{
			name:   "nested",
			input:  `{"questions": [{"statement": "Q1", "options": ["A", "B"]}]}`,
			want:   `{"questions": [{"statement": "Q1", "options": ["A", "B"]}]}`,
			wantOK: true,
		},
		{
			name:   "empty fence falls back to braces",
			input:  "```json\n```\n{\"a\":2}",
			want:   `{"a":2}`,
			wantOK: true,
		},
		{name: "no json", input: "No JSON here"},
		{name: "empty", input: ""},
		{name: "close before open", input: "} nothing {"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"a": 1, "b": 2,}`, `{"a": 1, "b": 2}`},
		{`{"items": [1, 2, 3,]}`, `{"items": [1, 2, 3]}`},
		{"{\"items\": [1,\n ]\n}", "{\"items\": [1]\n}"},
		{`{"a":1}{"b":2}`, `{"a":1},{"b":2}`},
		{"{\"a\":1}\n  {\"b\":2}", `{"a":1},{"b":2}`},
		{`{"a":1},{"b":2},`, `{"a":1},{"b":2},`},
		{`{"questions": [{"statement": "test"}]}`, `{"questions": [{"statement": "test"}]}`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.input))
	}
}

func TestNormalize_TrailingCommaYieldsValidJSON(t *testing.T) {
	raw, ok := Extract(`{"questions": [{"statement": "Q1", "detail": "", "options": ["A", "B", "C",],},]}`)
	require.True(t, ok)
	assert.True(t, json.Valid([]byte(Normalize(raw))))
}

type batch struct {
	Questions []struct {
		Statement string   `json:"statement"`
		Options   []string `json:"options"`
	} `json:"questions"`
}

func TestDecode_TypicalModelReply(t *testing.T) {
	reply := "以下が生成された質問です。\n\n```json\n" + `{
  "questions": [
    {
      "statement": "リモートワークの頻度は適切だと思いますか？",
      "options": ["はい", "わからない", "いいえ", "条件付きで賛成", "部分的に不満", "改善の余地がある"]
    },
    {
      "statement": "チーム内のコミュニケーションは十分ですか？",
      "options": ["はい", "わからない", "いいえ", "ツール次第", "頻度が多すぎる", "形式的すぎる"]
    }
  ]
}` + "\n```"

	var b batch
	require.NoError(t, Decode(reply, &b))
	require.Len(t, b.Questions, 2)
	assert.Contains(t, b.Questions[0].Statement, "リモートワーク")
	assert.Len(t, b.Questions[0].Options, 6)
}

func TestDecode_RepairsTrailingComma(t *testing.T) {
	var b batch
	require.NoError(t, Decode(`{"questions": [{"statement": "Q1", "options": ["A",],},]}`, &b))
	require.Len(t, b.Questions, 1)
	assert.Equal(t, []string{"A"}, b.Questions[0].Options)
}

func TestDecode_ConcatenatedObjectsIntoSlice(t *testing.T) {
	var items []map[string]int
	require.NoError(t, Decode(`result: {"a":1}{"b":2}`, &items))
	assert.Equal(t, []map[string]int{{"a": 1}, {"b": 2}}, items)
}

func TestDecode_Failures(t *testing.T) {
	var b batch

	err := Decode("I could not produce questions.", &b)
	assert.ErrorIs(t, err, ErrNoPayload)

	err = Decode(`{"questions": [unquoted]}`, &b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
	var merr *MalformedError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, `{"questions": [unquoted]}`, merr.Payload)
	assert.False(t, errors.Is(err, ErrNoPayload))
}
