package hermes

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubjectMatches(t *testing.T) {
	tests := []struct {
		pattern, subject string
		want             bool
	}{
		{"survey.batch.completed", "survey.batch.completed", true},
		{"survey.batch.completed", "survey.batch.generated", false},
		{"survey.*.completed", "survey.batch.completed", true},
		{"survey.>", "survey.answer.saved", true},
		{"survey.>", "survey", false},
		{"survey.batch", "survey.batch.completed", false},
		{"survey.batch.completed.extra", "survey.batch.completed", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, subjectMatches(tt.pattern, tt.subject), "%s vs %s", tt.pattern, tt.subject)
	}
}

func TestLocal_PublishSubscribe(t *testing.T) {
	bus := NewLocal(discardLogger())
	received := make(chan BatchCompleted, 1)

	require.NoError(t, bus.Subscribe(SubjectBatchCompleted, func(subject string, data []byte) {
		assert.Equal(t, SubjectBatchCompleted, subject)
		var evt BatchCompleted
		require.NoError(t, json.Unmarshal(data, &evt))
		received <- evt
	}))
	require.NoError(t, bus.Subscribe(SubjectAnswerSaved, func(string, []byte) {
		t.Error("unexpected delivery to answer.saved")
	}))

	want := BatchCompleted{SessionID: "s-1", BatchIndex: 1, StartIndex: 6, EndIndex: 10}
	require.NoError(t, bus.Publish(SubjectBatchCompleted, want))

	select {
	case got := <-received:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	bus.Close()
}

func TestLocal_PublishAfterClose(t *testing.T) {
	bus := NewLocal(discardLogger())
	bus.Close()
	assert.Error(t, bus.Publish(SubjectAnswerSaved, AnswerSaved{}))
}

func TestEventJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(AnswerSaved{SessionID: "s", QuestionID: "q", QuestionIndex: 3, QuestionType: "radio"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_id":"s","question_id":"q","question_index":3,"question_type":"radio"}`, string(data))
}
