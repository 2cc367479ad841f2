package hermes

// Subjects published by the survey engine.
const (
	SubjectAnswerSaved     = "survey.answer.saved"
	SubjectBatchGenerated  = "survey.batch.generated"
	SubjectBatchCompleted  = "survey.batch.completed"
	SubjectReportGenerated = "survey.report.generated"
)

type AnswerSaved struct {
	SessionID     string `json:"session_id"`
	QuestionID    string `json:"question_id"`
	QuestionIndex int    `json:"question_index"`
	QuestionType  string `json:"question_type"`
}

type BatchGenerated struct {
	SessionID  string `json:"session_id"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Phase      string `json:"phase"`
	Fixed      int    `json:"fixed"`
	Generated  int    `json:"generated"`
}

// BatchCompleted is emitted once every question in a five-question window
// has an answer. Consumers analyze the window.
type BatchCompleted struct {
	SessionID  string `json:"session_id"`
	BatchIndex int    `json:"batch_index"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

type ReportGenerated struct {
	SessionID string `json:"session_id"`
	ReportID  string `json:"report_id"`
	Version   int    `json:"version"`
	Title     string `json:"title"`
	Questions int    `json:"questions"`
}
