package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/baisoku/sonar/internal/extractor"
	"github.com/baisoku/sonar/internal/metrics"
	"github.com/baisoku/sonar/internal/phase"
	"github.com/baisoku/sonar/internal/survey"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine returns err from every call when set, otherwise canned values.
type fakeEngine struct {
	err     error
	created survey.CreateSessionInput
	sub     answer.Submission
}

func (f *fakeEngine) CreateSession(_ context.Context, in survey.CreateSessionInput) (*survey.Session, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return &survey.Session{ID: uuid.New(), Purpose: in.Purpose, ReportTarget: 10, Status: survey.StatusActive}, nil
}

func (f *fakeEngine) Overview(_ context.Context, id uuid.UUID) (*survey.Overview, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &survey.Overview{Session: &survey.Session{ID: id}}, nil
}

func (f *fakeEngine) GenerateBatch(_ context.Context, id uuid.UUID) ([]survey.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []survey.Question{{ID: uuid.New(), SessionID: id, Question: answer.Question{Index: 1, Statement: "Q1"}}}, nil
}

func (f *fakeEngine) SubmitAnswer(_ context.Context, sub answer.Submission) (*answer.Record, error) {
	f.sub = sub
	if f.err != nil {
		return nil, f.err
	}
	return &answer.Record{SelectedOption: sub.SelectedOption}, nil
}

func (f *fakeEngine) GenerateReport(_ context.Context, id uuid.UUID) (*survey.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &survey.Report{ID: uuid.New(), SessionID: id, Version: 1, Text: "# r"}, nil
}

func (f *fakeEngine) LatestReport(_ context.Context, id uuid.UUID) (*survey.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &survey.Report{SessionID: id, Version: 3}, nil
}

func testServer(engine Engine, opts Options) *Server {
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(8760, engine, opts)
}

func do(t *testing.T, srv *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(&fakeEngine{}, Options{})
	w := do(t, srv, "GET", "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatusEndpoint(t *testing.T) {
	srv := testServer(&fakeEngine{}, Options{APIToken: "secret"})

	w := do(t, srv, "GET", "/api/v1/sonar/status", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, "GET", "/api/v1/sonar/status", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, "GET", "/api/v1/sonar/status", "", "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "sonar", body["agent"])
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := testServer(&fakeEngine{}, Options{})
	w := do(t, srv, "GET", "/nonexistent", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewSurveyMetrics(reg)
	m.ObserveAnswer("radio", "ok")

	srv := testServer(&fakeEngine{}, Options{Gatherer: reg})
	w := do(t, srv, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sonar_survey_answers_total")
}

func TestSubmitAnswer_DefaultsAndDecoding(t *testing.T) {
	f := &fakeEngine{}
	srv := testServer(f, Options{})
	sid, qid := uuid.NewString(), uuid.NewString()

	w := do(t, srv, "POST", "/api/answers",
		fmt.Sprintf(`{"sessionId":%q,"questionId":%q,"selectedOption":6,"freeText":"自分で"}`, sid, qid))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sid, f.sub.SessionID)
	require.NotNil(t, f.sub.SelectedOption)
	assert.Equal(t, 6, *f.sub.SelectedOption)
	assert.Equal(t, "", f.sub.QuestionType, "type defaulting is left to the engine")

	w = do(t, srv, "POST", "/api/answers", `{"sessionId":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgBadRequest, decodeError(t, w).Error)
}

func TestErrorMapping(t *testing.T) {
	id := uuid.NewString()
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", &answer.ValidationError{Code: answer.CodeMissingFreeText, Message: "自由記述の内容を入力してください"}, 400, "自由記述の内容を入力してください"},
		{"report target", &survey.ReportTargetError{Target: 7, Err: phase.ErrInvalidReportTarget}, 400, "回答数は5の倍数で指定してください"},
		{"not found", fmt.Errorf("get session: %w", survey.ErrNotFound), 404, msgNotFound},
		{"busy", survey.ErrBusy, 409, msgBusy},
		{"no payload", extractor.ErrNoPayload, 502, msgBadReply},
		{"malformed", &extractor.MalformedError{Payload: "{", Err: errors.New("eof")}, 502, msgBadReply},
		{"empty completion", fmt.Errorf("generate report: %w", survey.ErrEmptyCompletion), 502, msgBadReply},
		{"internal", errors.New("connection refused"), 500, "予期せぬエラーが発生しました"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := testServer(&fakeEngine{err: tc.err}, Options{})
			w := do(t, srv, "POST", "/api/sessions/"+id+"/questions", "")
			assert.Equal(t, tc.code, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tc.msg, body.Error)
			assert.NotContains(t, body.Error, "connection refused")
		})
	}
}

func TestSessionRoutes(t *testing.T) {
	srv := testServer(&fakeEngine{}, Options{})
	id := uuid.NewString()

	w := do(t, srv, "POST", "/api/sessions", `{"purpose":"目的","reportTarget":15}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, srv, "GET", "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, "GET", "/api/sessions/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv, "POST", "/api/sessions/"+id+"/reports", "")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, srv, "GET", "/api/sessions/"+id+"/reports/latest", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rep survey.Report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rep))
	assert.Equal(t, 3, rep.Version)
}

func TestCreateSession_PassesInput(t *testing.T) {
	f := &fakeEngine{}
	srv := testServer(f, Options{})

	body, _ := json.Marshal(map[string]any{
		"purpose":           "目的",
		"explorationThemes": []string{"A"},
		"fixedQuestions":    []map[string]any{{"statement": "年齢", "question_type": "text"}},
		"reportTarget":      20,
	})
	req := httptest.NewRequest("POST", "/api/sessions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 20, f.created.ReportTarget)
	assert.Equal(t, []string{"A"}, f.created.ExplorationThemes)
	require.Len(t, f.created.FixedQuestions, 1)
	assert.Equal(t, "text", f.created.FixedQuestions[0].QuestionType)
}

func signGuest(t *testing.T, secret string, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, jwt.MapClaims{"sub": "guest-1", "exp": exp.Unix()})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestGuestAuth(t *testing.T) {
	srv := testServer(&fakeEngine{}, Options{GuestSecret: "k"})
	path := "/api/sessions/" + uuid.NewString()

	w := do(t, srv, "GET", path, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	valid := signGuest(t, "k", jwt.SigningMethodHS256, time.Now().Add(time.Hour))
	w = do(t, srv, "GET", path, "", "Authorization", "Bearer "+valid)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest("GET", path, nil)
	req.AddCookie(&http.Cookie{Name: guestCookie, Value: valid})
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	expired := signGuest(t, "k", jwt.SigningMethodHS256, time.Now().Add(-time.Hour))
	w = do(t, srv, "GET", path, "", "Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	wrongKey := signGuest(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour))
	w = do(t, srv, "GET", path, "", "Authorization", "Bearer "+wrongKey)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	hs512 := signGuest(t, "k", jwt.SigningMethodHS512, time.Now().Add(time.Hour))
	w = do(t, srv, "GET", path, "", "Authorization", "Bearer "+hs512)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code, "health stays open")
}
