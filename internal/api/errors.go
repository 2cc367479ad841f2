package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/baisoku/sonar/internal/extractor"
	"github.com/baisoku/sonar/internal/survey"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	msgBadRequest   = "リクエストの形式が正しくありません"
	msgNotFound     = "指定されたデータが見つかりません"
	msgBusy         = "質問を生成中です。しばらくしてから再度お試しください"
	msgBadReply     = "AIの応答を解析できませんでした。もう一度お試しください"
	msgUnauthorized = "認証が必要です"
	msgInternal     = "予期せぬエラーが発生しました"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps engine errors to HTTP responses. Only messages meant for
// respondents reach the body; everything else is logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *answer.ValidationError
	var rte *survey.ReportTargetError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Message, Code: string(verr.Code)})
	case errors.As(err, &rte):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: rte.Message(), Code: "profile_misconfiguration"})
	case errors.Is(err, survey.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: msgNotFound})
	case errors.Is(err, survey.ErrBusy):
		writeJSON(w, http.StatusConflict, errorBody{Error: msgBusy, Code: survey.ErrBusy.Error()})
	case errors.Is(err, extractor.ErrNoPayload):
		s.logger.Warn("model reply had no payload", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: msgBadReply, Code: extractor.ErrNoPayload.Error()})
	case errors.Is(err, extractor.ErrMalformed), errors.Is(err, survey.ErrEmptyCompletion):
		s.logger.Warn("unusable model reply", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: msgBadReply, Code: "malformed_payload"})
	default:
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgInternal})
	}
}

// decodeBody reads a JSON body into v. An empty body leaves v unchanged.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return &answer.ValidationError{Code: answer.CodeInvalidField, Message: msgBadRequest}
}
