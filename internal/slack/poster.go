// Package slack posts survey notifications to a Slack channel.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// ReportNotice describes a freshly written report.
type ReportNotice struct {
	SessionID string
	Title     string
	Version   int
	Questions int
	// Link points at the report page; omitted from the message when empty.
	Link string
}

// PostReportReady announces a new report version and returns the message ts.
func (p *Poster) PostReportReady(ctx context.Context, n ReportNotice) (string, error) {
	text := formatReportMessage(n)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	ts, err := p.post(ctx, body)
	if err != nil {
		return "", err
	}
	p.logger.Info("posted report notice to slack", "ts", ts, "session_id", n.SessionID, "version", n.Version)
	return ts, nil
}

func (p *Poster) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatReportMessage(n ReportNotice) string {
	var sb strings.Builder

	title := strings.TrimSpace(n.Title)
	if title == "" {
		title = "無題のアンケート"
	}
	fmt.Fprintf(&sb, "*レポートが作成されました:* %s\n", title)
	fmt.Fprintf(&sb, "バージョン %d / 回答 %d 問\n", n.Version, n.Questions)
	if n.Link != "" {
		fmt.Fprintf(&sb, "<%s|レポートを開く>", n.Link)
	} else {
		fmt.Fprintf(&sb, "_session %s_", n.SessionID)
	}
	return sb.String()
}
