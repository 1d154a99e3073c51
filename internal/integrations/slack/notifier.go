// Package slackbot posts analysis results to Slack and analyzes files shared in
// channels the bot is a member of.
package slackbot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/slack-go/slack"

	"sentilens/internal/analysis"
	"sentilens/internal/classify"
	"sentilens/internal/report"
)

// API is the subset of *slack.Client used here.
type API interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...slack.MsgOption) (string, string, string, error)
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
	GetFileContext(ctx context.Context, downloadURL string, writer io.Writer) error
}

type Notifier struct {
	api    API
	logger *slog.Logger
}

func NewNotifier(api API, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{api: api, logger: logger}
}

// ProgressMessage is a status message edited in place as batches complete.
type ProgressMessage struct {
	n        *Notifier
	channel  string
	ts       string
	name     string
	lastSent int
}

// StartProgress posts the initial status message, in a thread when threadTS is set.
func (n *Notifier) StartProgress(ctx context.Context, channel, threadTS, name string) (*ProgressMessage, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(progressText(name, 0), false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	_, ts, err := n.api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return nil, fmt.Errorf("post progress message: %w", err)
	}
	return &ProgressMessage{n: n, channel: channel, ts: ts, name: name}, nil
}

// Update edits the status message when the percentage moved. Errors are logged.
func (m *ProgressMessage) Update(ctx context.Context, p classify.Progress) {
	if p.Percent == m.lastSent {
		return
	}
	m.lastSent = p.Percent
	_, _, _, err := m.n.api.UpdateMessageContext(ctx, m.channel, m.ts,
		slack.MsgOptionText(progressText(m.name, p.Percent), false))
	if err != nil {
		m.n.logger.Warn("slack progress update failed", "channel", m.channel, "err", err)
	}
}

// Fail replaces the status message with an error notice.
func (m *ProgressMessage) Fail(ctx context.Context, cause error) {
	_, _, _, err := m.n.api.UpdateMessageContext(ctx, m.channel, m.ts,
		slack.MsgOptionText(fmt.Sprintf("Analysis of %s failed: %v", m.name, cause), false))
	if err != nil {
		m.n.logger.Warn("slack progress update failed", "channel", m.channel, "err", err)
	}
}

func progressText(name string, percent int) string {
	return fmt.Sprintf("Analyzing %s: %d%%", name, percent)
}

// PublishSummary posts the rendered report and uploads the classified CSV.
func (n *Notifier) PublishSummary(ctx context.Context, channel, threadTS string, s *analysis.Summary) error {
	opts := []slack.MsgOption{slack.MsgOptionText(report.RenderMarkdown(s), false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	if _, _, err := n.api.PostMessageContext(ctx, channel, opts...); err != nil {
		return fmt.Errorf("post summary: %w", err)
	}

	var buf bytes.Buffer
	if err := s.ExportCSV(&buf); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	filename := ExportName(s.FileName)
	_, err := n.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Reader:          &buf,
		FileSize:        buf.Len(),
		Filename:        filename,
		Channel:         channel,
		ThreadTimestamp: threadTS,
		Title:           filename,
		InitialComment:  fmt.Sprintf("Classified %d rows from %s", len(s.Items), s.FileName),
	})
	if err != nil {
		return fmt.Errorf("upload export: %w", err)
	}
	n.logger.Info("slack summary published", "channel", channel, "file", filename, "items", len(s.Items))
	return nil
}

// ExportName derives the export file name: feedback.xlsx -> feedback-classified.csv.
func ExportName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." {
		base = "results"
	}
	return base + "-classified.csv"
}
