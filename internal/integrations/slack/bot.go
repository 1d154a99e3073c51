package slackbot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"golang.org/x/sync/errgroup"

	"sentilens/internal/analysis"
	"sentilens/internal/classify"
	"sentilens/internal/tabular"
)

const (
	// maxFileSize bounds downloads of shared files.
	maxFileSize = 20 << 20
	// maxConcurrentEvents bounds in-flight event handlers.
	maxConcurrentEvents = 4
)

// Analyzer runs the pipeline for one file.
type Analyzer interface {
	Run(ctx context.Context, name string, data []byte, opts analysis.Options) (*analysis.Summary, error)
}

// Bot listens over Socket Mode for CSV/XLSX files shared in a channel and replies
// in thread with the analysis.
type Bot struct {
	client   *slack.Client
	api      API
	notifier *Notifier
	analyzer Analyzer
	options  analysis.Options
	channel  string
	logger   *slog.Logger
}

// NewBot builds a bot. When channel is non-empty, files shared elsewhere are ignored.
func NewBot(client *slack.Client, analyzer Analyzer, options analysis.Options, channel string, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		client:   client,
		api:      client,
		notifier: NewNotifier(client, logger),
		analyzer: analyzer,
		options:  options,
		channel:  channel,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled or the socket connection fails.
func (b *Bot) Run(ctx context.Context) error {
	client := socketmode.New(b.client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		b.dispatch(ctx, client.Events, func(req socketmode.Request) { client.Ack(req) })
	}()

	err := client.RunContext(ctx)
	cancel()
	<-dispatched
	return err
}

// dispatch acknowledges Events API envelopes and hands them to at most
// maxConcurrentEvents handlers. It returns when ctx is done or events is closed,
// after the running handlers finish.
func (b *Bot) dispatch(ctx context.Context, events <-chan socketmode.Event, ack func(socketmode.Request)) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentEvents)
	defer func() { _ = g.Wait() }()

	for {
		var evt socketmode.Event
		var ok bool
		select {
		case <-ctx.Done():
			return
		case evt, ok = <-events:
			if !ok {
				return
			}
		}

		switch evt.Type {
		case socketmode.EventTypeEventsAPI:
			if evt.Request != nil {
				ack(*evt.Request)
			}
			eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			g.Go(func() error {
				b.handleEventsAPI(ctx, eventsAPIEvent)
				return nil
			})
		case socketmode.EventTypeConnected:
			b.logger.Info("slack bot connected via socket mode")
		}
	}
}

func (b *Bot) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		b.handleMessage(ctx, ev)
	}
}

func (b *Bot) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	if ev.BotID != "" || ev.Message == nil || len(ev.Message.Files) == 0 {
		return
	}
	if b.channel != "" && ev.Channel != b.channel {
		return
	}
	for _, f := range ev.Message.Files {
		if !tabular.IsSupported(f.Name) {
			b.logger.Debug("slack file ignored", "name", f.Name, "filetype", f.Filetype)
			continue
		}
		if err := b.analyzeFile(ctx, ev.Channel, ev.TimeStamp, f); err != nil {
			b.logger.Error("slack file analysis failed", "name", f.Name, "channel", ev.Channel, "err", err)
		}
	}
}

func (b *Bot) analyzeFile(ctx context.Context, channel, threadTS string, f slack.File) error {
	log := b.logger.With("file", f.Name, "channel", channel)
	if f.Size > maxFileSize {
		_, _, err := b.api.PostMessageContext(ctx, channel,
			slack.MsgOptionText(fmt.Sprintf("%s is too large to analyze (%d bytes, limit %d).", f.Name, f.Size, maxFileSize), false),
			slack.MsgOptionTS(threadTS))
		return err
	}

	progress, err := b.notifier.StartProgress(ctx, channel, threadTS, f.Name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	url := f.URLPrivateDownload
	if url == "" {
		url = f.URLPrivate
	}
	if err := b.api.GetFileContext(ctx, url, &buf); err != nil {
		progress.Fail(ctx, err)
		return fmt.Errorf("download %s: %w", f.Name, err)
	}
	log.Info("slack file downloaded", "bytes", buf.Len())

	opts := b.options
	opts.OnProgress = func(p classify.Progress) { progress.Update(ctx, p) }
	summary, err := b.analyzer.Run(ctx, f.Name, buf.Bytes(), opts)
	if err != nil {
		progress.Fail(ctx, err)
		return err
	}
	progress.Update(ctx, classify.Progress{Processed: len(summary.Items), Total: len(summary.Items), Percent: 100})
	return b.notifier.PublishSummary(ctx, channel, threadTS, summary)
}
