// Package app wires configuration, logging and the analysis pipeline into the
// sentilens command line.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/slack-go/slack"

	"sentilens/internal/analysis"
	"sentilens/internal/classify"
	"sentilens/internal/config"
	"sentilens/internal/httpx"
	"sentilens/internal/integrations/llm"
	slackbot "sentilens/internal/integrations/slack"
	"sentilens/internal/ngram"
	"sentilens/internal/report"
	"sentilens/internal/storage/sqlite"
	"sentilens/internal/watch"
)

const usage = `usage:
  sentilens analyze -file F [-text-column C] [-date-column D] [-threshold N] [-export out.csv] [-rows N] [-slack]
  sentilens bot
  sentilens watch`

func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatalf("sentilens: %v", err)
	}
}

// Run executes one subcommand. Output meant for the user goes to stdout, logs to stderr.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := NewLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	logger.Info("config loaded",
		"provider", cfg.LLMProvider,
		"model", cfg.LLMModel,
		"batch_size", cfg.LLMBatchSize,
		"strategy", cfg.LLMStrategy,
		"request_timeout", cfg.RequestTimeout(),
		"retry_max_attempts", cfg.LLMRetryMaxAttempts,
		"external_http_timeout", appliedHTTPTimeout,
		"timezone", cfg.Timezone,
	)

	switch args[0] {
	case "analyze":
		return runAnalyze(ctx, cfg, logger, args[1:], stdout)
	case "bot":
		return runBot(ctx, cfg, logger)
	case "watch":
		return runWatch(ctx, cfg, logger)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

// newSession builds the pipeline from configuration. The returned cleanup closes the
// session and its store.
func newSession(cfg config.Config, logger *slog.Logger) (*analysis.Session, func(), error) {
	classifier, err := llm.New(llm.Options{
		Provider:        cfg.LLMProvider,
		Model:           cfg.LLMModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
	}, httpx.ExternalHTTPClient(), logger)
	if err != nil {
		return nil, nil, err
	}
	strategy, err := classify.ParseStrategy(cfg.LLMStrategy)
	if err != nil {
		return nil, nil, err
	}

	stopwords := ngram.DefaultStopwords
	if cfg.StopwordsPath != "" {
		if stopwords, err = ngram.LoadStoplist(cfg.StopwordsPath); err != nil {
			return nil, nil, err
		}
		logger.Info("stoplist loaded", "path", cfg.StopwordsPath, "terms", len(stopwords))
	}

	store, err := sqlite.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	orch := classify.Orchestrator{
		Classifier: classifier,
		BatchSize:  cfg.LLMBatchSize,
		Strategy:   strategy,
		Timeout:    cfg.RequestTimeout(),
		Retry: classify.RetryPolicy{
			MaxAttempts: cfg.LLMRetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay(),
		},
		Logger: logger,
	}
	session := analysis.NewSession(orch, ngram.NewEngine(stopwords), store, logger)
	cleanup := func() {
		session.Close()
		if err := store.Close(); err != nil {
			logger.Warn("close store", "err", err)
		}
	}
	return session, cleanup, nil
}

func baseOptions(cfg config.Config) analysis.Options {
	return analysis.Options{
		TextColumn: cfg.TextColumn,
		DateColumn: cfg.DateColumn,
		Threshold:  cfg.NgramThreshold,
		Location:   cfg.Location,
	}
}

func runAnalyze(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("file", "", "CSV or XLSX file to analyze (required)")
	textColumn := fs.String("text-column", cfg.TextColumn, "column holding the text")
	dateColumn := fs.String("date-column", cfg.DateColumn, "column holding the date")
	threshold := fs.Int("threshold", cfg.NgramThreshold, "minimum n-gram count to list")
	export := fs.String("export", "", "write the classified rows as CSV to this path")
	rows := fs.Int("rows", 20, "rows to print, 0 for all")
	postSlack := fs.Bool("slack", false, "post the summary to slack_channel_id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	if *file == "" {
		return fmt.Errorf("-file is required\n%s", usage)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	session, cleanup, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := baseOptions(cfg)
	opts.TextColumn = *textColumn
	opts.DateColumn = *dateColumn
	opts.Threshold = *threshold
	opts.OnProgress = func(p classify.Progress) {
		logger.Info("progress", "processed", p.Processed, "total", p.Total, "percent", p.Percent)
	}

	summary, err := session.Run(ctx, filepath.Base(*file), data, opts)
	if err != nil {
		return err
	}

	if err := report.WriteTable(stdout, summary.Items, *rows); err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	fmt.Fprint(stdout, report.RenderMarkdown(summary))

	if *export != "" {
		if err := writeExport(*export, summary); err != nil {
			return err
		}
		logger.Info("export written", "path", *export, "rows", len(summary.Items))
	}

	if *postSlack {
		if cfg.SlackBotToken == "" || cfg.SlackChannelID == "" {
			return errors.New("-slack requires slack_bot_token and slack_channel_id")
		}
		notifier := slackbot.NewNotifier(slack.New(cfg.SlackBotToken), logger)
		if err := notifier.PublishSummary(ctx, cfg.SlackChannelID, "", summary); err != nil {
			return err
		}
	}
	return nil
}

func writeExport(path string, summary *analysis.Summary) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return summary.ExportCSV(f)
}

func runBot(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if !cfg.SlackConfigured() {
		return errors.New("bot requires slack_bot_token and slack_app_token")
	}
	session, cleanup, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	api := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
	bot := slackbot.NewBot(api, session, baseOptions(cfg), cfg.SlackChannelID, logger)
	logger.Info("starting slack bot", "channel", cfg.SlackChannelID)
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("slack bot: %w", err)
	}
	return nil
}

func runWatch(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.WatchFile == "" {
		return errors.New("watch requires watch_file")
	}
	session, cleanup, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var notifier *slackbot.Notifier
	if cfg.SlackBotToken != "" && cfg.SlackChannelID != "" {
		notifier = slackbot.NewNotifier(slack.New(cfg.SlackBotToken), logger)
	}

	job := func(ctx context.Context) error {
		data, err := os.ReadFile(cfg.WatchFile)
		if err != nil {
			return err
		}
		summary, err := session.Run(ctx, filepath.Base(cfg.WatchFile), data, baseOptions(cfg))
		if err != nil {
			return err
		}
		path := filepath.Join(cfg.ExportDir, slackbot.ExportName(cfg.WatchFile))
		if err := writeExport(path, summary); err != nil {
			return err
		}
		logger.Info("watch export written", "path", path, "rows", len(summary.Items))
		if notifier != nil {
			return notifier.PublishSummary(ctx, cfg.SlackChannelID, "", summary)
		}
		return nil
	}

	sched, err := watch.New(cfg.WatchSchedule, cfg.Location, job, logger)
	if err != nil {
		return err
	}
	logger.Info("watching file", "path", cfg.WatchFile, "schedule", cfg.WatchSchedule)
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
