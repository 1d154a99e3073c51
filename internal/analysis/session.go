// Package analysis runs the full pipeline for one uploaded file: decode, resolve
// columns, classify, count n-grams and aggregate labels.
package analysis

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"sentilens/internal/classify"
	"sentilens/internal/domain"
	"sentilens/internal/ngram"
	"sentilens/internal/storage/sqlite"
	"sentilens/internal/tabular"
)

// Options are the per-run user choices.
type Options struct {
	TextColumn string
	DateColumn string
	Threshold  int
	Location   *time.Location
	OnProgress classify.ProgressFunc
}

// Summary is everything the presentation layer needs about one run.
type Summary struct {
	RunID         string
	FileName      string
	Columns       []string
	TextColumn    string
	DateColumn    string
	Items         []domain.ClassifiedItem
	Bigrams       *ngram.View
	Trigrams      *ngram.View
	Sentiments    []domain.LabelCount
	Emotions      []domain.LabelCount
	Trend         []domain.TrendPoint
	MaxNgramCount int
}

// SetThreshold re-filters both n-gram views without recounting.
func (s *Summary) SetThreshold(threshold int) {
	s.Bigrams.SetThreshold(threshold)
	s.Trigrams.SetThreshold(threshold)
}

// ExportCSV writes the original columns plus Sentiment and Emotion.
func (s *Summary) ExportCSV(w io.Writer) error {
	return tabular.Export(w, s.Columns, s.Items)
}

// Session owns the state of the most recent run. Starting a new run cancels the one
// in flight and discards its results.
type Session struct {
	orchestrator classify.Orchestrator
	engine       *ngram.Engine
	store        *sqlite.Store
	logger       *slog.Logger

	mu      sync.Mutex
	entropy io.Reader
	cancel  context.CancelFunc
	done    chan struct{}
	current *Summary
}

// NewSession wires the pipeline stages. The orchestrator is copied per run so that
// each run gets its own progress hook.
func NewSession(orch classify.Orchestrator, engine *ngram.Engine, store *sqlite.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = ngram.NewEngine(nil)
	}
	return &Session{
		orchestrator: orch,
		engine:       engine,
		store:        store,
		logger:       logger,
		entropy:      ulid.Monotonic(rand.Reader, 0),
	}
}

// Run analyzes one file. Any error means no summary; the previous summary is
// discarded either way. A run replaced by a newer one returns context.Canceled
// and leaves no rows behind.
func (s *Session) Run(ctx context.Context, name string, data []byte, opts Options) (*Summary, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	prevCancel, prevDone := s.cancel, s.done
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	prev := s.current
	s.current = nil
	runID := ulid.MustNew(ulid.Now(), s.entropy).String()
	s.mu.Unlock()
	defer close(done)

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}
	if prev != nil {
		if err := s.store.DeleteRun(ctx, prev.RunID); err != nil {
			s.logger.Warn("analysis: drop previous run", "run_id", prev.RunID, "err", err)
		}
	}

	logger := s.logger.With("run_id", runID, "file", name)
	started := time.Now()
	summary, err := s.run(runCtx, runID, name, data, opts, logger)
	if err != nil {
		if delErr := s.store.DeleteRun(context.Background(), runID); delErr != nil {
			logger.Warn("analysis: discard partial run", "err", delErr)
		}
		logger.Error("analysis failed", "err", err)
		return nil, err
	}
	logger.Info("analysis complete",
		"items", len(summary.Items),
		"bigrams", len(summary.Bigrams.All),
		"trigrams", len(summary.Trigrams.All),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)

	s.mu.Lock()
	superseded := s.done != done
	if !superseded {
		s.current = summary
	}
	s.mu.Unlock()
	if superseded {
		if err := s.store.DeleteRun(context.Background(), runID); err != nil {
			logger.Warn("analysis: discard superseded run", "err", err)
		}
		logger.Info("analysis superseded by a newer run")
		return nil, context.Canceled
	}
	return summary, nil
}

func (s *Session) run(ctx context.Context, runID, name string, data []byte, opts Options, logger *slog.Logger) (*Summary, error) {
	ds, err := tabular.Decode(name, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("decode %s: %w", name, domain.ErrEmptyInput)
	}

	textColumn, ok := tabular.ResolveColumn(ds, opts.TextColumn, tabular.TextColumns)
	if !ok {
		return nil, domain.ErrNoTextColumn
	}
	dateColumn, _ := tabular.ResolveColumn(ds, opts.DateColumn, tabular.DateColumns)
	logger.Info("analysis started", "rows", ds.Len(), "text_column", textColumn, "date_column", dateColumn)

	orch := s.orchestrator
	orch.OnProgress = opts.OnProgress
	if orch.Logger == nil {
		orch.Logger = logger
	}
	items, err := orch.Classify(ctx, ds.Records, textColumn)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}
	bigrams, err := s.engine.Count(texts, 2)
	if err != nil {
		return nil, err
	}
	trigrams, err := s.engine.Count(texts, 3)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:      runID,
		FileName:   name,
		Columns:    ds.Columns,
		TextColumn: textColumn,
		DateColumn: dateColumn,
		Items:      items,
		Bigrams:    ngram.NewView(bigrams, opts.Threshold),
		Trigrams:   ngram.NewView(trigrams, opts.Threshold),
	}
	summary.MaxNgramCount = max(summary.Bigrams.MaxCount(), summary.Trigrams.MaxCount())

	if err := s.aggregate(ctx, summary, opts.Location); err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	return summary, nil
}

func (s *Session) aggregate(ctx context.Context, summary *Summary, loc *time.Location) error {
	rows := make([]sqlite.Row, len(summary.Items))
	for i, item := range summary.Items {
		rows[i] = sqlite.Row{
			Item:           item,
			SentimentLabel: DisplayLabel(item.Sentiment),
			EmotionLabel:   DisplayLabel(item.Emotion),
		}
		if summary.DateColumn != "" {
			rows[i].Day = Day(item.Record[summary.DateColumn], loc)
		}
	}
	if err := s.store.SaveRun(ctx, summary.RunID, rows); err != nil {
		return err
	}

	var err error
	if summary.Sentiments, err = s.store.Distribution(ctx, summary.RunID, sqlite.FieldSentiment); err != nil {
		return err
	}
	if summary.Emotions, err = s.store.Distribution(ctx, summary.RunID, sqlite.FieldEmotion); err != nil {
		return err
	}
	if summary.DateColumn != "" {
		if summary.Trend, err = s.store.Trend(ctx, summary.RunID); err != nil {
			return err
		}
	}
	return nil
}

// Current returns the summary of the last completed run, or nil.
func (s *Session) Current() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetThreshold applies a new n-gram threshold to the current summary.
func (s *Session) SetThreshold(threshold int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.SetThreshold(threshold)
	}
}

// Close cancels any run in flight and waits for it to stop.
func (s *Session) Close() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}
