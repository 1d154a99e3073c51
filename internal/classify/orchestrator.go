// Package classify runs records through a Classifier in sequential fixed-size batches.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"sentilens/internal/domain"
	"sentilens/internal/integrations/llm"
)

const (
	DefaultBatchSize = 10
	DefaultTimeout   = 60 * time.Second
)

// Strategy chooses how a batch is sent to the classifier.
type Strategy string

const (
	// StrategyBatch sends one request carrying every non-empty text of the batch.
	StrategyBatch Strategy = "batch"
	// StrategyPerItem sends one request per text, concurrently within the batch.
	StrategyPerItem Strategy = "per_item"
)

// ParseStrategy maps a config value to a Strategy. Empty selects StrategyBatch.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyBatch:
		return StrategyBatch, nil
	case StrategyPerItem:
		return StrategyPerItem, nil
	default:
		return "", fmt.Errorf("unknown classification strategy %q", s)
	}
}

// Progress is reported after every batch. Items holds the rows reconciled so far.
type Progress struct {
	Processed int
	Total     int
	Percent   int
	Items     []domain.ClassifiedItem
}

type ProgressFunc func(Progress)

// RetryPolicy enables exponential backoff for failed batch requests.
// MaxAttempts <= 1 means a single attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Orchestrator classifies records batch by batch. A failing batch marks its own
// items with the Error label and the run moves on to the next batch.
type Orchestrator struct {
	Classifier llm.Classifier
	BatchSize  int
	Strategy   Strategy
	Timeout    time.Duration
	Retry      RetryPolicy
	Logger     *slog.Logger
	OnProgress ProgressFunc
}

// Classify returns one item per record, in record order. It fails only when ctx is
// cancelled, in which case no items are returned.
func (o *Orchestrator) Classify(ctx context.Context, records []domain.Record, textColumn string) ([]domain.ClassifiedItem, error) {
	if textColumn == "" {
		return nil, domain.ErrNoTextColumn
	}

	items := make([]domain.ClassifiedItem, len(records))
	for i, rec := range records {
		items[i] = domain.ClassifiedItem{
			ID:        i,
			Text:      rec[textColumn],
			Record:    rec,
			Sentiment: domain.LabelUnknown,
			Emotion:   domain.LabelUnknown,
		}
	}

	size := o.batchSize()
	total := len(items)
	for start, batch := 0, 0; start < total; start, batch = start+size, batch+1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+size, total)
		if err := o.runBatch(ctx, batch, items[start:end]); err != nil {
			return nil, err
		}
		o.report(end, total, items[:end:end])
	}
	return items, nil
}

// runBatch fills the labels of one batch in place. It returns an error only when
// ctx is done.
func (o *Orchestrator) runBatch(ctx context.Context, batch int, items []domain.ClassifiedItem) error {
	var texts []string
	for _, item := range items {
		if text := strings.TrimSpace(item.Text); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	logger := o.logger()
	logger.Debug("classify batch", "batch", batch, "items", len(items), "texts", len(texts), "strategy", o.strategy())

	labels, err := o.request(ctx, texts)
	var malformed *domain.MalformedResponseError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.As(err, &malformed):
		logger.Warn("classify batch returned malformed response", "batch", batch, "err", err)
		labels = nil
	default:
		batchErr := &domain.BatchClassificationError{Batch: batch, Err: err}
		logger.Error("classify batch failed", "batch", batch, "err", batchErr)
		for i := range items {
			items[i].Sentiment = domain.LabelError
			items[i].Emotion = domain.LabelError
		}
		return nil
	}

	next := 0
	for i := range items {
		if strings.TrimSpace(items[i].Text) == "" {
			continue
		}
		if next < len(labels) {
			l := labels[next].OrUnknown()
			items[i].Sentiment = l.Sentiment
			items[i].Emotion = l.Emotion
		}
		next++
	}
	if len(labels) < len(texts) && labels != nil {
		logger.Warn("classify batch returned short response", "batch", batch, "want", len(texts), "got", len(labels))
	}
	return nil
}

// request performs the batch exchange with the configured timeout and retry policy.
// Malformed responses are never retried.
func (o *Orchestrator) request(ctx context.Context, texts []string) ([]domain.Labels, error) {
	var labels []domain.Labels
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout())
		defer cancel()
		out, err := o.call(callCtx, texts)
		if err != nil {
			var malformed *domain.MalformedResponseError
			if errors.As(err, &malformed) {
				return backoff.Permanent(err)
			}
			return err
		}
		labels = out
		return nil
	}

	if o.Retry.MaxAttempts <= 1 {
		err := op()
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return nil, permanent.Err
		}
		return labels, err
	}

	policy := backoff.NewExponentialBackOff()
	if o.Retry.BaseDelay > 0 {
		policy.InitialInterval = o.Retry.BaseDelay
	}
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(o.Retry.MaxAttempts-1)), ctx)
	notify := func(err error, wait time.Duration) {
		o.logger().Warn("classify batch retry", "err", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return labels, nil
}

func (o *Orchestrator) call(ctx context.Context, texts []string) ([]domain.Labels, error) {
	if o.strategy() == StrategyBatch {
		return o.Classifier.ClassifyBatch(ctx, texts)
	}

	out := make([]domain.Labels, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.batchSize())
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			l, err := o.Classifier.Classify(gctx, text)
			if err != nil {
				var malformed *domain.MalformedResponseError
				if errors.As(err, &malformed) {
					out[i] = domain.UnknownLabels()
					return nil
				}
				return err
			}
			out[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) report(processed, total int, items []domain.ClassifiedItem) {
	if o.OnProgress == nil {
		return
	}
	o.OnProgress(Progress{
		Processed: processed,
		Total:     total,
		Percent:   Percent(processed, total),
		Items:     items,
	})
}

// Percent returns processed/total as a rounded percentage capped at 100.
func Percent(processed, total int) int {
	if total <= 0 {
		return 100
	}
	p := int(math.Round(float64(processed) * 100 / float64(total)))
	return min(p, 100)
}

func (o *Orchestrator) batchSize() int {
	if o.BatchSize < 1 {
		return DefaultBatchSize
	}
	return o.BatchSize
}

func (o *Orchestrator) strategy() Strategy {
	if o.Strategy == "" {
		return StrategyBatch
	}
	return o.Strategy
}

func (o *Orchestrator) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
