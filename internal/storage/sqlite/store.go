// Package sqlite keeps the classified rows of analysis runs in an in-memory SQLite
// database and answers the aggregate queries used by reports.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"sentilens/internal/domain"
)

// LabelField selects which label a distribution is computed over.
type LabelField string

const (
	FieldSentiment LabelField = "sentiment"
	FieldEmotion   LabelField = "emotion"
)

// Row is one classified item as stored. Day is the calendar day (YYYY-MM-DD) of the
// item's date column, or empty when it has none.
type Row struct {
	Item           domain.ClassifiedItem
	SentimentLabel string
	EmotionLabel   string
	Day            string
}

type Store struct {
	db *sql.DB
}

// Open creates an empty in-memory store. Contents vanish on Close.
func Open() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	// Each connection to :memory: is its own database.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS classified_items (
		run_id          TEXT NOT NULL,
		item_id         INTEGER NOT NULL,
		text            TEXT NOT NULL DEFAULT '',
		sentiment       TEXT NOT NULL,
		emotion         TEXT NOT NULL,
		sentiment_label TEXT NOT NULL,
		emotion_label   TEXT NOT NULL,
		day             TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, item_id)
	);
	CREATE INDEX IF NOT EXISTS idx_classified_items_day ON classified_items(run_id, day);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun replaces the rows stored for runID.
func (s *Store) SaveRun(ctx context.Context, runID string, rows []Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM classified_items WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("clear run %s: %w", runID, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO classified_items (run_id, item_id, text, sentiment, emotion, sentiment_label, emotion_label, day)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			runID, r.Item.ID, r.Item.Text, r.Item.Sentiment, r.Item.Emotion,
			r.SentimentLabel, r.EmotionLabel, r.Day,
		); err != nil {
			return fmt.Errorf("insert item %d: %w", r.Item.ID, err)
		}
	}
	return tx.Commit()
}

// DeleteRun drops every row of runID.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM classified_items WHERE run_id = ?`, runID)
	return err
}

// RunIDs lists the runs that currently have rows, in ascending order.
func (s *Store) RunIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT run_id FROM classified_items ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Distribution counts items per display label, ordered by the first item carrying
// each label.
func (s *Store) Distribution(ctx context.Context, runID string, field LabelField) ([]domain.LabelCount, error) {
	var column string
	switch field {
	case FieldSentiment:
		column = "sentiment_label"
	case FieldEmotion:
		column = "emotion_label"
	default:
		return nil, fmt.Errorf("unknown label field %q", field)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM classified_items
		 WHERE run_id = ?
		 GROUP BY `+column+`
		 ORDER BY MIN(item_id)`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LabelCount
	for rows.Next() {
		var lc domain.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}

// Trend tallies positive, negative and neutral sentiments per day, days ascending.
// Days whose items carry other labels still appear with zero counts.
func (s *Store) Trend(ctx context.Context, runID string) ([]domain.TrendPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day,
		        SUM(CASE WHEN lower(sentiment) = 'positive' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN lower(sentiment) = 'negative' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN lower(sentiment) = 'neutral' THEN 1 ELSE 0 END)
		 FROM classified_items
		 WHERE run_id = ? AND day != ''
		 GROUP BY day
		 ORDER BY day`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrendPoint
	for rows.Next() {
		var p domain.TrendPoint
		if err := rows.Scan(&p.Day, &p.Positive, &p.Negative, &p.Neutral); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
