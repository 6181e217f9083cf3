// Package rewardledger persists per-day exercise attempts with
// idempotent upsert semantics keyed by (day, canonical question), plus
// a small explanation cache.
package rewardledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"gametime/internal/clock"
	"gametime/internal/database"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339

	// DefaultExplanationHorizon is how long cached explanations are kept.
	DefaultExplanationHorizon = 7 * 24 * time.Hour
)

// Ledger owns the exercise_attempts and explanation_cache tables. A
// single mutex serializes all physical access.
type Ledger struct {
	db    *database.DB
	clock clock.Clock
	mu    sync.Mutex
}

func New(db *database.DB, clk clock.Clock) *Ledger {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Ledger{db: db, clock: clk}
}

func (l *Ledger) today() string {
	return l.clock.Now().Format(dateLayout)
}

// UpsertAttempt inserts the attempt for (attempt.Day, canonical
// question), or updates the existing row in place. This is what keeps a
// question from being scored twice under retries: the second write lands
// on the same row. A canonical-question collision raced in by a
// concurrent writer is resolved by re-querying and updating.
func (l *Ledger) UpsertAttempt(ctx context.Context, attempt *Attempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if attempt.Day == "" {
		attempt.Day = l.today()
	}
	if attempt.CanonicalQuestion == "" {
		attempt.CanonicalQuestion = Canonicalize(attempt.Question)
	}

	conn := l.db.Conn()

	id, err := l.findAttemptID(ctx, conn, attempt.Day, attempt.CanonicalQuestion)
	if err != nil {
		return err
	}

	if id == 0 {
		result, insertErr := conn.ExecContext(ctx,
			`INSERT INTO exercise_attempts
				(day, question, canonical_question, answer, is_correct, reward_minutes, explanation, generated, difficulty)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			attempt.Day, attempt.Question, attempt.CanonicalQuestion, attempt.Answer, attempt.IsCorrect,
			attempt.RewardMinutes, attempt.Explanation, attempt.Generated, attempt.Difficulty)
		if insertErr == nil {
			id, err = result.LastInsertId()
			if err != nil {
				return fmt.Errorf("result.LastInsertId() > %w", err)
			}
			attempt.ID = id
			return nil
		}

		// A concurrent upsert may have inserted the same canonical
		// question between our lookup and insert; fall through to an
		// update when the row now exists.
		id, err = l.findAttemptID(ctx, conn, attempt.Day, attempt.CanonicalQuestion)
		if err != nil {
			return err
		}
		if id == 0 {
			return fmt.Errorf("db.ExecContext(insert exercise_attempt) > %w", insertErr)
		}
	}

	if _, err := conn.ExecContext(ctx,
		`UPDATE exercise_attempts
			SET question = ?, answer = ?, is_correct = ?, reward_minutes = ?, explanation = ?, generated = ?, difficulty = ?
			WHERE id = ?`,
		attempt.Question, attempt.Answer, attempt.IsCorrect, attempt.RewardMinutes,
		attempt.Explanation, attempt.Generated, attempt.Difficulty, id); err != nil {
		return fmt.Errorf("db.ExecContext(update exercise_attempt) > %w", err)
	}
	attempt.ID = id
	return nil
}

func (l *Ledger) findAttemptID(ctx context.Context, conn *sqlx.DB, day, canonical string) (int64, error) {
	var id int64
	err := conn.GetContext(ctx, &id,
		"SELECT id FROM exercise_attempts WHERE day = ? AND canonical_question = ?", day, canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("db.GetContext(exercise_attempt id) > %w", err)
	}
	return id, nil
}

// TodayAttempts returns today's attempts in insertion order.
func (l *Ledger) TodayAttempts(ctx context.Context) ([]Attempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var attempts []Attempt
	err := l.db.Read(ctx, func(conn *sqlx.DB) error {
		attempts = attempts[:0]
		return conn.SelectContext(ctx, &attempts,
			"SELECT * FROM exercise_attempts WHERE day = ? ORDER BY id", l.today())
	})
	if err != nil {
		return nil, fmt.Errorf("db.SelectContext(exercise_attempts) > %w", err)
	}
	return attempts, nil
}

// TodayRewardMinutes sums reward minutes over today's correctly
// answered questions.
func (l *Ledger) TodayRewardMinutes(ctx context.Context) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var reward sql.NullFloat64
	err := l.db.Read(ctx, func(conn *sqlx.DB) error {
		return conn.GetContext(ctx, &reward,
			"SELECT SUM(reward_minutes) FROM exercise_attempts WHERE day = ? AND is_correct = 1", l.today())
	})
	if err != nil {
		return 0, fmt.Errorf("db.GetContext(sum reward_minutes) > %w", err)
	}
	return reward.Float64, nil
}

// HasBeenAnswered reports whether today's row for the question carries a
// correctness verdict. This is the single source of truth consulted
// before scoring; no caller-side bookkeeping is needed.
func (l *Ledger) HasBeenAnswered(ctx context.Context, question string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var answered bool
	err := l.db.Read(ctx, func(conn *sqlx.DB) error {
		var count int
		if err := conn.GetContext(ctx, &count,
			"SELECT count(*) FROM exercise_attempts WHERE day = ? AND canonical_question = ? AND is_correct IS NOT NULL",
			l.today(), Canonicalize(question)); err != nil {
			return err
		}
		answered = count > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("db.GetContext(answered count) > %w", err)
	}
	return answered, nil
}

// ClearToday deletes all of today's attempts. The day's batch is only
// ever regenerated as a whole.
func (l *Ledger) ClearToday(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.Conn().ExecContext(ctx,
		"DELETE FROM exercise_attempts WHERE day = ?", l.today()); err != nil {
		return fmt.Errorf("db.ExecContext(delete exercise_attempts) > %w", err)
	}
	return nil
}

// CacheExplanation stores explanation text for a (question, wrong
// answer) pair so an identical retry does not re-invoke the provider.
// Failures are logged, not surfaced; the cache is cosmetic.
func (l *Ledger) CacheExplanation(ctx context.Context, question, answer, explanation string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.Conn().ExecContext(ctx,
		"INSERT INTO explanation_cache (question, answer, explanation, created_at) VALUES (?, ?, ?, ?)",
		question, answer, explanation, l.clock.Now().UTC().Format(timeLayout)); err != nil {
		slog.Default().Warn("failed to cache explanation", "error", err)
	}
}

// CachedExplanation returns the cached explanation for a (question,
// wrong answer) pair, or "" when absent. Lookup errors degrade to a
// cache miss.
func (l *Ledger) CachedExplanation(ctx context.Context, question, answer string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var explanation string
	err := l.db.Conn().GetContext(ctx, &explanation,
		"SELECT explanation FROM explanation_cache WHERE question = ? AND answer = ? ORDER BY id DESC LIMIT 1",
		question, answer)
	if errors.Is(err, sql.ErrNoRows) {
		return ""
	}
	if err != nil {
		slog.Default().Warn("failed to read explanation cache", "error", err)
		return ""
	}
	return explanation
}

// PurgeExplanations deletes cached explanations older than the horizon.
func (l *Ledger) PurgeExplanations(ctx context.Context, horizon time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock.Now().Add(-horizon).UTC().Format(timeLayout)
	if _, err := l.db.Conn().ExecContext(ctx,
		"DELETE FROM explanation_cache WHERE created_at < ?", cutoff); err != nil {
		return fmt.Errorf("db.ExecContext(purge explanation_cache) > %w", err)
	}
	return nil
}
