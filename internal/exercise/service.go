package exercise

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"gametime/internal/rewardledger"
)

// Config bounds the daily batch and the per-question reward.
type Config struct {
	RegularCount     int
	RewardMinMinutes float64
	RewardMaxMinutes float64
}

// CheckResult is the outcome of scoring one answer. RewardMinutes is
// zero unless the answer was correct.
type CheckResult struct {
	Correct       bool
	RewardMinutes float64
	Explanation   string
}

// Service orchestrates question generation and answer scoring over the
// reward ledger.
type Service struct {
	provider Provider
	ledger   *rewardledger.Ledger
	cfg      Config
	logger   *slog.Logger
}

func NewService(provider Provider, ledger *rewardledger.Ledger, cfg Config, logger *slog.Logger) *Service {
	if cfg.RegularCount <= 0 {
		cfg.RegularCount = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{provider: provider, ledger: ledger, cfg: cfg, logger: logger}
}

// DailyQuestions returns today's batch, generating and persisting it on
// first use. The batch is the configured number of regular questions
// plus one challenge question, in that order.
func (s *Service) DailyQuestions(ctx context.Context) ([]rewardledger.Attempt, error) {
	attempts, err := s.ledger.TodayAttempts(ctx)
	if err != nil {
		return nil, err
	}
	if len(attempts) > 0 {
		return attempts, nil
	}

	if err := s.generateBatch(ctx); err != nil {
		return nil, err
	}
	return s.ledger.TodayAttempts(ctx)
}

// Regenerate discards today's batch, including any answered questions
// and their earned rewards, and generates a fresh one.
func (s *Service) Regenerate(ctx context.Context) ([]rewardledger.Attempt, error) {
	if err := s.ledger.ClearToday(ctx); err != nil {
		return nil, err
	}
	if err := s.generateBatch(ctx); err != nil {
		return nil, err
	}
	return s.ledger.TodayAttempts(ctx)
}

func (s *Service) generateBatch(ctx context.Context) error {
	var (
		regular   []Question
		challenge Question
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		questions, err := s.provider.GenerateQuestions(groupCtx, s.cfg.RegularCount)
		if err != nil {
			return &ProviderError{Op: "generate questions", Err: err}
		}
		regular = questions
		return nil
	})
	group.Go(func() error {
		question, err := s.provider.GenerateChallenge(groupCtx)
		if err != nil {
			return &ProviderError{Op: "generate challenge", Err: err}
		}
		challenge = question
		return nil
	})
	if err := group.Wait(); err != nil {
		return err
	}

	batch := append(regular, challenge)
	for _, q := range batch {
		answer := q.Answer
		attempt := rewardledger.Attempt{
			Question:      q.Text,
			Answer:        &answer,
			RewardMinutes: s.clampReward(q.RewardMinutes),
			Generated:     true,
			Difficulty:    q.Difficulty,
		}
		if err := s.ledger.UpsertAttempt(ctx, &attempt); err != nil {
			return fmt.Errorf("persist generated question > %w", err)
		}
	}
	return nil
}

// Check scores one answer against today's question and records the
// verdict. Numeric answers are compared with tolerance locally; only
// non-numeric ones go to the provider for judgement. Each question is
// scored at most once per day.
func (s *Service) Check(ctx context.Context, question, given string) (CheckResult, error) {
	given = strings.TrimSpace(given)
	if given == "" {
		return CheckResult{}, ErrAnswerEmpty
	}

	answered, err := s.ledger.HasBeenAnswered(ctx, question)
	if err != nil {
		return CheckResult{}, err
	}
	if answered {
		return CheckResult{}, ErrAlreadyAnswered
	}

	attempt, err := s.findToday(ctx, question)
	if err != nil {
		return CheckResult{}, err
	}

	expected := ""
	if attempt.Answer != nil {
		expected = *attempt.Answer
	}

	correct, err := s.judge(ctx, attempt.Question, expected, given)
	if err != nil {
		return CheckResult{}, err
	}

	explanation := ""
	if !correct {
		explanation = s.explain(ctx, attempt.Question, given)
	}

	attempt.IsCorrect = &correct
	attempt.Explanation = explanation
	if err := s.ledger.UpsertAttempt(ctx, attempt); err != nil {
		return CheckResult{}, fmt.Errorf("record verdict > %w", err)
	}

	result := CheckResult{Correct: correct, Explanation: explanation}
	if correct {
		result.RewardMinutes = attempt.RewardMinutes
	}
	return result, nil
}

func (s *Service) judge(ctx context.Context, question, expected, given string) (bool, error) {
	expectedNum, expectedOK := parseNumber(expected)
	givenNum, givenOK := parseNumber(given)
	if expectedOK && givenOK {
		return numbersMatch(expectedNum, givenNum), nil
	}

	correct, err := s.provider.Judge(ctx, question, expected, given)
	if err != nil {
		return false, &ProviderError{Op: "judge answer", Err: err}
	}
	return correct, nil
}

// explain fetches an explanation for a wrong answer, consulting the
// cache first. Failures degrade to an empty explanation.
func (s *Service) explain(ctx context.Context, question, given string) string {
	if cached := s.ledger.CachedExplanation(ctx, question, given); cached != "" {
		return cached
	}

	explanation, err := s.provider.Explain(ctx, question, given)
	if err != nil {
		s.logger.Warn("failed to fetch explanation", "error", err)
		return ""
	}
	s.ledger.CacheExplanation(ctx, question, given, explanation)
	return explanation
}

func (s *Service) findToday(ctx context.Context, question string) (*rewardledger.Attempt, error) {
	attempts, err := s.ledger.TodayAttempts(ctx)
	if err != nil {
		return nil, err
	}
	canonical := rewardledger.Canonicalize(question)
	for i := range attempts {
		if attempts[i].CanonicalQuestion == canonical {
			return &attempts[i], nil
		}
	}
	return nil, fmt.Errorf("question is not part of today's batch")
}

// CompletedCount returns how many of today's questions carry a verdict.
func (s *Service) CompletedCount(ctx context.Context) (int, int, error) {
	attempts, err := s.ledger.TodayAttempts(ctx)
	if err != nil {
		return 0, 0, err
	}
	completed := 0
	for _, a := range attempts {
		if a.Answered() {
			completed++
		}
	}
	return completed, len(attempts), nil
}

// FirstUnanswered returns the next question without a verdict, or nil
// when the day is complete.
func (s *Service) FirstUnanswered(ctx context.Context) (*rewardledger.Attempt, error) {
	attempts, err := s.ledger.TodayAttempts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range attempts {
		if !attempts[i].Answered() {
			return &attempts[i], nil
		}
	}
	return nil, nil
}

func (s *Service) clampReward(minutes float64) float64 {
	if minutes < s.cfg.RewardMinMinutes {
		return s.cfg.RewardMinMinutes
	}
	if s.cfg.RewardMaxMinutes > 0 && minutes > s.cfg.RewardMaxMinutes {
		return s.cfg.RewardMaxMinutes
	}
	return minutes
}
