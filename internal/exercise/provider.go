// Package exercise generates the daily question batch and scores
// answers, crediting reward minutes through the reward ledger.
package exercise

import (
	"context"
	"errors"
	"fmt"
)

// Question is one generated exercise. RewardMinutes is the provider's
// proposal and is clamped to the configured range before persisting.
type Question struct {
	Text          string  `json:"question"`
	Answer        string  `json:"answer"`
	RewardMinutes float64 `json:"reward_minutes"`
	Difficulty    int     `json:"difficulty"`
}

// Provider generates questions and judges free-form answers.
type Provider interface {
	GenerateQuestions(ctx context.Context, count int) ([]Question, error)
	GenerateChallenge(ctx context.Context) (Question, error)
	Judge(ctx context.Context, question, expected, given string) (bool, error)
	Explain(ctx context.Context, question, given string) (string, error)
}

var (
	// ErrAnswerEmpty is returned when the submitted answer is blank.
	ErrAnswerEmpty = errors.New("answer is empty")
	// ErrAlreadyAnswered is returned when the question already carries a
	// verdict for today.
	ErrAlreadyAnswered = errors.New("question has already been answered")
)

// ProviderError wraps a failure from the question provider with the
// operation that failed.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("exercise provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
