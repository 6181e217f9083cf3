package rewardledger

import "regexp"

// Attempt is one exercise question for one day. IsCorrect is nil until
// the question is answered; RewardMinutes is assigned when the day's
// batch is generated and only counts toward the allowance once the
// answer is marked correct.
type Attempt struct {
	ID                int64    `db:"id"`
	Day               string   `db:"day"`
	Question          string   `db:"question"`
	CanonicalQuestion string   `db:"canonical_question"`
	Answer            *string  `db:"answer"`
	IsCorrect         *bool    `db:"is_correct"`
	RewardMinutes     float64  `db:"reward_minutes"`
	Explanation       string   `db:"explanation"`
	Generated         bool     `db:"generated"`
	Difficulty        int      `db:"difficulty"`
}

// Answered reports whether the question has been scored.
func (a Attempt) Answered() bool {
	return a.IsCorrect != nil
}

var whitespace = regexp.MustCompile(`\s+`)

// Canonicalize strips all whitespace from a question so the same
// question text survives regeneration and formatting differences as a
// stable dedup key.
func Canonicalize(question string) string {
	return whitespace.ReplaceAllString(question, "")
}
