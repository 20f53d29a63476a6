package risk

import "github.com/i474232898/calloff/internal/common"

// Vocabulary is the set of condition keywords that count as adverse weather.
type Vocabulary []string

// DefaultVocabulary is the stock adverse-condition vocabulary.
var DefaultVocabulary = Vocabulary{"fog", "storm", "snow", "rain"}

// Matches reports whether the summary contains any vocabulary term,
// case-insensitively.
func (v Vocabulary) Matches(summary string) bool {
	if summary == "" {
		return false
	}
	return common.HasAnyFold(summary, v...)
}
