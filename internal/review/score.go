package review

import (
	"regexp"
	"strings"

	"hrportal/internal/types"
)

// ScoreMarker is the literal prefix the model is told to emit before its score
const ScoreMarker = "TOXICITY_SCORE:"

var scorePattern = regexp.MustCompile(`TOXICITY_SCORE:\s*(\d+)`)

// ExtractScore pulls the first score marker out of a model reply.
// Only the matched substring is removed; whitespace left dangling at either end of
// the reply is trimmed. Without a marker the text is returned untouched and the
// score is unavailable. The captured digits are not range checked.
func ExtractScore(text string) types.ReviewResult {
	loc := scorePattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return types.ReviewResult{
			CleanedText: text,
			Score:       types.ScoreUnavailable,
		}
	}

	cleaned := text[:loc[0]] + text[loc[1]:]
	return types.ReviewResult{
		CleanedText:    strings.TrimSpace(cleaned),
		Score:          text[loc[2]:loc[3]],
		ScoreAvailable: true,
	}
}
