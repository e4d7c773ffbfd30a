package composer

import "strings"

const minAnswerWords = 5

// poorIndicators are hedge and refusal phrases, matched case-insensitively.
var poorIndicators = []string{
	"i don't know",
	"i don't have information",
	"not found in the documents",
	"no information provided",
	"based on the documents, i cannot",
	"the documents do not contain",
	"i'm sorry, i cannot",
	"i'm unable to",
	"i don't have enough information",
	"based on my knowledge",
	"not mentioned in the context",
	"the context doesn't provide",
}

// IsPoor reports whether answer should be replaced by the fallback model.
// Answers longer than maxWords count as poor only when rejectLong is set.
func IsPoor(answer string, maxWords int, rejectLong bool) bool {
	words := strings.Fields(answer)
	if len(words) < minAnswerWords {
		return true
	}
	if rejectLong && maxWords > 0 && len(words) > maxWords {
		return true
	}
	lower := strings.ToLower(answer)
	for _, p := range poorIndicators {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
