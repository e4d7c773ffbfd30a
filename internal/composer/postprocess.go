package composer

import (
	"regexp"
	"strings"
)

var redundantPhrases = []string{
	"based on the information provided",
	"according to the documents",
	"as mentioned in the context",
	"to answer your question",
	"in summary",
	"to put it simply",
	"let me explain",
	"i should mention that",
	"it's important to note that",
}

var redundancyPattern = func() *regexp.Regexp {
	quoted := make([]string, len(redundantPhrases))
	for i, p := range redundantPhrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}()

// RemoveRedundancies strips filler phrases and collapses whitespace.
func RemoveRedundancies(answer string) string {
	answer = redundancyPattern.ReplaceAllString(answer, "")
	return strings.Join(strings.Fields(answer), " ")
}

// Truncate limits answer to maxWords words, cutting back to the last '.',
// '?' or '!' inside the limit. Without one the word-limited text is returned.
func Truncate(answer string, maxWords int) string {
	words := strings.Fields(answer)
	if maxWords <= 0 || len(words) <= maxWords {
		return answer
	}
	truncated := strings.Join(words[:maxWords], " ")
	if end := strings.LastIndexAny(truncated, ".?!"); end > 0 {
		return truncated[:end+1]
	}
	return truncated
}

// PostProcess applies RemoveRedundancies then Truncate.
func PostProcess(answer string, maxWords int) string {
	return Truncate(RemoveRedundancies(answer), maxWords)
}
