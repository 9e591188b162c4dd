package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/symptomlog/internal/model"
)

const (
	// DefaultWindowBefore is how many characters before a numeric keyword are searched
	DefaultWindowBefore = 30
	// DefaultWindowAfter is how many characters after the end of a numeric keyword are searched
	DefaultWindowAfter = 40
)

// Tried in order; the first pattern with a match inside the window wins.
// Windows are lower-cased before matching.
var numericPatterns = []*regexp.Regexp{
	// "7 out of 10", "5/10"
	regexp.MustCompile(`(\d+)\s*(?:out of 10|/10)`),
	// "level 4", "around 3", "about 5 out of 10", bare "8"
	regexp.MustCompile(`(?:level|around|about|roughly)?\s*(\d+)\s*(?:out of 10|/10)?`),
}

// ExtractNumeric finds a 0-10 value near the first occurrence of keyword using the
// default window
func ExtractNumeric(transcript, keyword string) (uint8, bool) {
	return extractNumericLower(strings.ToLower(transcript), strings.ToLower(keyword),
		DefaultWindowBefore, DefaultWindowAfter)
}

func extractNumericLower(lower, keyword string, before, after int) (uint8, bool) {
	window, ok := numericWindow(lower, keyword, before, after)
	if !ok {
		return 0, false
	}

	for _, re := range numericPatterns {
		m := re.FindStringSubmatch(window)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 0 || n > model.MaxScore {
			return 0, false
		}
		return uint8(n), true
	}

	return 0, false
}

// numericWindow returns the text from before characters ahead of keyword's first
// occurrence to after characters past its end, clipped to the text bounds.
// Offsets count runes, not bytes.
func numericWindow(lower, keyword string, before, after int) (string, bool) {
	if keyword == "" {
		return "", false
	}
	idx := strings.Index(lower, keyword)
	if idx < 0 {
		return "", false
	}

	runes := []rune(lower)
	start := utf8.RuneCountInString(lower[:idx])
	end := start + utf8.RuneCountInString(keyword)

	from := max(0, start-before)
	to := min(len(runes), end+after)

	return string(runes[from:to]), true
}
