package extract

import "strings"

// Contains reports whether any keyword appears in text, ignoring case. Matching is
// plain substring search: "walk" matches inside "sidewalk". Empty text, an empty
// keyword list and blank keywords never match.
func Contains(text string, keywords []string) bool {
	if text == "" || len(keywords) == 0 {
		return false
	}
	return containsLower(strings.ToLower(text), lowerAll(keywords))
}

// Scan returns the keywords found in transcript, in list order. The canonical
// keyword is returned, not the matched text. Overlapping keywords ("walk",
// "walking") are reported independently.
func Scan(transcript string, keywords []string) []string {
	return scanLower(strings.ToLower(transcript), keywords, lowerAll(keywords))
}

// containsLower expects both sides already lower-cased
func containsLower(lower string, keywords []string) bool {
	if lower == "" {
		return false
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func scanLower(lower string, canonical, keywords []string) []string {
	found := []string{}
	if lower == "" {
		return found
	}
	for i, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			found = append(found, canonical[i])
		}
	}
	return found
}

func lowerAll(keywords []string) []string {
	out := make([]string, len(keywords))
	for i, kw := range keywords {
		out[i] = strings.ToLower(strings.TrimSpace(kw))
	}
	return out
}
