package taxonomy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultLintThreshold is the Jaro-Winkler similarity above which two keywords
// belonging to different entries are reported as near-duplicates
const DefaultLintThreshold = 0.93

// Warning is a non-fatal taxonomy quality issue
type Warning struct {
	Kind    string `json:"kind"` // "collision", "similar", "shadowed"
	Message string `json:"message"`
}

type keywordOwner struct {
	keyword string
	owner   string
}

// Lint reports keyword collisions and near-duplicates across entries. A keyword
// that appears in two symptom entries makes both fire on the same phrase, which
// is legal but usually a mistake in a hand-edited taxonomy.
func Lint(t *Taxonomy, threshold float64) []Warning {
	if threshold <= 0 {
		threshold = DefaultLintThreshold
	}

	var owners []keywordOwner
	for _, p := range t.Symptoms() {
		for _, kw := range p.Keywords {
			owners = append(owners, keywordOwner{keyword: strings.ToLower(kw), owner: p.Name})
		}
	}

	var warnings []Warning

	for i := 0; i < len(owners); i++ {
		for j := i + 1; j < len(owners); j++ {
			a, b := owners[i], owners[j]
			if a.owner == b.owner {
				continue
			}
			if a.keyword == b.keyword {
				warnings = append(warnings, Warning{
					Kind:    "collision",
					Message: fmt.Sprintf("keyword %q is shared by %s and %s", a.keyword, a.owner, b.owner),
				})
				continue
			}
			if score := matchr.JaroWinkler(a.keyword, b.keyword, false); score >= threshold {
				warnings = append(warnings, Warning{
					Kind: "similar",
					Message: fmt.Sprintf("keywords %q (%s) and %q (%s) are %.2f similar",
						a.keyword, a.owner, b.keyword, b.owner, score),
				})
			}
		}
	}

	// A category keyword that contains an earlier category's keyword can never win
	// on its own: the earlier category always matches first.
	for _, p := range t.Symptoms() {
		if p.Mode != ModeCategorical {
			continue
		}
		for ci, later := range p.Categories {
			for _, earlier := range p.Categories[:ci] {
				for _, lk := range later.Keywords {
					for _, ek := range earlier.Keywords {
						if strings.Contains(strings.ToLower(lk), strings.ToLower(ek)) {
							warnings = append(warnings, Warning{
								Kind: "shadowed",
								Message: fmt.Sprintf("%s: keyword %q of category %s is shadowed by %q of earlier category %s",
									p.Name, lk, later.Name, ek, earlier.Name),
							})
						}
					}
				}
			}
		}
	}

	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].Kind < warnings[j].Kind })
	return warnings
}
