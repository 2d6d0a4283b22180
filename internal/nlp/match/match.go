// Package match resolves free-text product name candidates against a catalog
// snapshot using edit distance and token overlap.
package match

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Threshold is the lowest score accepted as a match.
const Threshold = 0.6

const maxAlternatives = 3

// Entry is one catalog line the matcher can resolve to.
type Entry struct {
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// Scored is an entry with its match score.
type Scored struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}

// Result is the outcome of matching one candidate.
type Result struct {
	Entry    Entry   `json:"entry"`
	Score    float64 `json:"score"`
	Resolved bool    `json:"resolved"`
	// Ambiguous is set when more than one entry shares the top score. Entry
	// still holds the deterministic first of them.
	Ambiguous bool `json:"ambiguous"`
	// Alternatives are the best runners-up, or the best near misses when the
	// candidate did not resolve.
	Alternatives []Scored `json:"alternatives,omitempty"`
}

// Best resolves candidate against snapshot. An empty snapshot or candidate
// never resolves.
func Best(candidate string, snapshot []Entry) Result {
	cand := Normalize(candidate)
	if cand == "" || len(snapshot) == 0 {
		return Result{}
	}

	scored := make([]Scored, 0, len(snapshot))
	for _, e := range snapshot {
		scored = append(scored, Scored{Entry: e, Score: Score(candidate, e)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.Entry.Name) != len(b.Entry.Name) {
			return len(a.Entry.Name) < len(b.Entry.Name)
		}
		return a.Entry.Name < b.Entry.Name
	})

	top := scored[0]
	res := Result{Entry: top.Entry, Score: top.Score}

	if top.Score < Threshold {
		res.Entry = Entry{}
		res.Alternatives = alternatives(scored, 0)
		return res
	}

	res.Resolved = true
	res.Ambiguous = len(scored) > 1 && scored[1].Score == top.Score
	res.Alternatives = alternatives(scored, 1)
	return res
}

// Score rates how well candidate names entry, in [0,1].
func Score(candidate string, entry Entry) float64 {
	if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(entry.SKU)) && entry.SKU != "" {
		return 1.0
	}

	c := Normalize(candidate)
	n := Normalize(entry.Name)
	if c == "" || n == "" {
		return 0
	}
	if c == n {
		return 1.0
	}

	best := similarity(c, n)

	ct, nt := strings.Fields(c), strings.Fields(n)
	if containsAll(nt, ct) {
		best = max(best, 0.6+0.35*float64(len(ct))/float64(len(nt)))
	}
	if containsAll(ct, nt) {
		best = max(best, 0.5+0.3*float64(len(nt))/float64(len(ct)))
	}
	best = max(best, 0.85*fuzzyDice(ct, nt))

	return min(best, 1.0)
}

// Normalize lowercases, replaces anything but letters and digits with spaces
// and singularizes each word.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = Singular(w)
	}
	return strings.Join(words, " ")
}

var irregular = map[string]string{
	"mice":     "mouse",
	"knives":   "knife",
	"shelves":  "shelf",
	"boxes":    "box",
	"children": "child",
	"feet":     "foot",
	"teeth":    "tooth",
}

var invariant = map[string]bool{
	"glass": true, "chassis": true, "series": true, "news": true, "status": true,
	"lens": true, "species": true, "gas": true, "canvas": true,
}

// Singular reduces an English plural to its singular form.
func Singular(w string) string {
	if v, ok := irregular[w]; ok {
		return v
	}
	if invariant[w] || len(w) <= 3 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"),
		strings.HasSuffix(w, "xes"), strings.HasSuffix(w, "zes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return w
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}

// similarity is 1 - levenshtein(a, b) / max(len(a), len(b)).
func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// fuzzyDice is the Dice coefficient over word sets, counting two words equal
// when their edit similarity is at least 0.8.
func fuzzyDice(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	used := make([]bool, len(b))
	common := 0
	for _, x := range a {
		for j, y := range b {
			if !used[j] && similarity(x, y) >= 0.8 {
				used[j] = true
				common++
				break
			}
		}
	}
	return 2 * float64(common) / float64(len(a)+len(b))
}

func containsAll(haystack, needles []string) bool {
	set := make(map[string]bool, len(haystack))
	for _, w := range haystack {
		set[w] = true
	}
	for _, w := range needles {
		if !set[w] {
			return false
		}
	}
	return true
}

func alternatives(scored []Scored, from int) []Scored {
	var out []Scored
	for i := from; i < len(scored) && len(out) < maxAlternatives; i++ {
		if scored[i].Score <= 0 {
			break
		}
		out = append(out, scored[i])
	}
	return out
}
