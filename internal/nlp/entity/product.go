package entity

import (
	"regexp"
	"strings"
)

// stopPhrases are removed before tokens are considered. They contain words
// that are product-like on their own ("running", "hand").
var stopPhrases = regexp.MustCompile(`\b(?:what is the deal with|give me the lowdown on|lowdown on|good morning|good afternoon|good evening|running low|running out|out of stock|in stock|on hand|right now|at the moment|this one|that one|same one)\b`)

var stopWords = toSet(
	// articles, pronouns, auxiliaries
	"a", "an", "the", "any", "some", "all", "every", "me", "my", "our", "we", "us", "i",
	"you", "your", "they", "do", "does", "did", "have", "has", "had", "is", "are", "was",
	"were", "be", "been", "there", "here", "of", "for", "in", "on", "at", "to", "by",
	"from", "with", "about", "into", "what", "which", "how", "many", "much", "where",
	"when", "who", "please", "can", "could", "would", "will", "should", "let", "just",
	"also", "still", "now", "today", "currently", "current", "not", "no", "yes", "got",
	"like", "need", "want", "know", "see", "if", "so", "too", "very", "enough", "more",
	"left", "else", "anything", "something", "status", "details", "detail", "info",
	"information", "deal", "lowdown", "tell", "give", "get", "check", "show", "find",
	"search", "look", "locate", "list", "display", "up", "stock", "stocks", "inventory",
	"level", "levels", "quantity", "quantities", "count", "available", "availability",
	"units", "unit", "pcs", "pieces", "piece", "set", "update", "add", "remove", "received",
	"receive", "counted", "increase", "decrease", "reduce", "change", "adjust", "subtract",
	"deduct", "dispatched", "shipped", "sold", "restocked", "plus", "minus", "and", "or",
	"location", "located", "aisle", "rack", "shelf", "zone", "bin", "sku", "code", "hi",
	"hello", "hey", "thanks", "one", "ones", "kind", "kinds", "type", "types", "product",
	"products", "item", "items", "things", "stuff", "warehouse", "hand", "carry", "sell",
	"keep", "really", "exactly", "sure", "as", "well", "it", "its", "that", "them", "this",
	"those", "these", "same", "am", "being", "make", "ok", "okay",
)

var referents = toSet("it", "that", "them", "this", "those", "these", "same")

// HasReferent reports whether normalized text points back at a previously
// discussed product.
func HasReferent(normalized string) bool {
	for _, w := range strings.Fields(normalized) {
		if referents[w] {
			return true
		}
	}
	return false
}

// ProductNames returns the product name candidates left once request words,
// filler, SKUs and numbers are removed. Candidates are maximal runs of
// remaining words; "and", "or" and commas separate them. The value keeps the
// casing of the original message when it can be found there.
func ProductNames(original, normalized string, skus []Entity) []Entity {
	skuWords := make(map[string]bool, len(skus))
	for _, s := range skus {
		skuWords[strings.ToLower(s.Normalized)] = true
	}

	blocked := toRanges(stopPhrases.FindAllStringIndex(normalized, -1))
	words := wordRe.FindAllStringIndex(normalized, -1)

	var (
		out  []Entity
		run  [][]int
		seen = map[string]bool{}
	)

	flush := func() {
		if len(run) == 0 {
			return
		}
		start, end := run[0][0], run[len(run)-1][1]
		candidate := normalized[start:end]
		run = nil
		if seen[candidate] {
			return
		}
		seen[candidate] = true
		out = append(out, Entity{
			Kind:       KindProductName,
			Value:      originalCasing(original, candidate),
			Normalized: candidate,
			Span:       Span{Start: start, End: end},
		})
	}

	for _, w := range words {
		word := normalized[w[0]:w[1]]
		switch {
		case overlaps(w[0], w[1], blocked),
			stopWords[word],
			skuWords[word],
			isNumber(word),
			len(word) < 2:
			flush()
		default:
			run = append(run, w)
		}
	}
	flush()

	return out
}

// originalCasing finds candidate in the raw message ignoring case and
// punctuation between words.
func originalCasing(original, candidate string) string {
	words := strings.Fields(candidate)
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = regexp.QuoteMeta(w)
	}
	re, err := regexp.Compile(`(?i)\b` + strings.Join(parts, `[^\pL\pN]+`) + `\b`)
	if err != nil {
		return candidate
	}
	if m := re.FindString(original); m != "" {
		return m
	}
	return candidate
}

func isNumber(s string) bool {
	return numberTok.MatchString(s)
}

func toRanges(locs [][]int) [][2]int {
	out := make([][2]int, len(locs))
	for i, l := range locs {
		out[i] = [2]int{l[0], l[1]}
	}
	return out
}

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
