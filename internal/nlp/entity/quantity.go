package entity

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MaxQuantity is the largest stock level the inventory stores accept.
const MaxQuantity = math.MaxInt32

var (
	numberRe   = regexp.MustCompile(`\b\d+\b`)
	numberTok  = regexp.MustCompile(`^-?\d[\d,]*(?:\.\d+)?$`)
	groupedRe  = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
	wordRe     = regexp.MustCompile(`\S+`)
	locationRe = regexp.MustCompile(`\b(aisle|rack|shelf|zone|bin)\s+([a-z]?\d+[a-z]?|[a-z]\d*)\b`)
)

// Problem explains why a number in the message is not a usable quantity.
type Problem string

const (
	ProblemNegative   Problem = "negative"
	ProblemFractional Problem = "fractional"
	ProblemMalformed  Problem = "malformed"
	ProblemOutOfRange Problem = "out_of_range"
)

// targetCues mark the number right after them as the quantity to apply.
var targetCues = map[string]bool{
	"to": true, "by": true, "set": true, "add": true, "added": true, "remove": true,
	"removed": true, "received": true, "receive": true, "counted": true, "increase": true,
	"decrease": true, "reduce": true, "subtract": true, "deduct": true, "dispatched": true,
	"dispatch": true, "shipped": true, "sold": true, "plus": true, "minus": true,
	"restocked": true, "at": true,
}

var unitWords = map[string]bool{
	"units": true, "unit": true, "pcs": true, "pieces": true, "piece": true,
	"items": true, "boxes": true, "cases": true, "pallets": true,
}

var addVerbs = map[string]bool{
	"add": true, "added": true, "received": true, "receive": true, "increase": true,
	"plus": true, "restocked": true, "restock": true,
}

var removeVerbs = map[string]bool{
	"remove": true, "removed": true, "dispatch": true, "dispatched": true, "decrease": true,
	"reduce": true, "shipped": true, "subtract": true, "deduct": true, "sold": true, "minus": true,
}

// Quantities finds numbers in normalized text. Digits that belong to a SKU
// or a location code are skipped. A whole-word number such as "1,000" is
// read with its separators; signed, fractional, badly grouped or oversized
// numbers are kept with a Problem and a zero Amount.
func Quantities(normalized string, skus []Entity) []Entity {
	excluded := make([][2]int, 0, len(skus))
	for _, s := range skus {
		code := strings.ToLower(s.Normalized)
		for _, loc := range indexAll(normalized, code) {
			excluded = append(excluded, loc)
		}
	}
	for _, loc := range locationRe.FindAllStringSubmatchIndex(normalized, -1) {
		excluded = append(excluded, [2]int{loc[4], loc[5]})
	}

	words := wordRe.FindAllStringIndex(normalized, -1)
	op := sentenceOperation(normalized)

	var spans [][2]int
	for _, w := range words {
		word := normalized[w[0]:w[1]]
		if numberTok.MatchString(word) {
			spans = append(spans, [2]int{w[0], w[1]})
			continue
		}
		for _, loc := range numberRe.FindAllStringIndex(word, -1) {
			spans = append(spans, [2]int{w[0] + loc[0], w[0] + loc[1]})
		}
	}

	var out []Entity
	for _, loc := range spans {
		if overlaps(loc[0], loc[1], excluded) {
			continue
		}
		raw := normalized[loc[0]:loc[1]]
		n, problem := parseQuantity(raw)

		prev, next := neighbours(normalized, words, loc[0])
		target := targetCues[prev] || unitWords[next]

		entOp := op
		if prev == "to" || prev == "set" || prev == "at" {
			entOp = OpSet
		} else if addVerbs[prev] {
			entOp = OpAdd
		} else if removeVerbs[prev] {
			entOp = OpRemove
		}

		normalizedValue := raw
		if problem == "" {
			normalizedValue = strconv.Itoa(n)
		}
		out = append(out, Entity{
			Kind:       KindQuantity,
			Value:      raw,
			Normalized: normalizedValue,
			Span:       Span{Start: loc[0], End: loc[1]},
			Amount:     n,
			Target:     target,
			Operation:  entOp,
			Problem:    problem,
		})
	}
	return out
}

// parseQuantity reads a whole number of units. Thousands separators must
// group by three.
func parseQuantity(raw string) (int, Problem) {
	negative := strings.HasPrefix(raw, "-")
	digits := strings.TrimPrefix(raw, "-")
	switch {
	case strings.Contains(digits, "."):
		return 0, ProblemFractional
	case strings.Contains(digits, ","):
		if !groupedRe.MatchString(digits) {
			return 0, ProblemMalformed
		}
		digits = strings.ReplaceAll(digits, ",", "")
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n > MaxQuantity {
		return 0, ProblemOutOfRange
	}
	if negative {
		return 0, ProblemNegative
	}
	return n, ""
}

// sentenceOperation infers the stock operation from the verbs present.
func sentenceOperation(normalized string) Operation {
	for _, w := range strings.Fields(normalized) {
		if addVerbs[w] {
			return OpAdd
		}
		if removeVerbs[w] {
			return OpRemove
		}
	}
	return OpSet
}

// neighbours returns the words immediately before and after the word that
// starts at offset.
func neighbours(text string, words [][]int, offset int) (string, string) {
	for i, w := range words {
		if w[0] != offset {
			continue
		}
		var prev, next string
		if i > 0 {
			prev = text[words[i-1][0]:words[i-1][1]]
		}
		if i+1 < len(words) {
			next = text[words[i+1][0]:words[i+1][1]]
		}
		return prev, next
	}
	return "", ""
}

func indexAll(s, sub string) [][2]int {
	var out [][2]int
	if sub == "" {
		return out
	}
	from := 0
	for {
		i := strings.Index(s[from:], sub)
		if i < 0 {
			return out
		}
		start := from + i
		out = append(out, [2]int{start, start + len(sub)})
		from = start + len(sub)
	}
}

func overlaps(start, end int, ranges [][2]int) bool {
	for _, r := range ranges {
		if start < r[1] && end > r[0] {
			return true
		}
	}
	return false
}
