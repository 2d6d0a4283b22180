package entity

import (
	"regexp"
	"sort"
	"strings"
)

var (
	skuGeneric  = regexp.MustCompile(`(?i)\b[a-z]{2,4}\d{3,4}\b`)
	skuCaps     = regexp.MustCompile(`\b[A-Z]{2,8}\d{3,4}\b`)
	skuAnchored = regexp.MustCompile(`(?i)\b(?:sku|code|product|item)\s*[:#]?\s*([a-z]+\d+[a-z0-9-]*)\b`)
)

// SKUs finds product codes in the original message, uppercased and
// deduplicated in order of appearance. Short codes (ELEC001) match anywhere;
// longer ones (LAPTOP001) need to be written in capitals or follow a
// "sku"/"code"/"product"/"item" anchor.
func SKUs(original string) []Entity {
	type hit struct{ start, end int }
	var hits []hit

	for _, loc := range skuGeneric.FindAllStringIndex(original, -1) {
		hits = append(hits, hit{loc[0], loc[1]})
	}
	for _, loc := range skuCaps.FindAllStringIndex(original, -1) {
		hits = append(hits, hit{loc[0], loc[1]})
	}
	for _, loc := range skuAnchored.FindAllStringSubmatchIndex(original, -1) {
		hits = append(hits, hit{loc[2], loc[3]})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		return hits[i].end > hits[j].end
	})

	seen := make(map[string]bool)
	var out []Entity
	lastEnd := -1
	for _, h := range hits {
		if h.start < lastEnd {
			continue
		}
		code := strings.ToUpper(strings.TrimRight(original[h.start:h.end], "-"))
		lastEnd = h.end
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, Entity{
			Kind:       KindSKU,
			Value:      code,
			Normalized: code,
			Span:       Span{Start: h.start, End: h.end},
		})
	}
	return out
}

// LooksLikeSKU reports whether s alone has the shape of a product code.
func LooksLikeSKU(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	return skuGeneric.FindString(s) == s || skuCaps.FindString(s) == s
}
