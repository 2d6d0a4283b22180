package entity

import "strings"

var locationWords = map[string]bool{
	"location": true, "located": true, "where": true, "aisle": true, "rack": true,
	"shelf": true, "zone": true, "bin": true,
}

// Location reports a location query. When an aisle/rack/shelf/zone/bin code
// is present, it becomes the value and its code the normalized form.
func Location(normalized string) *Entity {
	if loc := locationRe.FindStringSubmatchIndex(normalized); loc != nil {
		return &Entity{
			Kind:       KindLocation,
			Value:      normalized[loc[0]:loc[1]],
			Normalized: strings.ToUpper(normalized[loc[4]:loc[5]]),
			Span:       Span{Start: loc[0], End: loc[1]},
			Query:      true,
		}
	}

	for _, w := range wordRe.FindAllStringIndex(normalized, -1) {
		word := normalized[w[0]:w[1]]
		if locationWords[word] {
			return &Entity{
				Kind:       KindLocation,
				Value:      word,
				Normalized: word,
				Span:       Span{Start: w[0], End: w[1]},
				Query:      true,
			}
		}
	}
	return nil
}
