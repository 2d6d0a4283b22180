// Package normalize turns raw chat input into the canonical lowercase form
// every other stage of the interpreter works on.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// contractions are expanded token by token, before apostrophes are dropped.
var contractions = map[string]string{
	"what's":   "what is",
	"whats":    "what is",
	"where's":  "where is",
	"wheres":   "where is",
	"how's":    "how is",
	"hows":     "how is",
	"it's":     "it is",
	"that's":   "that is",
	"there's":  "there is",
	"who's":    "who is",
	"let's":    "let us",
	"i'm":      "i am",
	"we're":    "we are",
	"they're":  "they are",
	"you're":   "you are",
	"don't":    "do not",
	"dont":     "do not",
	"doesn't":  "does not",
	"didn't":   "did not",
	"can't":    "cannot",
	"cant":     "cannot",
	"won't":    "will not",
	"isn't":    "is not",
	"aren't":   "are not",
	"haven't":  "have not",
	"we've":    "we have",
	"i've":     "i have",
	"i'd":      "i would",
	"i'll":     "i will",
	"we'll":    "we will",
	"u":        "you",
	"r":        "are",
	"pls":      "please",
	"plz":      "please",
	"thx":      "thanks",
	"thanx":    "thanks",
	"ty":       "thanks",
	"gimme":    "give me",
	"lemme":    "let me",
	"wanna":    "want to",
	"gonna":    "going to",
	"qty":      "quantity",
	"invt":     "inventory",
	"whatcha":  "what are you",
	"y'all":    "you all",
	"howdy":    "hello",
	"hiya":     "hi",
}

// slang maps multi-word colloquialisms onto the phrasing the rule table knows.
var slang = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`\bgot any\b`), "do we have"},
	{regexp.MustCompile(`\bdo (?:ya|you guys) have\b`), "do we have"},
	{regexp.MustCompile(`\bhave we got\b`), "do we have"},
	{regexp.MustCompile(`\bsee ya\b`), "see you"},
	{regexp.MustCompile(`\bgood day\b`), "good morning"},
}

var whitespace = regexp.MustCompile(`\s+`)

// Text normalizes raw input. It lowercases, strips diacritics, expands
// contractions and slang, replaces punctuation with spaces and collapses
// whitespace. Input with no letters or digits normalizes to "".
func Text(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	folded := foldMarks(raw)
	folded = strings.ToLower(folded)
	folded = strings.NewReplacer("’", "'", "‘", "'", "`", "'").Replace(folded)

	cleaned := stripPunctuation(folded)

	tokens := strings.Fields(cleaned)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if exp, ok := contractions[tok]; ok {
			out = append(out, exp)
			continue
		}
		tok = strings.ReplaceAll(tok, "'", "")
		tok = strings.TrimRight(tok, "-")
		if !signedNumber(tok) {
			tok = strings.TrimLeft(tok, "-")
		}
		if tok != "" {
			out = append(out, tok)
		}
	}

	text := strings.Join(out, " ")
	for _, s := range slang {
		text = s.re.ReplaceAllString(text, s.with)
	}

	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// IsEmpty reports whether raw carries nothing the interpreter can use.
func IsEmpty(raw string) bool {
	return Text(raw) == ""
}

// Tokens splits normalized text into words.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// foldMarks decomposes the input and drops combining marks so "café" and
// "cafe" normalize identically. The transformer is stateful, so one is built
// per call.
func foldMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// stripPunctuation keeps letters, digits, apostrophes and hyphens that sit
// between two word characters. Inside numbers it also keeps a leading minus
// sign and commas or dots between two digits, so "-5", "1,000" and "2.5"
// survive for quantity extraction. Everything else becomes a space.
func stripPunctuation(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))

	at := func(i int) rune {
		if i < 0 || i >= len(rs) {
			return 0
		}
		return rs[i]
	}

	for i, r := range rs {
		prev, next := at(i-1), at(i+1)
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' && !isWord(prev) && unicode.IsDigit(next):
			b.WriteRune(r)
		case r == '\'' || r == '-':
			if isWord(prev) && isWord(next) {
				b.WriteRune(r)
			} else {
				b.WriteRune(' ')
			}
		case (r == ',' || r == '.') && unicode.IsDigit(prev) && unicode.IsDigit(next):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func signedNumber(tok string) bool {
	return len(tok) > 1 && tok[0] == '-' && tok[1] >= '0' && tok[1] <= '9'
}

func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
