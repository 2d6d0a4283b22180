package intent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	// minScore is the raw score below which a message is unknown.
	minScore = 0.25
	// strongDomain is the raw score at which a domain request beats a
	// conversational opener. Any phrase or pattern rule reaches it.
	strongDomain = 0.8
	// confidenceFloor is the confidence of an intent with the weakest firing rule.
	confidenceFloor = 0.5

	// UnknownConfidence is reported for non-empty text no rule matched.
	UnknownConfidence = 0.1
	// UnknownCeiling is the highest confidence an unknown result may carry.
	UnknownCeiling = 0.3
)

// Result is the outcome of classifying one normalized message.
type Result struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	// Score is the raw weighted sum of firing rules.
	Score float64 `json:"score"`
	// Span is the length of the longest text span a firing rule matched.
	Span int `json:"span"`
}

type compiledRule struct {
	kind   RuleKind
	weight float64
	res    []*regexp.Regexp
}

type compiledSet struct {
	intent         Intent
	conversational bool
	rules          []compiledRule
	maxScore       float64
}

type evaluation struct {
	set   *compiledSet
	order int
	score float64
	span  int
	exact bool
}

// Classifier folds a rule table over normalized text. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	sets []compiledSet
}

// NewClassifier compiles sets. Their order is the final tie-break.
func NewClassifier(sets []RuleSet) (*Classifier, error) {
	c := &Classifier{sets: make([]compiledSet, 0, len(sets))}

	for _, set := range sets {
		cs := compiledSet{intent: set.Intent, conversational: set.Conversational}
		perKind := map[RuleKind]float64{}

		for _, r := range set.Rules {
			cr := compiledRule{kind: r.Kind, weight: r.Weight}
			switch r.Kind {
			case KindPhrase:
				cr.res = []*regexp.Regexp{phraseRegexp(r.Values)}
			case KindKeyword:
				cr.res = []*regexp.Regexp{keywordRegexp(r.Values)}
			case KindPattern:
				for _, p := range r.Values {
					re, err := regexp.Compile(p)
					if err != nil {
						return nil, fmt.Errorf("intent %s: compile pattern %q: %w", set.Intent, p, err)
					}
					cr.res = append(cr.res, re)
				}
			default:
				return nil, fmt.Errorf("intent %s: unknown rule kind %q", set.Intent, r.Kind)
			}
			if r.Weight > perKind[r.Kind] {
				perKind[r.Kind] = r.Weight
			}
			cs.rules = append(cs.rules, cr)
		}

		for _, w := range perKind {
			cs.maxScore += w
		}
		c.sets = append(c.sets, cs)
	}

	return c, nil
}

// Default returns a classifier over DefaultRules.
func Default() *Classifier {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("default intent rules: %v", err))
	}
	return c
}

// Classify assigns an intent to normalized text. Empty text is unknown with
// zero confidence.
func (c *Classifier) Classify(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Intent: Unknown, Confidence: 0}
	}

	evals := make([]evaluation, 0, len(c.sets))
	for i := range c.sets {
		evals = append(evals, c.evaluate(i, text))
	}

	// An exact conversational phrase is unambiguous.
	for _, ev := range evals {
		if ev.set.conversational && ev.exact {
			return c.result(ev)
		}
	}

	var bestDomain *evaluation
	for i := range evals {
		if evals[i].set.conversational {
			continue
		}
		if bestDomain == nil || better(evals[i], *bestDomain) {
			bestDomain = &evals[i]
		}
	}
	if bestDomain != nil && bestDomain.score >= strongDomain {
		return c.result(*bestDomain)
	}

	best := evals[0]
	for _, ev := range evals[1:] {
		if better(ev, best) {
			best = ev
		}
	}
	if best.score < minScore {
		return Result{Intent: Unknown, Confidence: UnknownConfidence}
	}
	return c.result(best)
}

// Scores returns the raw score of every intent that fired, for diagnostics.
func (c *Classifier) Scores(text string) map[Intent]float64 {
	out := make(map[Intent]float64)
	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}
	for i := range c.sets {
		if ev := c.evaluate(i, text); ev.score > 0 {
			out[ev.set.intent] = ev.score
		}
	}
	return out
}

func (c *Classifier) evaluate(i int, text string) evaluation {
	set := &c.sets[i]
	ev := evaluation{set: set, order: i}
	perKind := map[RuleKind]float64{}

	for _, r := range set.rules {
		span, exact := r.match(text)
		if span == 0 {
			continue
		}
		if r.weight > perKind[r.kind] {
			perKind[r.kind] = r.weight
		}
		if span > ev.span {
			ev.span = span
		}
		if exact {
			ev.exact = true
		}
	}

	for _, w := range perKind {
		ev.score += w
	}
	return ev
}

func (c *Classifier) result(ev evaluation) Result {
	conf := confidenceFloor
	if ev.set.maxScore > 0 {
		conf += (1 - confidenceFloor) * ev.score / ev.set.maxScore
	}
	return Result{
		Intent:     ev.set.intent,
		Confidence: clamp(conf),
		Score:      ev.score,
		Span:       ev.span,
	}
}

// match returns the longest matched span and, for phrases, whether the
// phrase covered the whole text.
func (r compiledRule) match(text string) (int, bool) {
	if r.kind == KindPhrase {
		loc := r.res[0].FindStringIndex(text)
		if loc == nil {
			return 0, false
		}
		span := len(strings.TrimRight(text[loc[0]:loc[1]], " \t"))
		return span, span == len(text)
	}

	longest := 0
	for _, re := range r.res {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if n := loc[1] - loc[0]; n > longest {
				longest = n
			}
		}
	}
	return longest, false
}

// better orders evaluations: higher score, then longer span, then anything
// over help, then table order.
func better(a, b evaluation) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.span != b.span {
		return a.span > b.span
	}
	if (a.set.intent == Help) != (b.set.intent == Help) {
		return b.set.intent == Help
	}
	return a.order < b.order
}

func phraseRegexp(values []string) *regexp.Regexp {
	re := regexp.MustCompile(`^(?:` + alternation(values) + `)(?:\s|$)`)
	re.Longest()
	return re
}

func keywordRegexp(values []string) *regexp.Regexp {
	re := regexp.MustCompile(`\b(?:` + alternation(values) + `)\b`)
	re.Longest()
	return re
}

func alternation(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(strings.ToLower(v))
		if v != "" {
			quoted = append(quoted, regexp.QuoteMeta(v))
		}
	}
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return strings.Join(quoted, "|")
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
