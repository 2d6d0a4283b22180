package intent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleKind selects how a rule's values are matched against normalized text.
type RuleKind string

const (
	// KindPhrase fires when the text is one of the phrases, or starts with
	// one followed by a word boundary.
	KindPhrase RuleKind = "phrase"
	// KindKeyword fires when any keyword occurs as a whole word.
	KindKeyword RuleKind = "keyword"
	// KindPattern fires when any regular expression matches.
	KindPattern RuleKind = "pattern"
)

// Rule is one weighted matcher inside a RuleSet.
type Rule struct {
	Kind   RuleKind `yaml:"kind" json:"kind"`
	Values []string `yaml:"values" json:"values"`
	Weight float64  `yaml:"weight" json:"weight"`
}

// RuleSet is the ordered list of rules owned by one intent.
type RuleSet struct {
	Intent         Intent `yaml:"intent" json:"intent"`
	Conversational bool   `yaml:"conversational" json:"conversational"`
	Rules          []Rule `yaml:"rules" json:"rules"`
}

type ruleFile struct {
	Version string    `yaml:"version"`
	Intents []RuleSet `yaml:"intents"`
}

// LoadRules reads a YAML rule table. The order of the intents in the file is
// the tie-break order, most specific first.
func LoadRules(path string) ([]RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes a YAML rule table.
func ParseRules(data []byte) ([]RuleSet, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(f.Intents) == 0 {
		return nil, fmt.Errorf("rules file defines no intents")
	}
	for _, set := range f.Intents {
		if !set.Intent.Valid() || set.Intent == Unknown {
			return nil, fmt.Errorf("rules file: invalid intent %q", set.Intent)
		}
		for _, r := range set.Rules {
			switch r.Kind {
			case KindPhrase, KindKeyword, KindPattern:
			default:
				return nil, fmt.Errorf("rules file: intent %s has unknown rule kind %q", set.Intent, r.Kind)
			}
			if r.Weight <= 0 {
				return nil, fmt.Errorf("rules file: intent %s has non-positive weight", set.Intent)
			}
		}
	}
	return f.Intents, nil
}

// DefaultRules is the compiled-in rule table. Domain intents come first in
// specificity order; conversational intents follow.
func DefaultRules() []RuleSet {
	return []RuleSet{
		{
			Intent: StockUpdate,
			Rules: []Rule{
				{Kind: KindPattern, Weight: 0.9, Values: []string{
					`\bset\b.+\bto -?\d+\b`,
					`\bupdate\b.+\bto -?\d+\b`,
					`\b(?:change|adjust)\b.+\bto -?\d+\b`,
					`\b(?:add|remove|subtract|deduct)\b -?\d+\b`,
					`\b(?:received|receive|counted|dispatched|dispatch|shipped)\b -?\d+\b`,
					`\b(?:increase|decrease|reduce)\b.+\b(?:by|to) -?\d+\b`,
				}},
				{Kind: KindPattern, Weight: 0.8, Values: []string{
					`\bset\b.+\b(?:stock|quantity|inventory|count|level)\b`,
					`\bupdate\b.+\b(?:stock|quantity|inventory|count|level)\b`,
					`\bchange\b.+\b(?:quantity|stock)\b`,
					`\b(?:increase|decrease|reduce|adjust)\b.+\b(?:stock|quantity|inventory)\b`,
				}},
				{Kind: KindKeyword, Weight: 0.4, Values: []string{
					"set", "update", "adjust", "increase", "decrease", "stock count", "recount",
				}},
			},
		},
		{
			Intent: AlertsMonitoring,
			Rules: []Rule{
				{Kind: KindPhrase, Weight: 1.0, Values: []string{
					"show low stock", "low stock", "stock alerts", "alerts", "show alerts",
					"low stock items", "show low stock items",
				}},
				{Kind: KindPattern, Weight: 0.8, Values: []string{
					`\blow (?:stock|inventory|on stock)\b`,
					`\brunning (?:low|out)\b`,
					`\b(?:critically|very|really|getting) low\b`,
					`\bwhat is (?:critically )?low\b`,
					`\b(?:items|products) (?:are|is) low\b`,
					`\bneeds? (?:attention|reordering|restocking|to be reordered)\b`,
					`\b(?:problem|trouble) (?:areas|items|products)\b`,
					`\bin trouble\b`,
					`\bred flags?\b`,
					`\bworried about\b`,
					`\b(?:any|stock|show|check|list) (?:alerts?|warnings?)\b`,
					`\bout of stock\b`,
					`\bany (?:problems|alerts|shortages)\b`,
					`\bwhat (?:is|are) (?:wrong|short)\b`,
				}},
				{Kind: KindKeyword, Weight: 0.4, Values: []string{
					"low", "alert", "alerts", "warning", "warnings", "shortage", "shortages",
					"critical", "attention", "reorder", "reordering", "restock", "depleted",
				}},
			},
		},
		{
			Intent: OperationsCheck,
			Rules: []Rule{
				{Kind: KindPattern, Weight: 0.8, Values: []string{
					`\bany (?:deliveries|shipments|orders|pickups|arrivals|dispatches)\b`,
					`\b(?:deliveries|delivery|shipments?|inbound|outbound|dispatch(?:es)?|receiving|orders?)\b.*\b(?:today|scheduled|pending|due|expected|arriving|late)\b`,
					`\b(?:order|shipment|delivery) status\b`,
					`\bstatus of (?:order|shipment|delivery)\b`,
					`\b(?:pending|open|late) (?:orders|shipments|deliveries)\b`,
					`\bord\d+\b`,
				}},
				{Kind: KindKeyword, Weight: 0.4, Values: []string{
					"delivery", "deliveries", "shipment", "shipments", "shipping", "orders",
					"inbound", "outbound", "dispatch", "receiving", "picking", "packing",
					"dock", "carrier", "truck",
				}},
			},
		},
		{
			Intent: ReportingAnalytics,
			Rules: []Rule{
				{Kind: KindPhrase, Weight: 1.0, Values: []string{
					"give me a summary", "show dashboard", "dashboard", "summary", "report",
					"show me the analytics", "warehouse status",
				}},
				{Kind: KindPattern, Weight: 0.8, Values: []string{
					`\bwarehouse (?:status|performance|overview|report|summary)\b`,
					`\b(?:generate|create|give me|show me|show|display|run)(?: an?| the| our)? (?:\w+ )?(?:report|summary|analytics|dashboard|overview|statistics|stats|metrics|digest)\b`,
					`\b(?:key )?(?:statistics|metrics|analytics|kpis?)\b`,
					`\bhow are we doing\b`,
					`\bhow (?:are|is) (?:operations|everything|things)\b`,
					`\bhow smooth\b`,
					`\bwhat is (?:happening|going on)\b`,
					`\btodays? (?:activities|activity|performance)\b`,
					`\bcurrent operations\b`,
					`\bissues with operations\b`,
					`\bperformance\b`,
				}},
				{Kind: KindKeyword, Weight: 0.4, Values: []string{
					"report", "summary", "analytics", "dashboard", "metrics", "statistics",
					"overview", "performance", "status", "trends", "kpi", "operations",
				}},
			},
		},
		{
			Intent: InventoryCheck,
			Rules: []Rule{
				{Kind: KindPhrase, Weight: 1.0, Values: []string{
					"check inventory", "check stock", "check stock levels", "inventory",
					"stock levels", "what is in stock", "show inventory", "show me all products",
				}},
				{Kind: KindPattern, Weight: 0.8, Values: []string{
					`\bcheck (?:the )?(?:stock|inventory|warehouse inventory|stock levels?)\b`,
					`\b(?:inventory|stock) (?:for|of|on)\b`,
					`\bdo we (?:still )?have\b`,
					`\bhow (?:many|much)\b`,
					`\b(?:is|are) there (?:any|enough)\b`,
					`\bwhere (?:is|are|can i find)\b`,
					`\b(?:find|search for|look for|look up|locate)\b`,
					`\bshow (?:me )?(?:all )?(?:the )?(?:products|items|inventory|stock|current stock)\b`,
					`\b(?:what|which) (?:products|items) (?:do we have|are available|are in stock)\b`,
					`\bwhat is in stock\b`,
					`\bdisplay (?:current )?stock\b`,
					`\btell me about\b`,
					`\bgive me the lowdown on\b`,
					`\bwhat is the deal with\b`,
					`\bwhat about\b`,
					`\b(?:details|status) (?:for|of)\b`,
					`\bsku\b`,
				}},
				{Kind: KindPattern, Weight: 0.6, Values: []string{
					`\bcheck\b`,
					`\bshow me\b`,
					`\bavailability\b`,
				}},
				{Kind: KindKeyword, Weight: 0.4, Values: []string{
					"stock", "inventory", "available", "availability", "product", "products",
					"item", "items", "in stock", "quantity", "units", "on hand", "left",
				}},
			},
		},
		{
			Intent:         Greeting,
			Conversational: true,
			Rules: []Rule{
				{Kind: KindPhrase, Weight: 1.0, Values: []string{
					"hi", "hello", "hey", "hi there", "hello there", "hey there", "greetings",
					"good morning", "good afternoon", "good evening", "what is up", "sup", "yo",
					"how are you", "how is it going",
				}},
				{Kind: KindKeyword, Weight: 0.4, Values: []string{
					"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "greetings",
				}},
			},
		},
		{
			Intent:         Farewell,
			Conversational: true,
			Rules: []Rule{
				{Kind: KindPhrase, Weight: 1.0, Values: []string{
					"bye", "goodbye", "good bye", "bye bye", "see you", "see you later",
					"see you tomorrow", "later", "good night", "take care", "that is all",
					"catch you later", "talk later", "i am done",
				}},
				{Kind: KindKeyword, Weight: 0.4, Values: []string{
					"bye", "goodbye", "see you", "take care", "good night",
				}},
			},
		},
		{
			Intent:         Gratitude,
			Conversational: true,
			Rules: []Rule{
				{Kind: KindPhrase, Weight: 1.0, Values: []string{
					"thanks", "thank you", "thanks a lot", "thank you very much", "thanks so much",
					"many thanks", "cheers", "much appreciated", "appreciate it", "great thanks",
				}},
				{Kind: KindKeyword, Weight: 0.4, Values: []string{
					"thanks", "thank you", "appreciate", "appreciated", "grateful",
				}},
			},
		},
		{
			Intent:         Help,
			Conversational: true,
			Rules: []Rule{
				{Kind: KindPhrase, Weight: 1.0, Values: []string{
					"help", "help me", "guide me", "i need help", "i need assistance",
					"show me examples", "show me what you can do", "what can you do",
				}},
				{Kind: KindPattern, Weight: 0.8, Values: []string{
					`\bwhat can (?:you|i) (?:do|ask)\b`,
					`\bhow (?:do i|does this|does it|can i) (?:use|work)\b`,
					`\bhow (?:do i|does this) work\b`,
					`\bwhat (?:features|commands|capabilities|options)\b`,
					`\b(?:your|the) capabilities\b`,
					`\bshow me (?:some )?examples\b`,
					`\bcan you help\b`,
					`\b(?:need|want) (?:some )?(?:help|assistance)\b`,
				}},
				{Kind: KindKeyword, Weight: 0.4, Values: []string{
					"help", "assist", "assistance", "guide", "capabilities", "commands",
					"features", "examples", "tutorial", "instructions",
				}},
			},
		},
	}
}
