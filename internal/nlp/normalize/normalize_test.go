package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: "   \t\n ", expected: ""},
		{name: "punctuation only", input: "!@#$%^&*()", expected: ""},
		{name: "digits survive", input: "123456789", expected: "123456789"},
		{name: "lowercases and trims punctuation", input: "Show LOW stock!!!", expected: "show low stock"},
		{name: "collapses whitespace", input: "check    the   inventory", expected: "check the inventory"},
		{name: "expands contraction", input: "What's in stock?", expected: "what is in stock"},
		{name: "expands slang phrase", input: "got any wireless mice?", expected: "do we have wireless mice"},
		{name: "expands shorthand tokens", input: "thx, u r great", expected: "thanks you are great"},
		{name: "drops possessive apostrophe", input: "show me today's activities", expected: "show me todays activities"},
		{name: "keeps intra-word hyphen", input: "Cotton T-Shirt", expected: "cotton t-shirt"},
		{name: "drops dangling hyphen", input: "laptops - all of them", expected: "laptops all of them"},
		{name: "folds diacritics", input: "Café crème", expected: "cafe creme"},
		{name: "curly apostrophe", input: "What’s up?", expected: "what is up"},
		{name: "keeps sku casing out", input: "Set TOOL001 stock to 100", expected: "set tool001 stock to 100"},
		{name: "dots only after verb", input: "find . . . .", expected: "find"},
		{name: "keeps minus sign", input: "Set TOOL001 stock to -5", expected: "set tool001 stock to -5"},
		{name: "keeps thousands separator", input: "set it to 1,000.", expected: "set it to 1,000"},
		{name: "keeps decimal point", input: "2.5 boxes", expected: "2.5 boxes"},
		{name: "list comma still splits", input: "laptops, mice", expected: "laptops mice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"What's the status of HEAD001?",
		"Do we have any smartphones?",
		"gimme the lowdown on headphones",
		"set it to -5, then 1,000",
	}

	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "normalizing twice should not change %q", in)
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty("?!..."))
	assert.False(t, IsEmpty("hi"))
	assert.False(t, IsEmpty("42"))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"check", "gaming", "laptop"}, Tokens("check gaming laptop"))
	assert.Empty(t, Tokens(""))
}
