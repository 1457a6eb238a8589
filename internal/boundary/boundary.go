// Package boundary decides where a chunk may be cut: it ranks boundary patterns
// and rejects positions inside numbers, abbreviations and initials.
package boundary

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Priority ranks boundary patterns; higher wins.
type Priority int

const (
	PrioritySpace     Priority = 0
	PriorityLine      Priority = 1
	PriorityClause    Priority = 2
	PrioritySentence  Priority = 3
	PriorityParagraph Priority = 4
)

// Pattern is a text suffix that marks a candidate cut position.
type Pattern struct {
	Text     string
	Priority Priority
}

// Patterns is the boundary table in descending priority.
var Patterns = []Pattern{
	{"\n\n", PriorityParagraph},
	{"\r\n\r\n", PriorityParagraph},
	{".\n\n", PriorityParagraph},
	{"!\n\n", PriorityParagraph},
	{"?\n\n", PriorityParagraph},

	{".\n", PrioritySentence},
	{"!\n", PrioritySentence},
	{"?\n", PrioritySentence},
	{". ", PrioritySentence},
	{"! ", PrioritySentence},
	{"? ", PrioritySentence},
	{".\"", PrioritySentence},
	{"!\"", PrioritySentence},
	{"?\"", PrioritySentence},
	{".)", PrioritySentence},
	{"!)", PrioritySentence},
	{"?)", PrioritySentence},
	{".]", PrioritySentence},
	{"!]", PrioritySentence},
	{"?]", PrioritySentence},
	{".}", PrioritySentence},
	{"!}", PrioritySentence},
	{"?}", PrioritySentence},

	{",\n", PriorityClause},
	{";\n", PriorityClause},
	{":\n", PriorityClause},
	{", ", PriorityClause},
	{"; ", PriorityClause},
	{": ", PriorityClause},

	{"\r\n", PriorityLine},
	{"\n", PriorityLine},

	{" ", PrioritySpace},
	{"\t", PrioritySpace},
}

// Abbreviations never end a sentence even though they end with a period.
var Abbreviations = []string{
	"т.д.", "т.п.", "т.е.", "т.к.", "т.н.", "т.о.",
	"др.", "проф.", "акад.", "стр.", "рис.", "гл.",
	"табл.", "разд.", "п.", "с.",
	"e.g.", "i.e.", "etc.", "vs.", "Mr.", "Mrs.",
	"Dr.", "Prof.", "Inc.", "Ltd.", "Corp.", "Co.",
}

// IsValidBoundary reports whether pattern, found at byte offset pos of window,
// is a safe place to cut. A period or comma between two digits, a period that
// closes a known abbreviation and a period after a single-letter initial are
// rejected.
func IsValidBoundary(window, pattern string, pos int) bool {
	if pattern == "" || pos < 0 || pos >= len(window) {
		return false
	}
	switch window[pos] {
	case '.', ',':
		if inNumber(window, pos) {
			return false
		}
	}
	if window[pos] != '.' {
		return true
	}
	head := window[:pos+1]
	for _, abbr := range Abbreviations {
		if strings.HasSuffix(head, abbr) && wordStart(head, len(head)-len(abbr)) {
			return false
		}
	}
	return !isInitial(window, pos)
}

// MatchAt returns the highest-priority valid pattern that text[:offset] ends with.
func MatchAt(text string, offset int) (Pattern, bool) {
	if offset <= 0 || offset > len(text) {
		return Pattern{}, false
	}
	head := text[:offset]
	for _, p := range Patterns {
		if !strings.HasSuffix(head, p.Text) {
			continue
		}
		if IsValidBoundary(text, p.Text, offset-len(p.Text)) {
			return p, true
		}
	}
	return Pattern{}, false
}

// SpaceAt reports whether the rune just before or just after offset is whitespace.
func SpaceAt(text string, offset int) bool {
	if offset < 0 || offset > len(text) {
		return false
	}
	if offset > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:offset])
		if unicode.IsSpace(r) {
			return true
		}
	}
	if offset < len(text) {
		r, _ := utf8.DecodeRuneInString(text[offset:])
		return unicode.IsSpace(r)
	}
	return false
}

func inNumber(s string, pos int) bool {
	if pos == 0 || pos+1 >= len(s) {
		return false
	}
	return isDigit(s[pos-1]) && isDigit(s[pos+1])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// wordStart reports whether byte offset i of s starts a word.
func wordStart(s string, i int) bool {
	if i <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r)
}

// isInitial reports whether the period at pos follows a lone uppercase letter, as in "А. С. Пушкин".
func isInitial(s string, pos int) bool {
	if pos == 0 {
		return false
	}
	r, size := utf8.DecodeLastRuneInString(s[:pos])
	if !unicode.IsUpper(r) {
		return false
	}
	return wordStart(s, pos-size)
}
