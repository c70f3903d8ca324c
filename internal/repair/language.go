package repair

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/generation"
)

// sampleLength is the number of runes of offending text kept in a LanguageIssue.
const sampleLength = 40

type script struct {
	name   string
	tables []*unicode.RangeTable
}

var (
	cyrillic = script{name: "Cyrillic", tables: []*unicode.RangeTable{unicode.Cyrillic}}
	han      = script{name: "Han", tables: []*unicode.RangeTable{unicode.Han}}
	kana     = script{name: "Hiragana/Katakana", tables: []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana, unicode.Han}}
	hangul   = script{name: "Hangul", tables: []*unicode.RangeTable{unicode.Hangul}}
)

// localeScripts maps a primary language subtag to the writing system its
// user-facing text must use. Languages written in Latin script are absent:
// their text cannot be told apart from English by script alone.
var localeScripts = map[string]script{
	"ru": cyrillic,
	"uk": cyrillic,
	"be": cyrillic,
	"bg": cyrillic,
	"kk": cyrillic,
	"mk": cyrillic,
	"zh": han,
	"ja": kana,
	"ko": hangul,
}

// ExpectedScript returns the script name required for locale, or "" when the
// locale has no script expectation.
func ExpectedScript(locale string) string {
	return localeScripts[domain.Language(locale)].name
}

// LanguageIssue reports user-facing text written in the wrong script.
type LanguageIssue struct {
	Locale string
	Script string
	Sample string
}

func (e *LanguageIssue) Error() string {
	return fmt.Sprintf("expected %s text for locale %s, got %q", e.Script, e.Locale, e.Sample)
}

// Unwrap returns generation.ErrLanguageMismatch.
func (e *LanguageIssue) Unwrap() error {
	return generation.ErrLanguageMismatch
}

// CheckLanguage scans texts for at least one character of the script expected
// for locale. It returns nil when the locale has no expectation, when the
// texts contain no letters at all, or when any expected character is found.
func CheckLanguage(locale string, texts []string) error {
	want, ok := localeScripts[domain.Language(locale)]
	if !ok {
		return nil
	}

	hasLetters := false
	for _, text := range texts {
		for _, r := range text {
			if unicode.IsOneOf(want.tables, r) {
				return nil
			}
			if unicode.IsLetter(r) {
				hasLetters = true
			}
		}
	}
	if !hasLetters {
		return nil
	}

	return &LanguageIssue{
		Locale: domain.NormalizeLocale(locale),
		Script: want.name,
		Sample: sample(texts),
	}
}

func sample(texts []string) string {
	for _, t := range texts {
		t = strings.Join(strings.Fields(t), " ")
		if t == "" {
			continue
		}
		r := []rune(t)
		if len(r) > sampleLength {
			return string(r[:sampleLength])
		}
		return t
	}
	return ""
}
