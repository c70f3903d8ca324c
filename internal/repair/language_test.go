package repair

import (
	"errors"
	"testing"

	"github.com/phrazzld/coach-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		locale  string
		texts   []string
		wantErr bool
	}{
		{name: "english locale has no expectation", locale: "en", texts: []string{"Sleep 8 hours"}},
		{name: "latin locale has no expectation", locale: "de-DE", texts: []string{"Sleep 8 hours"}},
		{name: "russian text for ru", locale: "ru", texts: []string{"Спите 8 часов"}},
		{name: "english text for ru", locale: "ru_RU", texts: []string{"Sleep 8 hours"}, wantErr: true},
		{name: "mixed text passes", locale: "ru", texts: []string{"Squat", "Присед"}},
		{name: "no letters at all", locale: "ru", texts: []string{"8 x 5", "60.0"}},
		{name: "empty texts", locale: "ko", texts: nil},
		{name: "katakana for ja", locale: "ja", texts: []string{"スクワット"}},
		{name: "kanji counts for ja", locale: "ja-JP", texts: []string{"睡眠"}},
		{name: "katakana only for zh", locale: "zh", texts: []string{"スクワット"}, wantErr: true},
		{name: "hangul for ko", locale: "ko", texts: []string{"수면"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := CheckLanguage(tc.locale, tc.texts)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, generation.ErrLanguageMismatch)
		})
	}
}

func TestCheckLanguage_Issue(t *testing.T) {
	t.Parallel()

	long := "This advice is written entirely in English and runs well past the sample limit."
	err := CheckLanguage("ru_RU", []string{"", long})

	var issue *LanguageIssue
	require.True(t, errors.As(err, &issue))
	assert.Equal(t, "ru-ru", issue.Locale)
	assert.Equal(t, "Cyrillic", issue.Script)
	assert.Len(t, []rune(issue.Sample), sampleLength)
}

func TestExpectedScript(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Cyrillic", ExpectedScript("uk-UA"))
	assert.Equal(t, "Hangul", ExpectedScript("ko"))
	assert.Equal(t, "", ExpectedScript("fr"))
	assert.Equal(t, "", ExpectedScript(""))
}
