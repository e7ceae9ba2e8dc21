package lexicon

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// Hint maps a word found in prompts to a code.
type Hint struct {
	Word string
	Code string
}

var languageHints = []Hint{
	{"hindi", "hi"}, {"bollywood", "hi"}, {"urdu", "ur"}, {"malayalam", "ml"},
	{"tamil", "ta"}, {"telugu", "te"}, {"kannada", "kn"}, {"marathi", "mr"},
	{"bengali", "bn"}, {"punjabi", "pa"}, {"gujarati", "gu"}, {"english", "en"},
	{"hollywood", "en"}, {"korean", "ko"}, {"japanese", "ja"}, {"chinese", "zh"},
	{"spanish", "es"}, {"french", "fr"}, {"german", "de"},
}

var regionHints = []Hint{
	{"india", "IN"}, {"pakistan", "PK"}, {"usa", "US"}, {"us", "US"}, {"uk", "GB"},
}

// SouthIndianBundle is what "south indian" expands to.
var southIndianBundle = []string{"ta", "te", "ml", "kn"}

var (
	southIndianPattern = regexp.MustCompile(`(?i)south\s*indian`)
	regionPatterns     = buildRegionPatterns()
)

func buildRegionPatterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(regionHints))
	for i, hint := range regionHints {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(hint.Word) + `\b`)
	}
	return out
}

// LanguageHints returns the language word table in scan order.
func LanguageHints() []Hint {
	return append([]Hint(nil), languageHints...)
}

// SouthIndianBundle returns the language codes of the south indian bundle.
func SouthIndianBundle() []string {
	return append([]string(nil), southIndianBundle...)
}

// MentionsSouthIndian reports whether text asks for south indian titles.
func MentionsSouthIndian(text string) bool {
	return southIndianPattern.MatchString(text)
}

func LanguageCodeFor(word string) (string, bool) {
	word = strings.ToLower(strings.TrimSpace(word))
	for _, hint := range languageHints {
		if hint.Word == word {
			return hint.Code, true
		}
	}
	return "", false
}

func RegionCodeFor(word string) (string, bool) {
	word = strings.ToLower(strings.TrimSpace(word))
	for _, hint := range regionHints {
		if hint.Word == word {
			return hint.Code, true
		}
	}
	return "", false
}

// RegionsIn returns the unique region codes named in text, matched on word
// boundaries so "us" does not fire inside "music".
func RegionsIn(text string) []string {
	var out []string
	for i, pattern := range regionPatterns {
		if pattern.MatchString(text) {
			out = appendUnique(out, regionHints[i].Code)
		}
	}
	return out
}

// NormalizeLanguage resolves a language name, an ISO 639 code or a BCP 47
// tag to a lowercase ISO 639-1 code where one exists.
func NormalizeLanguage(raw string) (string, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", false
	}
	if code, ok := LanguageCodeFor(value); ok {
		return code, true
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "", false
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", false
	}
	code := base.String()
	if code == "" || code == "und" {
		return "", false
	}
	return code, true
}

// ScriptLanguages returns the languages implied by the scripts used in text:
// Devanagari means Hindi and Arabic script means Urdu.
func ScriptLanguages(text string) []string {
	var devanagari, arabic bool
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Devanagari, r):
			devanagari = true
		case unicode.Is(unicode.Arabic, r):
			arabic = true
		}
	}
	var out []string
	if devanagari {
		out = append(out, "hi")
	}
	if arabic {
		out = append(out, "ur")
	}
	return out
}

// LocaleFor picks the catalog response locale. An explicit language hint is
// paired with the first region (US when none); otherwise the script decides.
func LocaleFor(text, languageHint string, regions []string) string {
	if code, ok := NormalizeLanguage(languageHint); ok {
		region := "US"
		if len(regions) > 0 && regions[0] != "" {
			region = regions[0]
		}
		return code + "-" + region
	}
	for _, lang := range ScriptLanguages(text) {
		switch lang {
		case "hi":
			return "hi-IN"
		case "ur":
			return "ur-PK"
		}
	}
	return "en-US"
}
