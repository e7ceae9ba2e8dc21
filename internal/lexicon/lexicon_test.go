package lexicon

import (
	"reflect"
	"testing"

	"cineforge/promptsearch/internal/domain"
)

func TestNormalizeGenres(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{name: "direct", tokens: []string{"Thriller", " drama "}, want: []string{"thriller", "drama"}},
		{name: "one to many synonym", tokens: []string{"rom-com"}, want: []string{"romance", "comedy"}},
		{name: "sci-fi pattern", tokens: []string{"sci fi"}, want: []string{"scifi"}},
		{name: "science fiction spacing", tokens: []string{"hard science  fiction"}, want: []string{"scifi"}},
		{name: "unknown dropped", tokens: []string{"vibes", "", "action"}, want: []string{"action"}},
		{name: "dedupe keeps first order", tokens: []string{"heist", "crime", "action"}, want: []string{"crime", "action"}},
		{name: "empty", tokens: nil, want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeGenres(tc.tokens)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("NormalizeGenres(%v) = %v, want %v", tc.tokens, got, tc.want)
			}
		})
	}
}

func TestGenreTokensInUsesWordBoundaries(t *testing.T) {
	got := GenreTokensIn("a witty heist with some sci-fi, no warfare")
	want := []string{"sci-fi", "heist"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("GenreTokensIn = %v, want %v", got, want)
	}
	if tokens := GenreTokensIn("serial   killer thriller"); !reflect.DeepEqual(tokens, []string{"thriller", "serial killer"}) {
		t.Fatalf("expected spaced synonym match, got %v", tokens)
	}
}

func TestVibeGenres(t *testing.T) {
	if got := VibeGenres("Cozy"); !reflect.DeepEqual(got, []string{"comedy", "romance", "family"}) {
		t.Fatalf("unexpected cozy genres: %v", got)
	}
	if got := VibeGenres("melancholy"); got != nil {
		t.Fatalf("expected nil for unknown vibe, got %v", got)
	}
}

func TestGenreIDsPerMediaType(t *testing.T) {
	if id, ok := GenreID("scifi", domain.MediaMovie); !ok || id != 878 {
		t.Fatalf("movie scifi id = %d/%v", id, ok)
	}
	if id, ok := GenreID("scifi", domain.MediaTV); !ok || id != 10765 {
		t.Fatalf("tv scifi id = %d/%v", id, ok)
	}
	if _, ok := GenreID("thriller", domain.MediaTV); ok {
		t.Fatalf("tv has no thriller genre")
	}
	got := GenreIDs([]string{"action", "adventure", "thriller", "crime"}, domain.MediaTV)
	if !reflect.DeepEqual(got, []int{10759, 80}) {
		t.Fatalf("tv genre ids = %v", got)
	}
}

func TestGenreKeysForID(t *testing.T) {
	if got := GenreKeysForID(53); !reflect.DeepEqual(got, []string{"thriller"}) {
		t.Fatalf("GenreKeysForID(53) = %v", got)
	}
	if got := GenreKeysForID(10765); !reflect.DeepEqual(got, []string{"fantasy", "scifi"}) {
		t.Fatalf("GenreKeysForID(10765) = %v", got)
	}
	if got := GenreKeysForID(1); got != nil {
		t.Fatalf("unknown id should map to nil, got %v", got)
	}
}

func TestLanguageAndRegionLookups(t *testing.T) {
	if code, ok := LanguageCodeFor(" Bollywood "); !ok || code != "hi" {
		t.Fatalf("bollywood -> %q/%v", code, ok)
	}
	if _, ok := LanguageCodeFor("klingon"); ok {
		t.Fatalf("klingon should not resolve")
	}
	if code, ok := RegionCodeFor("UK"); !ok || code != "GB" {
		t.Fatalf("uk -> %q/%v", code, ok)
	}
	if got := RegionsIn("music from india and the us"); !reflect.DeepEqual(got, []string{"IN", "US"}) {
		t.Fatalf("RegionsIn = %v", got)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"Hindi": "hi",
		"hi":    "hi",
		"hi-IN": "hi",
		"kor":   "ko",
		"en-US": "en",
	}
	for raw, want := range tests {
		got, ok := NormalizeLanguage(raw)
		if !ok || got != want {
			t.Fatalf("NormalizeLanguage(%q) = %q/%v, want %q", raw, got, ok, want)
		}
	}
	for _, raw := range []string{"", "   ", "not a language!"} {
		if got, ok := NormalizeLanguage(raw); ok {
			t.Fatalf("NormalizeLanguage(%q) = %q, want failure", raw, got)
		}
	}
}

func TestScriptLanguagesAndLocale(t *testing.T) {
	if got := ScriptLanguages("दृश्यम जैसी फिल्म"); !reflect.DeepEqual(got, []string{"hi"}) {
		t.Fatalf("devanagari -> %v", got)
	}
	if got := ScriptLanguages("اردو ڈرامہ"); !reflect.DeepEqual(got, []string{"ur"}) {
		t.Fatalf("arabic -> %v", got)
	}
	if got := LocaleFor("दृश्यम", "", nil); got != "hi-IN" {
		t.Fatalf("locale for devanagari = %q", got)
	}
	if got := LocaleFor("thriller", "ko", nil); got != "ko-US" {
		t.Fatalf("locale with hint = %q", got)
	}
	if got := LocaleFor("thriller", "hindi", []string{"IN"}); got != "hi-IN" {
		t.Fatalf("locale with hint and region = %q", got)
	}
	if got := LocaleFor("plain english", "", nil); got != "en-US" {
		t.Fatalf("default locale = %q", got)
	}
}

func TestMatchMood(t *testing.T) {
	cases := []struct {
		mood Mood
		text string
		want bool
	}{
		{MoodFeelGood, "something feel-good for a rainy day", true},
		{MoodFamilyNight, "family movie night", true},
		{MoodInvestigative, "a detective story", true},
		{MoodTwisty, "mind blowing ending", true},
		{MoodNotTooScary, "horror but not too scary", true},
		{MoodHorror, "a cozy comedy", false},
	}
	for _, tc := range cases {
		if got := MatchMood(tc.mood, tc.text); got != tc.want {
			t.Fatalf("MatchMood(%d, %q) = %v, want %v", tc.mood, tc.text, got, tc.want)
		}
	}
}

func TestSuperheroishNeedsWholeDC(t *testing.T) {
	if !Superheroish("The Batman returns") {
		t.Fatalf("expected batman to match")
	}
	if Superheroish("a detective in handcuffs") {
		t.Fatalf("dc inside a word must not match")
	}
}
