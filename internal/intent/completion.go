package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cineforge/promptsearch/internal/domain"
	"cineforge/promptsearch/internal/lexicon"
)

var ErrUnparsableCompletion = errors.New("completion is not a json object")

var (
	jsonFence  = regexp.MustCompile("(?is)```json(.*?)```")
	plainFence = regexp.MustCompile("(?s)```(.*?)```")
)

// SuggestMode tells the completion service how to read the prompt.
type SuggestMode string

const (
	ModeDescribe SuggestMode = "describe"
	ModeTitle    SuggestMode = "title"
)

// SuggestPrompt builds the structured-output instruction for a prompt.
func SuggestPrompt(text string, mode SuggestMode) string {
	if mode != ModeTitle {
		mode = ModeDescribe
	}
	var b strings.Builder
	b.WriteString("You are helping build a movie/TV recommender. The user query: ")
	b.WriteString(strconv.Quote(strings.TrimSpace(text)))
	b.WriteString(".\nMode is \"")
	b.WriteString(string(mode))
	b.WriteString("\" where \"describe\" means a vibe/mood and \"title\" means a specific title.\n")
	b.WriteString("Return STRICT JSON only, no prose. Shape:\n\n")
	b.WriteString(`{
  "mediaType": "movie" | "tv" | "both",
  "query": "short search string for TMDB",
  "genres": ["optional list of genre names or be empty"],
  "liked_titles": ["up to 5 titles the user referenced or would like"],
  "vibes": ["suspense" | "edge-of-seat" | "twist" | "clever" | "emotional" | "realistic" | "dark" | "heist" | "witty" | "cozy" | "feelgood" | "true-story"],
  "mixes": [{"and": ["genre or vibe words that must appear together"]}],
  "language_prefs": ["ISO 639-1 codes"],
  "region_prefs": ["ISO 3166-1 codes"],
  "year": null,
  "min_vote_average": null
}
`)
	return b.String()
}

// DefaultSuggestion is used whenever a completion is missing or unusable.
func DefaultSuggestion(text string) domain.AISuggestion {
	return domain.AISuggestion{
		MediaType: "both",
		Query:     strings.TrimSpace(text),
		Genres:    []string{},
	}
}

// ParseCompletion extracts a suggestion from completion text. The text may
// be bare JSON or JSON inside a ```json or ``` fence. On failure it returns
// DefaultSuggestion(prompt) together with an error wrapping
// ErrUnparsableCompletion, so callers can log and continue.
func ParseCompletion(completion, prompt string) (domain.AISuggestion, error) {
	body := stripFence(completion)
	if body == "" {
		return DefaultSuggestion(prompt), fmt.Errorf("%w: empty completion", ErrUnparsableCompletion)
	}
	suggestion, err := DecodeSuggestion([]byte(body))
	if err != nil {
		return DefaultSuggestion(prompt), fmt.Errorf("%w: %v", ErrUnparsableCompletion, err)
	}
	// A missing or unknown media type stays empty so fusion keeps the
	// prompt's own reading.
	switch mediaType := strings.ToLower(strings.TrimSpace(suggestion.MediaType)); mediaType {
	case "movie", "tv", "both", "multi":
		suggestion.MediaType = mediaType
	default:
		suggestion.MediaType = ""
	}
	if strings.TrimSpace(suggestion.Query) == "" {
		suggestion.Query = strings.TrimSpace(prompt)
	}
	if suggestion.Genres == nil {
		suggestion.Genres = []string{}
	}
	return *suggestion, nil
}

func stripFence(text string) string {
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := plainFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// DecodeSuggestion decodes a JSON object field by field. A field with the
// wrong shape is skipped rather than failing the whole object; only input
// that is not a JSON object is an error.
func DecodeSuggestion(raw []byte) (*domain.AISuggestion, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("null suggestion")
	}
	field := func(names ...string) json.RawMessage {
		for _, name := range names {
			if value, ok := fields[name]; ok {
				return value
			}
		}
		return nil
	}

	s := &domain.AISuggestion{
		MediaType:     decodeString(field("mediaType", "media_type")),
		Query:         decodeString(field("query")),
		Genres:        decodeStrings(field("genres")),
		LikedTitles:   decodeStrings(field("liked_titles", "likedTitles")),
		Vibes:         decodeStrings(field("vibes")),
		Mixes:         decodeMixes(field("mixes")),
		LanguagePrefs: decodeStrings(field("language_prefs", "languagePrefs")),
		RegionPrefs:   decodeStrings(field("region_prefs", "regionPrefs")),
		Exclude:       decodeStrings(field("exclude")),
	}
	if people := decodePeople(field("include_people", "includePeople")); people != nil {
		s.IncludePeople = people
	}
	if year, ok := decodeNumber(field("year")); ok && year == float64(int(year)) {
		y := int(year)
		s.Year = &y
	}
	if vote, ok := decodeNumber(field("min_vote_average", "minVoteAverage")); ok {
		s.MinVoteAverage = &vote
	}
	return s, nil
}

func decodeString(raw json.RawMessage) string {
	var value string
	if len(raw) == 0 || json.Unmarshal(raw, &value) != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

// decodeStrings accepts a list of strings or a single string.
func decodeStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		if single := decodeString(raw); single != "" {
			return []string{single}
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if value := decodeString(item); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func decodeMixes(raw json.RawMessage) []domain.Mix {
	if len(raw) == 0 {
		return nil
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) != nil {
		return nil
	}
	out := make([]domain.Mix, 0, len(list))
	for _, item := range list {
		var obj map[string]json.RawMessage
		if json.Unmarshal(item, &obj) == nil {
			if tokens := decodeStrings(obj["and"]); len(tokens) > 0 {
				out = append(out, domain.Mix{And: tokens})
			}
			continue
		}
		if tokens := decodeStrings(item); len(tokens) > 0 {
			out = append(out, domain.Mix{And: tokens})
		}
	}
	return out
}

func decodePeople(raw json.RawMessage) *domain.People {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		if names := decodeStrings(raw); len(names) > 0 {
			return &domain.People{Cast: names}
		}
		return nil
	}
	people := &domain.People{Cast: decodeStrings(obj["cast"]), Crew: decodeStrings(obj["crew"])}
	if len(people.Cast) == 0 && len(people.Crew) == 0 {
		return nil
	}
	return people
}

// decodeNumber accepts a JSON number or a numeric string.
func decodeNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return 0, false
	}
	var number float64
	if json.Unmarshal(raw, &number) == nil {
		return number, true
	}
	text := decodeString(raw)
	if text == "" {
		return 0, false
	}
	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return number, true
}

// EnsureLanguagePrefs adds the language preferences the raw prompt hints at:
// Hindi for "hindi", "bollywood" or Devanagari, Urdu for "urdu" or Arabic
// script, English for "english" or "hollywood". With no preference at all
// it falls back to English.
func EnsureLanguagePrefs(prompt string, s domain.AISuggestion) domain.AISuggestion {
	low := strings.ToLower(prompt)
	prefs := make([]string, 0, len(s.LanguagePrefs)+2)
	for _, pref := range s.LanguagePrefs {
		if code, ok := lexicon.NormalizeLanguage(pref); ok {
			prefs = appendUnique(prefs, code)
		}
	}
	scripts := lexicon.ScriptLanguages(prompt)
	if strings.Contains(low, "hindi") || strings.Contains(low, "bollywood") || containsString(scripts, "hi") {
		prefs = appendUnique(prefs, "hi")
	}
	if strings.Contains(low, "urdu") || containsString(scripts, "ur") {
		prefs = appendUnique(prefs, "ur")
	}
	if strings.Contains(low, "english") || strings.Contains(low, "hollywood") {
		prefs = appendUnique(prefs, "en")
	}
	if len(prefs) == 0 {
		prefs = append(prefs, "en")
	}
	s.LanguagePrefs = prefs
	return s
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
