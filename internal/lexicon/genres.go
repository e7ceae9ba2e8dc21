// Package lexicon holds the constant vocabulary the prompt parser and the
// ranker agree on: canonical genres, synonyms, vibes, languages, regions and
// mood patterns. Every function is pure.
package lexicon

import (
	"regexp"
	"strings"

	"cineforge/promptsearch/internal/domain"
)

// canonicalGenres keeps scan and output order stable.
var canonicalGenres = []string{
	"action", "adventure", "animation", "comedy", "crime", "documentary", "drama",
	"family", "fantasy", "history", "horror", "music", "mystery", "romance",
	"scifi", "thriller", "war", "western",
}

var movieGenreIDs = map[string]int{
	"action": 28, "adventure": 12, "animation": 16, "comedy": 35, "crime": 80,
	"documentary": 99, "drama": 18, "family": 10751, "fantasy": 14, "history": 36,
	"horror": 27, "music": 10402, "mystery": 9648, "romance": 10749, "scifi": 878,
	"thriller": 53, "war": 10752, "western": 37,
}

// TV discovery uses merged genres for a few keys and has no equivalent for
// history, horror, music, romance or thriller.
var tvGenreIDs = map[string]int{
	"action": 10759, "adventure": 10759, "animation": 16, "comedy": 35, "crime": 80,
	"documentary": 99, "drama": 18, "family": 10751, "fantasy": 10765, "mystery": 9648,
	"scifi": 10765, "war": 10768, "western": 37,
}

type synonym struct {
	word    string
	targets []string
}

var genreSynonyms = []synonym{
	{"sci-fi", []string{"scifi"}},
	{"science fiction", []string{"scifi"}},
	{"rom-com", []string{"romance", "comedy"}},
	{"romcom", []string{"romance", "comedy"}},
	{"suspense", []string{"thriller"}},
	{"biopic", []string{"drama", "history"}},
	{"heist", []string{"crime", "action"}},
	{"noir", []string{"crime", "mystery"}},
	{"serial killer", []string{"crime", "thriller"}},
	{"courtroom", []string{"drama", "crime"}},
	{"psychological", []string{"thriller", "drama"}},
	{"mystery", []string{"mystery"}},
	{"family", []string{"family"}},
	{"teen", []string{"drama", "comedy"}},
}

var vibeGenres = map[string][]string{
	"suspense":     {"thriller", "mystery", "crime"},
	"edge-of-seat": {"thriller", "mystery"},
	"twist":        {"thriller", "mystery"},
	"clever":       {"mystery", "crime", "thriller"},
	"emotional":    {"drama", "family", "romance"},
	"realistic":    {"drama", "crime"},
	"dark":         {"thriller", "crime"},
	"heist":        {"crime", "action"},
	"witty":        {"comedy"},
	"cozy":         {"comedy", "romance", "family"},
	"feelgood":     {"comedy", "romance", "family"},
	"true-story":   {"drama", "history"},
}

var (
	sciFiPattern   = regexp.MustCompile(`^sci[^a-z]?fi$|science\s*fiction`)
	genreScanners  = buildGenreScanners()
	genreKeysForID = buildReverseGenreIndex()
)

type genreScanner struct {
	token   string
	pattern *regexp.Regexp
}

func buildGenreScanners() []genreScanner {
	words := make([]string, 0, len(canonicalGenres)+len(genreSynonyms))
	words = append(words, canonicalGenres...)
	for _, s := range genreSynonyms {
		words = append(words, s.word)
	}
	out := make([]genreScanner, 0, len(words))
	for _, word := range words {
		expr := `(?i)\b` + strings.Join(strings.Fields(regexp.QuoteMeta(word)), `\s*`) + `\b`
		out = append(out, genreScanner{token: word, pattern: regexp.MustCompile(expr)})
	}
	return out
}

func buildReverseGenreIndex() map[int][]string {
	index := make(map[int][]string)
	add := func(ids map[string]int) {
		for _, key := range canonicalGenres {
			id, ok := ids[key]
			if !ok || containsString(index[id], key) {
				continue
			}
			index[id] = append(index[id], key)
		}
	}
	add(movieGenreIDs)
	add(tvGenreIDs)
	return index
}

// CanonicalGenres returns the canonical genre keys in table order.
func CanonicalGenres() []string {
	return append([]string(nil), canonicalGenres...)
}

// IsGenre reports whether key is a canonical genre key.
func IsGenre(key string) bool {
	_, ok := movieGenreIDs[key]
	return ok
}

// NormalizeGenres resolves raw tokens to canonical keys in first-seen order.
// Unknown tokens are dropped. The result is never nil.
func NormalizeGenres(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, raw := range tokens {
		token := strings.ToLower(strings.TrimSpace(raw))
		if token == "" {
			continue
		}
		if IsGenre(token) {
			out = appendUnique(out, token)
			continue
		}
		if targets, ok := synonymTargets(token); ok {
			for _, target := range targets {
				out = appendUnique(out, target)
			}
			continue
		}
		if sciFiPattern.MatchString(token) {
			out = appendUnique(out, "scifi")
		}
	}
	return out
}

// SynonymGenres resolves a single token through the synonym table or as a
// canonical key. It does not apply the sci-fi pattern.
func SynonymGenres(token string) []string {
	token = strings.ToLower(strings.TrimSpace(token))
	if targets, ok := synonymTargets(token); ok {
		return append([]string(nil), targets...)
	}
	if IsGenre(token) {
		return []string{token}
	}
	return nil
}

func synonymTargets(token string) ([]string, bool) {
	for _, s := range genreSynonyms {
		if s.word == token {
			return s.targets, true
		}
	}
	return nil, false
}

// GenreTokensIn returns the canonical and synonym words that occur in text
// on word boundaries, canonical words first.
func GenreTokensIn(text string) []string {
	var out []string
	for _, scanner := range genreScanners {
		if scanner.pattern.MatchString(text) {
			out = append(out, scanner.token)
		}
	}
	return out
}

// VibeGenres returns the soft genre hints of a vibe word, or nil.
func VibeGenres(vibe string) []string {
	genres := vibeGenres[strings.ToLower(strings.TrimSpace(vibe))]
	if genres == nil {
		return nil
	}
	return append([]string(nil), genres...)
}

// GenreID returns the catalog genre id of key for the media type.
func GenreID(key string, mediaType domain.MediaType) (int, bool) {
	if mediaType == domain.MediaTV {
		id, ok := tvGenreIDs[key]
		return id, ok
	}
	id, ok := movieGenreIDs[key]
	return id, ok
}

// GenreIDs maps keys to unique ids for the media type, skipping keys the
// media type has no genre for.
func GenreIDs(keys []string, mediaType domain.MediaType) []int {
	out := make([]int, 0, len(keys))
	seen := make(map[int]struct{}, len(keys))
	for _, key := range keys {
		id, ok := GenreID(key, mediaType)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// GenreKeysForID maps a catalog genre id back to canonical keys. Merged TV
// genres yield two keys.
func GenreKeysForID(id int) []string {
	keys := genreKeysForID[id]
	if keys == nil {
		return nil
	}
	return append([]string(nil), keys...)
}

func appendUnique(list []string, value string) []string {
	if containsString(list, value) {
		return list
	}
	return append(list, value)
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
