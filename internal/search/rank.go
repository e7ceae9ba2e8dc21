package search

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"cineforge/promptsearch/internal/domain"
	"cineforge/promptsearch/internal/lexicon"
)

const (
	weightVoteAverage   = 24.0
	weightVoteCount     = 0.02
	weightGenreOverlap  = 75.0
	weightKeyword       = 18.0
	weightSuspense      = 20.0
	weightMystery       = 16.0
	weightFamily        = 12.0
	weightFeelGood      = 22.0
	penaltyFeelGoodDark = 25.0
	weightTimePass      = 16.0
	weightSadEnding     = 16.0
	weightPsychological = 18.0
	penaltySuperhero    = 65.0
	recencyCeiling      = 40.0
	recencyPerYear      = 4.0
	weightLangLocked    = 42.0
	weightLangBlended   = 10.0
	penaltyLangMismatch = 45.0
	bonusSimilar        = 28.0
	bonusDiscover       = 10.0
)

var (
	feelGoodText  = regexp.MustCompile(`feel[-\s]?good|heartwarming|wholesome|uplifting`)
	darkText      = regexp.MustCompile(`gore|violent|disturbing`)
	funText       = regexp.MustCompile(`fun|entertaining|light-?hearted`)
	tragicText    = regexp.MustCompile(`tragic|tear|heartbreak|sad`)
	psychoText    = regexp.MustCompile(`psychological|mind\s*game`)
	nonAlnumTitle = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// Rank dedupes, scores, orders and trims a pool for an intent. The result
// holds at most domain.MaxResults items and is never nil. Under a language
// lock every item in a requested language precedes every item that is not.
func Rank(pool []domain.CatalogItem, in domain.Intent) []domain.CatalogItem {
	anchor := in.AnchorYear
	if anchor <= 0 {
		anchor = domain.DefaultAnchorYear
	}
	items := dedupeItems(pool)
	terms := scoringTerms(in)
	serious := in.Flags.Serious() || in.HasGenre("thriller") || in.HasGenre("crime") || in.HasGenre("mystery")

	for i := range items {
		items[i].Score = scoreItem(items[i], in, terms, serious, anchor)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})

	if in.ExplicitLangLock && len(in.IncludeLanguages) > 0 {
		items = partitionByLanguage(items, in)
	}
	if len(items) > domain.MaxResults {
		items = items[:domain.MaxResults]
	}
	return items
}

func scoreItem(item domain.CatalogItem, in domain.Intent, terms []string, serious bool, anchor int) float64 {
	score := item.VoteAverage*weightVoteAverage + item.Popularity + float64(item.VoteCount)*weightVoteCount

	genres := itemGenres(item)
	for _, g := range in.Genres {
		if genres[g] {
			score += weightGenreOverlap
		}
	}

	text := strings.ToLower(item.DisplayTitle() + "\n" + item.Overview)
	for _, term := range terms {
		if strings.Contains(text, term) {
			score += weightKeyword
		}
	}

	if genres["thriller"] || strings.Contains(text, "suspense") {
		score += weightSuspense
	}
	if genres["mystery"] {
		score += weightMystery
	}
	if genres["family"] || strings.Contains(text, "family") {
		score += weightFamily
	}

	flags := in.Flags
	if flags.FeelGood {
		if genres["comedy"] || genres["romance"] || feelGoodText.MatchString(text) {
			score += weightFeelGood
		}
		if genres["horror"] || darkText.MatchString(text) {
			score -= penaltyFeelGoodDark
		}
	}
	if flags.TimePass && (genres["comedy"] || funText.MatchString(text)) {
		score += weightTimePass
	}
	if flags.SadEnding && (genres["drama"] || tragicText.MatchString(text)) {
		score += weightSadEnding
	}
	if flags.Psychological && psychoText.MatchString(text) {
		score += weightPsychological
	}
	if serious && lexicon.Superheroish(text) {
		score -= penaltySuperhero
	}

	if year := item.Year(); year > 0 {
		gap := anchor - year
		if gap < 0 {
			gap = -gap
		}
		if bonus := recencyCeiling - recencyPerYear*float64(gap); bonus > 0 {
			score += bonus
		}
	}

	if len(in.IncludeLanguages) > 0 {
		matched := in.MatchesLanguage(strings.ToLower(item.OriginalLanguage), 0)
		switch {
		case matched && in.ExplicitLangLock:
			score += weightLangLocked
		case matched:
			score += weightLangBlended
		case in.ExplicitLangLock:
			score -= penaltyLangMismatch
		}
	}

	switch item.Source {
	case domain.SourceSimilar:
		score += bonusSimilar
	case domain.SourceDiscover:
		score += bonusDiscover
	}
	return score
}

// scoringTerms are the lowercase substrings that earn the keyword bonus:
// the intent keywords plus terms implied by its mood flags.
func scoringTerms(in domain.Intent) []string {
	terms := make([]string, 0, len(in.Keywords)+6)
	seen := make(map[string]bool, cap(terms))
	add := func(values ...string) {
		for _, v := range values {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			terms = append(terms, v)
		}
	}
	add(in.Keywords...)
	if in.Flags.Twisty {
		add("twist")
	}
	if in.Flags.Investigative {
		add("investigation", "detective", "mystery")
	}
	if in.Flags.RealBased {
		add("true story", "biopic")
	}
	return terms
}

func itemGenres(item domain.CatalogItem) map[string]bool {
	out := make(map[string]bool, len(item.GenreIDs)*2)
	for _, id := range item.GenreIDs {
		for _, key := range lexicon.GenreKeysForID(id) {
			out[key] = true
		}
	}
	return out
}

// dedupeItems keeps the first occurrence of each item and returns copies,
// so scoring never writes into the caller's pool.
func dedupeItems(pool []domain.CatalogItem) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(pool))
	seen := make(map[string]struct{}, len(pool))
	for _, item := range pool {
		key := itemDedupeKey(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func itemDedupeKey(item domain.CatalogItem) string {
	media := item.EffectiveMediaType()
	if item.ID > 0 {
		return fmt.Sprintf("%s:%d", media, item.ID)
	}
	return string(media) + ":" + normalizeTitle(item.DisplayTitle()) + ":" + strconv.Itoa(item.Year())
}

// normalizeTitle folds case, accents and punctuation so that "Amélie" and
// "amelie!" compare equal.
func normalizeTitle(value string) string {
	folding := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folding, strings.ToLower(value))
	if err != nil {
		folded = strings.ToLower(value)
	}
	return strings.TrimSpace(nonAlnumTitle.ReplaceAllString(folded, " "))
}

func partitionByLanguage(items []domain.CatalogItem, in domain.Intent) []domain.CatalogItem {
	matching := make([]domain.CatalogItem, 0, len(items))
	var rest []domain.CatalogItem
	for _, item := range items {
		if in.MatchesLanguage(strings.ToLower(item.OriginalLanguage), 0) {
			matching = append(matching, item)
		} else {
			rest = append(rest, item)
		}
	}
	return append(matching, rest...)
}
