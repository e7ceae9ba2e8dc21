package intent

import (
	"math"
	"strings"

	"cineforge/promptsearch/internal/domain"
	"cineforge/promptsearch/internal/lexicon"
)

const (
	voteScale       = 50
	minFusedVotes   = 100
	maxFusedVotes   = 1200
	blendLanguageHI = "hi"
	blendLanguageEN = "en"
)

// Fuse merges a completion suggestion into a parsed intent. A nil suggestion
// returns the intent unchanged. Each field is merged on its own, so an
// unusable field never affects the others. The input is not modified.
func Fuse(in domain.Intent, ai *domain.AISuggestion) domain.Intent {
	if ai == nil {
		return in
	}
	out := in.Clone()
	if out.AnchorYear <= 0 {
		out.AnchorYear = domain.DefaultAnchorYear
	}

	switch strings.ToLower(strings.TrimSpace(ai.MediaType)) {
	case "movie", "both", "multi":
		out.MediaType = domain.MediaMovie
	case "tv":
		out.MediaType = domain.MediaTV
	}

	out.LikedTitles = likedTitles(ai.LikedTitles)

	merged := append([]string{}, out.Genres...)
	merged = append(merged, lexicon.NormalizeGenres(ai.Genres)...)
	for _, vibe := range ai.Vibes {
		merged = append(merged, lexicon.VibeGenres(vibe)...)
	}
	for _, mix := range ai.Mixes {
		for _, token := range mix.And {
			merged = append(merged, lexicon.SynonymGenres(token)...)
		}
	}
	out.Genres = capStrings(lexicon.NormalizeGenres(merged), domain.MaxGenres)

	langs := append([]string{}, out.IncludeLanguages...)
	for _, pref := range ai.LanguagePrefs {
		if code, ok := lexicon.NormalizeLanguage(pref); ok {
			langs = appendUnique(langs, code)
		}
	}
	langs = appendUnique(langs, blendLanguageHI)
	langs = appendUnique(langs, blendLanguageEN)
	out.IncludeLanguages = capStrings(langs, domain.MaxFusedLanguages)

	if ai.Year != nil {
		year := clamp(*ai.Year, domain.MinYear, out.AnchorYear)
		out.YearRange = domain.YearRange{From: year - 1, To: year + 1}
	}

	if v := ai.MinVoteAverage; v != nil && !math.IsNaN(*v) && *v >= 0 && *v <= 10 {
		votes := int(math.Floor(*v * voteScale))
		out.Quality.MinVotes = clamp(votes, minFusedVotes, maxFusedVotes)
	}

	out.QueryHint = strings.TrimSpace(ai.Query)
	return out
}

func likedTitles(raw []string) []string {
	out := make([]string, 0, domain.MaxLikedTitles)
	for _, title := range raw {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		out = appendUnique(out, title)
		if len(out) == domain.MaxLikedTitles {
			break
		}
	}
	return out
}
