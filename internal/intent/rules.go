package intent

import (
	"regexp"
	"strconv"
	"strings"

	"cineforge/promptsearch/internal/domain"
	"cineforge/promptsearch/internal/lexicon"
)

var (
	likePattern     = regexp.MustCompile(`(?i)(?:movies?|films?|shows?|series)?\s*\b(?:like|similar\s+to)\s+([a-z0-9 :'"._-]+)`)
	hinglishPattern = regexp.MustCompile(`(?i)^(.*?)\s+(?:jaise|jaisa|jaisi|type\s*ka|type\s*ki|ki\s*tarah)\b`)
	wholeTitle      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 :'._-]{2,}$`)
	yearPattern     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	tvPattern       = regexp.MustCompile(`\b(tv|series|seasons?|episodes?)\b`)
	ninetiesPattern = regexp.MustCompile(`(?i)\b90s|1990s|nineties\b`)
	classicPattern  = regexp.MustCompile(`(?i)old\s*school|classic`)
	latestPattern   = regexp.MustCompile(`(?i)latest|blockbuster|trending`)
	shortPattern    = regexp.MustCompile(`(?i)\bshort\b`)
	longPattern     = regexp.MustCompile(`(?i)\blong\b`)
	topRated        = regexp.MustCompile(`(?i)top\s*rated|oscar|masterpiece|cinematic`)
	segmentSplit    = regexp.MustCompile(`[,+]`)
)

const maxWholeTitleWords = 6

type alias struct {
	key        string
	candidates []domain.TitleCandidate
}

// titleAliases expands a few well-known ambiguous titles into their
// installments. It is seed data, not a disambiguation algorithm.
var titleAliases = []alias{
	{"drishyam", []domain.TitleCandidate{{Title: "Drishyam", Year: 2013}, {Title: "Drishyam", Year: 2015}, {Title: "Drishyam 2", Year: 2021}, {Title: "Drishyam 2", Year: 2022}}},
	{"kahaani", []domain.TitleCandidate{{Title: "Kahaani", Year: 2012}}},
	{"andhadhun", []domain.TitleCandidate{{Title: "Andhadhun", Year: 2018}}},
	{"badla", []domain.TitleCandidate{{Title: "Badla", Year: 2019}}},
	{"se7en", []domain.TitleCandidate{{Title: "Se7en", Year: 1995}, {Title: "Seven", Year: 1995}}},
	{"seven", []domain.TitleCandidate{{Title: "Se7en", Year: 1995}, {Title: "Seven", Year: 1995}}},
	{"gone girl", []domain.TitleCandidate{{Title: "Gone Girl", Year: 2014}}},
}

// detectTitle finds an explicit "like X" or Hinglish "X jaisa" reference.
func detectTitle(raw string) string {
	if m := likePattern.FindStringSubmatch(raw); m != nil {
		if title := cleanTitle(m[1]); title != "" {
			return title
		}
	}
	if m := hinglishPattern.FindStringSubmatch(raw); m != nil {
		title := cleanTitle(m[1])
		if len(title) >= 3 {
			return title
		}
	}
	return ""
}

// wholeInputTitle treats a short plain phrase as a title.
func wholeInputTitle(raw string) string {
	if !wholeTitle.MatchString(raw) {
		return ""
	}
	if len(strings.Fields(raw)) > maxWholeTitleWords {
		return ""
	}
	return cleanTitle(raw)
}

func cleanTitle(value string) string {
	return strings.Trim(strings.TrimSpace(value), ` "'.:-_`)
}

// titleCandidates builds the candidate list for a detected title, followed
// by any alias expansions.
func titleCandidates(title string, year int) []domain.TitleCandidate {
	if title == "" {
		return []domain.TitleCandidate{}
	}
	out := []domain.TitleCandidate{{Title: title, Year: year}}
	low := strings.ToLower(title)
	for _, a := range titleAliases {
		if strings.Contains(low, a.key) {
			out = append(out, a.candidates...)
		}
	}
	return out
}

// detectLanguages returns the languages the prompt names and whether any
// language signal fired.
func detectLanguages(raw string) ([]string, bool) {
	low := strings.ToLower(raw)
	var langs []string
	for _, hint := range lexicon.LanguageHints() {
		if strings.Contains(low, hint.Word) {
			langs = appendUnique(langs, hint.Code)
		}
	}
	if lexicon.MentionsSouthIndian(low) {
		for _, code := range lexicon.SouthIndianBundle() {
			langs = appendUnique(langs, code)
		}
	}
	for _, code := range lexicon.ScriptLanguages(raw) {
		langs = appendUnique(langs, code)
	}
	return langs, len(langs) > 0
}

// withBlendDefault appends "en" and caps the list.
func withBlendDefault(langs []string, limit int) []string {
	out := appendUnique(append([]string{}, langs...), "en")
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func detectMediaType(low string, hint domain.MediaType) domain.MediaType {
	if tvPattern.MatchString(low) {
		return domain.MediaTV
	}
	if hint == domain.MediaTV {
		return domain.MediaTV
	}
	return domain.MediaMovie
}

func detectGenres(low string) []string {
	return lexicon.NormalizeGenres(lexicon.GenreTokensIn(low))
}

func detectKeywords(raw string) []string {
	out := []string{}
	for _, kp := range lexicon.KeywordPatterns() {
		if kp.Pattern.MatchString(raw) {
			out = appendUnique(out, kp.Token)
		}
	}
	segments := lexicon.SegmentPatterns()
	for _, segment := range segmentSplit.Split(raw, -1) {
		segment = strings.ToLower(strings.TrimSpace(segment))
		if segment == "" {
			continue
		}
		for _, sp := range segments {
			if sp.Pattern.MatchString(segment) {
				out = appendUnique(out, sp.Token)
			}
		}
	}
	return out
}

func detectFlags(raw string) domain.MoodFlags {
	return domain.MoodFlags{
		FeelGood:       lexicon.MatchMood(lexicon.MoodFeelGood, raw),
		FamilyNight:    lexicon.MatchMood(lexicon.MoodFamilyNight, raw),
		TimePass:       lexicon.MatchMood(lexicon.MoodTimePass, raw),
		SadEnding:      lexicon.MatchMood(lexicon.MoodSadEnding, raw),
		Romantic:       lexicon.MatchMood(lexicon.MoodRomantic, raw),
		Investigative:  lexicon.MatchMood(lexicon.MoodInvestigative, raw),
		RealBased:      lexicon.MatchMood(lexicon.MoodRealBased, raw),
		Superhero:      lexicon.MatchMood(lexicon.MoodSuperhero, raw),
		Dark:           lexicon.MatchMood(lexicon.MoodDark, raw),
		Psychological:  lexicon.MatchMood(lexicon.MoodPsychological, raw),
		Twisty:         lexicon.MatchMood(lexicon.MoodTwisty, raw),
		Horror:         lexicon.MatchMood(lexicon.MoodHorror, raw),
		NotTooScary:    lexicon.MatchMood(lexicon.MoodNotTooScary, raw),
		ActionThriller: lexicon.MatchMood(lexicon.MoodActionThriller, raw),
	}
}

func anyFlag(f domain.MoodFlags) bool {
	return f != domain.MoodFlags{}
}

// flagGenres maps fired flags to their vibe genres.
func flagGenres(f domain.MoodFlags) []string {
	var out []string
	if f.FeelGood {
		out = append(out, lexicon.VibeGenres("feelgood")...)
	}
	if f.Twisty {
		out = append(out, lexicon.VibeGenres("twist")...)
	}
	if f.Investigative {
		out = append(out, lexicon.VibeGenres("suspense")...)
	}
	if f.Psychological {
		out = append(out, lexicon.VibeGenres("clever")...)
	}
	if f.Dark {
		out = append(out, lexicon.VibeGenres("dark")...)
	}
	return out
}

// yearIn returns the first plausible 4-digit year in text, or 0.
func yearIn(raw string) int {
	match := yearPattern.FindString(raw)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return year
}

// detectYearRange reports the window and whether the text itself asked for
// one; a caller-supplied year hint alone does not count as a text signal.
func detectYearRange(raw string, yearHint, anchor int) (domain.YearRange, bool) {
	switch {
	case ninetiesPattern.MatchString(raw):
		return domain.YearRange{From: 1990, To: 1999}, true
	case classicPattern.MatchString(raw):
		return domain.YearRange{From: 1960, To: 2005}, true
	case latestPattern.MatchString(raw) || strings.Contains(raw, strconv.Itoa(anchor)):
		return domain.YearRange{From: anchor - 2, To: anchor}, true
	}
	year := yearIn(raw)
	fromText := year != 0
	if year == 0 {
		year = yearHint
	}
	if year == 0 {
		return domain.YearRange{}, false
	}
	return domain.YearRange{
		From: clamp(year-2, domain.MinYear, anchor),
		To:   clamp(year+2, domain.MinYear, anchor),
	}, fromText
}

func detectRuntime(raw string) domain.Runtime {
	var rt domain.Runtime
	if shortPattern.MatchString(raw) {
		rt.LTE = 105
	}
	if longPattern.MatchString(raw) {
		rt.GTE = 150
	}
	return rt
}

func detectQuality(raw string) domain.Quality {
	if topRated.MatchString(raw) {
		return domain.Quality{MinVotes: domain.TopRatedMinVotes, Sort: domain.SortVoteAverage}
	}
	return domain.Quality{MinVotes: domain.DefaultMinVotes, Sort: domain.SortPopularity}
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func appendUnique(list []string, value string) []string {
	for _, item := range list {
		if item == value {
			return list
		}
	}
	return append(list, value)
}
