// Package intent turns a free-form prompt into a domain.Intent and merges
// structured suggestions from a text-completion service into it.
package intent

import (
	"strings"

	"cineforge/promptsearch/internal/domain"
	"cineforge/promptsearch/internal/lexicon"
)

// Hints are caller-supplied defaults. Zero values mean "not given".
type Hints struct {
	MediaType    domain.MediaType
	YearHint     int
	LanguageHint string
	AnchorYear   int
}

// Signal names a parsing rule. Rules run in declaration order and a later
// rule may read what an earlier one produced.
type Signal string

const (
	TitleSignal    Signal = "title"
	LanguageSignal Signal = "language"
	MediaSignal    Signal = "media"
	GenreSignal    Signal = "genre"
	MoodSignal     Signal = "mood"
	EraSignal      Signal = "era"
	RuntimeSignal  Signal = "runtime"
	QualitySignal  Signal = "quality"
	StrategySignal Signal = "strategy"
)

type parseState struct {
	raw    string
	low    string
	hints  Hints
	out    domain.Intent
	title  string
	fired  map[Signal]bool
	locked bool
}

type rule struct {
	signal Signal
	apply  func(*parseState)
}

var rules = []rule{
	{TitleSignal, applyTitle},
	{LanguageSignal, applyLanguage},
	{MediaSignal, applyMedia},
	{GenreSignal, applyGenres},
	{MoodSignal, applyMood},
	{EraSignal, applyEra},
	{RuntimeSignal, applyRuntime},
	{QualitySignal, applyQuality},
	{StrategySignal, applyStrategy},
}

// Parse reads raw into an Intent. It is deterministic: equal inputs give
// equal intents.
func Parse(raw string, hints Hints) domain.Intent {
	if hints.AnchorYear <= 0 {
		hints.AnchorYear = domain.DefaultAnchorYear
	}
	trimmed := strings.TrimSpace(raw)
	state := &parseState{
		raw:   trimmed,
		low:   strings.ToLower(trimmed),
		hints: hints,
		fired: make(map[Signal]bool, len(rules)),
		out: domain.Intent{
			Prompt:          trimmed,
			TitleCandidates: []domain.TitleCandidate{},
			Genres:          []string{},
			Keywords:        []string{},
			AnchorYear:      hints.AnchorYear,
		},
	}
	for _, r := range rules {
		r.apply(state)
	}
	return state.out
}

func applyTitle(s *parseState) {
	s.title = detectTitle(s.raw)
	if s.title == "" {
		return
	}
	year := yearIn(s.raw)
	if year == 0 {
		year = s.hints.YearHint
	}
	s.out.TitleCandidates = titleCandidates(s.title, year)
	s.fired[TitleSignal] = true
}

func applyLanguage(s *parseState) {
	langs, locked := detectLanguages(s.raw)
	s.locked = locked
	if code, ok := lexicon.NormalizeLanguage(s.hints.LanguageHint); ok {
		langs = appendUnique(langs, code)
	}
	s.out.IncludeLanguages = withBlendDefault(langs, domain.MaxLanguages)
	s.out.ExplicitLangLock = locked
	s.out.RegionHints = lexicon.RegionsIn(s.low)
	s.out.Locale = lexicon.LocaleFor(s.raw, s.hints.LanguageHint, s.out.RegionHints)
	s.fired[LanguageSignal] = locked
}

func applyMedia(s *parseState) {
	s.out.MediaType = detectMediaType(s.low, s.hints.MediaType)
}

func applyGenres(s *parseState) {
	s.out.Genres = detectGenres(s.low)
	s.fired[GenreSignal] = len(s.out.Genres) > 0
}

func applyMood(s *parseState) {
	s.out.Keywords = detectKeywords(s.raw)
	s.out.Flags = detectFlags(s.raw)
	merged := append(append([]string{}, s.out.Genres...), flagGenres(s.out.Flags)...)
	s.out.Genres = capStrings(lexicon.NormalizeGenres(merged), domain.MaxGenres)
	s.fired[MoodSignal] = len(s.out.Keywords) > 0 || anyFlag(s.out.Flags)
}

func applyEra(s *parseState) {
	yr, fromText := detectYearRange(s.raw, s.hints.YearHint, s.hints.AnchorYear)
	s.out.YearRange = yr
	s.fired[EraSignal] = fromText
}

func applyRuntime(s *parseState) {
	s.out.Runtime = detectRuntime(s.raw)
	s.fired[RuntimeSignal] = s.out.Runtime != domain.Runtime{}
}

func applyQuality(s *parseState) {
	s.out.Quality = detectQuality(s.raw)
	s.fired[QualitySignal] = s.out.Quality.Sort == domain.SortVoteAverage
}

// applyStrategy: an explicit title wins, then any facet signal selects
// discover. A short plain phrase with no other signal is read as a title.
func applyStrategy(s *parseState) {
	if s.fired[TitleSignal] {
		s.out.Strategy = domain.StrategySimilar
		return
	}
	for _, sig := range []Signal{LanguageSignal, GenreSignal, MoodSignal, EraSignal, RuntimeSignal, QualitySignal} {
		if s.fired[sig] {
			s.out.Strategy = domain.StrategyDiscover
			return
		}
	}
	if title := wholeInputTitle(s.raw); title != "" {
		s.out.TitleCandidates = titleCandidates(title, s.hints.YearHint)
		s.out.Strategy = domain.StrategySimilar
		return
	}
	s.out.Strategy = domain.StrategySearch
}

func capStrings(list []string, limit int) []string {
	if len(list) > limit {
		return list[:limit]
	}
	return list
}
