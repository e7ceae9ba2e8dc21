package domain

type Strategy string

const (
	StrategySimilar  Strategy = "similar"
	StrategyDiscover Strategy = "discover"
	StrategySearch   Strategy = "search"
)

type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

type SortBy string

const (
	SortPopularity  SortBy = "popularity.desc"
	SortVoteAverage SortBy = "vote_average.desc"
)

const (
	DefaultMinVotes   = 200
	TopRatedMinVotes  = 1000
	MaxGenres         = 6
	MaxLanguages      = 4
	MaxFusedLanguages = 5
	MaxLikedTitles    = 5
	MaxResults        = 24
	MinYear           = 1950
	DefaultAnchorYear = 2025
)

// TitleCandidate is a title the prompt asked to find similar items for.
// Year is zero when unknown.
type TitleCandidate struct {
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

// YearRange bounds are inclusive; zero means unbounded.
type YearRange struct {
	From int `json:"from,omitempty"`
	To   int `json:"to,omitempty"`
}

func (r YearRange) IsZero() bool {
	return r.From == 0 && r.To == 0
}

// Runtime bounds are in minutes; zero means unbounded.
type Runtime struct {
	LTE int `json:"lte,omitempty"`
	GTE int `json:"gte,omitempty"`
}

type Quality struct {
	MinVotes int    `json:"minVotes"`
	Sort     SortBy `json:"sort"`
}

type MoodFlags struct {
	FeelGood       bool `json:"feelGood,omitempty"`
	FamilyNight    bool `json:"familyNight,omitempty"`
	TimePass       bool `json:"timePass,omitempty"`
	SadEnding      bool `json:"sadEnding,omitempty"`
	Romantic       bool `json:"romantic,omitempty"`
	Investigative  bool `json:"investigative,omitempty"`
	RealBased      bool `json:"realBased,omitempty"`
	Superhero      bool `json:"superhero,omitempty"`
	Dark           bool `json:"dark,omitempty"`
	Psychological  bool `json:"psychological,omitempty"`
	Twisty         bool `json:"twisty,omitempty"`
	Horror         bool `json:"horror,omitempty"`
	NotTooScary    bool `json:"notTooScary,omitempty"`
	ActionThriller bool `json:"actionThriller,omitempty"`
}

// Serious reports whether the flags ask for grounded content.
func (f MoodFlags) Serious() bool {
	return f.ActionThriller || f.Investigative || f.RealBased || f.Dark || f.Psychological || f.Twisty
}

// Intent is the structured reading of one prompt. It is built per request
// and never shared.
type Intent struct {
	Prompt           string           `json:"prompt"`
	Strategy         Strategy         `json:"strategy"`
	MediaType        MediaType        `json:"mediaType"`
	TitleCandidates  []TitleCandidate `json:"titleCandidates"`
	LikedTitles      []string         `json:"likedTitles,omitempty"`
	Genres           []string         `json:"genres"`
	Keywords         []string         `json:"keywords"`
	Flags            MoodFlags        `json:"flags"`
	IncludeLanguages []string         `json:"includeLanguages"`
	ExplicitLangLock bool             `json:"explicitLangLock"`
	RegionHints      []string         `json:"regionHints,omitempty"`
	Locale           string           `json:"locale,omitempty"`
	YearRange        YearRange        `json:"yearRange"`
	Runtime          Runtime          `json:"runtime"`
	Quality          Quality          `json:"quality"`
	QueryHint        string           `json:"queryHint,omitempty"`
	// AnchorYear is the reference year for era windows and recency scoring.
	AnchorYear int `json:"anchorYear"`
}

// HasGenre reports whether key is one of the intent genres.
func (i Intent) HasGenre(key string) bool {
	for _, g := range i.Genres {
		if g == key {
			return true
		}
	}
	return false
}

// MatchesLanguage reports whether lang is one of the first limit languages.
// A non-positive limit checks them all.
func (i Intent) MatchesLanguage(lang string, limit int) bool {
	langs := i.IncludeLanguages
	if limit > 0 && len(langs) > limit {
		langs = langs[:limit]
	}
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so fusion never aliases the parsed intent.
func (i Intent) Clone() Intent {
	out := i
	if i.TitleCandidates != nil {
		out.TitleCandidates = append(make([]TitleCandidate, 0, len(i.TitleCandidates)), i.TitleCandidates...)
	}
	out.LikedTitles = cloneStrings(i.LikedTitles)
	out.Genres = cloneStrings(i.Genres)
	out.Keywords = cloneStrings(i.Keywords)
	out.IncludeLanguages = cloneStrings(i.IncludeLanguages)
	out.RegionHints = cloneStrings(i.RegionHints)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}
