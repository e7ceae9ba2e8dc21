package domain

import "strings"

// ItemSource records which query strategy contributed an item.
type ItemSource string

const (
	SourceSimilar  ItemSource = "similar"
	SourceDiscover ItemSource = "discover"
	SourceSearch   ItemSource = "search"
)

type CatalogItem struct {
	ID               int        `json:"id"`
	MediaType        MediaType  `json:"mediaType"`
	Title            string     `json:"title,omitempty"`
	Name             string     `json:"name,omitempty"`
	Overview         string     `json:"overview,omitempty"`
	OriginalLanguage string     `json:"originalLanguage,omitempty"`
	GenreIDs         []int      `json:"genreIds,omitempty"`
	ReleaseDate      string     `json:"releaseDate,omitempty"`
	FirstAirDate     string     `json:"firstAirDate,omitempty"`
	VoteAverage      float64    `json:"voteAverage"`
	VoteCount        int        `json:"voteCount"`
	Popularity       float64    `json:"popularity"`
	PosterPath       string     `json:"posterPath,omitempty"`
	Source           ItemSource `json:"source"`
	Score            float64    `json:"score"`
}

func (c CatalogItem) DisplayTitle() string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	return c.Name
}

func (c CatalogItem) Date() string {
	if c.ReleaseDate != "" {
		return c.ReleaseDate
	}
	return c.FirstAirDate
}

// Year returns the leading year of the release or first-air date, or 0.
func (c CatalogItem) Year() int {
	date := c.Date()
	if len(date) < 4 {
		return 0
	}
	year := 0
	for _, ch := range date[:4] {
		if ch < '0' || ch > '9' {
			return 0
		}
		year = year*10 + int(ch-'0')
	}
	return year
}

// EffectiveMediaType falls back to the date field when the type is unset.
func (c CatalogItem) EffectiveMediaType() MediaType {
	if c.MediaType != "" {
		return c.MediaType
	}
	if c.FirstAirDate != "" {
		return MediaTV
	}
	return MediaMovie
}

// DiscoverQuery is one faceted discovery call. Genres are canonical keys;
// zero-valued bounds are omitted.
type DiscoverQuery struct {
	MediaType        MediaType
	Genres           []string
	OriginalLanguage string
	YearFrom         int
	YearTo           int
	MinVoteCount     int
	SortBy           SortBy
	RuntimeLTE       int
	RuntimeGTE       int
}
