package domain

// AISuggestion is the structured reading a text-completion service returns
// for a prompt. Every field is optional.
type AISuggestion struct {
	MediaType      string   `json:"mediaType,omitempty"`
	Query          string   `json:"query,omitempty"`
	Genres         []string `json:"genres,omitempty"`
	LikedTitles    []string `json:"liked_titles,omitempty"`
	Vibes          []string `json:"vibes,omitempty"`
	Mixes          []Mix    `json:"mixes,omitempty"`
	LanguagePrefs  []string `json:"language_prefs,omitempty"`
	RegionPrefs    []string `json:"region_prefs,omitempty"`
	IncludePeople  *People  `json:"include_people,omitempty"`
	Exclude        []string `json:"exclude,omitempty"`
	Year           *int     `json:"year,omitempty"`
	MinVoteAverage *float64 `json:"min_vote_average,omitempty"`
}

// Mix is a compound request such as "action + emotion".
type Mix struct {
	And []string `json:"and"`
}

type People struct {
	Cast []string `json:"cast,omitempty"`
	Crew []string `json:"crew,omitempty"`
}
