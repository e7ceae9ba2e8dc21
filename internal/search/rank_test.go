package search

import (
	"math"
	"testing"

	"cineforge/promptsearch/internal/domain"
)

func plainItem(id int) domain.CatalogItem {
	return domain.CatalogItem{
		ID:               id,
		MediaType:        domain.MediaMovie,
		Title:            "Plain",
		OriginalLanguage: "en",
		VoteAverage:      7,
		Popularity:       10,
		VoteCount:        1000,
		Source:           domain.SourceSearch,
	}
}

func scoreOf(item domain.CatalogItem, in domain.Intent) float64 {
	serious := in.Flags.Serious() || in.HasGenre("thriller") || in.HasGenre("crime") || in.HasGenre("mystery")
	return scoreItem(item, in, scoringTerms(in), serious, domain.DefaultAnchorYear)
}

func assertScore(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s: score = %v, want %v", name, got, want)
	}
}

func TestRankSimilarSourceBeatsSearchWithoutOverlap(t *testing.T) {
	in := domain.Intent{
		Genres:           []string{"thriller"},
		IncludeLanguages: []string{"en"},
	}
	similar := plainItem(1)
	similar.Source = domain.SourceSimilar
	similar.GenreIDs = []int{53, 80}
	search := plainItem(2)
	search.GenreIDs = []int{35}

	ranked := Rank([]domain.CatalogItem{search, similar}, in)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 items, got %d", len(ranked))
	}
	if ranked[0].ID != 1 || ranked[0].Score <= ranked[1].Score {
		t.Fatalf("expected similar item strictly first, got %+v", ranked)
	}
}

func TestRankDedupesByMediaAndID(t *testing.T) {
	first := plainItem(7)
	first.Source = domain.SourceDiscover
	dup := plainItem(7)
	dup.Source = domain.SourceSimilar
	dup.Title = "Duplicate"
	tv := plainItem(7)
	tv.MediaType = domain.MediaTV

	ranked := Rank([]domain.CatalogItem{first, dup, tv}, domain.Intent{})
	if len(ranked) != 2 {
		t.Fatalf("expected movie and tv entries to survive, got %+v", ranked)
	}
	seen := map[string]int{}
	for _, item := range ranked {
		seen[string(item.MediaType)]++
		if item.MediaType == domain.MediaMovie && (item.Source != domain.SourceDiscover || item.Title != "Plain") {
			t.Fatalf("expected first occurrence to win, got %+v", item)
		}
	}
	if seen["movie"] != 1 || seen["tv"] != 1 {
		t.Fatalf("unexpected media split: %v", seen)
	}
}

func TestRankDedupesByNormalizedTitleWithoutID(t *testing.T) {
	a := domain.CatalogItem{Title: "Amélie", ReleaseDate: "2001-04-25"}
	b := domain.CatalogItem{Title: "amelie!", ReleaseDate: "2001-09-01"}
	c := domain.CatalogItem{Title: "Amelie", ReleaseDate: "1990-01-01"}

	ranked := Rank([]domain.CatalogItem{a, b, c}, domain.Intent{})
	if len(ranked) != 2 {
		t.Fatalf("expected same title and year to collapse, got %+v", ranked)
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := map[string]string{
		"Amélie":           "amelie",
		"  Se7en!  ":       "se7en",
		"Crème  Brûlée":    "creme brulee",
		"Spider-Man: Noir": "spider man noir",
		"":                 "",
	}
	for in, want := range tests {
		if got := normalizeTitle(in); got != want {
			t.Errorf("normalizeTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRankLanguageLockPartitionsMatchesFirst(t *testing.T) {
	in := domain.Intent{
		IncludeLanguages: []string{"hi", "en"},
		ExplicitLangLock: true,
	}
	blockbuster := plainItem(1)
	blockbuster.OriginalLanguage = "ko"
	blockbuster.Popularity = 5000
	hindi := plainItem(2)
	hindi.OriginalLanguage = "hi"
	english := plainItem(3)
	english.Popularity = 200

	ranked := Rank([]domain.CatalogItem{blockbuster, hindi, english}, in)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 items, got %d", len(ranked))
	}
	if ranked[2].ID != 1 {
		t.Fatalf("expected non-matching language last, got %+v", ranked)
	}
	if ranked[0].ID != 3 || ranked[1].ID != 2 {
		t.Fatalf("expected matching items in score order, got %+v", ranked)
	}
}

func TestRankTrimsToMaxResults(t *testing.T) {
	pool := make([]domain.CatalogItem, 0, 40)
	for i := 1; i <= 40; i++ {
		item := plainItem(i)
		item.Popularity = float64(i)
		pool = append(pool, item)
	}
	ranked := Rank(pool, domain.Intent{})
	if len(ranked) != domain.MaxResults {
		t.Fatalf("expected %d items, got %d", domain.MaxResults, len(ranked))
	}
	if ranked[0].ID != 40 {
		t.Fatalf("expected most popular first, got id %d", ranked[0].ID)
	}
}

func TestRankEmptyPool(t *testing.T) {
	ranked := Rank(nil, domain.Intent{})
	if ranked == nil || len(ranked) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", ranked)
	}
}

func TestRankDoesNotMutatePool(t *testing.T) {
	pool := []domain.CatalogItem{plainItem(1)}
	Rank(pool, domain.Intent{})
	if pool[0].Score != 0 {
		t.Fatalf("expected caller pool untouched, got score %v", pool[0].Score)
	}
}

func TestScoreItemComponents(t *testing.T) {
	base := 7*24.0 + 10 + 1000*0.02

	assertScore(t, "base", scoreOf(plainItem(1), domain.Intent{}), base)

	recent := plainItem(1)
	recent.ReleaseDate = "2023-06-01"
	assertScore(t, "recency", scoreOf(recent, domain.Intent{}), base+32)

	old := plainItem(1)
	old.ReleaseDate = "2010-01-01"
	assertScore(t, "recency floor", scoreOf(old, domain.Intent{}), base)

	anchored := scoreItem(recent, domain.Intent{}, nil, false, 2023)
	assertScore(t, "custom anchor", anchored, base+40)

	genre := plainItem(1)
	genre.GenreIDs = []int{53, 80, 18}
	in := domain.Intent{Genres: []string{"thriller", "crime"}}
	assertScore(t, "genre overlap and thriller bonus", scoreOf(genre, in), base+2*75+20)

	keyword := plainItem(1)
	keyword.Overview = "A daring heist with a final twist."
	in = domain.Intent{Keywords: []string{"heist"}, Flags: domain.MoodFlags{Twisty: true}}
	assertScore(t, "keywords", scoreOf(keyword, in), base+18+18)

	suspense := plainItem(1)
	suspense.Overview = "Suspense in a small family home."
	assertScore(t, "suspense and family text", scoreOf(suspense, domain.Intent{}), base+20+12)

	mystery := plainItem(1)
	mystery.GenreIDs = []int{9648}
	assertScore(t, "mystery genre", scoreOf(mystery, domain.Intent{}), base+16)
}

func TestScoreItemMoodFlags(t *testing.T) {
	base := 7*24.0 + 10 + 1000*0.02

	comedy := plainItem(1)
	comedy.GenreIDs = []int{35}
	feelGood := domain.Intent{Flags: domain.MoodFlags{FeelGood: true}}
	assertScore(t, "feel-good comedy", scoreOf(comedy, feelGood), base+22)

	grim := plainItem(1)
	grim.Overview = "A violent revenge story."
	assertScore(t, "feel-good violent", scoreOf(grim, feelGood), base-25)

	timePass := domain.Intent{Flags: domain.MoodFlags{TimePass: true}}
	assertScore(t, "time-pass comedy", scoreOf(comedy, timePass), base+16)

	drama := plainItem(1)
	drama.GenreIDs = []int{18}
	sad := domain.Intent{Flags: domain.MoodFlags{SadEnding: true}}
	assertScore(t, "sad drama", scoreOf(drama, sad), base+16)

	mind := plainItem(1)
	mind.Overview = "A psychological duel."
	psych := domain.Intent{Flags: domain.MoodFlags{Psychological: true}}
	assertScore(t, "psychological", scoreOf(mind, psych), base+18)
}

func TestScoreItemSuperheroPenaltyNeedsSeriousIntent(t *testing.T) {
	base := 7*24.0 + 10 + 1000*0.02
	capes := plainItem(1)
	capes.Title = "Batman Returns"

	assertScore(t, "light intent", scoreOf(capes, domain.Intent{}), base)
	assertScore(t, "thriller intent", scoreOf(capes, domain.Intent{Genres: []string{"thriller"}}), base-65)
	assertScore(t, "dark flag", scoreOf(capes, domain.Intent{Flags: domain.MoodFlags{Dark: true}}), base-65)
}

func TestScoreItemLanguageFit(t *testing.T) {
	base := 7*24.0 + 10 + 1000*0.02
	item := plainItem(1)

	assertScore(t, "blended match", scoreOf(item, domain.Intent{IncludeLanguages: []string{"en"}}), base+10)
	assertScore(t, "locked match", scoreOf(item, domain.Intent{IncludeLanguages: []string{"hi", "en"}, ExplicitLangLock: true}), base+42)
	assertScore(t, "locked mismatch", scoreOf(item, domain.Intent{IncludeLanguages: []string{"hi"}, ExplicitLangLock: true}), base-45)
	assertScore(t, "blended mismatch", scoreOf(item, domain.Intent{IncludeLanguages: []string{"hi"}}), base)
}

func TestScoreItemSourceBonus(t *testing.T) {
	base := 7*24.0 + 10 + 1000*0.02
	similar := plainItem(1)
	similar.Source = domain.SourceSimilar
	discover := plainItem(1)
	discover.Source = domain.SourceDiscover

	assertScore(t, "similar", scoreOf(similar, domain.Intent{}), base+28)
	assertScore(t, "discover", scoreOf(discover, domain.Intent{}), base+10)
}
