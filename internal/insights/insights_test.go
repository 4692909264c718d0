package insights

import (
	"strings"
	"testing"

	"github.com/creatorpulse/backend/internal/storage/models"
)

func TestTopHashtagsRankedByFrequency(t *testing.T) {
	posts := []models.Post{
		{Hashtags: []string{"#coffee", "#travel"}},
		{Hashtags: []string{"#coffee"}},
		{Hashtags: []string{"#coffee", "#travel", "#rare"}},
	}

	got := topHashtags(posts)

	if len(got) != 3 {
		t.Fatalf("hashtags = %v, want 3 entries", got)
	}
	if got[0] != "#coffee" || got[1] != "#travel" || got[2] != "#rare" {
		t.Errorf("ranking = %v, want [#coffee #travel #rare]", got)
	}
}

func TestPostingCadence(t *testing.T) {
	base := int64(1700000000)
	// 4 posts over exactly two weeks.
	posts := []models.Post{
		{TakenAt: base},
		{TakenAt: base + 5*86400},
		{TakenAt: base + 9*86400},
		{TakenAt: base + 14*86400},
	}

	got := postingCadence(posts)
	if got != 2 {
		t.Errorf("cadence = %v posts/week, want 2", got)
	}

	if c := postingCadence([]models.Post{{TakenAt: base}}); c != 0 {
		t.Errorf("cadence with one timestamp = %v, want 0", c)
	}
	if c := postingCadence(nil); c != 0 {
		t.Errorf("cadence with no posts = %v, want 0", c)
	}
}

func TestMediaMix(t *testing.T) {
	posts := []models.Post{
		{MediaType: models.MediaTypeImage},
		{MediaType: models.MediaTypeImage},
		{MediaType: models.MediaTypeVideo},
	}

	mix := mediaMix(posts)
	if mix[models.MediaTypeImage] != 2 || mix[models.MediaTypeVideo] != 1 {
		t.Errorf("mix = %v", mix)
	}
}

func TestTopKeywordsExcludesTagsAndShortTokens(t *testing.T) {
	posts := []models.Post{
		{Caption: "Morning coffee ritual at the beach #coffee"},
		{Caption: "Another coffee on the beach today"},
	}

	got := topKeywords(posts)

	for _, kw := range got {
		if strings.HasPrefix(kw, "#") || strings.HasPrefix(kw, "@") {
			t.Errorf("keyword %q should have been excluded", kw)
		}
		if kw != strings.ToLower(kw) {
			t.Errorf("keyword %q not lower-cased", kw)
		}
		if len(kw) < 3 {
			t.Errorf("keyword %q shorter than minimum", kw)
		}
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	got := Build(nil)

	if got.TopHashtags != nil || got.TopKeywords != nil {
		t.Errorf("expected empty insights, got %+v", got)
	}
	if got.PostsPerWeek != 0 {
		t.Errorf("cadence = %v, want 0", got.PostsPerWeek)
	}
}
