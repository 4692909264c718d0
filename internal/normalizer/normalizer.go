package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/creatorpulse/backend/internal/storage/models"
)

// Target renditions. Videos come back in many encodes; 720x1280 is the
// portrait encode every provider ships. Images prefer the 1080-wide
// candidate (4:5 or square) before falling back to the largest area.
const (
	targetVideoWidth  = 720
	targetVideoHeight = 1280
	targetImageWidth  = 1080
)

// Word characters plus U+0590-U+05FF so hashtags in non-Latin scripts
// survive extraction.
var hashtagPattern = regexp.MustCompile(`#[\w\x{0590}-\x{05FF}]+`)

// Normalize converts one provider node into a canonical Post. It is total:
// unparseable fields degrade to zero values and a node carrying neither
// caption nor media is still emitted, since captions alone carry signal.
func Normalize(ownerID, platform string, node map[string]any) models.Post {
	post := models.Post{
		OwnerID:        ownerID,
		Platform:       platform,
		ExternalPostID: externalID(node),
		Caption:        captionText(node),
		LikeCount:      intField(node, "like_count"),
		CommentCount:   intField(node, "comment_count"),
		TakenAt:        normalizeTimestamp(node["taken_at"]),
		CreatedAt:      time.Now(),
	}

	post.PostURL = postURL(platform, node)
	post.Hashtags = ExtractHashtags(post.Caption)
	post.MediaType = classifyMediaType(node)

	switch post.MediaType {
	case models.MediaTypeCarousel:
		post.CarouselMedia = flattenCarousel(node)
		if len(post.CarouselMedia) > 0 {
			post.MediaURL = post.CarouselMedia[0].MediaURL
		}
	case models.MediaTypeVideo:
		post.MediaURL = bestVideoURL(node)
	default:
		post.MediaURL = bestImageURL(node)
	}

	return post
}

// NormalizeAll normalizes a batch and reports how many nodes were skipped
// as unparsed. A skip is never fatal; it only shows in the count.
func NormalizeAll(ownerID, platform string, nodes []map[string]any) ([]models.Post, int) {
	posts := make([]models.Post, 0, len(nodes))
	unparsed := 0

	for _, node := range nodes {
		if len(node) == 0 {
			unparsed++
			continue
		}
		post := Normalize(ownerID, platform, node)
		if post.ExternalPostID == "" {
			// Nothing to key the row on.
			unparsed++
			continue
		}
		posts = append(posts, post)
	}

	return posts, unparsed
}

// ExtractHashtags returns the lower-cased hashtag tokens found in text,
// leading '#' retained, in order of appearance.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.ToLower(m))
	}
	return tags
}

func classifyMediaType(node map[string]any) string {
	productType := strField(node, "product_type")
	mediaCode := intField(node, "media_type")

	switch {
	case productType == "carousel_container" || mediaCode == 8:
		return models.MediaTypeCarousel
	case productType == "clips" || mediaCode == 2:
		return models.MediaTypeVideo
	default:
		return models.MediaTypeImage
	}
}

func bestVideoURL(node map[string]any) string {
	versions := sliceField(node, "video_versions")
	if len(versions) == 0 {
		return ""
	}

	for _, v := range versions {
		if intField(v, "width") == targetVideoWidth && intField(v, "height") == targetVideoHeight {
			return strField(v, "url")
		}
	}

	return strField(versions[0], "url")
}

func bestImageURL(node map[string]any) string {
	imageVersions := mapField(node, "image_versions2")
	candidates := sliceField(imageVersions, "candidates")
	if len(candidates) == 0 {
		return ""
	}

	for _, c := range candidates {
		w, h := intField(c, "width"), intField(c, "height")
		if w == targetImageWidth && (h == 1440 || h == 1080) {
			return strField(c, "url")
		}
	}

	best := candidates[0]
	bestArea := intField(best, "width") * intField(best, "height")
	for _, c := range candidates[1:] {
		if area := intField(c, "width") * intField(c, "height"); area > bestArea {
			best, bestArea = c, area
		}
	}

	return strField(best, "url")
}

// flattenCarousel classifies and resolves each nested item the same way as
// a top-level node, preserving provider order. Items without a resolvable
// URL are dropped.
func flattenCarousel(node map[string]any) []models.CarouselItem {
	items := sliceField(node, "carousel_media")
	if len(items) == 0 {
		return nil
	}

	out := make([]models.CarouselItem, 0, len(items))
	for _, item := range items {
		mediaType := classifyMediaType(item)

		var url string
		if mediaType == models.MediaTypeVideo {
			url = bestVideoURL(item)
		} else {
			url = bestImageURL(item)
		}
		if url == "" {
			continue
		}

		out = append(out, models.CarouselItem{MediaType: mediaType, MediaURL: url})
	}

	return out
}

// normalizeTimestamp accepts epoch seconds, epoch milliseconds, or a
// date-time string and always returns integer epoch seconds.
func normalizeTimestamp(v any) int64 {
	var ts int64

	switch t := v.(type) {
	case float64:
		ts = int64(t)
	case int64:
		ts = t
	case int:
		ts = int64(t)
	case string:
		if n, err := strconv.ParseFloat(t, 64); err == nil {
			ts = int64(n)
		} else if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			ts = parsed.Unix()
		} else if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			ts = parsed.Unix()
		}
	}

	// Anything past this bound is epoch milliseconds. Millisecond
	// values below it (timestamps before Sep 2001) would misread as
	// seconds; platform post feeds cannot carry dates that old.
	if ts > 1_000_000_000_000 {
		ts /= 1000
	}
	if ts < 0 {
		ts = 0
	}

	return ts
}

func externalID(node map[string]any) string {
	if id := strField(node, "id"); id != "" {
		return id
	}
	switch pk := node["pk"].(type) {
	case string:
		return pk
	case float64:
		return strconv.FormatInt(int64(pk), 10)
	}
	return strField(node, "code")
}

func captionText(node map[string]any) string {
	switch c := node["caption"].(type) {
	case string:
		return c
	case map[string]any:
		return strField(c, "text")
	}
	return ""
}

func postURL(platform string, node map[string]any) string {
	if link := strField(node, "permalink"); link != "" {
		return link
	}
	code := strField(node, "code")
	if code == "" {
		return ""
	}
	if platform == models.PlatformTikTok {
		return fmt.Sprintf("https://www.tiktok.com/video/%s", code)
	}
	return fmt.Sprintf("https://www.instagram.com/p/%s/", code)
}

func strField(node map[string]any, key string) string {
	if node == nil {
		return ""
	}
	s, _ := node[key].(string)
	return s
}

func intField(node map[string]any, key string) int {
	if node == nil {
		return 0
	}
	switch n := node[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func mapField(node map[string]any, key string) map[string]any {
	if node == nil {
		return nil
	}
	m, _ := node[key].(map[string]any)
	return m
}

func sliceField(node map[string]any, key string) []map[string]any {
	if node == nil {
		return nil
	}
	raw, _ := node[key].([]any)
	if len(raw) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
