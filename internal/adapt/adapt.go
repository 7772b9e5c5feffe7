// Package adapt reshapes generic content into each platform's constraints:
// caption length caps, hashtag limits and allowed media kinds.
package adapt

import (
	"fmt"
	"strings"

	"github.com/creatorly/publisher/internal/models"
)

// Constraints describe what one platform accepts.
type Constraints struct {
	MaxTextLen    int
	MaxHashtags   int
	RequiresMedia bool
	MaxMediaItems int
}

var platformConstraints = map[string]Constraints{
	"instagram": {MaxTextLen: 2200, MaxHashtags: 30, RequiresMedia: true, MaxMediaItems: 10},
	"tiktok":    {MaxTextLen: 2200, MaxHashtags: 20, RequiresMedia: true, MaxMediaItems: 1},
	"twitter":   {MaxTextLen: 280, MaxHashtags: 10, MaxMediaItems: 4},
}

// Adapted is the platform-shaped payload handed to a connector.
type Adapted struct {
	Text      string   `json:"text"`
	MediaURLs []string `json:"media_urls,omitempty"`
	Hashtags  []string `json:"hashtags,omitempty"`
}

// Platform applies one platform's constraints to a content record. Title and
// body are joined, text is truncated to the platform cap and hashtag lists
// beyond the cap are trimmed rather than rejected. Missing required media is
// an error: retrying cannot fix it.
func Platform(content *models.Content, platform string) (*Adapted, error) {
	c, ok := platformConstraints[platform]
	if !ok {
		return nil, fmt.Errorf("no adaptation rules for platform %q", platform)
	}

	media, err := content.MediaURLList()
	if err != nil {
		return nil, fmt.Errorf("adapt for %s: %w", platform, err)
	}
	if c.RequiresMedia && len(media) == 0 {
		return nil, fmt.Errorf("%s requires media but content %s has none", platform, content.ID)
	}
	if c.MaxMediaItems > 0 && len(media) > c.MaxMediaItems {
		media = media[:c.MaxMediaItems]
	}

	hashtags, err := content.HashtagList()
	if err != nil {
		return nil, fmt.Errorf("adapt for %s: %w", platform, err)
	}
	if c.MaxHashtags > 0 && len(hashtags) > c.MaxHashtags {
		hashtags = hashtags[:c.MaxHashtags]
	}

	text := content.Body
	if content.Title != "" {
		if text == "" {
			text = content.Title
		} else {
			text = content.Title + "\n\n" + text
		}
	}
	text = truncate(text, c.MaxTextLen)

	return &Adapted{Text: text, MediaURLs: media, Hashtags: hashtags}, nil
}

// Ruleset adapts content using the built-in platform rules. It is the
// stateless implementation handed to the publishing service.
type Ruleset struct{}

func (Ruleset) Platform(content *models.Content, platform string) (*Adapted, error) {
	return Platform(content, platform)
}

// Platforms lists every platform with adaptation rules, for validation at
// the API edge.
func Platforms() []string {
	out := make([]string, 0, len(platformConstraints))
	for p := range platformConstraints {
		out = append(out, p)
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	const ellipsis = "…"
	cut := strings.TrimRight(string(runes[:max-1]), " \n")
	return cut + ellipsis
}
