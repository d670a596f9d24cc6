package strategy

import (
	"strings"

	types "github.com/yungbote/contentplan-backend/internal/domain"
)

var templateSynonyms = []struct {
	needle   string
	template string
}{
	{"narration", types.TemplateNarrationOver7Images},
	{"carousel", types.TemplateNarrationOver7Images},
	{"slideshow", types.TemplateNarrationOver7Images},
	{"slide", types.TemplateNarrationOver7Images},
	{"image", types.TemplateNarrationOver7Images},
	{"remix", types.TemplateRemix},
	{"duet", types.TemplateRemix},
	{"stitch", types.TemplateRemix},
	{"avatar_and_video", types.TemplateAvatarAndVideo},
	{"avatar and video", types.TemplateAvatarAndVideo},
	{"avatar+video", types.TemplateAvatarAndVideo},
	{"broll", types.TemplateAvatarAndVideo},
	{"b-roll", types.TemplateAvatarAndVideo},
	{"videos", types.TemplateOneToThreeVideos},
	{"one_to_three", types.TemplateOneToThreeVideos},
	{"clips", types.TemplateOneToThreeVideos},
	{"avatar", types.TemplateOnlyAvatars},
	{"text", types.TemplateOnlyAvatars},
	{"talking", types.TemplateOnlyAvatars},
	{"video", types.TemplateOneToThreeVideos},
}

var validTemplates = map[string]bool{
	types.TemplateOnlyAvatars:          true,
	types.TemplateAvatarAndVideo:       true,
	types.TemplateNarrationOver7Images: true,
	types.TemplateRemix:                true,
	types.TemplateOneToThreeVideos:     true,
}

// NormalizeTemplate maps any label onto the closed template set. Unknown or
// empty labels become only_avatars.
func NormalizeTemplate(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	if label == "" {
		return types.TemplateOnlyAvatars
	}
	if validTemplates[label] {
		return label
	}
	for _, s := range templateSynonyms {
		if strings.Contains(label, s.needle) {
			return s.template
		}
	}
	return types.TemplateOnlyAvatars
}

func IsValidTemplate(t string) bool { return validTemplates[t] }
