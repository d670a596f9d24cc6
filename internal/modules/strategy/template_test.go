package strategy

import (
	"testing"

	types "github.com/yungbote/contentplan-backend/internal/domain"
)

func TestNormalizeTemplate(t *testing.T) {
	cases := map[string]string{
		"":                        types.TemplateOnlyAvatars,
		"   ":                     types.TemplateOnlyAvatars,
		"unknown thing":           types.TemplateOnlyAvatars,
		"text":                    types.TemplateOnlyAvatars,
		"Avatar":                  types.TemplateOnlyAvatars,
		"carousel":                types.TemplateNarrationOver7Images,
		"Slideshow of tips":       types.TemplateNarrationOver7Images,
		"narration_over_7_images": types.TemplateNarrationOver7Images,
		"videos":                  types.TemplateOneToThreeVideos,
		"remix":                   types.TemplateRemix,
		"AVATAR_AND_VIDEO":        types.TemplateAvatarAndVideo,
		"avatar and video":        types.TemplateAvatarAndVideo,
	}
	for in, want := range cases {
		if got := NormalizeTemplate(in); got != want {
			t.Fatalf("NormalizeTemplate(%q) = %q, want %q", in, got, want)
		}
	}
}
