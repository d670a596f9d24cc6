package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	types "github.com/yungbote/contentplan-backend/internal/domain"
)

// ModelCaller returns the raw text a language model produced for a prompt
// pair. The output is untrusted.
type ModelCaller interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

const strategySystemPrompt = `You are a senior social media strategist.
Return ONLY a JSON object, no prose and no markdown, with these keys:
  "month": "YYYY-M",
  "objective_of_the_month": string,
  "frequency_per_week": integer,
  "monthly_themes": [string],
  "content_distribution": {"C"|"R"|"E"|"A"|"S": {"goal": string, "ideas": [Idea]}},
  "weekly_plan": [{"week": integer, "theme": string, "ideas": [Idea]}]
Idea = {"id", "title", "hook", "description", "cta", "platform", "pilar",
  "recommended_template", "video_source", "beats_outline": [string],
  "assets_hints": {"video_prompts": [string], "broll_suggestions": [string],
  "external_video_url": string, "external_video_notes": string},
  "hashtags": [string], "kpi_focus": string, "success_criteria": string}
Pillars: C Content/Growth, R Retention, E Entertainment/Scalability,
A Activation/Advertising, S Satisfaction/Sales.
recommended_template is one of only_avatars, avatar_and_video,
narration_over_7_images, remix, one_to_three_videos.
video_source is one of none, external, kling.
Idea ids follow YYYYMM-<brand_slug>-<PILLAR>-w<week>-i<index>.`

// StrategyPrompts builds the prompt pair for one generation batch.
func StrategyPrompts(snap BrandSnapshot, batch, total int) (string, string) {
	weeks := WeeksForBatch(batch, total)
	var b strings.Builder
	fmt.Fprintf(&b, "Brand: %s (slug %s)\n", snap.Name, snap.Slug)
	if snap.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", snap.Industry)
	}
	if snap.Audience != "" {
		fmt.Fprintf(&b, "Audience: %s\n", snap.Audience)
	}
	if snap.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", snap.Tone)
	}
	fmt.Fprintf(&b, "Language: %s\n", snap.Language)
	fmt.Fprintf(&b, "Platforms: %s\n", strings.Join(snap.Platforms, ", "))
	fmt.Fprintf(&b, "Month: %s (id prefix %s)\n", snap.Month, MonthCode(snap.Month))
	if snap.Objective != "" {
		fmt.Fprintf(&b, "Objective of the month: %s\n", snap.Objective)
	}
	fmt.Fprintf(&b, "Frequency per week: %d\n\n", snap.FrequencyPerWeek)
	fmt.Fprintf(&b, "Produce ONLY weeks %s of the month (batch %d of %d).\n", joinInts(weeks), batch, batchTotal(total))
	fmt.Fprintf(&b, "weekly_plan must contain exactly %d week object(s), each with exactly %d ideas.\n", len(weeks), snap.FrequencyPerWeek)
	b.WriteString("Spread ideas across all five pillars and list every idea again under its pillar in content_distribution.")
	return strategySystemPrompt, b.String()
}

const refinementSystemPrompt = `You are a content producer turning planned items into finished posts.
Return ONLY a JSON object: {"items": [Item]}.
Item = {"id", "content_id", "origin_id", "content_name", "status",
  "platform", "template", "video_source", "pilar", "post_description",
  "text_base", "hashtags": [string],
  "shotplan": {"beats": [{"index", "description", "duration"}], "scenes": [{"index", "prompt", "visual_elements"}]},
  "assets": {...}, "meta": {"kpi_focus", "success_criteria", "compliance_check", "hook", "cta"}}
Keep every id and content_id exactly as given. Omit fields you do not change.
Items with template narration_over_7_images need exactly 7 beats.`

type refinementInput struct {
	ContentID       string          `json:"content_id"`
	OriginID        string          `json:"origin_id"`
	ContentName     string          `json:"content_name"`
	Status          string          `json:"status"`
	Platform        string          `json:"platform"`
	Template        string          `json:"template"`
	VideoSource     string          `json:"video_source"`
	Pilar           string          `json:"pilar"`
	PostDescription string          `json:"post_description"`
	TextBase        string          `json:"text_base"`
	Shotplan        json.RawMessage `json:"shotplan,omitempty"`
	Meta            json.RawMessage `json:"meta,omitempty"`
}

// RefinementPrompts builds the prompt pair for one week's items.
func RefinementPrompts(snap BrandSnapshot, week int, items []*types.ContentItem) (string, string, error) {
	in := make([]refinementInput, 0, len(items))
	for _, it := range items {
		in = append(in, refinementInput{
			ContentID:       it.ContentID,
			OriginID:        it.OriginID,
			ContentName:     it.ContentName,
			Status:          it.Status,
			Platform:        it.Platform,
			Template:        it.Template,
			VideoSource:     it.VideoSource,
			Pilar:           it.Pilar,
			PostDescription: it.PostDescription,
			TextBase:        it.TextBase,
			Shotplan:        json.RawMessage(it.Shotplan),
			Meta:            json.RawMessage(it.Meta),
		})
	}
	body, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return "", "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Brand: %s\nLanguage: %s\nTone: %s\nMonth: %s, week %d\n\n", snap.Name, snap.Language, snap.Tone, snap.Month, week)
	b.WriteString("Refine these items:\n")
	b.Write(body)
	return refinementSystemPrompt, b.String(), nil
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}
