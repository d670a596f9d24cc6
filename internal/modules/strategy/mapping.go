package strategy

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	types "github.com/yungbote/contentplan-backend/internal/domain"
)

const beatDuration = "3-5s"

type Beat struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
}

type Scene struct {
	Index          int      `json:"index"`
	Prompt         string   `json:"prompt"`
	VisualElements []string `json:"visual_elements"`
}

type Shotplan struct {
	Beats  []Beat  `json:"beats"`
	Scenes []Scene `json:"scenes"`
}

type Assets struct {
	VideoPrompts       []string `json:"video_prompts"`
	BrollSuggestions   []string `json:"broll_suggestions"`
	ExternalVideoURL   string   `json:"external_video_url"`
	ExternalVideoNotes string   `json:"external_video_notes"`
}

type Meta struct {
	KPIFocus        string `json:"kpi_focus"`
	SuccessCriteria string `json:"success_criteria"`
	ComplianceCheck string `json:"compliance_check"`
	Hook            string `json:"hook"`
	CTA             string `json:"cta"`
	Title           string `json:"title"`
	Theme           string `json:"theme,omitempty"`
}

// plannedIdea is an idea placed in the month: week and 1-based slot.
type plannedIdea struct {
	Idea      Idea
	Week      int
	WeekIndex int
	Day       int
	Pilar     string
	Theme     string
	Source    string
}

const (
	sourceWeeklyPlan          = "weekly_plan"
	sourceContentDistribution = "content_distribution"
)

// collectIdeas flattens whichever collection is populated, weekly_plan
// first. Missing or repeated ids get a fresh week-scoped id.
func collectIdeas(p *Payload, month, brandSlug string, frequency int) []plannedIdea {
	used := map[string]bool{}
	weekly := false
	for _, w := range p.WeeklyPlan {
		for _, idea := range w.Ideas {
			weekly = true
			used[idea.ID] = idea.ID != ""
		}
	}
	if !weekly {
		for _, b := range p.ContentDistribution {
			for _, idea := range b.Ideas {
				used[idea.ID] = idea.ID != ""
			}
		}
	}

	var out []plannedIdea
	counts := map[int]int{}
	seen := map[string]bool{}
	add := func(idea Idea, week int, bucket, theme, source string) {
		if week < 1 || week > WeeksPerPlan {
			week = 1
		}
		counts[week]++
		pilar := ideaPilar(idea, bucket)
		if idea.ID == "" || seen[idea.ID] {
			idea.ID = freshIdeaID(idea.ID, month, brandSlug, pilar, week, counts[week], used)
		}
		seen[idea.ID] = true
		out = append(out, plannedIdea{
			Idea:      idea,
			Week:      week,
			WeekIndex: counts[week],
			Pilar:     pilar,
			Theme:     theme,
			Source:    source,
		})
	}

	if weekly {
		for i, w := range p.WeeklyPlan {
			week := i + 1
			if week > WeeksPerPlan {
				week = WeekFromID(firstID(w.Ideas))
			}
			for _, idea := range w.Ideas {
				add(idea, week, "", w.Theme, sourceWeeklyPlan)
			}
		}
	} else {
		for _, code := range distributionKeys(p.ContentDistribution) {
			for _, idea := range p.ContentDistribution[code].Ideas {
				add(idea, WeekFromID(idea.ID), code, "", sourceContentDistribution)
			}
		}
	}

	for i := range out {
		perWeek := counts[out[i].Week]
		if frequency > perWeek {
			perWeek = frequency
		}
		out[i].Day = dayOfWeek(out[i].WeekIndex, perWeek)
	}
	return out
}

func firstID(ideas []Idea) string {
	if len(ideas) == 0 {
		return ""
	}
	return ideas[0].ID
}

// distributionKeys orders pillar buckets C,R,E,A,S then anything else sorted.
func distributionKeys(d map[string]PillarBucket) []string {
	var keys, extra []string
	for _, code := range pillarOrder {
		if _, ok := d[code]; ok {
			keys = append(keys, code)
		}
	}
	for k := range d {
		if !IsValidPilar(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// dayOfWeek spreads perWeek slots over Monday(1)..Sunday(7).
func dayOfWeek(index, perWeek int) int {
	if perWeek < 1 || index < 1 {
		return 1
	}
	d := 1 + ((index-1)*7)/perWeek
	if d > 7 {
		d = 7
	}
	return d
}

// scheduledDate is the first date on weekday day at or after the start of
// the given week of the month.
func scheduledDate(month string, week, day int) *time.Time {
	start, ok := ParseMonth(month)
	if !ok || week < 1 || day < 1 || day > 7 {
		return nil
	}
	d := start.AddDate(0, 0, 7*(week-1))
	want := time.Weekday(day % 7)
	for d.Weekday() != want {
		d = d.AddDate(0, 0, 1)
	}
	return &d
}

var platformNames = map[string]string{
	"instagram": "Instagram",
	"ig":        "Instagram",
	"tiktok":    "TikTok",
	"tik tok":   "TikTok",
	"youtube":   "YouTube",
	"yt":        "YouTube",
	"linkedin":  "LinkedIn",
	"facebook":  "Facebook",
	"x":         "X",
	"twitter":   "X",
}

func NormalizePlatform(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "Instagram"
	}
	if name, ok := platformNames[key]; ok {
		return name
	}
	for k, name := range platformNames {
		if len(k) > 2 && strings.Contains(key, k) {
			return name
		}
	}
	return strings.TrimSpace(raw)
}

func contentTypeFor(platform string) string {
	switch platform {
	case "Instagram":
		return "reel"
	case "TikTok", "YouTube":
		return "video"
	default:
		return "post"
	}
}

func aspectRatioFor(platform string) string {
	switch platform {
	case "Instagram", "TikTok":
		return "9:16"
	case "YouTube":
		return "16:9"
	default:
		return "1:1"
	}
}

func normalizeVideoSource(raw string) string {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case types.VideoSourceExternal, types.VideoSourceKling, types.VideoSourceNone:
		return s
	default:
		return types.VideoSourceNone
	}
}

func composeTextBase(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

func buildShotplan(idea Idea) Shotplan {
	sp := Shotplan{Beats: []Beat{}, Scenes: []Scene{}}
	for i, b := range idea.BeatsOutline {
		sp.Beats = append(sp.Beats, Beat{Index: i + 1, Description: b, Duration: beatDuration})
	}
	visuals := []string(idea.AssetsHints.BrollSuggestions)
	if visuals == nil {
		visuals = []string{}
	}
	for i, prompt := range idea.AssetsHints.VideoPrompts {
		sp.Scenes = append(sp.Scenes, Scene{Index: i + 1, Prompt: prompt, VisualElements: visuals})
	}
	return sp
}

func buildAssets(idea Idea) Assets {
	a := Assets{
		VideoPrompts:       []string(idea.AssetsHints.VideoPrompts),
		BrollSuggestions:   []string(idea.AssetsHints.BrollSuggestions),
		ExternalVideoURL:   idea.AssetsHints.ExternalVideoURL,
		ExternalVideoNotes: idea.AssetsHints.ExternalVideoNotes,
	}
	if a.VideoPrompts == nil {
		a.VideoPrompts = []string{}
	}
	if a.BrollSuggestions == nil {
		a.BrollSuggestions = []string{}
	}
	return a
}

func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, t := range tags {
		for _, f := range strings.Fields(t) {
			f = "#" + strings.TrimLeft(strings.Trim(f, ",;"), "#")
			if f == "#" || seen[strings.ToLower(f)] {
				continue
			}
			seen[strings.ToLower(f)] = true
			out = append(out, f)
		}
	}
	return out
}

func jsonColumn(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

// buildItem derives a draft content item from a placed idea. Name
// uniqueness and similarity tagging happen later.
func buildItem(plan *types.StrategyPlan, snap BrandSnapshot, pi plannedIdea) *types.ContentItem {
	idea := pi.Idea
	pillar := PillarFor(pi.Pilar)
	platform := NormalizePlatform(idea.Platform)
	name := strings.TrimSpace(idea.Title)
	if name == "" {
		name = fmt.Sprintf("%s idea w%d-i%d", pillar.Name, pi.Week, pi.WeekIndex)
	}
	desc := strings.TrimSpace(idea.Description)
	if desc == "" {
		desc = strings.TrimSpace(idea.Hook)
	}
	kpi := strings.TrimSpace(idea.KPIFocus)
	if kpi == "" {
		kpi = pillar.KPI
	}
	lang := snap.Language
	if lang == "" {
		lang = "en"
	}
	return &types.ContentItem{
		ContentID:       idea.ID,
		OriginID:        idea.ID,
		OriginSource:    pi.Source,
		StrategyPlanID:  plan.ID,
		BrandID:         plan.BrandID,
		OwnerUserID:     plan.OwnerUserID,
		Month:           plan.Month,
		Week:            pi.Week,
		WeekIndex:       pi.WeekIndex,
		DayOfTheWeek:    pi.Day,
		ScheduledDate:   scheduledDate(plan.Month, pi.Week, pi.Day),
		ContentName:     name,
		Status:          types.ContentStatusDraft,
		ContentType:     contentTypeFor(platform),
		Platform:        platform,
		AspectRatio:     aspectRatioFor(platform),
		Language:        lang,
		Pilar:           pillar.Code,
		Template:        NormalizeTemplate(idea.RecommendedTemplate),
		VideoSource:     normalizeVideoSource(idea.VideoSource),
		PostDescription: desc,
		TextBase:        composeTextBase(idea.Hook, idea.Description, idea.CTA),
		Hashtags:        jsonColumn(normalizeHashtags(idea.Hashtags)),
		Shotplan:        jsonColumn(buildShotplan(idea)),
		Assets:          jsonColumn(buildAssets(idea)),
		Meta: jsonColumn(Meta{
			KPIFocus:        kpi,
			SuccessCriteria: strings.TrimSpace(idea.SuccessCriteria),
			ComplianceCheck: "pending",
			Hook:            strings.TrimSpace(idea.Hook),
			CTA:             strings.TrimSpace(idea.CTA),
			Title:           strings.TrimSpace(idea.Title),
			Theme:           pi.Theme,
		}),
	}
}

var validStatuses = map[string]bool{
	types.ContentStatusDraft:          true,
	types.ContentStatusInProduction:   true,
	types.ContentStatusReadyForReview: true,
	types.ContentStatusApproved:       true,
	types.ContentStatusFailed:         true,
}

func IsValidStatus(s string) bool { return validStatuses[s] }

// validateItem checks the enum and required fields of an item about to be
// written.
func validateItem(item *types.ContentItem) error {
	var problems []string
	if strings.TrimSpace(item.ContentID) == "" {
		problems = append(problems, "content_id is blank")
	}
	if strings.TrimSpace(item.ContentName) == "" {
		problems = append(problems, "content_name is blank")
	}
	if !IsValidPilar(item.Pilar) {
		problems = append(problems, fmt.Sprintf("pilar %q", item.Pilar))
	}
	if !IsValidTemplate(item.Template) {
		problems = append(problems, fmt.Sprintf("template %q", item.Template))
	}
	if !IsValidStatus(item.Status) {
		problems = append(problems, fmt.Sprintf("status %q", item.Status))
	}
	switch item.VideoSource {
	case types.VideoSourceNone, types.VideoSourceExternal, types.VideoSourceKling:
	default:
		problems = append(problems, fmt.Sprintf("video_source %q", item.VideoSource))
	}
	if item.Week < 1 || item.Week > WeeksPerPlan {
		problems = append(problems, fmt.Sprintf("week %d", item.Week))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidContentItem, strings.Join(problems, "; "))
	}
	return nil
}
