package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

// WeekAdjustment records what the validator did to one week.
type WeekAdjustment struct {
	Week        int `json:"week"`
	Before      int `json:"before"`
	After       int `json:"after"`
	Duplicated  int `json:"duplicated,omitempty"`
	Synthesized int `json:"synthesized,omitempty"`
	Truncated   int `json:"truncated,omitempty"`
}

// ValidationReport is persisted on the plan as the validation audit record.
type ValidationReport struct {
	Target  int              `json:"target"`
	Weeks   []WeekAdjustment `json:"weeks,omitempty"`
	Counts  string           `json:"counts,omitempty"`
	Skipped bool             `json:"skipped"`
	Reason  string           `json:"reason,omitempty"`
	Notes   []string         `json:"notes,omitempty"`
}

// ValidationSkipped explains why a payload was passed through unrepaired.
type ValidationSkipped struct {
	Reason string
}

func (s *ValidationSkipped) Error() string { return "validation skipped: " + s.Reason }

// ValidationResult holds exactly one of Plan (repaired, every week has
// exactly Report.Target ideas) or Skipped (Raw is the untouched input and no
// count invariant holds).
type ValidationResult struct {
	Plan    *Payload
	Skipped *ValidationSkipped
	Raw     json.RawMessage
	Report  ValidationReport
}

func (r ValidationResult) Validated() bool { return r.Plan != nil }

type WeeklyDistributionValidator struct {
	log *logger.Logger
}

func NewWeeklyDistributionValidator(baseLog *logger.Logger) *WeeklyDistributionValidator {
	return &WeeklyDistributionValidator{log: baseLog.With("component", "WeeklyDistributionValidator")}
}

// Validate repairs raw so every week holds exactly frequency_per_week ideas.
// It never fails: a payload with the wrong shape comes back as Skipped.
func (v *WeeklyDistributionValidator) Validate(raw json.RawMessage, brandSlug string) ValidationResult {
	target, reason := checkShape(raw)
	if reason != "" {
		return v.skip(raw, reason)
	}
	payload, notes, err := DecodePayload(raw)
	if err != nil {
		return v.skip(raw, err.Error())
	}
	payload.FrequencyPerWeek = target

	used := map[string]bool{}
	for _, w := range payload.WeeklyPlan {
		for _, idea := range w.Ideas {
			if idea.ID != "" {
				used[idea.ID] = true
			}
		}
	}

	report := ValidationReport{Target: target, Notes: notes}
	counts := make([]string, 0, WeeksPerPlan)
	total := 0
	for i := range payload.WeeklyPlan {
		weekNo := i + 1
		week := &payload.WeeklyPlan[i]
		week.Week = weekNo
		adj := v.fitWeek(week, weekNo, target, payload.Month, brandSlug, used)
		if adj.Before != adj.After {
			v.log.Info("weekly distribution adjusted",
				"week", weekNo,
				"before", adj.Before,
				"after", adj.After,
				"duplicated", adj.Duplicated,
				"synthesized", adj.Synthesized,
				"truncated", adj.Truncated,
			)
		}
		report.Weeks = append(report.Weeks, adj)
		counts = append(counts, strconv.Itoa(adj.After))
		total += adj.After
	}
	report.Counts = fmt.Sprintf("%s (total: %d)", strings.Join(counts, "-"), total)
	v.log.Info("weekly distribution validated",
		"counts", report.Counts,
		"frequency_per_week", target,
	)
	return ValidationResult{Plan: payload, Raw: raw, Report: report}
}

func (v *WeeklyDistributionValidator) skip(raw json.RawMessage, reason string) ValidationResult {
	v.log.Warn("weekly distribution validation skipped", "reason", reason)
	return ValidationResult{
		Skipped: &ValidationSkipped{Reason: reason},
		Raw:     raw,
		Report:  ValidationReport{Skipped: true, Reason: reason},
	}
}

// checkShape returns the target frequency or a non-empty reason.
func checkShape(raw json.RawMessage) (int, string) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var root map[string]json.RawMessage
	if err := dec.Decode(&root); err != nil || root == nil {
		return 0, "payload is not a JSON object"
	}
	var weeks []json.RawMessage
	if err := json.Unmarshal(root["weekly_plan"], &weeks); err != nil || isNull(root["weekly_plan"]) {
		return 0, "weekly_plan is not an array"
	}
	if len(weeks) != WeeksPerPlan {
		return 0, fmt.Sprintf("weekly_plan has %d weeks, want %d", len(weeks), WeeksPerPlan)
	}
	var n json.Number
	fdec := json.NewDecoder(bytes.NewReader(root["frequency_per_week"]))
	fdec.UseNumber()
	if err := fdec.Decode(&n); err != nil {
		return 0, "frequency_per_week is not a number"
	}
	f, err := n.Int64()
	if err != nil || f <= 0 {
		return 0, fmt.Sprintf("frequency_per_week %q is not a positive integer", n.String())
	}
	return int(f), ""
}

func (v *WeeklyDistributionValidator) fitWeek(week *Week, weekNo, target int, month, brandSlug string, used map[string]bool) WeekAdjustment {
	ideas := week.Ideas
	adj := WeekAdjustment{Week: weekNo, Before: len(ideas)}
	switch {
	case len(ideas) > target:
		adj.Truncated = len(ideas) - target
		ideas = ideas[:target]
	case len(ideas) == 0:
		ideas = make([]Idea, 0, target)
		for k := 0; k < target; k++ {
			code := pillarOrder[k%len(pillarOrder)]
			id := freshIdeaID("", month, brandSlug, code, weekNo, k+1, used)
			ideas = append(ideas, placeholderIdea(id, code, weekNo))
		}
		adj.Synthesized = target
	case len(ideas) < target:
		originals := len(ideas)
		for n := 1; len(ideas) < target; n++ {
			src := ideas[(n-1)%originals]
			dup := cloneIdea(src)
			dup.Title = strings.TrimSpace(fmt.Sprintf("%s (Auto-generated %d)", src.Title, n))
			dup.ID = freshIdeaID(src.ID, month, brandSlug, ideaPilar(src, ""), weekNo, len(ideas)+1, used)
			ideas = append(ideas, dup)
			adj.Duplicated++
		}
	}
	week.Ideas = ideas
	adj.After = len(ideas)
	return adj
}

// freshIdeaID derives an unused week-scoped id, rewriting the w/i segment of
// src when it has one.
func freshIdeaID(src, month, brandSlug, pilar string, week, index int, used map[string]bool) string {
	for idx := index; ; idx++ {
		id, ok := WithWeekSlot(src, week, idx)
		if !ok {
			id = BuildIdeaID(month, brandSlug, pilar, week, idx)
		}
		if !used[id] {
			used[id] = true
			return id
		}
	}
}

func placeholderIdea(id, code string, week int) Idea {
	p := PillarFor(code)
	return Idea{
		ID:                  id,
		Title:               fmt.Sprintf("%s idea for week %d", p.Name, week),
		Hook:                fmt.Sprintf("A quick %s moment for week %d.", strings.ToLower(p.Name), week),
		Description:         fmt.Sprintf("Placeholder %s content to keep week %d on schedule.", p.Context, week),
		CTA:                 "Follow for more.",
		Platform:            "Instagram",
		Pilar:               p.Code,
		RecommendedTemplate: types.TemplateOnlyAvatars,
		VideoSource:         types.VideoSourceNone,
		KPIFocus:            p.KPI,
	}
}

func cloneIdea(src Idea) Idea {
	dup := src
	dup.BeatsOutline = slices.Clone(src.BeatsOutline)
	dup.Hashtags = slices.Clone(src.Hashtags)
	dup.AssetsHints.VideoPrompts = slices.Clone(src.AssetsHints.VideoPrompts)
	dup.AssetsHints.BrollSuggestions = slices.Clone(src.AssetsHints.BrollSuggestions)
	return dup
}

// ideaPilar resolves the pillar of an idea: explicit field, then id, then
// fallback, then C.
func ideaPilar(idea Idea, fallback string) string {
	if p := NormalizePilar(idea.Pilar); p != "" {
		return p
	}
	if p := PilarFromID(idea.ID); p != "" {
		return p
	}
	if p := NormalizePilar(fallback); p != "" {
		return p
	}
	return "C"
}
