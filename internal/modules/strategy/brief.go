package strategy

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/contentplan-backend/internal/domain"
)

// BrandSnapshot freezes the brand attributes a plan was generated against.
type BrandSnapshot struct {
	BrandID          uuid.UUID `json:"brand_id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Industry         string    `json:"industry,omitempty"`
	Audience         string    `json:"audience,omitempty"`
	Tone             string    `json:"tone,omitempty"`
	Language         string    `json:"language"`
	Platforms        []string  `json:"platforms"`
	Objective        string    `json:"objective,omitempty"`
	Month            string    `json:"month"`
	FrequencyPerWeek int       `json:"frequency_per_week"`
	CapturedAt       time.Time `json:"captured_at"`
}

// BuildBrandSnapshot is synchronous and does no I/O.
func BuildBrandSnapshot(brand *types.Brand, month, objective string, frequency int, now time.Time) BrandSnapshot {
	snap := BrandSnapshot{
		BrandID:          brand.ID,
		Name:             strings.TrimSpace(brand.Name),
		Slug:             brand.Slug,
		Industry:         brand.Industry,
		Audience:         brand.Audience,
		Tone:             brand.Tone,
		Language:         brand.Language,
		Objective:        strings.TrimSpace(objective),
		Month:            CanonicalMonth(month),
		FrequencyPerWeek: frequency,
		CapturedAt:       now.UTC(),
	}
	if snap.Slug == "" {
		snap.Slug = Slugify(brand.Name)
	}
	if snap.Language == "" {
		snap.Language = "en"
	}
	if len(brand.Platforms) > 0 {
		_ = json.Unmarshal(brand.Platforms, &snap.Platforms)
	}
	for i, p := range snap.Platforms {
		snap.Platforms[i] = NormalizePlatform(p)
	}
	if len(snap.Platforms) == 0 {
		snap.Platforms = []string{"Instagram"}
	}
	return snap
}

func DecodeBrandSnapshot(raw datatypes.JSON) BrandSnapshot {
	var snap BrandSnapshot
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &snap)
	}
	return snap
}

// PlanPayloadJSON assembles the plan's JSON columns into one strategy object.
func PlanPayloadJSON(plan *types.StrategyPlan) json.RawMessage {
	month, _ := json.Marshal(plan.Month)
	objective, _ := json.Marshal(plan.ObjectiveOfTheMonth)
	freq, _ := json.Marshal(plan.FrequencyPerWeek)
	root := map[string]json.RawMessage{
		"month":                  month,
		"objective_of_the_month": objective,
		"frequency_per_week":     freq,
		"monthly_themes":         rawOr(plan.MonthlyThemes, "[]"),
		"content_distribution":   rawOr(plan.ContentDistribution, "{}"),
		"weekly_plan":            rawOr(plan.WeeklyPlan, "[]"),
	}
	b, _ := json.Marshal(root)
	return b
}

func PayloadFromPlan(plan *types.StrategyPlan) (*Payload, error) {
	p, _, err := DecodePayload(PlanPayloadJSON(plan))
	return p, err
}

func rawOr(col datatypes.JSON, def string) json.RawMessage {
	if len(col) == 0 || !json.Valid(col) {
		return json.RawMessage(def)
	}
	return json.RawMessage(col)
}
