package strategy

import (
	"errors"
	"testing"
)

func TestParseStrategyResponse(t *testing.T) {
	fenced := "```json\n{\"weekly_plan\": [], \"frequency_per_week\": 3}\n```"
	raw, err := ParseStrategyResponse(fenced)
	if err != nil {
		t.Fatalf("fenced response: %v", err)
	}
	if string(raw) != `{"weekly_plan": [], "frequency_per_week": 3}` {
		t.Fatalf("raw = %s", raw)
	}

	if _, err := ParseStrategyResponse("Sure! Here is the plan: {\"weekly_plan\": [], \"frequency_per_week\": 3} Enjoy."); err != nil {
		t.Fatalf("prose-wrapped response: %v", err)
	}
	if _, err := ParseStrategyResponse("I cannot help with that."); !errors.Is(err, ErrMalformedModelOutput) {
		t.Fatalf("expected ErrMalformedModelOutput, got %v", err)
	}
	if _, err := ParseStrategyResponse(`{"weekly_plan": [`); !errors.Is(err, ErrMalformedModelOutput) {
		t.Fatalf("expected ErrMalformedModelOutput for truncated JSON, got %v", err)
	}
	if _, err := ParseStrategyResponse(`{"frequency_per_week": 3}`); !errors.Is(err, ErrMissingRootKey) {
		t.Fatalf("expected ErrMissingRootKey, got %v", err)
	}
}

func TestParseRefinementResponse(t *testing.T) {
	resp, err := ParseRefinementResponse(`{"items": [
		{"id": "a", "status": "approved"},
		{"content_id": "b", "post_description": ""},
		{"status": "draft"},
		"junk"
	]}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[0].Key() != "a" || resp.Items[1].Key() != "b" {
		t.Fatalf("items = %+v", resp.Items)
	}
	if resp.Items[1].PostDescription == nil || *resp.Items[1].PostDescription != "" {
		t.Fatalf("present-but-empty post_description should be kept")
	}
	if resp.Items[0].PostDescription != nil {
		t.Fatalf("absent post_description should stay nil")
	}
	if len(resp.Rejected) != 2 || resp.Rejected[0] != 2 || resp.Rejected[1] != 3 {
		t.Fatalf("rejected = %v", resp.Rejected)
	}

	if _, err := ParseRefinementResponse(`{"weekly_plan": []}`); !errors.Is(err, ErrMissingRootKey) {
		t.Fatalf("expected ErrMissingRootKey, got %v", err)
	}
}

func TestDecodePayloadDropsMalformedParts(t *testing.T) {
	raw := []byte(`{
		"month": "2025-3",
		"frequency_per_week": 3,
		"monthly_themes": "strength\nmobility",
		"content_distribution": {"C": {"goal": "reach", "ideas": [{"id": "x", "title": "ok"}, 42]}},
		"weekly_plan": [null, {"ideas": [{"id": "y"}]}, "bad", {"ideas": null}]
	}`)
	p, notes, err := DecodePayload(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.WeeklyPlan) != 4 || len(p.WeeklyPlan[1].Ideas) != 1 || len(p.WeeklyPlan[2].Ideas) != 0 {
		t.Fatalf("weekly_plan = %+v", p.WeeklyPlan)
	}
	if len(p.ContentDistribution["C"].Ideas) != 1 {
		t.Fatalf("distribution = %+v", p.ContentDistribution)
	}
	if len(p.MonthlyThemes) != 2 {
		t.Fatalf("themes = %v", p.MonthlyThemes)
	}
	if len(notes) != 2 {
		t.Fatalf("notes = %v", notes)
	}
}
