package strategy

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestIdeaDecodesLooseLists(t *testing.T) {
	raw := `{
		"id": "202503-iron-club-C-w2-i1",
		"title": "Leg day",
		"beats_outline": "- warm up\n- squats\n\n- stretch",
		"hashtags": ["#legs", {"text": "#gym"}, null],
		"assets_hints": {"video_prompts": [{"prompt": "barbell close-up"}]}
	}`
	var got Idea
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want := (StringList{"warm up", "squats", "stretch"}); !reflect.DeepEqual(got.BeatsOutline, want) {
		t.Fatalf("beats_outline = %#v, want %#v", got.BeatsOutline, want)
	}
	if want := (StringList{"#legs", "#gym"}); !reflect.DeepEqual(got.Hashtags, want) {
		t.Fatalf("hashtags = %#v, want %#v", got.Hashtags, want)
	}
	if len(got.AssetsHints.VideoPrompts) != 1 || got.AssetsHints.VideoPrompts[0] != "barbell close-up" {
		t.Fatalf("video_prompts = %#v", got.AssetsHints.VideoPrompts)
	}
}

func TestIdeaIDHelpers(t *testing.T) {
	pillarMajor := "202503-iron-club-R-w3-i2"
	weekMajor := "202503-iron-club-w4-i1-S"
	if !IsIdeaID(pillarMajor) || !IsIdeaID(weekMajor) {
		t.Fatalf("expected both id shapes to match")
	}
	if IsIdeaID("iron-club-w1") {
		t.Fatalf("unexpected match for partial id")
	}
	if WeekFromID(pillarMajor) != 3 || WeekFromID(weekMajor) != 4 || WeekFromID("nope") != 0 {
		t.Fatalf("WeekFromID mismatch")
	}
	if PilarFromID(pillarMajor) != "R" || PilarFromID(weekMajor) != "S" {
		t.Fatalf("PilarFromID mismatch")
	}
	if got, ok := WithWeekSlot(pillarMajor, 3, 7); !ok || got != "202503-iron-club-R-w3-i7" {
		t.Fatalf("WithWeekSlot = %q %v", got, ok)
	}
	if got := BuildIdeaID("2025-3", "Iron Club", "e", 1, 4); got != "202503-iron-club-E-w1-i4" {
		t.Fatalf("BuildIdeaID = %q", got)
	}
}

func TestParseMonth(t *testing.T) {
	for _, in := range []string{"2025-3", "2025-03", "2025/3"} {
		if CanonicalMonth(in) != "2025-3" || MonthCode(in) != "202503" {
			t.Fatalf("month %q: canonical=%q code=%q", in, CanonicalMonth(in), MonthCode(in))
		}
	}
	if _, ok := ParseMonth("March"); ok {
		t.Fatalf("expected parse failure")
	}
	if MonthLabel("2025-3") != "March2025" {
		t.Fatalf("MonthLabel = %q", MonthLabel("2025-3"))
	}
}

func TestDayOfWeekAndSchedule(t *testing.T) {
	days := []int{dayOfWeek(1, 3), dayOfWeek(2, 3), dayOfWeek(3, 3)}
	if !reflect.DeepEqual(days, []int{1, 3, 5}) {
		t.Fatalf("days = %v", days)
	}
	if dayOfWeek(7, 7) != 7 || dayOfWeek(9, 7) != 7 {
		t.Fatalf("days should clamp to Sunday")
	}
	// 2025-03-01 is a Saturday; the first Monday on or after it is the 3rd.
	d := scheduledDate("2025-3", 1, 1)
	if d == nil || d.Day() != 3 {
		t.Fatalf("scheduledDate week 1 Monday = %v", d)
	}
	d = scheduledDate("2025-3", 2, 6)
	if d == nil || d.Day() != 8 {
		t.Fatalf("scheduledDate week 2 Saturday = %v", d)
	}
}
