package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// WeeksPerPlan is fixed: a monthly plan is always partitioned into four weeks.
const WeeksPerPlan = 4

// AssetsHints carries the model's production hints for one idea.
type AssetsHints struct {
	VideoPrompts       StringList `json:"video_prompts,omitempty"`
	BrollSuggestions   StringList `json:"broll_suggestions,omitempty"`
	ExternalVideoURL   string     `json:"external_video_url,omitempty"`
	ExternalVideoNotes string     `json:"external_video_notes,omitempty"`
}

// Idea is one proposed piece of content inside a strategy payload.
//
// Every field is optional on the wire. Defaults applied downstream:
//   - Platform: "Instagram"
//   - Pilar: taken from the id, then the distribution bucket, then "C"
//   - RecommendedTemplate: normalized, "only_avatars" when unknown
//   - VideoSource: "none" when not one of none|external|kling
type Idea struct {
	ID                  string      `json:"id"`
	Title               string      `json:"title"`
	Hook                string      `json:"hook,omitempty"`
	Description         string      `json:"description,omitempty"`
	CTA                 string      `json:"cta,omitempty"`
	Platform            string      `json:"platform,omitempty"`
	Pilar               string      `json:"pilar,omitempty"`
	RecommendedTemplate string      `json:"recommended_template,omitempty"`
	VideoSource         string      `json:"video_source,omitempty"`
	BeatsOutline        StringList  `json:"beats_outline,omitempty"`
	AssetsHints         AssetsHints `json:"assets_hints"`
	Hashtags            StringList  `json:"hashtags,omitempty"`
	KPIFocus            string      `json:"kpi_focus,omitempty"`
	SuccessCriteria     string      `json:"success_criteria,omitempty"`
}

// Week is one element of weekly_plan.
type Week struct {
	Week  int    `json:"week,omitempty"`
	Theme string `json:"theme,omitempty"`
	Focus string `json:"focus,omitempty"`
	Ideas []Idea `json:"ideas"`
}

// PillarBucket is one entry of content_distribution.
type PillarBucket struct {
	Goal  string `json:"goal,omitempty"`
	Ideas []Idea `json:"ideas"`
}

// Payload is the typed view of a strategy response or an assembled plan.
type Payload struct {
	Month               string                  `json:"month"`
	ObjectiveOfTheMonth string                  `json:"objective_of_the_month,omitempty"`
	FrequencyPerWeek    int                     `json:"frequency_per_week"`
	MonthlyThemes       []string                `json:"monthly_themes,omitempty"`
	ContentDistribution map[string]PillarBucket `json:"content_distribution,omitempty"`
	WeeklyPlan          []Week                  `json:"weekly_plan"`
}

// StringList decodes a JSON array of strings, an array of objects with a
// text-like field, or a single newline separated string.
type StringList []string

func (s *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	switch b[0] {
	case '"':
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = splitLines(one)
		return nil
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(b, &elems); err != nil {
			return err
		}
		out := make([]string, 0, len(elems))
		for _, e := range elems {
			if v := looseText(e); v != "" {
				out = append(out, v)
			}
		}
		*s = out
		return nil
	default:
		if v := looseText(b); v != "" {
			*s = []string{v}
		}
		return nil
	}
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

var textKeys = []string{"description", "text", "beat", "prompt", "title", "name", "value"}

func looseText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		_ = json.Unmarshal(raw, &s)
		return strings.TrimSpace(s)
	case '{':
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return ""
		}
		for _, k := range textKeys {
			if v, ok := m[k].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	case 'n':
		return ""
	default:
		return strings.TrimSpace(string(raw))
	}
}

// Pillar describes one of the five strategy categories.
type Pillar struct {
	Code    string
	Name    string
	Context string
	KPI     string
}

var pillarOrder = []string{"C", "R", "E", "A", "S"}

var pillars = map[string]Pillar{
	"C": {Code: "C", Name: "Content", Context: "Content/Growth", KPI: "reach"},
	"R": {Code: "R", Name: "Retention", Context: "Retention", KPI: "saves"},
	"E": {Code: "E", Name: "Entertainment", Context: "Entertainment/Scalability", KPI: "shares"},
	"A": {Code: "A", Name: "Activation", Context: "Activation/Advertising", KPI: "clicks"},
	"S": {Code: "S", Name: "Satisfaction", Context: "Satisfaction/Sales", KPI: "conversions"},
}

// PillarFor returns the pillar for a code, defaulting to C.
func PillarFor(code string) Pillar {
	if p, ok := pillars[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return p
	}
	return pillars["C"]
}

// NormalizePilar returns a valid pillar code or "" when none can be derived.
func NormalizePilar(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	if _, ok := pillars[raw]; ok {
		return raw
	}
	if _, ok := pillars[raw[:1]]; ok {
		return raw[:1]
	}
	return ""
}

func IsValidPilar(code string) bool {
	_, ok := pillars[code]
	return ok
}

var (
	pillarMajorIDRe = regexp.MustCompile(`^(\d{6})-([\w-]+)-([CREAS])-w(\d)-i(\d+)$`)
	weekMajorIDRe   = regexp.MustCompile(`^(\d{6})-([\w-]+)-w(\d)-i(\d+)-([CREAS])$`)
	weekSlotRe      = regexp.MustCompile(`w(\d+)-i(\d+)`)
)

// IsIdeaID reports whether id follows either wire pattern.
func IsIdeaID(id string) bool {
	return pillarMajorIDRe.MatchString(id) || weekMajorIDRe.MatchString(id)
}

// WeekFromID extracts the week number from an idea id, or 0.
func WeekFromID(id string) int {
	m := weekSlotRe.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	w, err := strconv.Atoi(m[1])
	if err != nil || w < 1 || w > WeeksPerPlan {
		return 0
	}
	return w
}

// PilarFromID extracts the pillar code from an idea id, or "".
func PilarFromID(id string) string {
	if m := pillarMajorIDRe.FindStringSubmatch(id); m != nil {
		return m[3]
	}
	if m := weekMajorIDRe.FindStringSubmatch(id); m != nil {
		return m[5]
	}
	return ""
}

// WithWeekSlot rewrites the w<week>-i<index> segment of id. ok is false when
// the id has no such segment.
func WithWeekSlot(id string, week, index int) (string, bool) {
	loc := weekSlotRe.FindStringIndex(id)
	if loc == nil {
		return "", false
	}
	return id[:loc[0]] + fmt.Sprintf("w%d-i%d", week, index) + id[loc[1]:], true
}

// BuildIdeaID renders the pillar-major id pattern.
func BuildIdeaID(month, brandSlug, pilar string, week, index int) string {
	slug := Slugify(brandSlug)
	if slug == "" {
		slug = "brand"
	}
	return fmt.Sprintf("%s-%s-%s-w%d-i%d", MonthCode(month), slug, PillarFor(pilar).Code, week, index)
}

// ParseMonth accepts "YYYY-M", "YYYY-MM" and "YYYY/M".
func ParseMonth(month string) (time.Time, bool) {
	month = strings.TrimSpace(strings.ReplaceAll(month, "/", "-"))
	parts := strings.SplitN(month, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	y, errY := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errY != nil || errM != nil || y < 1000 || m < 1 || m > 12 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC), true
}

// CanonicalMonth renders a month as "YYYY-M".
func CanonicalMonth(month string) string {
	t, ok := ParseMonth(month)
	if !ok {
		return strings.TrimSpace(month)
	}
	return fmt.Sprintf("%d-%d", t.Year(), int(t.Month()))
}

// MonthCode renders the YYYYMM prefix used in idea ids.
func MonthCode(month string) string {
	t, ok := ParseMonth(month)
	if !ok {
		t = time.Now().UTC()
	}
	return t.Format("200601")
}

// MonthLabel renders e.g. "March2025", used for hashtags.
func MonthLabel(month string) string {
	t, ok := ParseMonth(month)
	if !ok {
		return strings.ReplaceAll(strings.TrimSpace(month), "-", "")
	}
	return fmt.Sprintf("%s%d", t.Month().String(), t.Year())
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every non alphanumeric run into "-".
func Slugify(s string) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(s, "-")
}
