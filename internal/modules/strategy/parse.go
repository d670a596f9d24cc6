package strategy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedModelOutput means the model response is not a JSON object.
	ErrMalformedModelOutput = errors.New("model output is not valid JSON")
	// ErrMissingRootKey means the response decoded but lacks a mandatory top-level key.
	ErrMissingRootKey = errors.New("model output is missing a required root key")
	// ErrInvalidContentItem wraps per-item validation failures.
	ErrInvalidContentItem = errors.New("invalid content item")
)

// extractJSONObject strips markdown fences and surrounding prose from a
// model response and returns the outermost JSON object.
func extractJSONObject(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			// drop the language tag line ("json", "JSON", ...)
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if !strings.HasPrefix(s, "{") {
		start := strings.IndexByte(s, '{')
		end := strings.LastIndexByte(s, '}')
		if start < 0 || end <= start {
			return nil, ErrMalformedModelOutput
		}
		s = s[start : end+1]
	}
	b := []byte(s)
	if !json.Valid(b) {
		return nil, ErrMalformedModelOutput
	}
	return b, nil
}

func rootObject(raw string) (json.RawMessage, map[string]json.RawMessage, error) {
	b, err := extractJSONObject(raw)
	if err != nil {
		return nil, nil, err
	}
	var root map[string]json.RawMessage
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}
	return b, root, nil
}

// ParseStrategyResponse checks a strategy generation response and returns the
// JSON object it contains. Shape repair is left to the validator.
func ParseStrategyResponse(raw string) (json.RawMessage, error) {
	b, root, err := rootObject(raw)
	if err != nil {
		return nil, err
	}
	for _, k := range []string{"weekly_plan", "frequency_per_week"} {
		if _, ok := root[k]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingRootKey, k)
		}
	}
	return b, nil
}

// RefinementResponse is the decoded refinement output. Rejected holds the
// positions of items that had no usable key.
type RefinementResponse struct {
	Items    []RefinedItem
	Rejected []int
}

// ParseRefinementResponse decodes a refinement response. Items that cannot be
// decoded or carry neither id nor content_id are rejected, not fatal.
func ParseRefinementResponse(raw string) (*RefinementResponse, error) {
	_, root, err := rootObject(raw)
	if err != nil {
		return nil, err
	}
	itemsRaw, ok := root["items"]
	if !ok {
		return nil, fmt.Errorf("%w: items", ErrMissingRootKey)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(itemsRaw, &elems); err != nil {
		return nil, fmt.Errorf("%w: items is not an array", ErrMalformedModelOutput)
	}
	out := &RefinementResponse{Items: make([]RefinedItem, 0, len(elems))}
	for i, e := range elems {
		var it RefinedItem
		if err := json.Unmarshal(e, &it); err != nil || it.Key() == "" {
			out.Rejected = append(out.Rejected, i)
			continue
		}
		out.Items = append(out.Items, it)
	}
	return out, nil
}

// DecodePayload decodes a strategy object leniently: a malformed week, idea
// or distribution bucket is dropped instead of failing the whole payload.
// The returned notes describe what was dropped.
func DecodePayload(raw json.RawMessage) (*Payload, []string, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}
	var notes []string
	p := &Payload{}
	decodeField(root, "month", &p.Month, &notes)
	decodeField(root, "objective_of_the_month", &p.ObjectiveOfTheMonth, &notes)
	decodeField(root, "frequency_per_week", &p.FrequencyPerWeek, &notes)
	var themes StringList
	decodeField(root, "monthly_themes", &themes, &notes)
	p.MonthlyThemes = themes

	if dist, ok := root["content_distribution"]; ok && !isNull(dist) {
		var buckets map[string]json.RawMessage
		if err := json.Unmarshal(dist, &buckets); err != nil {
			notes = append(notes, "content_distribution is not an object")
		} else {
			p.ContentDistribution = make(map[string]PillarBucket, len(buckets))
			for code, b := range buckets {
				bucket, bn := decodeBucket(b)
				notes = append(notes, prefixNotes("content_distribution."+code, bn)...)
				p.ContentDistribution[code] = bucket
			}
		}
	}

	if wp, ok := root["weekly_plan"]; ok && !isNull(wp) {
		var weeks []json.RawMessage
		if err := json.Unmarshal(wp, &weeks); err != nil {
			notes = append(notes, "weekly_plan is not an array")
		} else {
			p.WeeklyPlan = make([]Week, len(weeks))
			for i, w := range weeks {
				week, wn := decodeWeek(w)
				notes = append(notes, prefixNotes(fmt.Sprintf("weekly_plan[%d]", i), wn)...)
				p.WeeklyPlan[i] = week
			}
		}
	}
	return p, notes, nil
}

func decodeField(root map[string]json.RawMessage, key string, dst any, notes *[]string) {
	v, ok := root[key]
	if !ok || isNull(v) {
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		*notes = append(*notes, key+" has an unexpected type")
	}
}

func decodeWeek(raw json.RawMessage) (Week, []string) {
	var shell struct {
		Week  json.RawMessage   `json:"week"`
		Theme string            `json:"theme"`
		Focus string            `json:"focus"`
		Ideas []json.RawMessage `json:"ideas"`
	}
	if isNull(raw) {
		return Week{}, nil
	}
	if err := json.Unmarshal(raw, &shell); err != nil {
		return Week{}, []string{"week is not an object"}
	}
	w := Week{Theme: shell.Theme, Focus: shell.Focus}
	if len(shell.Week) > 0 {
		_ = json.Unmarshal(shell.Week, &w.Week)
	}
	ideas, notes := decodeIdeas(shell.Ideas)
	w.Ideas = ideas
	return w, notes
}

func decodeBucket(raw json.RawMessage) (PillarBucket, []string) {
	var shell struct {
		Goal  string            `json:"goal"`
		Ideas []json.RawMessage `json:"ideas"`
	}
	if isNull(raw) {
		return PillarBucket{}, nil
	}
	if err := json.Unmarshal(raw, &shell); err != nil {
		return PillarBucket{}, []string{"bucket is not an object"}
	}
	ideas, notes := decodeIdeas(shell.Ideas)
	return PillarBucket{Goal: shell.Goal, Ideas: ideas}, notes
}

func decodeIdeas(elems []json.RawMessage) ([]Idea, []string) {
	var notes []string
	out := make([]Idea, 0, len(elems))
	for i, e := range elems {
		var idea Idea
		if err := json.Unmarshal(e, &idea); err != nil || isNull(e) {
			notes = append(notes, fmt.Sprintf("ideas[%d] dropped", i))
			continue
		}
		out = append(out, idea)
	}
	return out, notes
}

func prefixNotes(prefix string, notes []string) []string {
	for i := range notes {
		notes[i] = prefix + ": " + notes[i]
	}
	return notes
}

func isNull(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
