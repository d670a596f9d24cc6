package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

const narrationBeats = 7

const sourceRefinement = "refinement"

// RefinedItem is one finished post returned by the refinement model call.
// Pointer and raw fields distinguish "absent" from "empty".
type RefinedItem struct {
	ID              string          `json:"id"`
	ContentID       string          `json:"content_id"`
	OriginID        string          `json:"origin_id"`
	ContentName     string          `json:"content_name"`
	Status          string          `json:"status"`
	Platform        string          `json:"platform"`
	Template        string          `json:"template"`
	VideoSource     string          `json:"video_source"`
	Pilar           string          `json:"pilar"`
	PostDescription *string         `json:"post_description"`
	TextBase        *string         `json:"text_base"`
	Hashtags        StringList      `json:"hashtags"`
	Shotplan        json.RawMessage `json:"shotplan"`
	Assets          json.RawMessage `json:"assets"`
	Meta            json.RawMessage `json:"meta"`
}

// Key is content_id when present, else id.
func (r RefinedItem) Key() string {
	if k := strings.TrimSpace(r.ContentID); k != "" {
		return k
	}
	return strings.TrimSpace(r.ID)
}

type RefinementResult struct {
	Updated []*types.ContentItem
	Created []*types.ContentItem
	Skipped []string
}

func (r *RefinementResult) Items() []*types.ContentItem {
	out := make([]*types.ContentItem, 0, len(r.Updated)+len(r.Created))
	out = append(out, r.Updated...)
	return append(out, r.Created...)
}

type ContentRefinementUpserter struct {
	db    *gorm.DB
	items ContentItemStore
	names nameResolver
	log   *logger.Logger
}

func NewContentRefinementUpserter(db *gorm.DB, items ContentItemStore, baseLog *logger.Logger) *ContentRefinementUpserter {
	return &ContentRefinementUpserter{
		db:    db,
		items: items,
		names: nameResolver{names: items, now: time.Now},
		log:   baseLog.With("component", "ContentRefinementUpserter"),
	}
}

// Refine applies refined items onto the plan's content items, matching on
// content_id and then origin_id. Items that fail are skipped; the error is
// only set when the transaction itself fails.
func (u *ContentRefinementUpserter) Refine(ctx context.Context, plan *types.StrategyPlan, refined []RefinedItem) (*RefinementResult, error) {
	ctx, span := tracer.Start(ctx, "strategy.refine")
	defer span.End()
	span.SetAttributes(
		attribute.String("strategy_plan_id", plan.ID.String()),
		attribute.Int("refined.items", len(refined)),
	)

	snap := DecodeBrandSnapshot(plan.BrandSnapshot)
	var res *RefinementResult
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res = &RefinementResult{}
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		for i, ri := range refined {
			sp := fmt.Sprintf("refined_item_%d", i)
			if err := tx.SavePoint(sp).Error; err != nil {
				return err
			}
			item, created, err := u.upsertOne(dbc, plan, snap, ri)
			if err != nil {
				if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
					return rbErr
				}
				u.log.Error("refined item failed",
					"key", ri.Key(),
					"origin_id", ri.OriginID,
					"content_name", ri.ContentName,
					"status", ri.Status,
					"template", ri.Template,
					"error", err,
				)
				res.Skipped = append(res.Skipped, ri.Key())
				continue
			}
			if created {
				res.Created = append(res.Created, item)
			} else {
				res.Updated = append(res.Updated, item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refine strategy plan %s: %w", plan.ID, err)
	}
	u.log.Info("refinement complete",
		"strategy_plan_id", plan.ID,
		"updated", len(res.Updated),
		"created", len(res.Created),
		"skipped", len(res.Skipped),
	)
	return res, nil
}

func (u *ContentRefinementUpserter) upsertOne(dbc dbctx.Context, plan *types.StrategyPlan, snap BrandSnapshot, ri RefinedItem) (*types.ContentItem, bool, error) {
	key := ri.Key()
	if key == "" {
		return nil, false, fmt.Errorf("%w: refined item has no id", ErrInvalidContentItem)
	}
	contentID, item, err := resolveContentID(dbc, u.items, plan.ID, key)
	if err != nil {
		return nil, false, err
	}
	if item == nil {
		origin := strings.TrimSpace(ri.OriginID)
		if origin == "" {
			origin = key
		}
		if item, err = u.items.GetByOriginID(dbc, plan.ID, origin); err != nil {
			return nil, false, err
		}
	}

	created := item == nil
	if created {
		item = itemFromRefined(plan, snap, key, ri)
		item.ContentID = contentID
	}
	if err := u.apply(item, ri); err != nil {
		return item, created, err
	}
	if created || strings.TrimSpace(ri.ContentName) != "" {
		base := strings.TrimSpace(ri.ContentName)
		if base == "" {
			base = item.ContentName
		}
		name, err := u.names.resolve(dbc, base, nameScope{
			BrandID:   plan.BrandID,
			Month:     plan.Month,
			Pilar:     item.Pilar,
			Week:      item.Week,
			ContentID: item.ContentID,
		})
		if err != nil {
			return item, created, err
		}
		item.ContentName = name
	}
	if err := validateItem(item); err != nil {
		return item, created, err
	}
	if created {
		return item, true, u.items.Create(dbc, item)
	}
	return item, false, u.items.Save(dbc, item)
}

// itemFromRefined builds a draft row for a refined item nothing matched.
func itemFromRefined(plan *types.StrategyPlan, snap BrandSnapshot, key string, ri RefinedItem) *types.ContentItem {
	week, index := slotFromID(key)
	if week == 0 {
		week, index = 1, 1
	}
	idea := Idea{
		ID:                  key,
		Title:               ri.ContentName,
		Platform:            ri.Platform,
		Pilar:               ri.Pilar,
		RecommendedTemplate: ri.Template,
		VideoSource:         ri.VideoSource,
	}
	item := buildItem(plan, snap, plannedIdea{
		Idea:      idea,
		Week:      week,
		WeekIndex: index,
		Day:       dayOfWeek(index, plan.FrequencyPerWeek),
		Pilar:     ideaPilar(idea, ""),
		Source:    sourceRefinement,
	})
	if o := strings.TrimSpace(ri.OriginID); o != "" {
		item.OriginID = o
	}
	return item
}

// apply overwrites the fields the refined item carries and leaves the rest.
func (u *ContentRefinementUpserter) apply(item *types.ContentItem, ri RefinedItem) error {
	if s := strings.TrimSpace(ri.Status); s != "" {
		status := strings.ReplaceAll(strings.ToLower(s), " ", "_")
		if IsValidStatus(status) {
			item.Status = status
		} else {
			u.log.Warn("invalid refined status ignored",
				"content_id", item.ContentID,
				"status", ri.Status,
				"kept", item.Status,
			)
		}
	}
	if strings.TrimSpace(ri.Platform) != "" {
		item.Platform = NormalizePlatform(ri.Platform)
		item.ContentType = contentTypeFor(item.Platform)
		item.AspectRatio = aspectRatioFor(item.Platform)
	}
	if strings.TrimSpace(ri.Template) != "" {
		item.Template = NormalizeTemplate(ri.Template)
	}
	if strings.TrimSpace(ri.VideoSource) != "" {
		item.VideoSource = normalizeVideoSource(ri.VideoSource)
	}
	if p := NormalizePilar(ri.Pilar); p != "" {
		item.Pilar = p
	}
	if ri.PostDescription != nil {
		item.PostDescription = strings.TrimSpace(*ri.PostDescription)
	}
	if ri.TextBase != nil {
		item.TextBase = strings.TrimSpace(*ri.TextBase)
	}
	if ri.Hashtags != nil {
		item.Hashtags = jsonColumn(normalizeHashtags(ri.Hashtags))
	}

	var err error
	if item.Shotplan, err = mergeObject(item.Shotplan, ri.Shotplan, "shotplan"); err != nil {
		return err
	}
	if item.Assets, err = mergeObject(item.Assets, ri.Assets, "assets"); err != nil {
		return err
	}
	if item.Meta, err = mergeObject(item.Meta, ri.Meta, "meta"); err != nil {
		return err
	}
	if item.Template == types.TemplateNarrationOver7Images {
		item.Shotplan = fitBeats(item.Shotplan, narrationBeats)
	}
	return nil
}

// mergeObject overwrites the top-level keys of base with those in patch.
func mergeObject(base datatypes.JSON, patch json.RawMessage, field string) (datatypes.JSON, error) {
	if isNull(patch) {
		return base, nil
	}
	var p map[string]json.RawMessage
	if err := json.Unmarshal(patch, &p); err != nil {
		return base, fmt.Errorf("%w: %s is not an object", ErrInvalidContentItem, field)
	}
	merged := map[string]json.RawMessage{}
	if len(base) > 0 {
		_ = json.Unmarshal(base, &merged)
		if merged == nil {
			merged = map[string]json.RawMessage{}
		}
	}
	for k, v := range p {
		merged[k] = v
	}
	b, err := json.Marshal(merged)
	if err != nil {
		return base, err
	}
	return datatypes.JSON(b), nil
}

// fitBeats truncates or pads shotplan.beats to exactly n, renumbering them.
func fitBeats(shotplan datatypes.JSON, n int) datatypes.JSON {
	root := map[string]json.RawMessage{}
	if len(shotplan) > 0 {
		_ = json.Unmarshal(shotplan, &root)
		if root == nil {
			root = map[string]json.RawMessage{}
		}
	}
	var rawBeats []json.RawMessage
	_ = json.Unmarshal(root["beats"], &rawBeats)

	beats := make([]Beat, 0, n)
	for _, rb := range rawBeats {
		if len(beats) == n {
			break
		}
		beats = append(beats, decodeBeat(rb))
	}
	for len(beats) < n {
		beats = append(beats, Beat{Description: fmt.Sprintf("Image %d", len(beats)+1)})
	}
	for i := range beats {
		beats[i].Index = i + 1
		if beats[i].Duration == "" {
			beats[i].Duration = beatDuration
		}
	}
	b, _ := json.Marshal(beats)
	root["beats"] = b
	if _, ok := root["scenes"]; !ok {
		root["scenes"] = json.RawMessage("[]")
	}
	out, _ := json.Marshal(root)
	return datatypes.JSON(out)
}

func decodeBeat(raw json.RawMessage) Beat {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Beat{Description: looseText(raw)}
	}
	b := Beat{Description: looseText(raw)}
	if d, ok := fields["duration"].(string); ok {
		b.Duration = strings.TrimSpace(d)
	}
	return b
}

// slotFromID returns the week and index encoded in an idea id, or zeros.
func slotFromID(id string) (int, int) {
	m := weekSlotRe.FindStringSubmatch(id)
	if m == nil {
		return 0, 0
	}
	w, _ := strconv.Atoi(m[1])
	i, _ := strconv.Atoi(m[2])
	if w < 1 || w > WeeksPerPlan || i < 1 {
		return 0, 0
	}
	return w, i
}
