package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/contentplan-backend/internal/modules/strategy")

// ContentItemStore is the persistence the pipeline needs. The gorm
// ContentItemRepo satisfies it.
type ContentItemStore interface {
	NameChecker
	Create(dbc dbctx.Context, item *types.ContentItem) error
	Save(dbc dbctx.Context, item *types.ContentItem) error
	GetByContentID(dbc dbctx.Context, contentID string) (*types.ContentItem, error)
	GetByOriginID(dbc dbctx.Context, planID uuid.UUID, originID string) (*types.ContentItem, error)
	ListByBrand(dbc dbctx.Context, brandID uuid.UUID) ([]*types.ContentItem, error)
	ListContentIDsByPlan(dbc dbctx.Context, planID uuid.UUID) ([]string, error)
}

// MaterializationResult is handed from the initial pass to the retry pass.
type MaterializationResult struct {
	Expected   []string
	Created    []*types.ContentItem
	MissingIDs []string
	Dropped    []string
}

// Persisted is the number of expected ids that ended up stored.
func (r *MaterializationResult) Persisted() int {
	return len(r.Expected) - len(r.Dropped)
}

func (r *MaterializationResult) Ratio() string {
	return fmt.Sprintf("%d/%d", r.Persisted(), len(r.Expected))
}

type Materializer struct {
	db       *gorm.DB
	items    ContentItemStore
	settings Settings
	names    nameResolver
	div      diversifier
	log      *logger.Logger
}

func NewMaterializer(db *gorm.DB, items ContentItemStore, settings Settings, baseLog *logger.Logger) *Materializer {
	return &Materializer{
		db:       db,
		items:    items,
		settings: settings,
		names:    nameResolver{names: items, now: time.Now},
		div:      diversifier{settings: settings},
		log:      baseLog.With("component", "ContentItemMaterializer"),
	}
}

// Materialize turns every idea of the plan into a content item. It reports
// infrastructure trouble through the result, not the error: the error is
// only set when the plan itself cannot be decoded.
func (m *Materializer) Materialize(ctx context.Context, plan *types.StrategyPlan) (*MaterializationResult, error) {
	ctx, span := tracer.Start(ctx, "strategy.materialize")
	defer span.End()
	span.SetAttributes(attribute.String("strategy_plan_id", plan.ID.String()))

	payload, err := PayloadFromPlan(plan)
	if err != nil {
		return nil, fmt.Errorf("decode strategy plan %s: %w", plan.ID, err)
	}
	snap := DecodeBrandSnapshot(plan.BrandSnapshot)
	ideas := collectIdeas(payload, plan.Month, snap.Slug, plan.FrequencyPerWeek)
	if len(ideas) == 0 {
		m.log.Warn("no ideas to materialize", "strategy_plan_id", plan.ID)
		return &MaterializationResult{}, nil
	}

	res := m.initialPass(ctx, plan, snap, ideas)
	res = m.retryMissing(ctx, plan, snap, ideas, res)

	span.SetAttributes(
		attribute.Int("content.expected", len(res.Expected)),
		attribute.Int("content.persisted", res.Persisted()),
	)
	m.log.Info("materialization complete",
		"strategy_plan_id", plan.ID,
		"created", res.Persisted(),
		"expected", len(res.Expected),
		"ratio", res.Ratio(),
		"retried", len(res.MissingIDs),
		"dropped", len(res.Dropped),
	)
	return res, nil
}

// initialPass writes every idea inside one transaction. A failing item is
// rolled back to its savepoint and left for the retry pass.
func (m *Materializer) initialPass(ctx context.Context, plan *types.StrategyPlan, snap BrandSnapshot, ideas []plannedIdea) *MaterializationResult {
	res := &MaterializationResult{Expected: make([]string, 0, len(ideas))}
	for _, pi := range ideas {
		res.Expected = append(res.Expected, pi.Idea.ID)
	}

	var created []*types.ContentItem
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		corpus, err := m.loadCorpus(dbc, plan, false)
		if err != nil {
			return err
		}
		for i, pi := range ideas {
			sp := fmt.Sprintf("content_item_%d", i)
			if err := tx.SavePoint(sp).Error; err != nil {
				return err
			}
			item, err := m.persistIdea(dbc, plan, snap, pi, corpus, 0)
			if err != nil {
				if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
					return rbErr
				}
				m.logItemFailure(item, err)
				continue
			}
			corpus.add(item)
			created = append(created, item)
		}
		return nil
	})
	if err != nil {
		m.log.Error("materialization transaction failed",
			"strategy_plan_id", plan.ID,
			"error", err,
		)
		created = nil
	}
	res.Created = created
	return res
}

// retryMissing compares expected ids with what is stored and retries each
// missing one in its own transaction, so a failure here cannot undo the
// initial pass.
func (m *Materializer) retryMissing(ctx context.Context, plan *types.StrategyPlan, snap BrandSnapshot, ideas []plannedIdea, res *MaterializationResult) *MaterializationResult {
	have := map[string]bool{}
	stored, err := m.items.ListContentIDsByPlan(dbctx.Context{Ctx: ctx}, plan.ID)
	if err != nil {
		m.log.Error("list persisted content ids failed", "strategy_plan_id", plan.ID, "error", err)
		for _, it := range res.Created {
			have[it.ContentID] = true
		}
	}
	for _, id := range stored {
		have[id] = true
	}

	for _, pi := range ideas {
		if have[pi.Idea.ID] || have[PlanScopedContentID(plan.ID, pi.Idea.ID)] {
			continue
		}
		res.MissingIDs = append(res.MissingIDs, pi.Idea.ID)
		item, ok := m.retryOne(ctx, plan, snap, pi)
		if ok {
			res.Created = append(res.Created, item)
			continue
		}
		res.Dropped = append(res.Dropped, pi.Idea.ID)
	}
	return res
}

func (m *Materializer) retryOne(ctx context.Context, plan *types.StrategyPlan, snap BrandSnapshot, pi plannedIdea) (*types.ContentItem, bool) {
	for attempt := 1; attempt <= m.settings.RetryAttempts; attempt++ {
		m.log.Info("retrying missing content item",
			"content_id", pi.Idea.ID,
			"attempt", attempt,
			"week", pi.Week,
		)
		var item *types.ContentItem
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			dbc := dbctx.Context{Ctx: ctx, Tx: tx}
			corpus, err := m.loadCorpus(dbc, plan, true)
			if err != nil {
				return err
			}
			item, err = m.persistIdea(dbc, plan, snap, pi, corpus, attempt+1)
			return err
		})
		if err != nil {
			m.log.Error("retry failed",
				"content_id", pi.Idea.ID,
				"attempt", attempt,
				"error", err,
			)
			continue
		}
		m.log.Info("retry succeeded",
			"content_id", pi.Idea.ID,
			"attempt", attempt,
			"content_name", item.ContentName,
		)
		return item, true
	}
	return nil, false
}

// persistIdea creates or updates the item for one idea. The returned item is
// non-nil even on error so the failure can be logged with its attributes.
func (m *Materializer) persistIdea(dbc dbctx.Context, plan *types.StrategyPlan, snap BrandSnapshot, pi plannedIdea, corpus *textCorpus, version int) (*types.ContentItem, error) {
	item := buildItem(plan, snap, pi)
	contentID, existing, err := resolveContentID(dbc, m.items, plan.ID, pi.Idea.ID)
	if err != nil {
		return item, err
	}
	item.ContentID = contentID
	if existing != nil {
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
		item.Status = existing.Status
	}

	name, err := m.names.resolve(dbc, item.ContentName, nameScope{
		BrandID:   plan.BrandID,
		Month:     plan.Month,
		Pilar:     item.Pilar,
		Week:      item.Week,
		ContentID: item.ContentID,
		Version:   version,
	})
	if err != nil {
		return item, err
	}
	item.ContentName = name
	m.div.apply(item, corpus, version)

	if err := validateItem(item); err != nil {
		return item, err
	}
	if existing != nil {
		return item, m.items.Save(dbc, item)
	}
	return item, m.items.Create(dbc, item)
}

// PlanScopedContentID is the content id used when the idea id is already
// taken by another plan, e.g. a brand of another owner with the same slug.
func PlanScopedContentID(planID uuid.UUID, ideaID string) string {
	return ideaID + "-p" + strings.ReplaceAll(planID.String(), "-", "")[:12]
}

// resolveContentID picks the content id for an idea of the plan and returns
// the row already stored under it, if any. The idea id is used while it is
// free or owned by this plan; otherwise the plan-scoped id.
func resolveContentID(dbc dbctx.Context, items ContentItemStore, planID uuid.UUID, ideaID string) (string, *types.ContentItem, error) {
	row, err := items.GetByContentID(dbc, ideaID)
	if err != nil {
		return ideaID, nil, err
	}
	if row != nil && row.StrategyPlanID == planID {
		return ideaID, row, nil
	}
	scoped := PlanScopedContentID(planID, ideaID)
	srow, err := items.GetByContentID(dbc, scoped)
	if err != nil {
		return scoped, nil, err
	}
	if srow != nil {
		if srow.StrategyPlanID != planID {
			return scoped, nil, fmt.Errorf("%w: content_id %s belongs to strategy plan %s", ErrInvalidContentItem, scoped, srow.StrategyPlanID)
		}
		return scoped, srow, nil
	}
	if row == nil {
		return ideaID, nil, nil
	}
	return scoped, nil, nil
}

// loadCorpus gathers brand texts for similarity checks. Items of the plan
// being materialized are included only when includePlan is set.
func (m *Materializer) loadCorpus(dbc dbctx.Context, plan *types.StrategyPlan, includePlan bool) (*textCorpus, error) {
	rows, err := m.items.ListByBrand(dbc, plan.BrandID)
	if err != nil {
		return nil, err
	}
	c := &textCorpus{}
	for _, r := range rows {
		if r.StrategyPlanID == plan.ID && !includePlan {
			continue
		}
		c.add(r)
	}
	return c, nil
}

func (m *Materializer) logItemFailure(item *types.ContentItem, err error) {
	if item == nil {
		m.log.Error("content item failed", "error", err)
		return
	}
	m.log.Error("content item failed",
		"content_id", item.ContentID,
		"content_name", item.ContentName,
		"week", item.Week,
		"week_index", item.WeekIndex,
		"pilar", item.Pilar,
		"template", item.Template,
		"video_source", item.VideoSource,
		"status", item.Status,
		"platform", item.Platform,
		"error", err,
	)
}
