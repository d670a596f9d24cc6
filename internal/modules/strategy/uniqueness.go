package strategy

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
)

// NameChecker answers whether a content name is already used in a brand.
type NameChecker interface {
	NameTaken(dbc dbctx.Context, brandID uuid.UUID, name string, excludeContentID string) (bool, error)
}

// nameResolver picks the first free content name for a brand. Checks run on
// the caller's transaction; the (brand_id, content_name) unique index catches
// anything that slips between check and insert.
type nameResolver struct {
	names NameChecker
	now   func() time.Time
}

type nameScope struct {
	BrandID   uuid.UUID
	Month     string
	Pilar     string
	Week      int
	ContentID string
	// Version > 0 forces an explicit "Version N" suffix.
	Version int
}

func nameCandidates(base string, s nameScope) []string {
	p := PillarFor(s.Pilar)
	return []string{
		base,
		fmt.Sprintf("%s (%s)", base, s.Month),
		fmt.Sprintf("%s - %s Focus", base, p.Name),
		fmt.Sprintf("%s - Week %d", base, s.Week),
		fmt.Sprintf("%s (%s Edition)", base, p.Name),
		fmt.Sprintf("%s - %s Update", base, s.Month),
	}
}

func (r nameResolver) resolve(dbc dbctx.Context, base string, s nameScope) (string, error) {
	base = strings.TrimSpace(base)
	if s.Version > 0 {
		base = fmt.Sprintf("%s - Version %d", base, s.Version)
	}
	for _, candidate := range nameCandidates(base, s) {
		taken, err := r.names.NameTaken(dbc, s.BrandID, candidate, s.ContentID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	stamp := r.now().UTC().Format("20060102150405.000000")
	for n := 0; ; n++ {
		candidate := fmt.Sprintf("%s - %s", base, stamp)
		if n > 0 {
			candidate = fmt.Sprintf("%s-%d", candidate, n)
		}
		taken, err := r.names.NameTaken(dbc, s.BrandID, candidate, s.ContentID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}

// textCorpus holds brand texts an item must not closely repeat.
type textCorpus struct {
	descriptions []string
	textBases    []string
}

func (c *textCorpus) add(item *types.ContentItem) {
	if item.PostDescription != "" {
		c.descriptions = append(c.descriptions, item.PostDescription)
	}
	if item.TextBase != "" {
		c.textBases = append(c.textBases, item.TextBase)
	}
}

type diversifier struct {
	settings Settings
}

func (d diversifier) nearDuplicate(text string, corpus []string) bool {
	if utf8.RuneCountInString(text) <= d.settings.MinSimilarityLength {
		return false
	}
	return MaxScore(text, corpus) > d.settings.SimilarityThreshold
}

// apply tags near-duplicate texts with their pillar, month and week. In
// retry mode (version > 0) explicit version markers are always added.
func (d diversifier) apply(item *types.ContentItem, corpus *textCorpus, version int) {
	p := PillarFor(item.Pilar)
	if d.nearDuplicate(item.PostDescription, corpus.descriptions) {
		item.PostDescription = fmt.Sprintf("%s\n\n[%s content for %s, Week %d]",
			item.PostDescription, p.Context, item.Month, item.Week)
	}
	if d.nearDuplicate(item.TextBase, corpus.textBases) {
		item.TextBase = fmt.Sprintf("%s\n\n#%s #Week%d #%s",
			item.TextBase, hashtagWord(p.Name), item.Week, MonthLabel(item.Month))
	}
	if version > 0 {
		item.PostDescription = strings.TrimSpace(fmt.Sprintf("%s\n\n[UNIQUE VERSION %d - %s, Week %d]",
			item.PostDescription, version, p.Context, item.Week))
		item.TextBase = strings.TrimSpace(fmt.Sprintf("%s\n\nWEEK %d EDITION", item.TextBase, item.Week))
	}
}

func hashtagWord(s string) string {
	return strings.Join(strings.Fields(strings.NewReplacer("/", " ", "&", " ", "-", " ").Replace(s)), "")
}
