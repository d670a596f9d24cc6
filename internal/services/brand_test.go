package services

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/contentplan-backend/internal/data/repos"
	"github.com/yungbote/contentplan-backend/internal/data/repos/testutil"
	"github.com/yungbote/contentplan-backend/internal/platform/apierr"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
)

func TestBrandCreate(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewBrandService(db, log, repos.NewBrandRepo(db, log))
	dbc := dbctx.Context{Ctx: t.Context()}
	owner := uuid.New()

	b, err := svc.Create(dbc, owner, CreateBrandInput{Name: "  Acme Fitness Co. ", Platforms: []string{"Instagram", " ", "TikTok"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Slug != "acme-fitness-co" || b.Name != "Acme Fitness Co." {
		t.Fatalf("brand: name=%q slug=%q", b.Name, b.Slug)
	}
	if string(b.Platforms) != `["Instagram","TikTok"]` {
		t.Fatalf("platforms: %s", b.Platforms)
	}

	if _, err := svc.Create(dbc, owner, CreateBrandInput{Name: "Acme Fitness Co"}); apierr.StatusOf(err) != http.StatusConflict {
		t.Fatalf("duplicate slug: %v", err)
	}
	if _, err := svc.Create(dbc, uuid.New(), CreateBrandInput{Name: "Acme Fitness Co"}); err != nil {
		t.Fatalf("same slug for another owner: %v", err)
	}
	if _, err := svc.Create(dbc, owner, CreateBrandInput{Name: "   "}); apierr.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("blank name: %v", err)
	}

	got, err := svc.GetForOwner(dbc, owner, b.ID)
	if err != nil || got.ID != b.ID {
		t.Fatalf("GetForOwner: %v", err)
	}
	if _, err := svc.GetForOwner(dbc, uuid.New(), b.ID); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("foreign owner: %v", err)
	}
}
