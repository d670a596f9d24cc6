package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/contentplan-backend/internal/http/response"
	"github.com/yungbote/contentplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
)

// requestOwner reads the owner set by OwnerMiddleware and answers 401 when
// it is missing.
func requestOwner(c *gin.Context) (uuid.UUID, bool) {
	owner, ok := ctxutil.GetOwner(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing owner"))
		return uuid.Nil, false
	}
	return owner, true
}

func pathUUID(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

func requestDBC(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}
