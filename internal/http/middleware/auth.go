package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/contentplan-backend/internal/http/response"
	"github.com/yungbote/contentplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

const headerUserID = "X-User-Id"

// OwnerMiddleware trusts the X-User-Id header set by the upstream gateway.
type OwnerMiddleware struct {
	log *logger.Logger
}

func NewOwnerMiddleware(log *logger.Logger) *OwnerMiddleware {
	return &OwnerMiddleware{log: log.With("Middleware", "OwnerMiddleware")}
}

func (m *OwnerMiddleware) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(headerUserID))
		if raw == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing %s header", headerUserID))
			c.Abort()
			return
		}
		ownerID, err := uuid.Parse(raw)
		if err != nil || ownerID == uuid.Nil {
			m.log.Debug("rejected owner header", "value", raw)
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("invalid %s header", headerUserID))
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithOwner(c.Request.Context(), ownerID))
		c.Next()
	}
}
