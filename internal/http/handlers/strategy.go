package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentplan-backend/internal/http/response"
	"github.com/yungbote/contentplan-backend/internal/services"
)

type StrategyHandler struct {
	strategies services.StrategyService
}

func NewStrategyHandler(strategies services.StrategyService) *StrategyHandler {
	return &StrategyHandler{strategies: strategies}
}

// POST /api/strategies
func (h *StrategyHandler) CreateStrategy(c *gin.Context) {
	owner, ok := requestOwner(c)
	if !ok {
		return
	}
	var in services.CreatePlanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	plan, jobs, err := h.strategies.CreatePlan(requestDBC(c), owner, in)
	if err != nil {
		response.RespondServiceError(c, "create_strategy_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"strategy": plan, "jobs": jobs})
}

// GET /api/strategies/:id
func (h *StrategyHandler) GetStrategy(c *gin.Context) {
	owner, ok := requestOwner(c)
	if !ok {
		return
	}
	planID, ok := pathUUID(c, "id", "invalid_strategy_id")
	if !ok {
		return
	}
	plan, err := h.strategies.GetPlanForOwner(requestDBC(c), owner, planID)
	if err != nil {
		response.RespondServiceError(c, "get_strategy_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"strategy": plan})
}

// POST /api/strategies/:id/resume
func (h *StrategyHandler) ResumeStrategy(c *gin.Context) {
	owner, ok := requestOwner(c)
	if !ok {
		return
	}
	planID, ok := pathUUID(c, "id", "invalid_strategy_id")
	if !ok {
		return
	}
	jobs, err := h.strategies.Resume(requestDBC(c), owner, planID)
	if err != nil {
		response.RespondServiceError(c, "resume_strategy_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"jobs": jobs})
}

// POST /api/strategies/:id/refine
func (h *StrategyHandler) RefineStrategy(c *gin.Context) {
	owner, ok := requestOwner(c)
	if !ok {
		return
	}
	planID, ok := pathUUID(c, "id", "invalid_strategy_id")
	if !ok {
		return
	}
	job, err := h.strategies.RequestRefinement(requestDBC(c), owner, planID)
	if err != nil {
		response.RespondServiceError(c, "refine_strategy_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"job": job})
}

// DELETE /api/strategies/:id
func (h *StrategyHandler) DeleteStrategy(c *gin.Context) {
	owner, ok := requestOwner(c)
	if !ok {
		return
	}
	planID, ok := pathUUID(c, "id", "invalid_strategy_id")
	if !ok {
		return
	}
	if err := h.strategies.Delete(requestDBC(c), owner, planID); err != nil {
		response.RespondServiceError(c, "delete_strategy_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/strategies/:id/content-items
func (h *StrategyHandler) ListContentItems(c *gin.Context) {
	owner, ok := requestOwner(c)
	if !ok {
		return
	}
	planID, ok := pathUUID(c, "id", "invalid_strategy_id")
	if !ok {
		return
	}
	items, err := h.strategies.ListContentItems(requestDBC(c), owner, planID)
	if err != nil {
		response.RespondServiceError(c, "list_content_items_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"content_items": items, "count": len(items)})
}
