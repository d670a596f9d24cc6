package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentplan-backend/internal/http/response"
	"github.com/yungbote/contentplan-backend/internal/services"
)

type BrandHandler struct {
	brands services.BrandService
}

func NewBrandHandler(brands services.BrandService) *BrandHandler {
	return &BrandHandler{brands: brands}
}

// POST /api/brands
func (h *BrandHandler) CreateBrand(c *gin.Context) {
	owner, ok := requestOwner(c)
	if !ok {
		return
	}
	var in services.CreateBrandInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	brand, err := h.brands.Create(requestDBC(c), owner, in)
	if err != nil {
		response.RespondServiceError(c, "create_brand_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"brand": brand})
}

// GET /api/brands/:id
func (h *BrandHandler) GetBrand(c *gin.Context) {
	owner, ok := requestOwner(c)
	if !ok {
		return
	}
	brandID, ok := pathUUID(c, "id", "invalid_brand_id")
	if !ok {
		return
	}
	brand, err := h.brands.GetForOwner(requestDBC(c), owner, brandID)
	if err != nil {
		response.RespondServiceError(c, "get_brand_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"brand": brand})
}
