package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/racegraph/internal/http/response"
	"github.com/yungbote/racegraph/internal/services"
)

type CatalogHandler struct {
	races services.RaceService
}

func NewCatalogHandler(races services.RaceService) *CatalogHandler {
	return &CatalogHandler{races: races}
}

// POST /api/catalog/resolve
// body: { "kind": "Character" | "Kart" | "Wheel" | "Glider" | "Track", "name": "..." }
func (h *CatalogHandler) Resolve(c *gin.Context) {
	var req struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	item, err := h.races.ResolveCatalogItem(c.Request.Context(), req.Kind, req.Name)
	if err != nil {
		response.RespondServiceError(c, "resolve_catalog_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"item": item})
}
