package handler

import (
	"net/http"

	"herosearch/internal/model"
	"herosearch/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RechercheHandler serves POST /recherche from the search_documents table
type RechercheHandler struct {
	searchService *service.SearchService
	logger        *zap.Logger
}

// NewRechercheHandler creates a new recherche handler
func NewRechercheHandler(searchService *service.SearchService, logger *zap.Logger) *RechercheHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RechercheHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// Recherche handles POST /recherche
func (h *RechercheHandler) Recherche(c *gin.Context) {
	var req model.RechercheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.RechercheResponse{Success: false, Results: []model.RawRecord{}})
		return
	}

	results, err := h.searchService.Recherche(c.Request.Context(), req.Prompt)
	if err != nil {
		h.logger.Error("recherche failed", zap.String("prompt", req.Prompt), zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.RechercheResponse{Success: false, Results: []model.RawRecord{}})
		return
	}

	c.JSON(http.StatusOK, model.RechercheResponse{Success: true, Results: results})
}
