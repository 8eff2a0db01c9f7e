package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/service"
	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// GetItems lists every item stocked by a facility
func (h *CatalogHandler) GetItems(c *gin.Context) {
	facilityID := c.Param("facility_id")

	items, err := h.catalog.ItemsByFacility(facilityID)
	if errors.Is(err, domain.ErrNoItems) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No items found for %s", facilityID)})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetItemDetails returns stock figures for one facility item
func (h *CatalogHandler) GetItemDetails(c *gin.Context) {
	detail, err := h.catalog.ItemDetail(c.Param("facility_id"), c.Param("item_name"))
	if errors.Is(err, domain.ErrItemNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch item details"})
		return
	}

	c.JSON(http.StatusOK, detail)
}
