package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// DashboardTemplate is the HTML template rendered by the dashboard routes.
const DashboardTemplate = "index.html"

type DashboardHandler struct {
	catalog     *service.CatalogService
	predictions *service.PredictionService
}

func NewDashboardHandler(catalog *service.CatalogService, predictions *service.PredictionService) *DashboardHandler {
	return &DashboardHandler{catalog: catalog, predictions: predictions}
}

// PredictForm holds the raw submitted values so they can be echoed back verbatim.
type PredictForm struct {
	FacilityID      string `form:"facility_id"`
	ItemName        string `form:"item_name"`
	StockLevel      string `form:"current_stock_level"`
	ReorderLevel    string `form:"reorder_level"`
	LastRestockDate string `form:"last_restock_date"`
}

// DashboardView is the template data for DashboardTemplate.
type DashboardView struct {
	Facilities []string
	Inputs     *PredictForm
	Prediction *domain.Prediction
	Error      string
}

// Index renders the dashboard with the facility list
func (h *DashboardHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, DashboardTemplate, DashboardView{
		Facilities: h.catalog.TopFacilities(),
	})
}

// Predict scores the submitted item and re-renders the dashboard
func (h *DashboardHandler) Predict(c *gin.Context) {
	var form PredictForm
	view := DashboardView{
		Facilities: h.catalog.TopFacilities(),
		Inputs:     &form,
	}

	if err := c.ShouldBind(&form); err != nil {
		log.Warn().Err(err).Msg("invalid prediction form")
		view.Error = domain.ReasonInvalidInput.Message()
		c.HTML(http.StatusBadRequest, DashboardTemplate, view)
		return
	}

	input, ok := form.toInput()
	if !ok {
		view.Error = domain.ReasonInvalidInput.Message()
		c.HTML(http.StatusBadRequest, DashboardTemplate, view)
		return
	}

	result, perr := h.predictions.Predict(c.Request.Context(), input)
	if perr != nil {
		view.Error = perr.UserMessage()
		c.HTML(statusForReason(perr.Reason), DashboardTemplate, view)
		return
	}

	view.Prediction = result
	c.HTML(http.StatusOK, DashboardTemplate, view)
}

func (f PredictForm) toInput() (domain.PredictionInput, bool) {
	stock, err := strconv.ParseFloat(strings.TrimSpace(f.StockLevel), 64)
	if err != nil {
		return domain.PredictionInput{}, false
	}
	reorder, err := strconv.ParseFloat(strings.TrimSpace(f.ReorderLevel), 64)
	if err != nil {
		return domain.PredictionInput{}, false
	}
	return domain.PredictionInput{
		FacilityID:      f.FacilityID,
		ItemName:        f.ItemName,
		StockLevel:      stock,
		ReorderLevel:    reorder,
		LastRestockDate: f.LastRestockDate,
	}, true
}

func statusForReason(reason domain.FailureReason) int {
	switch reason {
	case domain.ReasonInvalidInput, domain.ReasonInvalidDate, domain.ReasonUnknownCategory:
		return http.StatusBadRequest
	case domain.ReasonFacilityNotFound:
		return http.StatusNotFound
	case domain.ReasonModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
