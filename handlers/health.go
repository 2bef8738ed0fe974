package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trippin/i18n"
	"trippin/model"
	"trippin/pricing"
)

func (h *Handler) Health(c *gin.Context) {
	dbStatus := "ok"
	switch {
	case h.deps.Backend == nil || h.deps.Backend.Ping == nil:
		dbStatus = "not initialized"
	default:
		if err := h.deps.Backend.Ping(c.Request.Context()); err != nil {
			dbStatus = "error: " + err.Error()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  h.deps.ServiceName,
		"database": dbStatus,
		"wizards": gin.H{
			"checkout": h.checkouts.len(),
			"planner":  h.planners.len(),
			"booking":  h.bookings.len(),
		},
	})
}

func (h *Handler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"languages": i18n.Languages(),
		"default":   h.deps.DefaultLanguage,
		"detected":  h.localizer(c).Language(),
	})
}

func (h *Handler) Dictionary(c *gin.Context) {
	dict, ok := i18n.Dictionary(strings.ToLower(c.Param("lang")))
	if !ok {
		notFound(c, "Language")
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, dict)
}

type pricingResponse struct {
	Currency   string             `json:"currency"`
	Currencies []string           `json:"currencies"`
	Plans      []model.PricedPlan `json:"plans"`
}

func (h *Handler) Pricing(c *gin.Context) {
	cur := strings.ToUpper(c.DefaultQuery("currency", h.deps.DefaultCurrency))
	plans, err := pricing.QuoteAll(model.Catalog(), cur)
	if err != nil {
		h.fail(c, h.localizer(c), &model.ValidationError{Key: "validation.unknown_currency", Fields: []string{"currency"}}, nil)
		return
	}
	c.JSON(http.StatusOK, pricingResponse{Currency: cur, Currencies: pricing.Currencies(), Plans: plans})
}
