package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trippin/services"
)

func sendPDF(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", data)
}

// PlannerPDF renders the generated plan of a planner wizard.
func (h *Handler) PlannerPDF(c *gin.Context) {
	w, ok := h.planner(c)
	if !ok {
		return
	}
	st := w.State()
	if st.Plan == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "The travel plan has not been generated yet", "code": "NOT_FOUND"})
		return
	}
	data, err := services.RenderTravelPlanPDF(st.Plan, st.Preferences)
	if err != nil {
		h.fail(c, w.Localizer(), err, nil)
		return
	}
	sendPDF(c, "trippin-travel-plan.pdf", data)
}

// CheckoutReceipt renders the receipt of a completed checkout.
func (h *Handler) CheckoutReceipt(c *gin.Context) {
	w, ok := h.checkout(c)
	if !ok {
		return
	}
	order, qr := w.Order()
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No eSIM has been issued yet", "code": "NOT_FOUND"})
		return
	}
	data, err := services.RenderReceiptPDF(order, qr)
	if err != nil {
		h.fail(c, w.Localizer(), err, nil)
		return
	}
	sendPDF(c, "trippin-esim-"+order.ID+".pdf", data)
}
