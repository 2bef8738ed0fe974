package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trippin/model"
	"trippin/planner"
)

func (h *Handler) booking(c *gin.Context) (*planner.Booking, bool) {
	sess, ok := h.session(c)
	if !ok {
		return nil, false
	}
	b, ok := h.bookings.get(c.Param("id"), sess.Token())
	if !ok {
		notFound(c, "Booking")
		return nil, false
	}
	return b, true
}

func (h *Handler) bookingResult(c *gin.Context, b *planner.Booking, st planner.BookingState, err error) {
	if err != nil {
		h.fail(c, b.Localizer(), err, st)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) GetBooking(c *gin.Context) {
	b, ok := h.booking(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, b.State())
}

func (h *Handler) BookingExisting(c *gin.Context) {
	b, ok := h.booking(c)
	if !ok {
		return
	}
	orders, err := b.ExistingBookings(c.Request.Context())
	if err != nil {
		h.fail(c, b.Localizer(), err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) BookingContinue(c *gin.Context) {
	b, ok := h.booking(c)
	if !ok {
		return
	}
	st, err := b.Continue()
	h.bookingResult(c, b, st, err)
}

func (h *Handler) BookingSearchFlights(c *gin.Context) {
	b, ok := h.booking(c)
	if !ok {
		return
	}
	st, err := b.SearchFlights(c.Request.Context())
	h.bookingResult(c, b, st, err)
}

func (h *Handler) BookingChooseFlight(c *gin.Context) {
	var req struct {
		Index int `json:"index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, ok := h.booking(c)
	if !ok {
		return
	}
	st, err := b.ChooseFlight(req.Index)
	h.bookingResult(c, b, st, err)
}

func (h *Handler) BookingDataPlan(c *gin.Context) {
	var req struct {
		PlanID int `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, ok := h.booking(c)
	if !ok {
		return
	}
	st, err := b.ChooseDataPlan(req.PlanID)
	h.bookingResult(c, b, st, err)
}

func (h *Handler) BookingTraveler(c *gin.Context) {
	var req model.Traveler
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, ok := h.booking(c)
	if !ok {
		return
	}
	st, err := b.SubmitTraveler(req)
	h.bookingResult(c, b, st, err)
}
