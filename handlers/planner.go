package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trippin/planner"
)

func (h *Handler) planner(c *gin.Context) (*planner.Wizard, bool) {
	sess, ok := h.session(c)
	if !ok {
		return nil, false
	}
	w, ok := h.planners.get(c.Param("id"), sess.Token())
	if !ok {
		notFound(c, "Planner")
		return nil, false
	}
	return w, true
}

func (h *Handler) plannerResult(c *gin.Context, w *planner.Wizard, st planner.State, err error) {
	if err != nil {
		h.fail(c, w.Localizer(), err, st)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) NewPlanner(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	w := planner.New(h.deps.Itinerary, h.localizer(c), h.deps.Logger)
	h.planners.put(w.ID(), sess.Token(), w)
	c.JSON(http.StatusCreated, w.State())
}

func (h *Handler) GetPlanner(c *gin.Context) {
	w, ok := h.planner(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, w.State())
}

func (h *Handler) PlannerStart(c *gin.Context) {
	w, ok := h.planner(c)
	if !ok {
		return
	}
	st, err := w.Start()
	h.plannerResult(c, w, st, err)
}

func (h *Handler) PlannerOrigin(c *gin.Context) {
	var req struct {
		Origin string `json:"origin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, ok := h.planner(c)
	if !ok {
		return
	}
	st, err := w.SetOrigin(req.Origin)
	h.plannerResult(c, w, st, err)
}

func (h *Handler) PlannerChoose(c *gin.Context) {
	var req struct {
		Option string `json:"option" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, ok := h.planner(c)
	if !ok {
		return
	}
	st, err := w.Choose(c.Request.Context(), req.Option)
	h.plannerResult(c, w, st, err)
}

func (h *Handler) PlannerToggleInterest(c *gin.Context) {
	var req struct {
		Interest string `json:"interest" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, ok := h.planner(c)
	if !ok {
		return
	}
	st, err := w.ToggleInterest(req.Interest)
	h.plannerResult(c, w, st, err)
}

func (h *Handler) PlannerContinueInterests(c *gin.Context) {
	w, ok := h.planner(c)
	if !ok {
		return
	}
	st, err := w.ContinueInterests()
	h.plannerResult(c, w, st, err)
}

func (h *Handler) PlannerGenerate(c *gin.Context) {
	w, ok := h.planner(c)
	if !ok {
		return
	}
	st, err := w.Generate(c.Request.Context())
	h.plannerResult(c, w, st, err)
}

func (h *Handler) PlannerRestart(c *gin.Context) {
	w, ok := h.planner(c)
	if !ok {
		return
	}
	st, err := w.Restart()
	h.plannerResult(c, w, st, err)
}

// PlannerBook opens a booking wizard for one package of the plan.
func (h *Handler) PlannerBook(c *gin.Context) {
	var req struct {
		PackageIndex int `json:"package_index"`
	}
	if err := bind(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	w, ok := h.planners.get(c.Param("id"), sess.Token())
	if !ok {
		notFound(c, "Planner")
		return
	}

	deps := planner.BookingDeps{Orders: sess, Logger: h.deps.Logger}
	if h.deps.Travel != nil && h.deps.Travel.Configured() {
		deps.Flights = h.deps.Travel
	}
	b, err := w.Book(req.PackageIndex, deps)
	if err != nil {
		h.fail(c, w.Localizer(), err, w.State())
		return
	}
	h.bookings.put(b.ID(), sess.Token(), b)
	c.JSON(http.StatusCreated, b.State())
}
