package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trippin/checkout"
	"trippin/model"
	"trippin/session"
)

type checkoutResponse struct {
	State checkout.State     `json:"state"`
	Plans []model.PricedPlan `json:"plans,omitempty"`
}

func (h *Handler) checkoutResponse(w *checkout.Wizard, st checkout.State) checkoutResponse {
	resp := checkoutResponse{State: st}
	if st.Step == checkout.StepPlanSelection {
		resp.Plans, _ = w.Plans()
	}
	return resp
}

// checkout finds the caller's wizard. On failure the response is already
// written.
func (h *Handler) checkout(c *gin.Context) (*checkout.Wizard, bool) {
	sess, ok := h.session(c)
	if !ok {
		return nil, false
	}
	w, ok := h.checkouts.get(c.Param("id"), sess.Token())
	if !ok {
		notFound(c, "Checkout")
		return nil, false
	}
	return w, true
}

// checkoutResult writes the outcome of a wizard action.
func (h *Handler) checkoutResult(c *gin.Context, w *checkout.Wizard, st checkout.State, err error) {
	if err != nil {
		h.fail(c, w.Localizer(), err, st)
		return
	}
	c.JSON(http.StatusOK, h.checkoutResponse(w, st))
}

func (h *Handler) NewCheckout(c *gin.Context) {
	var req struct {
		Currency string `json:"currency"`
	}
	if err := bind(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}

	cur := req.Currency
	if cur == "" {
		if u := sess.User(); u != nil {
			cur = u.Profile.Currency
		}
	}
	if cur == "" {
		cur = h.deps.DefaultCurrency
	}

	w := checkout.New(sess, h.localizer(c), checkout.Deps{
		Payments: h.deps.Payments,
		Issuer:   h.deps.Issuer,
		Mailer:   h.deps.Mailer,
		Observer: h.deps.Observer,
		Logger:   h.deps.Logger,
		Currency: cur,
	})
	h.checkouts.put(w.ID(), sess.Token(), w)
	c.JSON(http.StatusCreated, h.checkoutResponse(w, w.State()))
}

func (h *Handler) GetCheckout(c *gin.Context) {
	w, ok := h.checkout(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.checkoutResponse(w, w.State()))
}

func (h *Handler) CheckoutCurrency(c *gin.Context) {
	var req struct {
		Currency string `json:"currency" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, ok := h.checkout(c)
	if !ok {
		return
	}
	st, err := w.SetCurrency(req.Currency)
	h.checkoutResult(c, w, st, err)
}

func (h *Handler) CheckoutPlan(c *gin.Context) {
	var req struct {
		PlanID int `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, ok := h.checkout(c)
	if !ok {
		return
	}
	st, err := w.SelectPlan(req.PlanID)
	h.checkoutResult(c, w, st, err)
}

func (h *Handler) CheckoutLogin(c *gin.Context) {
	var req session.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, ok := h.checkout(c)
	if !ok {
		return
	}
	st, err := w.Authenticate(c.Request.Context(), req)
	h.checkoutResult(c, w, st, err)
}

func (h *Handler) CheckoutStartPayment(c *gin.Context) {
	w, ok := h.checkout(c)
	if !ok {
		return
	}
	st, err := w.StartPayment(c.Request.Context())
	h.checkoutResult(c, w, st, err)
}

func (h *Handler) CheckoutConfirmPayment(c *gin.Context) {
	w, ok := h.checkout(c)
	if !ok {
		return
	}
	st, err := w.ConfirmPayment(c.Request.Context())
	h.checkoutResult(c, w, st, err)
}

func (h *Handler) CheckoutIssue(c *gin.Context) {
	w, ok := h.checkout(c)
	if !ok {
		return
	}
	st, err := w.Issue(c.Request.Context())
	h.checkoutResult(c, w, st, err)
}

func (h *Handler) CheckoutAcknowledge(c *gin.Context) {
	w, ok := h.checkout(c)
	if !ok {
		return
	}
	st, err := w.Acknowledge()
	h.checkoutResult(c, w, st, err)
}

func (h *Handler) CheckoutCancel(c *gin.Context) {
	w, ok := h.checkout(c)
	if !ok {
		return
	}
	st, err := w.Cancel()
	h.checkoutResult(c, w, st, err)
}

func (h *Handler) CheckoutRestart(c *gin.Context) {
	w, ok := h.checkout(c)
	if !ok {
		return
	}
	st, err := w.Restart()
	h.checkoutResult(c, w, st, err)
}
