package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trippin/i18n"
	"trippin/model"
	"trippin/pricing"
	"trippin/session"
)

type sessionResponse struct {
	Token    string      `json:"token"`
	SignedIn bool        `json:"signed_in"`
	User     *model.User `json:"user,omitempty"`
}

func (h *Handler) Login(c *gin.Context) {
	var req session.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	user, err := sess.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, h.localizer(c), err, nil)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: sess.Token(), SignedIn: true, User: user})
}

func (h *Handler) Logout(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := sess.Logout(c.Request.Context()); err != nil {
		h.fail(c, h.localizer(c), err, nil)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: sess.Token()})
}

func (h *Handler) CurrentSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: sess.Token(), SignedIn: sess.SignedIn(), User: sess.User()})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.Profile
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	loc := h.localizer(c)
	req.Currency = strings.ToUpper(req.Currency)
	if req.Currency != "" && !pricing.Supports(req.Currency) {
		h.fail(c, loc, &model.ValidationError{Key: "validation.unknown_currency", Fields: []string{"currency"}}, nil)
		return
	}
	if req.Language != "" && !i18n.Supported(req.Language) {
		h.fail(c, loc, &model.ValidationError{Key: "validation.unknown_option", Fields: []string{"language"}}, nil)
		return
	}

	sess, ok := h.session(c)
	if !ok {
		return
	}
	user, err := sess.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		h.fail(c, loc, err, nil)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: sess.Token(), SignedIn: true, User: user})
}

func (h *Handler) Orders(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	orders, err := sess.Orders(c.Request.Context())
	if err != nil {
		h.fail(c, h.localizer(c), err, nil)
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
