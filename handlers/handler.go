// Package handlers exposes the wizards, the session store and the search
// demo over a JSON HTTP API.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trippin/checkout"
	"trippin/database"
	"trippin/i18n"
	"trippin/model"
	"trippin/planner"
	"trippin/pricing"
	"trippin/services"
	"trippin/session"
)

// SessionHeader carries the session token in both directions.
const SessionHeader = "X-Session-Token"

// TravelSearcher looks up flights and hotels.
type TravelSearcher interface {
	Configured() bool
	SearchFlights(ctx context.Context, q services.FlightQuery) ([]model.Flight, error)
	SearchHotels(ctx context.Context, q services.HotelQuery) ([]model.Hotel, error)
}

// Recommender writes the summary of a search.
type Recommender interface {
	Recommend(ctx context.Context, s services.TripSummary) (string, error)
}

type Deps struct {
	Backend   *database.Backend
	Sessions  *session.Manager
	Payments  checkout.PaymentProvider
	Issuer    checkout.Issuer
	Mailer    checkout.Mailer
	Observer  checkout.Observer
	Itinerary planner.Itinerary
	Travel    TravelSearcher
	Recommend Recommender
	Logger    *slog.Logger

	ServiceName     string
	DefaultCurrency string
	DefaultLanguage string
	WizardTTL       time.Duration
	// MaxWizards bounds each kind of live wizard. Zero means 10000.
	MaxWizards uint64
}

type Handler struct {
	deps   Deps
	logger *slog.Logger

	checkouts *registry[*checkout.Wizard]
	planners  *registry[*planner.Wizard]
	bookings  *registry[*planner.Booking]
}

func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.DefaultCurrency == "" {
		d.DefaultCurrency = pricing.DefaultCurrency
	}
	if d.DefaultLanguage == "" {
		d.DefaultLanguage = i18n.DefaultLanguage
	}
	if d.ServiceName == "" {
		d.ServiceName = "trippin"
	}
	if d.MaxWizards == 0 {
		d.MaxWizards = 10000
	}
	return &Handler{
		deps:      d,
		logger:    d.Logger.With("component", "http"),
		checkouts: newRegistry[*checkout.Wizard](d.WizardTTL, d.MaxWizards),
		planners:  newRegistry[*planner.Wizard](d.WizardTTL, d.MaxWizards),
		bookings:  newRegistry[*planner.Booking](d.WizardTTL, d.MaxWizards),
	}
}

// Register mounts every route under /api.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/i18n", h.Languages)
		api.GET("/i18n/:lang", h.Dictionary)
		api.GET("/pricing", h.Pricing)

		api.POST("/session/login", h.Login)
		api.POST("/session/logout", h.Logout)
		api.GET("/session", h.CurrentSession)
		api.PUT("/session/profile", h.UpdateProfile)
		api.GET("/session/orders", h.Orders)

		api.POST("/checkout", h.NewCheckout)
		api.GET("/checkout/:id", h.GetCheckout)
		api.POST("/checkout/:id/currency", h.CheckoutCurrency)
		api.POST("/checkout/:id/plan", h.CheckoutPlan)
		api.POST("/checkout/:id/login", h.CheckoutLogin)
		api.POST("/checkout/:id/payment", h.CheckoutStartPayment)
		api.POST("/checkout/:id/payment/confirm", h.CheckoutConfirmPayment)
		api.POST("/checkout/:id/issue", h.CheckoutIssue)
		api.POST("/checkout/:id/ack", h.CheckoutAcknowledge)
		api.POST("/checkout/:id/cancel", h.CheckoutCancel)
		api.POST("/checkout/:id/restart", h.CheckoutRestart)
		api.GET("/checkout/:id/receipt", h.CheckoutReceipt)

		api.POST("/planner", h.NewPlanner)
		api.GET("/planner/:id", h.GetPlanner)
		api.POST("/planner/:id/start", h.PlannerStart)
		api.POST("/planner/:id/origin", h.PlannerOrigin)
		api.POST("/planner/:id/choose", h.PlannerChoose)
		api.POST("/planner/:id/interests/toggle", h.PlannerToggleInterest)
		api.POST("/planner/:id/interests/continue", h.PlannerContinueInterests)
		api.POST("/planner/:id/generate", h.PlannerGenerate)
		api.POST("/planner/:id/restart", h.PlannerRestart)
		api.POST("/planner/:id/book", h.PlannerBook)
		api.GET("/planner/:id/pdf", h.PlannerPDF)

		api.GET("/booking/:id", h.GetBooking)
		api.GET("/booking/:id/existing", h.BookingExisting)
		api.POST("/booking/:id/continue", h.BookingContinue)
		api.POST("/booking/:id/flights/search", h.BookingSearchFlights)
		api.POST("/booking/:id/flights/choose", h.BookingChooseFlight)
		api.POST("/booking/:id/data-plan", h.BookingDataPlan)
		api.POST("/booking/:id/traveler", h.BookingTraveler)

		api.POST("/search", h.Search)
		api.GET("/search/:id", h.GetSearch)
	}
}

// ─── Request helpers ─────────────────────────────────────────────────────────

// localizer picks ?lang=, then Accept-Language, then the default.
func (h *Handler) localizer(c *gin.Context) *i18n.Localizer {
	if lang := c.Query("lang"); i18n.Supported(lang) {
		return i18n.New(lang)
	}
	if accept := c.GetHeader("Accept-Language"); accept != "" {
		return i18n.New(i18n.Match(accept))
	}
	return i18n.New(h.deps.DefaultLanguage)
}

// session resolves the caller's session and echoes its token. On failure
// the response is already written.
func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.deps.Sessions.Open(c.Request.Context(), c.GetHeader(SessionHeader))
	if err != nil {
		h.fail(c, h.localizer(c), err, nil)
		return nil, false
	}
	c.Header(SessionHeader, s.Token())
	return s, true
}

// bind decodes an optional JSON body into v.
func bind(c *gin.Context, v any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(v)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error(), "code": "BAD_REQUEST"})
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found", "code": "NOT_FOUND"})
}

// ─── Error mapping ───────────────────────────────────────────────────────────

// fail writes err as a JSON error. state, when given, is the wizard state
// after the failed action.
func (h *Handler) fail(c *gin.Context, loc *i18n.Localizer, err error, state any) {
	status, code, msg := h.classify(loc, err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		h.logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	body := gin.H{"error": msg, "code": code}
	if state != nil {
		body["state"] = state
	}
	c.JSON(status, body)
}

func (h *Handler) classify(loc *i18n.Localizer, err error) (int, string, string) {
	var (
		verr *model.ValidationError
		aerr *model.AdapterError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "VALIDATION", loc.T(verr.Key)
	case errors.Is(err, checkout.ErrInvalidTransition), errors.Is(err, planner.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION", err.Error()
	case errors.Is(err, checkout.ErrInFlight), errors.Is(err, planner.ErrInFlight):
		return http.StatusTooManyRequests, "IN_FLIGHT", err.Error()
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error()
	case errors.Is(err, session.ErrNotSignedIn):
		return http.StatusUnauthorized, "NOT_SIGNED_IN", loc.T("validation.not_signed_in")
	case errors.As(err, &aerr):
		return http.StatusBadGateway, "ADAPTER_ERROR", aerr.Message
	case errors.Is(err, services.ErrNotConfigured), errors.Is(err, planner.ErrNoPlan):
		return http.StatusBadGateway, "ADAPTER_ERROR", err.Error()
	}
	return http.StatusInternalServerError, "INTERNAL", "Internal server error"
}
