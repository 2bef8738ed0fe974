package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trippin/database"
	"trippin/model"
	"trippin/services"
)

type SearchRequest struct {
	Origin        string  `json:"origin" binding:"required"`
	Destination   string  `json:"destination" binding:"required"`
	DepartureDate string  `json:"departure_date" binding:"required"`
	ReturnDate    string  `json:"return_date" binding:"required"`
	Budget        float64 `json:"budget" binding:"required,gt=0"`
	Passengers    int     `json:"passengers"`
}

// Search runs the flight/hotel search demo and stores the result.
func (h *Handler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	req.Origin = strings.ToUpper(strings.TrimSpace(req.Origin))
	req.Destination = strings.ToUpper(strings.TrimSpace(req.Destination))
	if req.Passengers <= 0 {
		req.Passengers = 1
	}

	if len(req.Origin) != 3 || len(req.Destination) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Airport codes must be exactly 3 characters (e.g. LHR, JFK)", "code": "BAD_REQUEST"})
		return
	}
	depDate, err := time.Parse("2006-01-02", req.DepartureDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid departure date format. Use YYYY-MM-DD", "code": "BAD_REQUEST"})
		return
	}
	retDate, err := time.Parse("2006-01-02", req.ReturnDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid return date format. Use YYYY-MM-DD", "code": "BAD_REQUEST"})
		return
	}
	if !retDate.After(depDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Return date must be after departure date", "code": "BAD_REQUEST"})
		return
	}
	nights := int(retDate.Sub(depDate).Hours() / 24)

	ctx := c.Request.Context()
	log := h.logger.With("origin", req.Origin, "destination", req.Destination)

	// ── Live data, offline estimates on any failure ──────────────────────────
	var (
		flights  []model.Flight
		hotels   []model.Hotel
		estimate = true
	)
	if h.deps.Travel != nil && h.deps.Travel.Configured() {
		flights, err = h.deps.Travel.SearchFlights(ctx, services.FlightQuery{
			Origin:        req.Origin,
			Destination:   req.Destination,
			DepartureDate: req.DepartureDate,
			ReturnDate:    req.ReturnDate,
			Adults:        req.Passengers,
		})
		switch {
		case err != nil:
			log.WarnContext(ctx, "flight search failed, using estimates", "error", err)
		case len(flights) == 0:
			log.WarnContext(ctx, "no live flights, using estimates")
		default:
			hotels, err = h.deps.Travel.SearchHotels(ctx, services.HotelQuery{
				CityCode: req.Destination,
				CheckIn:  req.DepartureDate,
				CheckOut: req.ReturnDate,
				Adults:   req.Passengers,
			})
			switch {
			case err != nil:
				log.WarnContext(ctx, "hotel search failed, using estimates", "error", err)
			case len(hotels) == 0:
				log.WarnContext(ctx, "no live hotels, using estimates")
			default:
				estimate = false
				log.InfoContext(ctx, "live search", "flights", len(flights), "hotels", len(hotels))
			}
		}
	}
	if estimate {
		if len(flights) == 0 {
			flights = services.FallbackFlights(req.Origin, req.Destination, req.DepartureDate, req.ReturnDate)
		}
		hotels = services.FallbackHotels(req.Destination)
	}
	source := "live"
	if estimate {
		source = "estimated"
	}

	// ── Recommendation ───────────────────────────────────────────────────────
	summary := ""
	if h.deps.Recommend != nil {
		summary, err = h.deps.Recommend.Recommend(ctx, services.TripSummary{
			Origin:        req.Origin,
			Destination:   req.Destination,
			DepartureDate: req.DepartureDate,
			ReturnDate:    req.ReturnDate,
			Passengers:    req.Passengers,
			Budget:        req.Budget,
			Flights:       flights,
			Hotels:        hotels,
			Estimated:     estimate,
		})
		if err != nil && !errors.Is(err, services.ErrNotConfigured) {
			log.WarnContext(ctx, "recommendation failed, using fallback text", "error", err)
		}
	}
	if summary == "" {
		summary = services.FallbackRecommendation(req.Budget, flights, hotels, nights)
	}

	search := &model.Search{
		ID:            uuid.NewString(),
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
		ReturnDate:    req.ReturnDate,
		Budget:        req.Budget,
		Passengers:    req.Passengers,
		Flights:       flights,
		Hotels:        hotels,
		Summary:       summary,
		Source:        source,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.deps.Backend.Searches.SaveSearch(ctx, search); err != nil {
		log.ErrorContext(ctx, "failed to save search", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save search", "code": "INTERNAL"})
		return
	}
	c.JSON(http.StatusOK, search)
}

func (h *Handler) GetSearch(c *gin.Context) {
	s, err := h.deps.Backend.Searches.GetSearch(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		notFound(c, "Search")
		return
	}
	if err != nil {
		h.fail(c, h.localizer(c), err, nil)
		return
	}
	c.JSON(http.StatusOK, s)
}
