package services

import (
	"context"
	"fmt"
	"time"

	"trippin/model"
)

// ─── Fallback (when Amadeus is not configured or fails) ──────────────────────

type route struct {
	basePrice float64
	minutes   int
}

var routes = map[string]route{
	"LHR-IST": {280, 240}, "LHR-DXB": {420, 420}, "LHR-JFK": {450, 480},
	"LHR-CDG": {80, 75}, "LHR-HND": {780, 840}, "LHR-BKK": {620, 690},
	"JFK-CDG": {480, 450}, "JFK-NRT": {900, 840}, "JFK-BCN": {520, 480},
	"ICN-NRT": {210, 140}, "ICN-BKK": {330, 340}, "ICN-SIN": {380, 380},
	"SIN-BKK": {120, 150}, "DXB-IST": {250, 240}, "FCO-BCN": {95, 110},
}

type carrier struct {
	name     string
	priceMod float64
	stops    int
}

var carriers = []carrier{
	{"Turkish Airlines", 1.00, 0},
	{"Lufthansa", 1.15, 0},
	{"Emirates", 1.30, 0},
	{"Wizz Air", 0.65, 1},
	{"Qatar Airways", 0.85, 1},
}

// FallbackFlights produces plausible round-trip offers without an API.
// The data is deterministic for a given route and date pair.
func FallbackFlights(origin, destination, departureDate, returnDate string) []model.Flight {
	info, ok := routes[origin+"-"+destination]
	if !ok {
		info, ok = routes[destination+"-"+origin]
	}
	if !ok {
		info = route{350, 240}
	}

	dep, _ := time.Parse("2006-01-02", departureDate)
	ret, _ := time.Parse("2006-01-02", returnDate)

	flights := make([]model.Flight, 0, len(carriers))
	for i, c := range carriers {
		price := float64(int(info.basePrice*c.priceMod/5) * 5)
		minutes := info.minutes
		if c.stops > 0 {
			minutes += 90
		}

		depAt := time.Date(dep.Year(), dep.Month(), dep.Day(), 6+i*3, 0, 0, 0, time.UTC)
		retAt := time.Date(ret.Year(), ret.Month(), ret.Day(), 8+i*2, 0, 0, 0, time.UTC)
		length := time.Duration(minutes) * time.Minute

		f := model.Flight{
			Price:         price,
			Airline:       c.name,
			DepartureTime: depAt.Format(time.RFC3339),
			ArrivalTime:   depAt.Add(length).Format(time.RFC3339),
			Duration:      formatDurationMin(minutes),
			Stops:         c.stops,
			Currency:      "USD",
		}
		if returnDate != "" {
			f.ReturnDepartureTime = retAt.Format(time.RFC3339)
			f.ReturnArrivalTime = retAt.Add(length).Format(time.RFC3339)
			f.ReturnDuration = formatDurationMin(minutes)
			f.ReturnStops = c.stops
		}
		flights = append(flights, f)
	}
	return flights
}

var cityHotels = map[string][]model.Hotel{
	"IST": {
		{Name: "Grand Hyatt Istanbul", Price: 180, Rating: 4.7, Location: "Beyoglu, Istanbul"},
		{Name: "Sultan Ahmet Palace Hotel", Price: 95, Rating: 4.3, Location: "Sultanahmet, Istanbul"},
		{Name: "Ibis Istanbul Taksim", Price: 75, Rating: 4.0, Location: "Taksim, Istanbul"},
	},
	"CDG": {
		{Name: "Hotel Le Marais", Price: 220, Rating: 4.6, Location: "Le Marais, Paris"},
		{Name: "Ibis Paris Montmartre", Price: 95, Rating: 4.0, Location: "Montmartre, Paris"},
		{Name: "Generator Paris", Price: 55, Rating: 3.8, Location: "10th Arr., Paris"},
	},
	"LHR": {
		{Name: "Hilton London Tower Bridge", Price: 180, Rating: 4.4, Location: "Tower Bridge, London"},
		{Name: "Premier Inn London City", Price: 95, Rating: 4.1, Location: "City of London"},
		{Name: "Generator London", Price: 50, Rating: 3.8, Location: "Russell Square, London"},
	},
	"HND": {
		{Name: "Park Hotel Tokyo", Price: 210, Rating: 4.5, Location: "Shiodome, Tokyo"},
		{Name: "Sotetsu Fresa Inn Ginza", Price: 110, Rating: 4.2, Location: "Ginza, Tokyo"},
		{Name: "Khaosan World Asakusa", Price: 45, Rating: 4.0, Location: "Asakusa, Tokyo"},
	},
	"DXB": {
		{Name: "JW Marriott Marquis", Price: 220, Rating: 4.6, Location: "Business Bay, Dubai"},
		{Name: "Rove Downtown", Price: 95, Rating: 4.3, Location: "Downtown Dubai"},
		{Name: "Premier Inn Dubai", Price: 65, Rating: 4.0, Location: "Ibn Battuta, Dubai"},
	},
}

// FallbackHotels produces plausible hotels for destination.
func FallbackHotels(destination string) []model.Hotel {
	if hotels, ok := cityHotels[destination]; ok {
		res := make([]model.Hotel, len(hotels))
		for i, h := range hotels {
			h.Currency = "USD"
			res[i] = h
		}
		return res
	}
	return []model.Hotel{
		{Name: "Grand City Hotel", Price: 150, Rating: 4.5, Location: "City Center, " + destination, Currency: "USD"},
		{Name: "Business Inn", Price: 95, Rating: 4.2, Location: "Business District, " + destination, Currency: "USD"},
		{Name: "Economy Suites", Price: 65, Rating: 3.9, Location: "Near Airport, " + destination, Currency: "USD"},
	}
}

// FallbackRecommendation summarizes the cheapest flight and hotel when no
// language model is available.
func FallbackRecommendation(budget float64, flights []model.Flight, hotels []model.Hotel, nights int) string {
	if len(flights) == 0 || len(hotels) == 0 {
		return "Unable to provide recommendations at this time."
	}

	flight := flights[0]
	for _, f := range flights[1:] {
		if f.Price < flight.Price {
			flight = f
		}
	}
	hotel := hotels[0]
	for _, h := range hotels[1:] {
		if h.Price < hotel.Price {
			hotel = h
		}
	}

	total := flight.Price + hotel.Price*float64(nights)
	verdict := fmt.Sprintf(" This combination fits your $%.0f budget.", budget)
	if total > budget {
		verdict = fmt.Sprintf(" Note: this exceeds your $%.0f budget by $%.0f.", budget, total-budget)
	}
	return fmt.Sprintf(
		"Best value picks: %s at $%.0f (%d stop(s)) and %s at $%.0f/night (%.1f stars). "+
			"Estimated total: $%.0f for flight + %d nights.%s",
		flight.Airline, flight.Price, flight.Stops, hotel.Name, hotel.Price, hotel.Rating,
		total, nights, verdict,
	)
}

var budgetBase = map[string]float64{
	"budget":   600,
	"moderate": 1200,
	"luxury":   3000,
}

// FallbackPlan builds a simple plan from the preferences alone. It is used
// when no language model is configured.
func FallbackPlan(prefs model.Preferences) *model.TravelPlan {
	base, ok := budgetBase[prefs.Budget]
	if !ok {
		base = 1200
	}
	interests := prefs.Interests.Sorted()
	if len(interests) == 0 {
		interests = []string{"sightseeing"}
	}

	const nights = 5
	plan := &model.TravelPlan{
		Title:       fmt.Sprintf("%d nights in %s", nights, prefs.Destination),
		Summary:     fmt.Sprintf("A %s trip to %s built around %s.", prefs.Style, prefs.Destination, interests[0]),
		Destination: prefs.Destination,
		Tips: []string{
			"Install your eSIM before departure and switch it on after landing.",
			"Keep a copy of your booking reference offline.",
		},
	}
	for day := 1; day <= nights; day++ {
		focus := interests[(day-1)%len(interests)]
		plan.Days = append(plan.Days, model.PlanDay{
			Day:        day,
			Title:      fmt.Sprintf("Day of %s", focus),
			Activities: []string{"Morning: " + focus, "Afternoon: explore by " + prefs.Transportation, "Evening: local dinner"},
		})
	}
	for _, p := range []struct {
		name string
		mod  float64
	}{{"Essential", 0.7}, {"Balanced", 1.0}, {"Premium", 1.8}} {
		plan.Packages = append(plan.Packages, model.TripPackage{
			Name:          p.name,
			Description:   fmt.Sprintf("%s %s stay in %s", p.name, prefs.Accommodation, prefs.Destination),
			Nights:        nights,
			EstimatedCost: float64(int(base*p.mod/10) * 10),
			Currency:      "USD",
			Accommodation: prefs.Accommodation,
		})
	}
	return plan
}

// OfflineItinerary generates plans with FallbackPlan.
type OfflineItinerary struct{}

func (OfflineItinerary) Generate(_ context.Context, prefs model.Preferences) (*model.TravelPlan, error) {
	return FallbackPlan(prefs), nil
}
