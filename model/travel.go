package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Preferences accumulate the answers of the travel-preference wizard.
// Every field except Interests is single valued.
type Preferences struct {
	Origin         string      `json:"origin"`
	Destination    string      `json:"destination"`
	Dates          string      `json:"dates"`
	Budget         string      `json:"budget"`
	Style          string      `json:"style"`
	Interests      InterestSet `json:"interests"`
	Accommodation  string      `json:"accommodation"`
	Transportation string      `json:"transportation"`
}

// Clone returns a deep copy so the interest set is not shared.
func (p Preferences) Clone() Preferences {
	cp := p
	cp.Interests = p.Interests.Clone()
	return cp
}

// InterestSet is an unordered set of interest tags.
type InterestSet map[string]struct{}

// Toggle adds tag if absent and removes it if present. It reports whether
// tag is a member afterwards.
func (s InterestSet) Toggle(tag string) bool {
	if _, ok := s[tag]; ok {
		delete(s, tag)
		return false
	}
	s[tag] = struct{}{}
	return true
}

func (s InterestSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Sorted returns the members in lexical order.
func (s InterestSet) Sorted() []string {
	res := make([]string, 0, len(s))
	for k := range s {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

func (s InterestSet) Clone() InterestSet {
	cp := make(InterestSet, len(s))
	for k := range s {
		cp[k] = struct{}{}
	}
	return cp
}

func (s InterestSet) Equal(o InterestSet) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if !o.Has(k) {
			return false
		}
	}
	return true
}

func (s InterestSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *InterestSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*s = make(InterestSet, len(tags))
	for _, t := range tags {
		(*s)[t] = struct{}{}
	}
	return nil
}

// TravelPlan is the synthesized itinerary. Its shape is not validated;
// missing sections simply stay empty.
type TravelPlan struct {
	Title       string        `json:"title"`
	Summary     string        `json:"summary"`
	Destination string        `json:"destination"`
	Days        []PlanDay     `json:"days"`
	Packages    []TripPackage `json:"packages"`
	Tips        []string      `json:"tips"`
}

type PlanDay struct {
	Day        int      `json:"day"`
	Title      string   `json:"title"`
	Activities []string `json:"activities"`
}

// TripPackage is one bookable option of a TravelPlan.
type TripPackage struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Nights        int     `json:"nights"`
	EstimatedCost float64 `json:"estimated_cost"`
	Currency      string  `json:"currency"`
	Accommodation string  `json:"accommodation"`
}

// ─── Search ─────────────────────────────────────────────────────────────────

type Flight struct {
	Price               float64 `json:"price"`
	Airline             string  `json:"airline"`
	AirlineCode         string  `json:"airline_code,omitempty"`
	FlightNumber        string  `json:"flight_number,omitempty"`
	DepartureTime       string  `json:"departure_time"`
	ArrivalTime         string  `json:"arrival_time"`
	Duration            string  `json:"duration"`
	Stops               int     `json:"stops"`
	ReturnDepartureTime string  `json:"return_departure_time,omitempty"`
	ReturnArrivalTime   string  `json:"return_arrival_time,omitempty"`
	ReturnDuration      string  `json:"return_duration,omitempty"`
	ReturnStops         int     `json:"return_stops,omitempty"`
	Currency            string  `json:"currency,omitempty"`
}

type Hotel struct {
	Name     string  `json:"name"`
	HotelID  string  `json:"hotel_id,omitempty"`
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"`
	Location string  `json:"location"`
	Currency string  `json:"currency,omitempty"`
}

// Search is a persisted run of the flight/hotel search demo.
type Search struct {
	ID            string    `json:"id"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureDate string    `json:"departure_date"`
	ReturnDate    string    `json:"return_date"`
	Budget        float64   `json:"budget"`
	Passengers    int       `json:"passengers"`
	Flights       []Flight  `json:"flights"`
	Hotels        []Hotel   `json:"hotels"`
	Summary       string    `json:"summary"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
}

// ─── Booking ────────────────────────────────────────────────────────────────

type Traveler struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty"`
	Passport  string `json:"passport,omitempty"`
}

// Booking is the confirmation produced by the booking sub-wizard.
type Booking struct {
	Reference string      `json:"reference"`
	Package   TripPackage `json:"package"`
	Flight    Flight      `json:"flight"`
	DataPlan  PricedPlan  `json:"data_plan"`
	Traveler  Traveler    `json:"traveler"`
	Total     float64     `json:"total"`
	Currency  string      `json:"currency"`
	CreatedAt time.Time   `json:"created_at"`
}
