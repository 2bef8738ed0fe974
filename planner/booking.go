package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trippin/i18n"
	"trippin/model"
	"trippin/pricing"
	"trippin/services"
)

// BookingStep is a step of the booking wizard.
type BookingStep int

const (
	BookingExisting BookingStep = iota
	BookingFlights
	BookingDataPlan
	BookingTraveler
	BookingConfirmation
)

var bookingStepNames = [...]string{
	BookingExisting:     "existing-bookings",
	BookingFlights:      "flights",
	BookingDataPlan:     "data-plan",
	BookingTraveler:     "traveler-info",
	BookingConfirmation: "confirmation",
}

func (s BookingStep) String() string {
	if s < 0 || int(s) >= len(bookingStepNames) {
		return fmt.Sprintf("BookingStep(%d)", int(s))
	}
	return bookingStepNames[s]
}

func (s BookingStep) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(bookingStepNames) {
		return nil, fmt.Errorf("unknown booking step %d", int(s))
	}
	return []byte(bookingStepNames[s]), nil
}

// advance moves one step forward from the expected step.
func (s BookingStep) advance(from BookingStep) (BookingStep, error) {
	if s != from || s == BookingConfirmation {
		return s, fmt.Errorf("%w: %s expected, booking is in %s", ErrInvalidTransition, from, s)
	}
	return s + 1, nil
}

// ─── Collaborators ───────────────────────────────────────────────────────────

type FlightSearcher interface {
	SearchFlights(ctx context.Context, q services.FlightQuery) ([]model.Flight, error)
}

// OrderHistory is the part of a session the booking reads.
type OrderHistory interface {
	SignedIn() bool
	Orders(ctx context.Context) ([]*model.Order, error)
}

type BookingDeps struct {
	// Flights may be nil; offline fares are used then.
	Flights FlightSearcher
	Orders  OrderHistory
	// Currency of the booking totals. Defaults to the package currency.
	// Package and fares are converted into it at reference rates.
	Currency string
	Catalog  []model.Plan
	Now      func() time.Time
	Logger   *slog.Logger
}

// ─── Booking ─────────────────────────────────────────────────────────────────

type BookingState struct {
	ID           string             `json:"id"`
	Step         BookingStep        `json:"step"`
	Title        string             `json:"title"`
	Package      model.TripPackage  `json:"package"`
	Flights      []model.Flight     `json:"flights,omitempty"`
	FlightSource string             `json:"flight_source,omitempty"`
	Flight       *model.Flight      `json:"flight,omitempty"`
	DataPlans    []model.PricedPlan `json:"data_plans,omitempty"`
	DataPlan     *model.PricedPlan  `json:"data_plan,omitempty"`
	Booking      *model.Booking     `json:"booking,omitempty"`
	InFlight     bool               `json:"in_flight"`
	Error        string             `json:"error,omitempty"`
}

// Booking is the wizard that turns one trip package into a booking. It
// shares nothing with the planner that created it.
type Booking struct {
	id    string
	pkg   model.TripPackage
	prefs model.Preferences
	loc   *i18n.Localizer
	deps  BookingDeps
	log   *slog.Logger

	mu       sync.Mutex
	step     BookingStep
	flights  []model.Flight
	source   string
	flight   *model.Flight
	dataPlan *model.PricedPlan
	booking  *model.Booking
	errMsg   string
	inFlight bool
}

func NewBooking(pkg model.TripPackage, prefs model.Preferences, loc *i18n.Localizer, deps BookingDeps) *Booking {
	if loc == nil {
		loc = i18n.New(i18n.DefaultLanguage)
	}
	if deps.Currency == "" {
		deps.Currency = pkg.Currency
	}
	if !pricing.Supports(deps.Currency) {
		deps.Currency = pricing.DefaultCurrency
	}
	deps.Currency = strings.ToUpper(deps.Currency)
	pkg = packageIn(pkg, deps.Currency)
	if deps.Catalog == nil {
		deps.Catalog = model.Catalog()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if pkg.Nights <= 0 {
		pkg.Nights = 5
	}
	id := uuid.NewString()
	return &Booking{
		id:    id,
		pkg:   pkg,
		prefs: prefs,
		loc:   loc,
		deps:  deps,
		log:   deps.Logger.With("component", "booking", "booking", id),
		step:  BookingExisting,
	}
}

// packageIn expresses the package cost in cur. A package without a
// currency is taken to be in cur already; one in an unsupported currency
// is left as it is and cannot be booked.
func packageIn(pkg model.TripPackage, cur string) model.TripPackage {
	pkg.Currency = strings.ToUpper(pkg.Currency)
	if pkg.Currency == "" {
		pkg.Currency = cur
		return pkg
	}
	if cost, err := pricing.Convert(pkg.EstimatedCost, pkg.Currency, cur); err == nil {
		pkg.EstimatedCost = cost
		pkg.Currency = cur
	}
	return pkg
}

// flightsIn expresses the fares in cur, with the same rules as packageIn.
func flightsIn(flights []model.Flight, cur string) []model.Flight {
	res := make([]model.Flight, len(flights))
	for i, f := range flights {
		f.Currency = strings.ToUpper(f.Currency)
		if f.Currency == "" {
			f.Currency = cur
		} else if price, err := pricing.Convert(f.Price, f.Currency, cur); err == nil {
			f.Price = price
			f.Currency = cur
		}
		res[i] = f
	}
	return res
}

func (b *Booking) ID() string { return b.id }

func (b *Booking) Localizer() *i18n.Localizer { return b.loc }

func (b *Booking) State() BookingState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Booking) stateLocked() BookingState {
	st := BookingState{
		ID:           b.id,
		Step:         b.step,
		Title:        b.loc.T("booking.step." + b.step.String()),
		Package:      b.pkg,
		Flights:      b.flights,
		FlightSource: b.source,
		Flight:       b.flight,
		DataPlan:     b.dataPlan,
		Booking:      b.booking,
		InFlight:     b.inFlight,
		Error:        b.errMsg,
	}
	if b.step == BookingDataPlan {
		st.DataPlans, _ = pricing.QuoteAll(b.deps.Catalog, b.deps.Currency)
	}
	return st
}

func (b *Booking) advanceLocked(from BookingStep) error {
	to, err := b.step.advance(from)
	if err != nil {
		return err
	}
	b.step = to
	b.errMsg = ""
	return nil
}

// ExistingBookings lists the orders already on the visitor's account.
// Anonymous visitors have none.
func (b *Booking) ExistingBookings(ctx context.Context) ([]*model.Order, error) {
	if b.deps.Orders == nil || !b.deps.Orders.SignedIn() {
		return []*model.Order{}, nil
	}
	return b.deps.Orders.Orders(ctx)
}

// Continue leaves the existing bookings overview.
func (b *Booking) Continue() (BookingState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return b.stateLocked(), ErrInFlight
	}
	err := b.advanceLocked(BookingExisting)
	return b.stateLocked(), err
}

// dates derives departure and return from the dates answer.
func (b *Booking) dates() (string, string) {
	offset, ok := daysUntilDeparture[b.prefs.Dates]
	if !ok {
		offset = 14
	}
	dep := b.deps.Now().UTC().AddDate(0, 0, offset)
	ret := dep.AddDate(0, 0, b.pkg.Nights)
	return dep.Format("2006-01-02"), ret.Format("2006-01-02")
}

// SearchFlights looks up round trips for the package. When the flight
// service is unavailable or finds nothing, offline fares are offered.
func (b *Booking) SearchFlights(ctx context.Context) (BookingState, error) {
	b.mu.Lock()
	if b.inFlight {
		defer b.mu.Unlock()
		return b.stateLocked(), ErrInFlight
	}
	if b.step != BookingFlights {
		defer b.mu.Unlock()
		return b.stateLocked(), fmt.Errorf("%w: flight search in step %s", ErrInvalidTransition, b.step)
	}
	b.inFlight = true
	b.mu.Unlock()

	dest, ok := DestinationAirport(b.prefs.Destination)
	if !ok {
		dest = strings.ToUpper(b.prefs.Destination)
	}
	dep, ret := b.dates()

	var (
		flights []model.Flight
		err     error
	)
	source := "amadeus"
	if b.deps.Flights != nil {
		flights, err = b.deps.Flights.SearchFlights(ctx, services.FlightQuery{
			Origin:        b.prefs.Origin,
			Destination:   dest,
			DepartureDate: dep,
			ReturnDate:    ret,
			Currency:      b.deps.Currency,
		})
	}
	if b.deps.Flights == nil || err != nil || len(flights) == 0 {
		if err != nil {
			b.log.Warn("flight search failed, using offline fares", "origin", b.prefs.Origin, "destination", dest, "error", err)
		}
		flights = services.FallbackFlights(b.prefs.Origin, dest, dep, ret)
		source = "estimated"
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight = false
	b.flights = flightsIn(flights, b.deps.Currency)
	b.source = source
	b.flight = nil
	b.errMsg = ""
	return b.stateLocked(), nil
}

// ChooseFlight picks one of the searched flights.
func (b *Booking) ChooseFlight(index int) (BookingState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return b.stateLocked(), ErrInFlight
	}
	if b.step != BookingFlights {
		return b.stateLocked(), fmt.Errorf("%w: choose flight in step %s", ErrInvalidTransition, b.step)
	}
	if index < 0 || index >= len(b.flights) {
		return b.stateLocked(), &model.ValidationError{Key: "validation.unknown_option", Fields: []string{"flight"}}
	}
	f := b.flights[index]
	b.flight = &f
	err := b.advanceLocked(BookingFlights)
	return b.stateLocked(), err
}

// ChooseDataPlan adds an eSIM plan to the trip.
func (b *Booking) ChooseDataPlan(planID int) (BookingState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return b.stateLocked(), ErrInFlight
	}
	if b.step != BookingDataPlan {
		return b.stateLocked(), fmt.Errorf("%w: choose data plan in step %s", ErrInvalidTransition, b.step)
	}
	plan, ok := model.FindPlan(b.deps.Catalog, planID)
	if !ok {
		return b.stateLocked(), &model.ValidationError{Key: "validation.unknown_plan", Fields: []string{"plan_id"}}
	}
	q, err := pricing.Quote(plan, b.deps.Currency)
	if err != nil {
		return b.stateLocked(), err
	}
	b.dataPlan = &q
	err = b.advanceLocked(BookingDataPlan)
	return b.stateLocked(), err
}

// SubmitTraveler validates the traveler and confirms the booking.
func (b *Booking) SubmitTraveler(t model.Traveler) (BookingState, error) {
	t.FirstName = strings.TrimSpace(t.FirstName)
	t.LastName = strings.TrimSpace(t.LastName)
	t.Email = strings.TrimSpace(t.Email)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return b.stateLocked(), ErrInFlight
	}
	if b.step != BookingTraveler {
		return b.stateLocked(), fmt.Errorf("%w: traveler in step %s", ErrInvalidTransition, b.step)
	}

	if bad := model.InvalidFields(t); len(bad) > 0 {
		b.errMsg = b.loc.T("booking.alert.traveler")
		return b.stateLocked(), &model.ValidationError{Key: "booking.alert.traveler", Fields: bad}
	}
	if bad := b.foreignPartsLocked(); len(bad) > 0 {
		b.log.Warn("booking refused, mixed currencies", "currency", b.deps.Currency, "parts", bad)
		b.errMsg = b.loc.T("booking.alert.currency")
		return b.stateLocked(), &model.ValidationError{Key: "booking.alert.currency", Fields: bad}
	}

	total := pricing.Round(b.pkg.EstimatedCost+b.flight.Price+b.dataPlan.Price, b.deps.Currency)
	b.booking = &model.Booking{
		Reference: strings.ToUpper(uuid.NewString()),
		Package:   b.pkg,
		Flight:    *b.flight,
		DataPlan:  *b.dataPlan,
		Traveler:  t,
		Total:     total,
		Currency:  b.deps.Currency,
		CreatedAt: b.deps.Now().UTC(),
	}
	err := b.advanceLocked(BookingTraveler)
	b.log.Info("booking confirmed", "reference", b.booking.Reference, "total", total)
	return b.stateLocked(), err
}

// foreignPartsLocked names the parts of the booking that are not priced in
// the booking currency.
func (b *Booking) foreignPartsLocked() []string {
	var bad []string
	if b.pkg.Currency != b.deps.Currency {
		bad = append(bad, "package")
	}
	if b.flight.Currency != b.deps.Currency {
		bad = append(bad, "flight")
	}
	if b.dataPlan.Currency != b.deps.Currency {
		bad = append(bad, "data_plan")
	}
	return bad
}

// Confirmation returns the confirmed booking.
func (b *Booking) Confirmation() (*model.Booking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.step != BookingConfirmation || b.booking == nil {
		return nil, fmt.Errorf("%w: booking is in %s", ErrInvalidTransition, b.step)
	}
	cp := *b.booking
	return &cp, nil
}
