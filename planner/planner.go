// Package planner implements the travel-preference wizard and the booking
// wizard opened from one of its trip packages.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"trippin/i18n"
	"trippin/model"
)

var (
	// ErrMissingFields is returned when generation is requested before
	// origin, destination and dates are known.
	ErrMissingFields = errors.New("missing trip details")
	ErrInFlight      = errors.New("another action is in progress")
	ErrNoPlan        = errors.New("no travel plan")
)

// Itinerary generates a travel plan.
type Itinerary interface {
	Generate(ctx context.Context, prefs model.Preferences) (*model.TravelPlan, error)
}

// State is a snapshot of a wizard.
type State struct {
	ID          string            `json:"id"`
	Step        Step              `json:"step"`
	Title       string            `json:"title"`
	Options     []Option          `json:"options,omitempty"`
	Preferences model.Preferences `json:"preferences"`
	Plan        *model.TravelPlan `json:"plan,omitempty"`
	InFlight    bool              `json:"in_flight"`
	Error       string            `json:"error,omitempty"`
}

// Wizard walks a visitor through the trip questions and asks the
// itinerary service for a plan once the last one is answered.
type Wizard struct {
	id        string
	itinerary Itinerary
	loc       *i18n.Localizer
	log       *slog.Logger

	mu       sync.Mutex
	step     Step
	prefs    model.Preferences
	plan     *model.TravelPlan
	errMsg   string
	inFlight bool
}

func New(itinerary Itinerary, loc *i18n.Localizer, logger *slog.Logger) *Wizard {
	if loc == nil {
		loc = i18n.New(i18n.DefaultLanguage)
	}
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Wizard{
		id:        id,
		itinerary: itinerary,
		loc:       loc,
		log:       logger.With("component", "planner", "wizard", id),
		step:      StepGreeting,
		prefs:     model.Preferences{Interests: model.InterestSet{}},
	}
}

func (w *Wizard) ID() string { return w.id }

func (w *Wizard) Localizer() *i18n.Localizer { return w.loc }

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Wizard) stateLocked() State {
	st := State{
		ID:          w.id,
		Step:        w.step,
		Title:       w.loc.T("planner.step." + w.step.String()),
		Preferences: w.prefs.Clone(),
		Plan:        w.plan,
		InFlight:    w.inFlight,
		Error:       w.errMsg,
	}
	for _, v := range catalog[w.step] {
		st.Options = append(st.Options, Option{
			Value:    v,
			Label:    w.loc.T("option." + w.step.String() + "." + v),
			Selected: w.selectedLocked(v),
		})
	}
	return st
}

func (w *Wizard) selectedLocked(v string) bool {
	switch w.step {
	case StepDestination:
		return w.prefs.Destination == v
	case StepDates:
		return w.prefs.Dates == v
	case StepBudget:
		return w.prefs.Budget == v
	case StepStyle:
		return w.prefs.Style == v
	case StepInterests:
		return w.prefs.Interests.Has(v)
	case StepAccommodation:
		return w.prefs.Accommodation == v
	case StepTransportation:
		return w.prefs.Transportation == v
	}
	return false
}

func (w *Wizard) transitionLocked(e event) error {
	to, err := next(w.step, e)
	if err != nil {
		return err
	}
	w.log.Debug("planner transition", "from", w.step.String(), "to", to.String(), "event", e.String())
	w.step = to
	return nil
}

// ─── Actions ─────────────────────────────────────────────────────────────────

// Start leaves the greeting.
func (w *Wizard) Start() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return w.stateLocked(), ErrInFlight
	}
	err := w.transitionLocked(evStart)
	return w.stateLocked(), err
}

// SetOrigin records the departure airport. It can be changed at any point
// before generation starts.
func (w *Wizard) SetOrigin(origin string) (State, error) {
	origin = strings.ToUpper(strings.TrimSpace(origin))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return w.stateLocked(), ErrInFlight
	}
	if !model.Valid(origin, "len=3,alpha") {
		return w.stateLocked(), &model.ValidationError{Key: "validation.origin", Fields: []string{"origin"}}
	}
	if w.step >= StepGenerating {
		return w.stateLocked(), fmt.Errorf("%w: origin in step %s", ErrInvalidTransition, w.step)
	}
	w.prefs.Origin = origin
	return w.stateLocked(), nil
}

// Choose answers the current single-choice step and advances exactly one
// step. Answering transportation also generates the plan.
func (w *Wizard) Choose(ctx context.Context, option string) (State, error) {
	w.mu.Lock()
	if w.inFlight {
		defer w.mu.Unlock()
		return w.stateLocked(), ErrInFlight
	}
	step := w.step
	if !step.singleChoice() {
		defer w.mu.Unlock()
		_, err := next(step, evChoose)
		return w.stateLocked(), err
	}
	if !validOption(step, option) {
		defer w.mu.Unlock()
		return w.stateLocked(), &model.ValidationError{Key: "validation.unknown_option", Fields: []string{step.String()}}
	}

	switch step {
	case StepDestination:
		w.prefs.Destination = option
	case StepDates:
		w.prefs.Dates = option
	case StepBudget:
		w.prefs.Budget = option
	case StepStyle:
		w.prefs.Style = option
	case StepAccommodation:
		w.prefs.Accommodation = option
	case StepTransportation:
		w.prefs.Transportation = option
	}

	if step != StepTransportation {
		defer w.mu.Unlock()
		err := w.transitionLocked(evChoose)
		return w.stateLocked(), err
	}
	return w.generateLocked(ctx, evChoose)
}

// ToggleInterest adds or removes one interest tag.
func (w *Wizard) ToggleInterest(tag string) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return w.stateLocked(), ErrInFlight
	}
	if w.step != StepInterests {
		return w.stateLocked(), fmt.Errorf("%w: toggle in step %s", ErrInvalidTransition, w.step)
	}
	if !validOption(StepInterests, tag) {
		return w.stateLocked(), &model.ValidationError{Key: "validation.unknown_option", Fields: []string{"interests"}}
	}
	w.prefs.Interests.Toggle(tag)
	return w.stateLocked(), nil
}

// ContinueInterests leaves the interests step once something is picked.
func (w *Wizard) ContinueInterests() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return w.stateLocked(), ErrInFlight
	}
	if w.step == StepInterests && len(w.prefs.Interests) == 0 {
		return w.stateLocked(), &model.ValidationError{Key: "planner.alert.no_interests", Fields: []string{"interests"}}
	}
	err := w.transitionLocked(evContinue)
	return w.stateLocked(), err
}

// Generate retries plan generation after a failure.
func (w *Wizard) Generate(ctx context.Context) (State, error) {
	w.mu.Lock()
	if w.inFlight {
		defer w.mu.Unlock()
		return w.stateLocked(), ErrInFlight
	}
	if w.step != StepTransportation || w.prefs.Transportation == "" {
		defer w.mu.Unlock()
		return w.stateLocked(), fmt.Errorf("%w: %s in step %s", ErrInvalidTransition, evGenerate, w.step)
	}
	return w.generateLocked(ctx, evGenerate)
}

// generateLocked is entered with w.mu held and returns with it released.
// A failure sends the wizard back to transportation with the error set so
// the visitor can retry.
func (w *Wizard) generateLocked(ctx context.Context, e event) (State, error) {
	if missing := w.missingLocked(); len(missing) > 0 {
		defer w.mu.Unlock()
		return w.stateLocked(), fmt.Errorf("%w: %w", ErrMissingFields,
			&model.ValidationError{Key: "planner.alert.missing_fields", Fields: missing})
	}
	if err := w.transitionLocked(e); err != nil {
		defer w.mu.Unlock()
		return w.stateLocked(), err
	}
	w.inFlight = true
	w.errMsg = ""
	prefs := w.prefs.Clone()
	w.mu.Unlock()

	plan, err := w.itinerary.Generate(ctx, prefs)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	if err != nil || plan == nil {
		if err == nil {
			err = ErrNoPlan
		}
		w.log.Warn("travel plan generation failed", "destination", prefs.Destination, "error", err)
		msg := err.Error()
		var aerr *model.AdapterError
		if errors.As(err, &aerr) && aerr.Message != "" {
			msg = aerr.Message
		}
		w.errMsg = w.loc.T("planner.error.generate", msg)
		if terr := w.transitionLocked(evGenerateFailed); terr != nil {
			return w.stateLocked(), terr
		}
		return w.stateLocked(), err
	}
	w.plan = plan
	if err := w.transitionLocked(evGenerated); err != nil {
		return w.stateLocked(), err
	}
	return w.stateLocked(), nil
}

func (w *Wizard) missingLocked() []string {
	var missing []string
	if w.prefs.Origin == "" {
		missing = append(missing, "origin")
	}
	if w.prefs.Destination == "" {
		missing = append(missing, "destination")
	}
	if w.prefs.Dates == "" {
		missing = append(missing, "dates")
	}
	return missing
}

// Restart drops every answer and the plan.
func (w *Wizard) Restart() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return w.stateLocked(), ErrInFlight
	}
	if err := w.transitionLocked(evRestart); err != nil {
		return w.stateLocked(), err
	}
	w.prefs = model.Preferences{Interests: model.InterestSet{}}
	w.plan = nil
	w.errMsg = ""
	return w.stateLocked(), nil
}

// Book opens a booking wizard for one package of the generated plan. The
// booking gets its own copy of the package and preferences.
func (w *Wizard) Book(packageIndex int, deps BookingDeps) (*Booking, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepResults || w.plan == nil {
		return nil, fmt.Errorf("%w: book in step %s", ErrInvalidTransition, w.step)
	}
	if packageIndex < 0 || packageIndex >= len(w.plan.Packages) {
		return nil, &model.ValidationError{Key: "validation.unknown_option", Fields: []string{"package"}}
	}
	return NewBooking(w.plan.Packages[packageIndex], w.prefs.Clone(), w.loc, deps), nil
}
