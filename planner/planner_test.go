package planner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"trippin/i18n"
	"trippin/model"
)

type fakeItinerary struct {
	mu    sync.Mutex
	calls int
	got   model.Preferences
	plan  *model.TravelPlan
	err   error
}

func (f *fakeItinerary) Generate(_ context.Context, p model.Preferences) (*model.TravelPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

func samplePlan() *model.TravelPlan {
	return &model.TravelPlan{
		Title:       "Tokyo",
		Destination: "tokyo",
		Packages: []model.TripPackage{
			{Name: "Budget", Nights: 4, EstimatedCost: 800, Currency: "USD"},
			{Name: "Premium", Nights: 6, EstimatedCost: 3000, Currency: "USD"},
		},
	}
}

// walkTo answers every question with its first option until the wizard
// reaches target. Origin is set on the way.
func walkTo(t *testing.T, w *Wizard, target Step) {
	t.Helper()
	ctx := context.Background()
	if _, err := w.SetOrigin("icn"); err != nil {
		t.Fatalf("origin: %v", err)
	}
	for {
		st := w.State()
		if st.Step == target {
			return
		}
		var err error
		switch {
		case st.Step == StepGreeting:
			_, err = w.Start()
		case st.Step == StepInterests:
			if _, err = w.ToggleInterest("food"); err == nil {
				_, err = w.ContinueInterests()
			}
		case st.Step.singleChoice():
			_, err = w.Choose(ctx, Options(st.Step)[0])
		default:
			t.Fatalf("cannot walk past %s", st.Step)
		}
		if err != nil {
			t.Fatalf("walking from %s: %v", st.Step, err)
		}
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		from    Step
		ev      event
		want    Step
		wantErr bool
	}{
		{StepGreeting, evStart, StepDestination, false},
		{StepDestination, evChoose, StepDates, false},
		{StepStyle, evChoose, StepInterests, false},
		{StepInterests, evChoose, StepInterests, true},
		{StepInterests, evContinue, StepAccommodation, false},
		{StepAccommodation, evChoose, StepTransportation, false},
		{StepTransportation, evChoose, StepGenerating, false},
		{StepTransportation, evGenerate, StepGenerating, false},
		{StepGenerating, evGenerated, StepResults, false},
		{StepGenerating, evGenerateFailed, StepTransportation, false},
		{StepResults, evChoose, StepResults, true},
		{StepResults, evRestart, StepGreeting, false},
		{StepGreeting, evGenerate, StepGreeting, true},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.ev.String(), func(t *testing.T) {
			got, err := next(tt.from, tt.ev)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("next = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestChooseAdvancesExactlyOneStep(t *testing.T) {
	steps := []Step{StepDestination, StepDates, StepBudget, StepStyle, StepAccommodation}
	for _, step := range steps {
		t.Run(step.String(), func(t *testing.T) {
			for _, option := range Options(step) {
				w := New(&fakeItinerary{}, nil, nil)
				walkTo(t, w, step)
				before := w.State().Preferences

				st, err := w.Choose(context.Background(), option)
				if err != nil {
					t.Fatalf("choose %s: %v", option, err)
				}
				if st.Step != step+1 {
					t.Fatalf("step = %s, want %s", st.Step, step+1)
				}

				want := before.Clone()
				switch step {
				case StepDestination:
					want.Destination = option
				case StepDates:
					want.Dates = option
				case StepBudget:
					want.Budget = option
				case StepStyle:
					want.Style = option
				case StepAccommodation:
					want.Accommodation = option
				}
				got := st.Preferences
				if got.Origin != want.Origin || got.Destination != want.Destination || got.Dates != want.Dates ||
					got.Budget != want.Budget || got.Style != want.Style || got.Accommodation != want.Accommodation ||
					got.Transportation != want.Transportation || !got.Interests.Equal(want.Interests) {
					t.Fatalf("preferences = %+v, want %+v", got, want)
				}
			}
		})
	}
}

func TestChooseRejectsUnknownOption(t *testing.T) {
	w := New(&fakeItinerary{}, nil, nil)
	walkTo(t, w, StepDates)

	st, err := w.Choose(context.Background(), "tokyo")
	var verr *model.ValidationError
	if !errors.As(err, &verr) || verr.Key != "validation.unknown_option" {
		t.Fatalf("err = %v", err)
	}
	if st.Step != StepDates || st.Preferences.Dates != "" {
		t.Fatalf("state changed: %+v", st)
	}
}

func TestToggleInterestIsIdempotentPerTag(t *testing.T) {
	w := New(&fakeItinerary{}, nil, nil)
	walkTo(t, w, StepInterests)

	for _, tag := range []string{"art", "history"} {
		if _, err := w.ToggleInterest(tag); err != nil {
			t.Fatal(err)
		}
	}
	before := w.State().Preferences.Interests

	for _, tag := range []string{"food", "art"} {
		w.ToggleInterest(tag)
		st, _ := w.ToggleInterest(tag)
		if !st.Preferences.Interests.Equal(before) {
			t.Fatalf("toggling %s twice changed the set: %v -> %v", tag, before.Sorted(), st.Preferences.Interests.Sorted())
		}
	}
	if st := w.State(); st.Step != StepInterests {
		t.Fatalf("toggling advanced the wizard to %s", st.Step)
	}
}

func TestContinueInterestsNeedsOne(t *testing.T) {
	w := New(&fakeItinerary{}, nil, nil)
	walkTo(t, w, StepInterests)

	var verr *model.ValidationError
	if _, err := w.ContinueInterests(); !errors.As(err, &verr) || verr.Key != "planner.alert.no_interests" {
		t.Fatalf("err = %v", err)
	}
	w.ToggleInterest("nature")
	st, err := w.ContinueInterests()
	if err != nil || st.Step != StepAccommodation {
		t.Fatalf("step %s err %v", st.Step, err)
	}
}

func TestGenerationRequiresOriginDestinationAndDates(t *testing.T) {
	tests := []struct {
		field string
		clear func(p *model.Preferences)
	}{
		{"origin", func(p *model.Preferences) { p.Origin = "" }},
		{"destination", func(p *model.Preferences) { p.Destination = "" }},
		{"dates", func(p *model.Preferences) { p.Dates = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			it := &fakeItinerary{plan: samplePlan()}
			w := New(it, i18n.New("en"), nil)
			walkTo(t, w, StepTransportation)

			// Clear the answer behind the wizard's back to reach the guard.
			w.mu.Lock()
			saved := w.prefs.Clone()
			tt.clear(&w.prefs)
			w.mu.Unlock()

			st, err := w.Choose(context.Background(), "walking")
			if !errors.Is(err, ErrMissingFields) {
				t.Fatalf("err = %v, want ErrMissingFields", err)
			}
			var verr *model.ValidationError
			if !errors.As(err, &verr) || verr.Key != "planner.alert.missing_fields" || len(verr.Fields) != 1 || verr.Fields[0] != tt.field {
				t.Fatalf("validation error = %+v", verr)
			}
			if it.calls != 0 {
				t.Fatalf("itinerary called %d times", it.calls)
			}
			if st.Step != StepTransportation || st.Preferences.Transportation != "walking" {
				t.Fatalf("state %+v", st)
			}

			w.mu.Lock()
			saved.Transportation = w.prefs.Transportation
			w.prefs = saved
			w.mu.Unlock()

			st, err = w.Generate(context.Background())
			if err != nil || st.Step != StepResults || it.calls != 1 {
				t.Fatalf("generate: step %s err %v calls %d", st.Step, err, it.calls)
			}
		})
	}
}

func TestGenerateSuccess(t *testing.T) {
	it := &fakeItinerary{plan: samplePlan()}
	w := New(it, nil, nil)
	walkTo(t, w, StepTransportation)

	st, err := w.Choose(context.Background(), "public")
	if err != nil {
		t.Fatal(err)
	}
	if st.Step != StepResults || st.Plan == nil || st.Plan.Title != "Tokyo" {
		t.Fatalf("state %+v", st)
	}
	if it.got.Transportation != "public" || it.got.Origin != "ICN" || !it.got.Interests.Has("food") {
		t.Fatalf("itinerary got %+v", it.got)
	}
}

func TestGenerateFailureBlocksAndRetries(t *testing.T) {
	it := &fakeItinerary{err: &model.AdapterError{Adapter: "itinerary", Message: "model is loading"}}
	w := New(it, nil, nil)
	walkTo(t, w, StepTransportation)

	st, err := w.Choose(context.Background(), "taxi")
	if err == nil {
		t.Fatal("expected error")
	}
	if st.Step != StepTransportation || st.Plan != nil {
		t.Fatalf("state %+v", st)
	}
	if st.Error != "We could not create your plan: model is loading" {
		t.Fatalf("error = %q", st.Error)
	}

	it.mu.Lock()
	it.err, it.plan = nil, samplePlan()
	it.mu.Unlock()
	st, err = w.Generate(context.Background())
	if err != nil || st.Step != StepResults || st.Error != "" {
		t.Fatalf("retry: %+v %v", st, err)
	}
}

func TestSetOrigin(t *testing.T) {
	w := New(&fakeItinerary{}, nil, nil)
	var verr *model.ValidationError
	for _, bad := range []string{"", "Seoul", "I1N"} {
		if _, err := w.SetOrigin(bad); !errors.As(err, &verr) {
			t.Errorf("SetOrigin(%q) err = %v", bad, err)
		}
	}
	st, err := w.SetOrigin(" lhr ")
	if err != nil || st.Preferences.Origin != "LHR" {
		t.Fatalf("origin = %q err %v", st.Preferences.Origin, err)
	}
}

func TestRestart(t *testing.T) {
	w := New(&fakeItinerary{plan: samplePlan()}, nil, nil)
	walkTo(t, w, StepResults)

	st, err := w.Restart()
	if err != nil {
		t.Fatal(err)
	}
	if st.Step != StepGreeting || st.Plan != nil || st.Preferences.Destination != "" || len(st.Preferences.Interests) != 0 {
		t.Fatalf("state %+v", st)
	}
}

func TestOptionsAreLocalized(t *testing.T) {
	w := New(&fakeItinerary{}, i18n.New("en"), nil)
	walkTo(t, w, StepDestination)
	st := w.State()
	if len(st.Options) != len(Options(StepDestination)) {
		t.Fatalf("got %d options", len(st.Options))
	}
	if st.Options[0].Label != "Tokyo" || st.Title != "Where are you going?" {
		t.Fatalf("options %+v title %q", st.Options[0], st.Title)
	}
}

func TestBook(t *testing.T) {
	w := New(&fakeItinerary{plan: samplePlan()}, nil, nil)
	if _, err := w.Book(0, BookingDeps{}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("book before results: %v", err)
	}
	walkTo(t, w, StepResults)

	if _, err := w.Book(5, BookingDeps{}); err == nil {
		t.Fatal("expected error for unknown package")
	}
	b, err := w.Book(1, BookingDeps{})
	if err != nil {
		t.Fatal(err)
	}
	st := b.State()
	if st.Step != BookingExisting || st.Package.Name != "Premium" {
		t.Fatalf("booking %+v", st)
	}
	if ws := w.State(); ws.Step != StepResults {
		t.Fatalf("planner moved to %s", ws.Step)
	}
}
