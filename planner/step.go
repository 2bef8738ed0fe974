package planner

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid planner transition")

// Step is a travel-preference wizard step. The order of the constants is
// the order of the questions.
type Step int

const (
	StepGreeting Step = iota
	StepDestination
	StepDates
	StepBudget
	StepStyle
	StepInterests
	StepAccommodation
	StepTransportation
	StepGenerating
	StepResults
)

var stepNames = [...]string{
	StepGreeting:       "greeting",
	StepDestination:    "destination",
	StepDates:          "dates",
	StepBudget:         "budget",
	StepStyle:          "style",
	StepInterests:      "interests",
	StepAccommodation:  "accommodation",
	StepTransportation: "transportation",
	StepGenerating:     "generating",
	StepResults:        "results",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stepNames) {
		return nil, fmt.Errorf("unknown planner step %d", int(s))
	}
	return []byte(stepNames[s]), nil
}

func (s *Step) UnmarshalText(b []byte) error {
	for i, name := range stepNames {
		if name == string(b) {
			*s = Step(i)
			return nil
		}
	}
	return fmt.Errorf("unknown planner step %q", b)
}

// singleChoice reports whether picking one option answers the step.
func (s Step) singleChoice() bool {
	switch s {
	case StepDestination, StepDates, StepBudget, StepStyle, StepAccommodation, StepTransportation:
		return true
	}
	return false
}

type event int

const (
	evStart event = iota
	evChoose
	evContinue
	evGenerate
	evGenerated
	evGenerateFailed
	evRestart
)

func (e event) String() string {
	switch e {
	case evStart:
		return "start"
	case evChoose:
		return "choose"
	case evContinue:
		return "continue"
	case evGenerate:
		return "generate"
	case evGenerated:
		return "generated"
	case evGenerateFailed:
		return "generate-failed"
	case evRestart:
		return "restart"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// next is the whole transition table of the wizard.
func next(s Step, e event) (Step, error) {
	if e == evRestart {
		return StepGreeting, nil
	}
	switch s {
	case StepGreeting:
		if e == evStart {
			return StepDestination, nil
		}
	case StepDestination, StepDates, StepBudget, StepStyle, StepAccommodation:
		if e == evChoose {
			return s + 1, nil
		}
	case StepInterests:
		if e == evContinue {
			return StepAccommodation, nil
		}
	case StepTransportation:
		if e == evChoose || e == evGenerate {
			return StepGenerating, nil
		}
	case StepGenerating:
		switch e {
		case evGenerated:
			return StepResults, nil
		case evGenerateFailed:
			return StepTransportation, nil
		}
	}
	return s, fmt.Errorf("%w: %s in step %s", ErrInvalidTransition, e, s)
}
