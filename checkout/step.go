package checkout

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an action is not allowed in the
// current step.
var ErrInvalidTransition = errors.New("invalid checkout transition")

// Step is a checkout wizard step.
type Step int

const (
	StepPlanSelection Step = iota
	StepAuthentication
	StepPayment
	StepQRIssuance
	StepCompletion
)

var stepNames = [...]string{
	StepPlanSelection:  "plan-selection",
	StepAuthentication: "authentication",
	StepPayment:        "payment",
	StepQRIssuance:     "qr-issuance",
	StepCompletion:     "completion",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stepNames) {
		return nil, fmt.Errorf("unknown checkout step %d", int(s))
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
	return fmt.Errorf("unknown checkout step %q", b)
}

type event int

const (
	evSelectPlan event = iota
	evAuthenticated
	evPaid
	evAcknowledged
	evCancel
	evRestart
)

func (e event) String() string {
	switch e {
	case evSelectPlan:
		return "select-plan"
	case evAuthenticated:
		return "authenticated"
	case evPaid:
		return "paid"
	case evAcknowledged:
		return "acknowledged"
	case evCancel:
		return "cancel"
	case evRestart:
		return "restart"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// next is the whole transition table. signedIn only matters when a plan is
// picked: signed-in visitors go straight to payment.
func next(s Step, e event, signedIn bool) (Step, error) {
	switch s {
	case StepPlanSelection:
		if e == evSelectPlan {
			if signedIn {
				return StepPayment, nil
			}
			return StepAuthentication, nil
		}
	case StepAuthentication:
		switch e {
		case evAuthenticated:
			return StepPayment, nil
		case evCancel:
			return StepPlanSelection, nil
		}
	case StepPayment:
		switch e {
		case evPaid:
			return StepQRIssuance, nil
		case evCancel:
			return StepPlanSelection, nil
		}
	case StepQRIssuance:
		if e == evAcknowledged {
			return StepCompletion, nil
		}
	case StepCompletion:
		if e == evRestart {
			return StepPlanSelection, nil
		}
	}
	return s, fmt.Errorf("%w: %s in step %s", ErrInvalidTransition, e, s)
}
