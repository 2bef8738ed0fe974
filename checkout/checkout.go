// Package checkout implements the plan selection and checkout wizard:
// plan-selection, authentication, payment, qr-issuance, completion.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trippin/i18n"
	"trippin/model"
	"trippin/pricing"
	"trippin/services"
	"trippin/session"
)

// ErrInFlight is returned while an external call started by an earlier
// action has not finished.
var ErrInFlight = errors.New("another action is in progress")

// ─── Collaborators ───────────────────────────────────────────────────────────

type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, plan model.PricedPlan) (*services.PaymentSession, error)
	PaymentSucceeded(ctx context.Context, sessionID string) error
}

type Issuer interface {
	Issue(ctx context.Context, planID int) (*model.QRCode, error)
}

type Mailer interface {
	SendOrderConfirmation(ctx context.Context, user *model.User, order *model.Order) error
}

// Observer is told about every order confirmation email attempt.
type Observer interface {
	EmailAttempted(orderID string, err error)
}

// Session is the part of *session.Session the wizard needs.
type Session interface {
	SignedIn() bool
	User() *model.User
	Login(ctx context.Context, c session.Credentials) (*model.User, error)
	AppendOrder(ctx context.Context, order *model.Order) error
}

type Deps struct {
	Payments PaymentProvider
	Issuer   Issuer
	Mailer   Mailer
	Observer Observer
	Logger   *slog.Logger
	// Currency shown to a fresh wizard. Defaults to pricing.DefaultCurrency.
	Currency string
	// Catalog defaults to model.Catalog().
	Catalog []model.Plan
	Now     func() time.Time
}

// ─── Wizard ──────────────────────────────────────────────────────────────────

// State is a snapshot of a wizard.
type State struct {
	ID             string                   `json:"id"`
	Step           Step                     `json:"step"`
	Title          string                   `json:"title"`
	Currency       string                   `json:"currency"`
	Plan           *model.PricedPlan        `json:"plan"`
	Free           bool                     `json:"free"`
	OrderID        string                   `json:"order_id,omitempty"`
	PaymentSession *services.PaymentSession `json:"payment_session,omitempty"`
	QR             *model.QRCode            `json:"qr,omitempty"`
	SignedIn       bool                     `json:"signed_in"`
	InFlight       bool                     `json:"in_flight"`
	Error          string                   `json:"error,omitempty"`
}

// Wizard is one checkout. All methods are safe for concurrent use; actions
// that call an external service hold an in-flight flag instead of the lock
// while the call runs.
type Wizard struct {
	id   string
	sess Session
	loc  *i18n.Localizer
	deps Deps
	log  *slog.Logger

	mu       sync.Mutex
	step     Step
	currency string
	plan     *model.PricedPlan
	payment  *services.PaymentSession
	order    *model.Order
	qr       *model.QRCode
	errMsg   string
	inFlight bool

	emails sync.WaitGroup
}

func New(sess Session, loc *i18n.Localizer, deps Deps) *Wizard {
	if loc == nil {
		loc = i18n.New(i18n.DefaultLanguage)
	}
	if deps.Currency == "" || !pricing.Supports(deps.Currency) {
		deps.Currency = pricing.DefaultCurrency
	}
	deps.Currency = strings.ToUpper(deps.Currency)
	if deps.Catalog == nil {
		deps.Catalog = model.Catalog()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	id := uuid.NewString()
	return &Wizard{
		id:       id,
		sess:     sess,
		loc:      loc,
		deps:     deps,
		log:      deps.Logger.With("component", "checkout", "wizard", id),
		step:     StepPlanSelection,
		currency: deps.Currency,
	}
}

func (w *Wizard) ID() string { return w.id }

// Localizer returns the table the wizard renders with.
func (w *Wizard) Localizer() *i18n.Localizer { return w.loc }

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Wizard) stateLocked() State {
	st := State{
		ID:             w.id,
		Step:           w.step,
		Title:          w.loc.T("checkout.step." + w.step.String()),
		Currency:       w.currency,
		PaymentSession: w.payment,
		QR:             w.qr,
		SignedIn:       w.sess.SignedIn(),
		InFlight:       w.inFlight,
		Error:          w.errMsg,
	}
	if w.plan != nil {
		p := *w.plan
		st.Plan = &p
		st.Free = p.Price == 0
	}
	if w.order != nil {
		st.OrderID = w.order.ID
	}
	return st
}

// Order returns the order created by the last successful payment.
func (w *Wizard) Order() (*model.Order, *model.QRCode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.order == nil {
		return nil, nil
	}
	o := *w.order
	return &o, w.qr
}

// Plans prices the catalog in the current currency.
func (w *Wizard) Plans() ([]model.PricedPlan, error) {
	w.mu.Lock()
	cur := w.currency
	w.mu.Unlock()
	return pricing.QuoteAll(w.deps.Catalog, cur)
}

// transitionLocked applies e and clears the inline error.
func (w *Wizard) transitionLocked(e event) error {
	to, err := next(w.step, e, w.sess.SignedIn())
	if err != nil {
		return err
	}
	w.log.Debug("checkout transition", "from", w.step.String(), "to", to.String(), "event", e.String())
	w.step = to
	w.errMsg = ""
	return nil
}

// begin marks an external call as running. The step must allow e.
func (w *Wizard) begin(e event) error {
	if w.inFlight {
		return ErrInFlight
	}
	if _, err := next(w.step, e, w.sess.SignedIn()); err != nil {
		return err
	}
	w.inFlight = true
	return nil
}

// ─── Actions ─────────────────────────────────────────────────────────────────

// SetCurrency changes the display currency. It never changes the step or
// which plan is selected, only its quoted price.
func (w *Wizard) SetCurrency(cur string) (State, error) {
	cur = strings.ToUpper(strings.TrimSpace(cur))
	if !pricing.Supports(cur) {
		return w.State(), &model.ValidationError{Key: "validation.unknown_currency", Fields: []string{"currency"}}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return w.stateLocked(), ErrInFlight
	}
	if w.plan != nil && w.order == nil {
		q, err := pricing.Quote(w.plan.Plan, cur)
		if err != nil {
			return w.stateLocked(), err
		}
		w.plan = &q
		// a session created for the old amount cannot be reused
		w.payment = nil
	}
	w.currency = cur
	return w.stateLocked(), nil
}

// SelectPlan picks a plan from the catalog and moves to authentication, or
// straight to payment when the session is signed in.
func (w *Wizard) SelectPlan(planID int) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return w.stateLocked(), ErrInFlight
	}
	if w.step != StepPlanSelection {
		_, err := next(w.step, evSelectPlan, w.sess.SignedIn())
		return w.stateLocked(), err
	}

	plan, ok := model.FindPlan(w.deps.Catalog, planID)
	if !ok {
		return w.stateLocked(), &model.ValidationError{Key: "validation.unknown_plan", Fields: []string{"plan_id"}}
	}
	q, err := pricing.Quote(plan, w.currency)
	if err != nil {
		return w.stateLocked(), err
	}
	if err := w.transitionLocked(evSelectPlan); err != nil {
		return w.stateLocked(), err
	}
	w.plan = &q
	return w.stateLocked(), nil
}

// Authenticate signs the session in and moves on to payment. A failed
// login keeps the wizard in authentication.
func (w *Wizard) Authenticate(ctx context.Context, c session.Credentials) (State, error) {
	w.mu.Lock()
	if err := w.begin(evAuthenticated); err != nil {
		defer w.mu.Unlock()
		return w.stateLocked(), err
	}
	w.mu.Unlock()

	_, err := w.sess.Login(ctx, c)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	if err != nil {
		w.errMsg = w.loc.T("checkout.error.login", w.describe(err))
		return w.stateLocked(), err
	}
	if err := w.transitionLocked(evAuthenticated); err != nil {
		return w.stateLocked(), err
	}
	return w.stateLocked(), nil
}

// StartPayment creates the payment session for the selected plan. Free
// plans need none and get a nil session.
func (w *Wizard) StartPayment(ctx context.Context) (State, error) {
	w.mu.Lock()
	if err := w.begin(evPaid); err != nil {
		defer w.mu.Unlock()
		return w.stateLocked(), err
	}
	plan := *w.plan
	if plan.Price == 0 {
		defer w.mu.Unlock()
		w.inFlight = false
		return w.stateLocked(), nil
	}
	w.mu.Unlock()

	ps, err := w.deps.Payments.CreateCheckoutSession(ctx, plan)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	if err != nil {
		w.errMsg = w.loc.T("checkout.error.payment", w.describe(err))
		return w.stateLocked(), err
	}
	w.payment = ps
	w.errMsg = ""
	return w.stateLocked(), nil
}

// ConfirmPayment completes the payment step. Paid plans are checked with
// the payment provider, creating the session first if StartPayment was
// skipped; free plans are confirmed without a call. On success an order is
// created, recorded in the session history and mailed in the background.
func (w *Wizard) ConfirmPayment(ctx context.Context) (State, error) {
	w.mu.Lock()
	if err := w.begin(evPaid); err != nil {
		defer w.mu.Unlock()
		return w.stateLocked(), err
	}
	plan := *w.plan
	ps := w.payment
	w.mu.Unlock()

	err := w.settle(ctx, plan, &ps)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	w.payment = ps
	if err != nil {
		w.errMsg = w.loc.T("checkout.error.payment", w.describe(err))
		return w.stateLocked(), err
	}

	order := &model.Order{
		ID:        uuid.NewString(),
		PlanID:    plan.ID,
		PlanName:  plan.Name,
		Price:     plan.Price,
		Currency:  plan.Currency,
		Duration:  plan.Duration,
		Data:      plan.Data,
		Status:    model.OrderStatusActive,
		CreatedAt: w.deps.Now().UTC(),
	}
	if err := w.transitionLocked(evPaid); err != nil {
		return w.stateLocked(), err
	}
	w.order = order

	if w.sess.SignedIn() {
		if err := w.sess.AppendOrder(ctx, order); err != nil {
			w.log.Error("failed to record order", "order", order.ID, "error", err)
		}
	}
	w.sendConfirmation(order)
	return w.stateLocked(), nil
}

func (w *Wizard) settle(ctx context.Context, plan model.PricedPlan, ps **services.PaymentSession) error {
	if plan.Price == 0 {
		return nil
	}
	if *ps == nil {
		created, err := w.deps.Payments.CreateCheckoutSession(ctx, plan)
		if err != nil {
			return err
		}
		*ps = created
	}
	return w.deps.Payments.PaymentSucceeded(ctx, (*ps).ID)
}

// sendConfirmation mails the order without blocking the wizard. The
// outcome only reaches the log and the observer.
func (w *Wizard) sendConfirmation(order *model.Order) {
	if w.deps.Mailer == nil {
		return
	}
	user := w.sess.User()
	o := *order

	w.emails.Add(1)
	go func() {
		defer w.emails.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := w.deps.Mailer.SendOrderConfirmation(ctx, user, &o)
		if err != nil {
			w.log.Warn("order confirmation email failed", "order", o.ID, "error", err)
		}
		if w.deps.Observer != nil {
			w.deps.Observer.EmailAttempted(o.ID, err)
		}
	}()
}

// Issue fetches the eSIM QR code for the paid plan. It may be retried
// after a failure.
func (w *Wizard) Issue(ctx context.Context) (State, error) {
	w.mu.Lock()
	if err := w.begin(evAcknowledged); err != nil {
		defer w.mu.Unlock()
		return w.stateLocked(), err
	}
	planID := w.plan.ID
	w.mu.Unlock()

	qr, err := w.deps.Issuer.Issue(ctx, planID)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	if err != nil {
		w.errMsg = w.loc.T("checkout.error.issue", w.describe(err))
		return w.stateLocked(), err
	}
	w.qr = qr
	w.errMsg = ""
	return w.stateLocked(), nil
}

// Acknowledge finishes the checkout. The QR code is not required to have
// been loaded.
func (w *Wizard) Acknowledge() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return w.stateLocked(), ErrInFlight
	}
	err := w.transitionLocked(evAcknowledged)
	return w.stateLocked(), err
}

// Cancel goes back to plan selection from authentication or payment and
// forgets the selected plan.
func (w *Wizard) Cancel() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return w.stateLocked(), ErrInFlight
	}
	if err := w.transitionLocked(evCancel); err != nil {
		return w.stateLocked(), err
	}
	w.plan = nil
	w.payment = nil
	w.order = nil
	return w.stateLocked(), nil
}

// Restart resets a completed wizard to the state of a new one.
func (w *Wizard) Restart() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return w.stateLocked(), ErrInFlight
	}
	if err := w.transitionLocked(evRestart); err != nil {
		return w.stateLocked(), err
	}
	w.plan = nil
	w.payment = nil
	w.order = nil
	w.qr = nil
	w.errMsg = ""
	w.currency = w.deps.Currency
	return w.stateLocked(), nil
}

// WaitEmails blocks until every confirmation email started so far has
// finished.
func (w *Wizard) WaitEmails() {
	w.emails.Wait()
}

// describe returns the user facing text of an adapter error.
func (w *Wizard) describe(err error) string {
	var aerr *model.AdapterError
	if errors.As(err, &aerr) && aerr.Message != "" {
		return aerr.Message
	}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return w.loc.T(verr.Key)
	}
	return err.Error()
}
