package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"trippin/database/kvdb"
	"trippin/model"
	"trippin/services"
	"trippin/session"
)

type fakeIssuer struct{ err error }

func (f fakeIssuer) Issue(_ context.Context, planID int) (*model.QRCode, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.QRCode{PlanID: planID, Payload: "LPA:1$test"}, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMailer) SendOrderConfirmation(_ context.Context, _ *model.User, o *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, o.ID)
	return nil
}

type fakeTravel struct {
	configured bool
	flightErr  error
}

func (f fakeTravel) Configured() bool { return f.configured }

func (f fakeTravel) SearchFlights(_ context.Context, q services.FlightQuery) ([]model.Flight, error) {
	if f.flightErr != nil {
		return nil, f.flightErr
	}
	return []model.Flight{{Airline: "Live Air", Price: 420, Stops: 0, Currency: "USD"}}, nil
}

func (f fakeTravel) SearchHotels(_ context.Context, q services.HotelQuery) ([]model.Hotel, error) {
	return []model.Hotel{{Name: "Live Hotel", Price: 100, Rating: 4.4, Location: q.CityCode}}, nil
}

type testServer struct {
	router *gin.Engine
	deps   Deps
	token  string
}

func newTestServer(t *testing.T, mutate func(*Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b, err := kvdb.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := Deps{
		Backend:   b,
		Sessions:  session.NewManager(b, session.WithHashCost(4)),
		Payments:  services.SimulatedPayments{},
		Issuer:    fakeIssuer{},
		Itinerary: services.OfflineItinerary{},
		Logger:    logger,
		WizardTTL: time.Hour,
	}
	if mutate != nil {
		mutate(&d)
	}
	r, err := NewRouter(New(d), []string{"http://localhost:5173"}, []string{"0.0.0.0/0"})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return &testServer{router: r, deps: d}
}

// do sends a request with the current session token and remembers the
// token the server echoes.
func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set(SessionHeader, s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if tok := rec.Header().Get(SessionHeader); tok != "" {
		s.token = tok
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, want, rec.Body.String())
	}
}

type stateBody struct {
	State struct {
		ID       string `json:"id"`
		Step     string `json:"step"`
		Currency string `json:"currency"`
		OrderID  string `json:"order_id"`
		Error    string `json:"error"`
		Plan     *struct {
			ID    int     `json:"id"`
			Price float64 `json:"price"`
		} `json:"plan"`
		QR *model.QRCode `json:"qr"`
	} `json:"state"`
	Plans []model.PricedPlan `json:"plans"`
	Code  string             `json:"code"`
	Error string             `json:"error"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/api/health", nil)
	expectStatus(t, rec, http.StatusOK)

	var body struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	decode(t, rec, &body)
	if body.Status != "ok" || body.Database != "ok" {
		t.Fatalf("unexpected health %+v", body)
	}
}

func TestPricing(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/pricing?currency=jpy", nil)
	expectStatus(t, rec, http.StatusOK)
	var body pricingResponse
	decode(t, rec, &body)
	if body.Currency != "JPY" || len(body.Plans) != len(model.Catalog()) {
		t.Fatalf("unexpected pricing %+v", body)
	}

	rec = s.do(t, http.MethodGet, "/api/pricing?currency=XXX", nil)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestDictionary(t *testing.T) {
	s := newTestServer(t, nil)
	expectStatus(t, s.do(t, http.MethodGet, "/api/i18n/ko", nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodGet, "/api/i18n/xx", nil), http.StatusNotFound)
}

func TestSessionLoginAndProfile(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/session", nil)
	expectStatus(t, rec, http.StatusOK)
	var anon sessionResponse
	decode(t, rec, &anon)
	if anon.SignedIn || anon.Token == "" {
		t.Fatalf("expected anonymous session with token, got %+v", anon)
	}

	creds := session.Credentials{Email: "mina@example.com", Password: "secret"}
	rec = s.do(t, http.MethodPost, "/api/session/login", creds)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get(SessionHeader) != anon.Token {
		t.Fatal("login must keep the session token")
	}

	rec = s.do(t, http.MethodPut, "/api/session/profile", model.Profile{Name: "Mina", Currency: "krw"})
	expectStatus(t, rec, http.StatusOK)
	var updated sessionResponse
	decode(t, rec, &updated)
	if updated.User == nil || updated.User.Profile.Currency != "KRW" {
		t.Fatalf("profile not updated: %+v", updated.User)
	}

	rec = s.do(t, http.MethodPut, "/api/session/profile", model.Profile{Currency: "XXX"})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	other := &testServer{router: s.router}
	rec = other.do(t, http.MethodPost, "/api/session/login", session.Credentials{Email: "mina@example.com", Password: "wrong"})
	expectStatus(t, rec, http.StatusUnauthorized)

	expectStatus(t, s.do(t, http.MethodPost, "/api/session/logout", nil), http.StatusOK)
	rec = s.do(t, http.MethodGet, "/api/session/orders", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestCheckoutFlow(t *testing.T) {
	mailer := &fakeMailer{}
	s := newTestServer(t, func(d *Deps) { d.Mailer = mailer })

	rec := s.do(t, http.MethodPost, "/api/checkout", map[string]string{"currency": "JPY"})
	expectStatus(t, rec, http.StatusCreated)
	var st stateBody
	decode(t, rec, &st)
	if st.State.Step != "plan-selection" || st.State.Currency != "JPY" || len(st.Plans) == 0 {
		t.Fatalf("unexpected new checkout %+v", st)
	}
	base := "/api/checkout/" + st.State.ID

	rec = s.do(t, http.MethodPost, base+"/plan", map[string]int{"plan_id": 1})
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &st)
	if st.State.Step != "authentication" || st.State.Plan == nil || st.State.Plan.ID != 1 {
		t.Fatalf("unexpected state after plan %+v", st.State)
	}

	rec = s.do(t, http.MethodPost, base+"/login", session.Credentials{Email: "ken@example.com", Password: "pw"})
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &st)
	if st.State.Step != "payment" {
		t.Fatalf("step after login = %s", st.State.Step)
	}

	expectStatus(t, s.do(t, http.MethodPost, base+"/payment", nil), http.StatusOK)
	rec = s.do(t, http.MethodPost, base+"/payment/confirm", nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &st)
	if st.State.Step != "qr-issuance" || st.State.OrderID == "" {
		t.Fatalf("unexpected state after payment %+v", st.State)
	}

	rec = s.do(t, http.MethodPost, base+"/issue", nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &st)
	if st.State.QR == nil || st.State.QR.PlanID != 1 {
		t.Fatalf("expected QR for plan 1, got %+v", st.State.QR)
	}

	rec = s.do(t, http.MethodGet, base+"/receipt", nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("receipt content type = %q", ct)
	}

	rec = s.do(t, http.MethodPost, base+"/ack", nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &st)
	if st.State.Step != "completion" {
		t.Fatalf("step after ack = %s", st.State.Step)
	}

	rec = s.do(t, http.MethodGet, "/api/session/orders", nil)
	expectStatus(t, rec, http.StatusOK)
	var orders struct {
		Orders []model.Order `json:"orders"`
	}
	decode(t, rec, &orders)
	if len(orders.Orders) != 1 || orders.Orders[0].Currency != "JPY" {
		t.Fatalf("unexpected order history %+v", orders.Orders)
	}

	rec = s.do(t, http.MethodPost, base+"/restart", nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &st)
	if st.State.Step != "plan-selection" || st.State.Plan != nil {
		t.Fatalf("unexpected state after restart %+v", st.State)
	}
}

func TestCheckoutErrors(t *testing.T) {
	s := newTestServer(t, func(d *Deps) {
		d.Issuer = fakeIssuer{err: &model.AdapterError{Adapter: "qr", Message: "Failed to generate QR code. Please try again."}}
	})

	rec := s.do(t, http.MethodPost, "/api/checkout", nil)
	expectStatus(t, rec, http.StatusCreated)
	var st stateBody
	decode(t, rec, &st)
	base := "/api/checkout/" + st.State.ID

	rec = s.do(t, http.MethodPost, base+"/plan", map[string]int{"plan_id": 12345})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = s.do(t, http.MethodPost, base+"/ack", nil)
	expectStatus(t, rec, http.StatusConflict)
	decode(t, rec, &st)
	if st.Code != "INVALID_TRANSITION" || st.State.Step != "plan-selection" {
		t.Fatalf("unexpected error body %+v", st)
	}

	expectStatus(t, s.do(t, http.MethodPost, base+"/plan", map[string]int{"plan_id": 99}), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, base+"/login", session.Credentials{Email: "a@b.co", Password: "x"}), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, base+"/payment/confirm", nil), http.StatusOK)

	rec = s.do(t, http.MethodPost, base+"/issue", nil)
	expectStatus(t, rec, http.StatusBadGateway)
	decode(t, rec, &st)
	if st.Error != "Failed to generate QR code. Please try again." || st.State.Step != "qr-issuance" {
		t.Fatalf("unexpected issue failure %+v", st)
	}
}

func TestCheckoutBoundToSession(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/api/checkout", nil)
	expectStatus(t, rec, http.StatusCreated)
	var st stateBody
	decode(t, rec, &st)

	stranger := &testServer{router: s.router}
	expectStatus(t, stranger.do(t, http.MethodGet, "/api/checkout/"+st.State.ID, nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodGet, "/api/checkout/"+st.State.ID, nil), http.StatusOK)
}

func TestPlannerAndBooking(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/planner", nil)
	expectStatus(t, rec, http.StatusCreated)
	var pl struct {
		ID   string            `json:"id"`
		Step string            `json:"step"`
		Plan *model.TravelPlan `json:"plan"`
	}
	decode(t, rec, &pl)
	base := "/api/planner/" + pl.ID

	expectStatus(t, s.do(t, http.MethodGet, base+"/pdf", nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodPost, base+"/origin", map[string]string{"origin": "ic"}), http.StatusUnprocessableEntity)
	expectStatus(t, s.do(t, http.MethodPost, base+"/origin", map[string]string{"origin": "icn"}), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, base+"/start", nil), http.StatusOK)
	for _, option := range []string{"tokyo", "next-week", "moderate", "cultural"} {
		expectStatus(t, s.do(t, http.MethodPost, base+"/choose", map[string]string{"option": option}), http.StatusOK)
	}
	expectStatus(t, s.do(t, http.MethodPost, base+"/interests/toggle", map[string]string{"interest": "food"}), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, base+"/interests/continue", nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, base+"/choose", map[string]string{"option": "hotel"}), http.StatusOK)

	rec = s.do(t, http.MethodPost, base+"/choose", map[string]string{"option": "public"})
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &pl)
	if pl.Step != "results" || pl.Plan == nil || len(pl.Plan.Packages) == 0 {
		t.Fatalf("expected results with packages, got %+v", pl)
	}

	rec = s.do(t, http.MethodGet, base+"/pdf", nil)
	expectStatus(t, rec, http.StatusOK)
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("expected a PDF document")
	}

	expectStatus(t, s.do(t, http.MethodPost, base+"/book", map[string]int{"package_index": 9}), http.StatusUnprocessableEntity)
	rec = s.do(t, http.MethodPost, base+"/book", map[string]int{"package_index": 0})
	expectStatus(t, rec, http.StatusCreated)
	var bk struct {
		ID           string         `json:"id"`
		Step         string         `json:"step"`
		FlightSource string         `json:"flight_source"`
		Booking      *model.Booking `json:"booking"`
	}
	decode(t, rec, &bk)
	if bk.Step != "existing-bookings" {
		t.Fatalf("booking starts at %s", bk.Step)
	}
	bbase := "/api/booking/" + bk.ID

	expectStatus(t, s.do(t, http.MethodGet, bbase+"/existing", nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, bbase+"/continue", nil), http.StatusOK)
	rec = s.do(t, http.MethodPost, bbase+"/flights/search", nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &bk)
	if bk.FlightSource != "estimated" {
		t.Fatalf("flight source = %q, want estimated", bk.FlightSource)
	}
	expectStatus(t, s.do(t, http.MethodPost, bbase+"/flights/choose", map[string]int{"index": 0}), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, bbase+"/data-plan", map[string]int{"plan_id": 2}), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, bbase+"/traveler", model.Traveler{FirstName: "Ana"}), http.StatusUnprocessableEntity)

	rec = s.do(t, http.MethodPost, bbase+"/traveler", model.Traveler{FirstName: "Ana", LastName: "Kim", Email: "ana@example.com"})
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &bk)
	if bk.Step != "confirmation" || bk.Booking == nil || bk.Booking.Reference == "" {
		t.Fatalf("unexpected confirmation %+v", bk)
	}

	rec = s.do(t, http.MethodPost, base+"/restart", nil)
	expectStatus(t, rec, http.StatusOK)
	var restarted struct {
		Step string            `json:"step"`
		Plan *model.TravelPlan `json:"plan"`
	}
	decode(t, rec, &restarted)
	if restarted.Step != "greeting" || restarted.Plan != nil {
		t.Fatalf("unexpected state after restart %+v", restarted)
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name       string
		travel     TravelSearcher
		wantSource string
	}{
		{"unconfigured", nil, "estimated"},
		{"live", fakeTravel{configured: true}, "live"},
		{"live failure", fakeTravel{configured: true, flightErr: errors.New("boom")}, "estimated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, func(d *Deps) { d.Travel = tt.travel })
			rec := s.do(t, http.MethodPost, "/api/search", SearchRequest{
				Origin: "icn", Destination: "nrt",
				DepartureDate: "2026-11-01", ReturnDate: "2026-11-05",
				Budget: 2000,
			})
			expectStatus(t, rec, http.StatusOK)
			var got model.Search
			decode(t, rec, &got)
			if got.Source != tt.wantSource || got.Summary == "" || len(got.Flights) == 0 || len(got.Hotels) == 0 {
				t.Fatalf("unexpected search %+v", got)
			}
			if got.Origin != "ICN" || got.Passengers != 1 {
				t.Fatalf("request not normalized: %+v", got)
			}

			rec = s.do(t, http.MethodGet, "/api/search/"+got.ID, nil)
			expectStatus(t, rec, http.StatusOK)
			var stored model.Search
			decode(t, rec, &stored)
			if stored.ID != got.ID || stored.Summary != got.Summary {
				t.Fatalf("stored search differs: %+v", stored)
			}
		})
	}
}

func TestSearchValidation(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name string
		req  SearchRequest
	}{
		{"long code", SearchRequest{Origin: "ICNX", Destination: "NRT", DepartureDate: "2026-11-01", ReturnDate: "2026-11-05", Budget: 1}},
		{"bad date", SearchRequest{Origin: "ICN", Destination: "NRT", DepartureDate: "11/01/2026", ReturnDate: "2026-11-05", Budget: 1}},
		{"return before departure", SearchRequest{Origin: "ICN", Destination: "NRT", DepartureDate: "2026-11-05", ReturnDate: "2026-11-01", Budget: 1}},
		{"no budget", SearchRequest{Origin: "ICN", Destination: "NRT", DepartureDate: "2026-11-01", ReturnDate: "2026-11-05"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, s.do(t, http.MethodPost, "/api/search", tt.req), http.StatusBadRequest)
		})
	}
	expectStatus(t, s.do(t, http.MethodGet, "/api/search/missing", nil), http.StatusNotFound)
}

func TestRouterRejectsBadTrustedProxy(t *testing.T) {
	if _, err := NewRouter(New(Deps{}), nil, []string{"10.0.0.0/99"}); err == nil {
		t.Fatal("expected an error for an invalid proxy CIDR")
	}
}

func TestRegistryExpires(t *testing.T) {
	r := newRegistry[int](50*time.Millisecond, 10)

	r.put("a", "owner", 1)
	if v, ok := r.get("a", "owner"); !ok || v != 1 {
		t.Fatalf("get = %d, %v", v, ok)
	}
	if _, ok := r.get("a", "someone else"); ok {
		t.Fatal("wizard must not be visible to another session")
	}

	time.Sleep(100 * time.Millisecond)
	if _, ok := r.get("a", "owner"); ok {
		t.Fatal("expected entry to expire")
	}
	if r.len() != 0 {
		t.Fatalf("len = %d", r.len())
	}
}

func TestRegistryIsBounded(t *testing.T) {
	r := newRegistry[int](time.Hour, 3)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		r.put(id, "owner", i)
	}
	if r.len() != 3 {
		t.Fatalf("len = %d, want 3", r.len())
	}
	if _, ok := r.get("a", "owner"); ok {
		t.Fatal("oldest wizard should have been dropped")
	}
	if v, ok := r.get("e", "owner"); !ok || v != 4 {
		t.Fatalf("get = %d, %v", v, ok)
	}
}

func TestTokenlessRequestsDoNotGrowSessions(t *testing.T) {
	s := newTestServer(t, func(d *Deps) {
		d.Sessions = session.NewManager(d.Backend, session.WithHashCost(4), session.WithMaxSessions(5))
	})
	for i := 0; i < 20; i++ {
		s.token = ""
		expectStatus(t, s.do(t, http.MethodPost, "/api/planner", nil), http.StatusCreated)
	}
	if n := s.deps.Sessions.Live(); n > 5 {
		t.Fatalf("live sessions = %d, want at most 5", n)
	}
}
