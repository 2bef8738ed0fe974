package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"trippin/model"
	"trippin/pricing"
)

// PaymentSession is a hosted checkout page created for one plan.
type PaymentSession struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	BaseURL    string
}

// StripeClient creates Checkout Sessions over the plain REST API.
type StripeClient struct {
	secretKey  string
	successURL string
	cancelURL  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewStripeClient(cfg StripeConfig, httpClient *http.Client) *StripeClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &StripeClient{
		secretKey:  cfg.SecretKey,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     slog.Default().With("component", "stripe"),
	}
}

func (c *StripeClient) Configured() bool {
	return c != nil && c.secretKey != ""
}

func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.secretKey, "")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.AdapterError{Adapter: "stripe", Message: "Payment service is unreachable. Please try again.", Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := "Payment failed. Please try again."
		if json.Unmarshal(respBody, &e) == nil && e.Error.Message != "" {
			msg = e.Error.Message
		}
		return &model.AdapterError{Adapter: "stripe", Message: msg, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse stripe response: %w", err)
	}
	return nil
}

// CreateCheckoutSession opens a one-item payment session for plan at its
// quoted price.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, plan model.PricedPlan) (*PaymentSession, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(plan.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(pricing.MinorUnits(plan.Price, plan.Currency), 10))
	form.Set("line_items[0][price_data][product_data][name]", fmt.Sprintf("%s eSIM (%s, %s)", plan.Name, plan.Duration, plan.Data))
	form.Set("metadata[plan_id]", strconv.Itoa(plan.ID))

	var out PaymentSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	c.logger.Info("checkout session created", "session", out.ID, "plan", plan.ID)
	return &out, nil
}

// PaymentSucceeded returns nil once the session is paid.
func (c *StripeClient) PaymentSucceeded(ctx context.Context, sessionID string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var out struct {
		PaymentStatus string `json:"payment_status"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return err
	}
	switch out.PaymentStatus {
	case "paid", "no_payment_required":
		return nil
	default:
		return &model.AdapterError{Adapter: "stripe", Message: "Payment has not been completed yet."}
	}
}

// SimulatedPayments accepts every payment. It stands in for Stripe when
// no secret key is configured.
type SimulatedPayments struct{}

func (SimulatedPayments) CreateCheckoutSession(_ context.Context, _ model.PricedPlan) (*PaymentSession, error) {
	return &PaymentSession{ID: "sim_" + uuid.NewString()}, nil
}

func (SimulatedPayments) PaymentSucceeded(context.Context, string) error { return nil }
