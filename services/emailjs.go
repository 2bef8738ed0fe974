package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trippin/model"
	"trippin/pricing"
)

type EmailJSConfig struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	BaseURL    string
}

// EmailJSClient sends transactional mail through the EmailJS REST API.
type EmailJSClient struct {
	cfg        EmailJSConfig
	httpClient *http.Client
}

func NewEmailJSClient(cfg EmailJSConfig, httpClient *http.Client) *EmailJSClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.emailjs.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &EmailJSClient{cfg: cfg, httpClient: httpClient}
}

func (c *EmailJSClient) Configured() bool {
	return c != nil && c.cfg.ServiceID != "" && c.cfg.TemplateID != "" && c.cfg.PublicKey != ""
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// SendOrderConfirmation mails the order summary to the user.
func (c *EmailJSClient) SendOrderConfirmation(ctx context.Context, user *model.User, order *model.Order) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if user == nil || user.Email == "" {
		return fmt.Errorf("no recipient for order %s", order.ID)
	}

	name := user.Profile.Name
	if name == "" {
		name = user.Email
	}
	body, err := json.Marshal(emailJSRequest{
		ServiceID:   c.cfg.ServiceID,
		TemplateID:  c.cfg.TemplateID,
		UserID:      c.cfg.PublicKey,
		AccessToken: c.cfg.PrivateKey,
		TemplateParams: map[string]string{
			"to_email":  user.Email,
			"to_name":   name,
			"order_id":  order.ID,
			"plan_name": order.PlanName,
			"price":     pricing.Format(order.Price, order.Currency),
			"duration":  order.Duration,
			"data":      order.Data,
			"date":      order.CreatedAt.Format("2006-01-02"),
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/v1.0/email/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("emailjs error (%d): %s", resp.StatusCode, string(msg))
	}
	return nil
}
