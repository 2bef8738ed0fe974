package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trippin/model"
)

func TestSendOrderConfirmation(t *testing.T) {
	var got emailJSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1.0/email/send" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := NewEmailJSClient(EmailJSConfig{ServiceID: "svc", TemplateID: "tpl", PublicKey: "pub", BaseURL: srv.URL}, srv.Client())
	user := &model.User{Email: "ana@example.com"}
	order := &model.Order{ID: "o-1", PlanName: "Basic", Price: 5.99, Currency: "USD", CreatedAt: time.Now()}

	if err := c.SendOrderConfirmation(context.Background(), user, order); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.ServiceID != "svc" || got.TemplateParams["order_id"] != "o-1" || got.TemplateParams["price"] != "$5.99" {
		t.Fatalf("request = %+v", got)
	}
	if got.TemplateParams["to_name"] != "ana@example.com" {
		t.Errorf("to_name = %q", got.TemplateParams["to_name"])
	}
}

func TestSendOrderConfirmation_NotConfigured(t *testing.T) {
	c := NewEmailJSClient(EmailJSConfig{}, nil)
	err := c.SendOrderConfirmation(context.Background(), &model.User{Email: "a@b.c"}, &model.Order{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}
