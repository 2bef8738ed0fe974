package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trippin/model"
)

func testPrefs() model.Preferences {
	return model.Preferences{
		Origin:         "Seoul",
		Destination:    "tokyo",
		Dates:          "next-month",
		Budget:         "moderate",
		Style:          "cultural",
		Interests:      model.InterestSet{"food": {}, "history": {}},
		Accommodation:  "hotel",
		Transportation: "public",
	}
}

func TestParseTravelPlan(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantOK  bool
		summary string
		days    int
	}{
		{
			name:   "fenced json",
			text:   "```json\n{\"title\":\"Tokyo\",\"days\":[{\"day\":1,\"title\":\"Arrive\",\"activities\":[\"Shibuya\"]}]}\n```",
			wantOK: true,
			days:   1,
		},
		{
			name:    "plain text",
			text:    "  Visit Tokyo in autumn.  ",
			summary: "Visit Tokyo in autumn.",
		},
		{
			name:    "wrong field types",
			text:    `{"days":"three"}`,
			summary: `{"days":"three"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, ok := parseTravelPlan(tt.text, "tokyo")
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if plan.Destination != "tokyo" {
				t.Errorf("destination = %q", plan.Destination)
			}
			if plan.Summary != tt.summary {
				t.Errorf("summary = %q, want %q", plan.Summary, tt.summary)
			}
			if len(plan.Days) != tt.days {
				t.Errorf("days = %d, want %d", len(plan.Days), tt.days)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) != 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if !strings.Contains(req.Messages[1].Content, "food, history") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"title\":\"Tokyo\",\"packages\":[{\"name\":\"Budget\",\"nights\":4,\"estimated_cost\":900}]}"}}]}`))
	}))
	defer srv.Close()

	c := NewItineraryClient(ItineraryConfig{APIKey: "key", BaseURL: srv.URL}, srv.Client())
	plan, err := c.Generate(context.Background(), testPrefs())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if plan.Title != "Tokyo" || len(plan.Packages) != 1 || plan.Packages[0].Nights != 4 {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestGenerate_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewItineraryClient(ItineraryConfig{APIKey: "key", BaseURL: srv.URL}, srv.Client())
	if _, err := c.Generate(context.Background(), testPrefs()); err == nil {
		t.Fatal("expected error on 503")
	}

	unconfigured := NewItineraryClient(ItineraryConfig{}, nil)
	if _, err := unconfigured.Generate(context.Background(), testPrefs()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}
