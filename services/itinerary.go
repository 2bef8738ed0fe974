package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"trippin/model"
)

type ItineraryConfig struct {
	APIKey string
	Model  string
	// BaseURL of an OpenAI compatible API, without the
	// /chat/completions suffix.
	BaseURL string
}

// ItineraryClient asks a chat-completions model for travel plans.
type ItineraryClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewItineraryClient(cfg ItineraryConfig, httpClient *http.Client) *ItineraryClient {
	if cfg.Model == "" {
		cfg.Model = "mistralai/Mistral-7B-Instruct-v0.3"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://router.huggingface.co/v1"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ItineraryClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     slog.Default().With("component", "itinerary"),
	}
}

func (c *ItineraryClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *ItineraryClient) complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.6,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusServiceUnavailable {
		return "", fmt.Errorf("model is loading, please retry in a few seconds")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion error (%d): %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse chat completion: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", fmt.Errorf("chat completion error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return parsed.Choices[0].Message.Content, nil
}

const plannerSystemPrompt = `You are a travel planner. Answer with a single JSON object and nothing else.
Schema: {"title": string, "summary": string, "destination": string,
"days": [{"day": number, "title": string, "activities": [string]}],
"packages": [{"name": string, "description": string, "nights": number,
"estimated_cost": number, "currency": "USD", "accommodation": string}],
"tips": [string]}.
Offer exactly three packages: a budget one, a balanced one and a premium one.`

// Generate asks the model for a plan matching prefs. A reply that is not
// valid JSON is not an error: it becomes the summary of an otherwise
// empty plan.
func (c *ItineraryClient) Generate(ctx context.Context, prefs model.Preferences) (*model.TravelPlan, error) {
	text, err := c.complete(ctx, plannerSystemPrompt, buildPlannerPrompt(prefs), 1200)
	if err != nil {
		return nil, &model.AdapterError{Adapter: "itinerary", Message: "the travel planner is unavailable, please try again", Err: err}
	}
	plan, ok := parseTravelPlan(text, prefs.Destination)
	if !ok {
		c.logger.Warn("itinerary reply is not JSON, keeping it as summary", "destination", prefs.Destination)
	}
	return plan, nil
}

func buildPlannerPrompt(p model.Preferences) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a trip from %s to %s.\n", p.Origin, p.Destination)
	fmt.Fprintf(&b, "Travel dates: %s\n", p.Dates)
	fmt.Fprintf(&b, "Budget: %s\n", p.Budget)
	fmt.Fprintf(&b, "Travel style: %s\n", p.Style)
	fmt.Fprintf(&b, "Interests: %s\n", strings.Join(p.Interests.Sorted(), ", "))
	fmt.Fprintf(&b, "Accommodation: %s\n", p.Accommodation)
	fmt.Fprintf(&b, "Getting around: %s\n", p.Transportation)
	return b.String()
}

func parseTravelPlan(text, destination string) (*model.TravelPlan, bool) {
	plan := &model.TravelPlan{}
	ok := true
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start || json.Unmarshal([]byte(text[start:end+1]), plan) != nil {
		plan = &model.TravelPlan{Summary: strings.TrimSpace(text)}
		ok = false
	}
	if plan.Destination == "" {
		plan.Destination = destination
	}
	return plan, ok
}

// TripSummary is the input of Recommend.
type TripSummary struct {
	Origin        string
	Destination   string
	DepartureDate string
	ReturnDate    string
	Passengers    int
	Budget        float64
	Flights       []model.Flight
	Hotels        []model.Hotel
	Estimated     bool
}

// Recommend writes a short recommendation for a flight/hotel search.
func (c *ItineraryClient) Recommend(ctx context.Context, s TripSummary) (string, error) {
	note := ""
	if s.Estimated {
		note = " Note: prices are estimated, real-time data unavailable."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Trip: %s -> %s | %s to %s | %d passenger(s) | Budget: $%.0f%s\n\nFlights available:\n",
		s.Origin, s.Destination, s.DepartureDate, s.ReturnDate, s.Passengers, s.Budget, note)
	for i, f := range s.Flights {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "  %d. %s - $%.0f (%d stop(s), %s)\n", i+1, f.Airline, f.Price, f.Stops, f.Duration)
	}
	b.WriteString("\nHotels (per night):\n")
	for i, h := range s.Hotels {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "  %d. %s - $%.0f/night (%.1f stars) %s\n", i+1, h.Name, h.Price, h.Rating, h.Location)
	}
	b.WriteString("\nIn 150 words or fewer, recommend the best flight and hotel that fit the budget. " +
		`Use the sections "Flight:" and "Hotel:". Be direct.`)

	return c.complete(ctx, "You are a helpful travel assistant. Give brief, honest recommendations.", b.String(), 400)
}
