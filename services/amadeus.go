package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"trippin/model"
)

// ErrNotConfigured is returned by adapters that have no credentials.
var ErrNotConfigured = errors.New("adapter not configured")

// ─── Amadeus Client ───────────────────────────────────────────────────────────

type AmadeusConfig struct {
	ClientID     string
	ClientSecret string
	// Env selects the API host: "production" or anything else for the
	// free test environment.
	Env     string
	BaseURL string
}

// AmadeusClient searches flights and hotels. The OAuth2 access token is
// cached until shortly before it expires.
type AmadeusClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
	logger       *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewAmadeusClient(cfg AmadeusConfig, httpClient *http.Client) *AmadeusClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://test.api.amadeus.com"
		if cfg.Env == "production" {
			baseURL = "https://api.amadeus.com"
		}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &AmadeusClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
		logger:       slog.Default().With("component", "amadeus"),
	}
}

// Configured reports whether credentials are present.
func (c *AmadeusClient) Configured() bool {
	return c != nil && c.clientID != "" && c.clientSecret != ""
}

func (c *AmadeusClient) refreshToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}

	c.accessToken = result.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(result.ExpiresIn-30) * time.Second)
	return c.accessToken, nil
}

func (c *AmadeusClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}
	return c.refreshToken(ctx)
}

func (c *AmadeusClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("amadeus error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// ─── Flight Search ────────────────────────────────────────────────────────────

type FlightQuery struct {
	Origin        string
	Destination   string
	DepartureDate string
	ReturnDate    string
	Adults        int
	Currency      string
	Max           int
}

// SearchFlights calls the Flight Offers Search API.
func (c *AmadeusClient) SearchFlights(ctx context.Context, q FlightQuery) ([]model.Flight, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if q.Adults <= 0 {
		q.Adults = 1
	}
	if q.Max <= 0 {
		q.Max = 6
	}
	if q.Currency == "" {
		q.Currency = "USD"
	}

	query := url.Values{}
	query.Set("originLocationCode", q.Origin)
	query.Set("destinationLocationCode", q.Destination)
	query.Set("departureDate", q.DepartureDate)
	if q.ReturnDate != "" {
		query.Set("returnDate", q.ReturnDate)
	}
	query.Set("adults", strconv.Itoa(q.Adults))
	query.Set("max", strconv.Itoa(q.Max))
	query.Set("currencyCode", q.Currency)

	body, err := c.get(ctx, "/v2/shopping/flight-offers", query)
	if err != nil {
		return nil, fmt.Errorf("flight search failed: %w", err)
	}
	return parseFlightOffers(body)
}

type amadeusSegment struct {
	Departure struct {
		IataCode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"departure"`
	Arrival struct {
		IataCode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"arrival"`
	CarrierCode string `json:"carrierCode"`
	Number      string `json:"number"`
}

type amadeusItinerary struct {
	Duration string           `json:"duration"`
	Segments []amadeusSegment `json:"segments"`
}

type amadeusFlightOffersResponse struct {
	Data []struct {
		Price struct {
			GrandTotal string `json:"grandTotal"`
			Currency   string `json:"currency"`
		} `json:"price"`
		Itineraries            []amadeusItinerary `json:"itineraries"`
		ValidatingAirlineCodes []string           `json:"validatingAirlineCodes"`
	} `json:"data"`
}

func parseFlightOffers(data []byte) ([]model.Flight, error) {
	var resp amadeusFlightOffersResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse flight offers: %w", err)
	}

	flights := make([]model.Flight, 0, len(resp.Data))
	for _, offer := range resp.Data {
		if len(offer.Itineraries) == 0 {
			continue
		}
		price := parsePrice(offer.Price.GrandTotal)
		if price <= 0 {
			continue
		}

		outbound := offer.Itineraries[0]
		airlineCode := ""
		if len(outbound.Segments) > 0 {
			airlineCode = outbound.Segments[0].CarrierCode
		} else if len(offer.ValidatingAirlineCodes) > 0 {
			airlineCode = offer.ValidatingAirlineCodes[0]
		}

		f := model.Flight{
			Price:       price,
			Airline:     airlineName(airlineCode),
			AirlineCode: airlineCode,
			Currency:    offer.Price.Currency,
			Stops:       stops(outbound),
			Duration:    parseDuration(outbound.Duration),
		}
		if n := len(outbound.Segments); n > 0 {
			f.DepartureTime = outbound.Segments[0].Departure.At
			f.ArrivalTime = outbound.Segments[n-1].Arrival.At
			f.FlightNumber = airlineCode + outbound.Segments[0].Number
		}
		if len(offer.Itineraries) > 1 {
			ret := offer.Itineraries[1]
			f.ReturnStops = stops(ret)
			f.ReturnDuration = parseDuration(ret.Duration)
			if n := len(ret.Segments); n > 0 {
				f.ReturnDepartureTime = ret.Segments[0].Departure.At
				f.ReturnArrivalTime = ret.Segments[n-1].Arrival.At
			}
		}
		flights = append(flights, f)
	}
	return flights, nil
}

func stops(it amadeusItinerary) int {
	if len(it.Segments) == 0 {
		return 0
	}
	return len(it.Segments) - 1
}

// ─── Hotel Search ─────────────────────────────────────────────────────────────

type HotelQuery struct {
	CityCode string
	CheckIn  string
	CheckOut string
	Adults   int
	Currency string
}

// SearchHotels resolves the hotels of a city and then asks for their
// best offers. At most 20 hotels are priced per call.
func (c *AmadeusClient) SearchHotels(ctx context.Context, q HotelQuery) ([]model.Hotel, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if q.Adults <= 0 {
		q.Adults = 1
	}
	if q.Currency == "" {
		q.Currency = "USD"
	}

	ids, err := c.hotelIDsByCity(ctx, airportToCity(q.CityCode))
	if err != nil {
		return nil, fmt.Errorf("hotel list failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no hotels found for city %s", q.CityCode)
	}
	if len(ids) > 20 {
		ids = ids[:20]
	}

	query := url.Values{}
	query.Set("hotelIds", strings.Join(ids, ","))
	query.Set("checkInDate", q.CheckIn)
	query.Set("checkOutDate", q.CheckOut)
	query.Set("adults", strconv.Itoa(q.Adults))
	query.Set("roomQuantity", "1")
	query.Set("currency", q.Currency)
	query.Set("bestRateOnly", "true")

	body, err := c.get(ctx, "/v3/shopping/hotel-offers", query)
	if err != nil {
		return nil, fmt.Errorf("hotel offers failed: %w", err)
	}
	return parseHotelOffers(body)
}

func (c *AmadeusClient) hotelIDsByCity(ctx context.Context, cityCode string) ([]string, error) {
	query := url.Values{}
	query.Set("cityCode", cityCode)
	query.Set("radius", "5")
	query.Set("radiusUnit", "KM")
	query.Set("hotelSource", "ALL")

	body, err := c.get(ctx, "/v1/reference-data/locations/hotels/by-city", query)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []struct {
			HotelID string `json:"hotelId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse hotel list: %w", err)
	}
	ids := make([]string, 0, len(resp.Data))
	for _, h := range resp.Data {
		ids = append(ids, h.HotelID)
	}
	return ids, nil
}

type amadeusHotelOffersResponse struct {
	Data []struct {
		Hotel struct {
			HotelID  string `json:"hotelId"`
			Name     string `json:"name"`
			CityCode string `json:"cityCode"`
			Address  struct {
				CityName string `json:"cityName"`
			} `json:"address"`
			Rating string `json:"rating"`
		} `json:"hotel"`
		Available bool `json:"available"`
		Offers    []struct {
			Price struct {
				Total    string `json:"total"`
				Currency string `json:"currency"`
			} `json:"price"`
		} `json:"offers"`
	} `json:"data"`
}

func parseHotelOffers(data []byte) ([]model.Hotel, error) {
	var resp amadeusHotelOffersResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse hotel offers: %w", err)
	}

	hotels := make([]model.Hotel, 0, len(resp.Data))
	for _, item := range resp.Data {
		if !item.Available || len(item.Offers) == 0 {
			continue
		}
		price := parsePrice(item.Offers[0].Price.Total)
		if price <= 0 {
			continue
		}
		location := item.Hotel.Address.CityName
		if location == "" {
			location = item.Hotel.CityCode
		}
		hotels = append(hotels, model.Hotel{
			Name:     item.Hotel.Name,
			HotelID:  item.Hotel.HotelID,
			Price:    price,
			Rating:   parseRating(item.Hotel.Rating),
			Location: location,
			Currency: item.Offers[0].Price.Currency,
		})
	}
	return hotels, nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// parseDuration converts ISO 8601 durations (PT5H30M) to "5h 30m".
func parseDuration(iso string) string {
	iso = strings.TrimPrefix(iso, "PT")
	if iso == "" {
		return ""
	}
	var parts []string
	if i := strings.Index(iso, "H"); i >= 0 {
		parts = append(parts, iso[:i]+"h")
		iso = iso[i+1:]
	}
	if i := strings.Index(iso, "M"); i >= 0 {
		parts = append(parts, iso[:i]+"m")
	}
	return strings.Join(parts, " ")
}

func formatDurationMin(minutes int) string {
	h, m := minutes/60, minutes%60
	if m > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dh", h)
}

func parsePrice(s string) float64 {
	price, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return price
}

// parseRating clamps star ratings to 1-5, defaulting to 4.
func parseRating(s string) float64 {
	r, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || r <= 0 {
		return 4.0
	}
	if r > 5 {
		r = 5
	}
	return r
}

var airportCities = map[string]string{
	"LHR": "LON", "LGW": "LON", "STN": "LON", "LTN": "LON",
	"CDG": "PAR", "ORY": "PAR",
	"JFK": "NYC", "LGA": "NYC", "EWR": "NYC",
	"BER": "BER", "SXF": "BER",
	"FCO": "ROM", "CIA": "ROM",
	"NRT": "TYO", "HND": "TYO",
	"ICN": "SEL", "GMP": "SEL",
}

// airportToCity maps airport IATA codes to the city codes the hotel
// search expects.
func airportToCity(airport string) string {
	if city, ok := airportCities[airport]; ok {
		return city
	}
	return airport
}

var airlineNames = map[string]string{
	"TK": "Turkish Airlines",
	"LH": "Lufthansa",
	"AF": "Air France",
	"BA": "British Airways",
	"EK": "Emirates",
	"QR": "Qatar Airways",
	"FR": "Ryanair",
	"U2": "EasyJet",
	"W6": "Wizz Air",
	"UA": "United Airlines",
	"AA": "American Airlines",
	"DL": "Delta Air Lines",
	"KL": "KLM",
	"IB": "Iberia",
	"SQ": "Singapore Airlines",
	"CX": "Cathay Pacific",
	"NH": "ANA",
	"JL": "Japan Airlines",
	"KE": "Korean Air",
	"OZ": "Asiana Airlines",
	"TG": "Thai Airways",
}

func airlineName(code string) string {
	if name, ok := airlineNames[code]; ok {
		return name
	}
	if code != "" {
		return code + " Airlines"
	}
	return "Unknown Airline"
}
