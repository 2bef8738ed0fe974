package planner

// Option is one answer offered by a step.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

var catalog = map[Step][]string{
	StepDestination:    {"tokyo", "seoul", "bangkok", "singapore", "paris", "london", "new-york", "dubai", "istanbul", "barcelona"},
	StepDates:          {"this-week", "next-week", "next-month", "flexible"},
	StepBudget:         {"budget", "moderate", "luxury"},
	StepStyle:          {"adventure", "relaxation", "cultural", "family", "romantic"},
	StepInterests:      {"food", "history", "nature", "nightlife", "shopping", "art", "beaches"},
	StepAccommodation:  {"hotel", "hostel", "apartment", "resort"},
	StepTransportation: {"public", "rental-car", "walking", "taxi"},
}

// destinationAirports maps destination options to the airport used for
// flight searches.
var destinationAirports = map[string]string{
	"tokyo":     "NRT",
	"seoul":     "ICN",
	"bangkok":   "BKK",
	"singapore": "SIN",
	"paris":     "CDG",
	"london":    "LHR",
	"new-york":  "JFK",
	"dubai":     "DXB",
	"istanbul":  "IST",
	"barcelona": "BCN",
}

// daysUntilDeparture turns a dates answer into a departure offset.
var daysUntilDeparture = map[string]int{
	"this-week":  3,
	"next-week":  7,
	"next-month": 30,
	"flexible":   14,
}

func validOption(s Step, value string) bool {
	for _, v := range catalog[s] {
		if v == value {
			return true
		}
	}
	return false
}

// Options returns the answers of step s in catalog order.
func Options(s Step) []string {
	src := catalog[s]
	res := make([]string, len(src))
	copy(res, src)
	return res
}

// DestinationAirport returns the IATA code for a destination option.
func DestinationAirport(destination string) (string, bool) {
	code, ok := destinationAirports[destination]
	return code, ok
}
