// Package pricing is the fixed, non-live price list of the eSIM plans.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/currency"

	"trippin/model"
)

var (
	ErrUnknownTier     = errors.New("unknown plan tier")
	ErrUnknownCurrency = errors.New("unknown currency")
)

// DefaultCurrency is shown before a visitor picks one.
const DefaultCurrency = "USD"

var table = map[model.Tier]map[string]float64{
	model.TierTest: {
		"USD": 0, "EUR": 0, "GBP": 0, "JPY": 0, "KRW": 0, "AUD": 0,
	},
	model.TierBasic: {
		"USD": 5.99, "EUR": 5.49, "GBP": 4.79, "JPY": 900, "KRW": 8000, "AUD": 8.99,
	},
	model.TierStandard: {
		"USD": 14.99, "EUR": 13.99, "GBP": 11.99, "JPY": 2200, "KRW": 19900, "AUD": 22.99,
	},
	model.TierPremium: {
		"USD": 29.99, "EUR": 27.99, "GBP": 23.99, "JPY": 4400, "KRW": 39900, "AUD": 45.99,
	},
	model.TierUnlimited: {
		"USD": 49.99, "EUR": 46.99, "GBP": 39.99, "JPY": 7300, "KRW": 66000, "AUD": 76.99,
	},
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"KRW": "₩",
	"AUD": "A$",
}

// Price returns the amount for tier in the given ISO 4217 currency.
func Price(tier model.Tier, cur string) (float64, error) {
	row, ok := table[tier]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	amount, ok := row[strings.ToUpper(cur)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurrency, cur)
	}
	return amount, nil
}

// Format renders amount with the currency symbol and its standard number
// of minor digits, e.g. "$9.00" or "¥900".
func Format(amount float64, cur string) string {
	cur = strings.ToUpper(cur)
	symbol, ok := symbols[cur]
	if !ok {
		return FormatCode(amount, cur)
	}
	sign, num := number(amount, cur)
	return sign + symbol + num
}

// FormatCode renders amount followed by the ISO code, e.g. "8000 KRW".
func FormatCode(amount float64, cur string) string {
	cur = strings.ToUpper(cur)
	sign, num := number(amount, cur)
	return sign + num + " " + cur
}

func number(amount float64, cur string) (string, string) {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = math.Abs(amount)
	}
	return sign, strconv.FormatFloat(amount, 'f', scale(cur), 64)
}

// scale is the number of minor digits of cur, 2 when unknown.
func scale(cur string) int {
	unit, err := currency.ParseISO(strings.ToUpper(cur))
	if err != nil {
		return 2
	}
	s, _ := currency.Standard.Rounding(unit)
	return s
}

// MinorUnits converts amount to the integer count of the currency's
// smallest unit (cents for USD, yen for JPY).
func MinorUnits(amount float64, cur string) int64 {
	return int64(math.Round(amount * math.Pow10(scale(cur))))
}

// Round rounds amount to the minor unit of cur.
func Round(amount float64, cur string) float64 {
	p := math.Pow10(scale(cur))
	return math.Round(amount*p) / p
}

// usdRates are fixed reference rates in units per US dollar. Like the
// price table they are not live.
var usdRates = map[string]float64{
	"USD": 1,
	"EUR": 0.92,
	"GBP": 0.79,
	"JPY": 150,
	"KRW": 1350,
	"AUD": 1.52,
}

// Convert changes amount from one supported currency into another using
// the reference rates, rounded to the minor unit of to.
func Convert(amount float64, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	fr, ok := usdRates[from]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurrency, from)
	}
	tr, ok := usdRates[to]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurrency, to)
	}
	if from == to {
		return amount, nil
	}
	return Round(amount/fr*tr, to), nil
}

// Supports reports whether cur has prices in the table.
func Supports(cur string) bool {
	_, ok := symbols[strings.ToUpper(cur)]
	return ok
}

// Currencies lists the supported currency codes in lexical order.
func Currencies() []string {
	res := make([]string, 0, len(symbols))
	for c := range symbols {
		res = append(res, c)
	}
	sort.Strings(res)
	return res
}

// Quote prices plan in cur.
func Quote(plan model.Plan, cur string) (model.PricedPlan, error) {
	cur = strings.ToUpper(cur)
	amount, err := Price(plan.Tier, cur)
	if err != nil {
		return model.PricedPlan{}, err
	}
	return model.PricedPlan{
		Plan:           plan,
		Price:          amount,
		Currency:       cur,
		FormattedPrice: Format(amount, cur),
	}, nil
}

// QuoteAll prices every plan in cur, keeping the input order.
func QuoteAll(plans []model.Plan, cur string) ([]model.PricedPlan, error) {
	res := make([]model.PricedPlan, 0, len(plans))
	for _, p := range plans {
		q, err := Quote(p, cur)
		if err != nil {
			return nil, err
		}
		res = append(res, q)
	}
	return res, nil
}
