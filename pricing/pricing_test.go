package pricing

import (
	"errors"
	"testing"

	"trippin/model"
)

func TestPrice(t *testing.T) {
	tt := []struct {
		name    string
		tier    model.Tier
		cur     string
		want    float64
		wantErr error
	}{
		{name: "basic usd", tier: model.TierBasic, cur: "USD", want: 5.99},
		{name: "basic jpy", tier: model.TierBasic, cur: "JPY", want: 900},
		{name: "lower case currency", tier: model.TierPremium, cur: "eur", want: 27.99},
		{name: "test tier is free", tier: model.TierTest, cur: "KRW", want: 0},
		{name: "unknown tier", tier: model.Tier("gold"), cur: "USD", wantErr: ErrUnknownTier},
		{name: "unknown currency", tier: model.TierBasic, cur: "CHF", wantErr: ErrUnknownCurrency},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Price(tc.tier, tc.cur)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Price() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tt := []struct {
		amount float64
		cur    string
		want   string
	}{
		{amount: 9, cur: "USD", want: "$9.00"},
		{amount: 5.99, cur: "usd", want: "$5.99"},
		{amount: 900, cur: "JPY", want: "¥900"},
		{amount: 8000, cur: "KRW", want: "₩8000"},
		{amount: 4.79, cur: "GBP", want: "£4.79"},
		{amount: 8.99, cur: "AUD", want: "A$8.99"},
		{amount: 0, cur: "EUR", want: "€0.00"},
		{amount: -3.5, cur: "USD", want: "-$3.50"},
		{amount: 12.5, cur: "CHF", want: "12.50 CHF"},
	}
	for _, tc := range tt {
		t.Run(tc.want, func(t *testing.T) {
			if got := Format(tc.amount, tc.cur); got != tc.want {
				t.Fatalf("Format(%v, %q) = %q, want %q", tc.amount, tc.cur, got, tc.want)
			}
		})
	}
}

func TestQuote_OnlyPriceChangesWithCurrency(t *testing.T) {
	plan, _ := model.FindPlan(model.Catalog(), 1)

	usd, err := Quote(plan, "USD")
	if err != nil {
		t.Fatalf("quote usd: %v", err)
	}
	jpy, err := Quote(plan, "JPY")
	if err != nil {
		t.Fatalf("quote jpy: %v", err)
	}
	if usd.ID != jpy.ID || usd.Name != jpy.Name || usd.Tier != jpy.Tier {
		t.Fatalf("plan identity changed: %+v vs %+v", usd.Plan, jpy.Plan)
	}
	if usd.FormattedPrice == jpy.FormattedPrice {
		t.Fatalf("expected different formatted prices, got %q", usd.FormattedPrice)
	}
}

func TestCatalogIsFullyPriced(t *testing.T) {
	for _, cur := range Currencies() {
		if _, err := QuoteAll(model.Catalog(), cur); err != nil {
			t.Errorf("currency %s: %v", cur, err)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount float64
		cur    string
		want   int64
	}{
		{5.99, "USD", 599},
		{900, "JPY", 900},
		{8000, "krw", 8000},
		{0, "EUR", 0},
	}
	for _, tt := range tests {
		if got := MinorUnits(tt.amount, tt.cur); got != tt.want {
			t.Errorf("MinorUnits(%v, %s) = %d, want %d", tt.amount, tt.cur, got, tt.want)
		}
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		amount   float64
		from, to string
		want     float64
		wantErr  bool
	}{
		{100, "USD", "EUR", 92, false},
		{92, "eur", "usd", 100, false},
		{10, "USD", "JPY", 1500, false},
		{1000, "KRW", "JPY", 111, false},
		{12.345, "USD", "USD", 12.345, false},
		{1, "CHF", "USD", 0, true},
		{1, "USD", "CHF", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.from+"-"+tt.to, func(t *testing.T) {
			got, err := Convert(tt.amount, tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Convert(%v, %s, %s) = %v, want %v", tt.amount, tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestRatesCoverEveryCurrency(t *testing.T) {
	for _, cur := range Currencies() {
		if _, err := Convert(1, "USD", cur); err != nil {
			t.Errorf("no rate for %s: %v", cur, err)
		}
	}
}

func TestFormatCode(t *testing.T) {
	if got := FormatCode(8000, "krw"); got != "8000 KRW" {
		t.Fatalf("FormatCode = %q", got)
	}
	if got := FormatCode(-5.5, "EUR"); got != "-5.50 EUR" {
		t.Fatalf("FormatCode = %q", got)
	}
}
