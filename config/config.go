// Package config reads the service configuration from the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"trippin/i18n"
	"trippin/pricing"
	"trippin/services"
)

type Config struct {
	Addr           string
	GinMode        string
	AllowedOrigins []string
	TrustedProxies []string
	DatabaseURL    string
	LogLevel       string
	OTLPAddr       string
	ServiceName    string

	DefaultCurrency string
	DefaultLanguage string
	WizardTTL       time.Duration
	SessionTTL      time.Duration

	Amadeus services.AmadeusConfig
	LLM     services.ItineraryConfig
	Stripe  services.StripeConfig
	QRURL   string
	EmailJS services.EmailJSConfig
}

// Load reads .env (if present) and the environment. Variables already set
// in the environment win over .env entries.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		Addr:           ":" + getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "release"),
		AllowedOrigins: origins(os.Getenv("FRONTEND_URL")),
		TrustedProxies: list(getEnv("TRUSTED_PROXIES", "0.0.0.0/0")),
		DatabaseURL:    getEnv("DATABASE_URL", "kvdb://trippin.db"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		OTLPAddr:       os.Getenv("OTLP_GRPC_ADDR"),
		ServiceName:    getEnv("SERVICE_NAME", "trippin"),

		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", pricing.DefaultCurrency)),
		DefaultLanguage: strings.ToLower(getEnv("DEFAULT_LANGUAGE", i18n.DefaultLanguage)),

		Amadeus: services.AmadeusConfig{
			ClientID:     os.Getenv("AMADEUS_CLIENT_ID"),
			ClientSecret: os.Getenv("AMADEUS_CLIENT_SECRET"),
			Env:          getEnv("AMADEUS_ENV", "test"),
		},
		LLM: services.ItineraryConfig{
			APIKey:  os.Getenv("LLM_API_KEY"),
			Model:   os.Getenv("LLM_MODEL"),
			BaseURL: os.Getenv("LLM_BASE_URL"),
		},
		Stripe: services.StripeConfig{
			SecretKey:  os.Getenv("STRIPE_SECRET_KEY"),
			SuccessURL: getEnv("STRIPE_SUCCESS_URL", "http://localhost:5173/checkout/success"),
			CancelURL:  getEnv("STRIPE_CANCEL_URL", "http://localhost:5173/checkout/cancel"),
		},
		QRURL: os.Getenv("QR_API_URL"),
		EmailJS: services.EmailJSConfig{
			ServiceID:  os.Getenv("EMAILJS_SERVICE_ID"),
			TemplateID: os.Getenv("EMAILJS_TEMPLATE_ID"),
			PublicKey:  os.Getenv("EMAILJS_PUBLIC_KEY"),
			PrivateKey: os.Getenv("EMAILJS_PRIVATE_KEY"),
		},
	}

	var err error
	if cfg.WizardTTL, err = time.ParseDuration(getEnv("WIZARD_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("WIZARD_TTL: %w", err)
	}
	if cfg.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return nil, fmt.Errorf("GIN_MODE %q is not one of debug, release, test", cfg.GinMode)
	}
	if !pricing.Supports(cfg.DefaultCurrency) {
		return nil, fmt.Errorf("DEFAULT_CURRENCY %q is not supported", cfg.DefaultCurrency)
	}
	if !i18n.Supported(cfg.DefaultLanguage) {
		return nil, fmt.Errorf("DEFAULT_LANGUAGE %q is not supported", cfg.DefaultLanguage)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// origins returns the dev origins plus the comma separated FRONTEND_URL
// entries.
func origins(frontendURLs string) []string {
	return append([]string{"http://localhost:5173", "http://localhost:3000"}, list(frontendURLs)...)
}

// list splits a comma separated value, dropping blanks.
func list(s string) []string {
	var res []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			res = append(res, v)
		}
	}
	return res
}
