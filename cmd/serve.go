package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"trippin/checkout"
	"trippin/handlers"
	"trippin/planner"
	"trippin/services"
	"trippin/session"
	"trippin/telemetry"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

// emailLog records the outcome of order confirmation emails.
type emailLog struct {
	logger *slog.Logger
}

func (l emailLog) EmailAttempted(orderID string, err error) {
	if err != nil {
		l.logger.Warn("order confirmation not delivered", "order", orderID, "error", err)
		return
	}
	l.logger.Info("order confirmation sent", "order", orderID)
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("start and listen", "address", cfg.Addr)
	logger.Info("otlp/gRPC", "address", cfg.OTLPAddr, "service", cfg.ServiceName)

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPAddr, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	backend, err := openBackend(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer backend.Close()

	deps := handlers.Deps{
		Backend:         backend,
		Logger:          logger,
		ServiceName:     cfg.ServiceName,
		DefaultCurrency: cfg.DefaultCurrency,
		DefaultLanguage: cfg.DefaultLanguage,
		WizardTTL:       cfg.WizardTTL,
		Observer:        emailLog{logger: logger.With("component", "email")},
		Issuer:          services.NewQRIssuer(cfg.QRURL, nil),
	}

	var sessOpts []session.Option
	if cfg.SessionTTL > 0 {
		sessOpts = append(sessOpts, session.WithIdleTTL(cfg.SessionTTL))
	}
	deps.Sessions = session.NewManager(backend, sessOpts...)

	var payments checkout.PaymentProvider = services.SimulatedPayments{}
	if stripe := services.NewStripeClient(cfg.Stripe, nil); stripe.Configured() {
		payments = stripe
		logger.Info("payments: stripe")
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, payments are simulated")
	}
	deps.Payments = payments

	if mail := services.NewEmailJSClient(cfg.EmailJS, nil); mail.Configured() {
		deps.Mailer = mail
	} else {
		logger.Warn("EmailJS not configured, order confirmations are not mailed")
	}

	var itinerary planner.Itinerary = services.OfflineItinerary{}
	if llm := services.NewItineraryClient(cfg.LLM, nil); llm.Configured() {
		itinerary = llm
		deps.Recommend = llm
	} else {
		logger.Warn("LLM_API_KEY not set, travel plans are generated offline")
	}
	deps.Itinerary = itinerary

	if amadeus := services.NewAmadeusClient(cfg.Amadeus, nil); amadeus.Configured() {
		deps.Travel = amadeus
	} else {
		logger.Warn("Amadeus credentials not set, flight and hotel prices are estimated")
	}

	gin.SetMode(cfg.GinMode)
	router, err := handlers.NewRouter(handlers.New(deps), cfg.AllowedOrigins, cfg.TrustedProxies)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("error during listen and serve", "error", err)
			return err
		}
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
	}
	logger.Info("shutdown")
	return nil
}
