package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contact-guard/pkg/api"
	"contact-guard/pkg/clients/airtable"
	"contact-guard/pkg/clients/emailjs"
	"contact-guard/pkg/clients/twilio"
	"contact-guard/pkg/config"
	"contact-guard/pkg/guard"
	"contact-guard/pkg/metrics"
	"contact-guard/pkg/middleware"
	"contact-guard/pkg/services"
	"contact-guard/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the contact form HTTP API (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	policy, err := loadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}

	backend, closeBackend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	location, _ := time.LoadLocation(cfg.Timezone)

	relayOpts := []emailjs.Option{emailjs.WithTimeout(cfg.RelayTimeout)}
	if cfg.EmailJSBaseURL != "" {
		relayOpts = append(relayOpts, emailjs.WithBaseURL(cfg.EmailJSBaseURL))
	}
	relay := emailjs.NewClient(cfg.EmailJSPublicKey, cfg.EmailJSPrivateKey, relayOpts...)

	var archive airtable.Client
	if cfg.ArchiveEnabled() {
		archive = airtable.NewClient(cfg.AirtableAPIKey, cfg.AirtableBaseID, cfg.AirtableBaseURL, cfg.SideEffectTimeout)
	}

	var sms twilio.Client
	if cfg.SMSAlertEnabled() {
		sms = twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
	}

	recorder := metrics.NewRecorder()

	submissionService := services.NewContactSubmissionService(
		guard.New(policy),
		relay,
		archive,
		sms,
		recorder,
		logger,
		services.Options{
			ServiceID:         cfg.EmailJSServiceID,
			TemplateID:        cfg.EmailJSTemplateID,
			Location:          location,
			ArchiveTable:      cfg.AirtableTable,
			OwnerPhone:        cfg.OwnerPhone,
			SideEffectTimeout: cfg.SideEffectTimeout,
		},
	)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORS(cfg.AllowedOrigins))
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	cookieMaxAge := int(policy.DailyWindow / time.Second)
	stores := api.ClientStores(backend, cfg.ClientHashSalt, cfg.CookieFallback, cfg.CookieSecure, cookieMaxAge, logger)
	handlers := api.NewHandlers(submissionService, stores, logger)
	handlers.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(recorder.Handler()))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error during shutdown", zap.Error(err))
		}
	}

	submissionService.Wait()
	return nil
}

// openStore connects the configured rate limit backend
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		store, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case config.StoreMongo:
		store, err := storage.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, cfg.ConnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close(context.Background()) }, nil
	}

	return storage.NewMemoryStore(), func() {}, nil
}
