// main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"assetverse/billing"
	"assetverse/config"
	"assetverse/database"
	"assetverse/events"
	"assetverse/handlers"
	"assetverse/identity"
	"assetverse/lifecycle"
	"assetverse/routes"
	"assetverse/store"
	"assetverse/ws"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	client, err := database.Connect(ctx, cfg.MongoURI, logger)
	cancel()
	if err != nil {
		logger.Fatal("mongodb connect", zap.Error(err))
	}
	defer database.Disconnect(client, logger)

	db := client.Database(cfg.DatabaseName)
	mongoStore := store.NewMongo(db)

	idxCtx, idxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mongoStore.EnsureIndexes(idxCtx); err != nil {
		idxCancel()
		logger.Fatal("ensure indexes", zap.Error(err))
	}
	idxCancel()

	verifier, err := identity.NewTokenVerifier(cfg.IdentityCredentials)
	if err != nil {
		logger.Fatal("identity credentials", zap.Error(err))
	}

	var producer events.Producer = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}
	defer producer.Close()

	handlers.Init(handlers.Deps{
		DB:     db,
		Engine: lifecycle.NewEngine(mongoStore, logger),
		Checkout: billing.NewClient(cfg.PaymentAPIURL, cfg.PaymentSecretKey,
			cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL, logger),
		WebhookSecret: cfg.PaymentWebhookSecret,
		Producer:      producer,
		Hub:           ws.NewHub(cfg.AllowedOrigin, logger),
		Verifier:      verifier,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routes.New(verifier, cfg.AllowedOrigin, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
