package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentalhub/internal/config"
	"rentalhub/internal/events"
	"rentalhub/internal/infra"
	"rentalhub/internal/repository"
	"rentalhub/internal/router"
	"rentalhub/internal/service"
	"rentalhub/internal/worker"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := infra.SetupLogger(cfg.Env, cfg.LogFile); err != nil {
		log.Fatal().Err(err).Msg("failed to open log file")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL, cfg.AutoMigrate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	publisher, err := events.NewPublisher(events.Config{
		Backend:      cfg.EventsBackend,
		KafkaBrokers: cfg.KafkaBrokers,
		KafkaTopic:   cfg.KafkaTopic,
		AMQPURL:      cfg.AMQPURL,
		AMQPQueue:    cfg.AMQPQueue,
	})
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.EventsBackend).Msg("failed to start event publisher")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reservationRepo := repository.NewReservationRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	// First admin account on an empty database
	audit, err := service.NewAuditService(repository.NewAuditRepository(db))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise audit compression")
	}
	authSvc := service.NewAuthService(repository.NewUserRepository(db), cfg, audit)
	if _, err := authSvc.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap admin account")
	}

	// Background jobs: confirmation mails, invoice documents and invoice mails. Outbound mail
	// goes through the circuit breaker so a dead relay does not stall workers.
	mailer := infra.NewMailerBreaker(infra.NewMailer(cfg), infra.NewCircuitBreaker(infra.DefaultCBConfig()))
	dispatcher := worker.NewDispatcher(rdb)
	handlers := worker.Handlers{
		worker.JobEmail:                   worker.NewEmailWorker(mailer).Process,
		worker.JobReservationConfirmation: worker.NewConfirmationWorker(reservationRepo, mailer, cfg.CompanyName).Process,
		worker.JobInvoicePDF:              worker.NewInvoicePDFWorker(invoiceRepo, reservationRepo, dispatcher, cfg.PDFStoragePath, cfg.CompanyName).Process,
	}
	workers := worker.StartWorkerPool(ctx, rdb, handlers, cfg.WorkerPoolSize)
	worker.StartPDFSweeper(ctx, invoiceRepo, dispatcher)

	r := router.New(cfg, db, rdb, dispatcher, publisher)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("rentalhub listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	workers.Wait()
	if err := publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("event publisher close")
	}
	log.Info().Msg("server exited")
}
