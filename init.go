package main

import (
	"context"
	"strconv"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"

	"github.com/huruftech/assabil-sync/internal/config"
	"github.com/huruftech/assabil-sync/internal/telemetry"
	"github.com/huruftech/assabil-sync/pkg/shipsync"
	"github.com/huruftech/assabil-sync/pkg/shipsync/assabil"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel, cfg.ServiceName)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

// initSyncService wires the sync core: option and order storage, the
// provider client, the projector, the audit log, and the retry
// coordinator. Every collaborator is injected explicitly.
func initSyncService(cfg *config.Config, logger *otelzap.Logger) (*shipsync.Service, *shipsync.RetryCoordinator) {
	tracer := otel.Tracer(cfg.ServiceName)

	options := shipsync.NewMemoryConfigStore(map[string]string{
		shipsync.ConfigKeyAccessToken:           cfg.AccessToken,
		shipsync.ConfigKeyServiceID:             cfg.ServiceID,
		shipsync.ConfigKeyPaymentByReceiver:     strconv.FormatBool(cfg.PaymentByReceiver),
		shipsync.ConfigKeyIncludeProductPayment: strconv.FormatBool(cfg.IncludeProductPayment),
	})
	store := shipsync.NewMemoryOrderStore()

	client := assabil.New(assabil.Config{
		BaseURL:     cfg.ProviderBaseURL,
		BearerToken: cfg.BearerToken,
		Timeout:     cfg.RequestTimeout,
		UseMock:     cfg.UseMock,
	}, logger, tracer)

	projector := shipsync.NewProjector(store, logger)
	auditLog := shipsync.NewAuditLog()

	svc := shipsync.NewService(shipsync.ServiceConfig{
		ServedCountry: cfg.ServedCountry,
		CountryCode:   cfg.CountryCode,
		WebhookSecret: cfg.WebhookSecret,
		ProcessedBy:   cfg.ServiceName,
	}, options, store, client, projector, auditLog, logger)

	coordinator := shipsync.NewRetryCoordinator(store, svc, logger)
	return svc, coordinator
}
