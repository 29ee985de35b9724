// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"rentops-backend/internal/config"
	"rentops-backend/internal/gateway"
	"rentops-backend/internal/logger"
	"rentops-backend/internal/repository"
	"rentops-backend/internal/repository/memory"
	"rentops-backend/internal/repository/postgres"
	"rentops-backend/internal/service"
	"rentops-backend/internal/storage"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds everything the server and the cron runner share.
type App struct {
	Config *config.Config
	Store  Pinger
	Photos storage.PhotoStorage
	// Files is set when photos live on the local filesystem and must be
	// served by this process.
	Files storage.LocalFileStore

	Maintenance service.MaintenanceService
	Invoices    service.InvoiceService
	Billing     service.BillingService
	Funding     service.FundingService
	Owners      service.OwnerService

	db *sql.DB
}

// LoadConfig reads the YAML file and overlays parameter store secrets when
// secrets.ssm_path is set.
func LoadConfig(ctx context.Context, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Secrets.SSMPath == "" {
		return cfg, nil
	}
	client, err := config.NewSSMClient(ctx, cfg.Secrets)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplySecrets(ctx, client); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ServiceOptions maps configuration onto the service tunables.
func ServiceOptions(cfg *config.Config) service.Options {
	return service.Options{
		GracePeriod:      cfg.GracePeriod(),
		InvoiceDueDays:   cfg.Billing.InvoiceDueDays,
		AdminEmail:       cfg.Billing.AdminEmail,
		ClaimTimeout:     cfg.ClaimTimeout(),
		ReminderInterval: cfg.ReminderInterval(),
		PhotoURLExpiry:   cfg.Storage.Expiration(),
	}
}

type stores struct {
	requests repository.MaintenanceRequestRepository
	payments repository.PaymentRequestRepository
	apps     repository.ApplicationRepository
	owners   repository.OwnerRepository
	tx       repository.TxManager
	pinger   Pinger
}

// New connects to the configured backends and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	var st stores
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		m := memory.NewStore()
		st = stores{m.MaintenanceRequestRepository, m.PaymentRequestRepository, m.ApplicationRepository, m.OwnerRepository, m, m}
	default:
		logger.Debug("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("Database connection established")
		a.db = db
		p := postgres.NewStore(db)
		st = stores{p.MaintenanceRequestRepository, p.PaymentRequestRepository, p.ApplicationRepository, p.OwnerRepository, p.TxManager, p}
	}
	a.Store = st.pinger

	photos, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize photo storage: %w", err)
	}
	a.Photos = photos
	if files, ok := photos.(storage.LocalFileStore); ok {
		a.Files = files
	}
	logger.Info("Photo storage configured", "type", cfg.Storage.Type)

	var emailSvc service.EmailService
	if cfg.SendGrid.APIKey != "" {
		emailSvc = service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
		logger.Info("SendGrid email configured", "from", cfg.SendGrid.FromEmail)
	} else {
		emailSvc = service.NewLogEmailService()
		logger.Warn("No SendGrid API key; notifications are only logged")
	}

	// only the in-memory gateway ships; Validate rejects anything else
	gw := gateway.NewMockGateway()

	opts := ServiceOptions(cfg)
	a.Maintenance = service.NewMaintenanceService(st.requests, st.owners, st.tx, photos, emailSvc, opts)
	a.Invoices = service.NewInvoiceService(st.requests, st.payments, st.owners, st.tx, emailSvc, opts)
	a.Billing = service.NewBillingService(st.apps, st.owners, gw, opts)
	a.Funding = service.NewFundingService(st.apps, st.tx, gw, opts)
	a.Owners = service.NewOwnerService(st.owners, opts)

	return a, nil
}

// Close releases the database connection, if any.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
