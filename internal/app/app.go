// Package app assembles the console's collaborators from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"invoice-console/internal/api"
	"invoice-console/internal/config"
	"invoice-console/internal/repository/sqlite"
	"invoice-console/internal/service"
	"invoice-console/internal/session"
	"invoice-console/internal/storage"
)

// App holds the wired services shared by the console server and consolectl.
type App struct {
	Config   config.Config
	Logger   *logrus.Logger
	Tokens   *sqlite.TokenRepository
	Client   *api.Client
	Guard    *session.Guard
	Auth     service.AuthService
	Clients  service.ClientService
	Invoices service.InvoiceService
	Company  service.CompanyService
	// Storage is nil when no archive bucket is configured.
	Storage storage.Service

	db *sql.DB
}

// NewLogger returns the process logger at the configured level.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	tokens := sqlite.NewTokenRepository(db)
	if err := tokens.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init token repository: %w", err)
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	client := api.NewClient(cfg.API.BaseURL, tokens,
		api.WithTimeout(cfg.APITimeout()),
		api.WithLogger(logger.WithField("component", "api")),
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Tokens:   tokens,
		Client:   client,
		Guard:    session.NewGuard(tokens, session.WithLogger(logger.WithField("component", "session"))),
		Auth:     service.NewAuthService(client, tokens),
		Clients:  service.NewClientService(client),
		Invoices: service.NewInvoiceService(client),
		Company:  service.NewCompanyService(client),
		Storage:  storageSvc,
		db:       db,
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("no storage bucket configured, invoice archive disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving invoices to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
