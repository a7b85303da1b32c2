package main

import (
	"context"
	"log"

	"finale/internal/domain/account"
	"finale/internal/domain/banklink"
	"finale/internal/domain/notification"
	"finale/internal/infrastructure/crypto"
	"finale/internal/infrastructure/firebase"
	"finale/internal/infrastructure/gateway"
	"finale/internal/infrastructure/postgres"
	httphandlers "finale/internal/interfaces/http"
	"finale/internal/shared/auth"
	"finale/internal/shared/config"
	"finale/internal/shared/messages"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AuthHandler         *httphandlers.AuthHandler
	UserHandler         *httphandlers.UserHandler
	LinkHandler         *httphandlers.LinkHandler
	AccountHandler      *httphandlers.AccountHandler
	NotificationHandler *httphandlers.NotificationHandler

	// Auth
	JWT *auth.JWT

	// Services
	LinkService *banklink.Service
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize encryptor
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db, encryptor)
	accountRepo := postgres.NewAccountRepository(db)
	snapshotRepo := postgres.NewSnapshotRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// Initialize notification delivery; push is optional
	var messenger notification.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		fcmClient, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile, notificationRepo.DeactivateToken)
		if err != nil {
			log.Printf("Warning: Failed to initialize Firebase messaging: %v", err)
		} else {
			messenger = fcmClient
			log.Println("Firebase messaging initialized")
		}
	}
	notificationService := notification.NewService(notificationRepo, messenger)

	notificationTexts, err := messages.Load(cfg.Notifications.MessagesFile)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Initialize domain services
	accountService := account.NewService(accountRepo, snapshotRepo)
	gatewayClient := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.ClientID, cfg.Gateway.Secret, cfg.Gateway.Timeout)
	linkService := banklink.NewService(gatewayClient, userRepo, accountService, notificationService, notificationTexts)

	// Initialize auth components
	jwt := auth.NewJWT(cfg.JWT.Secret)

	// Initialize handlers
	authHandler := httphandlers.NewAuthHandler(userRepo, jwt)
	userHandler := httphandlers.NewUserHandler(userRepo)
	linkHandler := httphandlers.NewLinkHandler(linkService)
	accountHandler := httphandlers.NewAccountHandler(accountService, linkService, cfg.Sync.HistoryLimit)
	notificationHandler := httphandlers.NewNotificationHandler(notificationService)

	return &Dependencies{
		DB:                  db,
		AuthHandler:         authHandler,
		UserHandler:         userHandler,
		LinkHandler:         linkHandler,
		AccountHandler:      accountHandler,
		NotificationHandler: notificationHandler,
		JWT:                 jwt,
		LinkService:         linkService,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
