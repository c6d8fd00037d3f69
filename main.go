package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"snapfix-server/catalog"
	"snapfix-server/config"
	"snapfix-server/database"
	"snapfix-server/jobs"
	"snapfix-server/logger"
	"snapfix-server/middleware"
	"snapfix-server/models"
	"snapfix-server/repository"
	"snapfix-server/repository/memstore"
	"snapfix-server/routes"
	"snapfix-server/services"
	ws "snapfix-server/websocket"
)

const maxRequestBytes = 20 << 20

func main() {
	flags := pflag.NewFlagSet("snapfix-server", pflag.ContinueOnError)
	migrateOnly := flags.Bool("migrate-only", false, "apply database migrations and exit")
	seed := flags.Bool("seed", false, "insert sample workers when the workers table is empty")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Load environment variables
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Server.Env)
	defer log.Sync()

	if envErr != nil {
		log.Info("No .env file found, using system environment variables")
	}

	if err := run(cfg, log, *migrateOnly, *seed); err != nil {
		log.Fatal("❌ Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, migrateOnly, seed bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log, migrateOnly)
	if err != nil {
		return err
	}
	defer closeStore()
	if migrateOnly {
		return nil
	}

	if seed {
		if _, err := seedWorkers(ctx, store, log); err != nil {
			return err
		}
	}

	cat := catalog.Default()
	if err := middleware.RegisterValidators(cat); err != nil {
		return fmt.Errorf("register validators: %w", err)
	}

	media, uploadDir, err := newMediaStore(cfg, log)
	if err != nil {
		return err
	}

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	otpSender, err := newOTPSender(cfg, log)
	if err != nil {
		return err
	}

	pincodes := services.NewPincodeService(
		services.NewMemoryPincodeCache(),
		store.Pincodes(),
		services.NewIndiaPostClient(cfg.Pincode.BaseURL, cfg.Pincode.LookupTimeout),
		cfg.Pincode.CacheTTL,
		log,
	)

	handler := &routes.Handler{
		Catalog:          cat,
		Auth:             services.NewAuthService(store, otpSender, services.NewJWTService(cfg.JWT), cfg.OTP.Expiry, log),
		Users:            services.NewUserService(store.Users()),
		Workers:          services.NewWorkerService(store, cat, log),
		Rates:            services.NewRateInsightsService(store.Workers(), cat),
		Bookings:         services.NewBookingService(store, cat, media, hub, log),
		Payments:         services.NewPaymentService(store, hub, log),
		Feedback:         services.NewFeedbackService(store, hub, log),
		Pincodes:         pincodes,
		Hub:              hub,
		OTPSendLimiter:   middleware.NewRateLimiter(5, 10*time.Minute),
		OTPVerifyLimiter: middleware.NewRateLimiter(10, 10*time.Minute),
		UploadDir:        uploadDir,
		Production:       cfg.IsProduction(),
		Log:              log,
	}

	expiration := jobs.NewExpirationJob(store, pincodes, log, handler.OTPSendLimiter, handler.OTPVerifyLimiter)
	if err := expiration.Start(cfg.Jobs.CleanupSchedule); err != nil {
		return fmt.Errorf("schedule expiration job: %w", err)
	}
	defer expiration.Stop()

	// Set Gin mode
	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeadersMiddleware(cfg.IsProduction()))
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.InputValidationMiddleware(maxRequestBytes))

	routes.RegisterRoutes(router, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("🚀 SnapFix server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("✅ Server exited")
	return nil
}

// openStore selects the persistence backend. Postgres is migrated on startup.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger, migrateOnly bool) (repository.Store, func(), error) {
	if cfg.Database.Backend == "memory" {
		if migrateOnly {
			return nil, nil, errors.New("--migrate-only requires STORE_BACKEND=postgres")
		}
		log.Warn("⚠️ Using in-memory store; data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	db, err := database.Initialize(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repository.NewGormStore(db.Gorm), db.Close, nil
}

// newOTPSender falls back to the logging sender in development only. A
// production server configured for 2Factor without a key refuses to start.
func newOTPSender(cfg *config.Config, log *zap.Logger) (services.OTPSender, error) {
	if cfg.OTP.Provider == models.OTPProviderTwoFactor {
		if cfg.OTP.APIKey != "" {
			log.Info("📱 Sending OTPs through 2Factor")
			return services.NewTwoFactorClient(cfg.OTP.BaseURL, cfg.OTP.APIKey, cfg.OTP.CountryCode, 10*time.Second), nil
		}
		if cfg.IsProduction() {
			return nil, errors.New("OTP_PROVIDER is 2factor but TWOFACTOR_API_KEY is not set")
		}
		log.Warn("⚠️ TWOFACTOR_API_KEY is not set; falling back to the local OTP sender")
	}
	log.Warn("⚠️ OTP_PROVIDER is local; codes are written to the log")
	return services.NewLocalOTPSender(log), nil
}

// newMediaStore returns Cloudinary when configured and local disk otherwise.
// The returned directory is non-empty only for local storage.
func newMediaStore(cfg *config.Config, log *zap.Logger) (services.MediaStore, string, error) {
	if cfg.Media.CloudinaryURL != "" {
		store, err := services.NewCloudinaryMediaStore(cfg.Media.CloudinaryURL, cfg.Media.Folder, log)
		if err != nil {
			return nil, "", fmt.Errorf("configure cloudinary: %w", err)
		}
		return store, "", nil
	}
	store, err := services.NewLocalMediaStore(cfg.Server.UploadDir)
	if err != nil {
		return nil, "", fmt.Errorf("create upload dir: %w", err)
	}
	return store, store.Dir(), nil
}
