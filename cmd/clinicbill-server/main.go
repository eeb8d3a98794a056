package main

import (
	"context"
	crypto_rand "crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicbill/clinicbill/internal/api"
	"github.com/clinicbill/clinicbill/internal/config"
	"github.com/clinicbill/clinicbill/internal/domain/admin"
	"github.com/clinicbill/clinicbill/internal/domain/billing"
	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/platform/db"
	"github.com/clinicbill/clinicbill/internal/platform/gotrue"
	"github.com/clinicbill/clinicbill/internal/platform/middleware"
	"github.com/clinicbill/clinicbill/internal/platform/sandbox"
	"github.com/clinicbill/clinicbill/internal/session"
	"github.com/clinicbill/clinicbill/internal/store"
	"github.com/clinicbill/clinicbill/internal/workspace"
	"github.com/clinicbill/clinicbill/migrations"
)

var version = "dev"

const tokenIssuer = "clinicbill"

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinicbill-server",
		Short: "Clinic billing API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(invoiceCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type serveFlags struct {
	memory    bool
	seedAdmin string
	seedDemo  bool
}

func serveCmd() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the billing API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(flags)
		},
	}
	cmd.Flags().BoolVar(&flags.memory, "memory", false, "Keep billing data in process memory instead of PostgreSQL")
	cmd.Flags().StringVar(&flags.seedAdmin, "seed-admin", "", "Create a super_admin account as email:password (development auth only)")
	cmd.Flags().BoolVar(&flags.seedDemo, "seed-demo", false, "Fill the in-memory tables with demo clinics and billing entries (requires --memory)")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Running migrations on schema: %s\n", schema)
			count, err := newMigrator(pool, dir).Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", db.DefaultSchema, "Target schema")
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := newMigrator(pool, dir).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println(strings.Repeat("-", 80))
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format(time.RFC3339)
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", db.DefaultSchema, "Target schema")
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")

	cmd.AddCommand(upCmd, statusCmd)
	return cmd
}

func newMigrator(pool *pgxpool.Pool, dir string) *db.Migrator {
	if dir != "" {
		return db.NewDirMigrator(pool, dir)
	}
	return db.NewMigrator(pool, migrations.FS)
}

func invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Invoice utilities",
	}

	nextCmd := &cobra.Command{
		Use:   "next-number",
		Short: "Print the next invoice number for a year",
		RunE: func(cmd *cobra.Command, args []string) error {
			year, _ := cmd.Flags().GetInt("year")
			if year <= 0 {
				year = time.Now().Year()
			}

			ctx := context.Background()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			number, err := nextInvoiceNumber(ctx, store.NewPGGateway(pool).Invoices, year)
			if err != nil {
				return err
			}
			fmt.Println(number)
			return nil
		},
	}
	nextCmd.Flags().Int("year", 0, "Invoice year (defaults to the current year)")

	cmd.AddCommand(nextCmd)
	return cmd
}

func nextInvoiceNumber(ctx context.Context, invoices billing.InvoiceRepository, year int) (string, error) {
	seq, err := invoices.MaxSequence(ctx, year)
	if err != nil {
		return "", fmt.Errorf("read invoice sequence: %w", err)
	}
	return billing.FormatInvoiceNumber(year, seq+1), nil
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runServer(flags serveFlags) error {
	logger := newLogger()

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.Memory = flags.memory
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	cfg.WarnInsecure(logger)

	ctx := context.Background()

	// Data gateway
	var pool *pgxpool.Pool
	gw := store.NewMemoryGateway()
	if !cfg.Memory {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		gw = store.NewPGGateway(pool)
		logger.Info().Msg("connected to database")
	}

	if flags.seedDemo {
		if !cfg.Memory {
			logger.Fatal().Msg("--seed-demo requires --memory")
		}
		res, err := sandbox.NewSeeder(sandbox.DefaultSeedConfig()).Seed(ctx, gw)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to seed demo data")
		}
		logger.Info().
			Int("clinics", res.Clinics).
			Int("providers", res.Providers).
			Int("patients", res.Patients).
			Int("entries", res.Entries).
			Int("todos", res.Todos).
			Msg("seeded demo data")
	}

	// Auth
	secret, err := resolveSigningSecret(cfg.AuthJWTSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve signing secret")
	}
	tokens := auth.NewTokens(secret, tokenIssuer)

	newProvider, dir := providerFactory(cfg, tokens)
	if flags.seedAdmin != "" {
		if dir == nil {
			logger.Fatal().Msg("--seed-admin requires AUTH_MODE=development")
		}
		email, err := seedAdmin(ctx, dir, gw, flags.seedAdmin)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to seed admin account")
		}
		logger.Info().Str("email", email).Msg("seeded super_admin account")
	}

	sessOpts := session.Options{
		SessionCheckTimeout: cfg.SessionCheckTimeout,
		ProfileTimeout:      cfg.ProfileTimeout,
		Logger:              logger,
	}
	// Hosted tokens can only be decoded with the project's secret.
	if dir != nil || cfg.AuthJWTSecret != "" {
		sessOpts.Tokens = tokens
	}

	reg := workspace.NewRegistry(workspace.Deps{
		Gateway:     gw,
		NewProvider: newProvider,
		Session:     sessOpts,
		Store:       store.Options{EnforceTransitions: cfg.EnforceStatusTransitions, Logger: logger},
		IdleTTL:     cfg.WorkspaceIdleTTL,
		Logger:      logger,
	})
	defer reg.Close()

	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go reg.Run(sweepCtx, sweepInterval(cfg.WorkspaceIdleTTL))

	e := newEcho(cfg, logger, reg, pool)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", cfg.ResolvedAuthMode()).Bool("memory", cfg.Memory).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newEcho builds the HTTP surface. pool is nil on in-memory gateways.
func newEcho(cfg *config.Config, logger zerolog.Logger, reg *workspace.Registry, pool *pgxpool.Pool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(middleware.Sanitize(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Content-Type", middleware.RequestIDHeader, api.WorkspaceHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, api.WorkspaceHeader},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.Audit(logger))

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	srv := api.NewServer(reg, api.Options{
		SecureCookie: cfg.TLSEnabled,
		AuthRateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.AuthRateLimitRPS,
			BurstSize:         cfg.AuthRateLimitBurst,
			IdleTTL:           10 * time.Minute,
		},
	})
	srv.RegisterRoutes(e.Group("/api/v1"))
	return e
}

// providerFactory returns the per-workspace auth client constructor. dir is
// non-nil in development auth mode, where accounts live in process.
func providerFactory(cfg *config.Config, tokens *auth.Tokens) (func() auth.Provider, *auth.DevDirectory) {
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		dir := auth.NewDevDirectory(tokens, auth.DevOptions{RequireConfirmation: cfg.AuthRequireConfirmation})
		return func() auth.Provider { return dir.Client() }, dir
	}

	httpClient := &http.Client{Timeout: cfg.SessionCheckTimeout}
	gcfg := gotrue.Config{URL: cfg.AuthURL, AnonKey: cfg.AuthAnonKey}
	return func() auth.Provider { return gotrue.New(gcfg, httpClient) }, nil
}

// seedAdmin registers creds ("email:password") in the development directory
// and gives it a super_admin profile. An existing profile is left alone.
func seedAdmin(ctx context.Context, dir *auth.DevDirectory, gw store.Gateway, creds string) (string, error) {
	email, password, ok := strings.Cut(creds, ":")
	if !ok || email == "" || password == "" {
		return "", fmt.Errorf("expected email:password, got %q", creds)
	}

	res, err := dir.Client().SignUp(ctx, auth.SignUpParams{Email: email, Password: password})
	if err != nil {
		return "", fmt.Errorf("sign up %s: %w", email, err)
	}
	if res.Session == nil {
		if err := dir.Confirm(email); err != nil {
			return "", fmt.Errorf("confirm %s: %w", email, err)
		}
	}

	name, _, _ := strings.Cut(email, "@")
	_, err = gw.Profiles.Create(ctx, admin.UserProfileRow{
		ID:    res.User.ID,
		Email: email,
		Name:  name,
		Role:  string(auth.RoleSuperAdmin),
	})
	if err != nil && !isDuplicate(err) {
		return "", fmt.Errorf("create profile: %w", err)
	}
	return email, nil
}

func isDuplicate(err error) bool {
	var dup *db.DuplicateKeyError
	var pgErr *pgconn.PgError
	return errors.As(err, &dup) || (errors.As(err, &pgErr) && pgErr.Code == "23505")
}

// sweepInterval checks for idle workspaces four times per TTL, at least
// once a second and at most once a minute.
func sweepInterval(ttl time.Duration) time.Duration {
	every := ttl / 4
	if every < time.Second {
		every = time.Second
	}
	if every > time.Minute {
		every = time.Minute
	}
	return every
}

// resolveSigningSecret returns the configured HS256 secret, or 32 random
// bytes when none is set. Tokens signed with a random secret do not survive
// a restart.
func resolveSigningSecret(envValue string) ([]byte, error) {
	if envValue != "" {
		if len(envValue) < 32 {
			return nil, fmt.Errorf("AUTH_JWT_SECRET must be at least 32 bytes, got %d", len(envValue))
		}
		return []byte(envValue), nil
	}
	secret := make([]byte, 32)
	if _, err := crypto_rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate random signing secret: %w", err)
	}
	return secret, nil
}
