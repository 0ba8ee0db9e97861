package main

import (
	"context"
	crypto_rand "crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/medipay/medipay/internal/config"
	"github.com/medipay/medipay/internal/domain/billing"
	"github.com/medipay/medipay/internal/domain/clinical"
	"github.com/medipay/medipay/internal/domain/dashboard"
	"github.com/medipay/medipay/internal/domain/identity"
	"github.com/medipay/medipay/internal/domain/institution"
	"github.com/medipay/medipay/internal/platform/auth"
	"github.com/medipay/medipay/internal/platform/db"
	"github.com/medipay/medipay/internal/platform/ledger"
	"github.com/medipay/medipay/internal/platform/mail"
	"github.com/medipay/medipay/internal/platform/middleware"
	"github.com/medipay/medipay/internal/platform/validation"
	"github.com/medipay/medipay/internal/platform/wallet"
	"github.com/medipay/medipay/internal/platform/websocket"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "medipay-server",
		Short: "MediPay healthcare billing dashboard server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(usersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// routesCmd prints the public routes and the pages each role may open.
func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List public routes and role pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			public, pages := dashboard.Surface()
			fmt.Fprintln(out, "PUBLIC")
			for _, r := range public {
				fmt.Fprintf(out, "  %-28s %s\n", r.Path, r.Title)
			}
			for _, role := range auth.Roles() {
				fmt.Fprintln(out, strings.ToUpper(string(role)))
				for _, p := range pages[role] {
					fmt.Fprintf(out, "  %-28s %s\n", p.Path, p.Title)
				}
			}
			return nil
		},
	}
}

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List demo accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			users := identity.DemoUsers()
			sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
			fmt.Fprintf(out, "%-7s %-12s %-28s %s\n", "ID", "ROLE", "EMAIL", "NAME")
			for _, u := range users {
				fmt.Fprintf(out, "%-7s %-12s %-28s %s\n", u.ID, u.Role, u.Email, u.Name)
			}
			return nil
		},
	}
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}
	defer a.Close()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.Store).Str("network", cfg.SuiNetwork).Msg("starting server")
		if err := a.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// app is the assembled server together with the resources it owns.
type app struct {
	echo    *echo.Echo
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type repositories struct {
	invoices     billing.InvoiceRepository
	transactions billing.TransactionRepository
	payments     billing.PaymentRepository
	records      clinical.RecordRepository
	staff        institution.StaffRepository
	products     institution.ProductRepository
}

func memoryRepositories() repositories {
	return repositories{
		invoices:     billing.NewInvoiceRepoMemory(billing.SeedInvoices()),
		transactions: billing.NewTransactionRepoMemory(billing.SeedTransactions()),
		payments:     billing.NewPaymentRepoMemory(billing.SeedPayments()),
		records:      clinical.NewRecordRepoMemory(clinical.SeedRecords()),
		staff:        institution.NewStaffRepoMemory(institution.SeedStaff()),
		products:     institution.NewProductRepoMemory(institution.SeedProducts()),
	}
}

func postgresRepositories(pool *pgxpool.Pool) repositories {
	return repositories{
		invoices:     billing.NewInvoiceRepoPG(pool),
		transactions: billing.NewTransactionRepoPG(pool),
		payments:     billing.NewPaymentRepoPG(pool),
		records:      clinical.NewRecordRepoPG(pool),
		staff:        institution.NewStaffRepoPG(pool),
		products:     institution.NewProductRepoPG(pool),
	}
}

// newApp wires every service and handler onto a new echo instance. On error
// the resources opened so far are released.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (a *app, err error) {
	a = &app{}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	// Storage
	var pool *pgxpool.Pool
	repos := memoryRepositories()
	if cfg.UsePostgres() {
		pool, err = db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		repos = postgresRepositories(pool)
		logger.Info().Msg("connected to database")
	}

	// Sessions
	var revocations auth.RevocationStore
	if cfg.RedisURL != "" {
		client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		revocations = auth.NewRedisRevocationStore(client)
	} else {
		mem := auth.NewMemoryRevocationStore()
		a.closers = append(a.closers, mem.Close)
		revocations = mem
	}

	key, generated, err := resolveSessionKey(cfg.SessionSigningKey)
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Warn().Msg("SESSION_SIGNING_KEY not set, sessions will not survive a restart")
	}
	tokens := auth.NewTokenIssuer(key, cfg.SessionTTL)

	directory, err := identity.NewDemoDirectory(cfg.DemoPassword, bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("seed demo directory: %w", err)
	}
	sessions := identity.NewSessionStore()
	a.closers = append(a.closers, sessions.Close)
	identitySvc := identity.NewService(directory, sessions, tokens, revocations, logger)

	// Realtime events and mail
	hub := websocket.NewHub(logger)
	upgrader := websocket.NewUpgrader(cfg.CORSOrigins)

	var mailer mail.Mailer = mail.NewLogMailer(logger)
	if cfg.SMTPEnabled() {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}

	// Domain services
	billingSvc := billing.NewService(repos.invoices, repos.transactions, repos.payments, hub, logger)
	billingSvc.SetMailer(mailer)
	clinicalSvc := clinical.NewService(repos.records, clinical.SeedPatients(), clinical.SeedInstitutions(), logger)
	institutionSvc := institution.NewService(repos.staff, repos.products, mailer, logger)
	views := dashboard.NewViews(billingSvc, clinicalSvc, institutionSvc)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	// Wallet bridge
	journal, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	a.closers = append(a.closers, func() { _ = journal.Close() })

	rpcURL := cfg.SuiRPCURL
	if rpcURL == "" {
		rpcURL, _ = wallet.FullnodeURL(cfg.SuiNetwork)
	}
	relay := wallet.NewRelay(upgrader, logger)
	wallets := wallet.NewRegistry(relay, wallet.NewRPCClient(rpcURL, cfg.WalletTimeout), wallet.Options{
		PackageID:   cfg.SuiPackageID,
		Network:     cfg.SuiNetwork,
		Timeout:     cfg.WalletTimeout,
		IdleTimeout: cfg.SessionTTL,
	}, logger)
	a.closers = append(a.closers, wallets.Close)
	identitySvc.OnLogout(wallets.Remove)
	sessions.OnExpire(wallets.Remove)

	walletHandler := wallet.NewHandler(wallets, journal, logger)
	walletHandler.OnSubmitted(wallet.NewSubmissionCounter(reg).Hook())
	walletHandler.BeforeSubmit(paymentCheck(billingSvc))
	walletHandler.OnSubmitted(func(ctx context.Context, p auth.Principal, r ledger.Receipt) error {
		if r.Kind != wallet.KindPayment {
			return nil
		}
		_, err := billingSvc.RecordPayment(ctx, p, r.Reference, r.Digest, r.Amount)
		return err
	})

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID", "If-None-Match"},
		AllowCredentials: true,
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(metrics.Middleware())

	// Session middleware
	e.Use(auth.SessionMiddleware(auth.SessionConfig{
		Issuer:      tokens,
		Revocations: revocations,
		Resolver:    sessions,
		Skipper:     auth.AuthSkipper,
	}))

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// API groups
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(onlyRoutes(middleware.ETag(middleware.DefaultCacheConfig()), "/api/v1/explorer", "/api/v1/dashboard/routes"))

	identity.NewHandler(identitySvc, cfg.IsProduction()).RegisterRoutes(apiV1.Group("/auth"))
	billing.NewHandler(billingSvc).RegisterRoutes(apiV1)
	clinical.NewHandler(clinicalSvc).RegisterRoutes(apiV1)
	institution.NewHandler(institutionSvc).RegisterRoutes(apiV1)
	walletHandler.RegisterRoutes(apiV1)

	dashboardHandler := dashboard.NewHandler(views)
	dashboardHandler.RegisterRoutes(apiV1)
	dashboardHandler.RegisterPages(e)

	wsGroup := e.Group("/ws")
	websocket.NewHandler(hub, upgrader).RegisterRoutes(wsGroup)
	relay.RegisterRoutes(wsGroup)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}
	e.GET("/metrics", metrics.Handler())

	a.echo = e
	return a, nil
}

// paymentCheck refuses invoice payments the billing service would not record
// before they reach the wallet.
func paymentCheck(svc *billing.Service) wallet.SubmitCheck {
	return func(ctx context.Context, p auth.Principal, in wallet.Intent) error {
		if in.Kind != wallet.KindPayment {
			return nil
		}
		_, err := svc.AuthorizePayment(ctx, p, in.Reference, in.Amount)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, billing.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, billing.ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, billing.ErrSettled), errors.Is(err, billing.ErrPaymentPending):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, billing.ErrAmountMismatch):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return err
		}
	}
}

// onlyRoutes applies mw to requests whose matched route is one of paths.
func onlyRoutes(mw echo.MiddlewareFunc, paths ...string) echo.MiddlewareFunc {
	match := make(map[string]bool, len(paths))
	for _, p := range paths {
		match[p] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		wrapped := mw(next)
		return func(c echo.Context) error {
			if match[c.Path()] {
				return wrapped(c)
			}
			return next(c)
		}
	}
}

// resolveSessionKey returns the configured signing key or a random 32-byte
// key. The second return value is true when a random key was generated.
func resolveSessionKey(configured string) ([]byte, bool, error) {
	if configured != "" {
		return []byte(configured), false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate session signing key: %w", err)
	}
	return key, true, nil
}
