package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/prenos/internal/api"
	"github.com/erazemk/prenos/internal/db"
	"github.com/erazemk/prenos/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

// config holds runtime settings. Flags override environment variables, which
// override a .env file in the working directory.
type config struct {
	dbPath    string
	addr      string
	adminUser string
	logPath   string
	staleDays int
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadConfig(args []string) (*config, error) {
	// Missing .env is fine, it is just one of the config sources.
	_ = godotenv.Load()

	cfg := &config{
		dbPath:    envOr("PRENOS_DB", "prenos.sqlite3"),
		addr:      envOr("PRENOS_ADDR", ":8080"),
		adminUser: envOr("PRENOS_ADMIN", "Admin"),
		logPath:   os.Getenv("PRENOS_LOG"),
		staleDays: 14,
	}
	if v := os.Getenv("PRENOS_STALE_DAYS"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &cfg.staleDays); err != nil {
			return nil, fmt.Errorf("invalid PRENOS_STALE_DAYS: %q", v)
		}
	}

	fs := flag.NewFlagSet("prenos", flag.ContinueOnError)
	fs.StringVar(&cfg.dbPath, "db", cfg.dbPath, "")
	fs.StringVar(&cfg.dbPath, "d", cfg.dbPath, "")
	fs.StringVar(&cfg.addr, "addr", cfg.addr, "")
	fs.StringVar(&cfg.addr, "a", cfg.addr, "")
	fs.StringVar(&cfg.adminUser, "user", cfg.adminUser, "")
	fs.StringVar(&cfg.adminUser, "u", cfg.adminUser, "")
	fs.StringVar(&cfg.logPath, "log", cfg.logPath, "")
	fs.StringVar(&cfg.logPath, "l", cfg.logPath, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: prenos [flags]

Flags:
  -d, -db <path>          SQLite database path (default: prenos.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: Admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Each flag can also be set via the environment (or a .env file):
PRENOS_DB, PRENOS_ADDR, PRENOS_ADMIN, PRENOS_LOG, PRENOS_STALE_DAYS.
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.dbPath); os.IsNotExist(err) {
		database, password, err := initDatabase(cfg.dbPath, cfg.adminUser)
		if err != nil {
			slog.Error("failed to initialize database", "error", err)
			os.Exit(1)
		}
		database.Close()

		printInitResult(cfg.dbPath, cfg.adminUser, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Run migrations (idempotent).
	if err := db.Migrate(database); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", cfg.dbPath)

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		slog.Error("failed to get JWT secret", "error", err)
		os.Exit(1)
	}

	// Nightly maintenance: purge expired token revocations and flag pending
	// transfers that have sat unreconciled past the stale window.
	sweeper := cron.New()
	staleAge := time.Duration(cfg.staleDays) * 24 * time.Hour
	if _, err := sweeper.AddFunc("0 3 * * *", func() {
		runSweep(database, staleAge)
	}); err != nil {
		slog.Error("failed to schedule maintenance sweep", "error", err)
		os.Exit(1)
	}
	sweeper.Start()
	defer sweeper.Stop()

	handler := api.LoggingMiddleware(api.NewRouter(database, jwtSecret))

	server := &http.Server{
		Addr:              cfg.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}

// runSweep executes one maintenance pass.
func runSweep(database *sql.DB, staleAge time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	purged, err := store.PurgeExpiredTokens(ctx, database)
	if err != nil {
		slog.Error("sweep: purging expired tokens", "error", err)
	} else if purged > 0 {
		slog.Info("sweep: purged expired token revocations", "count", purged)
	}

	stale, err := store.StalePendingTransfers(ctx, database, staleAge)
	if err != nil {
		slog.Error("sweep: listing stale transfers", "error", err)
		return
	}
	for _, t := range stale {
		slog.Warn("transfer pending past stale window",
			"id", t.ID,
			"batch", t.BatchNumber,
			"sender", t.SenderName,
			"receiver", t.ReceiverName,
			"created_at", t.CreatedAt,
		)
	}
}

// initDatabase creates a new database, runs migrations, and creates the admin user.
func initDatabase(path, adminUsername string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(database); err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("running migrations: %w", err)
	}

	password, err := generatePassword(16)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	ctx := context.Background()
	_, err = store.CreateUser(ctx, database, adminUsername, string(hash), "admin")
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("creating admin user: %w", err)
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password — it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
