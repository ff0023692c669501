package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-postauth"
	"github.com/goliatone/go-postauth/activitymap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var addr string
	var dsn string
	var debug bool

	flagSet := pflag.NewFlagSet("postauth", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", "", "listen address (overrides POSTAUTH_HTTP_ADDR)")
	flagSet.StringVar(&dsn, "dsn", "", "sqlite DSN (overrides POSTAUTH_DATABASE_DSN)")
	flagSet.BoolVar(&debug, "debug", false, "log request payloads and debug records")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := auth.LoadConfig()
	if err != nil {
		return err
	}

	if addr != "" {
		cfg.HTTPAddr = addr
	}
	if dsn != "" {
		cfg.DatabaseDSN = dsn
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := auth.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	if err := auth.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	var mailer auth.Mailer = auth.NewLogMailer(logger.With("component", "mailer"))
	if cfg.SMTP.Host != "" {
		smtp, err := auth.NewSMTPMailer(cfg.SMTP, cfg.MailFrom)
		if err != nil {
			return err
		}
		mailer = smtp
	}

	svc := auth.NewServices(cfg, auth.NewRepositoryManager(db), mailer,
		auth.WithServicesLogger(logger),
		auth.WithServicesActivitySink(activitymap.NewSink(logger.With("component", "activity"))),
	)

	app := fiber.New(fiber.Config{
		AppName:               "postauth",
		DisableStartupMessage: true,
	})
	auth.RegisterRoutes(app, svc,
		auth.WithControllerLogger(logger.With("component", "http")),
		auth.WithControllerDebug(debug),
	)

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		errc <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down")
	return app.ShutdownWithContext(shutdownCtx)
}
