package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkhedmin/mkhedmin-api/internal/config"
	"github.com/mkhedmin/mkhedmin-api/internal/db"
	"github.com/mkhedmin/mkhedmin-api/internal/events"
	"github.com/mkhedmin/mkhedmin-api/internal/handlers"
	"github.com/mkhedmin/mkhedmin-api/internal/realtime"
	"github.com/mkhedmin/mkhedmin-api/internal/server"
	"github.com/mkhedmin/mkhedmin-api/internal/services/accounts"
	"github.com/mkhedmin/mkhedmin-api/internal/services/freelancers"
	"github.com/mkhedmin/mkhedmin-api/internal/services/leads"
	"github.com/mkhedmin/mkhedmin-api/internal/store"
	"github.com/mkhedmin/mkhedmin-api/internal/utils"
)

func main() {
	_ = godotenv.Load()
	started := time.Now()

	cfg := config.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg)})).
		With("service", "mkhedmin-api")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.NewConnector(cfg.DBDSN, cfg.DBMaxRetries, cfg.DBRetryInitial, cfg.DBRetryMax, log).Connect(ctx)
	if err != nil {
		log.Error("database unavailable", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			log.Warn("database close failed", "err", err)
		}
	}()
	if err := db.Migrate(gdb); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}

	rdb := realtime.NewRedis(cfg, log)
	if rdb != nil {
		defer rdb.Close()
	}

	var publisher events.LeadPublisher = events.Noop{}
	if cfg.NATSURL != "" {
		p, nc, err := events.NewNatsPublisher(cfg.NATSURL, log)
		if err != nil {
			log.Warn("nats unavailable, lead events disabled", "err", err)
		} else {
			publisher = p
			defer nc.Drain()
			log.Info("nats connected", "url", cfg.NATSURL)
		}
	}

	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	users := store.NewUsers(gdb)
	profiles := store.NewFreelancers(gdb)
	leadStore := store.NewLeads(gdb)

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTExpires, cfg.JWTRefreshExpires)
	accountSvc := accounts.NewService(users, profiles, tokens, accounts.NewRedisDenylist(rdb), cfg.BcryptCost, log)
	freelancerSvc := freelancers.NewService(profiles, log)
	leadSvc := leads.NewService(leadStore, profiles, publisher, hub, log)

	deps := server.Deps{
		Config:      cfg,
		Log:         log,
		Redis:       rdb,
		Auth:        accountSvc,
		Accounts:    &handlers.AuthHandler{Accounts: accountSvc},
		Freelancers: &handlers.FreelancerHandler{Freelancers: freelancerSvc},
		Leads:       &handlers.LeadHandler{Leads: leadSvc},
		Realtime:    &handlers.RealtimeHandler{Auth: accountSvc, Hub: hub, Log: log},
		Health:      &handlers.HealthHandler{Env: cfg.Env, Version: cfg.AppVersion, Started: started},
	}
	if cfg.GoogleEnabled() {
		deps.Google = &handlers.GoogleOAuthHandler{
			Accounts:        accountSvc,
			GoogleClientID:  cfg.GoogleClientID,
			GoogleSecret:    cfg.GoogleSecret,
			GoogleRedirect:  cfg.GoogleRedirect,
			FrontendBaseURL: cfg.FrontendURL,
			SecureCookies:   cfg.IsProduction(),
		}
	}
	app := server.New(deps)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Warn("shutdown incomplete", "err", err)
		}
	}()

	log.Info("server starting", "port", cfg.AppPort, "env", cfg.Env)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Error("server stopped", "err", err)
		stop()
		return
	}
	log.Info("server stopped")
}

func logLevel(cfg config.Config) slog.Level {
	if cfg.IsProduction() {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
