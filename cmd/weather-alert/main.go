package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/go-weather-alerts/internal/api"
	"github.com/mr1hm/go-weather-alerts/internal/commands"
	"github.com/mr1hm/go-weather-alerts/internal/config"
	"github.com/mr1hm/go-weather-alerts/internal/discord"
	"github.com/mr1hm/go-weather-alerts/internal/format"
	"github.com/mr1hm/go-weather-alerts/internal/ingestion"
	"github.com/mr1hm/go-weather-alerts/internal/logging"
	"github.com/mr1hm/go-weather-alerts/internal/notify"
	"github.com/mr1hm/go-weather-alerts/internal/nws"
	"github.com/mr1hm/go-weather-alerts/internal/repository"
	"github.com/mr1hm/go-weather-alerts/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	if err := cfg.RequireDiscordToken(); err != nil {
		logging.Fatalf("Fatal: %v", err)
	}

	slog.Info("bot starting", "zone", cfg.NWS.Zone, "office", cfg.NWS.Office, "interval", cfg.Poller.Interval, "storage", cfg.Storage.Driver)

	backend, err := repository.Open(cfg.Storage)
	if err != nil {
		logging.Fatalf("Failed to initialize storage: %v", err)
	}
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := repository.NewSeenAlerts(backend, cfg.Storage.SeenCap)
	seen.Load(ctx)
	dests := repository.NewDestinations(backend)
	dests.Load(ctx)

	client := nws.NewClient(cfg.NWS)
	formatter := format.New(cfg.NWS.ZoneName, cfg.NWS.Office)

	bot, err := discord.New(cfg.Discord.Token)
	if err != nil {
		logging.Fatalf("Failed to create discord session: %v", err)
	}

	// Broadcaster for SSE subscribers, plus the optional NATS relay
	broadcaster := stream.NewBroadcaster()
	publishers := stream.Multi{broadcaster}
	var relay *stream.NATSRelay
	if cfg.Relay.NATSURL != "" {
		relay, err = stream.NewNATSRelay(cfg.Relay)
		if err != nil {
			logging.Fatalf("Failed to connect NATS relay: %v", err)
		}
		publishers = append(publishers, relay)
		slog.Info("relaying delivered alerts to nats", "subject", cfg.Relay.Subject)
	}

	fanout := notify.NewFanout(bot, cfg.Delivery.Concurrency, cfg.Delivery.SendTimeout)
	mgr := ingestion.NewManager(cfg, client, formatter, fanout, seen, dests, publishers)

	svc := commands.NewService(cfg, client, formatter, dests, seen, mgr, bot)
	bot.Serve(svc, svc.Definitions(), func(ctx context.Context) {
		// The poll loop only runs once the gateway session is ready
		if err := mgr.Start(ctx); err != nil {
			slog.Warn("poll loop not started", "error", err)
			return
		}
		if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
			slog.Warn("error notifying systemd", "error", err)
		}
	})

	if err := bot.Open(ctx); err != nil {
		logging.Fatalf("Failed to connect to discord: %v", err)
	}

	var srv *http.Server
	if cfg.Server.Enabled {
		gin.SetMode(gin.ReleaseMode)
		router := gin.New()
		router.Use(gin.Recovery())
		router.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Cache-Control"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: false, // Set to false when using wildcard origins
		}))

		handler := api.NewHandler(cfg.NWS.Zone, client, dests, seen, mgr, broadcaster)
		handler.RegisterRoutes(router, api.RateLimitMiddleware(cfg.Server.RateLimit))

		srv = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		}

		go func() {
			slog.Info("server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Fatalf("server error: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// Let the current alert finish before tearing anything down
	mgr.Stop()
	if err := bot.Close(); err != nil {
		slog.Error("discord close error", "error", err)
	}
	broadcaster.Close() // Close all streams gracefully
	if relay != nil {
		relay.Close()
	}

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}

	cancel()
	slog.Info("shutdown complete")
}
