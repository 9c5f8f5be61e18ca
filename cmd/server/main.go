package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avelk/Parley/internal/adapters/auth"
	router "github.com/avelk/Parley/internal/adapters/http"
	"github.com/avelk/Parley/internal/adapters/store"
	"github.com/avelk/Parley/internal/adapters/ws"
	"github.com/avelk/Parley/internal/app"
	"github.com/avelk/Parley/internal/app/gateway"
	"github.com/avelk/Parley/internal/config"
	"github.com/avelk/Parley/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var messageStore core.MessageStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err = rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable")
		}
		messageStore = store.NewRedis(rdb, cfg.MessageKeep)
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis message store")
	} else {
		messageStore = store.NewMemory()
		log.Warn().Msg("no redis configured, messages are kept in memory only")
	}

	persister := gateway.NewPersister(messageStore, cfg.PersistQueue, cfg.PersistRetries, cfg.PersistBackoff)
	go persister.Run(ctx)

	registry := app.NewConnectionRegistry()
	rooms := app.NewRoomMembership()
	resolver := auth.NewJWTResolver(cfg.Secret, cfg.Mode != "release")

	limiter := app.NewRateLimiter(cfg.MessageRateLimit, cfg.MessageRateWindow)
	gw := gateway.New(registry, rooms, resolver, app.AllowAllRooms{}, app.KickPolicy{}, persister, limiter)
	ctl := ws.NewController(gw, cfg.ReadLimit, cfg.PingPeriod, cfg.SendBuffer)

	r := router.SetupRouter(ctx, cfg, gw, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Parley server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	persister.Wait()
	log.Info().Msg("Server exited gracefully")
}
