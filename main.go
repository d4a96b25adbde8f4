package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"dreambot/game"
	"dreambot/migrations"
	"dreambot/scheduler"
	"dreambot/shared/configs"
	"dreambot/shared/logger"
	"dreambot/storage"
	"dreambot/telegram"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
	}))

	return r
}

type OpenLobbyLister interface {
	ListOpenLobbies(ctx context.Context) ([]string, error)
}

func OpenLobbiesHandler(lister OpenLobbyLister) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		codes, err := lister.ListOpenLobbies(ctx.Request.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to list open lobbies")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal-error"})
			return
		}
		if codes == nil {
			codes = []string{}
		}
		ctx.JSON(http.StatusOK, gin.H{"lobbies": codes})
	}
}

func main() {
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logg := logger.New(cfg.Debug)

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to connect to telegram")
	}
	bot := telegram.NewBot(botAPI)

	if cfg.AdminNotifyId != 0 {
		hook := logger.NewTelegramHook(bot.AdminNotifier(cfg.AdminNotifyId), 64)
		defer hook.Close()
		logg = logger.New(cfg.Debug, hook)
	}

	if err := migrations.Migrate(cfg.PostgresURL); err != nil {
		logg.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Dependencies
	pgRepo, err := storage.NewPostgresRepo(ctx, cfg.PostgresURL)
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pgRepo.Close()

	redisStore, err := storage.NewRedisStore(ctx, &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisStore.Close()

	timers, err := scheduler.New(logg)
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer timers.Shutdown()

	gameService := game.NewService(game.Deps{
		Store:     redisStore,
		Lobbies:   redisStore,
		Players:   redisStore,
		Messenger: bot,
		Assets:    pgRepo,
		Stats:     pgRepo,
		Scheduler: timers,
		Params:    cfg.GameParams(),
		Logger:    logg,
	})

	router := telegram.NewRouter(telegram.RouterDeps{
		Games:   gameService,
		Lobbies: gameService.Lobbies,
		Users:   pgRepo,
		Drafts:  redisStore,
		Sender:  bot,
		Admins:  cfg.AdminIds,
		Limit:   rate.Limit(cfg.UserRateLimit),
		Burst:   cfg.UserRateBurst,
		Logger:  logg,
	})

	r := CreateServer(cfg.AllowedOrigins)
	r.GET("/lobbies", OpenLobbiesHandler(gameService.Lobbies))
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := botAPI.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	wg.Go(func() { router.Run(ctx, updates) })
	wg.Go(func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error().Err(err).Msg("http server stopped")
		}
	})

	logg.Info().Str("bot", botAPI.Self.UserName).Str("http", cfg.HTTPAddr).Msg("bot started")
	<-ctx.Done()

	botAPI.StopReceivingUpdates()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error().Err(err).Msg("http shutdown failed")
	}
	wg.Wait()
	logg.Info().Msg("bot stopped")
}
