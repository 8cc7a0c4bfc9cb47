package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"spotai-game-service/internal/app"
	"spotai-game-service/internal/config"
	"spotai-game-service/internal/domain"
	"spotai-game-service/internal/infra/memory"
	pgloader "spotai-game-service/internal/infra/postgres"
	infraredis "spotai-game-service/internal/infra/redis"
	transport "spotai-game-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.CollectionLoader = memory.NewStaticCollectionLoader(sampleCollection())
	if pool != nil {
		loader = pgloader.NewImageLoader(pool)
	}

	imageTTL := config.TTLDuration(cfg.Game.ImageCacheTTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Game.SessionTTL, 24*time.Hour)

	var (
		images      app.ImageRepository
		sessions    app.SessionStore
		limitStore  app.PlayLimitStore
		timerStore  app.RoundTimerStore
		daily       app.DailyStore
		leaderboard app.Leaderboard
	)
	if redisClient != nil {
		images = infraredis.NewImageRepository(redisClient, loader, imageTTL)
		sessions = infraredis.NewSessionStore(redisClient, sessionTTL)
		limitStore = infraredis.NewPlayLimitStore(redisClient)
		timerStore = infraredis.NewRoundTimerStore(redisClient)
		daily = infraredis.NewDailyStore(redisClient)
		leaderboard = infraredis.NewLeaderboard(redisClient)
		logrus.Infof("using redis at %s", cfg.Redis.Addr)
	} else {
		images = memory.NewImageRepository(loader, imageTTL)
		sessions = memory.NewSessionStore()
		limitStore = memory.NewPlayLimitStore()
		timerStore = memory.NewRoundTimerStore()
		daily = memory.NewDailyStore()
		leaderboard = memory.NewLeaderboard()
		logrus.Warn("no redis configured, using in-memory stores")
	}

	hub := app.NewHub()
	limits := app.NewPlayLimitTracker(limitStore, cfg.Game.MaxAttempts, cfg.Production())
	service := app.NewGameService(app.Dependencies{
		Sessions:    sessions,
		Limits:      limits,
		Timing:      app.NewTimingGuard(timerStore),
		Images:      images,
		Daily:       daily,
		Leaderboard: leaderboard,
		Identity:    memory.NewIdentityProvider(),
		Hub:         hub,
	})

	handler := transport.NewHandler(service, leaderboard)
	wsHandler := transport.NewWSHandler(hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logrus.Infof("starting game service on :%s (environment=%s, maxAttempts=%d)",
			finalPort, cfg.Game.Environment, limits.MaxAttempts())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logrus.Info("shutting down server...")
	case <-ctx.Done():
		logrus.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCollection provides a minimal image pool so the server runs without
// Postgres; swap in the DB-backed loader for production content.
func sampleCollection() domain.ImageCollection {
	pairs := make(map[string][]domain.ImagePair)
	categories := []string{"landscapes", "portraits", "animals", "food", "architecture", "street"}
	for _, category := range categories {
		for i := 1; i <= 3; i++ {
			id := fmt.Sprintf("%s-%d", category, i)
			pairs[category] = append(pairs[category], domain.ImagePair{
				ID:       id,
				Category: category,
				AIImage: domain.ImageInfo{
					URL:      fmt.Sprintf("/images/%s/ai-%d.webp", category, i),
					Category: category,
					IsAI:     true,
				},
				Human: domain.ImageInfo{
					URL:      fmt.Sprintf("/images/%s/real-%d.webp", category, i),
					Category: category,
					Source:   "sample",
				},
			})
		}
	}
	return domain.ImageCollection{Pairs: pairs}
}
