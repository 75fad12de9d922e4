package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"sjsage522/pricewatcher/config"
	"sjsage522/pricewatcher/internal/api"
	"sjsage522/pricewatcher/internal/crawler"
	"sjsage522/pricewatcher/internal/history"
	"sjsage522/pricewatcher/internal/live"
	"sjsage522/pricewatcher/internal/notify"
	"sjsage522/pricewatcher/internal/session"
	"sjsage522/pricewatcher/internal/store"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/services/cache"
	"sjsage522/pricewatcher/services/publisher"
	"sjsage522/pricewatcher/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("poll_interval", cfg.PollInterval).
		Dur("item_delay", cfg.ItemDelay).
		Msg("Starting application")

	// Root context is cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	tracker := history.NewTracker(services.Store, services.Publisher)
	w := worker.NewWorker(
		services.Supplier,
		services.Store,
		tracker,
		services.Dispatcher,
		services.Publisher,
		worker.Options{
			PollInterval: cfg.PollInterval,
			ItemDelay:    cfg.ItemDelay,
			ItemTimeout:  cfg.ItemTimeout,
		},
	)

	apiServer := api.NewServer(
		services.Store,
		tracker,
		session.NewStore(services.Cache, cfg.SessionTTL),
		services.Hub.HandleWS,
	)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.APIPort),
		Handler:      apiServer.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		services.Hub.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("supplier", services.Supplier.GetName()).Msg("Starting price worker")
		return w.Start(gCtx)
	})

	g.Go(func() error {
		log.Info().Int("port", cfg.APIPort).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Exited with error")
		return
	}
	log.Info().Msg("Stopped")
}

// Services holds all the initialized services
type Services struct {
	Store      store.Store
	Cache      cache.CacheService
	Supplier   crawler.Supplier
	Dispatcher notify.Dispatcher
	Publisher  publisher.Publisher
	Hub        *live.Hub

	pool *pgxpool.Pool
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			logger.Warn("Failed to close publisher: %v", err)
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// initializeServices initializes all required services. Redis and memcached
// are optional: without them live updates stay in process and the cache is
// held in memory.
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}

		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		services.pool = pool
		services.Store = pg
		logger.Info("Connected to PostgreSQL")
	} else {
		services.Store = store.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	// Initialize cache service
	memcacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	if err := memcacheService.Ping(); err != nil {
		logger.Warn("Memcache unavailable at %s, using in-memory cache: %v", cfg.MemcacheAddr, err)
		services.Cache = cache.NewMemoryCache()
	} else {
		services.Cache = memcacheService
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	}

	// Initialize page supplier
	if cfg.UseChrome {
		chrome := crawler.NewChromeSupplier(cfg.ChromeAddr, services.Cache, cfg.RateLimitBlock, cfg.FetchTimeout)
		if err := chrome.CheckConnection(ctx); err != nil {
			logger.Warn("Chrome unavailable at %s: %v", cfg.ChromeAddr, err)
		}
		services.Supplier = chrome
	} else {
		services.Supplier = crawler.NewHTTPSupplier(services.Cache, cfg.RateLimitBlock)
	}

	// Initialize notification dispatcher
	if cfg.DiscordToken != "" && cfg.DiscordChannelID != "" {
		services.Dispatcher = notify.NewDiscordDispatcher(cfg.DiscordAPIURL, cfg.DiscordToken, cfg.DiscordChannelID)
	} else {
		logger.Warn("Discord credentials not set, alerts are only logged")
		services.Dispatcher = notify.NewLogDispatcher()
	}

	// Initialize publishers
	services.Hub = live.NewHub()
	publishers := []publisher.Publisher{services.Hub}

	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamMaxLength,
	)
	if err := redisPublisher.Ping(); err != nil {
		logger.Warn("Redis unavailable at %s, live updates stay in process: %v", cfg.RedisAddr, err)
		redisPublisher.Close()
	} else {
		publishers = append(publishers, redisPublisher)
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}
	services.Publisher = publisher.NewMultiPublisher(publishers...)

	return services, nil
}
