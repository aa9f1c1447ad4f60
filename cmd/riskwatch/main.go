package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/warkadguard/riskwatch/internal/config"
	"github.com/warkadguard/riskwatch/internal/logger"
	"github.com/warkadguard/riskwatch/internal/models"
	"github.com/warkadguard/riskwatch/internal/observability"
	"github.com/warkadguard/riskwatch/internal/pipeline"
	"github.com/warkadguard/riskwatch/internal/publisher"
	"github.com/warkadguard/riskwatch/internal/satellite"
	"github.com/warkadguard/riskwatch/internal/sms"
	"github.com/warkadguard/riskwatch/internal/storage"
	"github.com/warkadguard/riskwatch/internal/telegram"
	"github.com/warkadguard/riskwatch/internal/weather"
	"github.com/warkadguard/riskwatch/internal/window"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	once       = flag.Bool("once", false, "Run a single pass and exit")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath, 0755)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := registerLocations(ctx, store, cfg.Locations); err != nil {
		logger.Fatal("Failed to register locations: %v", err)
	}

	weatherClient := weather.NewClient(
		cfg.Weather.APIBaseURL,
		cfg.Weather.APIKey,
		weather.ClientConfig{
			Timeout:        cfg.Weather.Timeout,
			MaxRetries:     cfg.Weather.MaxRetries,
			RetryDelayBase: cfg.Weather.RetryDelayBase,
			BreakerTimeout: cfg.Weather.BreakerTimeout,
		},
	)
	var weatherSource pipeline.WeatherSource = weatherClient
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable at %s, weather cache will fall through: %v", cfg.Redis.Addr, err)
		}
		weatherSource = weather.NewRedisCache(weatherClient, rdb, cfg.Weather.CacheTTL)
		logger.Info("Weather cache enabled (ttl: %v)", cfg.Weather.CacheTTL)
	}

	ndviSource := satellite.NewClient(cfg.Satellite.APIBaseURL, satellite.ClientConfig{
		APIKey:          cfg.Satellite.APIKey,
		Collection:      cfg.Satellite.Collection,
		MaxCloudPercent: cfg.Satellite.MaxCloudPercent,
		Timeout:         cfg.Satellite.Timeout,
		MaxRetries:      cfg.Satellite.MaxRetries,
		RetryDelayBase:  cfg.Satellite.RetryDelayBase,
		BreakerTimeout:  cfg.Satellite.BreakerTimeout,
	})

	opts := pipeline.Options{
		HoldWatermarkOnSkip: cfg.HoldWatermarkOnSkip(),
	}

	var channels pipeline.FanOut
	if cfg.SMS.Enabled {
		channels = append(channels, sms.NewMockSender(cfg.SMS.Sender))
	}
	if cfg.Telegram.Enabled {
		tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		channels = append(channels, tg)
		logger.Info("Telegram client initialized successfully")
	}
	if len(channels) > 0 {
		opts.Notifier = channels
	} else {
		logger.Warn("No notification channels enabled; alerts will only be logged")
	}

	if cfg.Kafka.Enabled {
		producer := publisher.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error("Failed to close Kafka producer: %v", err)
			}
		}()
		opts.Publisher = producer
		logger.Info("Publishing assessments to Kafka topic %s", cfg.Kafka.Topic)
	}

	if cfg.Pipeline.RecordSignals {
		opts.Recorder = store
	}

	if cfg.Metrics.Enabled {
		opts.Metrics = observability.NewMetrics()
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics listener failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("Serving metrics on %s/metrics", cfg.Metrics.Addr)
	}

	tracker := window.NewTracker(store, nil, window.Options{
		LookbackDays:     cfg.Pipeline.LookbackDays,
		CurrentDays:      cfg.Pipeline.CurrentDays,
		BaselineNearDays: cfg.Pipeline.BaselineNearDays,
		BaselineFarDays:  cfg.Pipeline.BaselineFarDays,
	})
	pipe := pipeline.New(ndviSource, weatherSource, store, tracker, opts)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	runPass := func() {
		if _, err := pipe.Run(ctx); err != nil {
			if errors.Is(err, pipeline.ErrPersistence) {
				logger.Error("Pass aborted, watermark not advanced: %v", err)
				return
			}
			logger.Error("Pass failed: %v", err)
		}
	}

	if *once || cfg.Schedule.Cron == "" {
		runPass()
		return
	}

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := scheduler.AddFunc(cfg.Schedule.Cron, runPass); err != nil {
		logger.Fatal("Invalid schedule.cron %q: %v", cfg.Schedule.Cron, err)
	}

	if cfg.Schedule.RunOnStart {
		logger.Debug("Running initial pass")
		runPass()
	}

	scheduler.Start()
	logger.Info("Scheduled passes with cron %q", cfg.Schedule.Cron)

	<-ctx.Done()
	<-scheduler.Stop().Done()
	logger.Info("Service stopped")
}

// registerLocations adds configured kebeles that are not yet in the store
func registerLocations(ctx context.Context, store *storage.Storage, locations []config.LocationConfig) error {
	for _, lc := range locations {
		loc := &models.Location{Name: lc.Name, Latitude: lc.Latitude, Longitude: lc.Longitude}
		if err := store.AddLocation(ctx, loc); err != nil {
			return err
		}
	}
	if len(locations) > 0 {
		logger.Debug("Registered %d configured kebeles", len(locations))
	}
	return nil
}
