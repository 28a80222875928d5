package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"nearnio/internal/api"
	"nearnio/internal/bot"
	"nearnio/internal/config"
	"nearnio/internal/database"
	"nearnio/internal/events"
	"nearnio/internal/logging"
	"nearnio/internal/metrics"
	"nearnio/internal/price"
	"nearnio/internal/repository"
	"nearnio/internal/service"
	"nearnio/internal/upstream"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// The api binary runs the pipeline headless: no update polling, every run is
// kicked off by an external scheduler hitting the trigger endpoints.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := logging.Component(baseLogger, "api-main")

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting the trigger binary. Check your config.")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("telegram init: %w", err)
	}

	orchestrator := buildOrchestrator(ctx, cfg, db, botAPI, baseLogger)

	if cfg.Monitoring.PrometheusEnabled {
		go serveMetrics(cfg.Monitoring.PrometheusPort, logger)
	}

	apiServer := api.NewServer(cfg.API, orchestrator, logging.Component(baseLogger, "api"))
	go func() {
		<-ctx.Done()
		_ = apiServer.Shutdown(context.Background())
	}()

	return apiServer.Start()
}

func buildOrchestrator(ctx context.Context, cfg *config.Config, db *database.DB, botAPI *tgbotapi.BotAPI, baseLogger *zerolog.Logger) *service.Orchestrator {
	redisClient := repository.NewRedisClient(cfg.Redis)

	repoLogger := logging.Component(baseLogger, "repository")
	if err := repository.Ping(ctx, redisClient); err != nil {
		repoLogger.Warn().Err(err).Msg("Redis unavailable, price cache degrades to memory")
	}

	priceCache := repository.NewFailoverPriceCache(
		repository.NewRedisPriceCache(redisClient, cfg.Price.CacheTTL),
		repository.NewMemoryPriceCache(cfg.Price.CacheTTL),
		repoLogger,
	)

	oracle := price.NewOracle(cfg.Price, priceCache, logging.Component(baseLogger, "price"))
	source := upstream.NewClient(cfg.Upstream)

	eventBus := events.NewEventBus()
	subscribeMetrics(eventBus)

	tg := service.NewTelegramService(service.WrapBotAPI(botAPI))
	renderer := bot.NewRenderer(cfg.Upstream.BaseURL)

	syncService := service.NewSyncService(source, db, db, eventBus, logging.Component(baseLogger, "sync"))
	notifyService := service.NewNotifyService(
		db, db, db, oracle, tg, renderer, db, eventBus,
		cfg.Notify.SendDelay, cfg.Notify.Lookback,
		logging.Component(baseLogger, "notify"),
	)
	reminderService := service.NewReminderService(
		db, db, db, tg, renderer, db, eventBus,
		cfg.Notify.SendDelay,
		logging.Component(baseLogger, "remind"),
	)

	return service.NewOrchestrator(
		syncService, notifyService, reminderService,
		cfg.Notify.RunTimeout,
		logging.Component(baseLogger, "orchestrator"),
	)
}

func subscribeMetrics(bus *events.EventBus) {
	bus.Subscribe(events.EventNotificationSent, func(event *events.Event) error {
		var payload events.NotificationSentPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		metrics.IncNotification(payload.Success)
		return nil
	})
	bus.Subscribe(events.EventReminderSent, func(event *events.Event) error {
		var payload events.ReminderSentPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		metrics.IncReminder(payload.IsFinal)
		return nil
	})
}

func serveMetrics(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.Info().Str("addr", addr).Msg("Metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("Metrics server error")
	}
}
