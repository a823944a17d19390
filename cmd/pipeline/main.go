package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/aggregator"
	"github.com/BarkinBalci/interaction-insights-service/internal/config"
	"github.com/BarkinBalci/interaction-insights-service/internal/correlation"
	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
	"github.com/BarkinBalci/interaction-insights-service/internal/logger"
	"github.com/BarkinBalci/interaction-insights-service/internal/pipeline"
	sqsqueue "github.com/BarkinBalci/interaction-insights-service/internal/queue/sqs"
	sig "github.com/BarkinBalci/interaction-insights-service/internal/signal"
	"github.com/BarkinBalci/interaction-insights-service/internal/sink"
	"github.com/BarkinBalci/interaction-insights-service/internal/sink/clickhouse"
	"github.com/BarkinBalci/interaction-insights-service/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting pipeline service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("source_mode", cfg.Source.Mode))

	ctx := context.Background()

	// Initialize ClickHouse sink
	chClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func() {
		if err := chClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}()

	repo := clickhouse.NewRepository(chClient, log)
	if err := repo.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}
	log.Info("Warehouse schema initialized")

	// Initialize SQS when the source or the dead-letter path needs it
	var sqsClient *sqsqueue.Client
	if cfg.Source.Mode == "sqs" || cfg.SQS.DeadLetterURL != "" {
		sqsClient, err = sqsqueue.NewClient(ctx, cfg.SQS, log)
		if err != nil {
			log.Fatal("Failed to create SQS client", zap.Error(err))
		}
	}

	// Initialize event source
	var eventSource source.EventSource
	if cfg.Source.Mode == "sqs" {
		eventSource = source.NewSQSSource(sqsClient, source.SQSSourceConfig{}, log)
	} else {
		eventSource = source.NewSimulatedSource(source.SimulatorConfig{
			Seed:      cfg.Source.SimSeed,
			Interval:  cfg.Source.SimInterval,
			Limit:     cfg.Source.SimLimit,
			Customers: cfg.Source.SimCustomers,
		}, log)
	}

	// Initialize signal cache and scheduled refreshes
	signalTypes := make([]domain.SignalType, 0, len(cfg.Pipeline.SignalTypes))
	for _, raw := range cfg.Pipeline.SignalTypes {
		signalType, err := domain.ParseSignalType(raw)
		if err != nil {
			log.Fatal("Invalid signal type in config", zap.Error(err))
		}
		signalTypes = append(signalTypes, signalType)
	}

	cache := sig.NewCache(buildFetchers(signalTypes, &cfg.Signals, log), log)
	refresher, err := sig.NewRefresher(cache, buildSchedules(signalTypes, &cfg.Signals), cfg.Signals.FetchTimeout, log)
	if err != nil {
		log.Fatal("Failed to create signal refresher", zap.Error(err))
	}
	refresher.Start()
	defer refresher.Stop()

	// Initialize aggregation and correlation
	agg, err := aggregator.New(aggregator.Config{
		WindowSize:  cfg.Pipeline.WindowSize,
		GracePeriod: cfg.Pipeline.GracePeriod,
	}, log)
	if err != nil {
		log.Fatal("Failed to create aggregator", zap.Error(err))
	}

	engine := correlation.NewEngine(correlation.Config{
		BaselineWindowCount: cfg.Pipeline.BaselineWindowCount,
		AnomalyThresholdPct: cfg.Pipeline.AnomalyThresholdPct,
		ExpectedSignals:     signalTypes,
		MarketBandPct:       cfg.Signals.MarketBandPct,
		NewsBand:            cfg.Signals.NewsBand,
	}, log)

	var deadLetter sink.DeadLetter
	if cfg.SQS.DeadLetterURL != "" {
		deadLetter = sink.NewSQSDeadLetter(sqsClient, cfg.SQS.DeadLetterURL, log)
	} else {
		deadLetter = sink.NewLogDeadLetter(log)
	}

	coordinator := pipeline.New(pipeline.Config{
		CorrelationInterval: cfg.Pipeline.CorrelationInterval,
		SignalTypes:         signalTypes,
		RetryMaxAttempts:    cfg.Pipeline.RetryMaxAttempts,
		RetryBackoffBase:    cfg.Pipeline.RetryBackoffBase,
		SinkRetryAttempts:   cfg.Pipeline.SinkRetryAttempts,
	}, eventSource, agg, cache, engine, repo, deadLetter, log)

	// Status endpoint for operators and health probes
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := repo.Ping(r.Context()); err != nil {
				log.Warn("Health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(coordinator.Stats()); err != nil {
				log.Error("Failed to encode status", zap.Error(err))
			}
		})

		addr := ":" + cfg.Service.StatusPort
		log.Info("Status server starting", zap.String("address", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Status server error", zap.Error(err))
		}
	}()

	if err := coordinator.Start(ctx); err != nil {
		log.Fatal("Failed to start pipeline", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info("Shutting down pipeline gracefully")
		stopCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := coordinator.Stop(stopCtx); err != nil {
			log.Error("Failed to stop pipeline cleanly", zap.Error(err))
		}
	case <-coordinator.Done():
		if coordinator.State() == pipeline.StateFailed {
			log.Fatal("Pipeline failed", zap.Error(coordinator.LastErr()))
		}
		log.Info("Pipeline finished")
	}
}

// buildFetchers wires one fetcher per configured signal type. Types without
// an API key fall back to deterministic local data so development runs work
// without credentials.
func buildFetchers(types []domain.SignalType, cfg *config.Signals, log *zap.Logger) map[domain.SignalType]sig.Fetcher {
	client := &http.Client{Timeout: cfg.FetchTimeout}
	fetchers := make(map[domain.SignalType]sig.Fetcher, len(types))

	for _, signalType := range types {
		switch signalType {
		case domain.SignalWeather:
			if cfg.WeatherAPIKey != "" {
				fetchers[signalType] = sig.NewWeatherFetcher(cfg.WeatherAPIKey, cfg.WeatherCity, cfg.TTL, client)
			} else {
				log.Warn("No OpenWeather API key, using static weather signal")
				fetchers[signalType] = &sig.StaticFetcher{Type: signalType, Value: 21.0, Label: "Clear", TTL: cfg.TTL}
			}
		case domain.SignalMarket:
			if cfg.MarketAPIKey != "" {
				fetchers[signalType] = sig.NewMarketFetcher(cfg.MarketAPIKey, cfg.MarketSymbol, cfg.TTL, client)
			} else {
				log.Warn("No Alpha Vantage API key, using static market signal")
				fetchers[signalType] = &sig.StaticFetcher{Type: signalType, Value: 0.3, Label: "positive", TTL: cfg.TTL}
			}
		case domain.SignalNews:
			if cfg.NewsAPIKey != "" {
				fetchers[signalType] = sig.NewNewsFetcher(cfg.NewsAPIKey, cfg.NewsQuery, cfg.TTL, client)
			} else {
				log.Warn("No News API key, using static news signal")
				fetchers[signalType] = &sig.StaticFetcher{Type: signalType, Value: 0, Label: "neutral", TTL: cfg.TTL}
			}
		}
	}

	return fetchers
}

// buildSchedules maps each configured signal type to its cron schedule
func buildSchedules(types []domain.SignalType, cfg *config.Signals) map[domain.SignalType]string {
	schedules := make(map[domain.SignalType]string, len(types))
	for _, signalType := range types {
		switch signalType {
		case domain.SignalWeather:
			schedules[signalType] = cfg.WeatherSchedule
		case domain.SignalMarket:
			schedules[signalType] = cfg.MarketSchedule
		case domain.SignalNews:
			schedules[signalType] = cfg.NewsSchedule
		}
	}
	return schedules
}
