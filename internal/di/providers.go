package di

import (
	"fmt"

	"OptiFeed/internal/domain/repository"
	"OptiFeed/internal/handler/api"
	internalrepo "OptiFeed/internal/repository"
	"OptiFeed/internal/service/feed"
	"OptiFeed/internal/services/screener"
	"OptiFeed/internal/usecase"
	"OptiFeed/pkg/config"
	xhttp "OptiFeed/pkg/http"
	pkgkafka "OptiFeed/pkg/kafka"
	applogger "OptiFeed/pkg/logger"
	"OptiFeed/pkg/metrics"
	"OptiFeed/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Logging.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Logging.Format
	if format == "" {
		format = "console"
	}
	output := cfg.Logging.Output
	if output == "" {
		output = "stdout"
	}
	return applogger.New(&applogger.Config{
		Level:     level,
		Format:    format,
		Output:    output,
		ErrorRing: cfg.Logging.ErrorRing,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideScreener builds the screener from configured criteria, falling back
// to the defaults for any section the config leaves empty.
func ProvideScreener(cfg *config.Config) (*screener.Screener, error) {
	crit := screener.DefaultCriteria()
	sc := cfg.Screener
	if len(sc.Symbols) > 0 {
		crit.Symbols = sc.Symbols
	}
	if sc.MaxDTE > 0 {
		crit.MinDTE = sc.MinDTE
		crit.MaxDTE = sc.MaxDTE
	}
	if sc.StrikeRangePct > 0 {
		crit.StrikeRangePct = sc.StrikeRangePct
	}
	if sc.MaxSpreadWidthPct > 0 {
		crit.MaxSpreadWidthPct = sc.MaxSpreadWidthPct
	}
	if sc.MinMidPrice > 0 {
		crit.MinMidPrice = sc.MinMidPrice
	}
	if sc.MinVolume > 0 {
		crit.MinVolume = sc.MinVolume
	}
	if sc.MinOpenInterest > 0 {
		crit.MinOpenInterest = sc.MinOpenInterest
	}
	if sc.StrikeIncrement > 0 {
		crit.StrikeIncrement = sc.StrikeIncrement
	}
	return screener.New(crit)
}

// ProvideQuoteProvider selects the market-data source: a live WebSocket feed
// or the seeded simulator.
func ProvideQuoteProvider(cfg *config.Config, log *applogger.Logger) (repository.QuoteProvider, error) {
	switch cfg.Feed.Mode {
	case "ws":
		return feed.NewWSClient(feed.Config{
			URL:            cfg.Feed.URL,
			APIKey:         cfg.Feed.APIKey,
			ReconnectDelay: cfg.Feed.ReconnectDelay,
			PingInterval:   cfg.Feed.PingInterval,
		}, log), nil
	case "sim", "":
		return feed.NewSimulator(feed.SimConfig{
			Seed:     cfg.Feed.SimSeed,
			RiskFree: cfg.Monitor.RiskFreeRate,
		}), nil
	default:
		return nil, fmt.Errorf("unknown feed mode %q", cfg.Feed.Mode)
	}
}

// ProvideEnhancer creates the analytics enhancer.
func ProvideEnhancer(cfg *config.Config, m repository.Metrics, log *applogger.Logger) *usecase.Enhancer {
	riskFree := cfg.Monitor.RiskFreeRate
	if riskFree <= 0 {
		riskFree = 0.05
	}
	return usecase.NewEnhancer(riskFree, m, log)
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSinks assembles the enabled snapshot sinks.
func ProvideSinks(cfg *config.Config) ([]repository.SnapshotSink, error) {
	var sinks []repository.SnapshotSink

	if cfg.Kafka.Enabled {
		producer, err := ProvideKafkaProducer(cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, internalrepo.NewKafkaPublisher(producer, cfg.Kafka.SnapshotTopic, cfg.Kafka.OptionsTopic))
	}

	if cfg.Redis.Enabled {
		mirror, err := internalrepo.NewRedisMirror(internalrepo.RedisMirrorConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("redis mirror: %w", err)
		}
		sinks = append(sinks, mirror)
	}

	return sinks, nil
}

// ProvideMonitor creates the monitor loop with its sinks attached.
func ProvideMonitor(
	cfg *config.Config,
	provider repository.QuoteProvider,
	enhancer *usecase.Enhancer,
	scr *screener.Screener,
	m repository.Metrics,
	log *applogger.Logger,
	sinks []repository.SnapshotSink,
) *usecase.Monitor {
	return usecase.NewMonitor(
		usecase.MonitorConfig{
			Interval:     cfg.Monitor.Interval,
			WarmupWait:   cfg.Monitor.WarmupWait,
			ErrorBackoff: cfg.Monitor.ErrorBackoff,
			StopTimeout:  cfg.Monitor.StopTimeout,
			Underlyings:  cfg.Monitor.Underlyings,
			MaxContracts: cfg.Monitor.MaxContracts,
			HistorySize:  cfg.Monitor.HistorySize,
		},
		provider, enhancer, scr, m, log,
		usecase.WithSinks(sinks...),
	)
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(log *applogger.Logger, monitor *usecase.Monitor) xhttp.Handler {
	return api.NewMonitorEchoHandler(log, monitor)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	monitor *usecase.Monitor,
	handler xhttp.Handler,
	sinks []repository.SnapshotSink,
) *server.App {
	return server.New(cfg, log, monitor, handler, sinks)
}
