package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zapreel/zapreel/domain"
	"github.com/zapreel/zapreel/pkg/otel"
	"github.com/zapreel/zapreel/queue"
	"github.com/zapreel/zapreel/shared/backoff"
	"github.com/zapreel/zapreel/shared/config"
	"github.com/zapreel/zapreel/shared/db"
	"github.com/zapreel/zapreel/storage"
	"github.com/zapreel/zapreel/store"
)

const (
	// DefaultSweepInterval is the pause between pending-row sweeps in
	// database mode.
	DefaultSweepInterval = 30 * time.Second

	// DefaultSynthesisConcurrency stays at 1: most TTS engines are not
	// concurrency-safe, so parallel synthesis is opt-in.
	DefaultSynthesisConcurrency = 1

	DefaultMaxTextLength = 500
)

type Config struct {
	QueueName    string
	MockMode     bool
	DatabaseMode bool

	TTSURL   string
	Language string
	Speed    float64

	LocalStorage  bool
	StorageURL    string
	StorageBucket string

	OutputDir            string
	SynthesisConcurrency int
	MaxTextLength        int
	SweepInterval        time.Duration
	MetricsAddr          string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	DatabaseName     string
}

func LoadConfig() *Config {
	return &Config{
		QueueName:    config.GetEnv("CONSUMER_QUEUE_NAME", "voice-cloning-queue"),
		MockMode:     config.GetEnvBool("USE_MOCK_MODE", false),
		DatabaseMode: config.GetEnvBool("USE_DATABASE_MODE", false),

		TTSURL:   config.GetEnv("TTS_URL", "http://localhost:8000/synthesize"),
		Language: config.GetEnv("TTS_LANGUAGE", "pt"),
		Speed:    config.GetEnvFloat("TTS_SPEED", 1.0),

		LocalStorage:  config.GetEnvBool("USE_LOCAL_STORAGE", true),
		StorageURL:    config.GetEnv("LOCAL_STORAGE_URL", "http://localhost:8880"),
		StorageBucket: config.GetEnv("VOICE_STORAGE_BUCKET", storage.DefaultBucket),

		OutputDir:            config.GetEnv("OUTPUT_DIR", "./output"),
		SynthesisConcurrency: config.GetEnvInt("SYNTHESIS_CONCURRENCY", DefaultSynthesisConcurrency),
		MaxTextLength:        config.GetEnvInt("MAX_TEXT_LENGTH", DefaultMaxTextLength),
		SweepInterval:        config.GetEnvDuration("SWEEP_INTERVAL", DefaultSweepInterval),
		MetricsAddr:          config.GetEnv("METRICS_ADDR", ":9090"),

		PostgresHost:     config.GetEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     config.GetEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:     config.GetEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: config.GetEnv("POSTGRES_PASSWORD", "postgres"),
		DatabaseName:     config.GetEnv("DATABASE_NAME", "zapreel"),
	}
}

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message")
	flag.Parse()

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	result, err := otel.Init(otel.Config{
		ServiceName: "zapreel-voiceworker",
		Environment: config.GetEnv("ENVIRONMENT", "development"),
		TraceStdout: config.GetEnvBool("TRACE_STDOUT", false),
		LogLevel:    config.GetEnv("LOG_LEVEL", "info"),
	})
	if err != nil {
		slog.Error("otel init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		result.Shutdown(shutdownCtx)
	}()
	slog.SetDefault(result.Logger)

	cfg := LoadConfig()
	logConfig(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := connectDB(ctx, cfg)
	if err != nil {
		slog.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	worker := NewWorker(cfg, store.New(pool), storage.New(cfg.StorageURL, cfg.StorageBucket), NewHTTPSynthesizer(cfg))

	if cfg.DatabaseMode {
		if err := worker.RunDatabaseMode(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("database mode loop failed", "error", err)
			os.Exit(1)
		}
		slog.Info("voice worker stopped")
		return
	}

	var consumer queue.Consumer
	if cfg.MockMode {
		slog.Info("mock mode enabled, skipping broker")
		consumer = queue.NewMockConsumer(cfg.QueueName, nil)
	} else {
		consumer = queue.NewAMQPConsumer(queue.LoadBrokerConfig(), cfg.QueueName)
	}

	body, err := queue.DrainOne(ctx, consumer)
	if err != nil {
		slog.Error("queue consumption failed", "queue", cfg.QueueName, "error", err)
		os.Exit(1)
	}
	if body == nil {
		slog.Info("no message available, exiting", "queue", cfg.QueueName)
		return
	}

	if err := worker.HandleMessage(ctx, body); err != nil {
		if code := exitCode(err); code != 0 {
			os.Exit(code)
		}
		return
	}
	slog.Info("voice worker finished")
}

// exitCode maps a processing error to the process exit status. By the time
// HandleMessage returns, the message is acked and its queue deleted: a
// permanently bad body exits 0 so the job runner does not reschedule it
// against a queue that no longer exists. Non-zero is reserved for
// infrastructure failures.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if domain.IsProtocolError(err) {
		slog.Error("discarding malformed job", "error", err)
		return 0
	}
	slog.Error("message processing failed", "error", err)
	return 1
}

func connectDB(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	url := db.URLFromParts(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.DatabaseName)

	var pool *pgxpool.Pool
	err := backoff.Retry(ctx, backoff.Quick, func(ctx context.Context, attempt int) error {
		var err error
		pool, err = db.ConnectSimple(ctx, url)
		if err != nil {
			slog.Warn("database not reachable, retrying", "attempt", attempt, "error", err)
		}
		return err
	})
	return pool, err
}

func printHelp() {
	fmt.Println(`Zapreel Voice Worker

Consumes one voice-cloning job from its private queue, synthesizes one audio
file per chat message, uploads the results, and exits.

Environment Variables:
  Queue:
    CONSUMER_QUEUE_NAME   Private queue to drain (default: voice-cloning-queue)
    USE_MOCK_MODE         Use the built-in fixture instead of the broker (default: false)
    USE_DATABASE_MODE     Sweep pending rows continuously instead of consuming (default: false)
    RABBITMQ_HOST/PORT/USER/PASSWORD/VHOST   Broker connection

  Synthesis:
    TTS_URL               Voice-cloning TTS endpoint (default: http://localhost:8000/synthesize)
    TTS_LANGUAGE          Synthesis language (default: pt)
    TTS_SPEED             Speech speed factor (default: 1.0)
    SYNTHESIS_CONCURRENCY Parallel synthesis calls (default: 1)
    MAX_TEXT_LENGTH       Per-message text cap before synthesis (default: 500)

  Storage:
    USE_LOCAL_STORAGE     Keep audio on the local disk only (default: true)
    LOCAL_STORAGE_URL     Object store base URL (default: http://localhost:8880)
    VOICE_STORAGE_BUCKET  Bucket for audio artifacts (default: voice-cloning)
    OUTPUT_DIR            Local audio output directory (default: ./output)

  Database:
    POSTGRES_HOST/PORT/USER/PASSWORD, DATABASE_NAME
    SWEEP_INTERVAL        Pause between pending sweeps in database mode (default: 30s)
    METRICS_ADDR          /health + /metrics listen address in database mode (default: :9090)

Flags:
  -h, -help  Show this help message`)
}

func logConfig(cfg *Config) {
	slog.Info("configuration",
		"queue", cfg.QueueName,
		"mock_mode", cfg.MockMode,
		"database_mode", cfg.DatabaseMode,
		"tts_url", cfg.TTSURL,
		"language", cfg.Language,
		"local_storage", cfg.LocalStorage,
		"storage_url", cfg.StorageURL,
		"bucket", cfg.StorageBucket,
		"output_dir", cfg.OutputDir,
		"synthesis_concurrency", cfg.SynthesisConcurrency,
		"postgres_host", cfg.PostgresHost,
		"database", cfg.DatabaseName,
	)
}
