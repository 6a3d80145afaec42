package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zapreel/zapreel/media"
	"github.com/zapreel/zapreel/overlay"
	"github.com/zapreel/zapreel/pkg/otel"
	"github.com/zapreel/zapreel/queue"
	"github.com/zapreel/zapreel/screenshot"
	"github.com/zapreel/zapreel/shared/backoff"
	"github.com/zapreel/zapreel/shared/config"
	"github.com/zapreel/zapreel/shared/db"
	"github.com/zapreel/zapreel/store"
)

const (
	// DefaultWaitBudget bounds step 4: how long the orchestrator waits for
	// the voice completion barrier before giving up.
	DefaultWaitBudget   = 300 * time.Second
	DefaultPollInterval = 5 * time.Second
)

type Config struct {
	QueueName string
	MockMode  bool

	ScreenshotURL string
	ImgWidth      int
	ImgHeight     int

	OutputDir     string
	BackgroundDir string

	FPS                  int
	StartBuffer          float64
	EndBuffer            float64
	PauseBetweenMessages float64
	MessagesPerGroup     int

	PollInterval time.Duration
	WaitBudget   time.Duration

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	DatabaseName     string
}

func LoadConfig() *Config {
	defaults := overlay.DefaultParams()
	return &Config{
		QueueName: config.GetEnv("CONSUMER_QUEUE_NAME", "video-generation-queue"),
		MockMode:  config.GetEnvBool("USE_MOCK_MODE", false),

		ScreenshotURL: config.GetEnv("SCREENSHOT_SERVICE_URL", "http://localhost:3001"),
		ImgWidth:      config.GetEnvInt("IMG_WIDTH", 450),
		ImgHeight:     config.GetEnvInt("IMG_HEIGHT", 800),

		OutputDir:     config.GetEnv("OUTPUT_DIR", "./output"),
		BackgroundDir: config.GetEnv("BACKGROUND_VIDEOS_DIR", "./backgrounds"),

		FPS:                  config.GetEnvInt("VIDEO_FPS", defaults.FPS),
		StartBuffer:          config.GetEnvFloat("START_BUFFER", defaults.StartBuffer),
		EndBuffer:            config.GetEnvFloat("END_BUFFER", defaults.EndBuffer),
		PauseBetweenMessages: config.GetEnvFloat("PAUSE_BETWEEN_MESSAGES", defaults.PauseBetweenMessages),
		MessagesPerGroup:     config.GetEnvInt("MESSAGES_PER_GROUP", defaults.MessagesPerGroup),

		PollInterval: config.GetEnvDuration("VOICE_POLL_INTERVAL", DefaultPollInterval),
		WaitBudget:   config.GetEnvDuration("VOICE_WAIT_BUDGET", DefaultWaitBudget),

		PostgresHost:     config.GetEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     config.GetEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:     config.GetEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: config.GetEnv("POSTGRES_PASSWORD", "postgres"),
		DatabaseName:     config.GetEnv("DATABASE_NAME", "zapreel"),
	}
}

// OverlayParams maps the orchestrator config onto frame-plan parameters.
func (c *Config) OverlayParams() overlay.Params {
	return overlay.Params{
		FPS:                  c.FPS,
		StartBuffer:          c.StartBuffer,
		EndBuffer:            c.EndBuffer,
		PauseBetweenMessages: c.PauseBetweenMessages,
		MessagesPerGroup:     c.MessagesPerGroup,
	}
}

// videoFixture drives a full run without a broker, mirroring the voice
// worker's mock message.
const videoFixture = `{
	"messages": [
		{"text": "Olá, sou o aluno Lucas!", "from_user": "aluno"},
		{"text": "Olá Lucas, sou a professora Marina!", "from_user": "professora"},
		{"text": "Como está indo com os estudos?", "from_user": "aluno"},
		{"text": "Muito bem! Continue assim!", "from_user": "professora"}
	],
	"participants": ["aluno", "professora"]
}`

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
		ServiceName: "zapreel-videogen",
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
	slog.Info("configuration",
		"queue", cfg.QueueName,
		"mock_mode", cfg.MockMode,
		"screenshot_url", cfg.ScreenshotURL,
		"output_dir", cfg.OutputDir,
		"background_dir", cfg.BackgroundDir,
		"fps", cfg.FPS,
		"wait_budget", cfg.WaitBudget,
		"postgres_host", cfg.PostgresHost,
		"database", cfg.DatabaseName,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := connectDB(ctx, cfg)
	if err != nil {
		slog.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var consumer queue.Consumer
	if cfg.MockMode {
		slog.Info("mock mode enabled, skipping broker")
		consumer = queue.NewMockConsumer(cfg.QueueName, []byte(videoFixture))
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

	req, err := ParseVideoRequest(body)
	if err != nil {
		// The message is acked and its queue deleted; a malformed request
		// must not be rescheduled by the runner.
		slog.Error("discarding malformed video request", "error", err)
		return
	}

	orch := NewOrchestrator(cfg,
		store.New(pool),
		queue.NewPublisher(queue.LoadBrokerConfig()),
		screenshot.New(cfg.ScreenshotURL),
		media.NewFFmpegMuxer(),
	)
	if err := orch.Run(ctx, req); err != nil {
		slog.Error("video generation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("video generation finished")
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
	fmt.Println(`Zapreel Video Orchestrator

Consumes one video request from its private queue, fans out voice synthesis,
waits for the completion barrier, renders the chat overlay frames, and muxes
the final video.

Environment Variables:
  Queue:
    CONSUMER_QUEUE_NAME    Private queue to drain (default: video-generation-queue)
    USE_MOCK_MODE          Use the built-in fixture instead of the broker (default: false)
    RABBITMQ_HOST/PORT/USER/PASSWORD/VHOST   Broker connection

  Collaborators:
    SCREENSHOT_SERVICE_URL Chat render service (default: http://localhost:3001)
    IMG_WIDTH, IMG_HEIGHT  Rendered viewport size (default: 450x800)
    BACKGROUND_VIDEOS_DIR  Folder of background clips (default: ./backgrounds)

  Timing:
    VIDEO_FPS              Frame rate (default: 30)
    START_BUFFER           Leading empty seconds (default: 1.0)
    END_BUFFER             Trailing empty seconds (default: 3.0)
    PAUSE_BETWEEN_MESSAGES Hold between reveals in seconds (default: 0.5)
    MESSAGES_PER_GROUP     Messages revealed per crop group (default: 4)
    VOICE_POLL_INTERVAL    Completion barrier poll interval (default: 5s)
    VOICE_WAIT_BUDGET      Maximum wait for voices (default: 300s)

  Database:
    POSTGRES_HOST/PORT/USER/PASSWORD, DATABASE_NAME

  Output:
    OUTPUT_DIR             Work and result directory (default: ./output)

Flags:
  -h, -help  Show this help message`)
}
