package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/trace"

	"github.com/zapreel/zapreel/domain"
	"github.com/zapreel/zapreel/pkg/otel"
	"github.com/zapreel/zapreel/shared/id"
	"github.com/zapreel/zapreel/shared/jsonutil"
)

// JobRunnerQueue is the durable queue the job runner consumes dispatch
// requests from. The runner creates the worker's private queue, forwards
// the payload there, and launches the worker process.
const JobRunnerQueue = "jobber-requests"

// RunnerRequest is the envelope the job runner expects.
type RunnerRequest struct {
	ID              string               `json:"id"`
	Type            string               `json:"type"`
	VideoID         string               `json:"video_id"`
	Messages        []domain.ChatMessage `json:"messages"`
	Participants    []string             `json:"participants,omitempty"`
	VoiceMapping    map[string]string    `json:"voice_mapping,omitempty"`
	UseVoiceCloning bool                 `json:"use_voice_cloning"`
	OutputDir       string               `json:"output_dir,omitempty"`
	Timestamp       string               `json:"timestamp"`
}

// Publisher hands work off to the job runner. The orchestrator never
// publishes to a worker's private queue directly.
type Publisher struct {
	cfg BrokerConfig
}

func NewPublisher(cfg BrokerConfig) *Publisher {
	return &Publisher{cfg: cfg}
}

// DispatchVoiceJob publishes a voice-cloning job request to the runner
// queue and returns the request id.
func (p *Publisher) DispatchVoiceJob(ctx context.Context, job *domain.VoiceJob, participants []string) (string, error) {
	requestID := id.NewJob()
	ctx, span := otel.Tracer("zapreel-queue").Start(ctx, "queue.dispatch",
		trace.WithAttributes(otel.JobID(requestID), otel.QueueName(JobRunnerQueue), otel.VideoID(job.VideoID)))
	defer span.End()

	req := RunnerRequest{
		ID:              requestID,
		Type:            string(KindVoiceCloning),
		VideoID:         job.VideoID,
		Messages:        job.Messages,
		Participants:    participants,
		VoiceMapping:    job.VoiceMapping,
		UseVoiceCloning: job.UseVoiceCloning,
		OutputDir:       job.OutputDir,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal runner request: %w", err)
	}
	slog.Debug("runner request payload", "payload", jsonutil.MustJSON(req))

	conn, err := amqp.Dial(p.cfg.url())
	if err != nil {
		return "", fmt.Errorf("%w: broker %s:%d: %v", domain.ErrTransportUnavailable, p.cfg.Host, p.cfg.Port, err)
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		return "", fmt.Errorf("%w: open channel: %v", domain.ErrTransportUnavailable, err)
	}
	defer channel.Close()

	if _, err := channel.QueueDeclare(JobRunnerQueue, true, false, false, false, nil); err != nil {
		return "", fmt.Errorf("declare runner queue: %w", err)
	}

	err = channel.PublishWithContext(ctx, "", JobRunnerQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return "", fmt.Errorf("publish runner request: %w", err)
	}

	slog.Info("dispatched voice job to runner", "request_id", req.ID, "video_id", job.VideoID, "messages", len(job.Messages))
	return req.ID, nil
}
