package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/zapreel/zapreel/domain"
	"github.com/zapreel/zapreel/media"
	"github.com/zapreel/zapreel/overlay"
	"github.com/zapreel/zapreel/pkg/otel"
	"github.com/zapreel/zapreel/screenshot"
	"github.com/zapreel/zapreel/store"
)

// VideoRequest is the orchestrator's inbound job: a finished transcript plus
// the participants and optional per-character voice keys. Transcript
// generation itself happens upstream.
type VideoRequest struct {
	VideoID      string               `json:"video_id,omitempty"`
	Messages     []domain.ChatMessage `json:"messages"`
	Participants []string             `json:"participants,omitempty"`
	VoiceMapping map[string]string    `json:"voice_mapping,omitempty"`
	OutputDir    string               `json:"output_dir,omitempty"`
}

// ParseVideoRequest decodes and validates one consumed message body.
func ParseVideoRequest(body json.RawMessage) (*VideoRequest, error) {
	var req VideoRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, domain.Protocolf("decode video request: %v", err)
	}
	if len(req.Messages) == 0 {
		return nil, domain.Protocolf("video request has an empty transcript")
	}
	if len(req.Participants) == 0 {
		req.Participants = participantsOf(req.Messages)
	}
	return &req, nil
}

func participantsOf(messages []domain.ChatMessage) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range messages {
		if m.FromUser != "" && !seen[m.FromUser] {
			seen[m.FromUser] = true
			out = append(out, m.FromUser)
		}
	}
	return out
}

// dispatcher hands a voice job to the job runner.
type dispatcher interface {
	DispatchVoiceJob(ctx context.Context, job *domain.VoiceJob, participants []string) (string, error)
}

// Orchestrator drives the full pipeline for exactly one video request.
type Orchestrator struct {
	cfg        *Config
	store      *store.Store
	dispatch   dispatcher
	screenshot *screenshot.Client
	muxer      media.Muxer

	// probeDuration and pickBackground are swappable for tests.
	probeDuration  func(path string) (float64, error)
	pickBackground func(dir string) (string, error)
}

func NewOrchestrator(cfg *Config, st *store.Store, d dispatcher, sc *screenshot.Client, muxer media.Muxer) *Orchestrator {
	return &Orchestrator{
		cfg:            cfg,
		store:          st,
		dispatch:       d,
		screenshot:     sc,
		muxer:          muxer,
		probeDuration:  media.WAVDuration,
		pickBackground: media.PickBackground,
	}
}

// Run executes the pipeline steps in order, aborting on the first failure.
func (o *Orchestrator) Run(ctx context.Context, req *VideoRequest) error {
	videoID := req.VideoID
	if videoID == "" {
		videoID = uuid.NewString()
	}

	ctx, span := otel.Tracer("zapreel-videogen").Start(ctx, "video.generate",
		trace.WithAttributes(otel.VideoID(videoID), otel.MessageCount(len(req.Messages))))
	defer span.End()

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(o.cfg.OutputDir, videoID)
	}

	slog.Info("starting video generation", "video_id", videoID, "messages", len(req.Messages), "participants", req.Participants)

	requestID, err := o.dispatch.DispatchVoiceJob(ctx, &domain.VoiceJob{
		VideoID:         videoID,
		Messages:        req.Messages,
		VoiceMapping:    req.VoiceMapping,
		UseVoiceCloning: true,
		OutputDir:       filepath.Join(outputDir, "audio"),
	}, req.Participants)
	if err != nil {
		return fmt.Errorf("dispatch voice job: %w", err)
	}
	slog.Info("voice job dispatched", "video_id", videoID, "request_id", requestID)

	if err := o.waitForVoices(ctx, videoID); err != nil {
		return err
	}

	audioPaths, err := o.store.CompletedAudioPaths(ctx, videoID)
	if err != nil {
		return fmt.Errorf("collect audio paths: %w", err)
	}
	if len(audioPaths) != len(req.Messages) {
		return domain.Protocolf("%d completed audio files for %d messages", len(audioPaths), len(req.Messages))
	}

	durations := make([]float64, len(audioPaths))
	for i, path := range audioPaths {
		d, err := o.probeDuration(path)
		if err != nil {
			return fmt.Errorf("probe audio %s: %w", path, err)
		}
		durations[i] = d
	}
	slog.Info("audio collected", "video_id", videoID, "files", len(audioPaths), "total_seconds", sum(durations))

	if !o.screenshot.Health(ctx) {
		return fmt.Errorf("%w: screenshot service failed its health check", domain.ErrTransportUnavailable)
	}

	shot, err := o.screenshot.Generate(ctx, screenshot.Request{
		Messages:     req.Messages,
		Participants: req.Participants,
		OutputDir:    filepath.Join(outputDir, "screenshots"),
		ImgSize:      []int{o.cfg.ImgWidth, o.cfg.ImgHeight},
	})
	if err != nil {
		return fmt.Errorf("generate screenshots: %w", err)
	}

	artifact := shot.Artifact()
	img, err := overlay.LoadScreenshot(artifact.ImagePath)
	if err != nil {
		return err
	}
	art := overlay.Preprocess(img, artifact.Coordinates)

	framesDir := filepath.Join(outputDir, "frames")
	engine := overlay.NewEngine(art, o.cfg.OverlayParams())
	frames, err := engine.Generate(ctx, durations, framesDir)
	if err != nil {
		return fmt.Errorf("generate frames: %w", err)
	}
	span.SetAttributes(otel.FrameCount(frames))

	background, err := o.pickBackground(o.cfg.BackgroundDir)
	if err != nil {
		return fmt.Errorf("pick background video: %w", err)
	}

	outputPath := filepath.Join(outputDir, videoID+".mp4")
	if err := o.muxer.Mux(ctx, media.MuxRequest{
		FrameDir:        framesDir,
		FPS:             o.cfg.FPS,
		AudioFiles:      audioPaths,
		BackgroundVideo: background,
		OutputPath:      outputPath,
	}); err != nil {
		return fmt.Errorf("mux video: %w", err)
	}

	slog.Info("video generated", "video_id", videoID, "frames", frames, "output", outputPath)
	return nil
}

// waitForVoices polls the completion barrier. It aborts as soon as any row
// fails, and gives up after the wait budget elapses.
func (o *Orchestrator) waitForVoices(ctx context.Context, videoID string) error {
	deadline := time.Now().Add(o.cfg.WaitBudget)
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := o.store.StatusForVideo(ctx, videoID)
		if err != nil {
			return fmt.Errorf("poll voice status: %w", err)
		}

		if status.Failed > 0 {
			return o.failedRowsError(ctx, videoID, status)
		}
		if status.AllCompleted() {
			slog.Info("voice completion barrier reached", "video_id", videoID, "total", status.Total)
			return nil
		}

		slog.Debug("waiting for voices", "video_id", videoID,
			"completed", status.Completed, "pending", status.Pending, "total", status.Total)

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %d of %d voices completed after %s",
				domain.ErrWaitTimeout, status.Completed, status.Total, o.cfg.WaitBudget)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) failedRowsError(ctx context.Context, videoID string, status domain.VideoVoiceStatus) error {
	failed, err := o.store.FailedVoices(ctx, videoID)
	if err != nil {
		return fmt.Errorf("voice synthesis failed for %d of %d rows", status.Failed, status.Total)
	}

	reasons := make([]string, 0, len(failed))
	for _, row := range failed {
		msg := "unknown error"
		if row.ErrorMessage != nil {
			msg = *row.ErrorMessage
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", row.CharacterName, msg))
	}
	return fmt.Errorf("voice synthesis failed for %d of %d rows: %s",
		status.Failed, status.Total, strings.Join(reasons, "; "))
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}
