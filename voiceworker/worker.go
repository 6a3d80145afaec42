package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zapreel/zapreel/domain"
	"github.com/zapreel/zapreel/pkg/otel"
	"github.com/zapreel/zapreel/queue"
	"github.com/zapreel/zapreel/storage"
	"github.com/zapreel/zapreel/store"
)

// Worker turns one VoiceJob into N completed voices rows with uploaded audio.
type Worker struct {
	cfg     *Config
	store   *store.Store
	storage *storage.Client
	synth   Synthesizer
}

func NewWorker(cfg *Config, st *store.Store, sc *storage.Client, synth Synthesizer) *Worker {
	return &Worker{cfg: cfg, store: st, storage: sc, synth: synth}
}

// HandleMessage routes one consumed message body. Protocol errors are fatal
// for the message, not recoverable; they surface as errors so main can exit
// non-zero after the queue was already drained and deleted.
func (w *Worker) HandleMessage(ctx context.Context, body json.RawMessage) error {
	job, err := queue.ParseJob(body)
	if err != nil {
		return err
	}

	switch job.Kind {
	case queue.KindVoiceCloning:
		return w.RunVoiceJob(ctx, job.Voice)
	case queue.KindSingle:
		return w.runSingle(ctx, job.Single)
	case queue.KindBatch:
		return w.runBatch(ctx, job.Batch)
	default:
		return domain.Protocolf("unhandled job kind %q", job.Kind)
	}
}

// RunVoiceJob creates one voices row per message, then drives the pending
// sweep until the video either completes or records a failed row. A failed
// row is a controlled outcome: it is persisted for the orchestrator to see
// and does not make this process exit non-zero.
func (w *Worker) RunVoiceJob(ctx context.Context, job *domain.VoiceJob) error {
	if job.VideoID == "" || len(job.Messages) == 0 {
		return domain.Protocolf("voice job missing video_id or messages")
	}

	slog.Info("processing voice job", "video_id", job.VideoID, "messages", len(job.Messages), "voice_cloning", job.UseVoiceCloning)

	for i, msg := range job.Messages {
		voiceID, err := w.store.CreateVoice(ctx, job.VideoID, msg.FromUser, msg.Text, nil)
		if err != nil {
			return fmt.Errorf("create voice row %d: %w", i, err)
		}
		slog.Debug("voice row created", "voice_id", voiceID, "character", msg.FromUser, "index", i)
	}

	outputDir := job.OutputDir
	if outputDir == "" {
		outputDir = w.cfg.OutputDir
	}

	for {
		processed, err := w.sweepPending(ctx, job.VideoID, job.VoiceMapping, outputDir)
		if err != nil {
			return err
		}

		status, err := w.store.StatusForVideo(ctx, job.VideoID)
		if err != nil {
			return fmt.Errorf("status for video %s: %w", job.VideoID, err)
		}
		if status.AllCompleted() {
			slog.Info("all voices completed", "video_id", job.VideoID, "total", status.Total)
			return nil
		}
		if status.Failed > 0 {
			slog.Warn("voice job finished with failed rows", "video_id", job.VideoID, "failed", status.Failed, "completed", status.Completed)
			return nil
		}
		if processed == 0 {
			// Nothing pending is ours; another worker holds the
			// remaining rows. Leave them alone.
			slog.Info("no claimable rows remain", "video_id", job.VideoID, "pending", status.Pending)
			return nil
		}
	}
}

// sweepPending claims and processes every pending row of the given video.
// With videoID empty (database mode) it processes all pending rows. Returns
// the number of rows this worker claimed.
func (w *Worker) sweepPending(ctx context.Context, videoID string, jobMapping map[string]string, outputDir string) (int, error) {
	rows, err := w.store.PendingVoices(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch pending voices: %w", err)
	}

	limit := w.cfg.SynthesisConcurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	claimed := 0
	var claimErr error
	for _, row := range rows {
		if videoID != "" && row.VideoID != videoID {
			continue
		}

		ok, err := w.store.ClaimVoice(ctx, row.ID)
		if err != nil {
			// Rows already claimed must reach a terminal state before the
			// sweep returns; stop claiming and drain the pool first.
			claimErr = fmt.Errorf("claim voice %s: %w", row.ID, err)
			break
		}
		if !ok {
			continue
		}
		claimed++

		row := row
		g.Go(func() error {
			return w.processClaimedRow(gctx, row, jobMapping, outputDir)
		})
	}

	if err := g.Wait(); err != nil {
		return claimed, err
	}
	return claimed, claimErr
}

// processClaimedRow synthesizes, uploads, and completes one owned row.
// Synthesis and mapping failures are recorded on the row and do not abort
// the sweep; only infrastructure errors (DB unreachable) propagate.
func (w *Worker) processClaimedRow(ctx context.Context, row *domain.VoiceRow, jobMapping map[string]string, outputDir string) error {
	ctx, span := otel.Tracer("zapreel-voiceworker").Start(ctx, "voice.process",
		trace.WithAttributes(otel.VoiceID(row.ID), otel.VideoID(row.VideoID), otel.Character(row.CharacterName)))
	defer span.End()

	reference, err := w.resolveReference(ctx, row, jobMapping)
	if err != nil {
		var synthErr *domain.SynthesisError
		if errors.As(err, &synthErr) || domain.IsProtocolError(err) {
			return w.store.FailVoice(ctx, row.ID, err.Error())
		}
		return err
	}

	text := CleanText(row.TextContent, w.cfg.MaxTextLength)
	audioPath := filepath.Join(outputDir, fmt.Sprintf("voice_%s.wav", row.ID))

	if err := w.synth.SynthesizeToFile(ctx, text, reference, audioPath); err != nil {
		slog.Error("synthesis failed", "voice_id", row.ID, "character", row.CharacterName, "error", err)
		return w.store.FailVoice(ctx, row.ID, err.Error())
	}

	isLocal := true
	var remotePath *string
	if !w.cfg.LocalStorage {
		key := fmt.Sprintf("%s/%s", row.VideoID, filepath.Base(audioPath))
		remote, err := w.storage.Upload(ctx, audioPath, key, "")
		if err != nil {
			// Upload failure is recoverable: the audio exists locally
			// and the mux step can read it from disk.
			slog.Warn("upload failed, keeping local audio", "voice_id", row.ID, "error", err)
		} else {
			isLocal = false
			remotePath = &remote
		}
	}

	if err := w.store.CompleteVoice(ctx, row.ID, audioPath, isLocal, remotePath); err != nil {
		return fmt.Errorf("complete voice %s: %w", row.ID, err)
	}
	slog.Info("voice completed", "voice_id", row.ID, "character", row.CharacterName, "local", isLocal)
	return nil
}

// resolveReference picks the reference voice sample for a row: the job's
// explicit per-character mapping wins, then the row's joined mapping, then
// the database default. Storage keys are materialized to a local file first.
func (w *Worker) resolveReference(ctx context.Context, row *domain.VoiceRow, jobMapping map[string]string) (string, error) {
	var reference string
	switch {
	case jobMapping[row.CharacterName] != "":
		reference = jobMapping[row.CharacterName]
	case row.MappingVoiceFile != "":
		reference = row.MappingVoiceFile
	default:
		mapping, err := w.store.DefaultMapping(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return "", &domain.SynthesisError{Message: "no voice mapping available"}
			}
			return "", fmt.Errorf("resolve default mapping: %w", err)
		}
		reference = mapping.VoiceFile
	}

	if _, err := os.Stat(reference); err == nil {
		return reference, nil
	}

	// Not a local file; treat it as a "bucket/key" blob reference.
	bucket, key, ok := strings.Cut(reference, "/")
	if !ok {
		return "", &domain.SynthesisError{Message: fmt.Sprintf("voice reference %q is neither a file nor a blob key", reference)}
	}
	local := filepath.Join(os.TempDir(), "zapreel-voices", filepath.Base(key))
	if err := w.storage.Download(ctx, key, bucket, local); err != nil {
		return "", &domain.SynthesisError{Message: fmt.Sprintf("fetch reference voice %s: %v", reference, err)}
	}
	return local, nil
}

// runSingle synthesizes one text to one file with no database tracking.
func (w *Worker) runSingle(ctx context.Context, req *queue.SingleRequest) error {
	if req.Text == "" {
		return domain.Protocolf("single request has empty text")
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = w.cfg.OutputDir
	}
	filename := req.OutputFilename
	if filename == "" {
		filename = fmt.Sprintf("single_%d.wav", time.Now().Unix())
	}

	reference := req.VoiceFile
	if reference == "" {
		mapping, err := w.store.DefaultMapping(ctx)
		if err != nil {
			return fmt.Errorf("resolve default mapping: %w", err)
		}
		reference = mapping.VoiceFile
	}

	text := CleanText(req.Text, w.cfg.MaxTextLength)
	return w.synth.SynthesizeToFile(ctx, text, reference, filepath.Join(outputDir, filename))
}

// runBatch synthesizes N texts with no database tracking. Per-message
// failures are logged and skipped; the batch fails only if nothing succeeds.
func (w *Worker) runBatch(ctx context.Context, req *queue.BatchRequest) error {
	if len(req.Messages) == 0 {
		return domain.Protocolf("batch request has no messages")
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = w.cfg.OutputDir
	}

	succeeded := 0
	for i, msg := range req.Messages {
		reference := req.VoiceMapping[msg.FromUser]
		if reference == "" {
			mapping, err := w.store.DefaultMapping(ctx)
			if err != nil {
				slog.Error("no voice for batch message", "index", i, "character", msg.FromUser, "error", err)
				continue
			}
			reference = mapping.VoiceFile
		}

		text := CleanText(msg.Text, w.cfg.MaxTextLength)
		audioPath := filepath.Join(outputDir, fmt.Sprintf("msg_%d.wav", i))
		if err := w.synth.SynthesizeToFile(ctx, text, reference, audioPath); err != nil {
			slog.Error("batch synthesis failed", "index", i, "error", err)
			continue
		}
		succeeded++
	}

	if succeeded == 0 {
		return fmt.Errorf("batch: all %d messages failed", len(req.Messages))
	}
	slog.Info("batch complete", "succeeded", succeeded, "total", len(req.Messages))
	return nil
}
