package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zapreel/zapreel/domain"
	"github.com/zapreel/zapreel/pkg/otel"
	"github.com/zapreel/zapreel/shared/httpclient"
)

// Synthesizer turns one cleaned text plus a reference voice sample into a
// waveform file at outputPath.
type Synthesizer interface {
	SynthesizeToFile(ctx context.Context, text, referenceVoice, outputPath string) error
}

// HTTPSynthesizer calls the voice-cloning TTS service.
type HTTPSynthesizer struct {
	cfg    *Config
	client *http.Client
}

type synthesizeRequest struct {
	Text         string  `json:"text"`
	ReferenceWAV string  `json:"reference_wav,omitempty"`
	Language     string  `json:"language,omitempty"`
	Speed        float64 `json:"speed,omitempty"`
}

func NewHTTPSynthesizer(cfg *Config) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		cfg: cfg,
		// Cloning synthesis on a cold model can take minutes.
		client: httpclient.New(httpclient.WithTimeout(5 * time.Minute)),
	}
}

func (s *HTTPSynthesizer) SynthesizeToFile(ctx context.Context, text, referenceVoice, outputPath string) error {
	if text == "" {
		return &domain.SynthesisError{Message: "empty text after cleanup"}
	}

	ctx, span := otel.Tracer("zapreel-voiceworker").Start(ctx, "tts.synthesize",
		trace.WithAttributes(
			attribute.Int("text.length", len(text)),
			otel.TTSVoiceFile(referenceVoice),
			attribute.String("tts.url", s.cfg.TTSURL),
			attribute.String("tts.language", s.cfg.Language),
			attribute.Float64("tts.speed", s.cfg.Speed),
		))
	defer span.End()

	speed := s.cfg.Speed
	if speed <= 0 {
		speed = 1.0
	}
	body, err := json.Marshal(synthesizeRequest{
		Text:         text,
		ReferenceWAV: referenceVoice,
		Language:     s.cfg.Language,
		Speed:        speed,
	})
	if err != nil {
		return fmt.Errorf("marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TTSURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "TTS request failed")
		return &domain.SynthesisError{Message: fmt.Sprintf("tts request: %v", err)}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		span.SetStatus(codes.Error, "TTS returned error")
		return &domain.SynthesisError{Message: fmt.Sprintf("tts status %d: %s", resp.StatusCode, truncate(string(errBody), 200))}
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audio dir: %w", err)
		}
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}
	if written == 0 {
		return &domain.SynthesisError{Message: "tts returned empty audio"}
	}

	elapsed := time.Since(startTime)
	slog.Info("synthesis complete", "audio_bytes", written, "latency", elapsed, "output", outputPath, "preview", truncate(text, 50))
	span.SetAttributes(
		attribute.Int64("audio.bytes", written),
		otel.TTSLatencyMs(elapsed.Milliseconds()),
	)
	span.SetStatus(codes.Ok, "synthesis successful")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
