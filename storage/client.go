// Package storage is the client for the HTTP object store that holds
// generated audio, reference voices, and screenshots.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/trace"

	"github.com/zapreel/zapreel/domain"
	"github.com/zapreel/zapreel/pkg/otel"
	"github.com/zapreel/zapreel/shared/config"
	"github.com/zapreel/zapreel/shared/httpclient"
)

// DefaultBucket is where voice artifacts live unless overridden.
const DefaultBucket = "voice-cloning"

type Client struct {
	baseURL string
	bucket  string
	client  *http.Client
	probe   *http.Client
}

// NewFromEnv builds a client from LOCAL_STORAGE_URL / VOICE_STORAGE_BUCKET.
func NewFromEnv() *Client {
	return New(
		config.GetEnv("LOCAL_STORAGE_URL", "http://localhost:8880"),
		config.GetEnv("VOICE_STORAGE_BUCKET", DefaultBucket),
	)
}

func New(baseURL, bucket string) *Client {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Client{
		baseURL: baseURL,
		bucket:  bucket,
		client:  httpclient.New(),
		probe:   httpclient.NewShort(),
	}
}

func (c *Client) Bucket() string {
	return c.bucket
}

// Upload sends a local file to the store as a multipart form and returns the
// canonical "{bucket}/{key}" identifier. An empty key defaults to the file's
// base name; an empty bucket defaults to the client's bucket.
func (c *Client) Upload(ctx context.Context, filePath, key, bucket string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	if key == "" {
		key = filepath.Base(filePath)
	}
	if bucket == "" {
		bucket = c.bucket
	}

	ctx, span := otel.Tracer("zapreel-storage").Start(ctx, "storage.upload",
		trace.WithAttributes(otel.StorageBucket(bucket), otel.StorageKey(key)))
	defer span.End()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("bucket", bucket); err != nil {
		return "", fmt.Errorf("write bucket field: %w", err)
	}
	if err := writer.WriteField("key", key); err != nil {
		return "", fmt.Errorf("write key field: %w", err)
	}
	part, err := writer.CreateFormFile("file", key)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: storage upload: %v", domain.ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: %s", domain.ErrUploadFailed,
			(&domain.RemoteError{Status: resp.StatusCode, Body: string(errBody)}).Error())
	}

	slog.Info("file uploaded", "key", key, "bucket", bucket)
	return bucket + "/" + key, nil
}

// Download fetches a blob and writes it to outputPath, creating parent
// directories as needed.
func (c *Client) Download(ctx context.Context, key, bucket, outputPath string) error {
	if bucket == "" {
		bucket = c.bucket
	}

	endpoint := fmt.Sprintf("%s/download/%s?bucket=%s", c.baseURL, url.PathEscape(key), url.QueryEscape(bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: storage download: %v", domain.ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return &domain.RemoteError{Status: resp.StatusCode, Body: string(errBody)}
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create download dir: %w", err)
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write download body: %w", err)
	}

	slog.Debug("file downloaded", "key", key, "bucket", bucket, "path", outputPath)
	return nil
}

// Delete removes a blob. Returns nil on 200.
func (c *Client) Delete(ctx context.Context, key, bucket string) error {
	if bucket == "" {
		bucket = c.bucket
	}

	endpoint := fmt.Sprintf("%s/delete/%s?bucket=%s", c.baseURL, url.PathEscape(key), url.QueryEscape(bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: storage delete: %v", domain.ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return &domain.RemoteError{Status: resp.StatusCode, Body: string(errBody)}
	}
	return nil
}

// Info fetches blob metadata as a loose map; the store's schema is not ours
// to pin down.
func (c *Client) Info(ctx context.Context, key, bucket string) (map[string]any, error) {
	if bucket == "" {
		bucket = c.bucket
	}

	endpoint := fmt.Sprintf("%s/info/%s?bucket=%s", c.baseURL, url.PathEscape(key), url.QueryEscape(bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create info request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: storage info: %v", domain.ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, &domain.RemoteError{Status: resp.StatusCode, Body: string(errBody)}
	}

	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode info response: %w", err)
	}
	return info, nil
}

// Health reports whether the store answers its liveness endpoint.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.probe.Do(req)
	if err != nil {
		slog.Error("storage health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
