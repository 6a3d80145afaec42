// Package screenshot talks to the chat-rendering service that turns a
// transcript into progressive chat images plus per-message coordinates.
package screenshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/zapreel/zapreel/domain"
	"github.com/zapreel/zapreel/shared/config"
	"github.com/zapreel/zapreel/shared/httpclient"
)

type Client struct {
	baseURL string
	client  *http.Client
	probe   *http.Client
}

func NewFromEnv() *Client {
	return New(config.GetEnv("SCREENSHOT_SERVICE_URL", "http://localhost:3001"))
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// Rendering a long conversation takes a while; the probe stays short.
		client: httpclient.New(httpclient.WithTimeout(httpclient.TimeoutScreenshot)),
		probe:  httpclient.NewShort(),
	}
}

// Request is the render request. ImgSize is the rendered viewport as
// [width, height].
type Request struct {
	Messages     []domain.ChatMessage `json:"messages"`
	Participants []string             `json:"participants"`
	OutputDir    string               `json:"outputDir,omitempty"`
	ImgSize      []int                `json:"img_size,omitempty"`
}

// Result carries the final screenshot and the coordinate list. The service
// renders one cumulative image per message; only the last image and the
// coordinates matter to the overlay engine.
type Result struct {
	ImagePaths  []string
	ImageURLs   []string
	Coordinates []domain.MessageCoordinate
}

// FinalImagePath returns the path of the complete-conversation screenshot.
func (r *Result) FinalImagePath() string {
	if len(r.ImagePaths) == 0 {
		return ""
	}
	return r.ImagePaths[len(r.ImagePaths)-1]
}

// Artifact reduces the result to what the overlay pipeline consumes.
func (r *Result) Artifact() domain.ScreenshotArtifact {
	return domain.ScreenshotArtifact{
		ImagePath:   r.FinalImagePath(),
		Coordinates: r.Coordinates,
	}
}

type generateResponse struct {
	Success            bool                       `json:"success"`
	Error              string                     `json:"error"`
	ImagePaths         []string                   `json:"imagePaths"`
	ImageURLs          []string                   `json:"imageUrls"`
	MessageCoordinates []domain.MessageCoordinate `json:"messageCoordinates"`
}

// Generate renders the conversation. It refuses responses whose coordinate
// count does not match the message count: the overlay engine pairs them 1:1
// and a mismatch means the render is unusable.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	if len(req.Messages) == 0 {
		return nil, domain.Protocolf("screenshot request has no messages")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal screenshot request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate-screenshots", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create screenshot request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot service: %v", domain.ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, &domain.RemoteError{Status: resp.StatusCode, Body: string(errBody)}
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode screenshot response: %w", err)
	}
	if !decoded.Success {
		return nil, fmt.Errorf("screenshot service reported failure: %s", decoded.Error)
	}
	if len(decoded.MessageCoordinates) != len(req.Messages) {
		return nil, domain.Protocolf("screenshot service returned %d coordinates for %d messages",
			len(decoded.MessageCoordinates), len(req.Messages))
	}
	if len(decoded.ImagePaths) == 0 {
		return nil, domain.Protocolf("screenshot service returned no images")
	}

	slog.Info("screenshots generated", "images", len(decoded.ImagePaths), "coordinates", len(decoded.MessageCoordinates))
	return &Result{
		ImagePaths:  decoded.ImagePaths,
		ImageURLs:   decoded.ImageURLs,
		Coordinates: decoded.MessageCoordinates,
	}, nil
}

// Health reports whether the render service answers its liveness endpoint.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.probe.Do(req)
	if err != nil {
		slog.Error("screenshot health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
