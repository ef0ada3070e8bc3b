// Package detect is an HTTP client for the plate detection and OCR service.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/camera"
)

// maxResponseBody caps what we read back from the service.
const maxResponseBody = 1 << 20

type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type Result struct {
	Plate      string  `json:"plate,omitempty"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

type DetectResponse struct {
	ProcessingTime float64  `json:"processing_time_ms"`
	Results        []Result `json:"results"`
}

type OCRResponse struct {
	DetectedPlate string  `json:"detected_plate"`
	Confidence    float64 `json:"confidence,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
}

// Client implements camera.Detector against the service at BaseURL.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

var _ camera.Detector = (*Client)(nil)

func (c *Client) Detect(ctx context.Context, frame image.Image) ([]camera.Detection, error) {
	var resp DetectResponse
	if err := c.post(ctx, "/v1/detect", frame, &resp); err != nil {
		return nil, err
	}

	// Boxes come back relative to the frame origin; frames may not start at 0,0.
	origin := frame.Bounds().Min
	out := make([]camera.Detection, 0, len(resp.Results))
	for _, r := range resp.Results {
		box := image.Rect(r.Box.X, r.Box.Y, r.Box.X+r.Box.W, r.Box.Y+r.Box.H).Add(origin)
		out = append(out, camera.Detection{
			Box:        box,
			Confidence: r.Confidence,
			Text:       r.Plate,
		})
	}
	return out, nil
}

func (c *Client) ReadText(ctx context.Context, region image.Image) (string, error) {
	var resp OCRResponse
	if err := c.post(ctx, "/v1/ocr", region, &resp); err != nil {
		return "", err
	}
	if resp.ErrorMessage != "" {
		return "", fmt.Errorf("detect: ocr: %s", resp.ErrorMessage)
	}
	return strings.TrimSpace(resp.DetectedPlate), nil
}

func (c *Client) post(ctx context.Context, path string, img image.Image, out any) error {
	var body bytes.Buffer
	if err := jpeg.Encode(&body, img, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("detect: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("detect: build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("detect: %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("detect: read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detect: %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("detect: decode %s: %w", path, err)
	}
	return nil
}
