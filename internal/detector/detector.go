// Package detector is a client for the face detection and embedding server.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const defaultDetectorURL = "http://localhost:8000"

// Client detects faces and computes their embeddings using the embedding server
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new detector client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}

// ComputeFaceEmbeddings posts an encoded image to /embed/face and returns the raw response
func (c *Client) ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

// DetectBytes detects faces in an already encoded image.
// Faces with a malformed bbox or an empty embedding are skipped.
func (c *Client) DetectBytes(ctx context.Context, imageData []byte) ([]Detection, error) {
	resp, err := c.ComputeFaceEmbeddings(ctx, imageData)
	if err != nil {
		return nil, err
	}

	detections := make([]Detection, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if len(f.BBox) != 4 || len(f.Embedding) == 0 {
			continue
		}
		detections = append(detections, Detection{
			Box:       bboxToRect(f.BBox),
			Embedding: f.Embedding,
			Landmarks: f.Landmarks,
			Score:     f.DetScore,
		})
	}
	return detections, nil
}

// Detect encodes the frame as JPEG and detects faces in it.
// A frame without faces yields an empty slice, not an error.
func (c *Client) Detect(ctx context.Context, frame image.Image) ([]Detection, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return c.DetectBytes(ctx, buf.Bytes())
}

// bboxToRect converts a [x1, y1, x2, y2] pixel bbox to a rectangle, rounding outward.
func bboxToRect(bbox []float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(bbox[0])),
		int(math.Floor(bbox[1])),
		int(math.Ceil(bbox[2])),
		int(math.Ceil(bbox[3])),
	)
}
