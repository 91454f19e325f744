package detector

import (
	"context"
	"image"
	"image/color"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	c := NewClient("http://detector:8000/", time.Second)
	c.client.Transport = transport
	return c, transport
}

func grayFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.Gray{Y: 128})
		}
	}
	return img
}

func TestDetect_ParsesFaces(t *testing.T) {
	c, transport := newMockedClient(t)

	transport.RegisterResponder(http.MethodPost, "http://detector:8000/embed/face",
		func(req *http.Request) (*http.Response, error) {
			assert.True(t, strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data"))
			file, header, err := req.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "image.jpg", header.Filename)
			assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))

			return httpmock.NewStringResponse(http.StatusOK, `{
				"faces_count": 3,
				"model": "buffalo_l",
				"faces": [
					{"face_index": 0, "dim": 3, "embedding": [0.1, 0.2, 0.3], "bbox": [10.4, 20.6, 110.2, 140.9], "det_score": 0.91},
					{"face_index": 1, "dim": 3, "embedding": [], "bbox": [0, 0, 5, 5], "det_score": 0.5},
					{"face_index": 2, "dim": 3, "embedding": [0.4, 0.5, 0.6], "bbox": [1, 2, 3], "det_score": 0.7}
				]
			}`), nil
		})

	dets, err := c.Detect(context.Background(), grayFrame(64, 48))
	require.NoError(t, err)
	require.Len(t, dets, 1, "faces without embedding or with malformed bbox are dropped")

	assert.Equal(t, image.Rect(10, 20, 111, 141), dets[0].Box)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, dets[0].Embedding)
	assert.InDelta(t, 0.91, dets[0].Score, 1e-9)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestDetect_NoFaces(t *testing.T) {
	c, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodPost, "http://detector:8000/embed/face",
		httpmock.NewStringResponder(http.StatusOK, `{"faces_count": 0, "faces": [], "model": "buffalo_l"}`))

	dets, err := c.Detect(context.Background(), grayFrame(16, 16))
	require.NoError(t, err)
	assert.NotNil(t, dets)
	assert.Empty(t, dets)
}

func TestDetect_ServerError(t *testing.T) {
	c, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodPost, "http://detector:8000/embed/face",
		httpmock.NewStringResponder(http.StatusInternalServerError, "model not loaded"))

	_, err := c.Detect(context.Background(), grayFrame(16, 16))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestDetect_InvalidJSON(t *testing.T) {
	c, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodPost, "http://detector:8000/embed/face",
		httpmock.NewStringResponder(http.StatusOK, "not json"))

	_, err := c.DetectBytes(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"short", []byte{0xFF}, "application/octet-stream"},
		{"unknown", []byte("plain text data"), "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectMIMEType(tt.data))
		})
	}
}
