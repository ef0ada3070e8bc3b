package detect_test

import (
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Parkgate/server/internal/detect"
)

func newService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/detect", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "image/jpeg" {
			http.Error(w, "want jpeg", http.StatusUnsupportedMediaType)
			return
		}
		if _, err := jpeg.Decode(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(detect.DetectResponse{Results: []detect.Result{
			{Confidence: 0.91, Box: detect.Box{X: 10, Y: 20, W: 100, H: 40}},
		}})
	})
	mux.HandleFunc("POST /v1/ocr", func(w http.ResponseWriter, r *http.Request) {
		img, err := jpeg.Decode(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if img.Bounds().Dx() < 10 {
			_ = json.NewEncoder(w).Encode(detect.OCRResponse{ErrorMessage: "region too small"})
			return
		}
		_ = json.NewEncoder(w).Encode(detect.OCRResponse{DetectedPlate: " 30A-12345\n", Confidence: 0.8})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_Detect(t *testing.T) {
	ts := newService(t)
	c := detect.NewClient(ts.URL+"/", 0)

	frame := image.NewRGBA(image.Rect(0, 0, 320, 240))
	dets, err := c.Detect(context.Background(), frame)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, image.Rect(10, 20, 110, 60), dets[0].Box)
	assert.InDelta(t, 0.91, dets[0].Confidence, 1e-9)
}

func TestClient_ReadText(t *testing.T) {
	ts := newService(t)
	c := detect.NewClient(ts.URL, 0)

	text, err := c.ReadText(context.Background(), image.NewRGBA(image.Rect(0, 0, 100, 40)))
	require.NoError(t, err)
	assert.Equal(t, "30A-12345", text)

	_, err = c.ReadText(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.ErrorContains(t, err, "region too small")
}

func TestClient_ServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := detect.NewClient(ts.URL, 0)
	_, err := c.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.ErrorContains(t, err, "status 503")
}
