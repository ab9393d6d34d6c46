package api

import (
	"bytes"
	"errors"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"watch-tryon/internal/store"
	"watch-tryon/internal/tryon"
)

// jpegMagic is enough to satisfy the upload sniffing; the stub pipeline
// never decodes it.
var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}

// stubTryOn is a canned TryOnService.
type stubTryOn struct {
	err    error
	wrists []tryon.WristInfo
}

func (s *stubTryOn) TryOn(handBytes, watchBytes []byte) (*tryon.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &tryon.Result{
		Composite: gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3),
		Original:  gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3),
		Wrists:    s.wrists,
	}, nil
}

func (s *stubTryOn) ExtractHand(handBytes []byte) (*tryon.HandInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &tryon.HandInfo{Wrists: s.wrists, Width: 10, Height: 10}, nil
}

func (s *stubTryOn) ExtractWatch(watchBytes []byte) (*tryon.WatchInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &tryon.WatchInfo{
		Coverage: 0.4,
		MaskArea: 40,
		Bounds:   image.Rect(1, 2, 8, 9),
		Width:    10,
		Height:   10,
	}, nil
}

// multipartRequest builds a multipart POST with the given file fields and
// form values.
func multipartRequest(t *testing.T, path string, files map[string][]byte, values map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for field, data := range files {
		part, err := writer.CreateFormFile(field, field+".jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(data)
	}
	for field, value := range values {
		writer.WriteField(field, value)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestTryOnHandler_TryOn(t *testing.T) {
	s := newTestStore(t)
	stub := &stubTryOn{wrists: []tryon.WristInfo{
		{Position: image.Pt(100, 141), WearAngle: 12.5},
	}}
	h := NewTryOnHandler(stub, s, t.TempDir())

	t.Run("success with uploaded watch", func(t *testing.T) {
		req := multipartRequest(t, "/api/try-on", map[string][]byte{
			"hand_image":  jpegMagic,
			"watch_image": jpegMagic,
		}, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp tryOnResponse
		decodeBody(t, rec, &resp)
		if resp.SessionID == "" {
			t.Error("expected a session id")
		}
		if !strings.HasPrefix(resp.Image, "data:image/jpeg;base64,") {
			t.Errorf("expected a data URL, got %.40s", resp.Image)
		}
		if len(resp.Wrists) != 1 || resp.Wrists[0].X != 100 || resp.Wrists[0].WearAngle != 12.5 {
			t.Errorf("unexpected wrists: %+v", resp.Wrists)
		}
	})

	t.Run("missing hand image", func(t *testing.T) {
		req := multipartRequest(t, "/api/try-on", map[string][]byte{
			"watch_image": jpegMagic,
		}, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		req := multipartRequest(t, "/api/try-on", map[string][]byte{
			"hand_image":  []byte("plain text"),
			"watch_image": jpegMagic,
		}, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing watch", func(t *testing.T) {
		req := multipartRequest(t, "/api/try-on", map[string][]byte{
			"hand_image": jpegMagic,
		}, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/try-on", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestTryOnHandler_WatchID(t *testing.T) {
	s := newTestStore(t)
	imageDir := t.TempDir()
	stub := &stubTryOn{}
	h := NewTryOnHandler(stub, s, imageDir)

	product := &store.Product{
		ID:    uuid.New().String(),
		Name:  "Diver Pro",
		Image: "diver.jpg",
	}
	if err := s.Products().Create(product); err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	if err := os.WriteFile(filepath.Join(imageDir, "diver.jpg"), jpegMagic, 0o644); err != nil {
		t.Fatalf("failed to write product image: %v", err)
	}

	t.Run("resolves the product image", func(t *testing.T) {
		req := multipartRequest(t, "/api/try-on", map[string][]byte{
			"hand_image": jpegMagic,
		}, map[string]string{"watch_id": product.ID})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown watch id", func(t *testing.T) {
		req := multipartRequest(t, "/api/try-on", map[string][]byte{
			"hand_image": jpegMagic,
		}, map[string]string{"watch_id": "nope"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestTryOnHandler_PipelineErrors(t *testing.T) {
	s := newTestStore(t)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"no wrist", tryon.ErrNoWristFound, http.StatusBadRequest},
		{"invalid image", tryon.ErrInvalidImage, http.StatusBadRequest},
		{"internal fault", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewTryOnHandler(&stubTryOn{err: tc.err}, s, t.TempDir())

			req := multipartRequest(t, "/api/try-on", map[string][]byte{
				"hand_image":  jpegMagic,
				"watch_image": jpegMagic,
			}, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestTryOnHandler_Extract(t *testing.T) {
	s := newTestStore(t)
	stub := &stubTryOn{wrists: []tryon.WristInfo{
		{Position: image.Pt(50, 60), WearAngle: -8},
	}}
	h := NewTryOnHandler(stub, s, t.TempDir())

	t.Run("extract hand", func(t *testing.T) {
		req := multipartRequest(t, "/api/extract-hand", map[string][]byte{
			"hand_image": jpegMagic,
		}, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp extractHandResponse
		decodeBody(t, rec, &resp)
		if len(resp.Wrists) != 1 || resp.Wrists[0].Y != 60 {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("extract watch", func(t *testing.T) {
		req := multipartRequest(t, "/api/extract-watch", map[string][]byte{
			"watch_image": jpegMagic,
		}, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp extractWatchResponse
		decodeBody(t, rec, &resp)
		if resp.Coverage != 0.4 || resp.BoundsW != 7 || resp.BoundsH != 7 {
			t.Errorf("unexpected response: %+v", resp)
		}
	})
}

func TestSniffImage(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want bool
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, true},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A}, true},
		{"gif", []byte("GIF89a"), true},
		{"webp", append([]byte("RIFF\x00\x00\x00\x00"), []byte("WEBP")...), true},
		{"riff but not webp", append([]byte("RIFF\x00\x00\x00\x00"), []byte("WAVE")...), false},
		{"text", []byte("hello"), false},
		{"empty", nil, false},
		{"truncated jpeg", []byte{0xFF, 0xD8}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sniffImage(tc.data); got != tc.want {
				t.Errorf("sniffImage(%q) = %v, want %v", tc.data, got, tc.want)
			}
		})
	}
}
