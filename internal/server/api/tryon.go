package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"watch-tryon/internal/store"
	"watch-tryon/internal/tryon"
)

// TryOnService is the pipeline surface the handler depends on.
type TryOnService interface {
	TryOn(handBytes, watchBytes []byte) (*tryon.Result, error)
	ExtractHand(handBytes []byte) (*tryon.HandInfo, error)
	ExtractWatch(watchBytes []byte) (*tryon.WatchInfo, error)
}

// TryOnHandler handles the try-on and extraction endpoints.
type TryOnHandler struct {
	pipeline TryOnService
	store    *store.Store
	imageDir string
}

// NewTryOnHandler creates a new TryOnHandler. The store and image directory
// resolve watch_id form values to product images.
func NewTryOnHandler(pipeline TryOnService, s *store.Store, imageDir string) *TryOnHandler {
	return &TryOnHandler{
		pipeline: pipeline,
		store:    s,
		imageDir: imageDir,
	}
}

// ServeHTTP routes /api/try-on, /api/extract-hand, and /api/extract-watch.
func (h *TryOnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	switch r.URL.Path {
	case "/api/try-on":
		h.tryOn(w, r)
	case "/api/extract-hand":
		h.extractHand(w, r)
	case "/api/extract-watch":
		h.extractWatch(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type wristResponse struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	WearAngle float64 `json:"wear_angle"`
}

type tryOnResponse struct {
	SessionID string          `json:"session_id"`
	Image     string          `json:"image"`
	Wrists    []wristResponse `json:"wrists"`
}

type extractHandResponse struct {
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Wrists []wristResponse `json:"wrists"`
}

type extractWatchResponse struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Coverage float64 `json:"coverage"`
	MaskArea int     `json:"mask_area"`
	BoundsX  int     `json:"bounds_x"`
	BoundsY  int     `json:"bounds_y"`
	BoundsW  int     `json:"bounds_w"`
	BoundsH  int     `json:"bounds_h"`
}

func toWristResponses(wrists []tryon.WristInfo) []wristResponse {
	out := make([]wristResponse, 0, len(wrists))
	for _, wr := range wrists {
		out = append(out, wristResponse{
			X:         wr.Position.X,
			Y:         wr.Position.Y,
			WearAngle: wr.WearAngle,
		})
	}
	return out
}

// tryOn handles POST /api/try-on with multipart fields hand_image and
// either watch_image or watch_id.
func (h *TryOnHandler) tryOn(w http.ResponseWriter, r *http.Request) {
	handBytes, ok := h.formImage(w, r, "hand_image")
	if !ok {
		return
	}

	watchBytes, ok := h.watchImage(w, r)
	if !ok {
		return
	}

	result, err := h.pipeline.TryOn(handBytes, watchBytes)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	defer result.Close()

	buf, err := gocv.IMEncode(".jpg", result.Composite)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode result")
		return
	}
	defer buf.Close()

	writeJSON(w, http.StatusOK, tryOnResponse{
		SessionID: uuid.New().String(),
		Image:     "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.GetBytes()),
		Wrists:    toWristResponses(result.Wrists),
	})
}

// extractHand handles POST /api/extract-hand.
func (h *TryOnHandler) extractHand(w http.ResponseWriter, r *http.Request) {
	handBytes, ok := h.formImage(w, r, "hand_image")
	if !ok {
		return
	}

	info, err := h.pipeline.ExtractHand(handBytes)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, extractHandResponse{
		Width:  info.Width,
		Height: info.Height,
		Wrists: toWristResponses(info.Wrists),
	})
}

// extractWatch handles POST /api/extract-watch.
func (h *TryOnHandler) extractWatch(w http.ResponseWriter, r *http.Request) {
	watchBytes, ok := h.watchImage(w, r)
	if !ok {
		return
	}

	info, err := h.pipeline.ExtractWatch(watchBytes)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, extractWatchResponse{
		Width:    info.Width,
		Height:   info.Height,
		Coverage: info.Coverage,
		MaskArea: info.MaskArea,
		BoundsX:  info.Bounds.Min.X,
		BoundsY:  info.Bounds.Min.Y,
		BoundsW:  info.Bounds.Dx(),
		BoundsH:  info.Bounds.Dy(),
	})
}

// writePipelineError maps pipeline failures to HTTP statuses. Invalid input
// and missing wrists are the client's problem; everything else is ours.
func writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tryon.ErrInvalidImage):
		writeError(w, http.StatusBadRequest, "Image could not be decoded")
	case errors.Is(err, tryon.ErrNoWristFound):
		writeError(w, http.StatusBadRequest, "No wrist found in the hand image")
	default:
		writeError(w, http.StatusInternalServerError, "Try-on failed")
	}
}

// formImage reads and sniff-checks one uploaded image field. It writes the
// error response itself and returns ok=false on failure.
func (h *TryOnHandler) formImage(w http.ResponseWriter, r *http.Request, field string) ([]byte, bool) {
	file, _, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, field+" is required")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read "+field)
		return nil, false
	}

	if !sniffImage(data) {
		writeError(w, http.StatusBadRequest, field+" is not a supported image format")
		return nil, false
	}
	return data, true
}

// watchImage resolves the watch side of a request: an uploaded watch_image
// wins, otherwise watch_id names a catalog product whose image is loaded
// from disk.
func (h *TryOnHandler) watchImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if file, _, err := r.FormFile("watch_image"); err == nil {
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read watch_image")
			return nil, false
		}
		if !sniffImage(data) {
			writeError(w, http.StatusBadRequest, "watch_image is not a supported image format")
			return nil, false
		}
		return data, true
	}

	watchID := r.FormValue("watch_id")
	if watchID == "" {
		writeError(w, http.StatusBadRequest, "watch_image or watch_id is required")
		return nil, false
	}

	product, err := h.store.Products().GetByID(watchID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Watch not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to load watch")
		return nil, false
	}
	if product.Image == "" || strings.ContainsAny(product.Image, `/\`) {
		writeError(w, http.StatusNotFound, "Watch image not available")
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(h.imageDir, product.Image))
	if err != nil {
		writeError(w, http.StatusNotFound, "Watch image not available")
		return nil, false
	}
	return data, true
}

// sniffImage accepts JPEG, PNG, WEBP, and GIF payloads by magic number.
func sniffImage(data []byte) bool {
	switch {
	case len(data) >= 3 && bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return true // JPEG
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return true // PNG
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WEBP")):
		return true // WEBP
	case bytes.HasPrefix(data, []byte("GIF8")):
		return true // GIF
	default:
		return false
	}
}
