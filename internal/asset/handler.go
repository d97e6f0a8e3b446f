package asset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"

	"github.com/navmaint/drawboard/internal/typeid"
)

const DefaultMaxUploadSize = 10 << 20 // 10MB

var ErrMissingFile = errors.New("missing file field")

// Import is a decoded background image ready to be placed on a scene.
type Import struct {
	ID      string `json:"id"`
	DataURL string `json:"dataUrl"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Type    string `json:"type"`
	Name    string `json:"name"`
}

// Handler serves the background image import endpoint.
type Handler struct {
	maxBytes int64
}

// NewHandler creates a handler accepting uploads up to maxBytes.
func NewHandler(maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadSize
	}
	return &Handler{maxBytes: maxBytes}
}

// Read parses the multipart "file" field of r and converts it into a
// data URL. The image must decode; no other checks are made.
func (h *Handler) Read(w http.ResponseWriter, r *http.Request) (*Import, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		return nil, fmt.Errorf("parse upload: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, ErrMissingFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	imp, err := FromBytes(data)
	if err != nil {
		return nil, err
	}
	imp.Name = header.Filename
	return imp, nil
}

// FromBytes checks that data decodes as an image and wraps it in a data URL.
func FromBytes(data []byte) (*Import, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}

	return &Import{
		ID:      typeid.NewImportID(),
		DataURL: EncodeDataURL(http.DetectContentType(data), data),
		Width:   cfg.Width,
		Height:  cfg.Height,
		Type:    format,
	}, nil
}

// Upload handles POST /assets/upload (multipart form with "file" field)
// and answers with the data URL. The standalone page uses it to import a
// background without a drawing session.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	imp, err := h.Read(w, r)
	if err != nil {
		slog.Warn("import background", "error", err)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(imp)
}

// WriteError maps an import error to an HTTP response.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingFile):
		http.Error(w, "missing file field", http.StatusBadRequest)
	case errors.Is(err, ErrDecodeImage):
		http.Error(w, "invalid image", http.StatusUnprocessableEntity)
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid upload", http.StatusBadRequest)
	}
}
