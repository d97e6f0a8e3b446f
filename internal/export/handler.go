package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/navmaint/drawboard/internal/document"
	"github.com/navmaint/drawboard/internal/store"
	"github.com/navmaint/drawboard/internal/typeid"
)

// SceneSource supplies the scene snapshot of a drawing.
type SceneSource interface {
	Scene(ctx context.Context, drawingID string) (*document.Scene, error)
}

type Handler struct {
	pipeline *Pipeline
	scenes   SceneSource
}

func NewHandler(p *Pipeline, scenes SceneSource) *Handler {
	return &Handler{pipeline: p, scenes: scenes}
}

// Download handles GET /api/drawings/{drawingId}/export/{format}.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	drawingID := vars["drawingId"]

	format, err := ParseFormat(vars["format"])
	if err != nil {
		http.Error(w, "invalid format: must be svg, png, or pdf", http.StatusBadRequest)
		return
	}

	scene, err := h.scenes.Scene(r.Context(), drawingID)
	if err != nil {
		if errors.Is(err, store.ErrInvalidID) {
			http.Error(w, "invalid drawing id", http.StatusBadRequest)
			return
		}
		slog.Error("load scene for export", "drawing", drawingID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	exportID := typeid.NewExportID()
	slog.Info("export started", "export", exportID, "drawing", drawingID, "format", format)

	art, err := h.pipeline.Export(r.Context(), format, scene)
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			slog.Error("export failed", "export", exportID, "stage", se.Stage, "error", se.Err)
		} else {
			slog.Error("export failed", "export", exportID, "error", err)
		}
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) {
			status = http.StatusRequestTimeout
		}
		http.Error(w, fmt.Sprintf("export failed: %v", err), status)
		return
	}

	WriteArtifact(w, art)
	slog.Info("export complete", "export", exportID, "format", format, "size", len(art.Data))
}

// WriteArtifact sends art as a file download.
func WriteArtifact(w http.ResponseWriter, art *Artifact) {
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, art.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(art.Data)
}
