package drawing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/navmaint/drawboard/internal/asset"
	"github.com/navmaint/drawboard/internal/auth"
	"github.com/navmaint/drawboard/internal/document"
	"github.com/navmaint/drawboard/internal/engine"
)

const maxSceneBytes = 32 << 20

type Handler struct {
	service *Service
	assets  *asset.Handler
}

func NewHandler(service *Service, assets *asset.Handler) *Handler {
	return &Handler{service: service, assets: assets}
}

// Routes registers the drawing endpoints on an /api subrouter.
func (h *Handler) Routes(api *mux.Router) {
	api.HandleFunc("/drawings/{drawingId}", h.GetScene).Methods("GET")
	api.HandleFunc("/drawings/{drawingId}", h.PutScene).Methods("PUT")
	api.HandleFunc("/drawings/{drawingId}/commands", h.Apply).Methods("POST")
	api.HandleFunc("/drawings/{drawingId}/state", h.State).Methods("GET")
	api.HandleFunc("/drawings/{drawingId}/render.svg", h.Render).Methods("GET")
	api.HandleFunc("/drawings/{drawingId}/background", h.UploadBackground).Methods("POST")
	api.HandleFunc("/drawings/{drawingId}/background", h.ClearBackground).Methods("DELETE")
}

func (h *Handler) GetScene(w http.ResponseWriter, r *http.Request) {
	drawingID := mux.Vars(r)["drawingId"]

	scene, err := h.service.Scene(r.Context(), drawingID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	data, err := document.Marshal(scene)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) PutScene(w http.ResponseWriter, r *http.Request) {
	drawingID := mux.Vars(r)["drawingId"]

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSceneBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "scene too large"})
		return
	}
	scene, err := document.Unmarshal(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	state, err := h.service.ReplaceScene(r.Context(), drawingID, scene)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	slog.Info("scene replaced", "drawing", drawingID, "by", auth.SubjectFromContext(r.Context()), "shapes", state.ShapeCount)
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	drawingID := mux.Vars(r)["drawingId"]

	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	state, err := h.service.Apply(r.Context(), drawingID, cmd)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context(), mux.Vars(r)["drawingId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	markup, err := h.service.Render(r.Context(), mux.Vars(r)["drawingId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(markup)
}

func (h *Handler) UploadBackground(w http.ResponseWriter, r *http.Request) {
	drawingID := mux.Vars(r)["drawingId"]

	imp, err := h.assets.Read(w, r)
	if err != nil {
		slog.Warn("import background", "drawing", drawingID, "error", err)
		asset.WriteError(w, err)
		return
	}

	if _, err := h.service.SetBackground(r.Context(), drawingID, imp.DataURL); err != nil {
		handleServiceError(w, err)
		return
	}
	slog.Info("background imported", "drawing", drawingID, "import", imp.ID, "type", imp.Type, "width", imp.Width, "height", imp.Height)
	writeJSON(w, http.StatusOK, imp)
}

func (h *Handler) ClearBackground(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.ClearBackground(r.Context(), mux.Vars(r)["drawingId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidID):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid drawing id"})
	case errors.Is(err, ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrUnknownShape):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrUnknownCommand),
		errors.Is(err, ErrBadCommand),
		errors.Is(err, engine.ErrUnknownTool),
		errors.Is(err, document.ErrBadSeverity),
		errors.Is(err, document.ErrDuplicateID),
		errors.Is(err, document.ErrInvalidID),
		errors.Is(err, document.ErrUnknownType),
		errors.Is(err, document.ErrBadExtent):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, asset.ErrInvalidDataURL), errors.Is(err, asset.ErrDecodeImage):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid image"})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
