package auth

import (
	"encoding/json"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type whoAmIResponse struct {
	Subject string `json:"subject"`
}

// WhoAmI handles GET /auth/whoami. It validates the bearer token itself
// so clients can check a token before using the API.
func (h *Handler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	h.service.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, whoAmIResponse{Subject: SubjectFromContext(r.Context())})
	})).ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
