package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soundshift/soundshift/lib/logger"
)

// Routes mounts the controller-facing endpoints.
func (s *ApiService) Routes(r chi.Router) {
	r.Get("/control/ws", s.HandleControlSocket)
	r.Post("/control", s.HandleControl)
	r.Get("/status", s.HandleStatus)
	r.Get("/pageagent.js", s.HandleAgentBundle)
}

// HandleControl serves one controller action over plain HTTP.
func (s *ApiService) HandleControl(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, errResponse("invalid request body"))
		return
	}
	writeResponse(w, http.StatusOK, s.dispatch(r.Context(), req))
}

// HandleStatus reports the bridge readiness state and the settings mirror.
func (s *ApiService) HandleStatus(w http.ResponseWriter, r *http.Request) {
	pitch, err := s.store.Pitch(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to read pitch", "err", err)
		http.Error(w, "failed to read settings", http.StatusInternalServerError)
		return
	}
	settings := s.bridge.Settings()
	status := struct {
		State    string          `json:"state"`
		Settings SettingsPayload `json:"settings"`
	}{
		State:    string(s.bridge.State()),
		Settings: SettingsPayload{Pitch: pitch, Speed: settings.Speed},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// HandleAgentBundle serves the page-agent script bundle for injection into
// real pages.
func (s *ApiService) HandleAgentBundle(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		http.NotFound(w, r)
		return
	}
	data, err := s.cache.Bytes()
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to read agent bundle", "err", err)
		http.Error(w, "agent bundle unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/javascript")
	_, _ = w.Write(data)
}

func writeResponse(w http.ResponseWriter, code int, resp ControlResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
