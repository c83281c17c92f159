package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mastery/internal/application/orchestrators"
	"mastery/internal/config"
)

const (
	functionPathPrefix  = "/functions/"
	roadmapFunctionPath = "/functions/v1/send-roadmap-email"
)

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Client-Info, Apikey")
}

type sendRoadmapResponse struct {
	Success bool   `json:"success"`
	EmailID string `json:"emailId"`
}

// handleSendRoadmapEmail is the HTTP face of the roadmap email function.
func (s *Server) handleSendRoadmapEmail(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if key := s.deps.FunctionKey; key != "" && r.Header.Get("Authorization") != "Bearer "+key {
		writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var in orchestrators.SendRoadmapInput
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		// An unreadable body is treated as missing fields.
		in = orchestrators.SendRoadmapInput{}
	}

	res, err := orchestrators.ExecuteSendRoadmapEmail(r.Context(), in, s.deps.RoadmapEmail)
	if err != nil {
		var ce *config.ConfigurationError
		var ese *orchestrators.ExternalServiceError
		switch {
		case errors.As(err, &ce):
			slog.Error("function_event", "event", "send_roadmap_misconfigured", "key", ce.Key)
			writeJSONError(w, http.StatusInternalServerError, ce.Error())
		case errors.As(err, &ese):
			writeJSONError(w, http.StatusInternalServerError, ese.Message)
		default:
			writeJSONError(w, orchestrators.RoadmapErrorStatus(err), err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, sendRoadmapResponse{Success: true, EmailID: res.EmailID})
}
