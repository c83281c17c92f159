package web

import (
	"net/http"
	"strings"

	"mastery/internal/application/orchestrators"
	"mastery/internal/domain/lead"
	"mastery/internal/domain/view"
)

// honeypotField is the hidden roadmap form input that only automated clients fill in.
const honeypotField = "website"

type roadmapResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// handleRoadmap stores a roadmap request and emails the roadmap.
func (s *Server) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	get, err := formValues(w, r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sub := lead.Submission{
		FirstName:       strings.TrimSpace(get("firstName")),
		LastName:        strings.TrimSpace(get("lastName")),
		Email:           strings.TrimSpace(get("email")),
		InterestReason:  get("interestReason"),
		DiscoverySource: get("discoverySource"),
		Honeypot:        get(honeypotField),
		UserAgent:       r.UserAgent(),
	}

	st := orchestrators.ExecuteCaptureLead(r.Context(), sub, orchestrators.CaptureLeadDeps{
		Leads:      s.deps.Leads,
		Mailer:     s.deps.Mailer,
		InFlight:   s.leadGuard,
		Metrics:    s.deps.Metrics,
		GenerateID: s.deps.GenerateID,
	})

	if wantsJSON(r) {
		resp := roadmapResponse{State: st.Name()}
		status := http.StatusOK
		if f, ok := st.(lead.Failed); ok {
			resp.Error = f.Message
			status = roadmapFailureStatus(f.Message)
		}
		writeJSON(w, status, resp)
		return
	}

	switch st := st.(type) {
	case lead.Idle:
		// Automated submission: look like nothing happened.
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case lead.Succeeded:
		data := s.newPage(r, view.Landing)
		data.Roadmap.Succeeded = true
		data.Roadmap.Email = sub.Email
		data.RefreshURL = "/"
		data.RefreshSeconds = int(lead.DismissDelay.Seconds())
		s.render(w, http.StatusOK, pageLanding, data)
	case lead.Failed:
		data := s.newPage(r, view.Landing)
		data.Roadmap.FirstName = sub.FirstName
		data.Roadmap.LastName = sub.LastName
		data.Roadmap.Email = sub.Email
		data.Roadmap.InterestReason = sub.InterestReason
		data.Roadmap.DiscoverySource = sub.DiscoverySource
		data.Roadmap.Error = st.Message
		s.render(w, roadmapFailureStatus(st.Message), pageLanding, data)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func roadmapFailureStatus(msg string) int {
	switch msg {
	case lead.MsgInvalidForm:
		return http.StatusUnprocessableEntity
	case lead.MsgSubmissionInProgress:
		return http.StatusConflict
	case lead.MsgGenericFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
