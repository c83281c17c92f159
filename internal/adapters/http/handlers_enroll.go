package web

import (
	"errors"
	"net/http"

	"mastery/internal/application/orchestrators"
	"mastery/internal/application/session"
	"mastery/internal/domain/enrollment"
	"mastery/internal/domain/view"
)

type enrollResponse struct {
	State     string `json:"state"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// handleEnroll creates the enrollment record and sends the browser to checkout.
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := session.FromContext(ctx)
	if store == nil {
		internalError(w, errors.New("session store missing from context"))
		return
	}

	flow := orchestrators.NewEnrollmentFlow(orchestrators.SubmitEnrollmentDeps{
		Enrollments: s.deps.Enrollments,
		Checkout:    s.deps.Checkout,
		InFlight:    s.enrollGuard,
		Metrics:     s.deps.Metrics,
		Amount:      s.deps.PaymentAmount,
		GenerateID:  s.deps.GenerateID,
	})
	st, err := flow.Submit(ctx, store.CurrentIdentity())
	if errors.Is(err, orchestrators.ErrSubmissionInProgress) {
		if wantsJSON(r) {
			writeJSON(w, http.StatusConflict, enrollResponse{State: "submitting", Error: err.Error()})
			return
		}
		s.renderEnrollPanel(w, r, http.StatusConflict, "", err.Error())
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	switch st := st.(type) {
	case enrollment.Redirecting:
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, enrollResponse{State: st.Name(), URL: st.URL})
			return
		}
		http.Redirect(w, r, st.URL, http.StatusSeeOther)
	case enrollment.Failed:
		if st.Duplicate {
			if wantsJSON(r) {
				writeJSON(w, http.StatusConflict, enrollResponse{State: st.Name(), Error: st.Message, Duplicate: true})
				return
			}
			s.renderEnrollPanel(w, r, http.StatusOK, st.Message, "")
			return
		}
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadGateway, enrollResponse{State: st.Name(), Error: st.Message})
			return
		}
		s.renderEnrollPanel(w, r, http.StatusBadGateway, "", st.Message)
	default:
		// No identity: nothing was submitted.
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, enrollResponse{State: st.Name()})
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) renderEnrollPanel(w http.ResponseWriter, r *http.Request, status int, notice, msg string) {
	data := s.newPage(r, view.Landing)
	data.EnrollOpen = true
	data.Notice = notice
	data.Error = msg
	s.render(w, status, pageLanding, data)
}
