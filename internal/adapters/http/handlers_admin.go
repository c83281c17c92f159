package web

import (
	"errors"
	"net/http"
	"net/url"

	"mastery/internal/application/orchestrators"
	"mastery/internal/application/session"
	"mastery/internal/domain/enrollment"
)

// handleConfirmPayment marks one enrollment paid. The route is wrapped in RequireAdmin.
func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admin := ""
	if store := session.FromContext(ctx); store != nil {
		if id := store.CurrentIdentity(); id != nil {
			admin = id.Email
		}
	}

	e, err := orchestrators.ExecuteConfirmPayment(ctx, orchestrators.ConfirmPaymentInput{
		UserID:     r.PathValue("userID"),
		AdminEmail: admin,
	}, orchestrators.ConfirmPaymentDeps{
		Enrollments: s.deps.Enrollments,
		InFlight:    s.confirmGuard,
		Metrics:     s.deps.Metrics,
	})

	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, orchestrators.ErrMissingUserID):
		status = http.StatusBadRequest
	case errors.Is(err, enrollment.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, enrollment.ErrAlreadyConfirmed), errors.Is(err, orchestrators.ErrConfirmationInProgress):
		status = http.StatusConflict
	default:
		internalError(w, err)
		return
	}

	if wantsJSON(r) {
		if err != nil {
			writeJSONError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, e)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	target := "/admin"
	if q := r.URL.Query().Get("q"); q != "" {
		target += "?q=" + url.QueryEscape(q)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
