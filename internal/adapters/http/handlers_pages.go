package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"mastery/internal/application/projections"
	"mastery/internal/application/session"
	"mastery/internal/domain/view"
)

// retryAfterSeconds is how soon a suspended page asks to be reloaded.
const retryAfterSeconds = 2

type decisionResponse struct {
	Outcome     string    `json:"outcome"`
	View        view.View `json:"view,omitempty"`
	RedirectURL string    `json:"redirect_url,omitempty"`
	Rule        string    `json:"rule"`
}

func outcomeName(o view.Outcome) string {
	switch o {
	case view.Redirect:
		return "redirect"
	case view.Suspend:
		return "suspend"
	default:
		return "render"
	}
}

// handlePage resolves any GET through the view router.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := session.FromContext(ctx)
	in := view.Input{Path: r.URL.Path, Host: r.Host, Loading: true}
	if store != nil {
		in.Loading = store.IsLoading()
		in.Identity = store.CurrentIdentity()
		in.Enrollment = store.CurrentEnrollment()
	}
	d := s.deps.Router.Decide(in)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, decisionResponse{
			Outcome:     outcomeName(d.Outcome),
			View:        d.View,
			RedirectURL: d.RedirectURL,
			Rule:        d.Rule,
		})
		return
	}

	switch {
	case d.Outcome == view.Redirect:
		http.Redirect(w, r, d.RedirectURL, http.StatusFound)
		return
	case d.Outcome == view.Suspend, d.View == view.Admin && in.Loading:
		// The admin panel waits for the session check itself.
		s.renderLoading(w, r)
		return
	}

	if d.View == view.Success && store != nil {
		// The payment webhook may have landed since the session loaded.
		if err := store.RefreshEnrollment(ctx); err != nil {
			slog.Warn("enrollment_event", "event", "refresh_failed", "error", err.Error())
		}
	}

	data := s.newPage(r, d.View)
	switch d.View {
	case view.Landing:
		q := r.URL.Query()
		// An existing enrollment is reached through the hero link instead.
		data.EnrollOpen = q.Get("enroll") == "1" && data.Enrollment == nil
		switch q.Get("auth") {
		case "signin", "signup":
			data.AuthOpen = true
			data.AuthMode = q.Get("auth")
		}
		if data.EnrollOpen && data.Identity == nil {
			data.AuthOpen = true
			data.AuthMode = "signup"
		}
	case view.Dashboard:
		data.Modules = s.program
		data.ActiveModule = activeModule(r.URL.Path, len(s.program))
	case view.Admin:
		if !s.fillAdmin(w, r, &data) {
			return
		}
	}
	s.render(w, http.StatusOK, templateFor(d.View), data)
}

// fillAdmin loads the overview for admins and marks the page restricted for everyone else.
// It returns false when a response has already been written.
func (s *Server) fillAdmin(w http.ResponseWriter, r *http.Request, data *pageData) bool {
	if data.Identity == nil || !data.IsAdmin {
		data.Restricted = true
		return true
	}
	overview, err := projections.QueryGetAdminOverview(r.Context(), projections.GetAdminOverviewQuery{
		Search: r.URL.Query().Get("q"),
	}, projections.GetAdminOverviewDeps{Enrollments: s.deps.Enrollments})
	if err != nil {
		internalError(w, err)
		return false
	}
	data.Overview = &overview
	return true
}

func (s *Server) renderLoading(w http.ResponseWriter, r *http.Request) {
	data := s.newPage(r, "")
	data.RefreshURL = r.URL.RequestURI()
	data.RefreshSeconds = retryAfterSeconds
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	w.Header().Set("Cache-Control", "no-store")
	s.render(w, http.StatusOK, pageLoading, data)
}
