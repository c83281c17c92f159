package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"mastery/internal/adapters/http/middleware"
	"mastery/internal/application/session"
	"mastery/internal/domain/identity"
	"mastery/internal/domain/view"
)

// maxFormBytes bounds every posted body.
const maxFormBytes = 64 << 10

// msgAuthUnavailable is shown when the identity backend could not be reached.
const msgAuthUnavailable = "We could not reach the sign-in service. Please try again."

// msgConfirmEmail is shown after a sign-up that needs email confirmation first.
const msgConfirmEmail = "Check your email to confirm your account, then sign in."

// formValues reads a posted form or a flat JSON object of strings. Values are not trimmed.
func formValues(w http.ResponseWriter, r *http.Request) (func(string) string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		values := map[string]string{}
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return func(k string) string { return values[k] }, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return func(k string) string { return r.PostForm.Get(k) }, nil
}

type authResponse struct {
	Identity *identity.Identity `json:"identity,omitempty"`
	Path     string             `json:"path,omitempty"`
	View     view.View          `json:"view,omitempty"`
	Next     string             `json:"next,omitempty"`
	Confirm  bool               `json:"confirmation_required,omitempty"`
}

// authFailure answers a failed sign-in or sign-up. AuthError text is shown verbatim.
func (s *Server) authFailure(w http.ResponseWriter, r *http.Request, from, mode string, err error) {
	status, msg := http.StatusUnauthorized, err.Error()
	if !identity.IsAuthError(err) {
		slog.Error("auth_event", "event", mode+"_error", "error", err.Error())
		status, msg = http.StatusServiceUnavailable, msgAuthUnavailable
	}
	if wantsJSON(r) {
		writeJSONError(w, status, msg)
		return
	}
	if from == "login" {
		data := s.newPage(r, view.Login)
		data.Error = msg
		s.render(w, status, pageLogin, data)
		return
	}
	data := s.newPage(r, view.Landing)
	data.AuthOpen = true
	data.AuthMode = mode
	data.Error = msg
	s.render(w, status, pageLanding, data)
}

// handleSignIn signs the user in. From the landing page the enrollment panel opens
// next; from the login view the user is sent straight to the matching view.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	get, err := formValues(w, r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	store := session.FromContext(ctx)
	if store == nil {
		internalError(w, errors.New("session store missing from context"))
		return
	}
	from := strings.TrimSpace(get("from"))

	if err := store.SignIn(ctx, strings.TrimSpace(get("email")), get("password")); err != nil {
		s.authFailure(w, r, from, "signin", err)
		return
	}
	middleware.SyncSessionCookie(w, store, s.deps.Secure)

	if from != "login" {
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, authResponse{Identity: store.CurrentIdentity(), Next: "/?enroll=1"})
			return
		}
		http.Redirect(w, r, "/?enroll=1", http.StatusSeeOther)
		return
	}

	nav := view.AfterSignIn(store.CurrentEnrollment())
	w.Header().Set("Content-Location", nav.Path)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, authResponse{Identity: store.CurrentIdentity(), Path: nav.Path, View: nav.View})
		return
	}
	data := s.newPage(r, nav.View)
	if nav.View == view.Dashboard {
		data.Modules = s.program
	}
	s.render(w, http.StatusOK, templateFor(nav.View), data)
}

// handleSignUp registers a user and opens the enrollment panel.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	get, err := formValues(w, r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	store := session.FromContext(ctx)
	if store == nil {
		internalError(w, errors.New("session store missing from context"))
		return
	}

	in := identity.SignUpInput{
		Email:    strings.TrimSpace(get("email")),
		Password: get("password"),
		FullName: strings.TrimSpace(get("fullName")),
		Phone:    strings.TrimSpace(get("phone")),
	}
	if err := store.SignUp(ctx, in); err != nil {
		s.authFailure(w, r, get("from"), "signup", err)
		return
	}
	middleware.SyncSessionCookie(w, store, s.deps.Secure)

	if store.Token() == "" {
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, authResponse{Identity: store.CurrentIdentity(), Confirm: true})
			return
		}
		data := s.newPage(r, view.Landing)
		data.Identity = nil
		data.AuthOpen = true
		data.Notice = msgConfirmEmail
		s.render(w, http.StatusOK, pageLanding, data)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, authResponse{Identity: store.CurrentIdentity(), Next: "/?enroll=1"})
		return
	}
	http.Redirect(w, r, "/?enroll=1", http.StatusSeeOther)
}

// handleSignOut ends the session and returns to the landing page.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if store := session.FromContext(ctx); store != nil {
		if err := store.SignOut(ctx); err != nil {
			slog.Warn("auth_event", "event", "logout_error", "error", err.Error())
		}
		middleware.SyncSessionCookie(w, store, s.deps.Secure)
	}
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
