package middleware

import (
	"net/http"

	"mastery/internal/application/session"
)

// SessionCookieName names the cookie holding the opaque session token.
const SessionCookieName = "mastery_session"

// sessionMaxAge matches the session backend's default lifetime.
const sessionMaxAge = 86400

// Auth returns middleware that opens the request's session store, runs the session
// check and puts the store in the request context.
// It does NOT block unauthenticated requests; the view router decides what to show.
func Auth(m *session.Manager, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				token = cookie.Value
			}

			store := m.Open(token)
			// On failure the store stays loading and the error is already logged.
			_ = store.Init(r.Context())
			// Expired sessions clear the cookie; refreshed ones move it to the new record.
			SyncSessionCookie(w, store, secure)

			next.ServeHTTP(w, r.WithContext(session.WithStore(r.Context(), store)))
		})
	}
}

// RequireAdmin returns middleware that blocks requests whose identity is not an admin.
func RequireAdmin(isAdmin func(email string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := session.FromContext(r.Context())
			if store == nil || store.IsLoading() {
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
				return
			}
			id := store.CurrentIdentity()
			if id == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !isAdmin(id.Email) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SyncSessionCookie writes or clears the cookie when the store's token changed.
func SyncSessionCookie(w http.ResponseWriter, store *session.Store, secure bool) {
	if !store.TokenChanged() {
		return
	}
	if token := store.Token(); token != "" {
		SetSessionCookie(w, token, secure)
		return
	}
	ClearSessionCookie(w, secure)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   sessionMaxAge,
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
