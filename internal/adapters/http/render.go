package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"

	"mastery/internal/application/projections"
	"mastery/internal/application/session"
	"mastery/internal/domain/enrollment"
	"mastery/internal/domain/identity"
	"mastery/internal/domain/lead"
	"mastery/internal/domain/view"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticDir embed.FS

func staticFS() fs.FS {
	sub, err := fs.Sub(staticDir, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Page templates by name. Each is parsed together with layout.html.
const (
	pageLanding   = "landing"
	pageLogin     = "login"
	pageDashboard = "dashboard"
	pagePayment   = "payment"
	pageAdmin     = "admin"
	pageSuccess   = "success"
	pageCancel    = "cancel"
	pageLoading   = "loading"
)

var pageNames = []string{pageLanding, pageLogin, pageDashboard, pagePayment, pageAdmin, pageSuccess, pageCancel, pageLoading}

type pageSet struct {
	byName map[string]*template.Template
}

var funcMap = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
}

func parsePages() (*pageSet, error) {
	set := &pageSet{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		set.byName[name] = tpl
	}
	return set, nil
}

// pageData is what every template receives.
type pageData struct {
	View      view.View
	CSRFField template.HTML
	CSRFToken string

	Identity   *identity.Identity
	Profile    *identity.Profile
	Enrollment *enrollment.Enrollment
	IsAdmin    bool

	Error  string
	Notice string

	// Landing
	AuthOpen      bool
	AuthMode      string
	EnrollOpen    bool
	PaymentAmount float64
	Roadmap       roadmapForm

	// Payment
	SupportEmail string
	SupportPhone string

	// Dashboard
	Modules      []programModule
	ActiveModule int

	// Admin
	Overview   *projections.GetAdminOverviewResult
	Restricted bool

	// RefreshURL and RefreshSeconds drive a meta refresh when set.
	RefreshURL     string
	RefreshSeconds int
}

// roadmapForm echoes the lead form back after a failed post.
type roadmapForm struct {
	FirstName        string
	LastName         string
	Email            string
	InterestReason   string
	DiscoverySource  string
	InterestReasons  []string
	DiscoverySources []string
	Succeeded        bool
	Error            string
}

func (s *Server) newPage(r *http.Request, v view.View) pageData {
	data := pageData{
		View:          v,
		CSRFField:     csrf.TemplateField(r),
		CSRFToken:     csrf.Token(r),
		PaymentAmount: s.deps.PaymentAmount,
		SupportEmail:  s.deps.SupportEmail,
		SupportPhone:  s.deps.SupportPhone,
		AuthMode:      "signin",
		Roadmap: roadmapForm{
			InterestReasons:  lead.InterestReasons,
			DiscoverySources: lead.DiscoverySources,
		},
	}
	if store := session.FromContext(r.Context()); store != nil {
		data.Identity = store.CurrentIdentity()
		data.Profile = store.CurrentProfile()
		data.Enrollment = store.CurrentEnrollment()
		if data.Identity != nil {
			data.IsAdmin = s.deps.IsAdmin(data.Identity.Email)
		}
	}
	return data
}

// templateFor maps a view to its page template.
func templateFor(v view.View) string {
	switch v {
	case view.Login:
		return pageLogin
	case view.Dashboard:
		return pageDashboard
	case view.Payment:
		return pagePayment
	case view.Admin:
		return pageAdmin
	case view.Success:
		return pageSuccess
	case view.Cancel:
		return pageCancel
	default:
		return pageLanding
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	tpl, ok := s.pages.byName[name]
	if !ok {
		internalError(w, fmt.Errorf("unknown template %q", name))
		return
	}
	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_error", "error", err.Error())
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}
