package view

import (
	"net"
	"strings"

	"mastery/internal/domain/enrollment"
	"mastery/internal/domain/identity"
)

// View names a page the portal can render.
type View string

// Views
const (
	Landing   View = "landing"
	Login     View = "login"
	Dashboard View = "dashboard"
	Payment   View = "payment"
	Admin     View = "admin"
	Success   View = "success"
	Cancel    View = "cancel"
)

// Outcome is what the router asks the caller to do.
type Outcome int

// Outcomes
const (
	// Render shows Decision.View.
	Render Outcome = iota
	// Redirect leaves the portal for Decision.RedirectURL.
	Redirect
	// Suspend keeps the current view until the session check completes.
	Suspend
)

// Default hostnames and external URLs.
const (
	DefaultAppHost    = "app.medicaremastery.app"
	DefaultPricingURL = "https://medicaremastery.app/pricing"
	DefaultAppRootURL = "https://app.medicaremastery.app"
)

// Input is everything the router looks at.
type Input struct {
	Path       string
	Host       string
	Loading    bool
	Identity   *identity.Identity
	Enrollment *enrollment.Enrollment
}

// Decision is the router's answer for one Input.
type Decision struct {
	Outcome     Outcome
	View        View
	RedirectURL string
	// Rule is the name of the rule that matched.
	Rule string
}

// Rule is one (predicate, outcome) pair of the decision table.
type Rule struct {
	Name   string
	Match  func(r *Router, in Input) bool
	Decide func(r *Router, in Input) Decision
}

// Config holds the hostnames and external URLs the rules refer to.
type Config struct {
	AppHosts   []string
	PricingURL string
	AppRootURL string
}

// Router maps (path, host, session state) to a Decision.
// It holds no mutable state; Decide is safe for concurrent use.
type Router struct {
	appHosts   map[string]bool
	pricingURL string
	appRootURL string
	rules      []Rule
}

// NewRouter builds a Router with the standard rule table.
// PRE: none (empty config fields fall back to defaults)
// POST: Returns a Router whose rules are evaluated top to bottom
func NewRouter(cfg Config) *Router {
	hosts := cfg.AppHosts
	if len(hosts) == 0 {
		hosts = []string{DefaultAppHost, "localhost"}
	}
	r := &Router{
		appHosts:   make(map[string]bool, len(hosts)),
		pricingURL: cfg.PricingURL,
		appRootURL: cfg.AppRootURL,
		rules:      Rules(),
	}
	for _, h := range hosts {
		r.appHosts[strings.ToLower(strings.TrimSpace(h))] = true
	}
	if r.pricingURL == "" {
		r.pricingURL = DefaultPricingURL
	}
	if r.appRootURL == "" {
		r.appRootURL = DefaultAppRootURL
	}
	return r
}

// Rules returns the decision table in precedence order.
func Rules() []Rule {
	return []Rule{
		{Name: "admin", Match: pathIs("/admin"), Decide: show(Admin)},
		{Name: "success", Match: pathIs("/success"), Decide: show(Success)},
		{Name: "cancel", Match: pathIs("/cancel"), Decide: show(Cancel)},
		{
			Name:   "loading",
			Match:  func(_ *Router, in Input) bool { return in.Loading },
			Decide: func(_ *Router, _ Input) Decision { return Decision{Outcome: Suspend} },
		},
		{
			Name: "app-root",
			Match: func(r *Router, in Input) bool {
				return r.IsAppHost(in.Host) && in.Path == "/"
			},
			Decide: func(r *Router, in Input) Decision {
				switch {
				case in.Identity == nil:
					return Decision{Outcome: Render, View: Login}
				case in.Enrollment == nil:
					return Decision{Outcome: Redirect, RedirectURL: r.pricingURL}
				case in.Enrollment.IsUnlocked():
					return Decision{Outcome: Render, View: Dashboard}
				default:
					return Decision{Outcome: Render, View: Payment}
				}
			},
		},
		{
			Name:  "protected",
			Match: func(_ *Router, in Input) bool { return IsProtectedPath(in.Path) },
			Decide: func(r *Router, in Input) Decision {
				switch {
				case in.Identity == nil:
					return Decision{Outcome: Redirect, RedirectURL: r.appRootURL}
				case in.Enrollment == nil:
					return Decision{Outcome: Render, View: Landing}
				case in.Enrollment.IsUnlocked():
					return Decision{Outcome: Render, View: Dashboard}
				default:
					return Decision{Outcome: Render, View: Payment}
				}
			},
		},
		{Name: "public", Match: func(_ *Router, _ Input) bool { return true }, Decide: show(Landing)},
	}
}

// Decide evaluates the rules in order and returns the first match.
// PRE: none
// POST: Returns exactly one Decision; identical inputs give identical decisions
func (r *Router) Decide(in Input) Decision {
	for _, rule := range r.rules {
		if rule.Match(r, in) {
			d := rule.Decide(r, in)
			d.Rule = rule.Name
			return d
		}
	}
	// The public rule always matches; this is only reached with a custom table.
	return Decision{Outcome: Render, View: Landing, Rule: "fallback"}
}

// IsAppHost reports whether host (with or without port) is one of the app hostnames.
func (r *Router) IsAppHost(host string) bool {
	return r.appHosts[normalizeHost(host)]
}

// IsProtectedPath reports whether path requires an identity.
func IsProtectedPath(path string) bool {
	return path == "/dashboard" || path == "/program" || strings.HasPrefix(path, "/program/")
}

// Navigation is where the browser goes right after a successful sign-in.
type Navigation struct {
	Path string
	View View
}

// AfterSignIn picks the history entry and view to show once a user has signed in.
// It runs once after the action and is allowed to differ from Decide for the same path.
func AfterSignIn(e *enrollment.Enrollment) Navigation {
	switch {
	case e == nil:
		return Navigation{Path: "/", View: Landing}
	case e.IsUnlocked():
		return Navigation{Path: "/program", View: Dashboard}
	default:
		return Navigation{Path: "/payment-required", View: Payment}
	}
}

func pathIs(p string) func(*Router, Input) bool {
	return func(_ *Router, in Input) bool { return in.Path == p }
}

func show(v View) func(*Router, Input) Decision {
	return func(_ *Router, _ Input) Decision { return Decision{Outcome: Render, View: v} }
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
