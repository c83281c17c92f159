package view_test

import (
	"testing"
	"time"

	"mastery/internal/domain/enrollment"
	"mastery/internal/domain/identity"
	"mastery/internal/domain/view"
)

const marketingHost = "medicaremastery.app"

var user = &identity.Identity{ID: "u-1", Email: "agent@example.com"}

func locked() *enrollment.Enrollment {
	e := enrollment.New("e-1", user.ID, user.Email, enrollment.DefaultPaymentAmount, time.Now())
	return &e
}

func unlocked() *enrollment.Enrollment {
	e := locked()
	_ = e.ConfirmPayment(enrollment.PaymentMethodManual, time.Now())
	return e
}

func newRouter() *view.Router {
	return view.NewRouter(view.Config{})
}

// TestRouter_Decide covers every row of the decision table.
func TestRouter_Decide(t *testing.T) {
	tests := []struct {
		name     string
		in       view.Input
		outcome  view.Outcome
		view     view.View
		redirect string
		rule     string
	}{
		{"admin wins over loading", view.Input{Path: "/admin", Host: marketingHost, Loading: true}, view.Render, view.Admin, "", "admin"},
		{"success wins over loading", view.Input{Path: "/success", Host: view.DefaultAppHost, Loading: true}, view.Render, view.Success, "", "success"},
		{"cancel wins over loading", view.Input{Path: "/cancel", Loading: true}, view.Render, view.Cancel, "", "cancel"},
		{"loading suspends app root", view.Input{Path: "/", Host: view.DefaultAppHost, Loading: true}, view.Suspend, "", "", "loading"},
		{"loading suspends protected", view.Input{Path: "/dashboard", Host: marketingHost, Loading: true}, view.Suspend, "", "", "loading"},
		{"app root without identity shows login", view.Input{Path: "/", Host: view.DefaultAppHost}, view.Render, view.Login, "", "app-root"},
		{"app root unlocked shows dashboard", view.Input{Path: "/", Host: view.DefaultAppHost, Identity: user, Enrollment: unlocked()}, view.Render, view.Dashboard, "", "app-root"},
		{"app root locked shows payment", view.Input{Path: "/", Host: view.DefaultAppHost, Identity: user, Enrollment: locked()}, view.Render, view.Payment, "", "app-root"},
		{"app root without enrollment redirects to pricing", view.Input{Path: "/", Host: view.DefaultAppHost, Identity: user}, view.Redirect, "", view.DefaultPricingURL, "app-root"},
		{"localhost is an app host", view.Input{Path: "/", Host: "localhost:8080"}, view.Render, view.Login, "", "app-root"},
		{"protected without identity redirects to app root", view.Input{Path: "/dashboard", Host: marketingHost}, view.Redirect, "", view.DefaultAppRootURL, "protected"},
		{"program subpath unlocked shows dashboard", view.Input{Path: "/program/3", Host: marketingHost, Identity: user, Enrollment: unlocked()}, view.Render, view.Dashboard, "", "protected"},
		{"program locked shows payment", view.Input{Path: "/program", Host: marketingHost, Identity: user, Enrollment: locked()}, view.Render, view.Payment, "", "protected"},
		{"protected without enrollment shows landing", view.Input{Path: "/dashboard", Host: marketingHost, Identity: user}, view.Render, view.Landing, "", "protected"},
		{"protected on app host non-root", view.Input{Path: "/program/1", Host: view.DefaultAppHost}, view.Redirect, "", view.DefaultAppRootURL, "protected"},
		{"marketing root is landing", view.Input{Path: "/", Host: marketingHost}, view.Render, view.Landing, "", "public"},
		{"marketing root ignores session", view.Input{Path: "/", Host: marketingHost, Identity: user, Enrollment: unlocked()}, view.Render, view.Landing, "", "public"},
		{"programs is not protected", view.Input{Path: "/programs", Host: marketingHost}, view.Render, view.Landing, "", "public"},
		{"payment-required is public", view.Input{Path: "/payment-required", Host: view.DefaultAppHost, Identity: user, Enrollment: locked()}, view.Render, view.Landing, "", "public"},
	}

	r := newRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Decide(tt.in)
			if d.Outcome != tt.outcome {
				t.Fatalf("Outcome = %v, want %v", d.Outcome, tt.outcome)
			}
			if d.View != tt.view {
				t.Errorf("View = %q, want %q", d.View, tt.view)
			}
			if d.RedirectURL != tt.redirect {
				t.Errorf("RedirectURL = %q, want %q", d.RedirectURL, tt.redirect)
			}
			if d.Rule != tt.rule {
				t.Errorf("Rule = %q, want %q", d.Rule, tt.rule)
			}
		})
	}
}

// TestRouter_DecideIsPure verifies repeated evaluation gives the same answer.
func TestRouter_DecideIsPure(t *testing.T) {
	r := newRouter()
	in := view.Input{Path: "/program/3", Host: marketingHost, Identity: user, Enrollment: unlocked()}
	first := r.Decide(in)
	for i := 0; i < 50; i++ {
		if got := r.Decide(in); got != first {
			t.Fatalf("iteration %d: got %+v, want %+v", i, got, first)
		}
	}
}

// TestRouter_CustomHostsAndURLs verifies configuration overrides the defaults.
func TestRouter_CustomHostsAndURLs(t *testing.T) {
	r := view.NewRouter(view.Config{
		AppHosts:   []string{"portal.test"},
		PricingURL: "https://www.test/pricing",
		AppRootURL: "https://portal.test",
	})

	d := r.Decide(view.Input{Path: "/", Host: "PORTAL.test:443", Identity: user})
	if d.Outcome != view.Redirect || d.RedirectURL != "https://www.test/pricing" {
		t.Fatalf("got %+v, want redirect to custom pricing", d)
	}

	d = r.Decide(view.Input{Path: "/", Host: "localhost"})
	if d.View != view.Landing {
		t.Fatalf("localhost should not be an app host when hosts are configured, got %+v", d)
	}

	d = r.Decide(view.Input{Path: "/dashboard", Host: "www.test"})
	if d.RedirectURL != "https://portal.test" {
		t.Fatalf("RedirectURL = %q, want custom app root", d.RedirectURL)
	}
}

// TestRules_Precedence verifies the table order never changes.
func TestRules_Precedence(t *testing.T) {
	want := []string{"admin", "success", "cancel", "loading", "app-root", "protected", "public"}
	rules := view.Rules()
	if len(rules) != len(want) {
		t.Fatalf("len(rules) = %d, want %d", len(rules), len(want))
	}
	for i, r := range rules {
		if r.Name != want[i] {
			t.Errorf("rules[%d] = %q, want %q", i, r.Name, want[i])
		}
	}
}

// TestIsProtectedPath tests protected path classification.
func TestIsProtectedPath(t *testing.T) {
	tests := map[string]bool{
		"/dashboard":   true,
		"/program":     true,
		"/program/":    true,
		"/program/3":   true,
		"/":            false,
		"/programs":    false,
		"/dashboard/x": false,
		"/admin":       false,
	}
	for path, want := range tests {
		if got := view.IsProtectedPath(path); got != want {
			t.Errorf("IsProtectedPath(%q) = %v, want %v", path, got, want)
		}
	}
}

// TestAfterSignIn tests post sign-in navigation.
func TestAfterSignIn(t *testing.T) {
	tests := []struct {
		name string
		e    *enrollment.Enrollment
		want view.Navigation
	}{
		{"no enrollment", nil, view.Navigation{Path: "/", View: view.Landing}},
		{"locked", locked(), view.Navigation{Path: "/payment-required", View: view.Payment}},
		{"unlocked", unlocked(), view.Navigation{Path: "/program", View: view.Dashboard}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := view.AfterSignIn(tt.e); got != tt.want {
				t.Errorf("AfterSignIn() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
