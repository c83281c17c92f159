package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mastery/internal/adapters/metrics"
	"mastery/internal/domain/lead"
)

// LeadStore is the lead persistence used by the capture flow.
type LeadStore interface {
	GetByEmail(ctx context.Context, email string) (lead.Lead, error)
	Insert(ctx context.Context, l lead.Lead) error
	Update(ctx context.Context, l lead.Lead) error
}

// RoadmapMailer asks the email function to deliver the roadmap.
type RoadmapMailer interface {
	SendRoadmap(ctx context.Context, firstName, email string) (string, error)
}

// CaptureLeadDeps holds dependencies for ExecuteCaptureLead.
type CaptureLeadDeps struct {
	Leads  LeadStore
	Mailer RoadmapMailer
	// InFlight is shared across requests; keyed by lowercased email.
	InFlight   *InFlight
	Metrics    metrics.Recorder
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteCaptureLead stores a roadmap request and sends the roadmap email.
// PRE: none
// POST: Returns Idle for automated submissions (nothing stored or sent), Failed with a
// user-facing message, or Succeeded once the lead is stored and the email accepted
// INVARIANT: the email is only requested after the upsert succeeds; the upsert is never rolled back
func ExecuteCaptureLead(ctx context.Context, sub lead.Submission, deps CaptureLeadDeps) lead.CaptureState {
	rec := metrics.OrNop(deps.Metrics)
	if deps.Now == nil {
		deps.Now = time.Now
	}

	if sub.IsBot() {
		rec.RecordLeadCapture("honeypot")
		slog.Info("lead_event", "event", "honeypot_tripped")
		return lead.Idle{}
	}
	if err := sub.Validate(); err != nil {
		rec.RecordLeadCapture("invalid")
		return lead.Failed{Message: lead.MsgInvalidForm}
	}

	email := sub.NormalizedEmail()
	if deps.InFlight != nil {
		release, ok := deps.InFlight.Acquire(email)
		if !ok {
			rec.RecordLeadCapture("in_progress")
			return lead.Failed{Message: lead.MsgSubmissionInProgress}
		}
		defer release()
	}

	created, err := upsertLead(ctx, sub, email, deps)
	if err != nil {
		rec.RecordLeadCapture("store_failed")
		slog.Error("lead_upsert_failed", "error", err)
		return lead.Failed{Message: lead.MsgGenericFailure}
	}

	emailID, err := deps.Mailer.SendRoadmap(ctx, sub.FirstName, email)
	if err != nil {
		ese := externalError("send-roadmap-email", err, lead.MsgSendFailed)
		rec.RecordLeadCapture("send_failed")
		slog.Warn("roadmap_send_failed", "status", ese.Status, "error", err)
		return lead.Failed{Message: ese.Message}
	}

	rec.RecordLeadCapture("succeeded")
	slog.Info("lead_event", "event", "lead_captured", "created", created, "email_id", emailID)
	return lead.Succeeded{}
}

// upsertLead updates the lead stored under email or inserts a new one.
func upsertLead(ctx context.Context, sub lead.Submission, email string, deps CaptureLeadDeps) (bool, error) {
	now := deps.Now().UTC()
	existing, err := deps.Leads.GetByEmail(ctx, email)
	switch {
	case err == nil:
		existing.Apply(sub, now)
		return false, deps.Leads.Update(ctx, existing)
	case errors.Is(err, lead.ErrNotFound):
		l := lead.Lead{ID: deps.GenerateID(), Email: email, CreatedAt: now}
		l.Apply(sub, now)
		return true, deps.Leads.Insert(ctx, l)
	default:
		return false, err
	}
}
