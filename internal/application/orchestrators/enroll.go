package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mastery/internal/adapters/functions"
	"mastery/internal/adapters/metrics"
	"mastery/internal/domain/enrollment"
	"mastery/internal/domain/identity"
)

// ErrSubmissionInProgress is returned when the same user already has a submission running.
var ErrSubmissionInProgress = errors.New(enrollment.MsgSubmissionInProgress)

// EnrollmentCreator inserts new enrollments.
type EnrollmentCreator interface {
	Create(ctx context.Context, e enrollment.Enrollment) error
}

// CheckoutSessions creates hosted checkout pages.
type CheckoutSessions interface {
	CreateSession(ctx context.Context, userID, email string) (string, error)
}

// SubmitEnrollmentDeps holds dependencies for the enrollment submission flow.
type SubmitEnrollmentDeps struct {
	Enrollments EnrollmentCreator
	Checkout    CheckoutSessions
	// InFlight is shared across requests; keyed by user id.
	InFlight   *InFlight
	Metrics    metrics.Recorder
	Amount     float64
	GenerateID func() string
	Now        func() time.Time
}

// EnrollmentFlow is one instance of the submission state machine:
// Idle -> Submitting -> Redirecting | Failed, where Failed returns the flow to Idle.
type EnrollmentFlow struct {
	deps SubmitEnrollmentDeps

	mu    sync.Mutex
	state enrollment.FlowState
}

// NewEnrollmentFlow creates an Idle flow.
func NewEnrollmentFlow(deps SubmitEnrollmentDeps) *EnrollmentFlow {
	if deps.InFlight == nil {
		deps.InFlight = NewInFlight()
	}
	deps.Metrics = metrics.OrNop(deps.Metrics)
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &EnrollmentFlow{deps: deps, state: enrollment.Idle{}}
}

// State returns the current state of the flow.
func (f *EnrollmentFlow) State() enrollment.FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submit runs the flow for id.
// PRE: none
// POST: Returns Redirecting with the checkout URL, Failed with a user-facing message, or
// the unchanged state when id is nil or the flow is already redirecting
// INVARIANT: the enrollment record is created (or found to exist) before checkout is called
func (f *EnrollmentFlow) Submit(ctx context.Context, id *identity.Identity) (enrollment.FlowState, error) {
	f.mu.Lock()
	switch f.state.(type) {
	case enrollment.Redirecting:
		st := f.state
		f.mu.Unlock()
		return st, nil
	case enrollment.Submitting:
		f.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	if id == nil {
		st := f.state
		f.mu.Unlock()
		return st, nil
	}

	release, ok := f.deps.InFlight.Acquire(id.ID)
	if !ok {
		f.mu.Unlock()
		f.deps.Metrics.RecordEnrollmentSubmission("in_progress")
		slog.Info("enrollment_event", "event", "submission_rejected_in_flight", "user_id", id.ID)
		return nil, ErrSubmissionInProgress
	}
	defer release()
	f.state = enrollment.Submitting{}
	f.mu.Unlock()

	outcome, final := f.run(ctx, *id)
	f.deps.Metrics.RecordEnrollmentSubmission(outcome)

	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := final.(enrollment.Redirecting); ok {
		f.state = r
	} else {
		f.state = enrollment.Idle{}
	}
	return final, nil
}

func (f *EnrollmentFlow) run(ctx context.Context, id identity.Identity) (string, enrollment.FlowState) {
	e := enrollment.New(f.deps.GenerateID(), id.ID, id.Email, f.deps.Amount, f.deps.Now().UTC())
	if err := f.deps.Enrollments.Create(ctx, e); err != nil {
		if errors.Is(err, enrollment.ErrDuplicateEnrollment) {
			slog.Info("enrollment_event", "event", "enrollment_duplicate", "user_id", id.ID)
			return "duplicate", enrollment.Failed{Message: enrollment.MsgAlreadyEnrolled, Duplicate: true}
		}
		slog.Error("enrollment_create_failed", "user_id", id.ID, "error", err)
		return "failed", enrollment.Failed{Message: enrollment.MsgGenericFailure}
	}
	slog.Info("enrollment_created", "enrollment_id", e.ID, "user_id", id.ID, "amount", e.PaymentAmount)

	url, err := f.deps.Checkout.CreateSession(ctx, id.ID, id.Email)
	if err != nil {
		ese := externalError("create-checkout-session", err, enrollment.MsgCheckoutFailed)
		if errors.Is(err, functions.ErrNoCheckoutURL) {
			ese.Message = enrollment.MsgNoCheckoutURL
		}
		slog.Warn("checkout_failed", "user_id", id.ID, "status", ese.Status, "error", err)
		return "checkout_failed", enrollment.Failed{Message: ese.Message}
	}

	slog.Info("checkout_session_created", "user_id", id.ID)
	return "redirecting", enrollment.Redirecting{URL: url}
}
