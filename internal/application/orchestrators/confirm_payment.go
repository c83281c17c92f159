package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"mastery/internal/adapters/metrics"
	"mastery/internal/domain/enrollment"
)

// ErrConfirmationInProgress means another confirmation for the same row is running.
var ErrConfirmationInProgress = errors.New("a confirmation for this enrollment is already running")

// ErrMissingUserID means no enrollment row was named.
var ErrMissingUserID = errors.New("user id is required")

// PaymentConfirmer applies the confirm-payment action to a stored enrollment.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, userID, method string) (enrollment.Enrollment, error)
}

// ConfirmPaymentInput names the enrollment row and the admin acting on it.
type ConfirmPaymentInput struct {
	UserID     string
	AdminEmail string
}

// ConfirmPaymentDeps holds dependencies for ExecuteConfirmPayment.
type ConfirmPaymentDeps struct {
	Enrollments PaymentConfirmer
	// InFlight is shared across requests; keyed by user id.
	InFlight *InFlight
	Metrics  metrics.Recorder
}

// ExecuteConfirmPayment marks an enrollment paid and unlocks program access.
// PRE: caller has verified the admin session
// POST: Enrollment is paid, unlocked and confirmed; or an error with the row unchanged
// INVARIANT: at most one confirmation per row is in flight
func ExecuteConfirmPayment(ctx context.Context, in ConfirmPaymentInput, deps ConfirmPaymentDeps) (enrollment.Enrollment, error) {
	rec := metrics.OrNop(deps.Metrics)
	if in.UserID == "" {
		return enrollment.Enrollment{}, ErrMissingUserID
	}

	if deps.InFlight != nil {
		release, ok := deps.InFlight.Acquire(in.UserID)
		if !ok {
			rec.RecordPaymentConfirmation("in_progress")
			return enrollment.Enrollment{}, ErrConfirmationInProgress
		}
		defer release()
	}

	e, err := deps.Enrollments.ConfirmPayment(ctx, in.UserID, enrollment.PaymentMethodManual)
	switch {
	case err == nil:
	case errors.Is(err, enrollment.ErrNotFound):
		rec.RecordPaymentConfirmation("not_found")
		return enrollment.Enrollment{}, err
	case errors.Is(err, enrollment.ErrAlreadyConfirmed):
		rec.RecordPaymentConfirmation("already_confirmed")
		return enrollment.Enrollment{}, err
	default:
		rec.RecordPaymentConfirmation("failed")
		slog.Error("payment_confirm_failed", "user_id", in.UserID, "error", err)
		return enrollment.Enrollment{}, err
	}

	rec.RecordPaymentConfirmation("confirmed")
	slog.Info("admin_event", "event", "payment_confirmed", "user_id", in.UserID, "enrollment_id", e.ID, "admin", in.AdminEmail)
	return e, nil
}
