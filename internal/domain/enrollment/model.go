package enrollment

import (
	"errors"
	"strings"
	"time"
)

// Enrollment status values.
const (
	StatusUnpaid = "unpaid"
	StatusPaid   = "paid"
)

// Program access values.
const (
	AccessLocked   = "locked"
	AccessUnlocked = "unlocked"
)

// DefaultPaymentAmount is the enrollment price in dollars.
const DefaultPaymentAmount = 97.0

// PaymentMethodManual marks a payment confirmed by an administrator.
const PaymentMethodManual = "manual_confirmation"

// Domain errors
var (
	ErrDuplicateEnrollment = errors.New("already enrolled in this program")
	ErrNotFound            = errors.New("enrollment not found")
	ErrEmptyUserID         = errors.New("user id cannot be empty")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrInvalidStatus       = errors.New("enrollment status must be one of: unpaid, paid")
	ErrInvalidAccess       = errors.New("program access must be one of: locked, unlocked")
	ErrAccessMismatch      = errors.New("program access must be unlocked exactly when the enrollment is paid and confirmed")
	ErrNegativeAmount      = errors.New("payment amount cannot be negative")
	ErrAlreadyConfirmed    = errors.New("payment is already confirmed")
)

// Enrollment tracks a user's payment and program access. One per user.
type Enrollment struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	Email              string     `json:"email"`
	EnrollmentStatus   string     `json:"enrollment_status"`
	ProgramAccess      string     `json:"program_access"`
	PaymentAmount      float64    `json:"payment_amount"`
	PaymentMethod      string     `json:"payment_method,omitempty"`
	PaymentConfirmedAt *time.Time `json:"payment_confirmed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// New returns an unpaid, locked enrollment for the given user.
// PRE: userID and email are non-empty
// POST: EnrollmentStatus is unpaid, ProgramAccess is locked
func New(id, userID, email string, amount float64, now time.Time) Enrollment {
	return Enrollment{
		ID:               id,
		UserID:           userID,
		Email:            email,
		EnrollmentStatus: StatusUnpaid,
		ProgramAccess:    AccessLocked,
		PaymentAmount:    amount,
		CreatedAt:        now,
	}
}

// Validate checks if the Enrollment has valid data.
// PRE: Enrollment struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Enrollment) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(e.Email) == "" {
		return ErrEmptyEmail
	}
	if e.EnrollmentStatus != StatusUnpaid && e.EnrollmentStatus != StatusPaid {
		return ErrInvalidStatus
	}
	if e.ProgramAccess != AccessLocked && e.ProgramAccess != AccessUnlocked {
		return ErrInvalidAccess
	}
	if e.PaymentAmount < 0 {
		return ErrNegativeAmount
	}
	unlocked := e.ProgramAccess == AccessUnlocked
	confirmed := e.EnrollmentStatus == StatusPaid && e.PaymentConfirmedAt != nil
	if unlocked != confirmed {
		return ErrAccessMismatch
	}
	return nil
}

// ConfirmPayment marks the enrollment paid and unlocks program access in one step.
// PRE: Enrollment is unpaid
// POST: EnrollmentStatus is paid, ProgramAccess is unlocked, PaymentConfirmedAt is now
// INVARIANT: status and access are never set independently
func (e *Enrollment) ConfirmPayment(method string, now time.Time) error {
	if e.EnrollmentStatus == StatusPaid {
		return ErrAlreadyConfirmed
	}
	confirmedAt := now
	e.EnrollmentStatus = StatusPaid
	e.ProgramAccess = AccessUnlocked
	e.PaymentMethod = method
	e.PaymentConfirmedAt = &confirmedAt
	return nil
}

// IsUnlocked returns true if the program content is available to the user.
// INVARIANT: Enrollment fields are not mutated
func (e *Enrollment) IsUnlocked() bool {
	return e.ProgramAccess == AccessUnlocked
}

// IsPaid returns true if the payment has been confirmed.
// INVARIANT: Enrollment fields are not mutated
func (e *Enrollment) IsPaid() bool {
	return e.EnrollmentStatus == StatusPaid
}
