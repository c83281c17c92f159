package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"mastery/internal/domain/enrollment"
)

// TestConfirmPayment_Unlocks verifies a confirmation unlocks the row.
func TestConfirmPayment_Unlocks(t *testing.T) {
	store := newMockEnrollments()
	store.byUser["u-1"] = enrollment.New("e-1", "u-1", "agent@example.com", 97, time.Now())
	rec := newFakeRecorder()

	e, err := ExecuteConfirmPayment(context.Background(), ConfirmPaymentInput{UserID: "u-1", AdminEmail: "boss@example.com"},
		ConfirmPaymentDeps{Enrollments: store, InFlight: NewInFlight(), Metrics: rec})
	if err != nil {
		t.Fatalf("ExecuteConfirmPayment() = %v", err)
	}
	if !e.IsPaid() || !e.IsUnlocked() || e.PaymentConfirmedAt == nil || e.PaymentMethod != enrollment.PaymentMethodManual {
		t.Errorf("confirmed enrollment = %+v", e)
	}
	if rec.count("confirm:confirmed") != 1 {
		t.Error("confirmed outcome not recorded")
	}
}

// TestConfirmPayment_Errors tests store error passthrough.
func TestConfirmPayment_Errors(t *testing.T) {
	store := newMockEnrollments()
	paid := enrollment.New("e-2", "u-2", "paid@example.com", 97, time.Now())
	_ = paid.ConfirmPayment(enrollment.PaymentMethodManual, time.Now())
	store.byUser["u-2"] = paid
	deps := ConfirmPaymentDeps{Enrollments: store, InFlight: NewInFlight()}

	tests := []struct {
		name   string
		userID string
		want   error
	}{
		{"missing id", "", ErrMissingUserID},
		{"unknown", "nobody", enrollment.ErrNotFound},
		{"already paid", "u-2", enrollment.ErrAlreadyConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExecuteConfirmPayment(context.Background(), ConfirmPaymentInput{UserID: tt.userID}, deps)
			if !errors.Is(err, tt.want) {
				t.Errorf("ExecuteConfirmPayment() = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestConfirmPayment_OneInFlightPerRow verifies a concurrent confirmation of the same row is rejected.
func TestConfirmPayment_OneInFlightPerRow(t *testing.T) {
	entered := make(chan struct{})
	block := make(chan struct{})
	store := newMockEnrollments()
	store.confirmFn = func(userID string) (enrollment.Enrollment, error) {
		close(entered)
		<-block
		e := enrollment.New("e-1", userID, "agent@example.com", 97, time.Now())
		_ = e.ConfirmPayment(enrollment.PaymentMethodManual, time.Now())
		return e, nil
	}
	deps := ConfirmPaymentDeps{Enrollments: store, InFlight: NewInFlight(), Metrics: newFakeRecorder()}

	done := make(chan error)
	go func() {
		_, err := ExecuteConfirmPayment(context.Background(), ConfirmPaymentInput{UserID: "u-1"}, deps)
		done <- err
	}()
	<-entered

	if _, err := ExecuteConfirmPayment(context.Background(), ConfirmPaymentInput{UserID: "u-1"}, deps); !errors.Is(err, ErrConfirmationInProgress) {
		t.Fatalf("concurrent confirm = %v, want ErrConfirmationInProgress", err)
	}
	close(block)
	if err := <-done; err != nil {
		t.Errorf("first confirm = %v", err)
	}
}
