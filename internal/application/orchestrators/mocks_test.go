package orchestrators

import (
	"context"
	"fmt"
	"sync"
	"time"

	emailAdapter "mastery/internal/adapters/email"
	"mastery/internal/domain/enrollment"
	"mastery/internal/domain/lead"
)

// --- Metrics ---

type fakeRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{counts: make(map[string]int)}
}

func (r *fakeRecorder) inc(key string) {
	r.mu.Lock()
	r.counts[key]++
	r.mu.Unlock()
}

func (r *fakeRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

func (r *fakeRecorder) RecordEnrollmentSubmission(o string) { r.inc("enrollment:" + o) }
func (r *fakeRecorder) RecordLeadCapture(o string) { r.inc("lead:" + o) }
func (r *fakeRecorder) RecordRoadmapEmail(o string) { r.inc("roadmap:" + o) }
func (r *fakeRecorder) RecordPaymentConfirmation(o string) { r.inc("confirm:" + o) }
func (r *fakeRecorder) RecordRequest(string, int, time.Duration) {}
func (r *fakeRecorder) RecordQuery(string, time.Duration) {}

// --- Enrollment store ---

type mockEnrollments struct {
	mu        sync.Mutex
	byUser    map[string]enrollment.Enrollment
	createErr error
	confirmFn func(userID string) (enrollment.Enrollment, error)
	creates   int
}

func newMockEnrollments() *mockEnrollments {
	return &mockEnrollments{byUser: make(map[string]enrollment.Enrollment)}
}

func (m *mockEnrollments) Create(_ context.Context, e enrollment.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byUser[e.UserID]; ok {
		return enrollment.ErrDuplicateEnrollment
	}
	m.byUser[e.UserID] = e
	return nil
}

func (m *mockEnrollments) ConfirmPayment(_ context.Context, userID, method string) (enrollment.Enrollment, error) {
	if m.confirmFn != nil {
		return m.confirmFn(userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byUser[userID]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	if err := e.ConfirmPayment(method, time.Now()); err != nil {
		return enrollment.Enrollment{}, err
	}
	m.byUser[userID] = e
	return e, nil
}

// --- Checkout ---

type mockCheckout struct {
	mu    sync.Mutex
	url   string
	err   error
	calls int
	// block, when set, is waited on before answering.
	block chan struct{}
	// entered, when set, is closed on the first call.
	entered chan struct{}
}

func (m *mockCheckout) CreateSession(_ context.Context, _, _ string) (string, error) {
	m.mu.Lock()
	m.calls++
	if m.entered != nil && m.calls == 1 {
		close(m.entered)
	}
	m.mu.Unlock()
	if m.block != nil {
		<-m.block
	}
	return m.url, m.err
}

func (m *mockCheckout) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Lead store ---

type mockLeads struct {
	mu      sync.Mutex
	byEmail map[string]lead.Lead
	getErr  error
	inserts int
	updates int
}

func newMockLeads() *mockLeads {
	return &mockLeads{byEmail: make(map[string]lead.Lead)}
}

func (m *mockLeads) GetByEmail(_ context.Context, email string) (lead.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return lead.Lead{}, m.getErr
	}
	l, ok := m.byEmail[email]
	if !ok {
		return lead.Lead{}, lead.ErrNotFound
	}
	return l, nil
}

func (m *mockLeads) Insert(_ context.Context, l lead.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	m.byEmail[l.Email] = l
	return nil
}

func (m *mockLeads) Update(_ context.Context, l lead.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	m.byEmail[l.Email] = l
	return nil
}

// --- Mailer ---

type mockMailer struct {
	mu      sync.Mutex
	err     error
	sent    []string
	block   chan struct{}
	entered chan struct{}
}

func (m *mockMailer) SendRoadmap(_ context.Context, firstName, email string) (string, error) {
	m.mu.Lock()
	m.sent = append(m.sent, firstName+"<"+email+">")
	if m.entered != nil && len(m.sent) == 1 {
		close(m.entered)
	}
	m.mu.Unlock()
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return "", m.err
	}
	return "email-1", nil
}

func (m *mockMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// --- Email sender ---

type failingSender struct{}

func (failingSender) Send(context.Context, emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	return emailAdapter.SendResult{}, fmt.Errorf("The from address is not verified")
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
