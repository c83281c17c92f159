package enrollment

// FlowState is the state of one enrollment submission.
// Exactly one of Idle, Submitting, Redirecting or Failed.
type FlowState interface {
	flowState()
	// Name is the lower-case state name used in JSON responses and metrics.
	Name() string
}

// Idle means no submission is running.
type Idle struct{}

// Submitting means the enrollment record or checkout session is being created.
type Submitting struct{}

// Redirecting means a checkout session was created and the browser is leaving for URL.
// Terminal for the flow instance.
type Redirecting struct {
	URL string
}

// Failed carries a user-facing message. Duplicate is set when the user was already
// enrolled, which is shown as a notice rather than an error.
type Failed struct {
	Message   string
	Duplicate bool
}

func (Idle) flowState()        {}
func (Submitting) flowState()  {}
func (Redirecting) flowState() {}
func (Failed) flowState()      {}

// Name implements FlowState.
func (Idle) Name() string { return "idle" }

// Name implements FlowState.
func (Submitting) Name() string { return "submitting" }

// Name implements FlowState.
func (Redirecting) Name() string { return "redirecting" }

// Name implements FlowState.
func (Failed) Name() string { return "failed" }

// User-facing messages for the submission flow.
const (
	MsgAlreadyEnrolled      = "You are already enrolled in this program."
	MsgGenericFailure       = "Something went wrong. Please try again or contact support."
	MsgCheckoutFailed       = "Failed to create checkout session"
	MsgNoCheckoutURL        = "No checkout URL returned"
	MsgSubmissionInProgress = "Your enrollment is already being processed."
)
