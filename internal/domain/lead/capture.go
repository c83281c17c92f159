package lead

import "time"

// DismissDelay is how long the success message stays up before the form resets.
const DismissDelay = 4 * time.Second

// MsgSendFailed is the fallback when the email function gives no reason.
const MsgSendFailed = "Failed to send email"

// MsgGenericFailure is shown when the lead could not be stored.
const MsgGenericFailure = "Something went wrong. Please try again."

// CaptureState is the state of one roadmap submission.
// Exactly one of Idle, Submitting, Succeeded or Failed.
type CaptureState interface {
	captureState()
	// Name is the lower-case state name used in JSON responses and metrics.
	Name() string
}

// Idle means nothing was submitted (or the submission was discarded as automated).
type Idle struct{}

// Submitting means the lead is being stored or the email sent.
type Submitting struct{}

// Succeeded means the lead was stored and the roadmap email accepted.
type Succeeded struct{}

// Failed carries a user-facing message.
type Failed struct {
	Message string
}

func (Idle) captureState()       {}
func (Submitting) captureState() {}
func (Succeeded) captureState()  {}
func (Failed) captureState()     {}

// Name implements CaptureState.
func (Idle) Name() string { return "idle" }

// Name implements CaptureState.
func (Submitting) Name() string { return "submitting" }

// Name implements CaptureState.
func (Succeeded) Name() string { return "succeeded" }

// Name implements CaptureState.
func (Failed) Name() string { return "failed" }

// MsgSubmissionInProgress is shown when the same email is already being processed.
const MsgSubmissionInProgress = "Your roadmap request is already being processed."
