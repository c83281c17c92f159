package lead

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Interest reasons offered on the roadmap form.
const (
	ReasonCareerChange  = "Career change"
	ReasonWorkRemotely  = "I want to work remotely"
	ReasonMoreIncome    = "More income"
	ReasonSomethingElse = "Something else"
)

// Discovery sources offered on the roadmap form.
const (
	SourceYouTube   = "YouTube"
	SourceFacebook  = "Facebook"
	SourceTikTok    = "TikTok"
	SourceInstagram = "Instagram"
	SourceLinkedIn  = "LinkedIn"
	SourceFriend    = "Friend / Family Member"
	SourceCoworker  = "Co-worker"
	SourceOther     = "Other"
)

// InterestReasons lists valid interest reasons in display order.
var InterestReasons = []string{ReasonCareerChange, ReasonWorkRemotely, ReasonMoreIncome, ReasonSomethingElse}

// DiscoverySources lists valid discovery sources in display order.
var DiscoverySources = []string{
	SourceYouTube, SourceFacebook, SourceTikTok, SourceInstagram,
	SourceLinkedIn, SourceFriend, SourceCoworker, SourceOther,
}

// MaxFieldLength caps free-text fields.
const MaxFieldLength = 254

// MsgInvalidForm is shown when any field is missing or malformed.
const MsgInvalidForm = "Please fill out all required fields with valid information."

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Domain errors
var (
	ErrInvalidForm = errors.New(MsgInvalidForm)
	ErrNotFound    = errors.New("lead not found")
)

// Lead is a roadmap request, keyed by lowercased email.
type Lead struct {
	ID              string
	FirstName       string
	LastName        string
	Email           string
	InterestReason  string
	DiscoverySource string
	UserAgent       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Submission is the raw roadmap form as posted by the browser.
type Submission struct {
	FirstName       string
	LastName        string
	Email           string
	InterestReason  string
	DiscoverySource string
	Honeypot        string
	UserAgent       string
}

// IsBot reports whether the hidden anti-automation field was filled in.
// INVARIANT: Submission fields are not mutated
func (s Submission) IsBot() bool {
	return s.Honeypot != ""
}

// Validate checks that every field is present and the email is well formed.
// PRE: none
// POST: Returns ErrInvalidForm if any check fails
func (s Submission) Validate() error {
	if strings.TrimSpace(s.FirstName) == "" ||
		strings.TrimSpace(s.LastName) == "" ||
		strings.TrimSpace(s.Email) == "" {
		return ErrInvalidForm
	}
	if len(s.FirstName) > MaxFieldLength || len(s.LastName) > MaxFieldLength || len(s.Email) > MaxFieldLength {
		return ErrInvalidForm
	}
	if !emailPattern.MatchString(s.Email) {
		return ErrInvalidForm
	}
	if !contains(InterestReasons, s.InterestReason) || !contains(DiscoverySources, s.DiscoverySource) {
		return ErrInvalidForm
	}
	return nil
}

// NormalizedEmail returns the lookup key for the submission.
func (s Submission) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(s.Email))
}

// Apply copies the mutable fields of the submission onto the lead.
// PRE: Submission has been validated
// POST: Name, interest reason, discovery source and user agent are refreshed; ID and Email unchanged
func (l *Lead) Apply(s Submission, now time.Time) {
	l.FirstName = strings.TrimSpace(s.FirstName)
	l.LastName = strings.TrimSpace(s.LastName)
	l.InterestReason = s.InterestReason
	l.DiscoverySource = s.DiscoverySource
	l.UserAgent = s.UserAgent
	l.UpdatedAt = now
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
