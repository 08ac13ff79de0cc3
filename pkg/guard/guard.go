// Package guard decides whether a contact form submission may be forwarded
// to the mail relay. It performs no I/O: rate limit state comes in and goes
// out as values, and storing it is the caller's job.
package guard

import (
	"strings"
	"time"

	"contact-guard/pkg/models"
)

// Submission holds the sanitized fields of an accepted form
type Submission struct {
	Name    string
	Email   string
	Phone   string
	Service string
	Message string

	// Plain is the same form trimmed but not escaped, for channels that
	// never render HTML such as SMS.
	Plain Fields
}

// Fields is a contact form's text after trimming
type Fields struct {
	Name    string
	Email   string
	Phone   string
	Service string
	Message string
}

// Guard runs the submission pipeline for a fixed policy
type Guard struct {
	policy    Policy
	validator *fieldValidator
	spam      *spamFilter
}

// New creates a guard enforcing policy
func New(policy Policy) *Guard {
	return &Guard{
		policy:    policy,
		validator: newFieldValidator(policy),
		spam:      newSpamFilter(policy),
	}
}

// Policy returns the policy the guard enforces
func (g *Guard) Policy() Policy {
	return g.policy
}

// Evaluate runs the honeypot, rate limit, sanitization, validation and spam
// stages in order and stops at the first one that fails.
//
// The returned state is the input rolled to now; it is what the caller
// should pass to RecordDispatch once the relay accepts the message. On
// ErrHoneypotTriggered the caller reports success and stores nothing.
func (g *Guard) Evaluate(form models.ContactForm, state RateLimitState, now time.Time) (Submission, RateLimitState, error) {
	// People never see the field, so even a lone space was typed by a bot.
	if form.Website != "" {
		return Submission{}, state, ErrHoneypotTriggered
	}

	state = state.Roll(now, g.policy.DailyWindow)
	if err := checkRateLimit(state, now, g.policy); err != nil {
		return Submission{}, state, err
	}

	plain := Fields{
		Name:    strings.TrimSpace(form.Name),
		Email:   strings.TrimSpace(form.Email),
		Phone:   strings.TrimSpace(form.Phone),
		Service: strings.TrimSpace(form.Service),
		Message: strings.TrimSpace(form.Message),
	}

	submission := Submission{
		Name:    Sanitize(plain.Name),
		Email:   Sanitize(plain.Email),
		Phone:   Sanitize(plain.Phone),
		Service: Sanitize(plain.Service),
		Message: Sanitize(plain.Message),
		Plain:   plain,
	}

	// Lengths and grammars apply to what the person typed, not to the
	// escaped form, so an apostrophe does not count as six characters.
	if err := g.validator.check(plain.Name, plain.Email, plain.Phone, plain.Service, plain.Message); err != nil {
		return Submission{}, state, err
	}

	if g.spam.matches(plain.Name, plain.Message) {
		return Submission{}, state, &Rejection{
			Kind:    ErrSpamDetected,
			Message: "Votre message contient du contenu suspect. Veuillez le reformuler.",
		}
	}

	return submission, state, nil
}

// Commit returns the state to persist after the relay accepted a submission
func (g *Guard) Commit(state RateLimitState, now time.Time) RateLimitState {
	return state.RecordDispatch(now, g.policy.DailyWindow)
}
