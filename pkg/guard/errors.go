package guard

import (
	"errors"
)

var (
	ErrHoneypotTriggered = errors.New("honeypot field populated")
	ErrRateLimited       = errors.New("rate limited")
	ErrFieldInvalid      = errors.New("invalid field")
	ErrSpamDetected      = errors.New("suspicious content")
	ErrDispatchFailed    = errors.New("dispatch failed")
)

// Reason codes reported to the page alongside a rejection
const (
	ReasonRateLimited    = "rate_limited"
	ReasonFieldInvalid   = "field_invalid"
	ReasonSpamDetected   = "spam_detected"
	ReasonDispatchFailed = "dispatch_failed"
)

// Rejection is a terminal outcome for one submission attempt.
// Message is written for the person filling in the form.
type Rejection struct {
	Kind    error
	Field   string
	Message string
}

func (r *Rejection) Error() string {
	if r.Field != "" {
		return r.Kind.Error() + ": " + r.Field
	}
	return r.Kind.Error()
}

func (r *Rejection) Unwrap() error {
	return r.Kind
}

// Reason returns the code matching the rejection's kind
func (r *Rejection) Reason() string {
	switch {
	case errors.Is(r.Kind, ErrRateLimited):
		return ReasonRateLimited
	case errors.Is(r.Kind, ErrFieldInvalid):
		return ReasonFieldInvalid
	case errors.Is(r.Kind, ErrSpamDetected):
		return ReasonSpamDetected
	case errors.Is(r.Kind, ErrDispatchFailed):
		return ReasonDispatchFailed
	}
	return ""
}

func rejectField(field, message string) *Rejection {
	return &Rejection{Kind: ErrFieldInvalid, Field: field, Message: message}
}
