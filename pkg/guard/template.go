package guard

import (
	"fmt"
	"time"
)

const phoneNotProvided = "Non renseigné"

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormatFrenchDate renders t as "15 octobre 2026"
func FormatFrenchDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
}

// FormatFrenchTime renders t as "14:30"
func FormatFrenchTime(t time.Time) string {
	return t.Format("15:04")
}

// TemplateParams builds the field map the email template expects.
// now is rendered in loc; a nil loc means UTC.
func (g *Guard) TemplateParams(s Submission, now time.Time, loc *time.Location) map[string]string {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	phone := s.Phone
	if phone == "" {
		phone = phoneNotProvided
	}

	return map[string]string{
		"from_name":  s.Name,
		"from_email": s.Email,
		"phone":      phone,
		"service":    g.policy.ServiceLabel(s.Service),
		"message":    s.Message,
		"date":       FormatFrenchDate(local),
		"time":       FormatFrenchTime(local),
	}
}
