package guard

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Local part and domain labels as accepted by the contact page.
var emailPattern = regexp.MustCompile(
	`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`,
)

// 0X XXXXXXXX, +33X XXXXXXXX or 0033X XXXXXXXX once separators are stripped
var frenchPhonePattern = regexp.MustCompile(`^(?:(?:\+|00)33|0)[1-9][0-9]{8}$`)

var phoneSeparators = strings.NewReplacer(" ", "", ".", "", "-", "")

type fieldValidator struct {
	validate *validator.Validate
	policy   Policy
}

func newFieldValidator(policy Policy) *fieldValidator {
	return &fieldValidator{
		validate: validator.New(),
		policy:   policy,
	}
}

// check validates the trimmed form fields in page order and stops at the
// first failure so the page can focus that field.
func (v *fieldValidator) check(name, email, phone, service, message string) error {
	if n := utf8.RuneCountInString(name); n < v.policy.NameMinLen || n > v.policy.NameMaxLen {
		return rejectField("name", fmt.Sprintf(
			"Le nom doit contenir entre %d et %d caractères.",
			v.policy.NameMinLen, v.policy.NameMaxLen,
		))
	}

	if !v.validEmail(email) {
		return rejectField("email", "Veuillez entrer une adresse email valide.")
	}

	if phone != "" && !ValidFrenchPhone(phone) {
		return rejectField("phone", "Veuillez entrer un numéro de téléphone français valide (ex : 06 12 34 56 78).")
	}

	if service == "" {
		return rejectField("service", "Veuillez sélectionner un service.")
	}

	if n := utf8.RuneCountInString(message); n < v.policy.MessageMinLen || n > v.policy.MessageMaxLen {
		return rejectField("message", fmt.Sprintf(
			"Le message doit contenir entre %d et %d caractères.",
			v.policy.MessageMinLen, v.policy.MessageMaxLen,
		))
	}

	return nil
}

func (v *fieldValidator) validEmail(email string) bool {
	if email == "" || len(email) > v.policy.EmailMaxLen {
		return false
	}
	if err := v.validate.Var(email, "required,email"); err != nil {
		return false
	}
	return emailPattern.MatchString(email)
}

// ValidFrenchPhone reports whether phone is a French number, ignoring
// spaces, dots and dashes.
func ValidFrenchPhone(phone string) bool {
	return frenchPhonePattern.MatchString(phoneSeparators.Replace(phone))
}
