package guard

import "strings"

var markupEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// Sanitize escapes the characters that carry meaning in HTML markup so the
// value can be rendered or logged without being interpreted.
func Sanitize(value string) string {
	return markupEscaper.Replace(value)
}
