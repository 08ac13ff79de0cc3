package models

// Represents the data structure coming from the site's contact form
type ContactForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Service string `json:"service"`
	Message string `json:"message"`

	// Hidden from humans by the page's CSS; bots fill it in.
	Website string `json:"website"`
}

// NotificationKind is how the page should style a notification
type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
)

// Notification is the outcome reported back to the contact page
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	Field   string           `json:"field,omitempty"`
	Reason  string           `json:"reason,omitempty"`
}
