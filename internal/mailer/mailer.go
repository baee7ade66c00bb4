package mailer

import "embed"

const (
	FromName               = "CamRent"
	maxRetries             = 3
	UserWelcomeTemplate    = "user_invitation.tmpl"
	BookingReceiptTemplate = "booking_receipt.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
