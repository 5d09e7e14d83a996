package mailer

import "context"

// Mailer defines the interface for sending verification emails. The
// rejected list names recipients the gateway refused; delivery counts
// as failed when it is non-empty.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, toEmail, toName, code, link string) (rejected []string, err error)
}
