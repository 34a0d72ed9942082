package mailer

import "context"

// Mailer delivers a message to a user's contact address. The account usecase
// composes subject and bodies; implementations only transport them.
type Mailer interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}
