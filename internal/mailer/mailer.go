package mailer

import "context"

// Mailer is the outbound notification port. The identity core only
// depends on this contract; the transport behind it is configuration.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}
