package mailer

import (
	"context"
	"log"
)

// Log writes outbound mail to the process log instead of delivering it.
// This is the development fallback used when SMTP is unconfigured; the
// selection is logged at startup so the skip is observable.
type Log struct{}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Send(_ context.Context, to, subject, text, _ string) error {
	log.Printf("[MAIL] [INFO] to=%s subject=%q body=%q", to, subject, text)
	return nil
}
