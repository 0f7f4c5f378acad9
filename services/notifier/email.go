package notifysvc

import (
	"net/mail"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/notification"
)

// EmailSink forwards announcement notifications to the session user's
// mailbox. Best-effort by construction: the email service already sends
// asynchronously and swallows transport failures into logs.
type EmailSink struct {
	mailSvc core.EmailService
	// Recipient resolves the current session user's address; no address,
	// no email.
	Recipient func() (mail.Address, bool)
}

var _ notification.Sink = (*EmailSink)(nil)

func NewEmailSink(mailSvc core.EmailService, recipient func() (mail.Address, bool)) *EmailSink {
	return &EmailSink{mailSvc: mailSvc, Recipient: recipient}
}

func (s *EmailSink) Notify(rec notification.Record) {
	if rec.Category != notification.CategoryAnnouncement {
		return
	}
	to, ok := s.Recipient()
	if !ok {
		return
	}
	s.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{to},
		Subject: rec.Title,
		BodyStr: rec.Message,
	})
}
