package core

import (
	"bytes"
	"net/mail"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		Template     *texttmpl.Template
		TemplateData interface{}
		TextContent  string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render resolves the message's final text content; templated content wins
// over BodyStr.
func (m *EmailMessage) Render() error {
	if m.Template != nil {
		var buf bytes.Buffer
		if err := m.Template.Execute(&buf, m.TemplateData); err != nil {
			return errors.Wrap(err, "executing email template")
		}
		m.TextContent = buf.String()
		return nil
	}
	m.TextContent = m.BodyStr
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" || m.BodyStr != "" }
