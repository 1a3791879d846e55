// Package email sends transactional messages.
package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SendGrid struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGrid builds a SendGrid mailer. An empty host uses the public API.
func NewSendGrid(apiKey, host, from, fromName string) *SendGrid {
	var client *sendgrid.Client
	if host == "" {
		client = sendgrid.NewSendClient(apiKey)
	} else {
		req := sendgrid.GetRequest(apiKey, "/v3/mail/send", host)
		req.Method = "POST"
		client = &sendgrid.Client{Request: req}
	}

	return &SendGrid{
		client: client,
		from:   mail.NewEmail(fromName, from),
	}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	m := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Text, msg.HTML)

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sending email to %s: %w", msg.To, err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sending email to %s: sendgrid status %d: %s", msg.To, resp.StatusCode, resp.Body)
	}
	return nil
}

// Log only records messages; used in development.
type Log struct {
	log logrus.FieldLogger
}

func NewLog(log logrus.FieldLogger) *Log {
	return &Log{log: log}
}

func (l *Log) Send(ctx context.Context, msg Message) error {
	l.log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("email")
	return nil
}
