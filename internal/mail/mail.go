// Package mail sends account verification emails.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"finarth/internal/log"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// ErrRejected marks a send the provider refused; retrying will not help.
var ErrRejected = errors.New("mail rejected")

type Sender interface {
	SendVerification(ctx context.Context, to, token string) error
}

// Message is a rendered email body pair.
type Message struct {
	Subject string
	Plain   string
	HTML    string
}

// VerificationLink joins the public base URL with the verify endpoint.
func VerificationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/api/users/verify?token=" + url.QueryEscape(token)
}

func VerificationMessage(link string) Message {
	return Message{
		Subject: "Verify your FinArth account",
		Plain:   fmt.Sprintf("Welcome to FinArth! Confirm your email address by opening %s", link),
		HTML:    fmt.Sprintf(`<p>Welcome to FinArth!</p><p><a href="%s">Confirm your email address</a></p>`, link),
	}
}

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	client  *sendgrid.Client
	from    *sgmail.Email
	baseURL string
	logger  *log.Logger
}

func NewSendGridSender(apiKey, from, baseURL string, logger *log.Logger) *SendGridSender {
	return &SendGridSender{
		client:  sendgrid.NewSendClient(apiKey),
		from:    sgmail.NewEmail("FinArth", from),
		baseURL: baseURL,
		logger:  logger.WithComponent(log.ComponentMail),
	}
}

func (s *SendGridSender) SendVerification(ctx context.Context, to, token string) error {
	msg := VerificationMessage(VerificationLink(s.baseURL, token))
	email := sgmail.NewSingleEmail(s.from, msg.Subject, sgmail.NewEmail("", to), msg.Plain, msg.HTML)

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if err := statusError(resp.StatusCode, resp.Body); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Verification email sent", "status", resp.StatusCode)
	return nil
}

// LogSender writes the verification link to the log instead of sending mail.
type LogSender struct {
	baseURL string
	logger  *log.Logger
}

func NewLogSender(baseURL string, logger *log.Logger) *LogSender {
	return &LogSender{baseURL: baseURL, logger: logger.WithComponent(log.ComponentMail)}
}

func (s *LogSender) SendVerification(ctx context.Context, to, token string) error {
	s.logger.InfoContext(ctx, "Verification email not sent, mail delivery disabled",
		"to", to,
		"link", VerificationLink(s.baseURL, token))
	return nil
}

// statusError maps a SendGrid response status to an error. 4xx responses
// other than 429 are ErrRejected.
func statusError(code int, body string) error {
	switch {
	case code < 400:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("sendgrid send: status %d: %s", code, body)
	default:
		return fmt.Errorf("sendgrid send: status %d: %s: %w", code, body, ErrRejected)
	}
}
