package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"gopkg.in/gomail.v2"
	"taskboard/config"
)

// Mailer delivers account emails.
type Mailer interface {
	SendConfirmation(to, username, token string) error
}

var confirmationTemplate = template.Must(template.New("confirm").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Confirm your email</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .button { display: inline-block; padding: 10px 18px; background: #3498db; color: #fff; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <h2>Welcome, {{.Username}}!</h2>
    <p>Please confirm your email address to activate your account.</p>
    <p><a class="button" href="{{.Link}}">Confirm email</a></p>
    <p>The link expires in {{.TTL}}.</p>
    <div class="footer">
        <p>If you didn't create an account, you can safely ignore this email.</p>
        <p>&copy; {{.Year}} Taskboard</p>
    </div>
</body>
</html>`))

// ConfirmationLink builds the link sent in confirmation emails.
func ConfirmationLink(baseURL, token string) string {
	return fmt.Sprintf("%s/auth/confirm-email?token=%s", baseURL, url.QueryEscape(token))
}

// SMTPMailer sends mail through an SMTP relay. Sends go through a circuit breaker so a dead
// relay fails fast instead of holding requests for the dial timeout.
type SMTPMailer struct {
	cfg     config.SMTPConfig
	baseURL string
	ttl     time.Duration
	dialer  *gomail.Dialer
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Entry
}

func NewSMTPMailer(cfg config.SMTPConfig, baseURL string, ttl time.Duration, log *logrus.Entry) *SMTPMailer {
	return &SMTPMailer{
		cfg:     cfg,
		baseURL: baseURL,
		ttl:     ttl,
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "smtp",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
			},
		}),
		log: log,
	}
}

func (m *SMTPMailer) SendConfirmation(to, username, token string) error {
	var body bytes.Buffer
	err := confirmationTemplate.Execute(&body, struct {
		Username string
		Link     string
		TTL      string
		Year     int
	}{
		Username: username,
		Link:     ConfirmationLink(m.baseURL, token),
		TTL:      m.ttl.String(),
		Year:     time.Now().Year(),
	})
	if err != nil {
		return fmt.Errorf("error executing template: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.FromEmail)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Confirm your email")
	msg.SetBody("text/html", body.String())

	_, err = m.breaker.Execute(func() (interface{}, error) {
		return nil, m.dialer.DialAndSend(msg)
	})
	if err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}

	m.log.WithField("to", to).Info("confirmation email sent")
	return nil
}

// LogMailer is used when no SMTP relay is configured; it logs the confirmation link.
type LogMailer struct {
	baseURL string
	log     *logrus.Entry
}

func NewLogMailer(baseURL string, log *logrus.Entry) *LogMailer {
	return &LogMailer{baseURL: baseURL, log: log}
}

func (m *LogMailer) SendConfirmation(to, username, token string) error {
	m.log.WithFields(logrus.Fields{
		"to":       to,
		"username": username,
		"link":     ConfirmationLink(m.baseURL, token),
	}).Info("confirmation email (SMTP disabled)")
	return nil
}
