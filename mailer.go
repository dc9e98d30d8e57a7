package auth

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/goliatone/go-errors"
)

// Mailer dispatches verification email. One attempt per call, callers decide
// whether to retry by re-requesting a code.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

// SMTPMailer sends verification codes through a plain auth SMTP relay
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	logger   Logger
}

// NewSMTPMailer configures a mailer against the given relay
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	if from == "" {
		from = username
	}
	return &SMTPMailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		logger:   defLogger{},
	}
}

func (m *SMTPMailer) WithLogger(l Logger) *SMTPMailer {
	if l != nil {
		m.logger = l
	}
	return m
}

// SendVerificationCode delivers the handshake code. Failures surface as
// upstream errors and leave the stored code usable for a retry.
func (m *SMTPMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryOperation, "context cancelled before mail dispatch")
	default:
	}

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)

	msg := []byte("To: " + email + "\r\n" +
		"From: " + m.From + "\r\n" +
		"Subject: Email Verification Code\r\n" +
		"\r\n" +
		"Your verification code is: " + code + "\r\n" +
		"The code expires in 30 minutes.\r\n")

	if err := smtp.SendMail(addr, auth, m.From, []string{email}, msg); err != nil {
		m.logger.Error("smtp dispatch failed", "email", email, "error", err)
		return errors.Wrap(err, ErrMailDeliveryFailed.Category, ErrMailDeliveryFailed.Message).
			WithTextCode(ErrMailDeliveryFailed.TextCode)
	}

	m.logger.Info("sent verification code", "email", email)

	return nil
}

// LogMailer prints the code instead of delivering it, the dev default when no
// relay is configured
type LogMailer struct {
	logger Logger
}

func NewLogMailer(l Logger) *LogMailer {
	if l == nil {
		l = defLogger{}
	}
	return &LogMailer{logger: l}
}

func (m *LogMailer) SendVerificationCode(_ context.Context, email, code string) error {
	m.logger.Info("verification code issued", "email", email, "code", code)
	return nil
}
