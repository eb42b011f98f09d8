package mailer

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/uteshop/ute-shop/internal/config"
)

// Mailer отправляет письма пользователям. За интерфейсом, чтобы в тестах
// и локальной разработке подменять реальную отправку.
type Mailer interface {
	SendOTP(to, code, purpose string) error
}

type smtpMailer struct {
	cfg    config.SMTPConfig
	otpTTL time.Duration
}

func NewSMTPMailer(cfg config.SMTPConfig, otpTTL time.Duration) Mailer {
	return &smtpMailer{cfg: cfg, otpTTL: otpTTL}
}

// otpMessage собирает письмо; срок действия кода берется из конфигурации.
func otpMessage(from, to, code, purpose string, ttl time.Duration) []byte {
	subject := "UTE-Shop verification code"
	if purpose == "reset" {
		subject = "UTE-Shop password reset code"
	}
	body := fmt.Sprintf("Your code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		from, to, subject, body))
}

func (m *smtpMailer) SendOTP(to, code, purpose string) error {
	msg := otpMessage(m.cfg.From, to, code, purpose, m.otpTTL)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// logMailer пишет код в лог вместо отправки — для локальной разработки без SMTP.
type logMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) Mailer {
	return &logMailer{log: log}
}

func (m *logMailer) SendOTP(to, code, purpose string) error {
	m.log.Info("OTP issued",
		slog.String("to", to),
		slog.String("purpose", purpose),
		slog.String("code", code),
	)
	return nil
}
