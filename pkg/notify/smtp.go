package notify

import (
	"context"
	"fmt"
	"net/smtp"
)

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// SMTPMailer sends plain text email via SMTP.
type SMTPMailer struct {
	config   SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	if config.Port == 0 {
		config.Port = 587
	}

	return &SMTPMailer{config: config, sendMail: smtp.SendMail}
}

func (m *SMTPMailer) Send(_ context.Context, email Email) error {
	if email.To == "" {
		return ErrMissingRecipient
	}

	from := m.config.From
	if from == "" {
		from = m.config.Username
	}

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		from, email.To, email.Subject, textBody(email))

	var auth smtp.Auth
	if m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := m.sendMail(addr, auth, from, []string{email.To}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}
