package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/campushive/hivelab/internal/engine"
)

// EmailDirectory resolves a user ID to an email address within one
// deployment's space.
type EmailDirectory interface {
	EmailFor(ctx context.Context, deploymentID, userID string) (string, error)
}

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

// SMTPEmailSender delivers notify/email actions over a shared SMTP relay,
// one message per recipient. Per-recipient failures are collected; the
// result fails only when nothing was delivered.
type SMTPEmailSender struct {
	cfg       SMTPConfig
	directory EmailDirectory

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPEmailSender(cfg SMTPConfig, directory EmailDirectory) *SMTPEmailSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPEmailSender{cfg: cfg, directory: directory, sendMail: smtp.SendMail}
}

func (s *SMTPEmailSender) SendEmail(ctx context.Context, req engine.EmailRequest) (engine.SendResult, error) {
	if s.cfg.Host == "" || s.cfg.From == "" {
		return engine.SendResult{}, fmt.Errorf("smtp not configured")
	}

	subject := Render(req.Subject, req.Variables)
	if subject == "" {
		subject = "HiveLab Notification"
	}
	body := Render(req.Body, req.Variables)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.Host)
	}

	var result engine.SendResult
	for _, userID := range req.To {
		email, err := s.directory.EmailFor(ctx, req.DeploymentID, userID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", userID, err))
			continue
		}

		msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
			s.cfg.From, email, subject, body)
		if err := s.sendMail(addr, auth, s.cfg.From, []string{email}, []byte(msg)); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: smtp send: %v", userID, err))
			continue
		}
		result.Sent++
	}
	return result, nil
}
