package services

import (
	"context"
	"fmt"
	"html"

	"github.com/rs/zerolog"
	mail "github.com/wneessen/go-mail"
)

// EmailSender is the notification collaborator. Implementations deliver
// transactional mail; failures surface as errors for the caller to decide
// whether they are fatal.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
	SendPasswordChangeConfirmation(ctx context.Context, to string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// ClientURL prefixes the verification/reset links embedded in mail.
	ClientURL string
}

// SMTPSender delivers mail over SMTP via go-mail.
type SMTPSender struct {
	cfg SMTPConfig
	lg  zerolog.Logger
}

func NewSMTPSender(cfg SMTPConfig, lg zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		cfg: cfg,
		lg:  lg.With().Str("component", "smtp_sender").Logger(),
	}
}

func (s *SMTPSender) SendVerificationEmail(ctx context.Context, to, token string) error {
	url := fmt.Sprintf("%s/verify-email?token=%s", s.cfg.ClientURL, token)
	body := renderLinkEmail(
		"Welcome to Minest!",
		"Please verify your email by clicking the button below.",
		"Verify Email",
		url,
	)
	return s.send(ctx, to, "Please verify your email address", body)
}

func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	url := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.ClientURL, token)
	body := renderLinkEmail(
		"Reset Your Password",
		"Click the button below to reset your password. This link will expire in 30 minutes.",
		"Reset Password",
		url,
	)
	return s.send(ctx, to, "Password Reset Request", body)
}

func (s *SMTPSender) SendPasswordChangeConfirmation(ctx context.Context, to string) error {
	body := `<h2>Password Changed</h2>
<p>Your password was changed successfully. If this wasn't you, please contact support immediately.</p>`
	return s.send(ctx, to, "Password Changed Successfully", body)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, htmlBody string) error {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextHTML, htmlBody)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client init: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		s.lg.Error().Err(err).Str("to", to).Str("subject", subject).Msg("smtp send failed")
		return fmt.Errorf("smtp send: %w", err)
	}

	s.lg.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

func renderLinkEmail(title, intro, buttonText, link string) string {
	escLink := html.EscapeString(link)
	return `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;">
  <h2 style="color:#333;">` + html.EscapeString(title) + `</h2>
  <p>` + html.EscapeString(intro) + `</p>
  <div style="margin:30px 0;">
    <a href="` + escLink + `" style="background-color:#4CAF50;color:white;padding:10px 20px;text-decoration:none;border-radius:5px;">` + html.EscapeString(buttonText) + `</a>
  </div>
  <p style="color:#555;font-size:12px;">If the button doesn't work, open this link:<br/><a href="` + escLink + `">` + escLink + `</a></p>
</div>`
}

// LogSender logs instead of sending; the development and test default.
type LogSender struct {
	lg zerolog.Logger
	// Fail forces every send to error, for exercising rollback paths.
	Fail bool
}

func NewLogSender(lg zerolog.Logger) *LogSender {
	return &LogSender{lg: lg.With().Str("component", "log_sender").Logger()}
}

func (s *LogSender) SendVerificationEmail(ctx context.Context, to, token string) error {
	if s.Fail {
		return fmt.Errorf("log sender forced failure")
	}
	s.lg.Info().Str("to", to).Str("token", token).Msg("FAKE send verification email")
	return nil
}

func (s *LogSender) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	if s.Fail {
		return fmt.Errorf("log sender forced failure")
	}
	s.lg.Info().Str("to", to).Str("token", token).Msg("FAKE send password reset email")
	return nil
}

func (s *LogSender) SendPasswordChangeConfirmation(ctx context.Context, to string) error {
	if s.Fail {
		return fmt.Errorf("log sender forced failure")
	}
	s.lg.Info().Str("to", to).Msg("FAKE send password change confirmation")
	return nil
}
