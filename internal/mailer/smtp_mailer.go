package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/comas-edu/identity-service/internal/config"
	"go.uber.org/zap"
)

// SMTPMailerService implements the Mailer interface using net/smtp.
type SMTPMailerService struct {
	cfg    *config.SMTPConfig
	logger *zap.Logger
}

func NewSMTPMailerService(cfg *config.SMTPConfig, logger *zap.Logger) *SMTPMailerService {
	return &SMTPMailerService{
		cfg:    cfg,
		logger: logger.Named("SMTPMailerService"),
	}
}

// SendVerificationEmail sends the verification code and link via SMTP.
// SMTP has no per-recipient rejection reporting, so a transport failure
// rejects the whole recipient list.
func (s *SMTPMailerService) SendVerificationEmail(ctx context.Context, toEmail, toName, code, link string) ([]string, error) {
	if s.cfg.Host == "" || s.cfg.Username == "" || s.cfg.Password == "" || s.cfg.SenderEmail == "" {
		s.logger.Error("SMTP configuration is incomplete. Email not sent.",
			zap.String("host", s.cfg.Host),
			zap.String("username", s.cfg.Username),
			zap.Bool("password_set", s.cfg.Password != ""),
			zap.String("sender", s.cfg.SenderEmail))
		return []string{toEmail}, fmt.Errorf("SMTP configuration is incomplete")
	}

	s.logger.Info("Attempting to send verification email via SMTP",
		zap.String("toEmail", toEmail),
		zap.String("smtpHost", s.cfg.Host),
		zap.Int("smtpPort", s.cfg.Port))

	subject := "Verify Your Email Address"

	htmlBody := fmt.Sprintf(`<p>Hello %s,</p>
                             <p>Your verification code is: <b>%s</b></p>
                             <p>Or follow this link: <a href="%s">%s</a></p>
                             <p>This code will expire in 24 hours.</p>
                             <p>If you did not request this, please ignore this email.</p>`, toName, code, link, link)

	textBody := fmt.Sprintf(`Hello %s,
                           Your verification code is: %s
                           Or follow this link: %s
                           This code will expire in 24 hours.
                           If you did not request this, please ignore this email.`, toName, code, link)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	headers := make(map[string]string)
	if s.cfg.SenderName != "" {
		headers["From"] = fmt.Sprintf("%s <%s>", s.cfg.SenderName, s.cfg.SenderEmail)
	} else {
		headers["From"] = s.cfg.SenderEmail
	}
	headers["To"] = toEmail
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"

	boundary := "identity-boundary-19283"
	headers["Content-Type"] = fmt.Sprintf("multipart/alternative; boundary=%s", boundary)

	var msgBuilder strings.Builder
	for k, v := range headers {
		msgBuilder.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msgBuilder.WriteString("\r\n")

	msgBuilder.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msgBuilder.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msgBuilder.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	msgBuilder.WriteString(textBody)
	msgBuilder.WriteString("\r\n\r\n")

	msgBuilder.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msgBuilder.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msgBuilder.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	msgBuilder.WriteString(htmlBody)
	msgBuilder.WriteString("\r\n\r\n")

	msgBuilder.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := smtp.SendMail(addr, auth, s.cfg.SenderEmail, []string{toEmail}, []byte(msgBuilder.String())); err != nil {
		s.logger.Error("Failed to send email via SMTP",
			zap.Error(err),
			zap.String("toEmail", toEmail),
			zap.String("smtpHost", s.cfg.Host))
		return []string{toEmail}, fmt.Errorf("smtp.SendMail failed: %w", err)
	}

	s.logger.Info("Verification email sent successfully via SMTP", zap.String("toEmail", toEmail))
	return nil, nil
}
