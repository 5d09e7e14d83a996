package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/comas-edu/identity-service/internal/config"
	"go.uber.org/zap"
)

const mailerSendAPIURL = "https://api.mailersend.com/v1/email"

// MailerSendService implements the Mailer interface using MailerSend.
type MailerSendService struct {
	cfg    *config.MailerSendConfig
	client *http.Client
	logger *zap.Logger
}

func NewMailerSendService(cfg *config.MailerSendConfig, logger *zap.Logger) *MailerSendService {
	return &MailerSendService{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.Named("MailerSendService"),
	}
}

type mailerSendRequest struct {
	From            fromEmail              `json:"from"`
	To              []toEmail              `json:"to"`
	Subject         string                 `json:"subject"`
	Text            string                 `json:"text"`
	HTML            string                 `json:"html"`
	Personalization []personalizationEntry `json:"personalization,omitempty"`
}

type fromEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type toEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalizationEntry struct {
	Email string            `json:"email"`
	Data  map[string]string `json:"data"`
}

// SendVerificationEmail sends the verification code and link through the
// MailerSend HTTP API. A non-accepted status rejects the recipient.
func (s *MailerSendService) SendVerificationEmail(ctx context.Context, toEmailAddr, toName, code, link string) ([]string, error) {
	if s.cfg.APIKey == "" || s.cfg.SenderEmail == "" {
		s.logger.Error("MailerSend configuration is incomplete. Email not sent.",
			zap.Bool("api_key_set", s.cfg.APIKey != ""),
			zap.String("sender", s.cfg.SenderEmail))
		return []string{toEmailAddr}, fmt.Errorf("MailerSend configuration is incomplete")
	}

	s.logger.Info("Attempting to send verification email", zap.String("toEmail", toEmailAddr))

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

	requestPayload := mailerSendRequest{
		From: fromEmail{
			Email: s.cfg.SenderEmail,
			Name:  s.cfg.SenderName,
		},
		To: []toEmail{
			{Email: toEmailAddr, Name: toName},
		},
		Subject: subject,
		Text:    textBody,
		HTML:    htmlBody,
		Personalization: []personalizationEntry{
			{
				Email: toEmailAddr,
				Data: map[string]string{
					"name": toName,
					"code": code,
					"link": link,
				},
			},
		},
	}

	payloadBytes, err := json.Marshal(requestPayload)
	if err != nil {
		s.logger.Error("Failed to marshal MailerSend request payload", zap.Error(err))
		return []string{toEmailAddr}, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mailerSendAPIURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		s.logger.Error("Failed to create MailerSend HTTP request", zap.Error(err))
		return []string{toEmailAddr}, fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Failed to send request to MailerSend", zap.Error(err))
		return []string{toEmailAddr}, fmt.Errorf("failed to send request to MailerSend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		s.logger.Error("MailerSend API request failed", zap.Int("statusCode", resp.StatusCode))
		return []string{toEmailAddr}, nil
	}

	s.logger.Info("Verification email sent successfully via MailerSend",
		zap.String("toEmail", toEmailAddr), zap.String("messageID", resp.Header.Get("X-Message-Id")))
	return nil, nil
}
