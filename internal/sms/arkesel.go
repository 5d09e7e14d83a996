package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/comas-edu/identity-service/internal/config"
	"go.uber.org/zap"
)

// ArkeselService sends SMS through the Arkesel HTTP API. It is the
// secondary out-of-band channel for password reset codes.
type ArkeselService struct {
	cfg    *config.SMSConfig
	client *http.Client
	logger *zap.Logger
}

func NewArkeselService(cfg *config.SMSConfig, logger *zap.Logger) *ArkeselService {
	return &ArkeselService{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.Named("ArkeselService"),
	}
}

type arkeselRequest struct {
	Sender     string   `json:"sender"`
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
}

// SendSMS dispatches one message to the recipients. Misconfiguration or
// a non-200 gateway response is a hard failure.
func (s *ArkeselService) SendSMS(ctx context.Context, recipients []string, message string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no SMS recipients provided")
	}
	for _, r := range recipients {
		if r == "" {
			return fmt.Errorf("invalid SMS recipient provided")
		}
	}
	if s.cfg.APIKey == "" {
		s.logger.Error("Arkesel API key is not configured. SMS not sent.")
		return fmt.Errorf("Arkesel API key is not configured")
	}

	s.logger.Info("Sending SMS", zap.Strings("recipients", recipients))

	payload, err := json.Marshal(arkeselRequest{
		Sender:     s.cfg.Sender,
		Message:    message,
		Recipients: recipients,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal SMS payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Failed to send request to Arkesel", zap.Error(err))
		return fmt.Errorf("failed to send request to Arkesel: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error("SMS sending failed",
			zap.Int("statusCode", resp.StatusCode),
			zap.ByteString("response", body))
		return fmt.Errorf("SMS gateway returned status %d", resp.StatusCode)
	}

	s.logger.Info("SMS sent successfully", zap.Strings("recipients", recipients))
	return nil
}
