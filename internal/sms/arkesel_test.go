package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/comas-edu/identity-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestArkesel_SendSMS_Success(t *testing.T) {
	var got arkeselRequest
	var gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewArkeselService(&config.SMSConfig{
		APIKey: "test-key",
		URL:    server.URL,
		Sender: "CoMAS",
	}, zap.NewNop())

	err := svc.SendSMS(context.Background(), []string{"+100200300"}, "your code is 123456")
	require.NoError(t, err)
	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, "CoMAS", got.Sender)
	assert.Equal(t, []string{"+100200300"}, got.Recipients)
	assert.Equal(t, "your code is 123456", got.Message)
}

func TestArkesel_SendSMS_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"error"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	svc := NewArkeselService(&config.SMSConfig{
		APIKey: "bad-key",
		URL:    server.URL,
		Sender: "CoMAS",
	}, zap.NewNop())

	err := svc.SendSMS(context.Background(), []string{"+100200300"}, "hello")
	assert.ErrorContains(t, err, "status 401")
}

func TestArkesel_SendSMS_InvalidInput(t *testing.T) {
	svc := NewArkeselService(&config.SMSConfig{APIKey: "test-key"}, zap.NewNop())

	err := svc.SendSMS(context.Background(), nil, "hello")
	assert.Error(t, err)

	err = svc.SendSMS(context.Background(), []string{""}, "hello")
	assert.Error(t, err)
}

func TestArkesel_SendSMS_MissingAPIKey(t *testing.T) {
	svc := NewArkeselService(&config.SMSConfig{}, zap.NewNop())

	err := svc.SendSMS(context.Background(), []string{"+100200300"}, "hello")
	assert.ErrorContains(t, err, "not configured")
}
