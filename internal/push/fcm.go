// Package push delivers device push notifications through Firebase Cloud
// Messaging.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/safetalk/mediation-platform/pkg/logger"
)

const fcmEndpoint = "https://fcm.googleapis.com/fcm/send"

// FCMClient sends pushes through the FCM HTTP API.
type FCMClient struct {
	serverKey  string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewFCMClient creates an FCM push client.
func NewFCMClient(serverKey string, log *logger.Logger) *FCMClient {
	return &FCMClient{
		serverKey: serverKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: log,
	}
}

type fcmMessage struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

// Push sends one notification to the device token.
func (c *FCMClient) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	msg := fcmMessage{
		To: token,
		Notification: fcmNotification{
			Title: title,
			Body:  body,
			Sound: "default",
		},
		Data: data,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal FCM message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fcmEndpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create FCM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("FCM request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn("FCM rejected push",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody))
		return fmt.Errorf("FCM returned status %d", resp.StatusCode)
	}

	return nil
}

// Noop is a push client that silently drops every notification. It is used
// when no FCM server key is configured.
type Noop struct{}

// Push discards the notification.
func (Noop) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	return nil
}
