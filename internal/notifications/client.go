package notifications

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Client pushes short messages to an ntfy topic. Each message is sent once.
type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	mutex      sync.RWMutex
	// Metrics
	totalSent   int64
	totalFailed int64
}

type NotificationError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func NewClient(baseURL, topic string, enabled bool, priority string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		topic:    topic,
		enabled:  enabled,
		priority: priority,
	}
}

// Enabled reports whether messages are actually sent.
func (c *Client) Enabled() bool {
	return c.enabled
}

func (c *Client) SendNotification(ctx context.Context, message string) error {
	if !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	err := c.send(ctx, message)
	c.record(err)
	return err
}

func (c *Client) send(ctx context.Context, message string) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	log.Debug().
		Str("url", url).
		Str("message", message).
		Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBufferString(message))
	if err != nil {
		return &NotificationError{Type: "client", Underlying: err}
	}

	req.Header.Set("Content-Type", "text/plain")
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotificationError{Type: "network", Underlying: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Msg("Notification sent successfully")

	return nil
}

// SendNotificationAsync sends in the background. The send is detached from
// ctx cancellation so a finished HTTP request does not abort it.
func (c *Client) SendNotificationAsync(ctx context.Context, message string) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := c.SendNotification(ctx, message); err != nil {
			log.Warn().Err(err).Msg("Async notification failed")
		}
	}()
}

// NotifyTrigger reports the outcome of an automation trigger.
func (c *Client) NotifyTrigger(ctx context.Context, label string, triggerErr error) {
	if !c.enabled {
		return
	}
	c.SendNotificationAsync(ctx, FormatTriggerMessage(label, triggerErr))
}

// FormatTriggerMessage renders the text shown for a trigger outcome.
func FormatTriggerMessage(label string, triggerErr error) string {
	if triggerErr != nil {
		return fmt.Sprintf("❌ Update failed: %s (%v)", label, triggerErr)
	}
	return fmt.Sprintf("🔄 Update initiated: %s (takes 2-3 minutes)", label)
}

func (c *Client) record(err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err != nil {
		c.totalFailed++
		return
	}
	c.totalSent++
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

// GetMetrics returns current notification metrics
func (c *Client) GetMetrics() (sent, failed int64) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.totalSent, c.totalFailed
}
