// Package push delivers import result notifications to the operations
// device through the Expo Push API.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// ExpoPushURL is the Expo Push API endpoint
	ExpoPushURL = "https://exp.host/--/api/v2/push/send"

	// RequestTimeout for push requests
	RequestTimeout = 10 * time.Second
)

// Message represents an Expo push notification message
type Message struct {
	To       string         `json:"to"`
	Title    string         `json:"title,omitempty"`
	Body     string         `json:"body"`
	Data     map[string]any `json:"data,omitempty"`
	Sound    string         `json:"sound,omitempty"`
	Priority string         `json:"priority,omitempty"`
}

// Response represents the Expo Push API response
type Response struct {
	Data []TicketResponse `json:"data"`
}

// TicketResponse represents a single push ticket
type TicketResponse struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client sends Expo push messages.
type Client struct {
	httpClient *http.Client
	url        string
	logger     *slog.Logger
}

// NewClient creates an Expo push client.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: RequestTimeout},
		url:        ExpoPushURL,
		logger:     logger,
	}
}

// Send delivers one message and returns the first ticket.
func (c *Client) Send(ctx context.Context, msg Message) (*TicketResponse, error) {
	payload, err := json.Marshal([]Message{msg})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send push message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read push response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push endpoint returned %d: %s", resp.StatusCode, body)
	}

	var parsed Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("push response carried no tickets")
	}
	if parsed.Data[0].Status != "ok" {
		return nil, fmt.Errorf("push rejected: %s", parsed.Data[0].Message)
	}
	return &parsed.Data[0], nil
}

// ImportNotifier satisfies the import service's notification sink by pushing
// the result to a configured device token. Delivery is fire-and-forget: a
// failed push is logged, never surfaced into the import flow.
type ImportNotifier struct {
	client *Client
	token  string
	logger *slog.Logger
}

// NewImportNotifier creates the push-backed notifier.
func NewImportNotifier(client *Client, token string, logger *slog.Logger) *ImportNotifier {
	return &ImportNotifier{client: client, token: token, logger: logger}
}

// ImportSucceeded notifies that every chunk of a confirmed batch landed.
func (n *ImportNotifier) ImportSucceeded(count int) {
	n.send("Carga masiva completada", fmt.Sprintf("%d registros importados", count))
}

// ImportFailed notifies a terminal failure with the user-facing reason.
func (n *ImportNotifier) ImportFailed(message string) {
	n.send("Carga masiva fallida", message)
}

func (n *ImportNotifier) send(title, body string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()

		_, err := n.client.Send(ctx, Message{
			To:       n.token,
			Title:    title,
			Body:     body,
			Sound:    "default",
			Priority: "high",
		})
		if err != nil {
			n.logger.Warn("failed to deliver import notification",
				slog.String("title", title), slog.Any("error", err))
		}
	}()
}

// LogNotifier is the fallback sink when no push token is configured; it
// writes the same terminal transitions to the log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) ImportSucceeded(count int) {
	n.Logger.Info("import succeeded", slog.Int("rows", count))
}

func (n LogNotifier) ImportFailed(message string) {
	n.Logger.Warn("import failed", slog.String("reason", message))
}
