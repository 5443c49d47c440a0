// Package push sends notifications through the Expo push service.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxBatch is the most messages Expo accepts in one request.
const MaxBatch = 100

// ErrDeviceNotRegistered is the ticket error Expo returns for a token that
// no longer belongs to an installed app.
const ErrDeviceNotRegistered = "DeviceNotRegistered"

// Message is one push notification to one device.
type Message struct {
	To    string         `json:"to"`
	Title string         `json:"title,omitempty"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
	Sound string         `json:"sound,omitempty"`
}

// Ticket is Expo's per-message receipt, in request order.
type Ticket struct {
	Status  string `json:"status"` // "ok" | "error"
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details"`
}

// OK reports whether Expo accepted the message.
func (t Ticket) OK() bool { return t.Status == "ok" }

// DeviceGone reports whether the token should be forgotten.
func (t Ticket) DeviceGone() bool { return t.Details.Error == ErrDeviceNotRegistered }

// Client posts messages to the Expo push API.
type Client struct {
	url         string
	accessToken string
	http        *http.Client
}

func NewClient(url, accessToken string, timeout time.Duration) *Client {
	return &Client{url: url, accessToken: accessToken, http: &http.Client{Timeout: timeout}}
}

// Send delivers messages in batches of MaxBatch and returns one ticket per
// message. If a batch fails outright, the tickets already collected are
// returned with the error.
func (c *Client) Send(ctx context.Context, messages []Message) ([]Ticket, error) {
	tickets := make([]Ticket, 0, len(messages))
	for start := 0; start < len(messages); start += MaxBatch {
		end := min(start+MaxBatch, len(messages))
		batch, err := c.sendBatch(ctx, messages[start:end])
		if err != nil {
			return tickets, err
		}
		tickets = append(tickets, batch...)
	}
	return tickets, nil
}

func (c *Client) sendBatch(ctx context.Context, batch []Message) ([]Ticket, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("expo: encoding messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("expo: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("expo: sending: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("expo: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out struct {
		Data []Ticket `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("expo: decoding tickets: %w", err)
	}
	if len(out.Data) != len(batch) {
		return nil, fmt.Errorf("expo: got %d tickets for %d messages", len(out.Data), len(batch))
	}
	return out.Data, nil
}
