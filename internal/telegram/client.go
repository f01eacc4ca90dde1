package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"nse_tracker/internal/logger"
)

const defaultAPIURL = "https://api.telegram.org"

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// Bot talks to the Telegram Bot API on behalf of a single authorized chat.
type Bot struct {
	token       string
	chatID      int64
	apiURL      string
	pollTimeout int // Seconds the server may hold a getUpdates call
	client      *http.Client
}

// NewBot returns a bot bound to token that only serves chatID.
func NewBot(token string, chatID int64) *Bot {
	return &Bot{
		token:       token,
		chatID:      chatID,
		apiURL:      defaultAPIURL,
		pollTimeout: 60,
		client:      &http.Client{Timeout: 90 * time.Second},
	}
}

func (b *Bot) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", b.apiURL, b.token, method)
}

// Send posts text to chatID using Markdown. If Telegram rejects the markup
// (unbalanced "*" or "_" in user input), the message is resent as plain text.
func (b *Bot) Send(ctx context.Context, chatID int64, text string) error {
	err := b.sendMessage(ctx, chatID, text, "Markdown")
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*APIError); ok && apiErr.Code == http.StatusBadRequest {
		logger.Debugf("Telegram rejected Markdown, resending plain: %v", err)
		return b.sendMessage(ctx, chatID, text, "")
	}
	return err
}

// Notify sends text to the authorized chat and only logs failures.
func (b *Bot) Notify(ctx context.Context, text string) {
	if err := b.Send(ctx, b.chatID, text); err != nil {
		log.Printf("Telegram Alert Failed: %v", err)
	}
}

// APIError is a non-ok answer from the Bot API.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text, parseMode string) error {
	payload := map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
		"text":    text,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}

	logger.Debugf("Telegram Notify: %s", text)

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = b.do(req)
	return err
}

// do executes req and unwraps the API envelope.
func (b *Bot) do(req *http.Request) (json.RawMessage, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode telegram response (status %s): %v", resp.Status, err)
	}
	if !result.Ok {
		return nil, &APIError{Code: result.ErrorCode, Description: result.Description}
	}
	return result.Result, nil
}
