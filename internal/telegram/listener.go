package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// Update represents a Telegram Update object (partial schema)
type Update struct {
	UpdateID int `json:"update_id"`
	Message  struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

// CommandHandler processes a command from chatID and returns the reply text.
// ctx is cancelled when the listener stops.
type CommandHandler func(ctx context.Context, chatID int64, command string) string

// retryDelay is how long the listener waits after a failed poll.
var retryDelay = 5 * time.Second

// Listen long-polls for commands until ctx is cancelled.
// It blocks, so run it in a goroutine.
func (b *Bot) Listen(ctx context.Context, handler CommandHandler) {
	log.Println("Telegram Listener: Started")
	offset := 0

	for {
		if ctx.Err() != nil {
			log.Println("Telegram Listener: Stopped")
			return
		}

		updates, err := b.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("Telegram Listener Error: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			b.dispatch(ctx, update, handler)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update Update, handler CommandHandler) {
	chatID := update.Message.Chat.ID

	// Access Control
	if chatID != b.chatID {
		log.Printf("⚠️ UNAUTHORIZED ACCESS ATTEMPT: User %s (ID: %d) tried: %s",
			update.Message.From.Username, chatID, update.Message.Text)
		// No reply, so the bot's existence is not leaked
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	log.Printf("Command received: %s", text)
	response := handler(ctx, chatID, text)
	if response == "" {
		return
	}
	if err := b.Send(ctx, chatID, response); err != nil {
		log.Printf("Telegram Reply Failed: %v", err)
	}
}

func (b *Bot) getUpdates(ctx context.Context, offset int) ([]Update, error) {
	url := fmt.Sprintf("%s?offset=%d&timeout=%d", b.endpoint("getUpdates"), offset, b.pollTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	raw, err := b.do(req)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %v", err)
	}
	return updates, nil
}
