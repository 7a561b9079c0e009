package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BotProvider sends messages through the Telegram Bot API sendMessage
// endpoint. The token and chat ID are fixed at construction.
type BotProvider struct {
	token  string
	chatID string
	client *http.Client
}

type Config struct {
	BotToken string
	ChatID   string
	Timeout  time.Duration
}

func NewBot(cfg Config) *BotProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BotProvider{
		token:  strings.TrimSpace(cfg.BotToken),
		chatID: strings.TrimSpace(cfg.ChatID),
		client: &http.Client{Timeout: timeout},
	}
}

func (p *BotProvider) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", p.token)
	form := url.Values{}
	form.Set("chat_id", p.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram send failed: status %d", resp.StatusCode)
	}
	return nil
}
