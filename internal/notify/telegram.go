package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mgh3326/rent-radar/internal/config"
	"github.com/mgh3326/rent-radar/internal/logger"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier posts messages to a Telegram chat via the Bot API.
type TelegramNotifier struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
	chatID     string
	log        logger.Logger
}

// TelegramOption configures the notifier.
type TelegramOption func(*TelegramNotifier)

// WithBaseURL overrides the Telegram API base URL, for tests.
func WithBaseURL(baseURL string) TelegramOption {
	return func(n *TelegramNotifier) {
		n.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewTelegramNotifier creates a Telegram notifier from config.
func NewTelegramNotifier(cfg config.NotifyConfig, log logger.Logger, opts ...TelegramOption) *TelegramNotifier {
	n := &TelegramNotifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    telegramAPIBase,
		botToken:   cfg.TelegramBotToken,
		chatID:     cfg.TelegramChatID,
		log:        log,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Send posts the message, prefixed with the title in bold. Any failure
// is logged and reported as false, never escalated.
func (n *TelegramNotifier) Send(ctx context.Context, title, message string) bool {
	if n.botToken == "" || n.chatID == "" {
		n.log.Debug("telegram not configured, skipping notification")
		return false
	}

	text := message
	if title != "" {
		text = "*" + title + "*\n" + message
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		n.log.Warn("failed to build telegram request", logger.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.log.Warn("failed to send telegram notification", logger.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.log.Warn("telegram notification rejected",
			logger.Int("status", resp.StatusCode))
		return false
	}
	return true
}
