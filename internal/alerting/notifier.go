package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxListedEvents caps the events spelled out in one message.
const maxListedEvents = 20

// Event 描述一条需要推送的日历事件。
type Event struct {
	ID        string
	Name      string
	Start     string
	Country   string
	Impact    string
	Consensus string
	Previous  string
}

// Notification 封装告警上下文。
type Notification struct {
	HorizonStart string
	HorizonEnd   string
	Impacts      []string
	Events       []Event
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	if len(note.Events) == 0 {
		return nil
	}

	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().
		Str("horizon", note.HorizonStart+".."+note.HorizonEnd).
		Int("events", len(note.Events)).
		Msg("告警已发送 (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[EcoCal Alert]\n")
	builder.WriteString(fmt.Sprintf("Horizon: %s .. %s\n", note.HorizonStart, note.HorizonEnd))
	if len(note.Impacts) > 0 {
		builder.WriteString(fmt.Sprintf("Impact: %s\n", strings.Join(note.Impacts, ",")))
	}
	builder.WriteString(fmt.Sprintf("New events: %d\n", len(note.Events)))

	for i, ev := range note.Events {
		if i == maxListedEvents {
			builder.WriteString(fmt.Sprintf("... and %d more\n", len(note.Events)-maxListedEvents))
			break
		}
		line := fmt.Sprintf("- %s %s %s [%s]", ev.Start, ev.Country, ev.Name, ev.Impact)
		if ev.Consensus != "" || ev.Previous != "" {
			line += fmt.Sprintf(" cons=%s prev=%s", orDash(ev.Consensus), orDash(ev.Previous))
		}
		builder.WriteString(strings.TrimSpace(strings.Join(strings.Fields(line), " ")))
		builder.WriteByte('\n')
	}
	return builder.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var _ Notifier = (*TelegramNotifier)(nil)
