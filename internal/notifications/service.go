package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recwatch/internal/config"
)

const userAgent = "recwatch/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventReplayParsed   Event = "replay_parsed"
	EventReplayFailed   Event = "replay_failed"
	EventWatcherStarted Event = "watcher_started"
	EventTest           Event = "test"
)

// Payload carries event fields keyed by name.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		parsed:   cfg.Notifications.Parsed,
		failed:   cfg.Notifications.Failed,
		started:  cfg.Notifications.Started,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	parsed   bool
	failed   bool
	started  bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventReplayParsed:
		if !n.parsed {
			return message{}, false
		}
		body := "Parsed: " + payload.text("name")
		if started := payload.text("started"); started != "" {
			body += "\nPlayed: " + started
		}
		return message{
			title: "recwatch - Replay Parsed",
			body:  body,
			tags:  []string{"recwatch", "replay", "parsed"},
		}, true
	case EventReplayFailed:
		if !n.failed {
			return message{}, false
		}
		body := "Parse failed: " + payload.text("name")
		if reason := payload.text("reason"); reason != "" {
			body += " (" + reason + ")"
		}
		if detail := payload.text("error"); detail != "" {
			body += "\n" + detail
		}
		return message{
			title:    "recwatch - Parse Failed",
			body:     body,
			tags:     []string{"recwatch", "replay", "error"},
			priority: "high",
		}, true
	case EventWatcherStarted:
		if !n.started {
			return message{}, false
		}
		count := payload.text("count")
		noun := "directories"
		if count == "1" {
			noun = "directory"
		}
		body := fmt.Sprintf("Watching %s replay %s", count, noun)
		if mode := payload.text("mode"); mode != "" {
			body += " (" + mode + ")"
		}
		return message{
			title:    "recwatch - Started",
			body:     body,
			tags:     []string{"recwatch", "started"},
			priority: "low",
		}, true
	case EventTest:
		return message{
			title:    "recwatch - Test",
			body:     "Notification system test",
			tags:     []string{"recwatch", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format("2006-01-02 15:04")
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
