package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recwatch/internal/config"
	"recwatch/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventReplayParsed, notifications.Payload{"name": "x"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	started := time.Date(2025, time.March, 14, 20, 21, 16, 0, time.Local)
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "replay parsed",
			event: notifications.EventReplayParsed,
			payload: notifications.Payload{
				"name":    "MP Replay v101.103.2359.0 @2025.03.14 202116.aoe2record",
				"started": started,
			},
			expectTitle:   "recwatch - Replay Parsed",
			expectMessage: "Parsed: MP Replay v101.103.2359.0 @2025.03.14 202116.aoe2record\nPlayed: 2025-03-14 20:21",
			expectTags:    "recwatch,replay,parsed",
		},
		{
			name:  "replay failed",
			event: notifications.EventReplayFailed,
			payload: notifications.Payload{
				"name":   "match.aoe2record",
				"reason": "unreachable",
				"error":  errors.New("connection refused"),
			},
			expectTitle:    "recwatch - Parse Failed",
			expectMessage:  "Parse failed: match.aoe2record (unreachable)\nconnection refused",
			expectTags:     "recwatch,replay,error",
			expectPriority: "high",
		},
		{
			name:           "watcher started",
			event:          notifications.EventWatcherStarted,
			payload:        notifications.Payload{"count": 2, "mode": "polling"},
			expectTitle:    "recwatch - Started",
			expectMessage:  "Watching 2 replay directories (polling)",
			expectTags:     "recwatch,started",
			expectPriority: "low",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "recwatch - Test",
			expectMessage:  "Notification system test",
			expectTags:     "recwatch,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.Started = true

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonoursToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Parsed = false
	cfg.Notifications.Failed = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventReplayParsed,
		notifications.EventReplayFailed,
		notifications.EventWatcherStarted,
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"name": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
