package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "file.created", Data: map[string]string{"path": "a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: file.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishFileEvent_IndexThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger index.updated.
	b.PublishFileEvent("created", "a.md")
	// Second event immediately should NOT trigger another index.updated.
	b.PublishFileEvent("updated", "b.md")

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	indexCount := 0
	fileCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "index.updated") {
				indexCount++
			} else {
				fileCount++
			}
		default:
			break loop
		}
	}

	if fileCount != 2 {
		t.Errorf("file events = %d, want 2", fileCount)
	}
	if indexCount != 1 {
		t.Errorf("index events = %d, want 1 (throttled)", indexCount)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Notice("Update 2 links in x.md.")
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: notice") || !strings.Contains(body, `"message":"Update 2 links in x.md."`) {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "file.updated", Data: map[string]string{"path": "x.md"}})
	b.PublishFileEvent("updated", "x.md")
	if err := b.OpenWindow(context.Background(), "id", "http://x/summary"); err == nil {
		t.Fatal("expected error from closed broker")
	}
}

func TestOpenWindowPublishesSummaryRequested(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	if err := b.OpenWindow(context.Background(), "req-1", "http://localhost:8080/summary?id=abc"); err != nil {
		t.Fatalf("OpenWindow: %v", err)
	}
	b.PublishLinksUpdated("a.md", 3)
	b.PublishRename("n.md", "sub/n.md")

	want := []string{
		`event: summary.requested`,
		`event: links.updated`,
		`event: file.renamed`,
	}
	for _, w := range want {
		select {
		case msg := <-ch:
			if !strings.Contains(string(msg), w) {
				t.Errorf("got %q, want %q", msg, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %s", w)
		}
	}
}
