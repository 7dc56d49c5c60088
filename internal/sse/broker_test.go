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

	b.Publish(Event{Type: "build.finished", Data: map[string]int{"errors": 0}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: build.finished") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"errors":0`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func drain(ch chan []byte) (gallery, reload int, bodies []string) {
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			bodies = append(bodies, s)
			if strings.Contains(s, "event: reload") {
				reload++
			} else if strings.Contains(s, "event: gallery.updated") {
				gallery++
			}
		default:
			return gallery, reload, bodies
		}
	}
}

func TestPublishGallery_ReloadThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First changed gallery triggers a reload, the second one is throttled.
	b.PublishGallery(GalleryCounts{Gallery: "travel", Processed: 2})
	b.PublishGallery(GalleryCounts{Gallery: "bw", Orphans: 1})

	time.Sleep(50 * time.Millisecond)
	gallery, reload, bodies := drain(ch)
	if gallery != 2 {
		t.Errorf("gallery events = %d, want 2", gallery)
	}
	if reload != 1 {
		t.Errorf("reload events = %d, want 1 (throttled)", reload)
	}
	if !strings.Contains(strings.Join(bodies, ""), `"gallery":"travel"`) {
		t.Errorf("payload missing gallery name: %v", bodies)
	}
}

func TestPublishGallery_UnchangedNoReload(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishGallery(GalleryCounts{Gallery: "travel", Skipped: 10})

	time.Sleep(50 * time.Millisecond)
	gallery, reload, _ := drain(ch)
	if gallery != 1 || reload != 0 {
		t.Errorf("gallery = %d, reload = %d; want 1, 0", gallery, reload)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

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

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishGallery(GalleryCounts{Gallery: "travel", Processed: 1})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: gallery.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

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

	// Buffer holds 64; the rest must be dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
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
	b.Publish(Event{Type: "build.finished", Data: map[string]int{}})
	b.PublishGallery(GalleryCounts{Gallery: "x", Processed: 1})
}
