package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/drishti/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store, *Feed) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	feed := NewFeed()
	return New(Config{Store: s, Feed: feed}), s, feed
}

func TestServer_Health(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("health request error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestServer_Sessions(t *testing.T) {
	srv, s, _ := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	sess := &store.Session{ID: "s1", Source: "device:0", MarkerSize: 8}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("create session error = %v", err)
	}
	if err := s.Readings().Create(&store.Reading{
		SessionID: "s1", Frame: 4, MarkerID: 7, Distance: 32.1, Confidence: 0.97,
	}); err != nil {
		t.Fatalf("create reading error = %v", err)
	}

	resp, err := ts.Client().Get(ts.URL + "/api/sessions")
	if err != nil {
		t.Fatalf("sessions request error = %v", err)
	}
	defer resp.Body.Close()

	var sessions []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(sessions) != 1 || sessions[0]["id"] != "s1" {
		t.Fatalf("sessions = %v, want one session s1", sessions)
	}

	resp2, err := ts.Client().Get(ts.URL + "/api/sessions/s1/readings")
	if err != nil {
		t.Fatalf("readings request error = %v", err)
	}
	defer resp2.Body.Close()

	var readings []map[string]interface{}
	if err := json.NewDecoder(resp2.Body).Decode(&readings); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("got %d readings, want 1", len(readings))
	}
	if readings[0]["distance"].(float64) != 32.1 {
		t.Errorf("distance = %v, want 32.1", readings[0]["distance"])
	}
}

func TestServer_SessionReadings_Missing(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/sessions/ghost/readings")
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestFeed_Publish(t *testing.T) {
	srv, _, feed := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/feed"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()

	// The subscription is registered asynchronously with the dial.
	deadline := time.Now().Add(2 * time.Second)
	for feed.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if feed.Subscribers() != 1 {
		t.Fatal("feed never registered the subscriber")
	}

	feed.Publish(Update{Frame: 9, MarkerID: 7, Markers: 1, Distance: 31.5, Confidence: 0.9})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message error = %v", err)
	}

	var u Update
	if err := json.Unmarshal(msg, &u); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if u.Frame != 9 || u.Distance != 31.5 {
		t.Errorf("update = %+v, want frame 9 distance 31.5", u)
	}
	if u.Timestamp == 0 {
		t.Error("update timestamp not set")
	}
}

func TestFeed_PublishWithoutSubscribers(t *testing.T) {
	feed := NewFeed()
	// Must not block or panic.
	feed.Publish(Update{Frame: 1, Distance: 10})
}
