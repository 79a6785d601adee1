package testutil

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// WSClient is a websocket test client for exercising the gateway end to end.
type WSClient struct {
	conn *websocket.Conn
	t    *testing.T
}

// NewWSClient dials the given websocket URL and returns a test client.
//
// Precondition: url must be a "ws://host:port/path" URL with a listening server.
// Postcondition: Returns a connected WSClient or fails the test.
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()
	start := time.Now()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v [%s]", url, err, time.Since(start))
	}

	t.Cleanup(func() {
		conn.Close()
	})

	t.Logf("websocket client connected to %s [%s]", url, time.Since(start))
	return &WSClient{conn: conn, t: t}
}

// Send marshals v and writes it as a text message.
//
// Postcondition: The message is written, or the test fails.
func (c *WSClient) Send(v any) {
	c.t.Helper()
	if err := c.conn.WriteJSON(v); err != nil {
		c.t.Fatalf("writing websocket message: %v", err)
	}
}

// ReadEvent reads the next message and decodes it as a JSON object.
//
// Postcondition: Returns the decoded event, or fails on read or decode error.
func (c *WSClient) ReadEvent(timeout time.Duration) map[string]any {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("reading websocket message: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		c.t.Fatalf("decoding event %q: %v", data, err)
	}
	return m
}

// ReadUntilType reads events until one with the given type tag arrives,
// failing the test if the deadline passes first. Intermediate events are
// returned along with the match.
//
// Precondition: eventType must be non-empty.
func (c *WSClient) ReadUntilType(eventType string, timeout time.Duration) []map[string]any {
	c.t.Helper()
	deadline := time.Now().Add(timeout)

	var seen []map[string]any
	var types []string
	for time.Now().Before(deadline) {
		ev := c.ReadEvent(time.Until(deadline))
		seen = append(seen, ev)
		tag, _ := ev["type"].(string)
		types = append(types, tag)
		if tag == eventType {
			return seen
		}
	}
	c.t.Fatalf("no %q event within %s (saw: %s)", eventType, timeout, strings.Join(types, ", "))
	return nil
}

// Close closes the underlying connection.
func (c *WSClient) Close() {
	_ = c.conn.Close()
}

// WSURL converts an http test server URL to its websocket equivalent.
func WSURL(httpURL, path string) string {
	return fmt.Sprintf("ws%s%s", strings.TrimPrefix(httpURL, "http"), path)
}
