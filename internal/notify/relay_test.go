package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func TestRelay_PipesBackendFrames(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("Backend accept failed: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"timer_finished"}`)); err != nil {
			t.Errorf("Backend write failed: %v", err)
			return
		}

		// Echo one client frame back to prove the reverse direction.
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if err := conn.Write(ctx, typ, append([]byte("ack:"), data...)); err != nil {
			t.Errorf("Backend echo failed: %v", err)
		}
	}))
	defer backend.Close()

	upstream, err := url.Parse(backend.URL)
	if err != nil {
		t.Fatalf("Failed to parse backend URL: %v", err)
	}

	gateway := httptest.NewServer(NewRelay(upstream))
	defer gateway.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, gateway.URL+"/ws/notifications", nil)
	if err != nil {
		t.Fatalf("Failed to dial relay: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read relayed frame: %v", err)
	}
	if string(data) != `{"type":"timer_finished"}` {
		t.Errorf("Unexpected relayed frame %q", data)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte("ping")); err != nil {
		t.Fatalf("Failed to write through relay: %v", err)
	}
	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read echoed frame: %v", err)
	}
	if string(data) != "ack:ping" {
		t.Errorf("Unexpected echo %q", data)
	}
}

func TestRelay_BackendUnreachable(t *testing.T) {
	upstream, err := url.Parse("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("Failed to parse URL: %v", err)
	}

	gateway := httptest.NewServer(NewRelay(upstream))
	defer gateway.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, gateway.URL+"/ws/notifications", nil)
	if err != nil {
		t.Fatalf("Failed to dial relay: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// The relay should close the socket once the backend dial fails.
	if _, _, err := conn.Read(ctx); err == nil {
		t.Error("Expected relay to close the connection, read succeeded")
	}
}
