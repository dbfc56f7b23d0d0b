package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/simfleet/fleetview/models"
)

type fixedSource struct {
	state models.DashboardState
}

func (f fixedSource) State() models.DashboardState { return f.state }

type action struct {
	name              string
	taxis, passengers int
}

type chanController struct {
	actions chan action
}

func (c *chanController) Do(name string, taxis, passengers int) error {
	c.actions <- action{name, taxis, passengers}
	return nil
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) models.DashboardState {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var state models.DashboardState
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("bad frame %s: %v", data, err)
	}
	return state
}

func TestHub_InitialFrameAndBroadcast(t *testing.T) {
	h := New(fixedSource{state: models.DashboardState{Version: 7}}, nil, nil)
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	if got := readState(t, conn); got.Version != 7 {
		t.Errorf("initial frame version = %d, expected 7", got.Version)
	}
	if n := h.ClientCount(); n != 1 {
		t.Errorf("ClientCount = %d, expected 1", n)
	}

	h.Broadcast(models.DashboardState{Version: 8, Active: true})
	got := readState(t, conn)
	if got.Version != 8 || !got.Active {
		t.Errorf("broadcast frame = %+v", got)
	}

	// Late joiners get the last broadcast rather than a fresh read.
	late := dial(t, srv)
	if got := readState(t, late); got.Version != 8 {
		t.Errorf("late joiner frame version = %d, expected 8", got.Version)
	}
}

func TestHub_ForwardsControlMessages(t *testing.T) {
	ctrl := &chanController{actions: make(chan action, 1)}
	h := New(fixedSource{}, ctrl, []string{"*"})
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	readState(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := conn.WriteJSON(ControlMessage{Action: "generate", Taxis: 3, Passengers: 5}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case a := <-ctrl.actions:
		if a != (action{"generate", 3, 5}) {
			t.Errorf("forwarded %+v", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("control message was not forwarded")
	}
}

func TestHub_OriginCheck(t *testing.T) {
	h := New(fixedSource{}, nil, []string{"http://allowed.example"})
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("expected handshake to fail for a disallowed origin")
	}

	header.Set("Origin", "http://allowed.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	conn.Close()
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	h := New(fixedSource{}, nil, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	readState(t, conn)

	h.Close()
	h.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
	if n := h.ClientCount(); n != 0 {
		t.Errorf("ClientCount after Close = %d", n)
	}

	// Broadcasting after Close must not block.
	h.Broadcast(models.DashboardState{})
}

func TestHub_StalledClientIsDropped(t *testing.T) {
	h := New(fixedSource{state: models.DashboardState{Version: 1}}, nil, nil)
	defer h.Close()
	h.writeWait = 50 * time.Millisecond
	srv := httptest.NewServer(h)
	defer srv.Close()

	dial(t, srv) // never read from
	healthy := dial(t, srv)
	readState(t, healthy)

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	big := json.RawMessage(`"` + strings.Repeat("x", 32<<20) + `"`)
	h.Broadcast(models.DashboardState{Version: 2, Tree: big})

	healthy.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := healthy.ReadMessage()
	if err != nil {
		t.Fatalf("healthy client read failed: %v", err)
	}
	var got models.DashboardState
	if err := json.Unmarshal(data, &got); err != nil || got.Version != 2 {
		t.Errorf("healthy client frame version = %d, err = %v", got.Version, err)
	}

	deadline = time.Now().Add(5 * time.Second)
	for h.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("stalled client still connected, ClientCount = %d", h.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
