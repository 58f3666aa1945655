package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"UndercoverFM/core/events"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, ts *testServer, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(ts.h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// readUntil 持续读取直到 match 返回 true
func readUntil(t *testing.T, conn *websocket.Conn, match func(WSMessage) bool) WSMessage {
	t.Helper()
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWebSocketHello(t *testing.T) {
	ts := newTestServer(t)
	conn := dialWS(t, ts, "")

	hello := readUntil(t, conn, func(m WSMessage) bool { return true })
	if hello.Type != MsgTypeHello {
		t.Fatalf("first message type = %q, want hello", hello.Type)
	}
	if _, err := uuid.Parse(hello.ClientID); err != nil {
		t.Errorf("client id %q is not a uuid", hello.ClientID)
	}
	st := decodeState(t, hello.Data)
	if st.Length != 3 {
		t.Errorf("hello state length = %d", st.Length)
	}
}

func TestWebSocketCommandsAndEvents(t *testing.T) {
	ts := newTestServer(t)
	sub := ts.bus.Subscribe(64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ts.hub.PumpEvents(ctx, sub)

	conn := dialWS(t, ts, "")
	readUntil(t, conn, func(m WSMessage) bool { return m.Type == MsgTypeHello })

	if err := conn.WriteJSON(WSMessage{Type: MsgTypeCommand, Data: json.RawMessage(`{"action":"next"}`)}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(m WSMessage) bool {
		if m.Type != MsgTypeEvent {
			return false
		}
		var ev events.Event
		return json.Unmarshal(m.Data, &ev) == nil && ev.Type == events.TrackLoaded
	})
	if got := ts.sess.State().Index; got != 1 {
		t.Errorf("index after next command = %d", got)
	}

	conn.WriteJSON(WSMessage{Type: MsgTypePing})
	readUntil(t, conn, func(m WSMessage) bool { return m.Type == MsgTypePong })

	conn.WriteJSON(WSMessage{Type: MsgTypeCommand, Data: json.RawMessage(`{"action":"rewind"}`)})
	errMsg := readUntil(t, conn, func(m WSMessage) bool { return m.Type == MsgTypeError })
	if !strings.Contains(string(errMsg.Data), "rewind") {
		t.Errorf("error payload = %s", errMsg.Data)
	}
}

func TestWebSocketFrames(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ts.hub.PumpFrames(ctx, ts.frames, 10*time.Millisecond)

	conn := dialWS(t, ts, "?frames=1")
	readUntil(t, conn, func(m WSMessage) bool { return m.Type == MsgTypeHello })

	ts.frames.PublishFrame(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	msg := readUntil(t, conn, func(m WSMessage) bool { return m.Type == MsgTypeFrame })

	var frame FrameData
	if err := json.Unmarshal(msg.Data, &frame); err != nil {
		t.Fatal(err)
	}
	png, err := base64.StdEncoding.DecodeString(frame.PNG)
	if err != nil || !strings.HasPrefix(string(png), "\x89PNG") {
		t.Errorf("frame payload is not a PNG (err %v)", err)
	}
	if frame.Seq != 1 {
		t.Errorf("seq = %d, want 1", frame.Seq)
	}
}

func TestFrameStoreEncodesOncePerFrame(t *testing.T) {
	fs := NewFrameStore()
	if _, _, ok, _ := fs.PNG(); ok {
		t.Fatal("empty store should report no frame")
	}
	fs.PublishFrame(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	a, seq, _, _ := fs.PNG()
	b, _, _, _ := fs.PNG()
	if seq != 1 || &a[0] != &b[0] {
		t.Error("same frame should reuse the encoded bytes")
	}
	fs.PublishFrame(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if _, seq, _, _ := fs.PNG(); seq != 2 {
		t.Errorf("seq = %d, want 2", seq)
	}
}
