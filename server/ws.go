package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"UndercoverFM/core/events"
	"UndercoverFM/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// MessageType 消息类型
type MessageType string

const (
	MsgTypeHello   MessageType = "hello"   // 连接建立，携带客户端 ID 与当前状态
	MsgTypeEvent   MessageType = "event"   // 会话事件
	MsgTypeFrame   MessageType = "frame"   // 可视化帧（PNG base64）
	MsgTypeCommand MessageType = "command" // 客户端播放控制
	MsgTypeError   MessageType = "error"
	MsgTypePing    MessageType = "ping"
	MsgTypePong    MessageType = "pong"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// WSMessage WebSocket 消息结构
type WSMessage struct {
	Type      MessageType     `json:"type"`
	ClientID  string          `json:"clientId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// CommandData 命令消息的数据
type CommandData struct {
	Action   string  `json:"action"`
	Fraction float64 `json:"fraction,omitempty"`
}

// FrameData 帧消息的数据
type FrameData struct {
	Seq uint64 `json:"seq"`
	PNG string `json:"png"`
}

func newMessage(t MessageType, payload interface{}) (*WSMessage, error) {
	msg := &WSMessage{Type: t, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return msg, nil
}

// Client WebSocket 客户端
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	ID   string
	// Frames 为 true 时推送可视化帧
	Frames bool
}

// Hub WebSocket 管理中心
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMessage
	mu         sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once
}

type broadcastMessage struct {
	data       []byte
	framesOnly bool
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Info("websocket client registered", logger.String("client", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.broadcastAll(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Count 当前连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// removeClient 移除客户端（需要持有锁）
func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	logger.Info("websocket client unregistered", logger.String("client", client.ID))
}

func (h *Hub) broadcastAll(msg broadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if msg.framesOnly && !client.Frames {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			// 发送缓冲区满，移除客户端
			h.removeClient(client)
		}
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
}

// Broadcast 向所有客户端广播消息
func (h *Hub) Broadcast(msg *WSMessage) error {
	return h.enqueue(msg, false)
}

func (h *Hub) enqueue(msg *WSMessage, framesOnly bool) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- broadcastMessage{data: data, framesOnly: framesOnly}:
	case <-h.done:
	default:
		logger.Warn("websocket broadcast queue full, dropping message", logger.String("type", string(msg.Type)))
	}
	return nil
}

// PumpEvents 将 sub 中的事件转发给所有客户端，直到 ctx 结束或 sub 关闭
func (h *Hub) PumpEvents(ctx context.Context, sub <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			msg, err := newMessage(MsgTypeEvent, ev)
			if err != nil {
				logger.Warn("编码事件失败", logger.String("type", string(ev.Type)), logger.ErrorField(err))
				continue
			}
			h.Broadcast(msg)
		}
	}
}

// PumpFrames 向订阅帧的客户端推送最新帧，每个间隔最多一次，且只推送新帧
func (h *Hub) PumpFrames(ctx context.Context, frames *FrameStore, interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if frames.Seq() == last || h.Count() == 0 {
				continue
			}
			data, seq, ok, err := frames.PNG()
			if err != nil || !ok {
				continue
			}
			last = seq
			msg, err := newMessage(MsgTypeFrame, FrameData{Seq: seq, PNG: base64.StdEncoding.EncodeToString(data)})
			if err != nil {
				continue
			}
			h.enqueue(msg, true)
		}
	}
}

// WebSocketHandler 升级连接，先发送客户端 ID 和当前状态，再双向收发消息
func (s *ControlServer) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &Client{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		ID:     uuid.NewString(),
		Frames: r.URL.Query().Get("frames") == "1",
	}

	hello, err := newMessage(MsgTypeHello, s.player.State())
	if err == nil {
		hello.ClientID = client.ID
		if data, err := json.Marshal(hello); err == nil {
			client.send <- data
		}
	}

	s.hub.Register(client)
	go client.WritePump()
	client.ReadPump(r.Context(), s.handleCommand)
}

func (s *ControlServer) handleCommand(_ context.Context, c *Client, msg *WSMessage) {
	if msg.Type != MsgTypeCommand {
		return
	}
	var cmd CommandData
	if err := json.Unmarshal(msg.Data, &cmd); err != nil {
		c.reply(MsgTypeError, map[string]string{"message": "invalid command"})
		return
	}
	if err := Dispatch(s.player, cmd.Action, ActionRequest{Fraction: cmd.Fraction}); err != nil {
		c.reply(MsgTypeError, map[string]string{"action": cmd.Action, "message": err.Error()})
	}
}

// ReadPump 读取消息循环
func (c *Client) ReadPump(ctx context.Context, handler func(ctx context.Context, client *Client, msg *WSMessage)) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", logger.ErrorField(err), logger.String("client", c.ID))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn("invalid message format", logger.ErrorField(err), logger.String("client", c.ID))
			continue
		}
		if msg.Type == MsgTypePing {
			c.reply(MsgTypePong, nil)
			continue
		}
		handler(ctx, c, &msg)
	}
}

// WritePump 写入消息循环
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply 直接回复单个客户端，缓冲区满时丢弃
func (c *Client) reply(t MessageType, payload interface{}) {
	msg, err := newMessage(t, payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		// 已被 Hub 移除，send 已关闭
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
