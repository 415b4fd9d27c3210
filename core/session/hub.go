package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"autodj/logger"

	"github.com/gorilla/websocket"
)

// EventType 会话事件类型
type EventType string

const (
	EventSessionOpen   EventType = "session_open"   // 新一轮点歌窗口打开
	EventSessionClosed EventType = "session_closed" // 窗口关闭，开始统计
	EventProcessing    EventType = "processing"     // 搜索与下载进行中
	EventDownloadDone  EventType = "download_done"  // 单曲下载完成
	EventMixReady      EventType = "mix_ready"      // 混音完成
	EventMixFailed     EventType = "mix_failed"     // 混音失败

	EventPing EventType = "ping" // 心跳
	EventPong EventType = "pong" // 心跳响应
)

// Event WebSocket 事件结构
type Event struct {
	Type      EventType       `json:"type"`
	Token     string          `json:"token,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Client 一个已连接的看板页面
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte

	mu     sync.Mutex
	closed bool
}

// trySend 非阻塞投递一条消息，缓冲区满时丢弃
// Send只由Hub关闭，closed标记挡住关闭之后的写入
func (c *Client) trySend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// closeSend 关闭发送通道，只在Hub主循环里调用
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Hub 会话事件广播中心
// 所有连接都看同一块大屏，没有分组
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	done chan struct{}
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			logger.Info("看板客户端连接", logger.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				logger.Info("看板客户端断开", logger.Int("clients", len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// 发送缓冲区满，移除客户端
					delete(h.clients, client)
					client.closeSend()
				}
			}

		case <-h.done:
			for client := range h.clients {
				client.closeSend()
			}
			h.clients = make(map[*Client]bool)
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	close(h.done)
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastEvent 向所有连接广播一个事件
func (h *Hub) BroadcastEvent(eventType EventType, token string, data interface{}) {
	event := &Event{
		Type:      eventType,
		Token:     token,
		Timestamp: time.Now().UnixMilli(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			logger.Warn("事件数据序列化失败", logger.ErrorField(err))
			return
		}
		event.Data = raw
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Warn("事件序列化失败", logger.ErrorField(err))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		// 广播队列满，丢弃事件
	}
}

// ReadPump 读取消息循环，只处理心跳
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, message, err := c.Conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warn("websocket read error", logger.ErrorField(err))
				}
				return
			}

			var event Event
			if err := json.Unmarshal(message, &event); err != nil {
				continue
			}

			if event.Type == EventPing {
				pong := &Event{Type: EventPong, Timestamp: time.Now().UnixMilli()}
				if data, err := json.Marshal(pong); err == nil {
					c.trySend(data)
				}
			}
		}
	}
}

// WritePump 写入消息循环
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub 关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// 合并发送队列中的消息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
