package server

import (
	"context"
	"net/http"

	"autodj/core/session"
	"autodj/logger"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSSessionHandler upgrades the connection and attaches it to the event hub.
// 看板页面通过这里收session_open/mix_ready等事件
func (h *Handler) WSSessionHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &session.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 64),
	}
	h.hub.Register(client)

	// 请求上下文随handler返回而取消，pump用独立上下文
	go client.WritePump()
	go client.ReadPump(context.Background())
}
