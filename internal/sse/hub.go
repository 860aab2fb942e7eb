package sse

import (
	"sync"

	"go.uber.org/zap"
)

// Event 推送给前端的事件
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client 一条SSE连接
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub 管理所有SSE连接。完工流程借它向依赖视图（库存列表、历史列表）
// 发刷新信号。由调用方持有注入，不做进程级单例。
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register 注册连接
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.logger.Debug("SSE连接注册",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Int("total", len(h.clients)),
	)
}

// Unregister 注销连接并关闭事件通道
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Debug("SSE连接注销",
			zap.String("client_id", clientID),
			zap.Int("total", len(h.clients)),
		)
	}
}

// Broadcast 向所有连接广播事件，缓冲满的连接直接跳过不阻塞
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("SSE客户端缓冲已满，丢弃事件",
				zap.String("client_id", client.ID),
				zap.String("event", event.EventType),
			)
		}
	}
}
