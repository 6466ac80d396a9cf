package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"tablecast/internal/worker"
)

// DashboardUpdate is a single event pushed to connected dashboards.
type DashboardUpdate struct {
	Type       string `json:"type"` // "job_update", "progress", "agent_update"
	JobID      string `json:"job_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Rows       int64  `json:"rows,omitempty"`
	AgentCount int    `json:"agent_count,omitempty"`
}

// Hub fans job lifecycle events out to dashboard websocket connections.
type Hub struct {
	dashboards map[*websocket.Conn]bool
	agentCount int
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		dashboards: make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dashboards[conn] = true
	slog.Info("Dashboard connected", "total_connections", len(h.dashboards))
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.dashboards[conn]; ok {
		delete(h.dashboards, conn)
		conn.Close()
		slog.Info("Dashboard disconnected", "total_connections", len(h.dashboards))
	}
}

func (h *Hub) Broadcast(update DashboardUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload, _ := json.Marshal(update)
	for conn := range h.dashboards {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Error("Dashboard broadcast failed", "error", err)
			conn.Close()
			delete(h.dashboards, conn)
		}
	}
}

// NotifyJob adapts the hub to the worker pool's notifier signature.
func (h *Hub) NotifyJob(jobID string, status worker.JobStatus, rows int64) {
	h.Broadcast(DashboardUpdate{
		Type:   "job_update",
		JobID:  jobID,
		Status: string(status),
		Rows:   rows,
	})
}

func (h *Hub) UpdateAgentCount(delta int) {
	h.mu.Lock()
	h.agentCount += delta
	count := h.agentCount
	h.mu.Unlock()

	h.Broadcast(DashboardUpdate{
		Type:       "agent_update",
		AgentCount: count,
	})
}
