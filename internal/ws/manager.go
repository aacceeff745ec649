// Package ws fans job status updates out to connected websocket clients.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/langbridge/extractd/internal/job"
	"github.com/langbridge/extractd/pkg/schema"
)

// Manager tracks websocket clients and broadcasts job updates to all of
// them. Dead clients are dropped on write failure.
type Manager struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{clients: make(map[*websocket.Conn]struct{}), logger: logger}
}

func (m *Manager) Register(conn *websocket.Conn) {
	m.mu.Lock()
	m.clients[conn] = struct{}{}
	n := len(m.clients)
	m.mu.Unlock()
	m.logger.Debug("websocket client connected", "clients", n)
}

func (m *Manager) Unregister(conn *websocket.Conn) {
	m.mu.Lock()
	if _, ok := m.clients[conn]; ok {
		delete(m.clients, conn)
		_ = conn.Close()
	}
	n := len(m.clients)
	m.mu.Unlock()
	m.logger.Debug("websocket client disconnected", "clients", n)
}

// BroadcastJobUpdate sends the job's current status to every client.
func (m *Manager) BroadcastJobUpdate(j *job.Job) {
	update := schema.JobUpdate{
		Type:   "job_update",
		JobID:  j.ID,
		Status: string(j.Status),
	}
	if j.Status == job.StatusFailed && j.Result != nil {
		update.Error = j.Result.Error
	}
	payload, err := json.Marshal(update)
	if err != nil {
		m.logger.Warn("marshal job update failed", "job_id", j.ID, "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			m.logger.Warn("drop websocket client", "error", err)
			_ = conn.Close()
			delete(m.clients, conn)
		}
	}
}
