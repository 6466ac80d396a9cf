package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tablecast/internal/security"
	"tablecast/internal/server/hub"
	"tablecast/internal/server/store"
	"tablecast/internal/storage"
	"tablecast/internal/worker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS middleware
	},
}

// Config carries the handler's tunables from the environment.
type Config struct {
	APISecret  string
	JWTSecret  string
	JobTimeout time.Duration
	UseGzip    bool

	// SourceDriver is the configured export source kind ("mysql",
	// "postgres", "mongo"); it selects which query validation applies.
	SourceDriver string
}

type Handler struct {
	Store   *store.Store
	Hub     *hub.Hub
	Pool    *worker.Pool
	Storage storage.Provider
	Cfg     Config

	mu       sync.Mutex
	jobs     map[string]*jobRecord
	pending  map[string]*worker.ExportJob // agent jobs waiting for their data stream
	dispatch chan agentCommand
}

// jobRecord is the status snapshot served by the job status endpoint. It is
// updated through the pool notifier so handlers never touch a job that a
// worker is mutating.
type jobRecord struct {
	ID        string    `json:"job_id"`
	Format    string    `json:"format"`
	Status    string    `json:"status"`
	Rows      int64     `json:"rows"`
	Submitted time.Time `json:"submitted_at"`

	storageKey string
}

func NewHandler(s *store.Store, h *hub.Hub, p *worker.Pool, sp storage.Provider, cfg Config) *Handler {
	return &Handler{
		Store:    s,
		Hub:      h,
		Pool:     p,
		Storage:  sp,
		Cfg:      cfg,
		jobs:     make(map[string]*jobRecord),
		pending:  make(map[string]*worker.ExportJob),
		dispatch: make(chan agentCommand, 16),
	}
}

func (h *Handler) trackJob(job *worker.ExportJob, storageKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs[job.ID] = &jobRecord{
		ID:         job.ID,
		Format:     job.Format,
		Status:     string(job.Status),
		Submitted:  job.Submitted,
		storageKey: storageKey,
	}
}

// OnJobUpdate adapts the handler to the worker pool's notifier signature.
func (h *Handler) OnJobUpdate(jobID string, status worker.JobStatus, rows int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rec, ok := h.jobs[jobID]; ok {
		rec.Status = string(status)
		rec.Rows = rows
	}
}

// HandleDashboard upgrades the connection and streams job updates until the
// client goes away.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if h.Cfg.JWTSecret != "" {
		if _, err := security.VerifySessionToken(h.Cfg.JWTSecret, r.URL.Query().Get("token")); err != nil {
			http.Error(w, "Invalid session token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Dashboard upgrade failed", "error", err)
		return
	}

	h.Hub.Register(conn)

	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.Hub.Unregister(conn)
			break
		}
	}
}

// sessionFromRequest extracts and verifies the bearer token on dashboard API
// calls.
func (h *Handler) sessionFromRequest(r *http.Request) (*security.SessionClaims, error) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return nil, errors.New("missing bearer token")
	}
	return security.VerifySessionToken(h.Cfg.JWTSecret, token)
}
