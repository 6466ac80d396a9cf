package api

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"tablecast/internal/server/hub"
	"tablecast/internal/worker"
)

// agentCommand is the JSON message pushed to an agent over the control
// socket.
type agentCommand struct {
	ID    string `json:"id"`
	Query string `json:"query"`
}

// HandleControl keeps an agent's control socket open and feeds it queued
// query jobs. Agents authenticate with an API key issued by the dashboard.
func (h *Handler) HandleControl(w http.ResponseWriter, r *http.Request) {
	agentKeyRaw := r.Header.Get("X-Agent-Key")
	if agentKeyRaw == "" {
		http.Error(w, "Missing agent key", http.StatusUnauthorized)
		return
	}

	apiKey, err := h.Store.VerifyAPIKey(agentKeyRaw)
	if err != nil {
		slog.Warn("Invalid agent key", "error", err)
		http.Error(w, "Invalid agent key", http.StatusUnauthorized)
		return
	}

	slog.Info("Agent connected (control)", "key_id", apiKey.ID, "type", apiKey.Type)
	h.Hub.UpdateAgentCount(1)
	defer h.Hub.UpdateAgentCount(-1)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case cmd := <-h.dispatch:
				payload, _ := json.Marshal(cmd)
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					slog.Error("Failed to send job to agent", "job_id", cmd.ID, "error", err)
					h.failPending(cmd.ID, errors.New("agent connection lost"))
					return
				}
				slog.Info("Dispatched job to agent", "job_id", cmd.ID, "key_id", apiKey.ID)
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.NextReader(); err != nil {
			slog.Info("Agent disconnected (control)", "key_id", apiKey.ID)
			break
		}
	}
	close(done)
}

// HandleData receives a gob-encoded row stream for a previously dispatched
// job and hands the assembled table to the worker pool for encoding and
// storage.
func (h *Handler) HandleData(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Store.VerifyAPIKey(r.Header.Get("X-Agent-Key")); err != nil {
		http.Error(w, "Invalid agent key", http.StatusUnauthorized)
		return
	}

	jobID := r.URL.Query().Get("job_id")
	job := h.takePending(jobID)
	if job == nil {
		http.Error(w, "Unknown job id", http.StatusNotFound)
		return
	}
	slog.Info("Agent connected (data stream)", "job_id", jobID)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Upgrade failed", "error", err)
		h.failPending(jobID, err)
		return
	}
	defer conn.Close()

	dec := gob.NewDecoder(&WSReader{Conn: conn})

	var columns []string
	if err := dec.Decode(&columns); err != nil {
		slog.Error("Failed to decode columns", "job_id", jobID, "error", err)
		return
	}
	job.Columns = columns

	var rowCount int64
	for {
		var values []any
		if err := dec.Decode(&values); err != nil {
			if errors.Is(err, io.EOF) || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			slog.Info("Stream ended", "job_id", jobID, "reason", err)
			break
		}
		job.Rows = append(job.Rows, values)
		rowCount++

		if rowCount%1000 == 0 {
			h.Hub.Broadcast(hub.DashboardUpdate{
				Type:  "progress",
				JobID: jobID,
				Rows:  rowCount,
			})
		}
	}

	slog.Info("Data stream complete", "job_id", jobID, "total_rows", rowCount)
	if !h.Pool.Submit(job) {
		slog.Error("Export queue full, dropping agent job", "job_id", jobID)
		h.OnJobUpdate(jobID, worker.StatusFailed, rowCount)
	}
}

func (h *Handler) takePending(jobID string) *worker.ExportJob {
	h.mu.Lock()
	defer h.mu.Unlock()
	job := h.pending[jobID]
	delete(h.pending, jobID)
	return job
}

func (h *Handler) failPending(jobID string, err error) {
	h.mu.Lock()
	delete(h.pending, jobID)
	h.mu.Unlock()
	slog.Error("Agent job failed before data stream", "job_id", jobID, "error", err)
	h.OnJobUpdate(jobID, worker.StatusFailed, 0)
}

// WSReader adapts a websocket message stream to io.Reader for the gob
// decoder.
type WSReader struct {
	Conn   *websocket.Conn
	reader io.Reader
}

func (r *WSReader) Read(p []byte) (n int, err error) {
	if r.reader == nil {
		_, reader, err := r.Conn.NextReader()
		if err != nil {
			return 0, err
		}
		r.reader = reader
	}

	n, err = r.reader.Read(p)
	if err == io.EOF {
		r.reader = nil
		return r.Read(p)
	}
	return n, err
}
