package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"tablecast/internal/delimited"
	"tablecast/internal/driver"
	"tablecast/internal/exporter"
	"tablecast/internal/security"
	"tablecast/internal/worker"
)

// maxRequestBody bounds inline table payloads (32 MB).
const maxRequestBody = 32 << 20

// ExportRequest is the body of POST /export. Exactly one of Table or Query
// must be set. Control characters are optional and fall back to the
// comma/quote conventions when empty.
type ExportRequest struct {
	Table   []any    `json:"table,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Query   string   `json:"query,omitempty"`

	Format     string `json:"format,omitempty"`
	Delimiter  string `json:"delimiter,omitempty"`
	Quote      string `json:"quote,omitempty"`
	Escape     string `json:"escape,omitempty"`
	Terminator string `json:"terminator,omitempty"`
	OmitHeader bool   `json:"omit_header,omitempty"`

	Email string `json:"email,omitempty"`

	// Via selects where a query runs: "" (local driver) or "agent".
	Via string `json:"via,omitempty"`
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if err := security.VerifyHMAC(h.Cfg.APISecret, r.Method, r.URL.Path, string(body),
		r.Header.Get("X-Timestamp"), r.Header.Get("X-Signature")); err != nil {
		slog.Warn("Rejected unsigned export request", "error", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var req ExportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if (req.Table == nil) == (req.Query == "") {
		writeError(w, http.StatusBadRequest, "exactly one of table or query must be provided")
		return
	}
	if req.Email != "" {
		if err := security.ValidateEmail(req.Email); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	job := worker.NewExportJob(req.Format, req.Email, h.Cfg.JobTimeout)
	job.Delimited = exporter.DelimitedOptions{
		Delimiter:  req.Delimiter,
		Quote:      req.Quote,
		Escape:     req.Escape,
		Terminator: req.Terminator,
		OmitHeader: req.OmitHeader,
	}

	if req.Query != "" {
		if err := h.validateQuery(req.Query, req.Via == "agent"); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Via == "agent" {
			h.dispatchToAgent(w, job, req.Query)
			return
		}
		job.Query = req.Query
	} else {
		rows, diags, err := screenTable(req.Table, req.Delimiter, req.Quote, req.Escape, req.Terminator)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(diags) > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{
				"error":       "table failed shape validation",
				"diagnostics": diags,
			})
			return
		}
		job.Columns = req.Columns
		job.Rows = rows
	}

	h.submitJob(w, job)
}

// validateQuery applies the rules matching where the query will run. The
// local source has a known kind; an agent may front either a SQL or a Mongo
// database, so a well-formed find expression is accepted alongside queries
// that pass the SQL rules.
func (h *Handler) validateQuery(query string, forAgent bool) error {
	if forAgent {
		sqlErr := security.ValidateQuery(query)
		if sqlErr == nil || driver.ValidateMongoQuery(query) == nil {
			return nil
		}
		return sqlErr
	}
	if h.Cfg.SourceDriver == "mongo" {
		return driver.ValidateMongoQuery(query)
	}
	return security.ValidateQuery(query)
}

// screenTable validates the control characters and the table shape before a
// job is queued, so malformed requests fail at the API instead of inside a
// worker. It returns the table as plain rows once it is known to be
// well-formed.
func screenTable(table []any, delimiter, quote, escape, terminator string) ([][]any, []string, error) {
	enc, err := delimited.New(table)
	if err != nil {
		return nil, nil, err
	}
	settings := []struct {
		value string
		set   func(string) error
	}{
		{delimiter, enc.SetDelimiter},
		{quote, enc.SetQuote},
		{escape, enc.SetEscape},
		{terminator, enc.SetTerminator},
	}
	for _, s := range settings {
		if s.value == "" {
			continue
		}
		if err := s.set(s.value); err != nil {
			return nil, nil, err
		}
	}

	if diags := enc.ValidateShape(); len(diags) > 0 {
		return nil, diags, nil
	}

	rows := make([][]any, len(table))
	for i, slot := range table {
		row, ok := slot.([]any)
		if !ok {
			// ValidateShape accepts a few slot types JSON never produces.
			return nil, []string{"row " + strconv.Itoa(i) + ": not a sequence of values"}, nil
		}
		rows[i] = row
	}
	return rows, nil, nil
}

func (h *Handler) submitJob(w http.ResponseWriter, job *worker.ExportJob) {
	h.trackJob(job, h.storageKey(job))

	if !h.Pool.Submit(job) {
		writeError(w, http.StatusServiceUnavailable, "export queue is full, try again later")
		return
	}

	h.writeAccepted(w, job)
}

func (h *Handler) storageKey(job *worker.ExportJob) string {
	key := "exports/" + job.ID + "." + job.FileExtension()
	if h.Cfg.UseGzip {
		key += ".gz"
	}
	return key
}

func (h *Handler) writeAccepted(w http.ResponseWriter, job *worker.ExportJob) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// dispatchToAgent queues a query for a connected agent and parks the job
// until the agent opens its data stream.
func (h *Handler) dispatchToAgent(w http.ResponseWriter, job *worker.ExportJob, query string) {
	h.mu.Lock()
	h.pending[job.ID] = job
	h.mu.Unlock()

	select {
	case h.dispatch <- agentCommand{ID: job.ID, Query: query}:
	default:
		h.mu.Lock()
		delete(h.pending, job.ID)
		h.mu.Unlock()
		writeError(w, http.StatusServiceUnavailable, "no agent capacity available")
		return
	}

	h.trackJob(job, h.storageKey(job))
	h.writeAccepted(w, job)
}

// HandleJobStatus serves GET /jobs?id=<job_id>.
func (h *Handler) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id parameter")
		return
	}

	h.mu.Lock()
	rec, ok := h.jobs[id]
	var snapshot jobRecord
	if ok {
		snapshot = *rec
	}
	h.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "unknown job id")
		return
	}

	resp := map[string]any{
		"job_id":       snapshot.ID,
		"format":       snapshot.Format,
		"status":       snapshot.Status,
		"rows":         snapshot.Rows,
		"submitted_at": snapshot.Submitted,
	}
	if snapshot.Status == string(worker.StatusCompleted) {
		resp["download_url"] = h.Storage.GetDownloadURL(snapshot.storageKey)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
