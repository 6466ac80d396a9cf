package main

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"tablecast/internal/driver"
)

var version = "dev"

type AgentConfig struct {
	SourceDriver string
	SourceDSN    string
	ServerURL    string
	AgentKey     string
}

// JobCommand mirrors the control message sent by exportd.
type JobCommand struct {
	ID    string `json:"id"`
	Query string `json:"query"`
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tablecast agent %s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  tablecast-agent [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (Required):\n")
		fmt.Fprintf(os.Stderr, "  AGENT_KEY      Your unique agent key (tk_live_...)\n")
		fmt.Fprintf(os.Stderr, "  SERVER_URL     WebSocket URL of exportd (e.g., wss://exports.example.com)\n")
		fmt.Fprintf(os.Stderr, "  SOURCE_DSN     Database connection string\n")
		fmt.Fprintf(os.Stderr, "  SOURCE_DRIVER  mysql, postgres or mongo (default mysql)\n")
	}

	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tablecast agent %s\n", version)
		os.Exit(0)
	}

	gob.Register([]any{})
	gob.Register(map[string]any{})
	gob.Register([]byte{})
	gob.Register(time.Time{})

	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config := AgentConfig{
		SourceDriver: envOr("SOURCE_DRIVER", "mysql"),
		SourceDSN:    os.Getenv("SOURCE_DSN"),
		ServerURL:    os.Getenv("SERVER_URL"),
		AgentKey:     os.Getenv("AGENT_KEY"),
	}

	if config.SourceDSN == "" || config.ServerURL == "" {
		slog.Error("Missing configuration (SOURCE_DSN, SERVER_URL)")
		os.Exit(1)
	}

	slog.Info("Starting tablecast agent", "server", config.ServerURL, "driver", config.SourceDriver)

	src, err := driver.Open(config.SourceDriver, config.SourceDSN)
	if err != nil {
		slog.Error("Failed to open source driver", "error", err)
		os.Exit(1)
	}
	if err := src.Ping(context.Background()); err != nil {
		slog.Error("Failed to connect to local database", "error", err)
		os.Exit(1)
	}
	defer src.Close()
	slog.Info("Connected to local database", "driver", src.Name())

	controlURL := config.ServerURL + "/agent/control"
	headers := make(map[string][]string)
	headers["X-Agent-Key"] = []string{config.AgentKey}

	conn, _, err := websocket.DefaultDialer.Dial(controlURL, headers)
	if err != nil {
		slog.Error("Failed to connect to control plane", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	slog.Info("Connected to control plane")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	go func() {
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				slog.Error("Control read error", "error", err)
				return
			}

			var job JobCommand
			if err := json.Unmarshal(message, &job); err != nil {
				slog.Error("Invalid command", "error", err)
				continue
			}

			slog.Info("Received job", "id", job.ID, "query", job.Query)
			go executeJob(src, config.ServerURL, config.AgentKey, job)
		}
	}()

	<-interrupt
	slog.Info("Agent shutting down...")
}

func executeJob(d driver.Driver, serverURL, agentKey string, job JobCommand) {
	slog.Info("Executing job", "id", job.ID)

	streamer, err := d.Query(context.Background(), job.Query)
	if err != nil {
		slog.Error("Query execution failed", "id", job.ID, "error", err)
		return
	}
	defer streamer.Close()

	dataURL := serverURL + "/agent/data?job_id=" + job.ID
	headers := make(map[string][]string)
	headers["X-Agent-Key"] = []string{agentKey}

	conn, _, err := websocket.DefaultDialer.Dial(dataURL, headers)
	if err != nil {
		slog.Error("Failed to connect to data stream", "id", job.ID, "error", err)
		return
	}
	defer conn.Close()

	wsWriter := &WSWriter{Conn: conn}
	enc := gob.NewEncoder(wsWriter)

	columns, err := streamer.Columns()
	if err != nil {
		slog.Error("Failed to read columns", "id", job.ID, "error", err)
		return
	}
	if err := enc.Encode(columns); err != nil {
		slog.Error("Failed to encode columns", "id", job.ID, "error", err)
		return
	}

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	rowCount := 0
	for streamer.Next() {
		if err := streamer.Scan(pointers...); err != nil {
			slog.Error("Scan failed", "id", job.ID, "error", err)
			break
		}

		if err := enc.Encode(values); err != nil {
			slog.Error("Encode failed", "id", job.ID, "error", err)
			break
		}
		rowCount++
	}
	if err := streamer.Err(); err != nil {
		slog.Error("Row iteration failed", "id", job.ID, "error", err)
	}

	// A normal close tells the server the stream is complete.
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	slog.Info("Job completed", "id", job.ID, "rows", rowCount)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// WSWriter adapts the websocket connection to io.Writer for the gob encoder.
type WSWriter struct {
	Conn *websocket.Conn
}

func (w *WSWriter) Write(p []byte) (n int, err error) {
	err = w.Conn.WriteMessage(websocket.BinaryMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}
