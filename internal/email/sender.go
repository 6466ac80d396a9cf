package email

import (
	"log/slog"
)

// Sender delivers export completion notifications. Implementations must not
// block the caller; delivery happens in the background.
type Sender interface {
	SendDownloadLink(to, downloadURL, summary string)
	SendWithAttachment(to, filename string, content []byte, summary string)
}

// LogSender logs notifications instead of delivering them. Used in
// development and as the fallback when SMTP is not configured.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) SendDownloadLink(to, downloadURL, summary string) {
	slog.Info("EMAIL (log only)",
		"to", to,
		"url", downloadURL,
		"summary", summary,
	)
}

func (s *LogSender) SendWithAttachment(to, filename string, content []byte, summary string) {
	slog.Info("EMAIL WITH ATTACHMENT (log only)",
		"to", to,
		"filename", filename,
		"size", len(content),
		"summary", summary,
	)
}
