// Package logger writes one JSON line per processed exchange to an
// append-only audit log.
package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gzhole/personaguard/internal/redact"
)

// defaultMaxLogBytes is the size at which the log is rotated to "<path>.1".
const defaultMaxLogBytes = 10 * 1024 * 1024

type AuditEvent struct {
	Timestamp        string   `json:"timestamp"`
	EntryID          string   `json:"entry_id,omitempty"`
	UserMessage      string   `json:"user_message"`
	Action           string   `json:"action"`
	Reason           string   `json:"reason"`
	Topic            string   `json:"topic,omitempty"`
	TriggeredSignals []string `json:"triggered_signals,omitempty"`
	Issues           []string `json:"issues,omitempty"`
	Pattern          string   `json:"pattern,omitempty"`
	RawLength        int      `json:"raw_length"`
	FinalLength      int      `json:"final_length"`
	Adapted          bool     `json:"adapted,omitempty"`
	Error            string   `json:"error,omitempty"`
}

type AuditLogger struct {
	path     string
	maxBytes int64
	file     *os.File
	size     int64
	mu       sync.Mutex
}

func New(path string) (*AuditLogger, error) {
	l := &AuditLogger{path: path, maxBytes: defaultMaxLogBytes}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *AuditLogger) open() error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	l.file = file
	l.size = info.Size()
	return nil
}

func (l *AuditLogger) Log(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Redact sensitive data before logging
	event.UserMessage = redact.Redact(event.UserMessage)
	event.Issues = redact.RedactAll(event.Issues)
	if event.Error != "" {
		event.Error = redact.Redact(event.Error)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if l.size+int64(len(data)) > l.maxBytes && l.size > 0 {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotate audit log: %w", err)
		}
	}

	n, err := l.file.Write(data)
	l.size += int64(n)
	return err
}

// rotate moves the current log to "<path>.1", replacing any older backup.
func (l *AuditLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return err
	}
	return l.open()
}

func (l *AuditLogger) Path() string { return l.path }

func (l *AuditLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
