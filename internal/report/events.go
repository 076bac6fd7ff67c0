package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventList     EventType = "list"
	EventClassify EventType = "classify"
	EventSkip     EventType = "skip"
	EventGenerate EventType = "generate"
	EventUpload   EventType = "upload"
	EventExecute  EventType = "execute"
	EventTrigger  EventType = "trigger"
	EventPoll     EventType = "poll"
	EventDownload EventType = "download"
	EventError    EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event is one line of the JSONL audit log
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	RunID     string            `json:"run_id,omitempty"`
	Path      string            `json:"path,omitempty"`
	Mood      string            `json:"mood,omitempty"`
	RenderID  string            `json:"render_id,omitempty"`
	Status    string            `json:"status,omitempty"`
	Count     int               `json:"count,omitempty"`
	Bytes     int64             `json:"bytes,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates artifacts/<prefix>-YYYYMMDD-HHMMSS.jsonl.
// minLevel determines which events are written.
func NewEventLogger(outputDir, prefix string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if prefix == "" {
		prefix = "events"
	}

	filename := fmt.Sprintf("%s-%s.jsonl", prefix, time.Now().Format("20060102-150405"))
	path := filepath.Join(outputDir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

func levelFor(err error) (EventLevel, string) {
	if err != nil {
		return LevelError, err.Error()
	}
	return LevelInfo, ""
}

// LogList logs the result of listing the remote music tree
func (l *EventLogger) LogList(runID, root string, lines int, err error) error {
	level, msg := levelFor(err)
	return l.Log(&Event{
		Level: level,
		Event: EventList,
		RunID: runID,
		Path:  root,
		Count: lines,
		Error: msg,
	})
}

// LogClassify logs the number of tracks assigned to a mood
func (l *EventLogger) LogClassify(runID, mood string, count int) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventClassify,
		RunID: runID,
		Mood:  mood,
		Count: count,
	})
}

// LogSkip logs a lister line that produced no track
func (l *EventLogger) LogSkip(runID, line, reason string) error {
	return l.Log(&Event{
		Level:  LevelDebug,
		Event:  EventSkip,
		RunID:  runID,
		Path:   line,
		Status: reason,
	})
}

// LogGenerate logs the SQL script written locally
func (l *EventLogger) LogGenerate(runID, path string, inserts int, bytes int64) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventGenerate,
		RunID: runID,
		Path:  path,
		Count: inserts,
		Bytes: bytes,
	})
}

// LogUpload logs the transfer of the SQL script to the remote host
func (l *EventLogger) LogUpload(runID, remotePath string, bytes int64, duration time.Duration, err error) error {
	level, msg := levelFor(err)
	return l.Log(&Event{
		Level:    level,
		Event:    EventUpload,
		RunID:    runID,
		Path:     remotePath,
		Bytes:    bytes,
		Duration: duration.Milliseconds(),
		Error:    msg,
	})
}

// LogExecute logs the remote SQL execution and its exit status
func (l *EventLogger) LogExecute(runID string, exitCode int, duration time.Duration, err error) error {
	level, msg := levelFor(err)
	return l.Log(&Event{
		Level:    level,
		Event:    EventExecute,
		RunID:    runID,
		Status:   fmt.Sprintf("exit %d", exitCode),
		Duration: duration.Milliseconds(),
		Error:    msg,
	})
}

// LogTrigger logs a webhook call that starts a video generation
func (l *EventLogger) LogTrigger(jobID, topic, renderID string, duration time.Duration, err error) error {
	level, msg := levelFor(err)
	return l.Log(&Event{
		Level:    level,
		Event:    EventTrigger,
		RunID:    jobID,
		RenderID: renderID,
		Duration: duration.Milliseconds(),
		Error:    msg,
		Extra: map[string]string{
			"topic": topic,
		},
	})
}

// LogPoll logs one render status check
func (l *EventLogger) LogPoll(jobID, renderID, status string, progress float64, attempt int) error {
	return l.Log(&Event{
		Level:    LevelDebug,
		Event:    EventPoll,
		RunID:    jobID,
		RenderID: renderID,
		Status:   status,
		Count:    attempt,
		Extra: map[string]string{
			"progress": fmt.Sprintf("%.0f", progress),
		},
	})
}

// LogDownload logs a finished (or failed) video download
func (l *EventLogger) LogDownload(jobID, url, path string, bytes int64, duration time.Duration, err error) error {
	level, msg := levelFor(err)
	return l.Log(&Event{
		Level:    level,
		Event:    EventDownload,
		RunID:    jobID,
		Path:     path,
		Bytes:    bytes,
		Duration: duration.Milliseconds(),
		Error:    msg,
		Extra: map[string]string{
			"url": url,
		},
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, runID string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		RunID: runID,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
