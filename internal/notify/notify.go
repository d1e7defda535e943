// Package notify delivers one-way user-facing notifications emitted by state
// changing operations.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Level is the outcome a notification reports
type Level string

const (
	LevelSuccess Level = "success"
	LevelFailure Level = "failure"
)

// Notification is a title plus description, fire-and-forget
type Notification struct {
	Level       Level  `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Success builds a success notification
func Success(title, description string) Notification {
	return Notification{Level: LevelSuccess, Title: title, Description: description}
}

// Failure builds a failure notification
func Failure(title, description string) Notification {
	return Notification{Level: LevelFailure, Title: title, Description: description}
}

// Sink receives notifications. Implementations must not block the caller for long.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(Notification)

// Notify calls f(n)
func (f SinkFunc) Notify(n Notification) { f(n) }

// Discard drops every notification
var Discard Sink = SinkFunc(func(Notification) {})

type multi []Sink

func (m multi) Notify(n Notification) {
	for _, s := range m {
		s.Notify(n)
	}
}

// Multi fans a notification out to every sink, nil sinks are skipped
func Multi(sinks ...Sink) Sink {
	var out multi
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// LogSink writes notifications to a zap logger
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify logs n at info (success) or warn (failure)
func (s *LogSink) Notify(n Notification) {
	fields := []zap.Field{zap.String("title", n.Title), zap.String("description", n.Description)}
	if n.Level == LevelFailure {
		s.logger.Warn("notification", fields...)
		return
	}
	s.logger.Info("notification", fields...)
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// ConsoleSink prints styled notifications for the CLI
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink creates a ConsoleSink writing to w
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Notify prints n as "✅ Title: description" or "❌ Title: description"
func (s *ConsoleSink) Notify(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	icon, style := "✅", successStyle
	if n.Level == LevelFailure {
		icon, style = "❌", failureStyle
	}
	if n.Description == "" {
		fmt.Fprintf(s.w, "%s %s\n", icon, style.Render(n.Title))
		return
	}
	fmt.Fprintf(s.w, "%s %s %s\n", icon, style.Render(n.Title), detailStyle.Render(n.Description))
}

// Recorder keeps every notification in memory
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify records n
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent notification
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}
