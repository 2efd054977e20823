// Package notify delivers transient user-facing messages.
package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier is fire-and-forget; implementations must not block the caller for long.
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string, icon ...string)
}

type Message struct {
	Level Level
	Text  string
	Icon  string
}

func firstIcon(icon []string) string {
	for _, i := range icon {
		if v := strings.TrimSpace(i); v != "" {
			return v
		}
	}
	return ""
}

// Discard drops every message.
type Discard struct{}

func (Discard) Success(string)         {}
func (Discard) Error(string)           {}
func (Discard) Info(string, ...string) {}

// Printer writes one line per message, e.g. for non-interactive commands.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Success(message string) { p.print("ok", "", message) }
func (p *Printer) Error(message string)   { p.print("error", "", message) }
func (p *Printer) Info(message string, icon ...string) {
	p.print("info", firstIcon(icon), message)
}

func (p *Printer) print(prefix, icon, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if icon != "" {
		fmt.Fprintf(p.w, "%s: %s %s\n", prefix, icon, message)
		return
	}
	fmt.Fprintf(p.w, "%s: %s\n", prefix, message)
}

// Logger mirrors notifications into the structured log.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(l zerolog.Logger) Logger {
	return Logger{log: l.With().Str("component", "notify").Logger()}
}

func (l Logger) Success(message string) {
	l.log.Info().Str("level_hint", string(LevelSuccess)).Msg(message)
}

func (l Logger) Error(message string) {
	l.log.Warn().Str("level_hint", string(LevelError)).Msg(message)
}

func (l Logger) Info(message string, icon ...string) {
	l.log.Info().Str("level_hint", string(LevelInfo)).Str("icon", firstIcon(icon)).Msg(message)
}

// Multi fans a message out to every notifier.
type Multi []Notifier

func (m Multi) Success(message string) {
	for _, n := range m {
		n.Success(message)
	}
}

func (m Multi) Error(message string) {
	for _, n := range m {
		n.Error(message)
	}
}

func (m Multi) Info(message string, icon ...string) {
	for _, n := range m {
		n.Info(message, icon...)
	}
}

// Recorder keeps every message in order.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Success(message string) { r.add(Message{Level: LevelSuccess, Text: message}) }
func (r *Recorder) Error(message string)   { r.add(Message{Level: LevelError, Text: message}) }
func (r *Recorder) Info(message string, icon ...string) {
	r.add(Message{Level: LevelInfo, Text: message, Icon: firstIcon(icon)})
}

func (r *Recorder) add(m Message) {
	r.mu.Lock()
	r.messages = append(r.messages, m)
	r.mu.Unlock()
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent message at level, if any.
func (r *Recorder) Last(level Level) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Level == level {
			return r.messages[i], true
		}
	}
	return Message{}, false
}
