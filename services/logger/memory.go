package logsvc

import (
	"sync"

	"github.com/trezcool/gradebook/core"
)

// Entry is one recorded log event.
type Entry struct {
	Level  string
	Msg    string
	Fields core.LogFields
	Err    error
}

// MemoryLogger records events instead of shipping them. Used by tests and the admin CLI dry runs.
type MemoryLogger struct {
	mu      sync.Mutex
	entries []Entry
}

var _ core.Logger = (*MemoryLogger)(nil)

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) record(level, msg string, args []interface{}) {
	e := Entry{Level: level, Msg: msg, Fields: core.LogFields{}}
	for _, arg := range args {
		switch v := arg.(type) {
		case core.LogFields:
			for k, val := range v {
				e.Fields[k] = val
			}
		case error:
			e.Err = v
		}
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

func (l *MemoryLogger) Debug(msg string, args ...interface{}) { l.record("DEBUG", msg, args) }
func (l *MemoryLogger) Info(msg string, args ...interface{})  { l.record("INFO", msg, args) }
func (l *MemoryLogger) Warn(msg string, args ...interface{})  { l.record("WARN", msg, args) }
func (l *MemoryLogger) Error(msg string, args ...interface{}) { l.record("ERROR", msg, args) }
func (l *MemoryLogger) Fatal(msg string, args ...interface{}) { l.record("FATAL", msg, args) }

// Entries returns a copy of the recorded events.
func (l *MemoryLogger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Find returns the events named msg.
func (l *MemoryLogger) Find(msg string) []Entry {
	var found []Entry
	for _, e := range l.Entries() {
		if e.Msg == msg {
			found = append(found, e)
		}
	}
	return found
}

func (l *MemoryLogger) Reset() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}
