package types

// Level is the severity of a console entry.
type Level string

const (
	LevelLog   Level = "log"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelDebug Level = "debug"
)

// Valid reports whether l is one of the known severities.
func (l Level) Valid() bool {
	switch l {
	case LevelLog, LevelInfo, LevelWarn, LevelError, LevelDebug:
		return true
	}
	return false
}

// ConsoleEntry is a transient console record held in the session's ring
// buffer. It is never persisted.
type ConsoleEntry struct {
	ID        string   `json:"id"`
	Level     Level    `json:"level"`
	Args      []string `json:"args"`
	Timestamp int64    `json:"timestamp"`
	Stack     string   `json:"stack,omitempty"`
}
