package sandbox

import (
	"time"
)

// Config configures runtime limits.
type Config struct {
	Timeout       time.Duration // execution timeout
	MaxMemoryMB   int           // memory limit hint
	EnableConsole bool          // capture console output locally
	EnableDOM     bool          // expose document proxy
}

// DefaultConfig returns sensible limits for preview execution.
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		MaxMemoryMB:   50,
		EnableConsole: true,
		EnableDOM:     true,
	}
}

// Result contains execution results.
type Result struct {
	Value    interface{} `json:"value,omitempty"`
	Console  []LogEntry  `json:"console,omitempty"`
	Error    string      `json:"error,omitempty"`
	Duration float64     `json:"duration_ms"`
}

// LogEntry is a locally captured console line.
type LogEntry struct {
	Level     string        `json:"level"`
	Args      []interface{} `json:"args"`
	Timestamp int64         `json:"timestamp"`
}

// EmitFunc receives payloads posted through window.parent.postMessage.
// Called on the runtime's goroutine; implementations must not block.
type EmitFunc func(payload map[string]interface{})
