// Package console receives instrumented output from preview runs and
// maintains the bounded console log.
//
// Events arrive as untrusted payloads posted by sandboxed scripts. The
// bridge trusts nothing until two checks pass: the discriminator field
// marks the payload as console traffic, and the channel identifier matches
// the currently active run. Stale events from superseded runs fail the
// second check and are dropped silently.
package console

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/webpadhq/webpad/internal/infrastructure/logging"
	"github.com/webpadhq/webpad/internal/infrastructure/monitoring"
	"github.com/webpadhq/webpad/internal/shared/id"
	"github.com/webpadhq/webpad/internal/shared/types"
)

const (
	// MaxEntries caps the retained log.
	MaxEntries = 500
	// EvictBatch is how many oldest entries are dropped when the cap
	// is exceeded, so eviction is amortized rather than per-append.
	EvictBatch = 100
)

// Message is the wire shape of an instrumented console event.
type Message struct {
	Console   bool     `json:"__webpadConsole"`
	Channel   string   `json:"channel"`
	Level     string   `json:"level"`
	Args      []string `json:"args"`
	Timestamp int64    `json:"timestamp"`
	Stack     string   `json:"stack,omitempty"`
}

// DecodeMap interprets a payload map as a console message. The
// discriminator is checked before any other field is touched; payloads
// without it are not console traffic and yield ok=false.
func DecodeMap(payload map[string]interface{}) (*Message, bool) {
	flag, isBool := payload["__webpadConsole"].(bool)
	if !isBool || !flag {
		return nil, false
	}

	m := &Message{Console: true}
	m.Channel, _ = payload["channel"].(string)
	m.Level, _ = payload["level"].(string)
	m.Stack, _ = payload["stack"].(string)

	switch ts := payload["timestamp"].(type) {
	case int64:
		m.Timestamp = ts
	case float64:
		m.Timestamp = int64(ts)
	}

	if raw, ok := payload["args"].([]interface{}); ok {
		m.Args = make([]string, 0, len(raw))
		for _, a := range raw {
			if s, ok := a.(string); ok {
				m.Args = append(m.Args, s)
			} else {
				m.Args = append(m.Args, fmt.Sprint(a))
			}
		}
	}

	return m, true
}

// DecodeJSON interprets raw JSON as a console message, with the same
// discriminator-first contract as DecodeMap.
func DecodeJSON(data []byte) (*Message, bool) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false
	}
	return DecodeMap(payload)
}

// EntryFunc observes accepted console entries.
type EntryFunc func(types.ConsoleEntry)

// Bridge validates, correlates, and retains console events.
type Bridge struct {
	mu      sync.Mutex
	channel string
	entries []types.ConsoleEntry
	open    bool

	subscribers []EntryFunc

	ids     *id.Generator
	logger  *logging.Logger
	metrics *monitoring.Metrics
	now     func() time.Time
}

// NewBridge creates a console bridge. No channel is active until
// Activate is called, so every event is discarded. metrics may be nil.
func NewBridge(logger *logging.Logger, metrics *monitoring.Metrics) *Bridge {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bridge{
		ids:     id.Default(),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Activate switches the bridge to a new run. Events tagged with any other
// channel, including the previous one, are discarded from now on.
func (b *Bridge) Activate(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channel = channel
}

// ActiveChannel returns the channel currently accepted, or "".
func (b *Bridge) ActiveChannel() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channel
}

// Deliver ingests a raw payload from a preview run. Non-console payloads
// and events from inactive channels are dropped. Returns whether the
// event was accepted.
func (b *Bridge) Deliver(payload map[string]interface{}) bool {
	msg, ok := DecodeMap(payload)
	if !ok {
		return false
	}
	return b.accept(msg)
}

// DeliverMessage ingests an already decoded message.
func (b *Bridge) DeliverMessage(msg *Message) bool {
	if msg == nil || !msg.Console {
		return false
	}
	return b.accept(msg)
}

func (b *Bridge) accept(msg *Message) bool {
	b.mu.Lock()

	if b.channel == "" || msg.Channel != b.channel {
		b.mu.Unlock()
		if b.metrics != nil {
			b.metrics.ConsoleDiscarded.Inc()
		}
		b.logger.Debug("discarded stale console event",
			zap.String("channel", msg.Channel))
		return false
	}

	level := types.Level(msg.Level)
	if !level.Valid() {
		level = types.LevelLog
	}

	ts := msg.Timestamp
	if ts == 0 {
		ts = b.now().UnixMilli()
	}

	entry := types.ConsoleEntry{
		ID:        b.ids.NewEntryID(),
		Level:     level,
		Args:      append([]string{}, msg.Args...),
		Timestamp: ts,
		Stack:     msg.Stack,
	}

	b.entries = append(b.entries, entry)
	if len(b.entries) > MaxEntries {
		b.entries = append(b.entries[:0:0], b.entries[EvictBatch:]...)
	}

	// Errors force the panel open. The reverse never happens
	// automatically; only the user closes it.
	if level == types.LevelError {
		b.open = true
	}

	subs := append([]EntryFunc{}, b.subscribers...)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.ConsoleEvents.WithLabelValues(string(level)).Inc()
	}
	for _, fn := range subs {
		fn(entry)
	}
	return true
}

// OnEntry registers an observer for accepted entries. Observers run
// outside the bridge lock, on the delivering goroutine.
func (b *Bridge) OnEntry(fn EntryFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// Entries returns a copy of the retained log, oldest first.
func (b *Bridge) Entries() []types.ConsoleEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.ConsoleEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Clear empties the log. The panel open state is untouched.
func (b *Bridge) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}

// Open reports whether the console panel is open.
func (b *Bridge) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// SetOpen sets the panel state directly, for user toggles.
func (b *Bridge) SetOpen(open bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = open
}
