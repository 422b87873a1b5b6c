package preview

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpadhq/webpad/internal/infrastructure/logging"
	"github.com/webpadhq/webpad/internal/preview/sandbox"
	"github.com/webpadhq/webpad/internal/shared/types"
)

type payloadSink struct {
	mu       sync.Mutex
	payloads []map[string]interface{}
}

func (s *payloadSink) emit(payload map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
}

func (s *payloadSink) snapshot() []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]interface{}, len(s.payloads))
	copy(out, s.payloads)
	return out
}

func newTestEngine(sink *payloadSink) *Engine {
	cfg := sandbox.DefaultConfig()
	cfg.Timeout = 2 * time.Second
	e := NewEngine(cfg, logging.NewNop(), nil)
	e.SetEmit(sink.emit)
	return e
}

func TestLaunchReturnsDocumentImmediately(t *testing.T) {
	sink := &payloadSink{}
	e := newTestEngine(sink)

	files := types.EditorFiles{
		Markup: "<h1>Hi</h1>",
		Styles: "h1 { color: red; }",
		Script: "console.log('ready')",
	}

	doc := e.Launch(files, false, "chan-a")
	assert.Contains(t, doc, "<h1>Hi</h1>")
	assert.Contains(t, doc, "h1 { color: red; }")
	assert.Contains(t, doc, `"chan-a"`)
}

func TestLaunchEmitsConsoleEvents(t *testing.T) {
	sink := &payloadSink{}
	e := newTestEngine(sink)

	files := types.EditorFiles{
		Markup: "<div></div>",
		Script: "console.log('ready', 1)",
	}
	e.Launch(files, false, "chan-a")

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) >= 1
	}, 5*time.Second, 10*time.Millisecond)

	p := sink.snapshot()[0]
	assert.Equal(t, true, p["__webpadConsole"])
	assert.Equal(t, "chan-a", p["channel"])
	assert.Equal(t, "log", p["level"])
	assert.Equal(t, []interface{}{"ready", "1"}, p["args"])
	assert.NotNil(t, p["timestamp"])
}

func TestLaunchEmitsErrorEvents(t *testing.T) {
	sink := &payloadSink{}
	e := newTestEngine(sink)

	files := types.EditorFiles{
		Markup: "<div></div>",
		Script: "missingFunction()",
	}
	e.Launch(files, false, "chan-err")

	require.Eventually(t, func() bool {
		for _, p := range sink.snapshot() {
			if p["level"] == "error" {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	var found map[string]interface{}
	for _, p := range sink.snapshot() {
		if p["level"] == "error" {
			found = p
			break
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "chan-err", found["channel"])
	args, ok := found["args"].([]interface{})
	require.True(t, ok)
	require.Len(t, args, 1)
	assert.Contains(t, args[0], "missingFunction")
}

func TestLaunchScriptsQueryTheirMarkup(t *testing.T) {
	sink := &payloadSink{}
	e := newTestEngine(sink)

	files := types.EditorFiles{
		Markup: `<h1 id="title">Hello</h1>`,
		Script: "console.log(document.getElementById('title').textContent)",
	}
	e.Launch(files, false, "chan-dom")

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) >= 1
	}, 5*time.Second, 10*time.Millisecond)

	p := sink.snapshot()[0]
	assert.Equal(t, []interface{}{"Hello"}, p["args"])
}

func TestConcurrentLaunchesKeepChannelsApart(t *testing.T) {
	sink := &payloadSink{}
	e := newTestEngine(sink)

	e.Launch(types.EditorFiles{Script: "console.log('one')"}, false, "chan-1")
	e.Launch(types.EditorFiles{Script: "console.log('two')"}, false, "chan-2")

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) >= 2
	}, 5*time.Second, 10*time.Millisecond)

	byChannel := map[string]string{}
	for _, p := range sink.snapshot() {
		args := p["args"].([]interface{})
		byChannel[p["channel"].(string)] = args[0].(string)
	}
	assert.Equal(t, "one", byChannel["chan-1"])
	assert.Equal(t, "two", byChannel["chan-2"])
}

func TestRenderDoesNotExecute(t *testing.T) {
	sink := &payloadSink{}
	e := newTestEngine(sink)

	doc := e.Render(types.EditorFiles{Script: "console.log('never')"}, true, "chan-r")
	assert.True(t, strings.Contains(doc, TailwindCDN))

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, sink.snapshot())
}
