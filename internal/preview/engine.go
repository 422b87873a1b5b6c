package preview

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/webpadhq/webpad/internal/infrastructure/logging"
	"github.com/webpadhq/webpad/internal/infrastructure/monitoring"
	"github.com/webpadhq/webpad/internal/preview/sandbox"
	"github.com/webpadhq/webpad/internal/shared/types"
)

// Engine executes preview runs. Each Launch builds the preview document,
// then runs the instrumented script in a fresh sandbox on its own
// goroutine. Superseded runs are abandoned, not cancelled: they execute
// until their timeout and their output is filtered out by channel
// correlation downstream.
type Engine struct {
	config  sandbox.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	emit    sandbox.EmitFunc

	runs atomic.Uint64
}

// NewEngine creates a preview engine. metrics may be nil.
func NewEngine(config sandbox.Config, logger *logging.Logger, metrics *monitoring.Metrics) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// SetEmit attaches the sink for payloads posted by sandboxed scripts.
// Must be called before the first Launch.
func (e *Engine) SetEmit(fn sandbox.EmitFunc) {
	e.emit = fn
}

// Launch starts a preview run and returns the rendered document
// immediately. Script execution happens asynchronously; console output
// and errors arrive through the emit hook tagged with channelID.
func (e *Engine) Launch(files types.EditorFiles, useTailwind bool, channelID string) string {
	doc := Build(files, useTailwind, channelID)
	script := Instrumentation(channelID) + "\n;\n" + files.Script

	run := e.runs.Add(1)
	if e.metrics != nil {
		e.metrics.PreviewRuns.Inc()
	}

	go e.execute(run, channelID, files.Markup, script)

	return doc
}

// Render builds the preview document without executing the script.
// Used when a client only needs fresh markup, such as a style-only edit.
func (e *Engine) Render(files types.EditorFiles, useTailwind bool, channelID string) string {
	return Build(files, useTailwind, channelID)
}

func (e *Engine) execute(run uint64, channelID, markup, script string) {
	rt, err := sandbox.New(e.config)
	if err != nil {
		e.logger.Error("sandbox init failed",
			zap.Uint64("run", run),
			zap.Error(err))
		if e.metrics != nil {
			e.metrics.PreviewFailures.Inc()
		}
		return
	}
	defer rt.Close()

	rt.SetEmit(e.emit)

	if err := rt.InjectDOM(sandbox.NewDOM(markup)); err != nil {
		e.logger.Warn("dom injection skipped",
			zap.Uint64("run", run),
			zap.Error(err))
	}

	result, err := rt.Execute(context.Background(), script)
	if err != nil {
		e.logger.Debug("preview script failed",
			zap.Uint64("run", run),
			zap.String("channel", channelID),
			zap.String("error", err.Error()))
		if e.metrics != nil {
			e.metrics.PreviewFailures.Inc()
		}
		return
	}

	e.logger.Debug("preview run complete",
		zap.Uint64("run", run),
		zap.String("channel", channelID),
		zap.Float64("duration_ms", result.Duration),
		zap.Int("console_lines", len(result.Console)))
}
